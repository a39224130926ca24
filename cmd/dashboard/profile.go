package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/nicetouch/dashboard/internal/bootstrap"
	domainauth "github.com/nicetouch/dashboard/internal/domain/auth"
	"github.com/nicetouch/dashboard/internal/domain/profile"
)

type profileOptions struct {
	JSON bool
}

func parseProfileFlags(stderr io.Writer, args []string) (profileOptions, error) {
	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts profileOptions
	fs.BoolVar(&opts.JSON, "json", false, "Print the record as JSON")

	if err := fs.Parse(args); err != nil {
		return profileOptions{}, err
	}
	return opts, nil
}

func runProfile(cmdCtx *commandContext, args []string) error {
	opts, err := parseProfileFlags(cmdCtx.Stderr, args)
	if err != nil {
		return err
	}
	return cmdCtx.withApp(func(ctx context.Context, app *bootstrap.App) error {
		rec, refreshErr := app.Profiles.Refresh(ctx)
		if refreshErr != nil {
			return refreshErr
		}
		status := app.Profiles.Status()
		if status.LastError != nil && !rec.IsAuthoritative() {
			cmdCtx.Logger.WarnContext(ctx, "profile backend unreachable; showing identity fields only",
				"error", status.LastError)
		}
		if opts.JSON {
			return printJSON(cmdCtx.Stdout, rec)
		}
		return printProfile(cmdCtx.Stdout, rec)
	})
}

// preferenceFlag collects repeated key=value pairs.
type preferenceFlag map[string]any

func (p preferenceFlag) String() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

// Set accepts key=value. Values that parse as JSON keep their type; anything else is a string.
func (p preferenceFlag) Set(raw string) error {
	key, value, ok := strings.Cut(raw, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return fmt.Errorf("expected key=value, got %q", raw)
	}
	var decoded any
	if err := json.Unmarshal([]byte(value), &decoded); err != nil {
		decoded = value
	}
	p[key] = decoded
	return nil
}

// unsetFlag records keys to remove; a nil preference value deletes the key.
type unsetFlag struct{ prefs preferenceFlag }

func (u unsetFlag) String() string { return "" }

func (u unsetFlag) Set(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("preference key is required")
	}
	u.prefs[key] = nil
	return nil
}

func parseUpdateProfileFlags(stderr io.Writer, args []string) (profile.Update, error) {
	fs := flag.NewFlagSet("update-profile", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var displayName string
	prefs := preferenceFlag{}
	fs.StringVar(&displayName, "display-name", "", "New display name")
	fs.Var(prefs, "pref", "Set a preference as key=value (repeatable)")
	fs.Var(unsetFlag{prefs: prefs}, "unset", "Remove a preference key (repeatable)")

	if err := fs.Parse(args); err != nil {
		return profile.Update{}, err
	}

	var upd profile.Update
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "display-name" {
			name := strings.TrimSpace(displayName)
			upd.DisplayName = &name
		}
	})
	if len(prefs) > 0 {
		upd.Preferences = prefs
	}
	if upd.IsEmpty() {
		return profile.Update{}, errors.New("nothing to update: pass --display-name, --pref or --unset")
	}
	return upd, nil
}

func runUpdateProfile(cmdCtx *commandContext, args []string) error {
	upd, err := parseUpdateProfileFlags(cmdCtx.Stderr, args)
	if err != nil {
		return err
	}
	return cmdCtx.withApp(func(ctx context.Context, app *bootstrap.App) error {
		rec, updateErr := app.Profiles.UpdateProfile(ctx, upd)
		if updateErr != nil {
			return updateErr
		}
		return printProfile(cmdCtx.Stdout, rec)
	})
}

func runWatch(cmdCtx *commandContext, _ []string) error {
	return cmdCtx.withApp(func(ctx context.Context, app *bootstrap.App) error {
		unsubSession := app.Sessions.OnIdentityChange(func(state domainauth.SessionState) {
			if err := printWatchSession(cmdCtx.Stdout, state); err != nil {
				cmdCtx.Logger.Warn("print session change failed", "error", err)
			}
		})
		defer unsubSession()

		unsubProfile := app.Profiles.OnProfileChange(func(rec profile.Record, present bool) {
			if err := printWatchProfile(cmdCtx.Stdout, rec, present); err != nil {
				cmdCtx.Logger.Warn("print profile change failed", "error", err)
			}
		})
		defer unsubProfile()

		app.Profiles.Start(ctx)
		<-ctx.Done()
		return nil
	})
}

func printWatchSession(w io.Writer, state domainauth.SessionState) error {
	stamp := time.Now().Format(time.TimeOnly)
	if id, ok := state.Present(); ok {
		return writef(w, "%s session #%d: signed in as %s\n", stamp, state.Generation, id.Email)
	}
	return writef(w, "%s session #%d: %s\n", stamp, state.Generation, state.Status)
}

func printWatchProfile(w io.Writer, rec profile.Record, present bool) error {
	stamp := time.Now().Format(time.TimeOnly)
	if !present {
		return writef(w, "%s profile: cleared\n", stamp)
	}
	return writef(w, "%s profile: %s <%s> [%s]\n", stamp, displayOr(rec.DisplayName, "-"), rec.Email, rec.Provenance)
}

func printProfile(w io.Writer, rec profile.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"User ID", rec.UserID},
		{"Email", rec.Email},
		{"Name", displayOr(rec.DisplayName, "-")},
		{"Verified", fmt.Sprintf("%t", rec.EmailVerified)},
		{"Source", string(rec.Provenance)},
	}
	if tier, ok := rec.Extra[profile.ExtraSubscriptionTier].(string); ok && tier != "" {
		rows = append(rows, [2]string{"Tier", tier})
	}
	if !rec.UpdatedAt.IsZero() {
		rows = append(rows, [2]string{"Updated", rec.UpdatedAt.Format(time.RFC3339)})
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(tw, "%s:\t%s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	if prefs, ok := rec.Extra[profile.ExtraPreferences].(map[string]any); ok && len(prefs) > 0 {
		raw, err := json.Marshal(prefs)
		if err != nil {
			return fmt.Errorf("encode preferences: %w", err)
		}
		if _, err := fmt.Fprintf(tw, "Preferences:\t%s\n", raw); err != nil {
			return err
		}
	}
	if !rec.IsAuthoritative() {
		if _, err := fmt.Fprintln(tw, "Note:\tprofile backend unavailable; fields come from the identity provider"); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func displayOr(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
