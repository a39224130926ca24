package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/nicetouch/dashboard/internal/bootstrap"
	domainauth "github.com/nicetouch/dashboard/internal/domain/auth"
)

type credentialOptions struct {
	Email    string
	Password string
}

func parseCredentialFlags(name string, stderr io.Writer, stdin io.Reader, args []string) (credentialOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts credentialOptions
	fs.StringVar(&opts.Email, "email", "", "Account email address")

	if err := fs.Parse(args); err != nil {
		return credentialOptions{}, err
	}
	opts.Email = strings.TrimSpace(opts.Email)
	if opts.Email == "" {
		return credentialOptions{}, errors.New("--email is required")
	}

	password, err := readSecret(stdin, stderr, "Password: ")
	if err != nil {
		return credentialOptions{}, err
	}
	opts.Password = password
	return opts, nil
}

// readSecret reads one line from r. The prompt goes to w so piped stdout stays clean.
func readSecret(r io.Reader, w io.Writer, prompt string) (string, error) {
	if err := writef(w, "%s", prompt); err != nil {
		return "", fmt.Errorf("print prompt: %w", err)
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("a password is required on stdin")
	}
	return line, nil
}

func runLogin(cmdCtx *commandContext, args []string) error {
	opts, err := parseCredentialFlags("login", cmdCtx.Stderr, cmdCtx.Stdin, args)
	if err != nil {
		return err
	}
	return cmdCtx.withApp(func(ctx context.Context, app *bootstrap.App) error {
		if loginErr := app.Sessions.LoginWithCredentials(ctx, opts.Email, opts.Password); loginErr != nil {
			return loginErr
		}
		return printSignedIn(cmdCtx.Stdout, app)
	})
}

func runSignup(cmdCtx *commandContext, args []string) error {
	opts, err := parseCredentialFlags("signup", cmdCtx.Stderr, cmdCtx.Stdin, args)
	if err != nil {
		return err
	}
	return cmdCtx.withApp(func(ctx context.Context, app *bootstrap.App) error {
		if signupErr := app.Sessions.Signup(ctx, opts.Email, opts.Password); signupErr != nil {
			return signupErr
		}
		return printSignedIn(cmdCtx.Stdout, app)
	})
}

func runLoginGoogle(cmdCtx *commandContext, _ []string) error {
	return cmdCtx.withApp(func(ctx context.Context, app *bootstrap.App) error {
		if loginErr := app.Sessions.LoginWithFederatedProvider(ctx); loginErr != nil {
			return loginErr
		}
		return printSignedIn(cmdCtx.Stdout, app)
	})
}

func runLogout(cmdCtx *commandContext, _ []string) error {
	return cmdCtx.withApp(func(ctx context.Context, app *bootstrap.App) error {
		if logoutErr := app.Sessions.Logout(ctx); logoutErr != nil {
			return logoutErr
		}
		return writeln(cmdCtx.Stdout, "Signed out.")
	})
}

func runWhoami(cmdCtx *commandContext, _ []string) error {
	return cmdCtx.withApp(func(_ context.Context, app *bootstrap.App) error {
		return printSessionState(cmdCtx.Stdout, app.Sessions.Current())
	})
}

func printSignedIn(w io.Writer, app *bootstrap.App) error {
	id, ok := app.Sessions.Current().Present()
	if !ok {
		return writeln(w, "Sign-in accepted; waiting for the session to update.")
	}
	return writef(w, "Signed in as %s (%s)\n", id.Email, id.ID)
}

func printSessionState(w io.Writer, state domainauth.SessionState) error {
	id, ok := state.Present()
	if !ok {
		return writeln(w, "Not signed in.")
	}
	verified := "no"
	if id.EmailVerified {
		verified = "yes"
	}
	if err := writef(w, "User ID:   %s\nEmail:     %s\nVerified:  %s\n", id.ID, id.Email, verified); err != nil {
		return err
	}
	if id.DisplayName != "" {
		if err := writef(w, "Name:      %s\n", id.DisplayName); err != nil {
			return err
		}
	}
	return writef(w, "Providers: %s\n", strings.Join(id.Providers, ", "))
}
