// Command dashboard signs a user in, keeps their profile in sync with the backend,
// and manages linked credentials and billing from the terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/nicetouch/dashboard/config"
	"github.com/nicetouch/dashboard/internal/bootstrap"
	apperrors "github.com/nicetouch/dashboard/internal/errors"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type buildFn func(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger, opts bootstrap.Options) (*bootstrap.App, error)

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	build  buildFn
	opener func(ctx context.Context, authURL string) error
}

const resolveTimeout = 15 * time.Second

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if len(os.Args) < 2 {
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(os.Stderr); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}
	logger = bootstrap.InitLogger(os.Stderr, cfg.Observability, cfg.IsDev)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmdCtx := &commandContext{
		Ctx:    ctx,
		Logger: logger,
		Config: cfg,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		build:  bootstrap.Build,
	}
	cmdCtx.opener = browserOpener(cmdCtx.Stderr)

	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		if writeErr := writeln(os.Stderr, describeError(runErr)); writeErr != nil {
			logger.Error("print command error failed", "error", writeErr)
		}
		logger.DebugContext(ctx, "command failed", "command", cmdName, "error", runErr)
		stop()
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"login": {
			name:        "login",
			description: "Sign in with email and password (password read from stdin)",
			run:         runLogin,
		},
		"login-google": {
			name:        "login-google",
			description: "Sign in with Google in the browser",
			run:         runLoginGoogle,
		},
		"signup": {
			name:        "signup",
			description: "Create an account with email and password",
			run:         runSignup,
		},
		"logout": {
			name:        "logout",
			description: "Sign out and forget the persisted session",
			run:         runLogout,
		},
		"whoami": {
			name:        "whoami",
			description: "Show the signed-in identity",
			run:         runWhoami,
		},
		"profile": {
			name:        "profile",
			description: "Reconcile and show the profile of the signed-in user",
			run:         runProfile,
		},
		"update-profile": {
			name:        "update-profile",
			description: "Update display name or preferences",
			run:         runUpdateProfile,
		},
		"watch": {
			name:        "watch",
			description: "Follow session and profile changes until interrupted",
			run:         runWatch,
		},
		"methods": {
			name:        "methods",
			description: "List the sign-in methods linked to an email",
			run:         runMethods,
		},
		"link-password": {
			name:        "link-password",
			description: "Add a password to an account that signs in with Google",
			run:         runLinkPassword,
		},
		"change-password": {
			name:        "change-password",
			description: "Change the password of the signed-in user",
			run:         runChangePassword,
		},
		"verify-email": {
			name:        "verify-email",
			description: "Send a verification email to the signed-in user",
			run:         runVerifyEmail,
		},
		"billing": {
			name:        "billing",
			description: "Show billing or open the portal/checkout (overview|portal|checkout)",
			run:         runBilling,
		},
		"migrate": {
			name:        "migrate",
			description: "Run profile database migrations",
			run:         runMigrate,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: dashboard <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(w, "Available commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writef(w, "  %-16s %s\n", name, cmds[name].description); err != nil {
			return err
		}
	}
	return nil
}

// withApp builds and starts the services, waits for the first identity notification,
// runs fn and releases everything.
func (c *commandContext) withApp(fn func(ctx context.Context, app *bootstrap.App) error) (err error) {
	app, err := c.build(c.Ctx, &c.Config, c.Logger, bootstrap.Options{Opener: c.opener})
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer func() {
		if closeErr := app.Close(context.WithoutCancel(c.Ctx)); closeErr != nil {
			c.Logger.Warn("shutdown failed", "error", closeErr)
		}
	}()

	if startErr := app.Start(c.Ctx); startErr != nil {
		return fmt.Errorf("start session manager: %w", startErr)
	}
	resolveCtx, cancel := context.WithTimeout(c.Ctx, resolveTimeout)
	defer cancel()
	if _, waitErr := app.Sessions.WaitResolved(resolveCtx); waitErr != nil {
		return fmt.Errorf("resolve session: %w", waitErr)
	}
	return fn(c.Ctx, app)
}

// describeError renders a normalized error for the terminal.
func describeError(err error) string {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return "error: " + err.Error()
	}
	msg := appErr.Message
	switch {
	case apperrors.IsReauthRequired(err):
		msg += " (run `dashboard login` again)"
	case apperrors.IsNetworkUnavailable(err), apperrors.IsBackendUnavailable(err):
		msg += " (check your connection and retry)"
	}
	if field := apperrors.GetField(err); field != "" {
		msg = fmt.Sprintf("%s [%s]", msg, field)
	}
	return fmt.Sprintf("error (%s): %s", appErr.Code, msg)
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	_, err := fmt.Fprintln(w, args...)
	return err
}
