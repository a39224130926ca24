package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"strings"

	"github.com/nicetouch/dashboard/internal/bootstrap"
	"github.com/nicetouch/dashboard/internal/service"
)

func parseEmailFlag(name string, stderr io.Writer, args []string) (string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	var email string
	fs.StringVar(&email, "email", "", "Email address (defaults to the signed-in user)")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	return strings.TrimSpace(email), nil
}

func runMethods(cmdCtx *commandContext, args []string) error {
	email, err := parseEmailFlag("methods", cmdCtx.Stderr, args)
	if err != nil {
		return err
	}
	return cmdCtx.withApp(func(ctx context.Context, app *bootstrap.App) error {
		if email == "" {
			id, ok := app.Sessions.Current().Present()
			if !ok {
				return service.ErrNoIdentity
			}
			email = id.Email
		}
		methods, listErr := app.Credentials.ListSignInMethods(ctx, email)
		if listErr != nil {
			return listErr
		}
		if len(methods) == 0 {
			return writef(cmdCtx.Stdout, "No sign-in methods for %s\n", email)
		}
		for _, m := range methods {
			if writeErr := writeln(cmdCtx.Stdout, m); writeErr != nil {
				return writeErr
			}
		}
		return nil
	})
}

func runLinkPassword(cmdCtx *commandContext, args []string) error {
	email, err := parseEmailFlag("link-password", cmdCtx.Stderr, args)
	if err != nil {
		return err
	}
	password, err := readSecret(cmdCtx.Stdin, cmdCtx.Stderr, "New password: ")
	if err != nil {
		return err
	}
	return cmdCtx.withApp(func(ctx context.Context, app *bootstrap.App) error {
		id, ok := app.Sessions.Current().Present()
		if !ok {
			return service.ErrNoIdentity
		}
		if linkErr := app.Credentials.LinkPasswordCredential(ctx, id, email, password); linkErr != nil {
			return linkErr
		}
		return writeln(cmdCtx.Stdout, "Password sign-in linked.")
	})
}

func runChangePassword(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("change-password", flag.ContinueOnError)
	fs.SetOutput(cmdCtx.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return errors.New("change-password reads the new password from stdin and takes no arguments")
	}
	password, err := readSecret(cmdCtx.Stdin, cmdCtx.Stderr, "New password: ")
	if err != nil {
		return err
	}
	return cmdCtx.withApp(func(ctx context.Context, app *bootstrap.App) error {
		if changeErr := app.Credentials.ChangePassword(ctx, password); changeErr != nil {
			return changeErr
		}
		return writeln(cmdCtx.Stdout, "Password changed.")
	})
}

func runVerifyEmail(cmdCtx *commandContext, _ []string) error {
	return cmdCtx.withApp(func(ctx context.Context, app *bootstrap.App) error {
		if sendErr := app.Credentials.SendVerificationEmail(ctx); sendErr != nil {
			return sendErr
		}
		return writeln(cmdCtx.Stdout, "Verification email sent.")
	})
}
