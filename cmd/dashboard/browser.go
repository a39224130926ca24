package main

import (
	"context"
	"io"
	"os/exec"
	"runtime"
)

// browserOpener prints the authorization URL and tries to launch the system browser.
// A failed launch is not an error; the user can follow the printed URL.
func browserOpener(w io.Writer) func(ctx context.Context, authURL string) error {
	return func(ctx context.Context, authURL string) error {
		if err := writef(w, "Open this URL to continue:\n\n  %s\n\n", authURL); err != nil {
			return err
		}
		name, args := browserCommand(runtime.GOOS)
		if name == "" {
			return nil
		}
		cmd := exec.CommandContext(ctx, name, append(args, authURL)...)
		if err := cmd.Start(); err != nil {
			return nil //nolint:nilerr // the URL was printed; launching a browser is best effort
		}
		go func() { _ = cmd.Wait() }()
		return nil
	}
}

func browserCommand(goos string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler"}
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", nil
	default:
		return "", nil
	}
}
