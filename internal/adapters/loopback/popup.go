// Package loopback receives federated sign-in redirects on a localhost listener, the way a
// browser popup would hand the authorization response back to the page that opened it.
package loopback

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/nicetouch/dashboard/internal/errors"
	"github.com/nicetouch/dashboard/internal/ports"
)

const (
	callbackPath      = "/callback"
	errorAccessDenied = "access_denied"
)

// Opener presents the authorization URL to the user, e.g. by launching a browser.
type Opener func(ctx context.Context, authURL string) error

// Config configures the loopback popup.
type Config struct {
	// Addr is the listen address; an ephemeral localhost port when empty.
	Addr    string
	Open    Opener
	Timeout time.Duration // default 5m
	Logger  *slog.Logger
}

// Popup implements ports.Popup with a single long-lived listener.
type Popup struct {
	listener net.Listener
	server   *http.Server
	open     Opener
	timeout  time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	pending chan ports.CallbackResult
}

// New binds the listener and starts serving callbacks. Call Close to release the port.
func New(cfg Config) (*Popup, error) {
	if cfg.Open == nil {
		return nil, errors.New("loopback: opener is required")
	}
	addr := cfg.Addr
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("loopback listen: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Popup{
		listener: ln,
		open:     cfg.Open,
		timeout:  timeout,
		logger:   logger.With("component", "loopback_popup"),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+callbackPath, p.handleCallback)
	p.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if serveErr := p.server.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			p.logger.Error("loopback server stopped", "error", serveErr)
		}
	}()
	return p, nil
}

// RedirectURL is the callback URL to register with the IdP.
func (p *Popup) RedirectURL() string {
	return "http://" + p.listener.Addr().String() + callbackPath
}

// Open presents authURL and blocks until the redirect arrives, the timeout passes or ctx ends.
// A user who denies consent or never completes the flow is reported as a cancelled popup.
func (p *Popup) Open(ctx context.Context, authURL string) (ports.CallbackResult, error) {
	ch := make(chan ports.CallbackResult, 1)
	p.mu.Lock()
	if p.pending != nil {
		p.mu.Unlock()
		return ports.CallbackResult{}, &apperrors.ProviderError{Code: "auth/cancelled-popup-request"}
	}
	p.pending = ch
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.pending = nil
		p.mu.Unlock()
	}()

	if err := p.open(ctx, authURL); err != nil {
		return ports.CallbackResult{}, fmt.Errorf("open authorization url: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	select {
	case res := <-ch:
		if res.Error == errorAccessDenied {
			return res, &apperrors.ProviderError{Code: "auth/popup-closed-by-user", Message: "consent denied"}
		}
		return res, nil
	case <-ctx.Done():
		return ports.CallbackResult{}, &apperrors.ProviderError{
			Code:    "auth/popup-closed-by-user",
			Message: "sign-in window was not completed",
			Cause:   ctx.Err(),
		}
	}
}

func (p *Popup) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res := ports.CallbackResult{
		Code:  q.Get("code"),
		State: q.Get("state"),
		Error: q.Get("error"),
	}

	p.mu.Lock()
	ch := p.pending
	p.mu.Unlock()
	if ch == nil {
		http.Error(w, "no sign-in in progress", http.StatusGone)
		return
	}
	select {
	case ch <- res:
	default:
		http.Error(w, "callback already received", http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	msg := "Signed in. You can close this window."
	if res.Error != "" {
		msg = "Sign-in failed: " + html.EscapeString(res.Error)
	}
	_, _ = fmt.Fprintf(w, "<!doctype html><title>Dashboard</title><p>%s</p>", msg)
}

// Close stops the listener.
func (p *Popup) Close(ctx context.Context) error {
	return p.server.Shutdown(ctx)
}
