// Package backend talks to the application's HTTP API for profile and billing data.
// Every request carries a freshly minted bearer token of the identity it is made for.
// Responses use the {"status": "...", "data": {...}} envelope; payloads are located
// with JMESPath expressions so deployments with a different envelope can reconfigure them.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/google/uuid"
	jmespath "github.com/jmespath-community/go-jmespath"
	"golang.org/x/net/publicsuffix"

	domainauth "github.com/nicetouch/dashboard/internal/domain/auth"
	apperrors "github.com/nicetouch/dashboard/internal/errors"
)

const (
	statusSuccess   = "success"
	maxErrorBody    = 64 << 10
	requestIDHeader = "X-Request-ID"
)

// Config configures the backend client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration // default 15s
	HTTPClient *http.Client
	// UserPath is the profile resource; defaults to /users/me.
	UserPath string
	// RecordExpr locates the profile object in a response; defaults to data.user.
	RecordExpr string
	Logger     *slog.Logger
}

// Client implements ports.ProfileBackend and ports.BillingBackend.
type Client struct {
	baseURL    string
	userPath   string
	recordExpr string
	http       *http.Client
	logger     *slog.Logger
}

// NewClient builds a backend client with a cookie jar so session cookies set by the API are replayed.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("backend base url is required")
	}
	recordExpr := fallbackString(strings.TrimSpace(cfg.RecordExpr), "data.user")
	if _, err := jmespath.Compile(recordExpr); err != nil {
		return nil, fmt.Errorf("invalid record expression %q: %w", recordExpr, err)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		hc = &http.Client{Timeout: timeout, Jar: jar}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		userPath:   "/" + strings.Trim(fallbackString(cfg.UserPath, "/users/me"), "/"),
		recordExpr: recordExpr,
		http:       hc,
		logger:     logger.With("component", "backend_client"),
	}, nil
}

func fallbackString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// do sends one request and returns the decoded JSON body. A body whose envelope status is
// present and not "success" is reported as a backend failure.
func (c *Client) do(ctx context.Context, id domainauth.Identity, method, path string, in any) (any, error) {
	token, err := id.Token(ctx)
	if err != nil {
		return nil, apperrors.NormalizeProvider(err)
	}

	var body io.Reader
	if in != nil {
		raw, marshalErr := json.Marshal(in)
		if marshalErr != nil {
			return nil, fmt.Errorf("encode request: %w", marshalErr)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, reqID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.BackendUnavailable(err, "Backend request failed")
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "backend request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", reqID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.handleErrorResponse(resp)
	}

	var doc any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, apperrors.BackendUnavailable(err, "Backend returned an invalid response")
	}
	if status, ok := envelopeStatus(doc); ok && status != statusSuccess {
		return nil, apperrors.BackendUnavailable(nil, "Backend reported status "+status)
	}
	return doc, nil
}

func envelopeStatus(doc any) (string, bool) {
	m, ok := doc.(map[string]any)
	if !ok {
		return "", false
	}
	status, ok := m["status"].(string)
	return status, ok
}

// handleErrorResponse maps HTTP failures into the error taxonomy.
func (c *Client) handleErrorResponse(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := errorMessage(raw)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NotFound(msg)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apperrors.New(apperrors.ErrCodeReauthRequired, msg)
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return apperrors.Validation(msg)
	case resp.StatusCode == http.StatusConflict:
		return apperrors.New(apperrors.ErrCodeConflict, msg)
	default:
		return apperrors.BackendUnavailable(fmt.Errorf("status %d: %s", resp.StatusCode, msg), "Backend request failed")
	}
}

// errorMessage extracts "message" (or "error") from a JSON error body.
func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return strings.TrimSpace(string(raw))
	}
	return fallbackString(body.Message, body.Error)
}

// search evaluates expr against doc; a nil doc yields nil.
func search(expr string, doc any) (any, error) {
	if doc == nil {
		return nil, nil
	}
	v, err := jmespath.Search(expr, doc)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeInternal, "evaluate %q", expr)
	}
	return v, nil
}

// decode converts a generic JSON value into out.
func decode(v, out any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperrors.BackendUnavailable(err, "Backend returned an unexpected payload")
	}
	return nil
}
