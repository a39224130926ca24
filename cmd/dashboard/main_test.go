package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicetouch/dashboard/config"
	"github.com/nicetouch/dashboard/internal/bootstrap"
	domainauth "github.com/nicetouch/dashboard/internal/domain/auth"
	"github.com/nicetouch/dashboard/internal/domain/billing"
	"github.com/nicetouch/dashboard/internal/domain/profile"
	apperrors "github.com/nicetouch/dashboard/internal/errors"
)

func testCommandContext(t *testing.T, apiURL, stdin string) (*commandContext, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	return &commandContext{
		Ctx:    context.Background(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config: config.AppConfig{
			IsDev: true,
			Identity: config.IdentityConfig{
				Mode: config.IdentityModeDev,
				DevAuth: config.DevAuthConfig{
					Users: []config.DevUser{{Email: "dev@example.com", Password: "devpassword", DisplayName: "Dev User"}},
				},
			},
			Backend: config.BackendConfig{Mode: config.ProfileBackendHTTP, APIURL: apiURL, Timeout: time.Second},
			Session: config.SessionConfig{Persistence: config.SessionPersistenceNone},
		},
		Stdin:  strings.NewReader(stdin),
		Stdout: &out,
		Stderr: io.Discard,
		build:  bootstrap.Build,
	}, &out
}

func TestCommandsHaveUsage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printUsage(&buf))
	for name, cmd := range commands() {
		assert.Equal(t, name, cmd.name)
		assert.NotNil(t, cmd.run, name)
		assert.Contains(t, buf.String(), name)
	}
}

func TestRunLogin(t *testing.T) {
	cmdCtx, out := testCommandContext(t, "http://127.0.0.1:1/api", "devpassword\n")
	require.NoError(t, runLogin(cmdCtx, []string{"--email", "dev@example.com"}))
	assert.Contains(t, out.String(), "Signed in as dev@example.com")
}

func TestRunLogin_WrongPassword(t *testing.T) {
	cmdCtx, _ := testCommandContext(t, "http://127.0.0.1:1/api", "wrong\n")
	err := runLogin(cmdCtx, []string{"--email", "dev@example.com"})
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidCredentials(err))
}

func TestRunLogin_RequiresEmailAndPassword(t *testing.T) {
	cmdCtx, _ := testCommandContext(t, "http://127.0.0.1:1/api", "pw\n")
	require.Error(t, runLogin(cmdCtx, nil))

	cmdCtx, _ = testCommandContext(t, "http://127.0.0.1:1/api", "")
	err := runLogin(cmdCtx, []string{"--email", "dev@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password")
}

func TestRunWhoami_SignedOut(t *testing.T) {
	cmdCtx, out := testCommandContext(t, "http://127.0.0.1:1/api", "")
	require.NoError(t, runWhoami(cmdCtx, nil))
	assert.Equal(t, "Not signed in.\n", out.String())
}

func TestRunProfile_SignedOutIsReauth(t *testing.T) {
	cmdCtx, _ := testCommandContext(t, "http://127.0.0.1:1/api", "")
	err := runProfile(cmdCtx, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsReauthRequired(err))
}

func TestRunBilling_RequiresSignIn(t *testing.T) {
	cmdCtx, _ := testCommandContext(t, "http://127.0.0.1:1/api", "")
	err := runBilling(cmdCtx, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsReauthRequired(err))
}

func TestParseBillingFlags(t *testing.T) {
	opts, err := parseBillingFlags(io.Discard, nil)
	require.NoError(t, err)
	assert.Equal(t, "overview", opts.Action)

	opts, err = parseBillingFlags(io.Discard, []string{"checkout", "--price", "price_1", "--open"})
	require.NoError(t, err)
	assert.Equal(t, "checkout", opts.Action)
	assert.Equal(t, "price_1", opts.Checkout.PriceID)
	assert.True(t, opts.Open)

	_, err = parseBillingFlags(io.Discard, []string{"checkout"})
	require.Error(t, err)

	_, err = parseBillingFlags(io.Discard, []string{"refund"})
	require.Error(t, err)

	opts, err = parseBillingFlags(io.Discard, []string{"--return-url", "https://app/account"})
	require.NoError(t, err)
	assert.Equal(t, "overview", opts.Action)
	assert.Equal(t, "https://app/account", opts.ReturnURL)
}

func TestParseUpdateProfileFlags(t *testing.T) {
	upd, err := parseUpdateProfileFlags(io.Discard, []string{
		"--display-name", " Ann ",
		"--pref", "theme=dark",
		"--pref", "pageSize=50",
		"--pref", "beta=true",
		"--unset", "legacy",
	})
	require.NoError(t, err)
	require.NotNil(t, upd.DisplayName)
	assert.Equal(t, "Ann", *upd.DisplayName)
	assert.Equal(t, map[string]any{
		"theme":    "dark",
		"pageSize": float64(50),
		"beta":     true,
		"legacy":   nil,
	}, upd.Preferences)

	upd, err = parseUpdateProfileFlags(io.Discard, []string{"--display-name", ""})
	require.NoError(t, err)
	require.NotNil(t, upd.DisplayName, "an explicit empty name clears it")
	assert.Nil(t, upd.Preferences)

	_, err = parseUpdateProfileFlags(io.Discard, nil)
	require.Error(t, err)

	_, err = parseUpdateProfileFlags(io.Discard, []string{"--pref", "novalue"})
	require.Error(t, err)
}

func TestReadSecret(t *testing.T) {
	var prompt bytes.Buffer
	got, err := readSecret(strings.NewReader("s3cret\r\nignored\n"), &prompt, "Password: ")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)
	assert.Equal(t, "Password: ", prompt.String())

	got, err = readSecret(strings.NewReader("no-newline"), io.Discard, "")
	require.NoError(t, err)
	assert.Equal(t, "no-newline", got)

	_, err = readSecret(strings.NewReader("\n"), io.Discard, "")
	require.Error(t, err)
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{errors.New("boom"), "error: boom"},
		{apperrors.New(apperrors.ErrCodeReauthRequired, "Session expired"), "error (reauth_required): Session expired (run `dashboard login` again)"},
		{apperrors.ValidationField("email", "Email is required"), "error (validation): Email is required [email]"},
		{apperrors.BackendUnavailable(errors.New("x"), "Backend down"), "error (backend_unavailable): Backend down (check your connection and retry)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, describeError(tt.err))
	}
}

func TestPrintProfile(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printProfile(&buf, profile.Record{
		UserID:     "u1",
		Email:      "a@x.com",
		Provenance: profile.ProvenanceLocalFallback,
		Extra:      map[string]any{profile.ExtraPreferences: map[string]any{"theme": "dark"}},
	}))
	out := buf.String()
	assert.Contains(t, out, "u1")
	assert.Contains(t, out, "local-fallback")
	assert.Contains(t, out, `{"theme":"dark"}`)
	assert.Contains(t, out, "profile backend unavailable")

	buf.Reset()
	require.NoError(t, printProfile(&buf, profile.Record{
		UserID:     "u1",
		Email:      "a@x.com",
		Provenance: profile.ProvenanceSynced,
		Extra:      map[string]any{profile.ExtraSubscriptionTier: "pro"},
	}))
	assert.Contains(t, buf.String(), "pro")
	assert.NotContains(t, buf.String(), "unavailable")
}

func TestPrintSessionState(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printSessionState(&buf, domainauth.SessionState{Status: domainauth.StatusAbsent, Generation: 1}))
	assert.Equal(t, "Not signed in.\n", buf.String())

	buf.Reset()
	require.NoError(t, printSessionState(&buf, domainauth.SessionState{
		Status:     domainauth.StatusPresent,
		Generation: 2,
		Identity: &domainauth.Identity{
			ID:            "u1",
			Email:         "a@x.com",
			EmailVerified: true,
			Providers:     []string{"password", "google.com"},
		},
	}))
	assert.Contains(t, buf.String(), "Verified:  yes")
	assert.Contains(t, buf.String(), "password, google.com")
}

func TestPrintBillingOverview(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printBillingOverview(&buf, billing.Overview{}))
	assert.Contains(t, buf.String(), "free")
	assert.Contains(t, buf.String(), "none")

	buf.Reset()
	require.NoError(t, printBillingOverview(&buf, billing.Overview{
		Tier: billing.TierPro,
		Subscription: &billing.Subscription{
			ID:                "sub_1",
			Status:            "active",
			CurrentPeriodEnd:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			CancelAtPeriodEnd: true,
		},
		Customer: &billing.Customer{ID: "cus_1", Email: "a@x.com"},
	}))
	out := buf.String()
	assert.Contains(t, out, "sub_1 (active)")
	assert.Contains(t, out, "Ends:")
	assert.Contains(t, out, "2024-01-01")
	assert.Contains(t, out, "cus_1 <a@x.com>")
}

func TestBrowserCommand(t *testing.T) {
	name, _ := browserCommand("linux")
	assert.Equal(t, "xdg-open", name)
	name, _ = browserCommand("darwin")
	assert.Equal(t, "open", name)
	name, _ = browserCommand("plan9")
	assert.Empty(t, name)
}
