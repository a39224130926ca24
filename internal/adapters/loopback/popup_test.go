package loopback

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/nicetouch/dashboard/internal/errors"
	"github.com/nicetouch/dashboard/internal/ports"
)

// redirectingOpener plays the IdP: it calls back with the given query once the URL is opened.
func redirectingOpener(t *testing.T, p **Popup, query url.Values) Opener {
	return func(_ context.Context, authURL string) error {
		assert.Equal(t, "https://idp/auth", authURL)
		go func() {
			resp, err := http.Get((*p).RedirectURL() + "?" + query.Encode())
			if err == nil {
				_ = resp.Body.Close()
			}
		}()
		return nil
	}
}

func newPopup(t *testing.T, query url.Values, timeout time.Duration) *Popup {
	t.Helper()
	var p *Popup
	p, err := New(Config{Open: redirectingOpener(t, &p, query), Timeout: timeout})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p
}

func TestPopup_ReceivesCallback(t *testing.T) {
	p := newPopup(t, url.Values{"code": {"abc"}, "state": {"st"}}, time.Second)
	assert.Contains(t, p.RedirectURL(), "http://127.0.0.1:")

	res, err := p.Open(context.Background(), "https://idp/auth")
	require.NoError(t, err)
	assert.Equal(t, ports.CallbackResult{Code: "abc", State: "st"}, res)
}

func TestPopup_AccessDeniedIsCancelled(t *testing.T) {
	p := newPopup(t, url.Values{"error": {"access_denied"}}, time.Second)

	_, err := p.Open(context.Background(), "https://idp/auth")
	require.Error(t, err)
	assert.True(t, apperrors.IsPopupCancelled(apperrors.NormalizeProvider(err)))
}

func TestPopup_OtherErrorsAreReturnedInResult(t *testing.T) {
	p := newPopup(t, url.Values{"error": {"server_error"}}, time.Second)

	res, err := p.Open(context.Background(), "https://idp/auth")
	require.NoError(t, err)
	assert.Equal(t, "server_error", res.Error)
}

func TestPopup_TimeoutIsCancelled(t *testing.T) {
	p, err := New(Config{
		Open:    func(context.Context, string) error { return nil },
		Timeout: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	defer p.Close(context.Background())

	_, err = p.Open(context.Background(), "https://idp/auth")
	require.Error(t, err)
	assert.True(t, apperrors.IsPopupCancelled(apperrors.NormalizeProvider(err)))
}

func TestPopup_CallbackWithoutPendingFlow(t *testing.T) {
	p, err := New(Config{Open: func(context.Context, string) error { return nil }})
	require.NoError(t, err)
	defer p.Close(context.Background())

	resp, err := http.Get(p.RedirectURL() + "?code=x")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusGone, resp.StatusCode)
}

func TestNew_RequiresOpener(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}
