package service

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/nicetouch/dashboard/internal/domain/auth"
	apperrors "github.com/nicetouch/dashboard/internal/errors"
	fakes "github.com/nicetouch/dashboard/internal/mocks/auth"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStartedSessionManager(t *testing.T) (*SessionManager, *fakes.FakeIdentityProvider) {
	t.Helper()
	provider := fakes.NewFakeIdentityProvider()
	sm := NewSessionManager(SessionManagerOptions{Provider: provider, Logger: discardLogger()})
	require.NoError(t, sm.Start(context.Background()))
	t.Cleanup(sm.Close)
	return sm, provider
}

func collectStates(sm *SessionManager) <-chan domainauth.SessionState {
	ch := make(chan domainauth.SessionState, 64)
	sm.OnIdentityChange(func(s domainauth.SessionState) { ch <- s })
	return ch
}

func recvState(t *testing.T, ch <-chan domainauth.SessionState) domainauth.SessionState {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session state")
		return domainauth.SessionState{}
	}
}

func assertNoState(t *testing.T, ch <-chan domainauth.SessionState) {
	t.Helper()
	select {
	case s := <-ch:
		t.Fatalf("unexpected session state: %+v", s)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSessionManager_UnresolvedUntilFirstNotification(t *testing.T) {
	sm, provider := newStartedSessionManager(t)

	assert.Equal(t, domainauth.StatusUnresolved, sm.Current().Status)
	assert.Zero(t, sm.Current().Generation)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := sm.WaitResolved(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	provider.Emit(nil)

	state, err := sm.WaitResolved(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domainauth.StatusAbsent, state.Status)
	assert.Equal(t, uint64(1), state.Generation)
}

func TestSessionManager_SingleUpstreamSubscription(t *testing.T) {
	sm, provider := newStartedSessionManager(t)

	for range 5 {
		sm.OnIdentityChange(func(domainauth.SessionState) {})
	}

	assert.Equal(t, 1, provider.SubscribeCalls())
	assert.Equal(t, 1, provider.ListenerCount())
}

func TestSessionManager_DeliversInProviderOrder(t *testing.T) {
	sm, provider := newStartedSessionManager(t)
	ch := collectStates(sm)

	provider.Emit(fakes.StaticIdentity("u1", "a@x.com"))
	provider.Emit(nil)
	provider.Emit(fakes.StaticIdentity("u2", "b@x.com"))
	provider.Emit(fakes.StaticIdentity("u3", "c@x.com"))

	want := []string{"u1", "", "u2", "u3"}
	for i, wantID := range want {
		s := recvState(t, ch)
		assert.Equal(t, uint64(i+1), s.Generation)
		id, ok := s.Present()
		if wantID == "" {
			assert.False(t, ok)
			assert.Equal(t, domainauth.StatusAbsent, s.Status)
			continue
		}
		require.True(t, ok)
		assert.Equal(t, wantID, id.ID)
	}
	assertNoState(t, ch)

	current, ok := sm.Current().Present()
	require.True(t, ok)
	assert.Equal(t, "u3", current.ID)
}

func TestSessionManager_CurrentMatchesLatestNotification(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := range 20 {
		sm, provider := newStartedSessionManager(t)

		var last *domainauth.Identity
		n := 1 + rng.Intn(15)
		for i := range n {
			if rng.Intn(3) == 0 {
				last = nil
			} else {
				last = fakes.StaticIdentity("u"+string(rune('a'+i)), "x@x.com")
			}
			provider.Emit(last)
		}

		state := sm.Current()
		assert.Equal(t, uint64(n), state.Generation, "run %d", run)
		if last == nil {
			assert.Equal(t, domainauth.StatusAbsent, state.Status, "run %d", run)
		} else {
			id, ok := state.Present()
			require.True(t, ok, "run %d", run)
			assert.Equal(t, last.ID, id.ID, "run %d", run)
		}
	}
}

func TestSessionManager_LateListenerReceivesCurrentState(t *testing.T) {
	sm, provider := newStartedSessionManager(t)
	provider.Emit(fakes.StaticIdentity("u1", "a@x.com"))
	_, err := sm.WaitResolved(context.Background())
	require.NoError(t, err)

	ch := collectStates(sm)
	first := recvState(t, ch)
	id, ok := first.Present()
	require.True(t, ok)
	assert.Equal(t, "u1", id.ID)
	assert.Equal(t, uint64(1), first.Generation)

	provider.Emit(nil)
	second := recvState(t, ch)
	assert.Equal(t, domainauth.StatusAbsent, second.Status)
	assert.Equal(t, uint64(2), second.Generation)
	assertNoState(t, ch)
}

func TestSessionManager_UnsubscribeStopsDelivery(t *testing.T) {
	sm, provider := newStartedSessionManager(t)

	ch := make(chan domainauth.SessionState, 8)
	unsub := sm.OnIdentityChange(func(s domainauth.SessionState) { ch <- s })

	provider.Emit(nil)
	recvState(t, ch)

	unsub()
	provider.Emit(fakes.StaticIdentity("u1", "a@x.com"))

	// A second listener proves the event was dispatched.
	other := collectStates(sm)
	recvState(t, other)
	assertNoState(t, ch)
}

func TestSessionManager_ListenerPanicDoesNotStopDispatch(t *testing.T) {
	sm, provider := newStartedSessionManager(t)
	sm.OnIdentityChange(func(domainauth.SessionState) { panic("boom") })
	ch := collectStates(sm)

	provider.Emit(nil)
	provider.Emit(fakes.StaticIdentity("u1", "a@x.com"))

	assert.Equal(t, uint64(1), recvState(t, ch).Generation)
	assert.Equal(t, uint64(2), recvState(t, ch).Generation)
}

func TestSessionManager_StartTwice(t *testing.T) {
	sm, _ := newStartedSessionManager(t)
	err := sm.Start(context.Background())
	require.Error(t, err)
}

func TestSessionManager_CloseUnsubscribes(t *testing.T) {
	provider := fakes.NewFakeIdentityProvider()
	sm := NewSessionManager(SessionManagerOptions{Provider: provider, Logger: discardLogger()})
	require.NoError(t, sm.Start(context.Background()))
	require.Equal(t, 1, provider.ListenerCount())

	sm.Close()
	assert.Equal(t, 0, provider.ListenerCount())

	// Close is idempotent.
	sm.Close()
}

func TestSessionManager_WaitResolvedBeforeStart(t *testing.T) {
	sm := NewSessionManager(SessionManagerOptions{Provider: fakes.NewFakeIdentityProvider()})
	_, err := sm.WaitResolved(context.Background())
	require.Error(t, err)
}

func TestSessionManager_LoginDoesNotTouchState(t *testing.T) {
	sm, provider := newStartedSessionManager(t)

	err := sm.LoginWithCredentials(context.Background(), "a@x.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, 1, provider.CallCount("SignInWithCredentials"))
	assert.Equal(t, domainauth.StatusUnresolved, sm.Current().Status)
}

func TestSessionManager_ErrorNormalization(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(p *fakes.FakeIdentityProvider, err error)
		call     func(sm *SessionManager) error
		provider error
		want     apperrors.ErrorCode
	}{
		{
			name: "wrong password",
			setup: func(p *fakes.FakeIdentityProvider, err error) {
				p.SignInWithCredentialsFunc = func(context.Context, string, string) error { return err }
			},
			call: func(sm *SessionManager) error {
				return sm.LoginWithCredentials(context.Background(), "a@x.com", "bad")
			},
			provider: &apperrors.ProviderError{Code: "auth/wrong-password"},
			want:     apperrors.ErrCodeInvalidCredentials,
		},
		{
			name: "rate limited",
			setup: func(p *fakes.FakeIdentityProvider, err error) {
				p.SignInWithCredentialsFunc = func(context.Context, string, string) error { return err }
			},
			call: func(sm *SessionManager) error {
				return sm.LoginWithCredentials(context.Background(), "a@x.com", "bad")
			},
			provider: &apperrors.ProviderError{Code: "TOO_MANY_ATTEMPTS_TRY_LATER : Access disabled"},
			want:     apperrors.ErrCodeRateLimited,
		},
		{
			name: "popup cancelled",
			setup: func(p *fakes.FakeIdentityProvider, err error) {
				p.SignInWithFederatedFunc = func(context.Context) error { return err }
			},
			call: func(sm *SessionManager) error {
				return sm.LoginWithFederatedProvider(context.Background())
			},
			provider: &apperrors.ProviderError{Code: "auth/popup-closed-by-user"},
			want:     apperrors.ErrCodePopupCancelled,
		},
		{
			name: "logout network failure",
			setup: func(p *fakes.FakeIdentityProvider, err error) {
				p.SignOutFunc = func(context.Context) error { return err }
			},
			call: func(sm *SessionManager) error {
				return sm.Logout(context.Background())
			},
			provider: &url.Error{Op: "Post", URL: "https://idp", Err: io.ErrUnexpectedEOF},
			want:     apperrors.ErrCodeNetworkUnavailable,
		},
		{
			name: "signup email exists",
			setup: func(p *fakes.FakeIdentityProvider, err error) {
				p.SignUpFunc = func(context.Context, string, string) error { return err }
			},
			call: func(sm *SessionManager) error {
				return sm.Signup(context.Background(), "a@x.com", "pw123456")
			},
			provider: &apperrors.ProviderError{Code: "EMAIL_EXISTS"},
			want:     apperrors.ErrCodeAlreadyLinked,
		},
		{
			name: "unmapped code",
			setup: func(p *fakes.FakeIdentityProvider, err error) {
				p.SignInWithCredentialsFunc = func(context.Context, string, string) error { return err }
			},
			call: func(sm *SessionManager) error {
				return sm.LoginWithCredentials(context.Background(), "a@x.com", "pw")
			},
			provider: &apperrors.ProviderError{Code: "auth/quota-exceeded", Message: "quota exceeded"},
			want:     apperrors.ErrCodeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm, provider := newStartedSessionManager(t)
			tt.setup(provider, tt.provider)

			err := tt.call(sm)
			require.Error(t, err)
			assert.Equal(t, tt.want, apperrors.GetCode(err))
		})
	}
}

func TestSessionManager_LoginRequiresCredentials(t *testing.T) {
	sm, provider := newStartedSessionManager(t)

	err := sm.LoginWithCredentials(context.Background(), " ", "pw")
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "email", apperrors.GetField(err))

	err = sm.Signup(context.Background(), "a@x.com", "")
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, 0, provider.CallCount("SignInWithCredentials"))
	assert.Equal(t, 0, provider.CallCount("SignUp"))
}
