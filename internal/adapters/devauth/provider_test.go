package devauth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/nicetouch/dashboard/internal/domain/auth"
	apperrors "github.com/nicetouch/dashboard/internal/errors"
	fakes "github.com/nicetouch/dashboard/internal/mocks/auth"
)

type recorder struct {
	mu  sync.Mutex
	ids []*domainauth.Identity
}

func (r *recorder) listen(id *domainauth.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

func (r *recorder) last(t *testing.T) *domainauth.Identity {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.ids)
	return r.ids[len(r.ids)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}

func newTestProvider(t *testing.T, cfg Config) *Provider {
	t.Helper()
	if cfg.SigningKey == nil {
		cfg.SigningKey = []byte("test-signing-key")
	}
	p, err := NewProvider(cfg)
	require.NoError(t, err)
	return p
}

func providerCode(t *testing.T, err error) string {
	t.Helper()
	var pe *apperrors.ProviderError
	require.ErrorAs(t, err, &pe)
	return pe.Code
}

func TestProvider_SubscribeEmitsCurrentIdentity(t *testing.T) {
	p := newTestProvider(t, Config{})
	rec := &recorder{}
	unsub := p.Subscribe(rec.listen)
	defer unsub()

	require.Equal(t, 1, rec.count())
	assert.Nil(t, rec.last(t))
}

func TestProvider_SignInWithCredentials(t *testing.T) {
	p := newTestProvider(t, Config{Users: []User{{Email: "Dev@Example.com", Password: "secret1", DisplayName: "Dev"}}})
	rec := &recorder{}
	p.Subscribe(rec.listen)

	err := p.SignInWithCredentials(context.Background(), "dev@example.com", "nope")
	assert.Equal(t, "auth/wrong-password", providerCode(t, err))

	err = p.SignInWithCredentials(context.Background(), "other@example.com", "secret1")
	assert.Equal(t, "auth/user-not-found", providerCode(t, err))

	require.NoError(t, p.SignInWithCredentials(context.Background(), "dev@example.com", "secret1"))
	id := rec.last(t)
	require.NotNil(t, id)
	assert.Equal(t, "dev@example.com", id.Email)
	assert.Equal(t, "Dev", id.DisplayName)
	assert.Equal(t, []string{domainauth.MethodPassword}, id.Providers)

	again := newTestProvider(t, Config{Users: []User{{Email: "dev@example.com", Password: "x"}}})
	require.NoError(t, again.SignInWithCredentials(context.Background(), "dev@example.com", "x"))
	rec2 := &recorder{}
	again.Subscribe(rec2.listen)
	assert.Equal(t, id.ID, rec2.last(t).ID, "user ids are derived from the email")
}

func TestProvider_TokensVerify(t *testing.T) {
	p := newTestProvider(t, Config{Users: []User{{Email: "dev@example.com", Password: "secret1", Verified: true}}})
	rec := &recorder{}
	p.Subscribe(rec.listen)
	require.NoError(t, p.SignInWithCredentials(context.Background(), "dev@example.com", "secret1"))

	id := rec.last(t)
	tok, err := id.Token(context.Background())
	require.NoError(t, err)

	claims, err := p.VerifyToken(tok)
	require.NoError(t, err)
	assert.Equal(t, id.ID, claims.Subject)
	assert.Equal(t, "dev@example.com", claims.Email)
	assert.True(t, claims.EmailVerified)
	assert.Equal(t, domainauth.MethodPassword, claims.SignInProvider)

	other := newTestProvider(t, Config{SigningKey: []byte("another-key")})
	_, err = other.VerifyToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestProvider_ExpiredToken(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	p := newTestProvider(t, Config{
		Users:    []User{{Email: "dev@example.com", Password: "secret1"}},
		TokenTTL: time.Minute,
		Now:      clock,
	})
	rec := &recorder{}
	p.Subscribe(rec.listen)
	require.NoError(t, p.SignInWithCredentials(context.Background(), "dev@example.com", "secret1"))

	tok, err := rec.last(t).Token(context.Background())
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = p.VerifyToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestProvider_SignUpAndSignOut(t *testing.T) {
	p := newTestProvider(t, Config{Users: []User{{Email: "taken@example.com", Password: "secret1"}}})
	rec := &recorder{}
	p.Subscribe(rec.listen)

	assert.Equal(t, "auth/email-already-in-use", providerCode(t, p.SignUp(context.Background(), "taken@example.com", "secret1")))
	assert.Equal(t, "auth/weak-password", providerCode(t, p.SignUp(context.Background(), "new@example.com", "123")))
	assert.Equal(t, "auth/invalid-email", providerCode(t, p.SignUp(context.Background(), "nope", "secret1")))

	require.NoError(t, p.SignUp(context.Background(), "new@example.com", "secret1"))
	assert.Equal(t, "new@example.com", rec.last(t).Email)

	require.NoError(t, p.SignOut(context.Background()))
	assert.Nil(t, rec.last(t))
	assert.Equal(t, 3, rec.count())
}

func TestProvider_FederatedAndLinking(t *testing.T) {
	p := newTestProvider(t, Config{FederatedEmail: "g@example.com"})
	rec := &recorder{}
	p.Subscribe(rec.listen)

	require.NoError(t, p.SignInWithFederated(context.Background()))
	id := rec.last(t)
	require.NotNil(t, id)
	assert.True(t, id.EmailVerified)

	methods, err := p.ListSignInMethods(context.Background(), "g@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{domainauth.MethodGoogle}, methods)

	cred := domainauth.NewPasswordCredential("g@example.com", "secret1")
	require.NoError(t, p.LinkCredential(context.Background(), *id, cred))
	assert.Equal(t, "auth/provider-already-linked", providerCode(t, p.LinkCredential(context.Background(), *id, cred)))

	methods, err = p.ListSignInMethods(context.Background(), "g@example.com")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{domainauth.MethodGoogle, domainauth.MethodPassword}, methods)

	require.NoError(t, p.SignOut(context.Background()))
	require.NoError(t, p.SignInWithCredentials(context.Background(), "g@example.com", "secret1"))
}

func TestProvider_FederatedDisabled(t *testing.T) {
	p := newTestProvider(t, Config{})
	assert.Equal(t, "auth/popup-closed-by-user", providerCode(t, p.SignInWithFederated(context.Background())))
}

func TestProvider_OperationsRequireCurrentIdentity(t *testing.T) {
	p := newTestProvider(t, Config{Users: []User{{Email: "dev@example.com", Password: "secret1"}}})
	rec := &recorder{}
	p.Subscribe(rec.listen)
	require.NoError(t, p.SignInWithCredentials(context.Background(), "dev@example.com", "secret1"))
	id := *rec.last(t)

	stale := domainauth.Identity{ID: "someone-else"}
	assert.Equal(t, "auth/user-token-expired", providerCode(t, p.ChangePassword(context.Background(), stale, "secret2")))
	assert.Equal(t, "auth/user-token-expired", providerCode(t, p.SendVerificationEmail(context.Background(), stale)))

	require.NoError(t, p.ChangePassword(context.Background(), id, "secret2"))
	require.NoError(t, p.SignInWithCredentials(context.Background(), "dev@example.com", "secret2"))

	require.NoError(t, p.SendVerificationEmail(context.Background(), id))
	assert.Equal(t, []string{"dev@example.com"}, p.Outbox())
}

func TestProvider_ResumesPersistedSession(t *testing.T) {
	store := fakes.NewMemorySessionStore()
	cfg := Config{
		Users:      []User{{Email: "dev@example.com", Password: "secret1"}},
		Store:      store,
		SigningKey: []byte("k"),
	}

	first := newTestProvider(t, cfg)
	first.Subscribe(func(*domainauth.Identity) {})
	require.NoError(t, first.SignInWithCredentials(context.Background(), "dev@example.com", "secret1"))

	sess, err := store.Get(context.Background(), defaultSessionKey)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.RefreshToken)

	second := newTestProvider(t, cfg)
	rec := &recorder{}
	second.Subscribe(rec.listen)
	require.NotNil(t, rec.last(t))
	assert.Equal(t, "dev@example.com", rec.last(t).Email)

	require.NoError(t, second.SignOut(context.Background()))
	_, err = store.Get(context.Background(), defaultSessionKey)
	assert.ErrorIs(t, err, fakes.ErrNotFound)
}

func TestProvider_UnsubscribeStopsNotifications(t *testing.T) {
	p := newTestProvider(t, Config{Users: []User{{Email: "dev@example.com", Password: "secret1"}}})
	rec := &recorder{}
	unsub := p.Subscribe(rec.listen)
	unsub()

	require.NoError(t, p.SignInWithCredentials(context.Background(), "dev@example.com", "secret1"))
	assert.Equal(t, 1, rec.count())
}
