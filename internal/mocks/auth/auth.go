package auth

// Package auth contains simple hand-written test doubles for identity ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	domainauth "github.com/nicetouch/dashboard/internal/domain/auth"
	"github.com/nicetouch/dashboard/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityProvider  = (*FakeIdentityProvider)(nil)
	_ ports.FederatedProvider = (*MockFederatedProvider)(nil)
	_ ports.SessionStore      = (*MemorySessionStore)(nil)
)

// FakeIdentityProvider is an in-memory identity provider whose notifications are driven by Emit.
// Every operation can be overridden with the matching Func field; calls are counted by method name.
type FakeIdentityProvider struct {
	SignInWithCredentialsFunc func(ctx context.Context, email, password string) error
	SignUpFunc                func(ctx context.Context, email, password string) error
	SignInWithFederatedFunc   func(ctx context.Context) error
	SignOutFunc               func(ctx context.Context) error
	ChangePasswordFunc        func(ctx context.Context, id domainauth.Identity, newPassword string) error
	SendVerificationFunc      func(ctx context.Context, id domainauth.Identity) error
	ListSignInMethodsFunc     func(ctx context.Context, email string) ([]string, error)
	LinkCredentialFunc        func(ctx context.Context, id domainauth.Identity, cred domainauth.Credential) error

	// Methods is the default sign-in method set per email.
	Methods map[string][]string

	mu             sync.Mutex
	listeners      map[int]ports.IdentityListener
	nextID         int
	subscribeCalls int
	calls          map[string]int
}

// NewFakeIdentityProvider creates a FakeIdentityProvider with no listeners.
func NewFakeIdentityProvider() *FakeIdentityProvider {
	return &FakeIdentityProvider{
		Methods:   make(map[string][]string),
		listeners: make(map[int]ports.IdentityListener),
		calls:     make(map[string]int),
	}
}

func (f *FakeIdentityProvider) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[name]++
}

// CallCount returns how many times the named method was invoked.
func (f *FakeIdentityProvider) CallCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

// SubscribeCalls returns how many upstream subscriptions were made.
func (f *FakeIdentityProvider) SubscribeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscribeCalls
}

// ListenerCount returns the number of live subscriptions.
func (f *FakeIdentityProvider) ListenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

func (f *FakeIdentityProvider) Subscribe(fn ports.IdentityListener) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listeners == nil {
		f.listeners = make(map[int]ports.IdentityListener)
	}
	f.subscribeCalls++
	id := f.nextID
	f.nextID++
	f.listeners[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.listeners, id)
	}
}

// Emit delivers an identity (nil for signed out) to every listener, in subscription order,
// on the calling goroutine.
func (f *FakeIdentityProvider) Emit(id *domainauth.Identity) {
	f.mu.Lock()
	keys := make([]int, 0, len(f.listeners))
	for k := range f.listeners {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	fns := make([]ports.IdentityListener, 0, len(keys))
	for _, k := range keys {
		fns = append(fns, f.listeners[k])
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(id)
	}
}

func (f *FakeIdentityProvider) SignInWithCredentials(ctx context.Context, email, password string) error {
	f.record("SignInWithCredentials")
	if f.SignInWithCredentialsFunc != nil {
		return f.SignInWithCredentialsFunc(ctx, email, password)
	}
	return nil
}

func (f *FakeIdentityProvider) SignUp(ctx context.Context, email, password string) error {
	f.record("SignUp")
	if f.SignUpFunc != nil {
		return f.SignUpFunc(ctx, email, password)
	}
	return nil
}

func (f *FakeIdentityProvider) SignInWithFederated(ctx context.Context) error {
	f.record("SignInWithFederated")
	if f.SignInWithFederatedFunc != nil {
		return f.SignInWithFederatedFunc(ctx)
	}
	return nil
}

func (f *FakeIdentityProvider) SignOut(ctx context.Context) error {
	f.record("SignOut")
	if f.SignOutFunc != nil {
		return f.SignOutFunc(ctx)
	}
	return nil
}

func (f *FakeIdentityProvider) ChangePassword(ctx context.Context, id domainauth.Identity, newPassword string) error {
	f.record("ChangePassword")
	if f.ChangePasswordFunc != nil {
		return f.ChangePasswordFunc(ctx, id, newPassword)
	}
	return nil
}

func (f *FakeIdentityProvider) SendVerificationEmail(ctx context.Context, id domainauth.Identity) error {
	f.record("SendVerificationEmail")
	if f.SendVerificationFunc != nil {
		return f.SendVerificationFunc(ctx, id)
	}
	return nil
}

func (f *FakeIdentityProvider) ListSignInMethods(ctx context.Context, email string) ([]string, error) {
	f.record("ListSignInMethods")
	if f.ListSignInMethodsFunc != nil {
		return f.ListSignInMethodsFunc(ctx, email)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Methods[email]...), nil
}

func (f *FakeIdentityProvider) LinkCredential(ctx context.Context, id domainauth.Identity, cred domainauth.Credential) error {
	f.record("LinkCredential")
	if f.LinkCredentialFunc != nil {
		return f.LinkCredentialFunc(ctx, id, cred)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Methods == nil {
		f.Methods = make(map[string][]string)
	}
	f.Methods[cred.Email] = append(f.Methods[cred.Email], cred.Method)
	return nil
}

// StaticIdentity builds an identity whose token source returns a fixed token.
func StaticIdentity(id, email string) *domainauth.Identity {
	return &domainauth.Identity{
		ID:    id,
		Email: email,
		Tokens: domainauth.TokenSourceFunc(func(context.Context) (string, error) {
			return "token-" + id, nil
		}),
	}
}

// MockFederatedProvider simulates a third-party IdP with deterministic state/nonce handling.
type MockFederatedProvider struct {
	BeginFunc    func(ctx context.Context, in ports.BeginInput) (ports.BeginOutput, error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (domainauth.FederatedCredential, error)

	// Deterministic values for predictable testing
	AuthURL     string
	StatePrefix string
	NoncePrefix string
	IDToken     string

	mu        sync.Mutex
	callCount int
}

// NewMockFederatedProvider creates a MockFederatedProvider with sensible defaults.
func NewMockFederatedProvider() *MockFederatedProvider {
	return &MockFederatedProvider{
		AuthURL:     "https://mock-idp/auth",
		StatePrefix: "state",
		NoncePrefix: "nonce",
		IDToken:     "mock-id-token",
	}
}

func (m *MockFederatedProvider) Begin(ctx context.Context, in ports.BeginInput) (ports.BeginOutput, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, in)
	}

	m.mu.Lock()
	m.callCount++
	n := m.callCount
	m.mu.Unlock()

	authURL := m.AuthURL
	if authURL == "" {
		authURL = "https://mock-idp/auth"
	}
	statePrefix := m.StatePrefix
	if statePrefix == "" {
		statePrefix = "state"
	}
	noncePrefix := m.NoncePrefix
	if noncePrefix == "" {
		noncePrefix = "nonce"
	}

	return ports.BeginOutput{
		AuthURL:     authURL,
		State:       fmt.Sprintf("%s-%d", statePrefix, n),
		Nonce:       fmt.Sprintf("%s-%d", noncePrefix, n),
		Verifier:    fmt.Sprintf("verifier-%d", n),
		RedirectURL: in.RedirectURL,
	}, nil
}

func (m *MockFederatedProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.FederatedCredential, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}
	if in.Code == "" {
		return domainauth.FederatedCredential{}, errors.New("authorization code is required")
	}
	tok := m.IDToken
	if tok == "" {
		tok = "mock-id-token"
	}
	return domainauth.FederatedCredential{
		ProviderID: domainauth.MethodGoogle,
		IDToken:    tok,
		Nonce:      in.Nonce,
	}, nil
}

// MemorySessionStore is an in-memory session store for unit tests.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainauth.PersistedSession
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]domainauth.PersistedSession),
	}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.PersistedSession) error {
	if sess.Key == "" {
		return errors.New("session key cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.Key] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, key string) (domainauth.PersistedSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[key]
	if key == "" || !ok {
		return domainauth.PersistedSession{}, ErrNotFound
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, key string) error {
	if key == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key)
	return nil
}

// ErrNotFound is returned by mocks when an entity is not present.
type notFoundError struct{}

func (notFoundError) Error() string { return "not found" }

var ErrNotFound error = notFoundError{}
