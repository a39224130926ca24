package ports

// Package ports defines interfaces (hexagonal ports) for identity, profile and billing behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"

	domainauth "github.com/nicetouch/dashboard/internal/domain/auth"
)

// IdentityListener receives every identity the provider emits; nil means signed out.
type IdentityListener func(id *domainauth.Identity)

// IdentityProvider is the external service issuing authenticated sessions and credentials.
// Errors are provider-specific (see errors.ProviderError) and normalized by the services.
type IdentityProvider interface {
	// Subscribe registers a listener for identity changes and returns its unsubscribe func.
	// The provider emits the current identity (possibly nil) once it has resolved its own state.
	Subscribe(fn IdentityListener) (unsubscribe func())

	SignInWithCredentials(ctx context.Context, email, password string) error
	SignUp(ctx context.Context, email, password string) error
	SignInWithFederated(ctx context.Context) error
	SignOut(ctx context.Context) error

	ChangePassword(ctx context.Context, id domainauth.Identity, newPassword string) error
	SendVerificationEmail(ctx context.Context, id domainauth.Identity) error
	ListSignInMethods(ctx context.Context, email string) ([]string, error)
	LinkCredential(ctx context.Context, id domainauth.Identity, cred domainauth.Credential) error
}

// BeginInput carries inputs for initiating a federated flow.
type BeginInput struct {
	RedirectURL string
}

// BeginOutput is what the caller needs to drive the user through the flow.
type BeginOutput struct {
	AuthURL  string
	State    string
	Nonce    string
	Verifier string // PKCE code verifier
	// RedirectURL is the redirect the flow was started with; it must be presented again on exchange.
	RedirectURL string
}

// ExchangeInput groups parameters for the code/token exchange.
type ExchangeInput struct {
	Code        string
	State       string
	Nonce       string
	Verifier    string
	RedirectURL string
}

// FederatedProvider initiates and completes an authentication flow against a third-party IdP.
type FederatedProvider interface {
	// Begin starts the login flow and returns the provider auth URL, an opaque state, and a nonce.
	Begin(ctx context.Context, in BeginInput) (BeginOutput, error)

	// Exchange completes the login flow, verifying state and nonce, and returns the federated credential.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.FederatedCredential, error)
}

// CallbackResult is what the redirect target received.
type CallbackResult struct {
	Code  string
	State string
	Error string
}

// Popup presents an authorization URL to the user and waits for the redirect.
type Popup interface {
	// RedirectURL is the URL the IdP must redirect back to.
	RedirectURL() string
	Open(ctx context.Context, authURL string) (CallbackResult, error)
}

// SessionStore persists and retrieves provider sessions.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.PersistedSession) error
	Get(ctx context.Context, key string) (domainauth.PersistedSession, error)
	Delete(ctx context.Context, key string) error
}
