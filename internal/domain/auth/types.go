// Package auth contains domain-level types for identities, session state and sign-in methods.
// It is pure and free of framework/adapter concerns.
package auth

import (
	"context"
	"slices"
	"strings"
	"time"
)

// TokenSource mints short-lived bearer tokens for an identity.
// Implementations must return a token that is valid at call time; callers never cache it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to the TokenSource interface.
type TokenSourceFunc func(ctx context.Context) (string, error)

// Token implements TokenSource.
func (f TokenSourceFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// Identity is the authenticated principal as known to the identity provider.
// It is an immutable snapshot; the provider replaces it wholesale on every change.
type Identity struct {
	ID            string // stable provider user id (uid / sub)
	Email         string
	EmailVerified bool
	DisplayName   string   // provider-side, may be empty
	Providers     []string // provider ids linked to the account, e.g. "password", "google.com"

	Tokens TokenSource
}

// Token mints a fresh bearer token for the identity.
func (i Identity) Token(ctx context.Context) (string, error) {
	if i.Tokens == nil {
		return "", ErrNoTokenSource
	}
	return i.Tokens.Token(ctx)
}

type noTokenSourceError struct{}

func (noTokenSourceError) Error() string { return "identity has no token source" }

// ErrNoTokenSource is returned when an identity cannot mint bearer tokens.
var ErrNoTokenSource error = noTokenSourceError{}

// SessionStatus is the tri-state status of the current session.
type SessionStatus int

const (
	// StatusUnresolved is the initial state, before the first provider notification.
	StatusUnresolved SessionStatus = iota
	// StatusAbsent means there is no authenticated identity.
	StatusAbsent
	// StatusPresent means an identity is signed in.
	StatusPresent
)

func (s SessionStatus) String() string {
	switch s {
	case StatusUnresolved:
		return "unresolved"
	case StatusAbsent:
		return "absent"
	case StatusPresent:
		return "present"
	default:
		return "invalid"
	}
}

// SessionState is the published "current identity" value.
// Generation increases by one for every provider notification and is zero only while unresolved.
type SessionState struct {
	Status     SessionStatus
	Identity   *Identity
	Generation uint64
}

// Resolved reports whether at least one provider notification has been processed.
func (s SessionState) Resolved() bool { return s.Status != StatusUnresolved }

// Present returns the identity when one is signed in.
func (s SessionState) Present() (Identity, bool) {
	if s.Status != StatusPresent || s.Identity == nil {
		return Identity{}, false
	}
	return *s.Identity, true
}

// Sign-in method identifiers as reported by the identity provider.
const (
	MethodPassword  = "password"
	MethodGoogle    = "google.com"
	MethodEmailLink = "emailLink"
)

// SignInMethods is the set of authentication methods registered for an email.
// It is refreshed on demand and never cached across reconciliation passes.
type SignInMethods []string

// NewSignInMethods builds a de-duplicated method set.
func NewSignInMethods(methods ...string) SignInMethods {
	out := make(SignInMethods, 0, len(methods))
	for _, m := range methods {
		m = strings.TrimSpace(m)
		if m == "" || slices.Contains(out, m) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Has reports whether the set contains the given method.
func (m SignInMethods) Has(method string) bool { return slices.Contains(m, method) }

// HasFederated reports whether any federated (third-party) method is registered.
func (m SignInMethods) HasFederated() bool {
	for _, method := range m {
		if IsFederatedMethod(method) {
			return true
		}
	}
	return false
}

// CanLinkPassword reports whether attaching a password credential makes sense:
// a federated method exists and no password method does.
func (m SignInMethods) CanLinkPassword() bool {
	return m.HasFederated() && !m.Has(MethodPassword)
}

// IsFederatedMethod reports whether a method id denotes a federated provider.
func IsFederatedMethod(method string) bool {
	switch method {
	case "", MethodPassword, MethodEmailLink, "phone", "anonymous":
		return false
	default:
		return true
	}
}

// Credential is an authentication credential that can be linked to an account.
type Credential struct {
	Method   string
	Email    string
	Password string
}

// NewPasswordCredential builds an email/password credential.
func NewPasswordCredential(email, password string) Credential {
	return Credential{
		Method:   MethodPassword,
		Email:    strings.TrimSpace(email),
		Password: password,
	}
}

// FederatedCredential is the result of a completed federated sign-in flow,
// ready to be exchanged with the identity provider.
type FederatedCredential struct {
	ProviderID  string
	IDToken     string
	AccessToken string
	Nonce       string
}

// PersistedSession is the provider-side session kept across process restarts.
type PersistedSession struct {
	Key           string
	UserID        string
	Email         string
	EmailVerified bool
	DisplayName   string
	Providers     []string
	IDToken       string
	RefreshToken  string
	ExpiresAt     time.Time
}

// Expired reports whether the ID token in the session has expired at t.
func (s PersistedSession) Expired(t time.Time) bool {
	return s.ExpiresAt.IsZero() || !t.Before(s.ExpiresAt)
}
