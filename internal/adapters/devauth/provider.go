package devauth

// Package devauth provides an in-memory IdentityProvider for local development and tests.

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nicetouch/dashboard/internal/adapters/fanout"
	domainauth "github.com/nicetouch/dashboard/internal/domain/auth"
	apperrors "github.com/nicetouch/dashboard/internal/errors"
	"github.com/nicetouch/dashboard/internal/ports"
)

const (
	defaultIssuer     = "dashboard-devauth"
	defaultTokenTTL   = time.Hour
	defaultSessionKey = "devauth"
	minPasswordLength = 6
)

// User seeds an account at startup.
type User struct {
	Email       string
	Password    string
	DisplayName string
	// Methods defaults to password when Password is set.
	Methods  []string
	Verified bool
}

// Config controls the dev identity provider.
type Config struct {
	Users []User
	// FederatedEmail is the account SignInWithFederated signs into. Federated sign-in is
	// reported as cancelled when empty.
	FederatedEmail string
	SigningKey     []byte // random per process when empty
	Issuer         string
	TokenTTL       time.Duration
	// Store, when set, persists the signed-in session so a restart resumes it.
	Store      ports.SessionStore
	SessionKey string
	Logger     *slog.Logger
	Now        func() time.Time
}

type account struct {
	id          string
	email       string
	displayName string
	verified    bool
	hash        []byte
	methods     []string
}

// Provider implements ports.IdentityProvider without any network calls. Accounts live in
// memory; user ids are derived from the email so they are stable across restarts.
type Provider struct {
	tokens     tokenIssuer
	federated  string
	store      ports.SessionStore
	sessionKey string
	logger     *slog.Logger

	listeners fanout.Registry

	mu       sync.Mutex
	accounts map[string]*account
	current  *account
	method   string
	resolved bool
	outbox   []string
}

// NewProvider constructs a dev identity provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	key := cfg.SigningKey
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = defaultIssuer
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sessionKey := cfg.SessionKey
	if sessionKey == "" {
		sessionKey = defaultSessionKey
	}

	p := &Provider{
		tokens:     tokenIssuer{key: key, issuer: issuer, ttl: ttl, now: now},
		federated:  normalizeEmail(cfg.FederatedEmail),
		store:      cfg.Store,
		sessionKey: sessionKey,
		logger:     logger.With("component", "devauth"),
		accounts:   make(map[string]*account),
	}
	for _, u := range cfg.Users {
		if err := p.seed(u); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Provider) seed(u User) error {
	email := normalizeEmail(u.Email)
	if email == "" {
		return errors.New("dev auth: user email is required")
	}
	acc := newAccount(email)
	acc.displayName = u.DisplayName
	acc.verified = u.Verified
	acc.methods = domainauth.NewSignInMethods(u.Methods...)
	if u.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.MinCost)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", email, err)
		}
		acc.hash = hash
		acc.methods = domainauth.NewSignInMethods(append(acc.methods, domainauth.MethodPassword)...)
	}
	p.accounts[email] = acc
	return nil
}

func newAccount(email string) *account {
	return &account{
		id:    uuid.NewSHA1(uuid.NameSpaceURL, []byte("devauth:"+email)).String(),
		email: email,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Subscribe registers fn and immediately notifies it with the current identity.
// The first subscription resolves any persisted session.
func (p *Provider) Subscribe(fn ports.IdentityListener) func() {
	p.resolve()
	return p.listeners.Subscribe(fn, func() *domainauth.Identity {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.identityLocked()
	})
}

func (p *Provider) resolve() {
	p.mu.Lock()
	if p.resolved {
		p.mu.Unlock()
		return
	}
	p.resolved = true
	p.mu.Unlock()

	if p.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sess, err := p.store.Get(ctx, p.sessionKey)
	if err != nil {
		p.logger.DebugContext(ctx, "no persisted session", "error", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	acc, ok := p.accounts[normalizeEmail(sess.Email)]
	if !ok {
		acc = newAccount(normalizeEmail(sess.Email))
		acc.displayName = sess.DisplayName
		acc.verified = sess.EmailVerified
		acc.methods = domainauth.NewSignInMethods(sess.Providers...)
		p.accounts[acc.email] = acc
	}
	if acc.id != sess.UserID {
		p.logger.WarnContext(ctx, "persisted session does not match account", "email", acc.email)
		return
	}
	p.current = acc
	if len(sess.Providers) > 0 {
		p.method = sess.Providers[0]
	}
}

// identityLocked builds the Identity for the signed-in account; callers hold p.mu.
func (p *Provider) identityLocked() *domainauth.Identity {
	if p.current == nil {
		return nil
	}
	acc := *p.current
	method := p.method
	return &domainauth.Identity{
		ID:            acc.id,
		Email:         acc.email,
		EmailVerified: acc.verified,
		DisplayName:   acc.displayName,
		Providers:     slices.Clone(acc.methods),
		Tokens: domainauth.TokenSourceFunc(func(context.Context) (string, error) {
			tok, _, err := p.tokens.mint(acc, method)
			return tok, err
		}),
	}
}

func (p *Provider) setCurrent(ctx context.Context, acc *account, method string) error {
	p.listeners.Publish(func() *domainauth.Identity {
		p.mu.Lock()
		p.current = acc
		p.method = method
		id := p.identityLocked()
		var snap *account
		if acc != nil {
			cp := *acc
			cp.methods = slices.Clone(acc.methods)
			snap = &cp
		}
		p.mu.Unlock()

		if err := p.persist(ctx, snap, method); err != nil {
			p.logger.WarnContext(ctx, "failed to persist session", "error", err)
		}
		return id
	})
	return nil
}

func (p *Provider) persist(ctx context.Context, acc *account, method string) error {
	if p.store == nil {
		return nil
	}
	if acc == nil {
		return p.store.Delete(ctx, p.sessionKey)
	}
	tok, exp, err := p.tokens.mint(*acc, method)
	if err != nil {
		return err
	}
	return p.store.Save(ctx, domainauth.PersistedSession{
		Key:           p.sessionKey,
		UserID:        acc.id,
		Email:         acc.email,
		EmailVerified: acc.verified,
		DisplayName:   acc.displayName,
		Providers:     slices.Clone(acc.methods),
		IDToken:       tok,
		RefreshToken:  uuid.NewString(),
		ExpiresAt:     exp,
	})
}

// SignInWithCredentials checks the password against the stored bcrypt hash.
func (p *Provider) SignInWithCredentials(ctx context.Context, email, password string) error {
	p.mu.Lock()
	acc, ok := p.accounts[normalizeEmail(email)]
	p.mu.Unlock()
	if !ok {
		return &apperrors.ProviderError{Code: "auth/user-not-found"}
	}
	if len(acc.hash) == 0 || bcrypt.CompareHashAndPassword(acc.hash, []byte(password)) != nil {
		return &apperrors.ProviderError{Code: "auth/wrong-password"}
	}
	return p.setCurrent(ctx, acc, domainauth.MethodPassword)
}

// SignUp creates a password account and signs into it.
func (p *Provider) SignUp(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return &apperrors.ProviderError{Code: "auth/invalid-email"}
	}
	if len(password) < minPasswordLength {
		return &apperrors.ProviderError{Code: "auth/weak-password", Message: "Password should be at least 6 characters"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	p.mu.Lock()
	if _, exists := p.accounts[email]; exists {
		p.mu.Unlock()
		return &apperrors.ProviderError{Code: "auth/email-already-in-use"}
	}
	acc := newAccount(email)
	acc.hash = hash
	acc.methods = domainauth.NewSignInMethods(domainauth.MethodPassword)
	p.accounts[email] = acc
	p.mu.Unlock()

	return p.setCurrent(ctx, acc, domainauth.MethodPassword)
}

// SignInWithFederated signs into the configured federated account, creating it on first use.
func (p *Provider) SignInWithFederated(ctx context.Context) error {
	if p.federated == "" {
		return &apperrors.ProviderError{Code: "auth/popup-closed-by-user"}
	}
	p.mu.Lock()
	acc, ok := p.accounts[p.federated]
	if !ok {
		acc = newAccount(p.federated)
		acc.verified = true
		p.accounts[p.federated] = acc
	}
	if !slices.Contains(acc.methods, domainauth.MethodGoogle) {
		acc.methods = domainauth.NewSignInMethods(append(acc.methods, domainauth.MethodGoogle)...)
	}
	p.mu.Unlock()
	return p.setCurrent(ctx, acc, domainauth.MethodGoogle)
}

// SignOut clears the current account and notifies listeners with nil.
func (p *Provider) SignOut(ctx context.Context) error {
	return p.setCurrent(ctx, nil, "")
}

func (p *Provider) lookupCurrent(id domainauth.Identity) (*account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil || p.current.id != id.ID {
		return nil, &apperrors.ProviderError{Code: "auth/user-token-expired"}
	}
	return p.current, nil
}

// ChangePassword replaces the password of the signed-in account, adding the password method if needed.
func (p *Provider) ChangePassword(_ context.Context, id domainauth.Identity, newPassword string) error {
	acc, err := p.lookupCurrent(id)
	if err != nil {
		return err
	}
	if len(newPassword) < minPasswordLength {
		return &apperrors.ProviderError{Code: "auth/weak-password", Message: "Password should be at least 6 characters"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	p.mu.Lock()
	acc.hash = hash
	acc.methods = domainauth.NewSignInMethods(append(acc.methods, domainauth.MethodPassword)...)
	p.mu.Unlock()
	return nil
}

// SendVerificationEmail records the request in the outbox.
func (p *Provider) SendVerificationEmail(ctx context.Context, id domainauth.Identity) error {
	acc, err := p.lookupCurrent(id)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.outbox = append(p.outbox, acc.email)
	p.mu.Unlock()
	p.logger.InfoContext(ctx, "verification email queued", "email", acc.email)
	return nil
}

// Outbox returns the addresses verification emails were sent to.
func (p *Provider) Outbox() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.outbox)
}

// ListSignInMethods returns the methods registered for email; unknown emails have none.
func (p *Provider) ListSignInMethods(_ context.Context, email string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	acc, ok := p.accounts[normalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	return slices.Clone(acc.methods), nil
}

// LinkCredential attaches a password credential to the signed-in account.
func (p *Provider) LinkCredential(_ context.Context, id domainauth.Identity, cred domainauth.Credential) error {
	acc, err := p.lookupCurrent(id)
	if err != nil {
		return err
	}
	if cred.Method != domainauth.MethodPassword {
		return &apperrors.ProviderError{Code: "auth/invalid-credential", Message: "unsupported credential " + cred.Method}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if slices.Contains(acc.methods, domainauth.MethodPassword) {
		return &apperrors.ProviderError{Code: "auth/provider-already-linked"}
	}
	if email := normalizeEmail(cred.Email); email != "" && email != acc.email {
		if _, taken := p.accounts[email]; taken {
			return &apperrors.ProviderError{Code: "auth/credential-already-in-use"}
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cred.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	acc.hash = hash
	acc.methods = domainauth.NewSignInMethods(append(acc.methods, domainauth.MethodPassword)...)
	return nil
}

// VerifyToken validates a bearer token minted by this provider.
func (p *Provider) VerifyToken(raw string) (Claims, error) {
	return p.tokens.verify(raw)
}
