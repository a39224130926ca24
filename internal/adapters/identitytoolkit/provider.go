package identitytoolkit

// Package identitytoolkit implements the identity provider port against the Identity Toolkit
// REST API (the backend behind Firebase Authentication). ID tokens are verified with go-oidc
// and refreshed through the secure-token endpoint as an oauth2 token source.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/nicetouch/dashboard/internal/adapters/fanout"
	domainauth "github.com/nicetouch/dashboard/internal/domain/auth"
	apperrors "github.com/nicetouch/dashboard/internal/errors"
	"github.com/nicetouch/dashboard/internal/ports"
)

const (
	DefaultBaseURL        = "https://identitytoolkit.googleapis.com/v1"
	DefaultSecureTokenURL = "https://securetoken.googleapis.com/v1/token"
	DefaultJWKSURL        = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"
	defaultSessionKey     = "identitytoolkit"
	resolveTimeout        = 10 * time.Second
)

// Config configures the Identity Toolkit provider.
type Config struct {
	APIKey         string
	ProjectID      string
	BaseURL        string
	SecureTokenURL string
	JWKSURL        string
	// Issuer defaults to https://securetoken.google.com/<ProjectID>.
	Issuer string
	// SkipSignatureCheck accepts unsigned tokens from the local auth emulator.
	SkipSignatureCheck bool
	HTTPClient         *http.Client

	// Store persists the session so the first notification after a restart is the signed-in user.
	Store      ports.SessionStore
	SessionKey string

	// Federated and Popup drive SignInWithFederated; it reports an unsupported operation without them.
	Federated ports.FederatedProvider
	Popup     ports.Popup

	Logger *slog.Logger
	Now    func() time.Time
}

// session is the signed-in user as known to this process.
type session struct {
	uid         string
	email       string
	displayName string
	verified    bool
	providers   []string
	tokens      tokenSet
}

// Provider implements ports.IdentityProvider over the Identity Toolkit REST API.
type Provider struct {
	api        *client
	oauth      *oauth2.Config
	verifier   *gooidc.IDTokenVerifier
	httpClient *http.Client
	store      ports.SessionStore
	sessionKey string
	federated  ports.FederatedProvider
	popup      ports.Popup
	logger     *slog.Logger
	now        func() time.Time

	listeners fanout.Registry

	mu       sync.Mutex
	current  *session
	resolved bool

	// refreshMu serializes token refreshes.
	refreshMu sync.Mutex
}

// NewProvider validates cfg and builds the provider. No network calls are made here.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("identity toolkit: API key is required")
	}
	if cfg.ProjectID == "" && cfg.Issuer == "" {
		return nil, errors.New("identity toolkit: project ID is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := firstNonEmpty(cfg.BaseURL, DefaultBaseURL)
	secureTokenURL := firstNonEmpty(cfg.SecureTokenURL, DefaultSecureTokenURL)
	jwksURL := firstNonEmpty(cfg.JWKSURL, DefaultJWKSURL)
	issuer := firstNonEmpty(cfg.Issuer, "https://securetoken.google.com/"+cfg.ProjectID)
	audience := firstNonEmpty(cfg.ProjectID, issuer)

	keySet := gooidc.NewRemoteKeySet(gooidc.ClientContext(ctx, httpClient), jwksURL)
	verifier := gooidc.NewVerifier(issuer, keySet, &gooidc.Config{
		ClientID:                   audience,
		Now:                        now,
		InsecureSkipSignatureCheck: cfg.SkipSignatureCheck,
	})

	return &Provider{
		api: &client{baseURL: baseURL, apiKey: cfg.APIKey, httpClient: httpClient},
		oauth: &oauth2.Config{
			Endpoint: oauth2.Endpoint{
				TokenURL:  secureTokenURL + "?key=" + url.QueryEscape(cfg.APIKey),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		verifier:   verifier,
		httpClient: httpClient,
		store:      cfg.Store,
		sessionKey: firstNonEmpty(cfg.SessionKey, defaultSessionKey),
		federated:  cfg.Federated,
		popup:      cfg.Popup,
		logger:     logger.With("component", "identitytoolkit"),
		now:        now,
	}, nil
}

// Subscribe registers fn and notifies it with the current identity. The first call
// resolves the persisted session, refreshing its ID token when it has expired.
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
	if p.resolved || p.store == nil {
		p.resolved = true
		p.mu.Unlock()
		return
	}
	p.resolved = true
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	persisted, err := p.store.Get(ctx, p.sessionKey)
	if err != nil {
		p.logger.DebugContext(ctx, "no persisted session", "error", err)
		return
	}

	sess := &session{
		uid:         persisted.UserID,
		email:       persisted.Email,
		displayName: persisted.DisplayName,
		verified:    persisted.EmailVerified,
		providers:   slices.Clone(persisted.Providers),
		tokens: tokenSet{
			idToken:      persisted.IDToken,
			refreshToken: persisted.RefreshToken,
			expiresAt:    persisted.ExpiresAt,
		},
	}

	if persisted.Expired(p.now()) {
		tokens, refreshErr := p.refresh(ctx, persisted.RefreshToken)
		var provErr *apperrors.ProviderError
		switch {
		case errors.As(refreshErr, &provErr):
			p.logger.InfoContext(ctx, "persisted session revoked", "code", provErr.Code)
			if delErr := p.store.Delete(ctx, p.sessionKey); delErr != nil {
				p.logger.WarnContext(ctx, "failed to delete revoked session", "error", delErr)
			}
			return
		case refreshErr != nil:
			// Offline: keep the user signed in; the next token request retries the refresh.
			p.logger.WarnContext(ctx, "could not refresh persisted session", "error", refreshErr)
		default:
			sess.tokens = tokens
			p.persist(ctx, sess)
		}
	}

	p.mu.Lock()
	p.current = sess
	p.mu.Unlock()
}

// identityLocked snapshots the signed-in user; callers hold p.mu.
func (p *Provider) identityLocked() *domainauth.Identity {
	if p.current == nil {
		return nil
	}
	s := p.current
	uid := s.uid
	return &domainauth.Identity{
		ID:            s.uid,
		Email:         s.email,
		EmailVerified: s.verified,
		DisplayName:   s.displayName,
		Providers:     slices.Clone(s.providers),
		Tokens: domainauth.TokenSourceFunc(func(ctx context.Context) (string, error) {
			return p.idToken(ctx, uid)
		}),
	}
}

// idToken returns a fresh ID token for uid, refreshing it when close to expiry.
func (p *Provider) idToken(ctx context.Context, uid string) (string, error) {
	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	p.mu.Lock()
	cur := p.current
	p.mu.Unlock()
	if cur == nil || cur.uid != uid {
		return "", &apperrors.ProviderError{Code: "auth/user-token-expired", Message: "user is no longer signed in"}
	}
	if p.now().Add(refreshSkew).Before(cur.tokens.expiresAt) {
		return cur.tokens.idToken, nil
	}

	tokens, err := p.refresh(ctx, cur.tokens.refreshToken)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	if p.current != nil && p.current.uid == uid {
		updated := *p.current
		updated.tokens = tokens
		p.current = &updated
		cur = &updated
	}
	p.mu.Unlock()
	p.persist(ctx, cur)
	return tokens.idToken, nil
}

func (p *Provider) persist(ctx context.Context, s *session) {
	if p.store == nil {
		return
	}
	var err error
	if s == nil {
		err = p.store.Delete(ctx, p.sessionKey)
	} else {
		err = p.store.Save(ctx, domainauth.PersistedSession{
			Key:           p.sessionKey,
			UserID:        s.uid,
			Email:         s.email,
			EmailVerified: s.verified,
			DisplayName:   s.displayName,
			Providers:     slices.Clone(s.providers),
			IDToken:       s.tokens.idToken,
			RefreshToken:  s.tokens.refreshToken,
			ExpiresAt:     s.tokens.expiresAt,
		})
	}
	if err != nil {
		p.logger.WarnContext(ctx, "failed to persist session", "error", err)
	}
}

// establish verifies the tokens of a sign-in response, loads the account and makes it current.
func (p *Provider) establish(ctx context.Context, resp authResponse) error {
	tokens := tokensFromAuth(resp, p.now())
	claims, err := p.verifyToken(ctx, tokens.idToken)
	if err != nil {
		return err
	}

	sess := &session{
		uid:         claims.Subject,
		email:       firstNonEmpty(claims.Email, resp.Email),
		displayName: firstNonEmpty(claims.Name, resp.DisplayName),
		verified:    claims.EmailVerified,
		tokens:      tokens,
	}

	var lookup lookupResponse
	if lookupErr := p.api.call(ctx, "lookup", lookupRequest{IDToken: tokens.idToken}, &lookup); lookupErr != nil {
		return lookupErr
	}
	if len(lookup.Users) > 0 {
		u := lookup.Users[0]
		sess.verified = u.EmailVerified
		sess.displayName = firstNonEmpty(u.DisplayName, sess.displayName)
		for _, info := range u.ProviderUserInfo {
			sess.providers = append(sess.providers, info.ProviderID)
		}
		if u.PasswordHash != "" {
			sess.providers = append(sess.providers, domainauth.MethodPassword)
		}
	}
	if len(sess.providers) == 0 && claims.Firebase.SignInProvider != "" {
		sess.providers = []string{claims.Firebase.SignInProvider}
	}
	sess.providers = domainauth.NewSignInMethods(sess.providers...)

	p.setCurrent(ctx, sess)
	return nil
}

func (p *Provider) setCurrent(ctx context.Context, s *session) {
	p.listeners.Publish(func() *domainauth.Identity {
		p.mu.Lock()
		p.current = s
		p.resolved = true
		id := p.identityLocked()
		p.mu.Unlock()
		p.persist(ctx, s)
		return id
	})
}

// SignInWithCredentials signs in with email and password.
func (p *Provider) SignInWithCredentials(ctx context.Context, email, password string) error {
	var resp authResponse
	req := passwordRequest{Email: email, Password: password, ReturnSecureToken: true}
	if err := p.api.call(ctx, "signInWithPassword", req, &resp); err != nil {
		return err
	}
	return p.establish(ctx, resp)
}

// SignUp creates an email/password account and signs into it.
func (p *Provider) SignUp(ctx context.Context, email, password string) error {
	var resp authResponse
	req := passwordRequest{Email: email, Password: password, ReturnSecureToken: true}
	if err := p.api.call(ctx, "signUp", req, &resp); err != nil {
		return err
	}
	return p.establish(ctx, resp)
}

// SignInWithFederated runs the popup flow and signs in with the resulting ID token.
func (p *Provider) SignInWithFederated(ctx context.Context) error {
	if p.federated == nil || p.popup == nil {
		return &apperrors.ProviderError{Code: "auth/operation-not-allowed", Message: "federated sign-in is not configured"}
	}

	begin, err := p.federated.Begin(ctx, ports.BeginInput{RedirectURL: p.popup.RedirectURL()})
	if err != nil {
		return fmt.Errorf("begin federated sign-in: %w", err)
	}
	res, err := p.popup.Open(ctx, begin.AuthURL)
	if err != nil {
		return err
	}
	if res.Error != "" {
		return &apperrors.ProviderError{Code: res.Error, Message: "federated sign-in failed: " + res.Error}
	}
	if res.State != begin.State {
		return &apperrors.ProviderError{Code: "auth/invalid-credential", Message: "state mismatch"}
	}

	cred, err := p.federated.Exchange(ctx, ports.ExchangeInput{
		Code:        res.Code,
		State:       res.State,
		Nonce:       begin.Nonce,
		Verifier:    begin.Verifier,
		RedirectURL: begin.RedirectURL,
	})
	if err != nil {
		return fmt.Errorf("exchange federated code: %w", err)
	}

	postBody := url.Values{"providerId": {cred.ProviderID}}
	if cred.IDToken != "" {
		postBody.Set("id_token", cred.IDToken)
	}
	if cred.AccessToken != "" {
		postBody.Set("access_token", cred.AccessToken)
	}
	if cred.Nonce != "" {
		postBody.Set("nonce", cred.Nonce)
	}

	var resp authResponse
	req := idpRequest{
		PostBody:            postBody.Encode(),
		RequestURI:          firstNonEmpty(begin.RedirectURL, p.popup.RedirectURL()),
		ReturnSecureToken:   true,
		ReturnIdpCredential: true,
	}
	if callErr := p.api.call(ctx, "signInWithIdp", req, &resp); callErr != nil {
		return callErr
	}
	if resp.ErrorMessage != "" {
		return &apperrors.ProviderError{Code: resp.ErrorMessage, Message: resp.ErrorMessage}
	}
	return p.establish(ctx, resp)
}

// SignOut forgets the local session. Refresh tokens are not revoked server-side.
func (p *Provider) SignOut(ctx context.Context) error {
	p.setCurrent(ctx, nil)
	return nil
}

// currentToken returns a valid ID token for id, which must still be the signed-in user.
func (p *Provider) currentToken(ctx context.Context, id domainauth.Identity) (string, error) {
	return p.idToken(ctx, id.ID)
}

// applyTokens stores tokens returned by accounts:update for uid and records added methods.
func (p *Provider) applyTokens(ctx context.Context, uid string, resp authResponse, addMethod string) {
	p.mu.Lock()
	if p.current == nil || p.current.uid != uid {
		p.mu.Unlock()
		return
	}
	updated := *p.current
	if resp.IDToken != "" {
		updated.tokens = tokensFromAuth(resp, p.now())
		if updated.tokens.refreshToken == "" {
			updated.tokens.refreshToken = p.current.tokens.refreshToken
		}
	}
	if addMethod != "" {
		updated.providers = domainauth.NewSignInMethods(append(slices.Clone(updated.providers), addMethod)...)
	}
	p.current = &updated
	p.mu.Unlock()
	p.persist(ctx, &updated)
}

// ChangePassword sets a new password; the API answers with fresh tokens.
func (p *Provider) ChangePassword(ctx context.Context, id domainauth.Identity, newPassword string) error {
	tok, err := p.currentToken(ctx, id)
	if err != nil {
		return err
	}
	var resp authResponse
	req := updateRequest{IDToken: tok, Password: newPassword, ReturnSecureToken: true}
	if callErr := p.api.call(ctx, "update", req, &resp); callErr != nil {
		return callErr
	}
	p.applyTokens(ctx, id.ID, resp, domainauth.MethodPassword)
	return nil
}

// SendVerificationEmail asks the provider to email a verification link.
func (p *Provider) SendVerificationEmail(ctx context.Context, id domainauth.Identity) error {
	tok, err := p.currentToken(ctx, id)
	if err != nil {
		return err
	}
	return p.api.call(ctx, "sendOobCode", oobRequest{RequestType: "VERIFY_EMAIL", IDToken: tok}, nil)
}

// ListSignInMethods returns the methods registered for email.
func (p *Provider) ListSignInMethods(ctx context.Context, email string) ([]string, error) {
	var resp createAuthURIResponse
	req := createAuthURIRequest{Identifier: email, ContinueURI: "http://localhost"}
	if err := p.api.call(ctx, "createAuthUri", req, &resp); err != nil {
		return nil, err
	}
	return resp.SigninMethods, nil
}

// LinkCredential attaches an email/password credential to the signed-in account.
func (p *Provider) LinkCredential(ctx context.Context, id domainauth.Identity, cred domainauth.Credential) error {
	if cred.Method != domainauth.MethodPassword {
		return &apperrors.ProviderError{Code: "auth/invalid-credential", Message: "unsupported credential " + cred.Method}
	}
	tok, err := p.currentToken(ctx, id)
	if err != nil {
		return err
	}
	var resp authResponse
	req := updateRequest{
		IDToken:           tok,
		Email:             firstNonEmpty(strings.TrimSpace(cred.Email), id.Email),
		Password:          cred.Password,
		ReturnSecureToken: true,
	}
	if callErr := p.api.call(ctx, "update", req, &resp); callErr != nil {
		return callErr
	}
	p.applyTokens(ctx, id.ID, resp, domainauth.MethodPassword)
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
