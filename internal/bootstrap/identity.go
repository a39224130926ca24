package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/nicetouch/dashboard/config"
	"github.com/nicetouch/dashboard/internal/adapters/devauth"
	"github.com/nicetouch/dashboard/internal/adapters/filestore"
	"github.com/nicetouch/dashboard/internal/adapters/identitytoolkit"
	"github.com/nicetouch/dashboard/internal/adapters/loopback"
	"github.com/nicetouch/dashboard/internal/adapters/oidc"
	redisadapter "github.com/nicetouch/dashboard/internal/adapters/redis"
	"github.com/nicetouch/dashboard/internal/adapters/sealedstore"
	"github.com/nicetouch/dashboard/internal/cryptoutil"
	domainauth "github.com/nicetouch/dashboard/internal/domain/auth"
	"github.com/nicetouch/dashboard/internal/ports"
)

// SessionStoreConfig contains configuration for provider session persistence.
type SessionStoreConfig struct {
	Session     config.SessionConfig
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// BuildSessionStore returns the configured store, or nil when sessions are kept in memory only.
// Tokens are sealed when SESSION_ENCRYPTION_KEY is set.
//
//nolint:ireturn // the store implementation is selected by configuration.
func BuildSessionStore(cfg SessionStoreConfig) (ports.SessionStore, error) {
	var store ports.SessionStore
	switch cfg.Session.Persistence {
	case config.SessionPersistenceNone:
		return nil, nil
	case config.SessionPersistenceRedis:
		if cfg.RedisClient == nil {
			return nil, errors.New("redis session persistence requires a redis client")
		}
		store = redisadapter.NewSessionStoreWithOptions(cfg.RedisClient, redisadapter.SessionStoreOptions{
			Prefix: cfg.Session.RedisPrefix,
			TTL:    cfg.Session.TTL,
		})
	default:
		fs, err := filestore.NewSessionStore(cfg.Session.Dir)
		if err != nil {
			return nil, err
		}
		store = fs
	}

	if cfg.Session.EncryptionKey == "" {
		if cfg.Logger != nil {
			cfg.Logger.Warn("session encryption key is empty, tokens are persisted unencrypted",
				"persistence", string(cfg.Session.Persistence))
		}
		return store, nil
	}
	enc, err := cryptoutil.NewEncryptorFromKey(cfg.Session.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("create session encryptor: %w", err)
	}
	sealed, err := sealedstore.New(store, enc)
	if err != nil {
		return nil, err
	}
	return sealed, nil
}

// IdentityConfig contains configuration for the identity provider.
type IdentityConfig struct {
	Identity config.IdentityConfig
	Session  config.SessionConfig
	IsDev    bool
	Store    ports.SessionStore
	// Opener presents federated authorization URLs to the user.
	Opener loopback.Opener
	Logger *slog.Logger
}

// IdentityProvider is the provider plus the resources it holds open.
type IdentityProvider struct {
	ports.IdentityProvider
	popup *lazyPopup
}

// Close releases the federated callback listener if one was started.
func (p *IdentityProvider) Close(ctx context.Context) error {
	if p == nil || p.popup == nil {
		return nil
	}
	return p.popup.Close(ctx)
}

// BuildIdentityProvider creates the provider selected by IDENTITY_MODE.
func BuildIdentityProvider(ctx context.Context, cfg IdentityConfig) (*IdentityProvider, error) {
	switch cfg.Identity.Mode {
	case config.IdentityModeDev:
		prov, err := buildDevProvider(cfg)
		if err != nil {
			return nil, err
		}
		return &IdentityProvider{IdentityProvider: prov}, nil
	case config.IdentityModeToolkit:
		return buildToolkitProvider(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown identity mode %q", cfg.Identity.Mode)
	}
}

func buildDevProvider(cfg IdentityConfig) (*devauth.Provider, error) {
	dc := cfg.Identity.DevAuth
	users := make([]devauth.User, 0, len(dc.Users))
	for _, u := range dc.Users {
		users = append(users, devauth.User{
			Email:       u.Email,
			Password:    u.Password,
			DisplayName: u.DisplayName,
			Verified:    true,
		})
	}

	prov, err := devauth.NewProvider(devauth.Config{
		Users:          users,
		FederatedEmail: dc.FederatedEmail,
		SigningKey:     []byte(dc.SigningKey),
		TokenTTL:       dc.TokenTTL,
		Store:          cfg.Store,
		SessionKey:     cfg.Session.Key,
		Logger:         cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create dev identity provider: %w", err)
	}
	if cfg.Logger != nil {
		cfg.Logger.Warn("using in-memory dev identity provider", "users", len(users))
	}
	return prov, nil
}

func buildToolkitProvider(ctx context.Context, cfg IdentityConfig) (*IdentityProvider, error) {
	tc := cfg.Identity.Toolkit
	out := &IdentityProvider{}

	var (
		federated ports.FederatedProvider
		popup     ports.Popup
	)
	if g := cfg.Identity.Google; g.Enabled() && cfg.Opener != nil {
		federated = &lazyFederated{cfg: oidc.ProviderConfig{
			ClientID:     g.ClientID,
			ClientSecret: g.ClientSecret,
			RedirectURL:  g.RedirectURL,
			Scope:        g.Scope,
			DiscoveryURL: g.DiscoveryURL,
			ProviderID:   domainauth.MethodGoogle,
		}}
		out.popup = &lazyPopup{cfg: loopback.Config{
			Addr:    g.CallbackAddr,
			Open:    cfg.Opener,
			Timeout: g.Timeout,
			Logger:  cfg.Logger,
		}}
		popup = out.popup
	}

	prov, err := identitytoolkit.NewProvider(ctx, identitytoolkit.Config{
		APIKey:             tc.APIKey,
		ProjectID:          tc.ProjectID,
		BaseURL:            tc.BaseURL,
		SecureTokenURL:     tc.SecureTokenURL,
		JWKSURL:            tc.JWKSURL,
		SkipSignatureCheck: tc.SkipSignatureCheck && cfg.IsDev,
		Store:              cfg.Store,
		SessionKey:         cfg.Session.Key,
		Federated:          federated,
		Popup:              popup,
		Logger:             cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create identity toolkit provider: %w", err)
	}
	out.IdentityProvider = prov
	return out, nil
}

// lazyFederated defers OIDC discovery to the first federated sign-in.
type lazyFederated struct {
	cfg oidc.ProviderConfig

	mu   sync.Mutex
	prov *oidc.Provider
}

func (l *lazyFederated) provider(ctx context.Context) (*oidc.Provider, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.prov != nil {
		return l.prov, nil
	}
	prov, err := oidc.NewProvider(ctx, l.cfg)
	if err != nil {
		return nil, err
	}
	l.prov = prov
	return prov, nil
}

func (l *lazyFederated) Begin(ctx context.Context, in ports.BeginInput) (ports.BeginOutput, error) {
	prov, err := l.provider(ctx)
	if err != nil {
		return ports.BeginOutput{}, err
	}
	return prov.Begin(ctx, in)
}

func (l *lazyFederated) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.FederatedCredential, error) {
	prov, err := l.provider(ctx)
	if err != nil {
		return domainauth.FederatedCredential{}, err
	}
	return prov.Exchange(ctx, in)
}

var errPopupClosed = errors.New("federated callback listener closed")

// lazyPopup binds the loopback listener on first use.
type lazyPopup struct {
	cfg loopback.Config

	once  sync.Once
	popup *loopback.Popup
	err   error
}

func (l *lazyPopup) get() (*loopback.Popup, error) {
	l.once.Do(func() { l.popup, l.err = loopback.New(l.cfg) })
	return l.popup, l.err
}

func (l *lazyPopup) RedirectURL() string {
	p, err := l.get()
	if err != nil {
		return ""
	}
	return p.RedirectURL()
}

func (l *lazyPopup) Open(ctx context.Context, authURL string) (ports.CallbackResult, error) {
	p, err := l.get()
	if err != nil {
		return ports.CallbackResult{}, err
	}
	return p.Open(ctx, authURL)
}

// Close shuts the listener down if it was started.
func (l *lazyPopup) Close(ctx context.Context) error {
	l.once.Do(func() { l.err = errPopupClosed })
	if l.popup == nil {
		return nil
	}
	return l.popup.Close(ctx)
}
