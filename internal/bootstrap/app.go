package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/nicetouch/dashboard/config"
	"github.com/nicetouch/dashboard/internal/adapters/loopback"
	"github.com/nicetouch/dashboard/internal/observability/statsd"
	"github.com/nicetouch/dashboard/internal/ports"
	"github.com/nicetouch/dashboard/internal/service"
)

// Options carries process-level collaborators that do not come from the environment.
type Options struct {
	// Opener presents federated authorization URLs; federated sign-in is unavailable without it.
	Opener loopback.Opener
	// Provider replaces the configured identity provider.
	Provider ports.IdentityProvider
}

// App is the wired set of services for one process.
type App struct {
	Config      *config.AppConfig
	Logger      *slog.Logger
	Sessions    *service.SessionManager
	Profiles    *service.ProfileSynchronizer
	Credentials *service.CredentialLinker
	Billing     *service.BillingService
	Metrics     statsd.Sink

	closers []func(context.Context) error
}

// Build wires every adapter and service from cfg. Nothing is started; call Start.
func Build(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger, opts Options) (_ *App, err error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			err = errors.Join(err, app.Close(context.WithoutCancel(ctx)))
		}
	}()

	metricsSink, err := buildMetrics(cfg.Observability.Metrics, logger)
	if err != nil {
		return nil, err
	}
	app.Metrics = metricsSink
	if c, ok := metricsSink.(*statsd.Client); ok {
		app.addCloser(func(context.Context) error { return c.Close() })
	}

	provider := opts.Provider
	if provider == nil {
		provider, err = app.buildProvider(ctx, opts)
		if err != nil {
			return nil, err
		}
	}

	backends, err := BuildBackends(ctx, BackendConfig{
		Backend:  cfg.Backend,
		Postgres: cfg.Postgres,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	if backends.DB != nil {
		app.addCloser(func(context.Context) error { return backends.DB.Close() })
	}

	app.Sessions = service.NewSessionManager(service.SessionManagerOptions{
		Provider: provider,
		Logger:   logger,
		Metrics:  metricsSink,
	})
	app.Profiles, err = service.NewProfileSynchronizer(service.ProfileSynchronizerOptions{
		Sessions: app.Sessions,
		Backend:  backends.Profile,
		Logger:   logger,
		Metrics:  metricsSink,
	})
	if err != nil {
		return nil, fmt.Errorf("create profile synchronizer: %w", err)
	}
	app.Credentials, err = service.NewCredentialLinker(service.CredentialLinkerOptions{
		Sessions: app.Sessions,
		Provider: provider,
		Logger:   logger,
		Metrics:  metricsSink,
	})
	if err != nil {
		return nil, fmt.Errorf("create credential linker: %w", err)
	}
	app.Billing, err = service.NewBillingService(service.BillingServiceOptions{
		Sessions: app.Sessions,
		Backend:  backends.Billing,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create billing service: %w", err)
	}
	return app, nil
}

func (a *App) buildProvider(ctx context.Context, opts Options) (ports.IdentityProvider, error) {
	var rdb redis.UniversalClient
	if a.Config.NeedsRedis() {
		client, err := ConnectRedis(ctx, a.Config.Redis, a.Logger)
		if err != nil {
			return nil, err
		}
		rdb = client
		a.addCloser(func(context.Context) error { return client.Close() })
	}

	store, err := BuildSessionStore(SessionStoreConfig{
		Session:     a.Config.Session,
		RedisClient: rdb,
		Logger:      a.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create session store: %w", err)
	}

	prov, err := BuildIdentityProvider(ctx, IdentityConfig{
		Identity: a.Config.Identity,
		Session:  a.Config.Session,
		IsDev:    a.Config.IsDev,
		Store:    store,
		Opener:   opts.Opener,
		Logger:   a.Logger,
	})
	if err != nil {
		return nil, err
	}
	a.addCloser(prov.Close)
	return prov, nil
}

func buildMetrics(cfg config.ObservabilityMetricsConfig, logger *slog.Logger) (statsd.Sink, error) {
	if !cfg.IsEnabled() {
		return statsd.Discard, nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled:    true,
		Address:    cfg.StatsdAddress,
		Prefix:     cfg.Prefix,
		GlobalTags: cfg.Tags,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create statsd client: %w", err)
	}
	return client, nil
}

func (a *App) addCloser(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// Start subscribes the session manager to the identity provider.
// The profile synchronizer is started separately by callers that watch it.
func (a *App) Start(ctx context.Context) error {
	return a.Sessions.Start(ctx)
}

// Close stops the services and releases adapters in reverse order of creation.
func (a *App) Close(ctx context.Context) error {
	if a.Profiles != nil {
		a.Profiles.Stop()
	}
	if a.Sessions != nil {
		a.Sessions.Close()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
