package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/nicetouch/dashboard/config"
	"github.com/nicetouch/dashboard/internal/adapters/backend"
	"github.com/nicetouch/dashboard/internal/data"
	"github.com/nicetouch/dashboard/internal/ports"
)

// BackendConfig contains configuration for the profile and billing backends.
type BackendConfig struct {
	Backend  config.BackendConfig
	Postgres config.DBConfig
	Logger   *slog.Logger
}

// Backends are the backend ports the services depend on.
type Backends struct {
	Profile ports.ProfileBackend
	Billing ports.BillingBackend
	// DB is set when profiles are stored in Postgres; the caller closes it.
	DB *sql.DB
}

// BuildBackends creates the profile and billing backends. Billing always goes through
// the HTTP API; profiles use Postgres when PROFILE_BACKEND=postgres.
func BuildBackends(ctx context.Context, cfg BackendConfig) (*Backends, error) {
	api, err := backend.NewClient(backend.Config{
		BaseURL:    cfg.Backend.APIURL,
		Timeout:    cfg.Backend.Timeout,
		UserPath:   cfg.Backend.UserPath,
		RecordExpr: cfg.Backend.RecordExpr,
		Logger:     cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create backend client: %w", err)
	}

	out := &Backends{Profile: api, Billing: api}
	if cfg.Backend.Mode != config.ProfileBackendPostgres {
		return out, nil
	}

	db, err := ConnectDB(ctx, cfg.Postgres, cfg.Logger)
	if err != nil {
		return nil, err
	}
	out.DB = db
	out.Profile = data.NewProfileRepo(db)
	return out, nil
}
