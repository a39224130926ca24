package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"dashboard"`
	Password string `env:"PASSWORD" envDefault:"dashboard"`
	Name     string `env:"NAME"     envDefault:"dashboard"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
}

// SessionPersistence selects where the provider session survives between runs.
type SessionPersistence string

const (
	// SessionPersistenceFile stores the session in a file under the user's config directory.
	SessionPersistenceFile SessionPersistence = "file"
	// SessionPersistenceRedis stores the session in Redis.
	SessionPersistenceRedis SessionPersistence = "redis"
	// SessionPersistenceNone keeps the session in memory only.
	SessionPersistenceNone SessionPersistence = "none"
)

// UnmarshalText implements encoding.TextUnmarshaler for SessionPersistence.
func (p *SessionPersistence) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "file", "redis", "none":
		*p = SessionPersistence(v)
		return nil
	default:
		return fmt.Errorf("invalid SessionPersistence: %q (valid options: file, redis, none)", v)
	}
}

// SessionConfig controls provider session persistence.
type SessionConfig struct {
	Persistence SessionPersistence `env:"SESSION_PERSISTENCE"  envDefault:"file"`
	// Dir is the file store directory; defaults to <user config dir>/dashboard.
	Dir         string        `env:"SESSION_DIR"`
	TTL         time.Duration `env:"SESSION_TTL"          envDefault:"720h"`
	Key         string        `env:"SESSION_KEY"`
	RedisPrefix string        `env:"SESSION_REDIS_PREFIX" envDefault:"dashboard:session:"`
	// EncryptionKey seals persisted tokens: 64 hex characters, or any passphrase.
	EncryptionKey string `env:"SESSION_ENCRYPTION_KEY"`
}

// Sanitize resolves the default directory and TTL.
func (c *SessionConfig) Sanitize() {
	if c.TTL <= 0 {
		c.TTL = 30 * 24 * time.Hour
	}
	if c.Dir = strings.TrimSpace(c.Dir); c.Dir == "" {
		if base, err := os.UserConfigDir(); err == nil {
			c.Dir = filepath.Join(base, "dashboard")
		} else {
			c.Dir = filepath.Join(os.TempDir(), "dashboard")
		}
	}
}
