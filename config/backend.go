package config

import (
	"fmt"
	"strings"
	"time"
)

// ProfileBackendMode selects where profile records live.
type ProfileBackendMode string

const (
	// ProfileBackendHTTP calls the application API.
	ProfileBackendHTTP ProfileBackendMode = "http"
	// ProfileBackendPostgres reads and writes the profiles table directly.
	ProfileBackendPostgres ProfileBackendMode = "postgres"
)

// UnmarshalText implements encoding.TextUnmarshaler for ProfileBackendMode.
func (m *ProfileBackendMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "http", "postgres":
		*m = ProfileBackendMode(v)
		return nil
	default:
		return fmt.Errorf("invalid ProfileBackendMode: %q (valid options: http, postgres)", v)
	}
}

// BackendConfig configures the profile and billing backend.
type BackendConfig struct {
	Mode ProfileBackendMode `env:"PROFILE_BACKEND" envDefault:"http"`

	APIURL     string        `env:"API_URL"         envDefault:"http://localhost:5000/api"`
	Timeout    time.Duration `env:"API_TIMEOUT"     envDefault:"15s"`
	UserPath   string        `env:"API_USER_PATH"   envDefault:"/users/me"`
	RecordExpr string        `env:"API_RECORD_EXPR" envDefault:"data.user"`
}

// Sanitize trims values and applies defaults.
func (c *BackendConfig) Sanitize() {
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.UserPath = strings.TrimSpace(c.UserPath); c.UserPath == "" {
		c.UserPath = "/users/me"
	}
	if c.RecordExpr = strings.TrimSpace(c.RecordExpr); c.RecordExpr == "" {
		c.RecordExpr = "data.user"
	}
}
