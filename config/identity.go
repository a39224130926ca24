package config

import (
	"fmt"
	"strings"
	"time"
)

// IdentityMode selects the identity provider implementation.
type IdentityMode string

const (
	// IdentityModeToolkit talks to the hosted Identity Toolkit REST API.
	IdentityModeToolkit IdentityMode = "toolkit"
	// IdentityModeDev uses the in-memory provider (for development only).
	IdentityModeDev IdentityMode = "dev"
)

// UnmarshalText implements encoding.TextUnmarshaler for IdentityMode.
func (m *IdentityMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "toolkit", "dev":
		*m = IdentityMode(v)
		return nil
	default:
		return fmt.Errorf("invalid IdentityMode: %q (valid options: toolkit, dev)", v)
	}
}

// ToolkitConfig configures the Identity Toolkit provider.
type ToolkitConfig struct {
	APIKey         string `env:"API_KEY"`
	ProjectID      string `env:"PROJECT_ID"`
	BaseURL        string `env:"TOOLKIT_URL"`
	SecureTokenURL string `env:"SECURE_TOKEN_URL"`
	JWKSURL        string `env:"JWKS_URL"`
	// SkipSignatureCheck accepts unsigned tokens; only honoured in dev mode.
	SkipSignatureCheck bool `env:"SKIP_SIGNATURE_CHECK" envDefault:"false"`
}

// GoogleConfig configures federated sign-in through an OIDC provider.
type GoogleConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	// RedirectURL is the registered callback; the loopback listener's URL is used when empty.
	RedirectURL  string        `env:"REDIRECT_URL"`
	DiscoveryURL string        `env:"DISCOVERY_URL" envDefault:"https://accounts.google.com"`
	Scope        string        `env:"SCOPE"         envDefault:"openid email profile"`
	CallbackAddr string        `env:"CALLBACK_ADDR" envDefault:"127.0.0.1:0"`
	Timeout      time.Duration `env:"TIMEOUT"       envDefault:"5m"`
}

// Enabled reports whether federated sign-in is configured.
func (c GoogleConfig) Enabled() bool {
	return c.ClientID != "" && c.DiscoveryURL != ""
}

// DevUser is one account of the dev provider, written as "email:password[:Display Name]".
type DevUser struct {
	Email       string
	Password    string
	DisplayName string
}

// UnmarshalText implements encoding.TextUnmarshaler for DevUser.
func (u *DevUser) UnmarshalText(text []byte) error {
	parts := strings.SplitN(strings.TrimSpace(string(text)), ":", 3)
	if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" {
		return fmt.Errorf("invalid dev user %q (expected email:password[:name])", string(text))
	}
	u.Email = strings.TrimSpace(parts[0])
	u.Password = parts[1]
	if len(parts) == 3 {
		u.DisplayName = strings.TrimSpace(parts[2])
	}
	return nil
}

// DevAuthConfig controls the in-memory dev provider.
// Used when IDENTITY_MODE=dev for development and testing.
type DevAuthConfig struct {
	Users          []DevUser     `env:"USERS"           envDefault:"dev@example.com:devpassword:Dev User" envSeparator:";"`
	FederatedEmail string        `env:"FEDERATED_EMAIL" envDefault:"dev@example.com"`
	SigningKey     string        `env:"SIGNING_KEY"`
	TokenTTL       time.Duration `env:"TOKEN_TTL"       envDefault:"1h"`
}

// IdentityConfig groups all identity-provider configuration.
type IdentityConfig struct {
	// Mode determines which identity provider to use.
	Mode IdentityMode `env:"IDENTITY_MODE" envDefault:"toolkit"`

	Toolkit ToolkitConfig `envPrefix:"IDENTITY_"`
	Google  GoogleConfig  `envPrefix:"GOOGLE_"`
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`
}

// Sanitize trims values and applies defaults.
func (c *IdentityConfig) Sanitize() {
	c.Toolkit.APIKey = strings.TrimSpace(c.Toolkit.APIKey)
	c.Toolkit.ProjectID = strings.TrimSpace(c.Toolkit.ProjectID)
	c.Google.ClientID = strings.TrimSpace(c.Google.ClientID)
	c.Google.DiscoveryURL = strings.TrimSpace(c.Google.DiscoveryURL)
	if c.Google.Timeout <= 0 {
		c.Google.Timeout = 5 * time.Minute
	}
	if strings.TrimSpace(c.Google.CallbackAddr) == "" {
		c.Google.CallbackAddr = "127.0.0.1:0"
	}
	if c.DevAuth.TokenTTL <= 0 {
		c.DevAuth.TokenTTL = time.Hour
	}
}

// Validate reports configuration that cannot produce a working provider.
func (c IdentityConfig) Validate(isDev bool) error {
	switch c.Mode {
	case IdentityModeToolkit:
		if c.Toolkit.APIKey == "" || c.Toolkit.ProjectID == "" {
			return fmt.Errorf("IDENTITY_API_KEY and IDENTITY_PROJECT_ID are required when IDENTITY_MODE=%s", c.Mode)
		}
		if c.Toolkit.SkipSignatureCheck && !isDev {
			return fmt.Errorf("IDENTITY_SKIP_SIGNATURE_CHECK requires DEV=true")
		}
	case IdentityModeDev:
		if !isDev {
			return fmt.Errorf("IDENTITY_MODE=%s requires DEV=true", c.Mode)
		}
	default:
		return fmt.Errorf("unknown identity mode %q", c.Mode)
	}
	return nil
}
