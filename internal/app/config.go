package app

import (
	"errors"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// DefaultScopes is the consent scope set requested from Xero: OpenID Connect
// identity plus the accounting endpoints the demo touches.
const DefaultScopes = "openid profile email accounting.settings accounting.reports.read accounting.journals.read accounting.contacts accounting.attachments accounting.transactions offline_access"

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":5000"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"60s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"60s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"720h"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	ClientID     string `envconfig:"CLIENT_ID" required:"true"`
	ClientSecret string `envconfig:"CLIENT_SECRET" required:"true"`
	RedirectURI  string `envconfig:"REDIRECT_URI" required:"true"`
	Scopes       string `envconfig:"SCOPES"`

	AuthorizeURL   string `envconfig:"XERO_AUTHORIZE_URL" default:"https://login.xero.com/identity/connect/authorize"`
	TokenURL       string `envconfig:"XERO_TOKEN_URL" default:"https://identity.xero.com/connect/token"`
	AccountingURL  string `envconfig:"XERO_ACCOUNTING_URL" default:"https://api.xero.com/api.xro/2.0"`
	ConnectionsURL string `envconfig:"XERO_CONNECTIONS_URL" default:"https://api.xero.com/connections"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret must be provided")
	}
	if cfg.CSRFSecret == "" {
		return nil, errors.New("csrf secret must be provided")
	}
	if cfg.Scopes == "" {
		cfg.Scopes = DefaultScopes
	}
	return &cfg, nil
}

// ScopeList returns the configured scopes as a slice.
func (c *Config) ScopeList() []string {
	return strings.Fields(c.Scopes)
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
