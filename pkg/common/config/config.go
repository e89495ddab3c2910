package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Netflix/go-env"
)

// Config holds all tool settings, loaded from environment variables.
// It is constructed once in main and passed to every component explicitly.
type Config struct {
	Host     string `env:"HOST,default=0.0.0.0"`
	Port     int    `env:"PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=debug"`

	// PublicBaseURL is the externally visible base of this tool. Launch,
	// login and JWKS URLs advertised to platforms are derived from it.
	PublicBaseURL string `env:"PUBLIC_BASE_URL,default=http://localhost:8080"`

	ToolName        string `env:"TOOL_NAME,default=LTI 1.3 example"`
	ToolDescription string `env:"TOOL_DESCRIPTION,default=A demonstration LTI 1.3 tool"`

	PlatformsDBPath string `env:"PLATFORMS_SQLITE_PATH,default=./platforms.db"`
	LaunchesDBPath  string `env:"LAUNCHES_SQLITE_PATH,default=./launches.db"`

	// StateTTL bounds the login state/nonce lifetime; LaunchTTL bounds how
	// long a validated launch stays readable from the cache.
	StateTTL  time.Duration `env:"STATE_TTL,default=15m"`
	LaunchTTL time.Duration `env:"LAUNCH_TTL,default=2h"`

	// NonceExemptIssuer skips nonce comparison for deep-link launches from
	// this issuer. The IMS reference implementation sends an invalid nonce
	// on deep-link launches; this keeps the workaround visible and removable.
	NonceExemptIssuer string `env:"NONCE_EXEMPT_ISSUER,default=http://imsglobal.org"`

	HTTPClientTimeout time.Duration `env:"HTTP_CLIENT_TIMEOUT,default=10s"`
	ShutdownTimeout   time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=10s"`

	// Signing key material. When all three are empty a dev key is generated
	// at startup and export instructions are printed.
	ToolKID           string `env:"TOOL_KID"`
	ToolPrivateKeyPEM string `env:"TOOL_PRIVATE_KEY_PEM"`
	ToolPrivateKeyB64 string `env:"TOOL_PRIVATE_KEY_B64"`
}

// Load reads the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal environment: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	u, err := url.Parse(cfg.PublicBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("PUBLIC_BASE_URL must be an absolute URL")
	}
	if cfg.StateTTL <= 0 || cfg.LaunchTTL <= 0 {
		return fmt.Errorf("STATE_TTL and LAUNCH_TTL must be positive")
	}
	return nil
}

// LaunchURL is the tool's launch endpoint as seen by platforms.
func (c *Config) LaunchURL() string { return c.PublicBaseURL + "/launch/" }

// LoginURL is the tool's OIDC login initiation endpoint.
func (c *Config) LoginURL() string { return c.PublicBaseURL + "/login/" }

// JWKSURL is where the tool publishes its public key set.
func (c *Config) JWKSURL() string { return c.PublicBaseURL + "/jwks/" }
