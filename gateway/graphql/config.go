package graphql

import (
	"strings"
	"time"

	"github.com/c360/genomegate/config"
	"github.com/c360/genomegate/errors"
)

// Config holds configuration for the GraphQL HTTP endpoint
type Config struct {
	// BindAddress is the HTTP bind address (default: ":8000")
	BindAddress string `json:"bind_address"`

	// Path serves queries on POST and the playground on GET (default: "/")
	Path string `json:"path"`

	// EnablePlayground serves the GraphQL playground on GET (default: true)
	EnablePlayground bool `json:"enable_playground"`

	// CORSOrigins lists allowed origins; empty disables CORS headers
	CORSOrigins []string `json:"cors_origins,omitempty"`

	// Timeout bounds a single query (default: 30s)
	Timeout time.Duration `json:"timeout,omitempty"`

	// RateLimit caps queries per second across the process; 0 disables it
	RateLimit float64 `json:"rate_limit,omitempty"`

	// MaxBodyBytes caps the request body (default: 1 MiB)
	MaxBodyBytes int64 `json:"max_body_bytes,omitempty"`
}

// FromGeneral builds the endpoint configuration from the [GENERAL] section.
func FromGeneral(g config.GeneralConfig) Config {
	cfg := DefaultConfig()
	if g.BindAddress != "" {
		cfg.BindAddress = g.BindAddress
	}
	if g.Path != "" {
		cfg.Path = g.Path
	}
	if g.Timeout > 0 {
		cfg.Timeout = g.Timeout
	}
	cfg.RateLimit = g.RateLimit
	cfg.CORSOrigins = nil
	for _, o := range strings.Split(g.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}
	return cfg
}

// Validate ensures the configuration is valid
func (c *Config) Validate() error {
	if c.BindAddress == "" {
		c.BindAddress = ":8000"
	}

	if c.Path == "" {
		c.Path = "/"
	}
	if c.Path[0] != '/' {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"path must start with /")
	}

	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Timeout < 100*time.Millisecond || c.Timeout > 5*time.Minute {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"timeout must be between 100ms and 5m")
	}

	if c.RateLimit < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"rate_limit must not be negative")
	}

	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = 1 << 20
	}

	return nil
}

// DefaultConfig returns default endpoint configuration
func DefaultConfig() Config {
	return Config{
		BindAddress:      ":8000",
		Path:             "/",
		EnablePlayground: true,
		CORSOrigins:      []string{"*"},
		Timeout:          30 * time.Second,
		MaxBodyBytes:     1 << 20,
	}
}
