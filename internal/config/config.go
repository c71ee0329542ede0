// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - All functions accept context.Context as the first parameter.
// - Errors are wrapped with this package's sentinel kinds.
package config

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/okian/ratebook/internal/adapters/persistence"
	"github.com/okian/ratebook/internal/domain/model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Domain selects the collection served: puzzles or boardgames.
	Domain string `koanf:"domain"`

	// Backend selects persistence: json, sqlite or postgres.
	Backend string `koanf:"backend"`

	// DataFile is the JSON document used by the json backend.
	DataFile string `koanf:"data_file"`

	// DSN is the connection string (sqlite path or postgres URL) for SQL backends.
	DSN string `koanf:"dsn"`

	// SchemaFile overrides the embedded JSON Schema when set.
	SchemaFile string `koanf:"schema_file"`

	// NormalizeNames title-cases owner and item names.
	NormalizeNames bool `koanf:"normalize_names"`

	// SaveOnShutdown writes the ratings back to the backend on exit.
	SaveOnShutdown bool `koanf:"save_on_shutdown"`

	// ShutdownTimeoutMS bounds graceful HTTP shutdown plus the final save.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`

	// MetricsEnabled turns Prometheus recording on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsRefreshMS is how often the store size gauges are refreshed.
	MetricsRefreshMS int `koanf:"metrics_refresh_ms"`
}

// New creates a Config holding the defaults. Context is accepted first to
// satisfy the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		Domain:            model.Puzzles.Name,
		Backend:           persistence.BackendJSON,
		DataFile:          "ratings.json",
		NormalizeNames:    true,
		SaveOnShutdown:    true,
		ShutdownTimeoutMS: 10_000,
		MetricsEnabled:    true,
		MetricsRefreshMS:  10_000,
	}
}

// ShutdownTimeout returns ShutdownTimeoutMS as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

// MetricsRefresh returns MetricsRefreshMS as a duration.
func (c *Config) MetricsRefresh() time.Duration {
	return time.Duration(c.MetricsRefreshMS) * time.Millisecond
}

// ResolveDomain returns the configured domain.
func (c *Config) ResolveDomain() (model.Domain, error) {
	return model.LookupDomain(c.Domain)
}

// Validate reports the first invalid setting.
func (c *Config) Validate(_ context.Context) error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.ShutdownTimeoutMS <= 0:
		return fmt.Errorf("%w: shutdown_timeout_ms must be positive", ErrInvalidConfig)
	case c.MetricsRefreshMS <= 0:
		return fmt.Errorf("%w: metrics_refresh_ms must be positive", ErrInvalidConfig)
	}
	if _, err := c.ResolveDomain(); err != nil {
		return fmt.Errorf("%w: domain must be one of %s: %w", ErrInvalidConfig, strings.Join(model.DomainNames(), ", "), err)
	}

	backend := strings.ToLower(strings.TrimSpace(c.Backend))
	if !slices.Contains(persistence.Backends(), backend) {
		return fmt.Errorf("%w: backend must be one of %s, got %q", ErrInvalidConfig, strings.Join(persistence.Backends(), ", "), c.Backend)
	}
	if backend == persistence.BackendJSON && strings.TrimSpace(c.DataFile) == "" {
		return fmt.Errorf("%w: data_file is required for the json backend", ErrInvalidConfig)
	}
	if backend != persistence.BackendJSON && strings.TrimSpace(c.DSN) == "" {
		return fmt.Errorf("%w: dsn is required for the %s backend", ErrInvalidConfig, backend)
	}

	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
