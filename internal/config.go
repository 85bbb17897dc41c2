package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/vaultgraph/internal/ignore"
	"github.com/starford/vaultgraph/internal/snapshot"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	Cache  CacheConfig       `yaml:"cache"`
	Search SearchConfig      `yaml:"search"`
	Graph  GraphConfig       `yaml:"graph"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Vault.Validate(); err != nil {
		return fmt.Errorf("vault: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.Search.Validate(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	return c.Graph.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig describes the Markdown vault directory.
//
// DefaultNote is served when a note is requested without an identifier. Ignore
// holds gitignore-style patterns applied on top of the built-in ones and the
// vault's own .vaultignore file.
type VaultConfig struct {
	Path        string   `yaml:"path"`
	DefaultNote string   `yaml:"default_note"`
	Ignore      []string `yaml:"ignore"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	); err != nil {
		return err
	}
	if _, err := ignore.New(c.Ignore...); err != nil {
		return err
	}
	return nil
}

// CacheConfig controls when the graph is rebuilt.
//
// Mode "process" builds once and rebuilds on file changes when Watch is set;
// "request" rebuilds on every request, which suits editing without a watcher.
type CacheConfig struct {
	Mode          string        `yaml:"mode"`
	Watch         bool          `yaml:"watch"`
	GraphThrottle time.Duration `yaml:"graph_throttle"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(snapshot.ModeProcess, snapshot.ModeRequest)),
		validation.Field(&c.GraphThrottle, validation.Min(time.Duration(0))),
	)
}

// SearchConfig holds the full-text index configuration. The database is a
// derived cache and may be deleted at any time.
type SearchConfig struct {
	Enabled    bool   `yaml:"enabled"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Validate validates the search configuration.
func (c *SearchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SQLitePath, validation.When(c.Enabled, validation.Required)),
	)
}

// GraphConfig tunes graph construction. Workers below one means GOMAXPROCS.
type GraphConfig struct {
	Workers int `yaml:"workers"`
}

// Validate validates the graph configuration.
func (c *GraphConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Workers, validation.Min(0), validation.Max(256)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path:        "./vault",
			DefaultNote: "Jeseong",
		},
		Cache: CacheConfig{
			Mode:          snapshot.ModeProcess,
			Watch:         true,
			GraphThrottle: 2 * time.Second,
		},
		Search: SearchConfig{
			Enabled:    true,
			SQLitePath: "./vaultgraph.db",
		},
	}
}
