// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

// Package config loads and validates the Commendo configuration from three
// layered sources: built-in defaults, an optional YAML file, and environment
// variables (highest priority).
package config

import (
	"fmt"
	"time"

	"github.com/dvenn/commendo/internal/recommend"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig     `koanf:"server"`
	Database DatabaseConfig   `koanf:"database"`
	Cache    CacheConfig      `koanf:"cache"`
	Engine   recommend.Config `koanf:"engine"`
	Rebuild  RebuildConfig    `koanf:"rebuild"`
	Storage  StorageConfig    `koanf:"storage"`
	Importer ImporterConfig   `koanf:"importer"`
	Security SecurityConfig   `koanf:"security"`
	Logging  LoggingConfig    `koanf:"logging"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Host is the listen address.
	Host string `koanf:"host"`

	// Port is the listen port.
	Port int `koanf:"port"`

	// Timeout is the read/write timeout for HTTP connections.
	Timeout time.Duration `koanf:"timeout"`

	// Environment is "development" or "production". Production tightens
	// validation (secrets become mandatory).
	Environment string `koanf:"environment"`

	// CORSOrigins lists allowed CORS origins.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitReqs is the per-IP request budget per RateLimitWindow.
	RateLimitReqs int `koanf:"rate_limit_reqs"`

	// RateLimitWindow is the rate limit window.
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	// RateLimitDisabled turns off API rate limiting entirely.
	RateLimitDisabled bool `koanf:"rate_limit_disabled"`
}

// DatabaseConfig configures the embedded DuckDB store.
type DatabaseConfig struct {
	// Path is the database file path. ":memory:" keeps everything
	// in-process, which the tests rely on.
	Path string `koanf:"path"`

	// MaxMemory bounds DuckDB's memory usage (e.g. "2GB").
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB thread count; 0 uses all cores.
	Threads int `koanf:"threads"`
}

// CacheConfig selects and configures the recommendation cache backend.
// TTL and invalidation behavior live in the engine section.
type CacheConfig struct {
	// Backend is "memory" or "badger".
	Backend string `koanf:"backend"`

	// Path is the badger directory; ignored by the memory backend.
	Path string `koanf:"path"`

	// MaxEntries bounds the memory backend; oldest-expiry entries are
	// evicted first.
	MaxEntries int `koanf:"max_entries"`
}

// RebuildConfig configures the periodic model rebuild scheduler.
type RebuildConfig struct {
	// Interval between scheduled rebuilds.
	Interval time.Duration `koanf:"interval"`

	// OnStartup triggers a rebuild as soon as the service starts when no
	// snapshot could be restored.
	OnStartup bool `koanf:"on_startup"`

	// Timeout bounds a single rebuild run.
	Timeout time.Duration `koanf:"timeout"`
}

// StorageConfig configures model snapshot persistence.
type StorageConfig struct {
	// SnapshotDir is where model snapshots are written; empty disables
	// snapshots.
	SnapshotDir string `koanf:"snapshot_dir"`

	// KeepVersions is how many snapshot versions to retain.
	KeepVersions int `koanf:"keep_versions"`
}

// ImporterConfig configures the catalog importer.
type ImporterConfig struct {
	// URL is the remote product dataset to fetch; empty disables remote
	// import.
	URL string `koanf:"url"`

	// SeedFile is a local JSON dataset used when URL is empty or
	// unreachable.
	SeedFile string `koanf:"seed_file"`

	// OnStartup imports the catalog during startup when the product table
	// is empty.
	OnStartup bool `koanf:"on_startup"`

	// Timeout bounds one fetch attempt.
	Timeout time.Duration `koanf:"timeout"`
}

// SecurityConfig configures authentication.
type SecurityConfig struct {
	// AuthMode is "jwt" or "none".
	AuthMode string `koanf:"auth_mode"`

	// JWTSecret signs bearer tokens (HS256). Required in production when
	// AuthMode is jwt.
	JWTSecret string `koanf:"jwt_secret"`

	// SessionTimeout is the issued token lifetime.
	SessionTimeout time.Duration `koanf:"session_timeout"`

	// AdminUsername and AdminPassword gate the token endpoint. The
	// password is compared with bcrypt when it looks like a bcrypt hash,
	// constant-time otherwise.
	AdminUsername string `koanf:"admin_username"`
	AdminPassword string `koanf:"admin_password"`

	// TokenRequestsPerMinute limits token issuance per client IP.
	TokenRequestsPerMinute int `koanf:"token_requests_per_minute"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Default returns a Config with all defaults applied. Load layers the
// config file and environment on top of this.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config with all defaults applied.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8180,
			Timeout:         30 * time.Second,
			Environment:     "development",
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Database: DatabaseConfig{
			Path:      "/data/commendo.duckdb",
			MaxMemory: "2GB",
			Threads:   0,
		},
		Cache: CacheConfig{
			Backend:    "memory",
			Path:       "/data/cache",
			MaxEntries: 10000,
		},
		Engine: *recommend.DefaultConfig(),
		Rebuild: RebuildConfig{
			Interval:  24 * time.Hour,
			OnStartup: true,
			Timeout:   30 * time.Minute,
		},
		Storage: StorageConfig{
			SnapshotDir:  "/data/models",
			KeepVersions: 3,
		},
		Importer: ImporterConfig{
			URL:       "",
			SeedFile:  "",
			OnStartup: true,
			Timeout:   30 * time.Second,
		},
		Security: SecurityConfig{
			AuthMode:               "jwt",
			JWTSecret:              "",
			SessionTimeout:         24 * time.Hour,
			AdminUsername:          "",
			AdminPassword:          "",
			TokenRequestsPerMinute: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the full configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %v", c.Server.Timeout)
	}
	if c.Server.Environment != "development" && c.Server.Environment != "production" {
		return fmt.Errorf("server.environment must be development or production, got %q", c.Server.Environment)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Cache.Backend {
	case "memory":
		if c.Cache.MaxEntries < 1 {
			return fmt.Errorf("cache.max_entries must be positive, got %d", c.Cache.MaxEntries)
		}
	case "badger":
		if c.Cache.Path == "" {
			return fmt.Errorf("cache.path is required for the badger backend")
		}
	default:
		return fmt.Errorf("cache.backend must be memory or badger, got %q", c.Cache.Backend)
	}

	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	if c.Rebuild.Interval <= 0 {
		return fmt.Errorf("rebuild.interval must be positive, got %v", c.Rebuild.Interval)
	}
	if c.Rebuild.Timeout <= 0 {
		return fmt.Errorf("rebuild.timeout must be positive, got %v", c.Rebuild.Timeout)
	}

	if c.Storage.SnapshotDir != "" && c.Storage.KeepVersions < 1 {
		return fmt.Errorf("storage.keep_versions must be positive, got %d", c.Storage.KeepVersions)
	}

	switch c.Security.AuthMode {
	case "jwt":
		if c.Server.Environment == "production" {
			if len(c.Security.JWTSecret) < 32 {
				return fmt.Errorf("security.jwt_secret must be at least 32 characters in production")
			}
			if c.Security.AdminUsername == "" || c.Security.AdminPassword == "" {
				return fmt.Errorf("security.admin_username and security.admin_password are required in production")
			}
		}
		if c.Security.SessionTimeout <= 0 {
			return fmt.Errorf("security.session_timeout must be positive, got %v", c.Security.SessionTimeout)
		}
	case "none":
		if c.Server.Environment == "production" {
			return fmt.Errorf("security.auth_mode none is not allowed in production")
		}
	default:
		return fmt.Errorf("security.auth_mode must be jwt or none, got %q", c.Security.AuthMode)
	}

	return nil
}
