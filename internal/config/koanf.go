// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order. The
// first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/commendo/config.yaml",
	"/etc/commendo/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load builds the configuration from three layers:
//  1. struct defaults
//  2. an optional YAML config file
//  3. environment variables (highest priority)
//
// The result is validated before being returned.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are the paths parsed from comma-separated env strings.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values into slices.
// Env vars arrive as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables are dropped so random environment noise never pollutes
// the configuration.
//
// Examples:
//   - SERVER_PORT -> server.port
//   - DATABASE_PATH -> database.path
//   - ENGINE_TOP_K -> engine.top_k
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server
		"server_host":         "server.host",
		"server_port":         "server.port",
		"http_port":           "server.port",
		"server_timeout":      "server.timeout",
		"environment":         "server.environment",
		"cors_origins":        "server.cors_origins",
		"rate_limit_requests": "server.rate_limit_reqs",
		"rate_limit_window":   "server.rate_limit_window",
		"disable_rate_limit":  "server.rate_limit_disabled",

		// Database
		"database_path":       "database.path",
		"duckdb_path":         "database.path",
		"database_max_memory": "database.max_memory",
		"database_threads":    "database.threads",

		// Cache backend
		"cache_backend":     "cache.backend",
		"cache_path":        "cache.path",
		"cache_max_entries": "cache.max_entries",

		// Engine tunables
		"engine_top_k":                 "engine.top_k",
		"engine_min_similarity":        "engine.min_similarity",
		"engine_weight_view":           "engine.weights.view",
		"engine_weight_like":           "engine.weights.like",
		"engine_weight_purchase":       "engine.weights.purchase",
		"engine_decay_half_life":       "engine.decay_half_life",
		"engine_view_duration_ref":     "engine.view_duration_ref",
		"engine_view_duration_cap":     "engine.view_duration_cap",
		"engine_exclude_purchased":     "engine.exclude_purchased",
		"engine_exclude_liked":         "engine.exclude_liked",
		"engine_trending_window_days":  "engine.trending_window_days",
		"engine_max_window_days":       "engine.max_window_days",
		"engine_default_limit":         "engine.default_limit",
		"engine_max_limit":             "engine.max_limit",
		"cache_ttl":                    "engine.cache_ttl",
		"cache_enabled":                "engine.cache_enabled",
		"cache_invalidate_on_rebuild":  "engine.invalidate_on_rebuild",
		"similarity_threshold":         "engine.min_similarity",

		// Rebuild scheduler
		"rebuild_interval":   "rebuild.interval",
		"rebuild_on_startup": "rebuild.on_startup",
		"rebuild_timeout":    "rebuild.timeout",

		// Snapshot storage
		"snapshot_dir":           "storage.snapshot_dir",
		"snapshot_keep_versions": "storage.keep_versions",

		// Importer
		"mock_data_url":      "importer.url",
		"importer_url":       "importer.url",
		"importer_seed_file": "importer.seed_file",
		"import_on_startup":  "importer.on_startup",
		"importer_timeout":   "importer.timeout",

		// Security
		"auth_mode":                 "security.auth_mode",
		"jwt_secret":                "security.jwt_secret",
		"session_timeout":           "security.session_timeout",
		"admin_username":            "security.admin_username",
		"admin_password":            "security.admin_password",
		"token_requests_per_minute": "security.token_requests_per_minute",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
