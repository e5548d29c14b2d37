// Rankfusion - Hybrid Multi-Engine Content Ranking Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rankfusion

// Package config loads the application configuration with layered
// precedence: built-in defaults, then an optional YAML file, then
// environment variables. The merged result is validated before use.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/rankfusion/logging"
	"github.com/tomtom215/rankfusion/ranking"
)

// DefaultConfigPaths lists where config files are searched, first match
// wins.
var DefaultConfigPaths = []string{
	"rankfusion.yaml",
	"rankfusion.yml",
	"/etc/rankfusion/config.yaml",
	"/etc/rankfusion/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "RANKFUSION_CONFIG"

// Config is the full application configuration.
type Config struct {
	// Ranking configures the pipeline, engines, personalization, diversity
	// and cache.
	Ranking ranking.Config `json:"ranking" koanf:"ranking"`

	// Logging configures structured log output.
	Logging logging.Config `json:"logging" koanf:"logging"`

	// Maintenance configures the background service intervals.
	Maintenance MaintenanceConfig `json:"maintenance" koanf:"maintenance"`
}

// MaintenanceConfig holds background service intervals.
type MaintenanceConfig struct {
	// ProfileDecayInterval is how often the profile decay sweep runs.
	// Default: 1h.
	ProfileDecayInterval time.Duration `json:"profile_decay_interval" koanf:"profile_decay_interval" validate:"gt=0"`

	// CacheJanitorInterval is how often expired ensemble cache entries are
	// purged. Default: 1m.
	CacheJanitorInterval time.Duration `json:"cache_janitor_interval" koanf:"cache_janitor_interval" validate:"gt=0"`
}

// Default returns the configuration defaults applied before file and env
// layers.
func Default() *Config {
	return &Config{
		Ranking: *ranking.DefaultConfig(),
		Logging: logging.DefaultConfig(),
		Maintenance: MaintenanceConfig{
			ProfileDecayInterval: time.Hour,
			CacheJanitorInterval: time.Minute,
		},
	}
}

// Load reads configuration with precedence env > file > defaults. The
// file is located via RANKFUSION_CONFIG or the default search paths and
// is optional; a missing file leaves the defaults in place.
func Load() (*Config, error) {
	return LoadFrom(findConfigFile())
}

// LoadFrom reads configuration from a specific file path. An empty path
// skips the file layer.
func LoadFrom(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("RANKFUSION_", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the merged configuration: struct tags first, then the
// ranking package's semantic checks.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if err := c.Ranking.Validate(); err != nil {
		return fmt.Errorf("ranking configuration: %w", err)
	}
	return nil
}

// findConfigFile returns the first existing config file, or empty.
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

// envMappings maps RANKFUSION_-prefixed variable names (prefix stripped,
// lowercased) to config paths. Unmapped variables are ignored so stray
// environment noise never reaches the config.
var envMappings = map[string]string{
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"weight_technology":   "ranking.weights.technology",
	"weight_content_type": "ranking.weights.content_type",
	"weight_difficulty":   "ranking.weights.difficulty",
	"weight_quality":      "ranking.weights.quality",
	"weight_intent":       "ranking.weights.intent",

	"engine_timeout":           "ranking.engines.timeout",
	"engine_breaker_threshold": "ranking.engines.breaker_failure_threshold",
	"engine_breaker_open":      "ranking.engines.breaker_open_timeout",
	"engine_rank_weight":       "ranking.engines.rank_weight",

	"personalization_enabled":          "ranking.personalization.enabled",
	"personalization_min_interactions": "ranking.personalization.min_interactions",
	"personalization_max_boost":        "ranking.personalization.max_boost_factor",

	"diversity_enabled":          "ranking.diversity.enabled",
	"diversity_target":           "ranking.diversity.target_threshold",
	"diversity_preserve_quality": "ranking.diversity.preserve_quality",

	"max_candidates":  "ranking.limits.max_candidates",
	"default_limit":   "ranking.limits.default_limit",
	"max_limit":       "ranking.limits.max_limit",
	"request_timeout": "ranking.limits.request_timeout",

	"cache_enabled":     "ranking.cache.enabled",
	"cache_ttl":         "ranking.cache.ttl",
	"cache_max_entries": "ranking.cache.max_entries",

	"profile_decay_interval": "maintenance.profile_decay_interval",
	"cache_janitor_interval": "maintenance.cache_janitor_interval",
}

// envTransform maps an environment variable name to its config path.
func envTransform(key string) string {
	if mapped, ok := envMappings[stripPrefix(key)]; ok {
		return mapped
	}
	return ""
}

func stripPrefix(key string) string {
	const prefix = "RANKFUSION_"
	if len(key) <= len(prefix) {
		return ""
	}
	out := make([]byte, 0, len(key)-len(prefix))
	for i := len(prefix); i < len(key); i++ {
		c := key[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}
