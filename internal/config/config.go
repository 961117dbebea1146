// Package config loads docrunner's settings from a YAML file and DOCRUNNER_*
// environment variables.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DOCRUNNER_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides. Nested keys are separated by a double
// underscore: DOCRUNNER_PLAYGROUND__URL sets playground.url.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}

	if c.Book.Dir == "" {
		return fmt.Errorf("book.dir is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	u, err := url.Parse(c.Playground.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid playground.url %q: must be an http(s) URL", c.Playground.URL)
	}
	if c.Playground.Timeout <= 0 {
		return fmt.Errorf("playground.timeout must be positive")
	}

	if c.Auth.Secret != "" && len(c.Auth.Secret) < 16 {
		return fmt.Errorf("auth.secret must be at least 16 characters")
	}
	if c.Auth.ViewerTTL <= 0 {
		return fmt.Errorf("auth.viewer_ttl must be positive")
	}

	if c.Conventions.HiddenMarker == "" {
		return fmt.Errorf("conventions.hidden_marker is required")
	}

	if _, ok := validLevels[c.Log.Level]; !ok {
		return fmt.Errorf("invalid log.level %q: must be one of debug, info, warn, error", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log.format %q: must be text or json", c.Log.Format)
	}

	return nil
}

// Level returns the configured slog level.
func (c *Config) Level() slog.Level {
	return validLevels[c.Log.Level]
}
