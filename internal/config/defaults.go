package config

import (
	"time"

	"github.com/sakif/docrunner/internal/annotate"
	"github.com/sakif/docrunner/internal/executor"
)

// DefaultPlaygroundURL is the public Rust playground.
const DefaultPlaygroundURL = "https://play.rust-lang.org"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
		},
		Book: BookConfig{
			Dir:   "book",
			Watch: false,
		},
		Database: DatabaseConfig{
			Path: "data/docrunner.db",
		},
		Playground: PlaygroundConfig{
			URL:     DefaultPlaygroundURL,
			Timeout: executor.DefaultTimeout,
		},
		Auth: AuthConfig{
			ViewerTTL: 365 * 24 * time.Hour,
		},
		Conventions: annotate.DefaultConventions(),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
