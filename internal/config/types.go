package config

import (
	"time"

	"github.com/sakif/docrunner/internal/annotate"
	"github.com/sakif/docrunner/internal/editor"
)

// Config is the top-level docrunner configuration, corresponding to docrunner.yml.
type Config struct {
	Server      ServerConfig         `yaml:"server" koanf:"server"`
	Book        BookConfig           `yaml:"book" koanf:"book"`
	Database    DatabaseConfig       `yaml:"database" koanf:"database"`
	Playground  PlaygroundConfig     `yaml:"playground" koanf:"playground"`
	Auth        AuthConfig           `yaml:"auth" koanf:"auth"`
	Editor      editor.Capability    `yaml:"editor" koanf:"editor"`
	Conventions annotate.Conventions `yaml:"conventions" koanf:"conventions"`
	Log         LogConfig            `yaml:"log" koanf:"log"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port int `yaml:"port" koanf:"port"`
}

// BookConfig points at the generated pages.
type BookConfig struct {
	Dir string `yaml:"dir" koanf:"dir"`
	// Watch invalidates cached pages when their files change.
	Watch bool `yaml:"watch" koanf:"watch"`
}

// DatabaseConfig holds the preference store settings.
type DatabaseConfig struct {
	Path string `yaml:"path" koanf:"path"`
}

// PlaygroundConfig describes the remote compile-and-execute service.
type PlaygroundConfig struct {
	URL     string        `yaml:"url" koanf:"url"`
	Timeout time.Duration `yaml:"timeout" koanf:"timeout"`
}

// AuthConfig holds the viewer cookie settings.
type AuthConfig struct {
	// Secret signs viewer cookies. Empty means a random secret per process,
	// so preferences do not survive a restart.
	Secret    string        `yaml:"secret" koanf:"secret"`
	ViewerTTL time.Duration `yaml:"viewer_ttl" koanf:"viewer_ttl"`
}

// LogConfig selects the log output.
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
}
