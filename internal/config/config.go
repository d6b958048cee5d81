// ABOUTME: Configuration loading and parsing for the station console.
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete station console configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Admin   AdminConfig   `yaml:"admin"`
	Map     MapConfig     `yaml:"map"`
	Journal JournalConfig `yaml:"journal"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds backend connection configuration.
type ServerConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TimeoutRaw string `yaml:"timeout"`
}

// AdminConfig holds admin panel behavior configuration.
type AdminConfig struct {
	// ProtectedAccount is the root identifier exempt from deletion.
	ProtectedAccount string `yaml:"protected_account"`
}

// MapConfig holds the GPS picker's default view.
type MapConfig struct {
	DefaultLatitude  float64 `yaml:"default_latitude"`
	DefaultLongitude float64 `yaml:"default_longitude"`
	DefaultZoom      int     `yaml:"default_zoom"`
}

// JournalConfig holds the local action journal configuration.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no config file exists. The
// backend URL targets a local development server; the map view falls back
// to central Tokyo.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			URL:     "http://localhost:3000",
			Timeout: 15 * time.Second,
		},
		Admin: AdminConfig{ProtectedAccount: "root"},
		Map: MapConfig{
			DefaultLatitude:  35.6762,
			DefaultLongitude: 139.6503,
			DefaultZoom:      10,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads a configuration file from the given path and returns a parsed
// Config merged over the defaults. Environment variables in the format
// ${VAR_NAME} are expanded. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// DefaultPath returns the standard config file location,
// $XDG_CONFIG_HOME/cosmic-watch/config.yaml.
func DefaultPath() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "cosmic-watch", "config.yaml"), nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables become empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and
// valid. Returns an error describing the first failure encountered.
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("server.url is required")
	}
	if c.Admin.ProtectedAccount == "" {
		return fmt.Errorf("admin.protected_account is required")
	}
	if c.Map.DefaultZoom <= 0 {
		return fmt.Errorf("map.default_zoom must be positive")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values.
func parseDurations(cfg *Config) error {
	if cfg.Server.TimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.Server.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing server.timeout %q: %w", cfg.Server.TimeoutRaw, err)
		}
		cfg.Server.Timeout = d
	}
	return nil
}
