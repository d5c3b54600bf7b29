// Package config handles configuration loading and validation for presetctl.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds the complete presetctl configuration.
type Config struct {
	// Storage configuration for the preset database.
	Storage StorageConfig `toml:"storage"`

	// Registry configuration for plugin setting descriptors.
	Registry RegistryConfig `toml:"registry"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging"`
}

// StorageConfig holds persistence configuration.
type StorageConfig struct {
	// Path is the path to the SQLite database file.
	Path string `toml:"path"`
}

// RegistryConfig holds setting descriptor configuration.
type RegistryConfig struct {
	// Dir is the directory of plugin descriptor files (<plugin>.yaml).
	// Empty means core settings only.
	Dir string `toml:"dir"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `toml:"level"`

	// Format is the log output format: text or json.
	Format string `toml:"format"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Path: filepath.Join(baseDir(), "presets.db"),
		},
		Registry: RegistryConfig{
			Dir: "",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// baseDir returns the default data directory.
func baseDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".presetctl"
	}
	return filepath.Join(homeDir, ".presetctl")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(baseDir(), "config.toml")
}

// Load reads the configuration from path. An empty path means the default
// location; a missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path must not be empty")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format: unknown format %q", c.Logging.Format)
	}

	if c.Registry.Dir != "" {
		info, err := os.Stat(c.Registry.Dir)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("registry.dir: %s does not exist", c.Registry.Dir)
			}
			return fmt.Errorf("registry.dir: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("registry.dir: %s is not a directory", c.Registry.Dir)
		}
	}

	return nil
}
