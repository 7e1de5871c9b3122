// Package config handles configuration management for pathwatch.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Watcher WatcherConfig `mapstructure:"watcher"`
	Journal JournalConfig `mapstructure:"journal"`
	Logging LoggingConfig `mapstructure:"logging"`
	Roots   []RootConfig  `mapstructure:"roots"`
}

// ServerConfig holds the WebSocket event-stream server configuration.
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// WatcherConfig holds engine-level watcher configuration.
type WatcherConfig struct {
	SettleMS int `mapstructure:"settle_ms"`
}

// JournalConfig holds event journal configuration.
type JournalConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Path           string `mapstructure:"path"`
	RetentionHours int    `mapstructure:"retention_hours"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RootConfig describes one watched path.
type RootConfig struct {
	Path string `mapstructure:"path"`

	// MaxDepth bounds how many directory levels below the root are
	// watched. Zero or negative means unlimited.
	MaxDepth int `mapstructure:"max_depth"`

	// Include restricts reported paths to these glob patterns
	// (matched against the base name). Empty means everything.
	Include []string `mapstructure:"include"`

	// Exclude suppresses one class of paths: "files" or "dirs".
	// Empty means neither class is excluded.
	Exclude string `mapstructure:"exclude"`

	// Events restricts which change types are reported:
	// "added", "modified", "removed". Empty means all.
	Events []string `mapstructure:"events"`
}

// Load loads configuration from files and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default search paths
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.pathwatch")
		v.AddConfigPath("/etc/pathwatch")
	}

	v.SetEnvPrefix("PATHWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := postProcess(&cfg); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8765)

	// Watcher defaults
	v.SetDefault("watcher.settle_ms", 100)

	// Journal defaults
	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.path", "")
	v.SetDefault("journal.retention_hours", 72)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// postProcess applies post-processing to configuration.
func postProcess(cfg *Config) error {
	// Resolve watch roots to absolute paths
	for i := range cfg.Roots {
		if cfg.Roots[i].Path == "" {
			continue
		}
		absPath, err := filepath.Abs(cfg.Roots[i].Path)
		if err != nil {
			return fmt.Errorf("failed to resolve root path %q: %w", cfg.Roots[i].Path, err)
		}
		cfg.Roots[i].Path = absPath
	}
	return nil
}

// GetConfigDir returns the user config directory for pathwatch.
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".pathwatch"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
