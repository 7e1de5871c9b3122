package config

import (
	"fmt"
	"path/filepath"
)

// Validate validates the configuration.
func Validate(cfg *Config) error {
	if err := validateServer(&cfg.Server); err != nil {
		return err
	}

	if err := validateWatcher(&cfg.Watcher); err != nil {
		return err
	}

	if err := validateJournal(&cfg.Journal); err != nil {
		return err
	}

	if err := validateLogging(&cfg.Logging); err != nil {
		return err
	}

	return validateRoots(cfg.Roots)
}

func validateServer(cfg *ServerConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535")
	}
	if cfg.Host == "" {
		return fmt.Errorf("server.host cannot be empty")
	}
	return nil
}

func validateWatcher(cfg *WatcherConfig) error {
	if cfg.SettleMS < 0 {
		return fmt.Errorf("watcher.settle_ms cannot be negative")
	}
	if cfg.SettleMS > 10000 {
		return fmt.Errorf("watcher.settle_ms cannot exceed 10000ms")
	}
	return nil
}

func validateJournal(cfg *JournalConfig) error {
	if cfg.RetentionHours < 0 {
		return fmt.Errorf("journal.retention_hours cannot be negative")
	}
	return nil
}

func validateLogging(cfg *LoggingConfig) error {
	switch cfg.Level {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "":
	default:
		return fmt.Errorf("logging.level %q is not a valid level", cfg.Level)
	}
	switch cfg.Format {
	case "console", "json", "":
	default:
		return fmt.Errorf("logging.format must be console or json")
	}
	return nil
}

func validateRoots(roots []RootConfig) error {
	seen := make(map[string]bool)
	for i, root := range roots {
		if root.Path == "" {
			return fmt.Errorf("roots[%d].path cannot be empty", i)
		}
		if seen[root.Path] {
			return fmt.Errorf("roots[%d].path is duplicated: %s", i, root.Path)
		}
		seen[root.Path] = true

		for _, pattern := range root.Include {
			if _, err := filepath.Match(pattern, "probe"); err != nil {
				return fmt.Errorf("roots[%d] has invalid include pattern %q: %w", i, pattern, err)
			}
		}

		switch root.Exclude {
		case "", "files", "dirs":
		default:
			return fmt.Errorf("roots[%d].exclude must be files or dirs, got %q", i, root.Exclude)
		}

		for _, name := range root.Events {
			if _, err := parseEventType(name); err != nil {
				return fmt.Errorf("roots[%d]: %w", i, err)
			}
		}
	}
	return nil
}
