package config

import (
	"fmt"

	"github.com/pathwatch/pathwatch/internal/adapters/watcher"
)

// Compile translates a RootConfig into an engine watch configuration.
func (r *RootConfig) Compile() (watcher.Config, error) {
	cfg := watcher.Config{MaxDepth: r.MaxDepth}
	if r.MaxDepth <= 0 {
		cfg.MaxDepth = watcher.Unlimited
	}

	var filters []func(string) bool
	if len(r.Include) > 0 {
		filters = append(filters, watcher.Glob(r.Include...))
	}
	switch r.Exclude {
	case "":
	case "files":
		filters = append(filters, watcher.DirsOnly())
	case "dirs":
		filters = append(filters, watcher.FilesOnly())
	default:
		return watcher.Config{}, fmt.Errorf("unknown exclude %q (want files or dirs)", r.Exclude)
	}
	switch len(filters) {
	case 0:
	case 1:
		cfg.Filter = filters[0]
	default:
		cfg.Filter = watcher.Both(filters...)
	}

	for _, name := range r.Events {
		t, err := parseEventType(name)
		if err != nil {
			return watcher.Config{}, err
		}
		cfg.AllowedTypes = append(cfg.AllowedTypes, t)
	}

	return cfg, nil
}

func parseEventType(name string) (watcher.EventType, error) {
	switch name {
	case "added":
		return watcher.Added, nil
	case "modified":
		return watcher.Modified, nil
	case "removed":
		return watcher.Removed, nil
	default:
		return "", fmt.Errorf("unknown event type %q (want added, modified or removed)", name)
	}
}
