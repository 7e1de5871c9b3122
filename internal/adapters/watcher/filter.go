package watcher

import (
	"os"
	"path/filepath"
)

// Filter predicates for common cases. They compose with Both/Either below
// and plug straight into Config.Filter.

// Glob returns a filter that accepts paths whose base name matches any of
// the given patterns (filepath.Match syntax). Malformed patterns never
// match.
func Glob(patterns ...string) func(string) bool {
	return func(path string) bool {
		base := filepath.Base(path)
		for _, p := range patterns {
			if ok, err := filepath.Match(p, base); err == nil && ok {
				return true
			}
		}
		return false
	}
}

// FilesOnly accepts paths that are not directories. A path that no longer
// exists (a Removed event) is treated as a file.
func FilesOnly() func(string) bool {
	return func(path string) bool {
		info, err := os.Stat(path)
		return err != nil || !info.IsDir()
	}
}

// DirsOnly accepts paths that are directories.
func DirsOnly() func(string) bool {
	return func(path string) bool {
		info, err := os.Stat(path)
		return err == nil && info.IsDir()
	}
}

// Both accepts a path only when every filter does.
func Both(filters ...func(string) bool) func(string) bool {
	return func(path string) bool {
		for _, f := range filters {
			if !f(path) {
				return false
			}
		}
		return true
	}
}

// Either accepts a path when at least one filter does.
func Either(filters ...func(string) bool) func(string) bool {
	return func(path string) bool {
		for _, f := range filters {
			if f(path) {
				return true
			}
		}
		return false
	}
}
