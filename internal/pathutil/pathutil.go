// Package pathutil provides cross-platform path utilities for pathwatch.
package pathutil

import (
	"path/filepath"
	"strings"
)

// Canonicalize converts a path to its canonical absolute form. Watch roots
// and incoming notification paths must be canonicalized with the same
// function so that map lookups and prefix checks agree.
func Canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

// Segments returns the number of name segments in a cleaned absolute path.
// The filesystem root counts as zero segments, so the depth of a path below
// a watch root is Segments(path) - Segments(root).
func Segments(path string) int {
	path = filepath.Clean(path)
	sep := string(filepath.Separator)
	// Strip the volume name so Windows drive letters don't count.
	path = strings.TrimPrefix(path, filepath.VolumeName(path))
	path = strings.Trim(path, sep)
	if path == "" {
		return 0
	}
	return strings.Count(path, sep) + 1
}

// Under reports whether target equals base or lies below it. Both paths
// must be canonical.
func Under(base, target string) bool {
	if target == base {
		return true
	}
	sep := string(filepath.Separator)
	if !strings.HasSuffix(base, sep) {
		base += sep
	}
	return strings.HasPrefix(target, base)
}

// Depth returns the segment distance from root down to target. It is zero
// for the root itself and negative when target is outside the root.
func Depth(root, target string) int {
	return Segments(target) - Segments(root)
}
