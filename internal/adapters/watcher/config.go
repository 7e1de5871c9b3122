package watcher

import (
	"math"
	"strconv"

	"github.com/pathwatch/pathwatch/internal/domain"
)

// Unlimited removes the depth bound for a watch root.
const Unlimited = math.MaxInt32

// Config controls how events for one watch root are produced.
//
// The first registration for a path fixes the root's config; later Watch
// calls for the same path only add their listener and their config is
// ignored. This mirrors the behavior the registry has always had and is a
// documented limitation rather than an error.
type Config struct {
	// MaxDepth bounds how far below the root events are reported and
	// sub-directories are watched. 1 (the default) covers only the root's
	// direct children. Must be >= 1; use Unlimited for full recursion.
	MaxDepth int

	// Filter, when set, is applied to every resolved event path after
	// coalescing. Events whose path it rejects are dropped.
	Filter func(path string) bool

	// AllowedTypes, when non-empty, restricts which event types are
	// emitted. It never affects sub-directory registration.
	AllowedTypes []EventType
}

// DefaultConfig returns the config used when Watch is called without one.
func DefaultConfig() Config {
	return Config{MaxDepth: 1}
}

// Validate checks the config for usable values.
func (c Config) Validate() error {
	if c.MaxDepth <= 0 {
		return domain.NewValidationError("max_depth", "must be greater than 0, got "+strconv.Itoa(c.MaxDepth))
	}
	return nil
}

// allows reports whether events of type t may be emitted.
func (c Config) allows(t EventType) bool {
	if len(c.AllowedTypes) == 0 {
		return true
	}
	for _, a := range c.AllowedTypes {
		if a == t {
			return true
		}
	}
	return false
}
