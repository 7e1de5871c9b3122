package watcher

// EventType represents the semantic type of a file system event.
type EventType string

const (
	// Added is emitted when a file or directory appears.
	Added EventType = "added"
	// Modified is emitted when an existing file changes.
	Modified EventType = "modified"
	// Removed is emitted when a file or directory disappears.
	Removed EventType = "removed"
)

// Event is a single semantic file system event. Events are immutable and
// created fresh for every delivery.
type Event struct {
	Path string    `json:"path"`
	Type EventType `json:"type"`
}

// Listener receives translated file system events for a watch root.
// Implementations must tolerate concurrent invocation across batches; within
// one batch events arrive in order on a single goroutine.
type Listener interface {
	OnEvent(Event)
}

// ListenerFunc adapts a function to the Listener interface.
//
// Watch and Unwatch match listeners by identity. Two ListenerFunc values
// made from the same function are considered the same listener; distinct
// closures are not, so keep a reference to the value passed to Watch if the
// listener should be removable.
type ListenerFunc func(Event)

// OnEvent calls f(ev).
func (f ListenerFunc) OnEvent(ev Event) {
	f(ev)
}
