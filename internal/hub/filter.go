package hub

import (
	"sync"

	"github.com/pathwatch/pathwatch/internal/domain/events"
	"github.com/pathwatch/pathwatch/internal/domain/ports"
)

// FilteredSubscriber wraps a subscriber and filters events by watch root.
// Events without a root (global events) are always forwarded.
// If no roots are subscribed, all events are forwarded.
type FilteredSubscriber struct {
	inner ports.Subscriber
	roots map[string]bool
	mu    sync.RWMutex
}

// NewFilteredSubscriber creates a new filtered subscriber wrapping the given subscriber.
func NewFilteredSubscriber(inner ports.Subscriber) *FilteredSubscriber {
	return &FilteredSubscriber{
		inner: inner,
		roots: make(map[string]bool),
	}
}

// ID returns the subscriber's unique identifier.
func (f *FilteredSubscriber) ID() string {
	return f.inner.ID()
}

// Send sends an event to the subscriber if it passes the filter.
func (f *FilteredSubscriber) Send(event events.Event) error {
	if !f.shouldForward(event) {
		return nil
	}
	return f.inner.Send(event)
}

// Close closes the subscriber.
func (f *FilteredSubscriber) Close() error {
	return f.inner.Close()
}

// Done returns a channel that's closed when the subscriber is done.
func (f *FilteredSubscriber) Done() <-chan struct{} {
	return f.inner.Done()
}

// SubscribeRoot adds a watch root to the filter.
// Events for this root will be forwarded to the subscriber.
func (f *FilteredSubscriber) SubscribeRoot(root string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roots[root] = true
}

// UnsubscribeRoot removes a watch root from the filter.
func (f *FilteredSubscriber) UnsubscribeRoot(root string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.roots, root)
}

// SubscribeAll clears the filter, forwarding all events (default behavior).
func (f *FilteredSubscriber) SubscribeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roots = make(map[string]bool)
}

// SubscribedRoots returns the list of subscribed watch roots.
func (f *FilteredSubscriber) SubscribedRoots() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	result := make([]string, 0, len(f.roots))
	for root := range f.roots {
		result = append(result, root)
	}
	return result
}

// IsFiltering returns true if the subscriber is filtering by root.
func (f *FilteredSubscriber) IsFiltering() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.roots) > 0
}

// shouldForward determines if an event should be forwarded to the subscriber.
func (f *FilteredSubscriber) shouldForward(event events.Event) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	// No filter set, forward everything
	if len(f.roots) == 0 {
		return true
	}

	// Global events carry no root and are always forwarded
	root := event.GetRoot()
	if root == "" {
		return true
	}

	return f.roots[root]
}
