package hub

import (
	"sync"

	"github.com/pathwatch/pathwatch/internal/domain"
	"github.com/pathwatch/pathwatch/internal/domain/events"
)

// ChannelSubscriber is a subscriber that sends events to a channel.
type ChannelSubscriber struct {
	id     string
	send   chan events.Event
	done   chan struct{}
	mu     sync.Mutex
	closed bool
}

// NewChannelSubscriber creates a new channel-based subscriber.
func NewChannelSubscriber(id string, bufferSize int) *ChannelSubscriber {
	return &ChannelSubscriber{
		id:   id,
		send: make(chan events.Event, bufferSize),
		done: make(chan struct{}),
	}
}

// ID returns the subscriber's unique identifier.
func (s *ChannelSubscriber) ID() string {
	return s.id
}

// Send sends an event to the subscriber.
func (s *ChannelSubscriber) Send(event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSubscriberClosed
	}

	select {
	case s.send <- event:
		return nil
	default:
		// Channel full, subscriber is too slow
		return domain.ErrSubscriberClosed
	}
}

// Close closes the subscriber.
func (s *ChannelSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	close(s.send)
	return nil
}

// Done returns a channel that's closed when the subscriber is done.
func (s *ChannelSubscriber) Done() <-chan struct{} {
	return s.done
}

// Events returns the channel to receive events from.
func (s *ChannelSubscriber) Events() <-chan events.Event {
	return s.send
}

// JournalSubscriber forwards every event to a sink function, typically an
// event journal's append operation.
type JournalSubscriber struct {
	id     string
	done   chan struct{}
	mu     sync.Mutex
	closed bool
	sink   func(event events.Event)
}

// NewJournalSubscriber creates a subscriber that hands events to sink.
func NewJournalSubscriber(id string, sink func(event events.Event)) *JournalSubscriber {
	return &JournalSubscriber{
		id:   id,
		done: make(chan struct{}),
		sink: sink,
	}
}

// ID returns the subscriber's unique identifier.
func (s *JournalSubscriber) ID() string {
	return s.id
}

// Send hands the event to the sink.
func (s *JournalSubscriber) Send(event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSubscriberClosed
	}
	if s.sink != nil {
		s.sink(event)
	}
	return nil
}

// Close closes the subscriber.
func (s *JournalSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	return nil
}

// Done returns a channel that's closed when the subscriber is done.
func (s *JournalSubscriber) Done() <-chan struct{} {
	return s.done
}
