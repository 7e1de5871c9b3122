// Package events defines the event envelopes published through pathwatch.
package events

import (
	"encoding/json"
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// File events
	EventTypeFileChanged EventType = "file_changed"

	// Watch lifecycle events
	EventTypeWatchStarted EventType = "watch_started"
	EventTypeWatchStopped EventType = "watch_stopped"

	// Response events
	EventTypeRecentEvents EventType = "recent_events"
	EventTypeError        EventType = "error"

	// Connection events
	EventTypeHeartbeat EventType = "heartbeat"
)

// Event is the base interface for all events.
type Event interface {
	// Type returns the event type.
	Type() EventType

	// Timestamp returns when the event occurred.
	Timestamp() time.Time

	// ToJSON serializes the event to JSON.
	ToJSON() ([]byte, error)

	// GetRoot returns the watch root the event belongs to (may be empty).
	GetRoot() string
}

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	EventType EventType   `json:"event"`
	EventTime time.Time   `json:"timestamp"`
	Root      string      `json:"root,omitempty"`
	Payload   interface{} `json:"payload"`
}

// GetRoot returns the watch root the event belongs to.
func (e *BaseEvent) GetRoot() string {
	return e.Root
}

// Type returns the event type.
func (e *BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e *BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// ToJSON serializes the event to JSON.
func (e *BaseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// NewEvent creates a new base event with the given type and payload.
func NewEvent(eventType EventType, payload interface{}) *BaseEvent {
	return &BaseEvent{
		EventType: eventType,
		EventTime: time.Now().UTC(),
		Payload:   payload,
	}
}

// NewEventWithRoot creates a new event tagged with its watch root.
func NewEventWithRoot(eventType EventType, payload interface{}, root string) *BaseEvent {
	return &BaseEvent{
		EventType: eventType,
		EventTime: time.Now().UTC(),
		Root:      root,
		Payload:   payload,
	}
}

// --- Watch Lifecycle Payloads ---

// WatchStartedPayload is the payload for watch_started events.
type WatchStartedPayload struct {
	Root     string `json:"root"`
	MaxDepth int    `json:"max_depth"`
}

// WatchStoppedPayload is the payload for watch_stopped events.
type WatchStoppedPayload struct {
	Root string `json:"root"`
}

// NewWatchStartedEvent creates a new watch_started event.
func NewWatchStartedEvent(root string, maxDepth int) *BaseEvent {
	return NewEventWithRoot(EventTypeWatchStarted, WatchStartedPayload{
		Root:     root,
		MaxDepth: maxDepth,
	}, root)
}

// NewWatchStoppedEvent creates a new watch_stopped event.
func NewWatchStoppedEvent(root string) *BaseEvent {
	return NewEventWithRoot(EventTypeWatchStopped, WatchStoppedPayload{Root: root}, root)
}

// --- Connection Payloads ---

// HeartbeatPayload is the payload for heartbeat events.
type HeartbeatPayload struct {
	Seq           int64 `json:"seq"`
	UptimeSeconds int64 `json:"uptime_seconds"`
	Clients       int   `json:"clients"`
}

// NewHeartbeatEvent creates a new heartbeat event.
func NewHeartbeatEvent(seq, uptimeSeconds int64, clients int) *BaseEvent {
	return NewEvent(EventTypeHeartbeat, HeartbeatPayload{
		Seq:           seq,
		UptimeSeconds: uptimeSeconds,
		Clients:       clients,
	})
}

// --- Response Payloads ---

// ErrorPayload is the payload for error events.
type ErrorPayload struct {
	Message string `json:"message"`
}

// NewErrorEvent creates a new error event.
func NewErrorEvent(message string) *BaseEvent {
	return NewEvent(EventTypeError, ErrorPayload{Message: message})
}
