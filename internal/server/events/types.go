// Package events fans collection and sync events out to the real-time
// transports (WebSocket, SSE) through one broker.
package events

import "time"

// EventType names an event.
type EventType string

// Event types published by the server.
const (
	// Record events, from collection hooks.
	RecordAdded        EventType = "record.added"
	RecordUpdated      EventType = "record.updated"
	RecordRemoved      EventType = "record.removed"
	RecordSubmitFailed EventType = "record.submit_failed"

	// Sync events, from the engine.
	SyncCompleted    EventType = "sync.completed"
	SyncFailed       EventType = "sync.failed"
	SyncUndone       EventType = "sync.undone"
	ConflictResolved EventType = "conflict.resolved"

	// Client events, from transport layers.
	ClientConnected EventType = "client.connected"
)

// Event is one published event.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}
