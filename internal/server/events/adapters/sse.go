package adapters

import (
	"strconv"

	"github.com/agentstation/quotesync/internal/server/events"
	"github.com/agentstation/quotesync/internal/server/sse"
)

// SSESubscriber forwards events to every SSE stream.
type SSESubscriber struct {
	broadcaster *sse.Broadcaster
}

// NewSSESubscriber creates an SSE subscriber.
func NewSSESubscriber(broadcaster *sse.Broadcaster) *SSESubscriber {
	return &SSESubscriber{broadcaster: broadcaster}
}

// Send queues the event on the broadcaster.
func (s *SSESubscriber) Send(event events.Event) error {
	s.broadcaster.Broadcast(sse.Event{
		Event: string(event.Type),
		ID:    strconv.FormatInt(event.Timestamp.UnixNano(), 10),
		Data:  event.Data,
	})
	return nil
}

// Close is a no-op; the broadcaster owns its lifecycle.
func (s *SSESubscriber) Close() error {
	return nil
}
