package events

// Subscriber receives every published event.
type Subscriber interface {
	// Send delivers an event. It must not block.
	Send(Event) error

	// Close releases the subscriber.
	Close() error
}
