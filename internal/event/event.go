package event

import (
	"time"

	"github.com/google/uuid"
)

// Event is a published message.
type Event struct {
	Topic    Topic
	Payload  any
	Metadata Metadata
}

// Metadata is attached to every event.
type Metadata struct {
	ID        string
	Timestamp time.Time

	// Source identifies the publisher, e.g. a console id.
	Source string
}

// New creates an event with a fresh id and the current time.
func New(t Topic, payload any, source string) Event {
	return Event{
		Topic:   t,
		Payload: payload,
		Metadata: Metadata{
			ID:        uuid.NewString(),
			Timestamp: time.Now(),
			Source:    source,
		},
	}
}
