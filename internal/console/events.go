package console

import (
	"context"

	"github.com/dshills/querystorm/internal/engine/history"
	"github.com/dshills/querystorm/internal/event"
)

// EventPayload is the payload of every console event.
type EventPayload struct {
	ConsoleID   string         `json:"console_id"`
	VersionID   string         `json:"version_id,omitempty"`
	Origin      history.Origin `json:"origin,omitempty"`
	Description string         `json:"description,omitempty"`
	Action      string         `json:"action,omitempty"`
	Dirty       bool           `json:"dirty"`
	Error       string         `json:"error,omitempty"`
}

// queueLocked stages an event to be published once the console lock is released.
func (c *Console) queueLocked(t event.Topic, p EventPayload) {
	if c.bus == nil {
		return
	}
	p.ConsoleID = c.id
	c.outbox = append(c.outbox, event.New(t, p, c.id))
}

// unlock releases the console lock and publishes staged events, including a
// dirty-state change if the operation caused one.
func (c *Console) unlock() {
	if dirty := c.dirty.dirty(); dirty != c.reportedDirty {
		c.reportedDirty = dirty
		c.queueLocked(event.TopicDirtyChanged, EventPayload{Dirty: dirty})
	}
	events := c.outbox
	c.outbox = nil
	c.mu.Unlock()

	for _, ev := range events {
		_ = c.bus.Publish(context.Background(), ev)
	}
}
