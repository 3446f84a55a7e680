package history

import (
	"context"
	"time"
)

// EventType defines the kind of lifecycle event.
type EventType string

const (
	EventStart EventType = "start"
	EventStop  EventType = "stop"
)

// Event is one supervisor action on one bot, recorded for auditing. A fleet
// pointing its sinks at a shared database gets a central action history.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Bot        string    `json:"bot"`
	PID        int       `json:"pid"`
	OK         bool      `json:"ok"`
	Detail     string    `json:"detail,omitempty"`
}

// Sink is a destination for history events. Implementations must be safe for
// concurrent use. Send failures are logged by callers, never fatal.
type Sink interface {
	Send(ctx context.Context, e Event) error
	Close() error
}
