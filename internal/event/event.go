package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/dshills/modelundo/internal/event/topic"
)

// Event represents an event in the system.
// Events are immutable once created.
type Event[T any] struct {
	// Type is the hierarchical event type (e.g., "model.element.created").
	Type topic.Topic

	// Payload contains the event-specific data.
	Payload T

	// Metadata contains standard event information.
	Metadata Metadata
}

// Metadata contains standard information attached to every event.
type Metadata struct {
	// ID is a unique identifier for this event instance.
	ID string

	// Timestamp is when the event was created.
	Timestamp time.Time

	// Source identifies the component that published the event.
	Source string
}

// NewEvent creates a new event with the given type and payload.
func NewEvent[T any](eventType topic.Topic, payload T, source string) Event[T] {
	return Event[T]{
		Type:    eventType,
		Payload: payload,
		Metadata: Metadata{
			ID:        uuid.NewString(),
			Timestamp: time.Now(),
			Source:    source,
		},
	}
}

// EventTopic returns the event's topic for type-erased handling.
func (e Event[T]) EventTopic() topic.Topic {
	return e.Type
}

// EventPayload returns the event's payload for type-erased handling.
func (e Event[T]) EventPayload() any {
	return e.Payload
}

// EventMetadata returns the event's metadata for type-erased handling.
func (e Event[T]) EventMetadata() Metadata {
	return e.Metadata
}

// TopicProvider is implemented by types that can provide their topic.
type TopicProvider interface {
	EventTopic() topic.Topic
}

// PayloadProvider is implemented by types that carry a type-erased payload.
type PayloadProvider interface {
	EventPayload() any
}

// Payload extracts the payload from a type-erased event.
// Events that are not PayloadProviders are returned unchanged.
func Payload(evt any) any {
	if p, ok := evt.(PayloadProvider); ok {
		return p.EventPayload()
	}
	return evt
}

// PayloadAs extracts a typed payload from a type-erased event.
func PayloadAs[T any](evt any) (T, bool) {
	p, ok := Payload(evt).(T)
	return p, ok
}

func generateID() string {
	return uuid.NewString()
}
