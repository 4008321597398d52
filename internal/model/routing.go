package model

import (
	"time"

	"github.com/google/uuid"
)

// DataSchema binds a JSON Schema to a specific event type/version pair that
// a topic's validation config applies to.
type DataSchema struct {
	Name         string            `json:"name"`
	Description  *string           `json:"description,omitempty"`
	Schema       Schema            `json:"schema"`
	EventType    string            `json:"eventType"`
	EventVersion *string           `json:"eventVersion,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Equal compares two schemas by their declarative fields, never by compiled
// automaton.
func (d DataSchema) Equal(other DataSchema) bool {
	if d.Name != other.Name || d.EventType != other.EventType {
		return false
	}
	if !stringPtrEqual(d.EventVersion, other.EventVersion) {
		return false
	}
	return d.Schema.Equal(other.Schema)
}

// AppliesTo reports whether this schema is bound to the given
// (eventType, eventVersion) pair: None matches None, Some must equal Some.
func (d DataSchema) AppliesTo(eventType string, eventVersion *string) bool {
	if d.EventType != eventType {
		return false
	}
	return stringPtrEqual(d.EventVersion, eventVersion)
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// TopicRoutingRule maps events matching its conditions to a destination
// topic. Rules are evaluated in ascending Order.
type TopicRoutingRule struct {
	ID                    uuid.UUID  `json:"id"`
	Order                 int32      `json:"order"`
	Topic                 Topic      `json:"topic"`
	EventTypeCondition    Condition  `json:"eventTypeCondition"`
	EventVersionCondition *Condition `json:"eventVersionCondition,omitempty"`
	Description           *string    `json:"description,omitempty"`
}

// TopicValidationConfig binds a topic to one validation schema. A topic may
// have many configs, one per (event_type, event_version) pair the schema's
// own fields select.
type TopicValidationConfig struct {
	ID     uuid.UUID  `json:"id"`
	Topic  Topic      `json:"topic"`
	Schema DataSchema `json:"schema"`
}

// StoredEvent is one archived row: the original event payload plus the
// routing decision (or lack of one) and failure reason, if any.
type StoredEvent struct {
	ID                uuid.UUID              `json:"id"`
	EventID           uuid.UUID              `json:"eventId"`
	EventType         string                 `json:"eventType"`
	EventVersion      *string                `json:"eventVersion,omitempty"`
	RoutingID         *uuid.UUID             `json:"routingId,omitempty"`
	DestinationTopic  *string                `json:"destinationTopic,omitempty"`
	FailureReason     *string                `json:"failureReason,omitempty"`
	StoredAt          time.Time              `json:"storedAt"`
	EventData         map[string]interface{} `json:"eventData"`
}
