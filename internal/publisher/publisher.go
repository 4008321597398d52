// Package publisher defines the uniform event-publishing port and its
// no-op, Kafka, and MQTT backends, grounded on the Publisher trait in
// original_source/src/publisher/publisher.rs and on the kafka-go writer
// patterns in event-service/internal/publisher/kafka_publisher.go.
package publisher

import (
	"context"
	"fmt"

	"github.com/lightsaway/event-gateway/internal/model"
)

// Error wraps any backend failure into a single generic shape, mirroring
// original_source's PublisherError::Generic(String) - the gateway only
// ever needs to know publishing failed, not the backend-specific cause.
type Error struct {
	Msg string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(msg string, err error) error {
	return &Error{Msg: msg, Err: err}
}

// Publisher delivers one event to one destination topic. Implementations
// must be safe for concurrent use.
type Publisher interface {
	PublishOne(ctx context.Context, topic string, event model.Event) error
	Close() error
}
