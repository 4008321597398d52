package publisher

import (
	"context"

	"github.com/lightsaway/event-gateway/internal/logger"
	"github.com/lightsaway/event-gateway/internal/model"
)

// NoOpPublisher discards every event, logging it at debug level. Used for
// local development and tests.
type NoOpPublisher struct{}

func NewNoOpPublisher() *NoOpPublisher {
	return &NoOpPublisher{}
}

func (p *NoOpPublisher) PublishOne(ctx context.Context, topic string, event model.Event) error {
	logger.GetLogger().WithField("topic", topic).WithField("event_id", event.ID).Debug("noop publisher: discarding event")
	return nil
}

func (p *NoOpPublisher) Close() error {
	return nil
}
