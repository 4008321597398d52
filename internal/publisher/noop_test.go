package publisher

import (
	"context"
	"testing"

	"github.com/lightsaway/event-gateway/internal/model"
	"github.com/stretchr/testify/require"
)

func TestNoOpPublisher_PublishOne(t *testing.T) {
	p := NewNoOpPublisher()
	event := model.Event{ID: model.NewEventID(), EventType: "x", Data: model.StringData("")}
	require.NoError(t, p.PublishOne(context.Background(), "any-topic", event))
	require.NoError(t, p.Close())
}
