package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lightsaway/event-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage_FromJSON(t *testing.T) {
	doc := `{
		"routingRules": [
			{"id":"` + uuid.New().String() + `","order":0,"topic":"orders","eventTypeCondition":"any"}
		],
		"topicValidations": {}
	}`
	s, err := NewMemoryStorageFromJSON(doc)
	require.NoError(t, err)

	rules, err := s.GetAllRules(context.Background())
	require.NoError(t, err)
	assert.Len(t, rules, 1)
	assert.Equal(t, "orders", rules[0].Topic.String())
}

func TestMemoryStorage_EmptyJSON(t *testing.T) {
	s, err := NewMemoryStorageFromJSON("")
	require.NoError(t, err)
	rules, err := s.GetAllRules(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestMemoryStorage_MutatingOpsUnimplemented(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	err := s.AddRule(ctx, model.TopicRoutingRule{ID: uuid.New()})
	require.Error(t, err)
	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, ErrKindOther, serr.Kind)

	require.Error(t, s.UpdateRule(ctx, uuid.New(), model.TopicRoutingRule{}))
	require.Error(t, s.DeleteRule(ctx, uuid.New()))
	require.Error(t, s.AddTopicValidation(ctx, model.TopicValidationConfig{}))
	require.Error(t, s.DeleteTopicValidation(ctx, uuid.New()))
	require.Error(t, s.StoreEvent(ctx, model.Event{}, nil, nil, nil))
}

func TestMemoryStorage_GetRule_NotFound(t *testing.T) {
	s := NewMemoryStorage()
	rule, err := s.GetRule(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, rule)
}

func TestMemoryStorage_EventReadsAreEmpty(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	event, err := s.GetEvent(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, event)

	events, total, err := s.GetSampleEvents(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Zero(t, total)
}
