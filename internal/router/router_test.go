package router

import (
	"testing"

	"github.com/google/uuid"
	"github.com/lightsaway/event-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEvent(eventType string, version *string) model.Event {
	return model.Event{
		ID:           uuid.New(),
		EventType:    eventType,
		EventVersion: version,
		Metadata:     map[string]string{},
		Data:         model.StringData(""),
	}
}

func TestTopicRoutings_Route(t *testing.T) {
	routings := TopicRoutings{
		Rules: []model.TopicRoutingRule{
			{
				ID:                 uuid.New(),
				Order:              0,
				Topic:              model.MustTopic("topic_one"),
				EventTypeCondition: model.OneCondition(model.NewEqualsExpression("event_one")),
			},
			{
				ID:                 uuid.New(),
				Order:              1,
				Topic:              model.MustTopic("topic_two"),
				EventTypeCondition: model.OneCondition(model.NewEqualsExpression("event_two")),
			},
		},
	}

	event := newTestEvent("event_one", nil)
	eventTwo := newTestEvent("event_two", nil)
	eventThree := newTestEvent("event_three", nil)

	rule := routings.Route(event)
	require.NotNil(t, rule)
	assert.Equal(t, "topic_one", rule.Topic.String())

	ruleTwo := routings.Route(eventTwo)
	require.NotNil(t, ruleTwo)
	assert.Equal(t, "topic_two", ruleTwo.Topic.String())

	assert.Nil(t, routings.Route(eventThree))
}

func TestTopicRoutings_Route_VersionMatch(t *testing.T) {
	versionCond := model.OneCondition(model.NewEqualsExpression("1.0"))
	routings := TopicRoutings{
		Rules: []model.TopicRoutingRule{
			{
				ID:                    uuid.New(),
				Order:                 0,
				Topic:                 model.MustTopic("topic"),
				EventTypeCondition:    model.OneCondition(model.NewEqualsExpression("event")),
				EventVersionCondition: &versionCond,
			},
		},
	}

	noVersion := newTestEvent("event", nil)
	assert.Nil(t, routings.Route(noVersion))

	v1 := "1.0"
	matchingVersion := newTestEvent("event", &v1)
	rule := routings.Route(matchingVersion)
	require.NotNil(t, rule)
	assert.Equal(t, "topic", rule.Topic.String())

	v3 := "3.0"
	wrongTypeAndVersion := newTestEvent("event_three", &v3)
	assert.Nil(t, routings.Route(wrongTypeAndVersion))
}

func TestTopicRoutings_Route_FirstMatchWins(t *testing.T) {
	routings := TopicRoutings{
		Rules: []model.TopicRoutingRule{
			{ID: uuid.New(), Order: 0, Topic: model.MustTopic("first"), EventTypeCondition: model.AnyCondition()},
			{ID: uuid.New(), Order: 1, Topic: model.MustTopic("second"), EventTypeCondition: model.AnyCondition()},
		},
	}
	rule := routings.Route(newTestEvent("anything", nil))
	require.NotNil(t, rule)
	assert.Equal(t, "first", rule.Topic.String())
}
