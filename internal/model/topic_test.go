package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTopic_Valid(t *testing.T) {
	topic, err := NewTopic("user.clicks-v1")
	require.NoError(t, err)
	assert.Equal(t, "user.clicks-v1", topic.String())
}

func TestNewTopic_Idempotent(t *testing.T) {
	topic, err := NewTopic("a_valid.topic")
	require.NoError(t, err)
	assert.Equal(t, "a_valid.topic", topic.String())
}

func TestNewTopic_Empty(t *testing.T) {
	_, err := NewTopic("")
	var verr *TopicValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, TopicErrEmpty, verr.Kind)
}

func TestNewTopic_TooLong(t *testing.T) {
	_, err := NewTopic(strings.Repeat("a", 256))
	var verr *TopicValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, TopicErrTooLong, verr.Kind)
}

func TestNewTopic_MaxLengthAllowed(t *testing.T) {
	_, err := NewTopic(strings.Repeat("a", 255))
	require.NoError(t, err)
}

func TestNewTopic_InvalidCharacters(t *testing.T) {
	_, err := NewTopic("invalid topic")
	var verr *TopicValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, TopicErrInvalidCharacters, verr.Kind)

	_, err = NewTopic("invalid/topic")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, TopicErrInvalidCharacters, verr.Kind)
}

func TestTopic_JSONRoundTrip(t *testing.T) {
	topic := MustTopic("orders.created")
	data, err := json.Marshal(topic)
	require.NoError(t, err)
	assert.Equal(t, `"orders.created"`, string(data))

	var decoded Topic
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.Equal(topic))
}

func TestUnknownTopic(t *testing.T) {
	assert.Equal(t, "unknown", UnknownTopic().String())
}
