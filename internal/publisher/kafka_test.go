package publisher

import (
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestRequiredAcksFromConfig(t *testing.T) {
	assert.Equal(t, kafkago.RequireNone, requiredAcksFromConfig("none"))
	assert.Equal(t, kafkago.RequireAll, requiredAcksFromConfig("all"))
	assert.Equal(t, kafkago.RequireOne, requiredAcksFromConfig("one"))
	assert.Equal(t, kafkago.RequireOne, requiredAcksFromConfig(""))
}

func TestQosFromConfig(t *testing.T) {
	assert.Equal(t, byte(0), qosFromConfig(0))
	assert.Equal(t, byte(1), qosFromConfig(1))
	assert.Equal(t, byte(2), qosFromConfig(2))
}
