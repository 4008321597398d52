package gateway

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestShouldStoreEvent_Disabled(t *testing.T) {
	assert.False(t, shouldStoreEvent(false, 100, uuid.New()))
}

func TestShouldStoreEvent_Deterministic(t *testing.T) {
	id := uuid.New()
	first := shouldStoreEvent(true, 50, id)
	second := shouldStoreEvent(true, 50, id)
	assert.Equal(t, first, second)
}

// With a 0% threshold only an id whose byte sum is 0 passes ratio <= 0;
// the all-zero id is that one case.
func TestShouldStoreEvent_ZeroThresholdStillSamplesZeroHashID(t *testing.T) {
	allZeros := uuid.UUID{}
	assert.True(t, shouldStoreEvent(true, 0, allZeros))
}

func TestShouldStoreEvent_FullThresholdAlwaysSamples(t *testing.T) {
	assert.True(t, shouldStoreEvent(true, 100, uuid.New()))
}

func TestArchiveRetryDelayMs_CapsAt5000(t *testing.T) {
	id := uuid.New()
	delay := 100
	for i := 0; i < 10; i++ {
		delay = archiveRetryDelayMs(delay, id)
		assert.LessOrEqual(t, delay, 5000)
	}
}
