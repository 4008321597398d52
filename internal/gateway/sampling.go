package gateway

import "github.com/google/uuid"

// idHash sums the 16 UUID bytes with wrapping (mod 2^32) addition. It is a
// fast deterministic hash keyed on id, not a cryptographic one: the same id
// always samples the same way.
func idHash(id uuid.UUID) uint32 {
	var h uint32
	for _, b := range id {
		h += uint32(b)
	}
	return h
}

const maxHash = float64(^uint32(0)) + 1 // 2^32

// shouldStoreEvent reports whether id should be archived given the sampler
// configuration: enabled, plus a threshold percentage in [0, 100].
func shouldStoreEvent(enabled bool, thresholdPercent float64, id uuid.UUID) bool {
	if !enabled {
		return false
	}
	ratio := float64(idHash(id)) / maxHash
	return ratio <= thresholdPercent/100
}

// archiveRetryDelayMs computes the next retry delay given the previous
// delay and the event id, jittered deterministically from the id's low
// byte, capped at 5000ms.
func archiveRetryDelayMs(prevDelayMs int, id uuid.UUID) int {
	jitter := int(id[len(id)-1]) % 100
	next := prevDelayMs*2 + jitter
	if next > 5000 {
		next = 5000
	}
	return next
}
