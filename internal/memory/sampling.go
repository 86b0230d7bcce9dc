package memory

import (
	"hash/fnv"
	"strconv"

	"github.com/google/uuid"
)

// sample decides deterministically whether a gated action fires for the Nth
// interaction of a user. The decision is a pure function of (seed, userID,
// index), so replays and tests reproduce the exact same gating sequence.
func sample(seed string, userID uuid.UUID, index int64, rate float64) bool {
	if rate <= 0 {
		return false
	}
	if rate >= 1 {
		return true
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	_, _ = h.Write(userID[:])
	_, _ = h.Write([]byte(strconv.FormatInt(index, 10)))

	// top 53 bits give a uniform float in [0, 1)
	v := float64(h.Sum64()>>11) / float64(1<<53)
	return v < rate
}
