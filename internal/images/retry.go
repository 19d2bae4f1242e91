package images

import (
	"math/rand"
	"time"
)

// Backoff returns the delay before retry attempt n (0-indexed): exponential
// with jitter, capped so a slow image cannot eat the whole deadline.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * 500 * time.Millisecond
	if base > 5*time.Second {
		base = 5 * time.Second
	}
	jitter := time.Duration(rand.Int63n(int64(base) / 2))
	return base + jitter
}
