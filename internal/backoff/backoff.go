// Package backoff computes the delay before retrying a RATE_LIMITED
// processor call, using full-jitter exponential backoff.
package backoff

import (
	"math/rand"
	"time"
)

// Controller computes bounded jittered delays for rate-limit retries. Its
// random source is seedable so tests (and the engine's own determinism
// property) can reproduce exact jitter draws.
type Controller struct {
	Base       time.Duration
	Cap        time.Duration
	MaxRetries int
	rng        *rand.Rand
}

// NewController builds a backoff controller with the given defaults.
// A nil rng falls back to a source seeded from the current time.
func NewController(base, cap time.Duration, maxRetries int, rng *rand.Rand) *Controller {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Controller{Base: base, Cap: cap, MaxRetries: maxRetries, rng: rng}
}

// Delay returns a delay drawn uniformly from [0, min(cap, base*2^attempt)],
// where attempt starts at 0 for the first retry. The drawn value always
// satisfies the full-jitter bound.
func (c *Controller) Delay(attempt int) time.Duration {
	ceiling := c.Base * (1 << uint(attempt))
	if ceiling > c.Cap || ceiling <= 0 {
		ceiling = c.Cap
	}
	if ceiling <= 0 {
		return 0
	}
	return time.Duration(c.rng.Int63n(int64(ceiling) + 1))
}
