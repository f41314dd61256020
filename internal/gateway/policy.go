package gateway

import (
	"math/rand/v2"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy controls how transient failures are retried.
type RetryPolicy struct {
	MaxRetries   uint64
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// MaxJitter adds a uniform random delay in [0, MaxJitter) to every wait.
	MaxJitter time.Duration
}

// DefaultRetryPolicy waits 1s, 2s, 4s (each plus up to 1s of jitter) before
// the three retries.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:   3,
	InitialDelay: time.Second,
	MaxDelay:     10 * time.Second,
	MaxJitter:    time.Second,
}

// Backoff returns a fresh backoff sequence for one logical request.
func (p RetryPolicy) Backoff() retry.Backoff {
	b := retry.NewExponential(p.InitialDelay)
	b = retry.WithCappedDuration(p.MaxDelay, b)
	b = withAddedJitter(p.MaxJitter, b)
	return retry.WithMaxRetries(p.MaxRetries, b)
}

// withAddedJitter adds [0, j) to each delay. retry.WithJitter spreads
// symmetrically around the delay, which could wait less than the base.
func withAddedJitter(j time.Duration, next retry.Backoff) retry.Backoff {
	return retry.BackoffFunc(func() (time.Duration, bool) {
		d, stop := next.Next()
		if stop {
			return 0, true
		}
		if j > 0 {
			d += time.Duration(rand.Int64N(int64(j)))
		}
		return d, false
	})
}
