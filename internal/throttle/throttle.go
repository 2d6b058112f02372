// Package throttle composes a token-bucket rate limiter with a
// counting semaphore into a single scoped permit, used by the scraper
// to bound both the overall request rate and the number of in-flight
// portal requests.
package throttle

import (
	"context"

	"golang.org/x/time/rate"
)

// DefaultConcurrency and DefaultRatePerSecond are the core pipeline's
// tuning parameters, not a compatibility contract: the portal imposes
// no documented limit, these are chosen to be polite.
const (
	DefaultConcurrency   = 5
	DefaultRatePerSecond = 5.0
)

// Throttler hands out Permits: acquiring one waits for a rate-limiter
// token and then a semaphore slot, in that order. The token is
// consumed the moment it is taken, regardless of what the caller does
// with the permit; the semaphore slot is held for the permit's
// lifetime.
type Throttler struct {
	limiter *rate.Limiter
	sem     chan struct{}
}

// New builds a Throttler allowing ratePerSecond tokens/sec (burst 1)
// and at most concurrency requests in flight at once.
func New(concurrency int, ratePerSecond float64) *Throttler {
	return &Throttler{
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		sem:     make(chan struct{}, concurrency),
	}
}

// Permit is a scoped handle combining one consumed rate-limit token and
// one held concurrency slot. Release must be called exactly once to
// free the slot for the next waiter.
type Permit struct {
	sem chan struct{}
}

// Release frees the held concurrency slot. Safe to call once; calling
// it more than once would over-release the semaphore, so callers
// should use defer immediately after Acquire succeeds.
func (p Permit) Release() {
	<-p.sem
}

// Acquire blocks until a rate-limit token is available, then until a
// concurrency slot is free, and returns a Permit scoped to the
// caller's request. Returns ctx.Err() if ctx is cancelled first.
func (t *Throttler) Acquire(ctx context.Context) (Permit, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return Permit{}, err
	}
	select {
	case t.sem <- struct{}{}:
		return Permit{sem: t.sem}, nil
	case <-ctx.Done():
		return Permit{}, ctx.Err()
	}
}
