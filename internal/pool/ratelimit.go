package pool

import (
	"golang.org/x/time/rate"

	"github.com/rad-link/corestore/internal/identity"
)

// RateLimited wraps any Pooled implementation with a shared, in-memory
// token-bucket limiter. It is meant for the network layer to throttle its
// reaction to upstream failures, not to block core operations: Get itself
// is never delayed by the limiter.
type RateLimited struct {
	inner   Pooled
	limiter *rate.Limiter
}

// NewRateLimited wraps inner with a token bucket refilling at
// perSecond operations/sec, burst sized to one second's worth of quota.
func NewRateLimited(inner Pooled, perSecond float64) *RateLimited {
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{inner: inner, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (r *RateLimited) Get(urn identity.URN) (*PooledRef, error) {
	return r.inner.Get(urn)
}

var _ Pooled = (*RateLimited)(nil)

// IsErrorRateLimitBreached takes one token from the bucket and reports true
// when none was available, so each call counts as one operation against the
// quota. Callers use this to throttle their own reaction to upstream
// failures; it never blocks a Get.
func (r *RateLimited) IsErrorRateLimitBreached() bool {
	return !r.limiter.Allow()
}
