package siigo

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// RequestLimiter bounds outbound Siigo traffic both in concurrency and in requests per
// second. A zero value for either bound disables it.
type RequestLimiter struct {
	sem  *semaphore.Weighted
	rate *rate.Limiter
}

// NewRequestLimiter creates a limiter allowing maxConcurrent in-flight requests and rps
// requests per second.
func NewRequestLimiter(maxConcurrent, rps int) *RequestLimiter {
	l := &RequestLimiter{}
	if maxConcurrent > 0 {
		l.sem = semaphore.NewWeighted(int64(maxConcurrent))
	}
	if rps > 0 {
		l.rate = rate.NewLimiter(rate.Limit(rps), rps)
	}
	return l
}

// Acquire blocks until a request may be sent. The returned release must be called
// once the response has been read.
func (l *RequestLimiter) Acquire(ctx context.Context) (release func(), err error) {
	if l == nil {
		return func() {}, nil
	}
	if l.rate != nil {
		if err := l.rate.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if l.sem == nil {
		return func() {}, nil
	}
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { l.sem.Release(1) }, nil
}
