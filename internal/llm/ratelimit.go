package llm

import (
	"context"
	"sync"
	"time"
)

// rpsLimiter is a lightweight token-bucket limiter that throttles to at most
// R requests per second with an optional burst capacity.
type rpsLimiter struct {
	tokens   chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
}

// newRPSLimiter creates a limiter that allows up to rps events per second
// with a burst capacity of 'burst'. If rps <= 0 it returns nil and
// Acquire on the nil limiter is a no-op.
func newRPSLimiter(rps float64, burst int) *rpsLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}

	l := &rpsLimiter{
		tokens: make(chan struct{}, burst),
		stopCh: make(chan struct{}),
	}
	for i := 0; i < burst; i++ {
		l.tokens <- struct{}{}
	}

	// 1.5 rps ≈ one token every 666ms.
	period := time.Duration(float64(time.Second) / rps)
	if period <= 0 {
		period = time.Millisecond
	}
	ticker := time.NewTicker(period)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case l.tokens <- struct{}{}:
				default:
					// bucket full
				}
			case <-l.stopCh:
				return
			}
		}
	}()

	return l
}

// Acquire blocks until a token is available or the context is canceled.
func (l *rpsLimiter) Acquire(ctx context.Context) error {
	if l == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopCh:
		return context.Canceled
	case <-l.tokens:
		return nil
	}
}

// Stop terminates the refill goroutine. It is safe to call more than once.
func (l *rpsLimiter) Stop() {
	if l == nil {
		return
	}
	l.stopOnce.Do(func() { close(l.stopCh) })
}
