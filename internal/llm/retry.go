package llm

import (
	"context"
	"time"

	llmclient "constellation/internal/llm/client"
)

// Retry retries GenerateText up to maxAttempts, sleeping a fixed delay
// between attempts. Permanent errors and context cancellation stop it early.
func Retry(maxAttempts int, delay time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if delay < 0 {
		delay = 0
	}
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &retrying{next: next, max: maxAttempts, delay: delay}
	}
}

type retrying struct {
	next  llmclient.LLMClient
	max   int
	delay time.Duration
}

func (r *retrying) Name() string { return r.next.Name() }
func (r *retrying) Close() error { return r.next.Close() }

func (r *retrying) GenerateText(ctx context.Context, prompt string) (string, error) {
	var last error
	for i := 0; i < r.max; i++ {
		out, err := r.next.GenerateText(ctx, prompt)
		if err == nil {
			return out, nil
		}
		if llmclient.IsPermanent(err) {
			return "", err
		}
		last = err
		if i == r.max-1 {
			break
		}
		if err := sleepCtx(ctx, r.delay); err != nil {
			return "", err
		}
	}
	return "", last
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
