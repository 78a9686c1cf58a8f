package llm

import (
	"context"
	"log"
	"os"
	"strconv"

	llmclient "constellation/internal/llm/client"
)

// Middleware decorates an LLMClient to inject cross-cutting concerns
// (rate limiting, retries, logging, hooks, etc.).
type Middleware func(llmclient.LLMClient) llmclient.LLMClient

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner llmclient.LLMClient, mws ...Middleware) llmclient.LLMClient {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		out = mws[i](out)
	}
	return out
}

// -------- Rate Limiting --------

// RateLimit limits request rate using the token-bucket rpsLimiter.
// If rps <= 0, the limiter is effectively disabled.
func RateLimit(rps float64, burst int) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &rateLimited{next: next, rl: newRPSLimiter(rps, burst)}
	}
}

// RateLimitFromEnv reads RPS/BURST from environment variables with the
// given prefixes in priority order. For example, ("LLM","GEMINI")
// checks LLM_RPS/LLM_BURST first, then GEMINI_RPS/GEMINI_BURST.
func RateLimitFromEnv(prefixes ...string) Middleware {
	find := func(suffix string) string {
		for _, p := range prefixes {
			if p == "" {
				continue
			}
			if v := os.Getenv(p + suffix); v != "" {
				return v
			}
		}
		return ""
	}
	rps, _ := strconv.ParseFloat(find("_RPS"), 64)
	burst, _ := strconv.Atoi(find("_BURST"))
	return RateLimit(rps, burst)
}

type rateLimited struct {
	next llmclient.LLMClient
	rl   *rpsLimiter
}

func (c *rateLimited) Name() string { return c.next.Name() }
func (c *rateLimited) Close() error {
	c.rl.Stop()
	return c.next.Close()
}
func (c *rateLimited) GenerateText(ctx context.Context, prompt string) (string, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return "", err
	}
	return c.next.GenerateText(ctx, prompt)
}

// -------- Logging & Hooks --------

// WithLogging logs request size and errors. Provide a custom logger or nil
// to use log.Default().
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next llmclient.LLMClient
	log  *log.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }
func (l *logging) GenerateText(ctx context.Context, prompt string) (string, error) {
	l.log.Printf("llm: %s request (%s): %d chars, ~%d tokens", l.next.Name(), PhaseFrom(ctx), len(prompt), llmclient.CountTokens(prompt))
	out, err := l.next.GenerateText(ctx, prompt)
	if err != nil {
		l.log.Printf("llm: %s error (%s): %v", l.next.Name(), PhaseFrom(ctx), err)
		return out, err
	}
	l.log.Printf("llm: %s reply (%s): %d chars", l.next.Name(), PhaseFrom(ctx), len(out))
	return out, nil
}

// WithHooks calls HookFrom(ctx).Before/After around GenerateText.
// If no hook is present in the context, it is a no-op.
func WithHooks() Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &hooked{next: next}
	}
}

type hooked struct{ next llmclient.LLMClient }

func (h *hooked) Name() string { return h.next.Name() }
func (h *hooked) Close() error { return h.next.Close() }
func (h *hooked) GenerateText(ctx context.Context, prompt string) (string, error) {
	hook := HookFrom(ctx)
	if hook != nil {
		hook.Before(ctx, PhaseFrom(ctx), prompt)
	}
	out, err := h.next.GenerateText(ctx, prompt)
	if hook != nil {
		hook.After(ctx, PhaseFrom(ctx), out, err)
	}
	return out, err
}
