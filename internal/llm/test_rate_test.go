package llm

import (
	"context"
	"testing"
	"time"

	llmclient "constellation/internal/llm/client"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fast fake client that returns immediately
type fastClient struct{}

func (f *fastClient) Name() string { return "fast" }
func (f *fastClient) Close() error { return nil }
func (f *fastClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	return "ok", nil
}

// spy records timestamps when requests reach the inner client
type spy struct{ times []time.Time }
type spyingClient struct {
	next llmclient.LLMClient
	rec  *spy
}

func (s *spyingClient) Name() string { return s.next.Name() }
func (s *spyingClient) Close() error { return s.next.Close() }
func (s *spyingClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	s.rec.times = append(s.rec.times, time.Now())
	return s.next.GenerateText(ctx, prompt)
}

func TestRate_RPS_2PerSecond_Burst1_Spacing(t *testing.T) {
	rec := &spy{}
	cli := Wrap(&spyingClient{next: &fastClient{}, rec: rec}, RateLimit(2, 1))
	t.Cleanup(func() { _ = cli.Close() })

	ctx := context.Background()
	start := time.Now()
	_, err := cli.GenerateText(ctx, "p")
	require.NoError(t, err)
	_, err = cli.GenerateText(ctx, "p")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 450*time.Millisecond, "expected throttling")
	assert.Len(t, rec.times, 2)
}

func TestRate_RPS_2PerSecond_Burst2_FirstTwoImmediate(t *testing.T) {
	cli := RateLimit(2, 2)(&fastClient{})
	t.Cleanup(func() { _ = cli.Close() })

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 2; i++ {
		_, err := cli.GenerateText(ctx, "p")
		require.NoError(t, err)
	}
	firstTwo := time.Since(start)

	start3 := time.Now()
	_, err := cli.GenerateText(ctx, "p")
	require.NoError(t, err)
	third := time.Since(start3)

	assert.Less(t, firstTwo, 100*time.Millisecond)
	assert.GreaterOrEqual(t, third, 400*time.Millisecond)
}

func TestRate_Disabled(t *testing.T) {
	cli := RateLimit(0, 0)(&fastClient{})
	start := time.Now()
	for i := 0; i < 20; i++ {
		_, err := cli.GenerateText(context.Background(), "p")
		require.NoError(t, err)
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	require.NoError(t, cli.Close())
}

func TestRate_ContextCanceledWhileWaiting(t *testing.T) {
	cli := RateLimit(0.1, 1)(&fastClient{})
	t.Cleanup(func() { _ = cli.Close() })

	_, err := cli.GenerateText(context.Background(), "p")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = cli.GenerateText(ctx, "p")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimitFromEnv(t *testing.T) {
	t.Setenv("LLM_RPS", "")
	t.Setenv("GEMINI_RPS", "2")
	t.Setenv("GEMINI_BURST", "1")

	cli := RateLimitFromEnv("LLM", "GEMINI")(&fastClient{})
	t.Cleanup(func() { _ = cli.Close() })
	rl, ok := cli.(*rateLimited)
	require.True(t, ok)
	require.NotNil(t, rl.rl)
	assert.Equal(t, 1, cap(rl.rl.tokens))
}
