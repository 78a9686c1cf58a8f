package llm

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"
	"time"

	llmclient "constellation/internal/llm/client"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted returns errs[i] for the i-th call, then succeeds.
type scripted struct {
	errs  []error
	calls int
}

func (s *scripted) Name() string { return "scripted" }
func (s *scripted) Close() error { return nil }
func (s *scripted) GenerateText(ctx context.Context, prompt string) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	return "reply:" + prompt, nil
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	inner := &scripted{errs: []error{errors.New("503"), errors.New("503")}}
	cli := Retry(3, time.Millisecond)(inner)

	out, err := cli.GenerateText(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "reply:p", out)
	assert.Equal(t, 3, inner.calls)
}

func TestRetry_ExhaustsAndReturnsLastError(t *testing.T) {
	last := errors.New("third")
	inner := &scripted{errs: []error{errors.New("first"), errors.New("second"), last}}
	cli := Retry(3, time.Millisecond)(inner)

	_, err := cli.GenerateText(context.Background(), "p")
	assert.ErrorIs(t, err, last)
	assert.Equal(t, 3, inner.calls)
}

func TestRetry_FixedDelayBetweenAttempts(t *testing.T) {
	inner := &scripted{errs: []error{errors.New("a"), errors.New("b"), errors.New("c")}}
	cli := Retry(3, 40*time.Millisecond)(inner)

	start := time.Now()
	_, err := cli.GenerateText(context.Background(), "p")
	require.Error(t, err)
	elapsed := time.Since(start)
	// two sleeps between three attempts, none after the last
	assert.GreaterOrEqual(t, elapsed, 80*time.Millisecond)
	assert.Less(t, elapsed, 400*time.Millisecond)
}

func TestRetry_PermanentErrorStopsImmediately(t *testing.T) {
	inner := &scripted{errs: []error{llmclient.NewPermanentError(errors.New("401"))}}
	cli := Retry(5, time.Millisecond)(inner)

	_, err := cli.GenerateText(context.Background(), "p")
	assert.True(t, llmclient.IsPermanent(err))
	assert.Equal(t, 1, inner.calls)
}

func TestRetry_ContextCanceled(t *testing.T) {
	inner := &scripted{errs: []error{errors.New("a"), errors.New("b")}}
	cli := Retry(3, time.Hour)(inner)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := cli.GenerateText(ctx, "p")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, inner.calls)
}

func TestWrap_OrderAndLogging(t *testing.T) {
	var buf bytes.Buffer
	inner := &scripted{errs: []error{errors.New("flaky")}}
	cli := Wrap(inner, Retry(2, 0), WithLogging(log.New(&buf, "", 0)))

	out, err := cli.GenerateText(WithPhase(context.Background(), "summary"), "hello")
	require.NoError(t, err)
	assert.Equal(t, "reply:hello", out)
	// logging sits inside retry, so both attempts are logged
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("request (summary)")))
	assert.Contains(t, buf.String(), "error (summary): flaky")
	assert.Equal(t, "scripted", cli.Name())
}
