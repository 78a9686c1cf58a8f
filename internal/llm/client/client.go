package llmclient

import (
	"context"
	"errors"
)

// LLMClient defines the interface for text generation providers.
type LLMClient interface {
	Name() string
	Close() error
	// GenerateText sends a single prompt and returns the model's text reply.
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Settings are the generation parameters shared by all providers.
type Settings struct {
	MaxTokens   int
	Temperature float64
}

var ErrEmptyResponse = errors.New("llm: empty response from model")

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err (or anything it wraps) is a PermanentError.
func IsPermanent(err error) bool {
	var pErr *PermanentError
	return errors.As(err, &pErr)
}
