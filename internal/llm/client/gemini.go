package llmclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	genai "google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-1.5-flash-latest"

// GeminiClient is a thin wrapper around the official genai client.
// It only focuses on the API call itself. Cross-cutting concerns
// (rate limiting, retries, logging, hooks) are applied via Middleware.
type GeminiClient struct {
	cli      *genai.Client
	model    string
	settings Settings
}

func NewGeminiClient(ctx context.Context, apiKey, model string, settings Settings) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: init client: %w", err)
	}
	return &GeminiClient{cli: cli, model: NormalizeGeminiModel(model), settings: settings}, nil
}

// NormalizeGeminiModel strips the "models/" resource prefix; the SDK adds it.
func NormalizeGeminiModel(model string) string {
	model = strings.TrimSpace(model)
	if model == "" {
		return DefaultGeminiModel
	}
	return strings.TrimPrefix(model, "models/")
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }
func (g *GeminiClient) Close() error { return nil }

// GenerateText returns the concatenated text parts of the first candidate.
func (g *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(g.settings.Temperature)),
	}
	if g.settings.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(g.settings.MaxTokens)
	}
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		cfg,
	)
	if err != nil {
		return "", classifyGeminiError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}

// classifyGeminiError marks request errors that a retry cannot fix.
func classifyGeminiError(err error) error {
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		code = apiErrPtr.Code
	}
	switch code {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return NewPermanentError(fmt.Errorf("gemini: %w", err))
	}
	return err
}
