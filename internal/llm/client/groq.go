package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultGroqModel   = "llama-3.3-70b-versatile"
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1/chat/completions"
)

// GroqClient calls the Groq Chat Completions API (OpenAI-compatible).
// See: https://console.groq.com/docs/api-reference
type GroqClient struct {
	http     *http.Client
	apiKey   string
	model    string
	baseURL  string
	settings Settings
}

// NewGroqClient creates a Groq client. An empty baseURL uses the public endpoint.
func NewGroqClient(apiKey, model, baseURL string, settings Settings) (*GroqClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("groq: api key is required")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultGroqModel
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultGroqBaseURL
	}
	return &GroqClient{
		http:     &http.Client{Timeout: 120 * time.Second},
		apiKey:   apiKey,
		model:    model,
		baseURL:  baseURL,
		settings: settings,
	}, nil
}

func (g *GroqClient) Name() string { return "Groq:" + g.model }
func (g *GroqClient) Close() error { return nil }

type groqChatReq struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}
type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
type groqChatResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateText sends prompt as a single user message.
func (g *GroqClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	reqBody := groqChatReq{
		Model:       g.model,
		Messages:    []groqMessage{{Role: "user", Content: prompt}},
		Temperature: g.settings.Temperature,
		MaxTokens:   g.settings.MaxTokens,
	}
	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", NewPermanentError(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(b))
	if err != nil {
		return "", NewPermanentError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		err := fmt.Errorf("groq: unexpected status %s: %s", resp.Status, string(body))
		switch resp.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return "", NewPermanentError(err)
		}
		return "", err
	}
	var out groqChatResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return out.Choices[0].Message.Content, nil
}
