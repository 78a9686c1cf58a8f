package llmclient

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Options select and configure a provider client.
type Options struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Settings Settings
}

type ClientFactory func(ctx context.Context, opts Options) (LLMClient, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]ClientFactory{
		"gemini": func(ctx context.Context, opts Options) (LLMClient, error) {
			return NewGeminiClient(ctx, opts.APIKey, opts.Model, opts.Settings)
		},
		"groq": func(_ context.Context, opts Options) (LLMClient, error) {
			return NewGroqClient(opts.APIKey, opts.Model, opts.BaseURL, opts.Settings)
		},
	}
)

// RegisterProvider adds or replaces a provider factory.
func RegisterProvider(name string, f ClientFactory) {
	name = normalizeProvider(name)
	if name == "" || f == nil {
		return
	}
	factoriesMu.Lock()
	factories[name] = f
	factoriesMu.Unlock()
}

// Providers lists the registered provider names.
func Providers() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	out := make([]string, 0, len(factories))
	for name := range factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// New builds the client registered for opts.Provider (default "gemini").
func New(ctx context.Context, opts Options) (LLMClient, error) {
	name := normalizeProvider(opts.Provider)
	if name == "" {
		name = "gemini"
	}
	factoriesMu.RLock()
	f, ok := factories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("llm: unknown provider %q (known: %s)", opts.Provider, strings.Join(Providers(), ", "))
	}
	return f(ctx, opts)
}

func normalizeProvider(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
