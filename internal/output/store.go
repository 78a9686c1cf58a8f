// Package output persists generated documents under a tree that mirrors the
// analyzed project, keyed by "<DirectoryIdentity>/<fileName>".
package output

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// Store defines operations for persisting generated documents. Keys are
// slash-separated paths relative to the output root.
type Store interface {
	Put(ctx context.Context, key string, content []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	// List returns the keys under prefix ("" for all), sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

var ErrNotFound = errors.New("output: document not found")

type ctxKeyRunID struct{}

// WithRunID tags ctx with the id of the current run; stores that keep
// provenance record it.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ctxKeyRunID{}, runID)
}

// RunIDFrom returns the run id stored in ctx, or "".
func RunIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRunID{}).(string); ok {
		return v
	}
	return ""
}

// cleanKey normalizes key and rejects absolute or escaping paths.
func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if key == "" {
		return "", fmt.Errorf("output: key is required")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("output: invalid key %q", key)
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("output: invalid key %q", key)
	}
	return cleaned, nil
}

func cleanPrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(strings.ReplaceAll(prefix, "\\", "/")), "/")
	if prefix == "" || prefix == "." {
		return ""
	}
	return path.Clean(prefix)
}

// underPrefix reports whether key equals prefix or sits below it.
func underPrefix(key, prefix string) bool {
	return prefix == "" || key == prefix || strings.HasPrefix(key, prefix+"/")
}
