package scan

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IsIgnored reports whether path matches any of patterns. Matching runs
// against the slash-separated path relative to root, or against the base name
// when path lies outside root.
//
// A pattern matches when
//  1. it equals the base name of path,
//  2. it starts with '*' and the relative path ends with the rest of it,
//  3. the relative path equals it or continues it with a '/',
//  4. it carries glob syntax and doublestar matches the relative path.
func IsIgnored(path string, patterns []string, root string) bool {
	if len(patterns) == 0 {
		return false
	}
	base := filepath.Base(path)
	rel := relativeTo(path, root)

	for _, p := range patterns {
		p = normalizePattern(p)
		if p == "" {
			continue
		}
		if base == p {
			return true
		}
		if strings.HasPrefix(p, "*") && strings.HasSuffix(rel, p[1:]) {
			return true
		}
		if hasPathPrefix(rel, p) {
			return true
		}
		if isGlob(p) {
			if ok, err := doublestar.Match(p, rel); err == nil && ok {
				return true
			}
		}
	}
	return false
}

func relativeTo(path, root string) string {
	cleanPath := filepath.Clean(path)
	cleanRoot := filepath.Clean(root)
	if cleanPath == cleanRoot || strings.HasPrefix(cleanPath, cleanRoot+string(filepath.Separator)) {
		if rel, err := filepath.Rel(cleanRoot, cleanPath); err == nil {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.Base(cleanPath)
}

// hasPathPrefix keeps "build" from matching "buildx".
func hasPathPrefix(rel, p string) bool {
	if !strings.HasPrefix(rel, p) {
		return false
	}
	return len(rel) == len(p) || rel[len(p)] == '/'
}

func normalizePattern(p string) string {
	p = filepath.ToSlash(strings.TrimSpace(p))
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}

func isGlob(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}
