package scan

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	t "constellation/internal/types"
)

// Options selects which files of a directory are aggregated.
type Options struct {
	// Extensions is an allow-list; empty means every non-ignored file.
	Extensions []string
	Ignore     []string
	Logger     *log.Logger
}

func (o Options) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.Default()
}

// Aggregate reads the regular files directly inside dir (no recursion) and
// concatenates them between START/END FILE markers in listing order. Paths in
// the result are relative to root. Unreadable files are logged and skipped; an
// unlistable directory yields an empty result.
func Aggregate(dir string, opts Options, root string) t.AggregationResult {
	var out t.AggregationResult
	entries, err := os.ReadDir(dir)
	if err != nil {
		opts.logger().Printf("scan: list %s: %v", displayPath(dir, root), err)
		return out
	}

	allowed := extensionSet(opts.Extensions)
	var sb strings.Builder
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		fi, err := os.Stat(p)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		if IsIgnored(p, opts.Ignore, root) {
			continue
		}
		if len(allowed) > 0 {
			if _, ok := allowed[extOf(e.Name())]; !ok {
				continue
			}
		}

		b, err := os.ReadFile(p)
		if err != nil {
			opts.logger().Printf("scan: read %s: %v", e.Name(), err)
			continue
		}
		content := strings.ToValidUTF8(string(b), "")
		rel := displayPath(p, root)

		out.Files = append(out.Files, t.FileRecord{
			Name:          e.Name(),
			Path:          rel,
			ContentLength: utf8.RuneCountInString(content),
		})
		sb.WriteString("--- START FILE: " + rel + " ---\n")
		sb.WriteString(content)
		sb.WriteString("\n--- END FILE: " + rel + " ---\n\n")
	}
	out.ConcatenatedContent = sb.String()
	return out
}

// extensionSet lowercases exts and adds the leading dot where missing.
func extensionSet(exts []string) map[string]struct{} {
	allowed := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = struct{}{}
	}
	return allowed
}

// extOf returns the lowercased extension of name. Dotfiles such as
// ".gitignore" have no extension.
func extOf(name string) string {
	trimmed := strings.TrimLeft(name, ".")
	i := strings.LastIndex(trimmed, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(trimmed[i:])
}

func displayPath(p, root string) string {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}
