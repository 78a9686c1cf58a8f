// Package safeio resolves slash-separated document keys to files under a
// fixed output root and refuses anything that would land outside it.
package safeio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

var ErrOutsideRoot = errors.New("safeio: path resolves outside root")

// Root binds write operations to one directory. The directory need not exist
// yet; it is created on first write.
type Root struct {
	abs string
}

func NewRoot(dir string) (*Root, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("safeio: empty root")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &Root{abs: filepath.Clean(abs)}, nil
}

// Path returns the absolute root directory.
func (r *Root) Path() string {
	if r == nil {
		return ""
	}
	return r.abs
}

// Resolve maps key to a filesystem path under the root. Existing symlinks on
// the way are followed and must stay inside the (resolved) root.
func (r *Root) Resolve(key string) (string, error) {
	if r == nil {
		return "", errors.New("safeio: root not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("safeio: empty path")
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(clean) || filepath.VolumeName(clean) != "" {
		return "", fmt.Errorf("safeio: absolute path %q not allowed", key)
	}
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errors.New("safeio: path traversal not allowed")
	}
	joined := filepath.Join(r.abs, clean)

	realRoot := evalExisting(r.abs)
	if !hasPathPrefix(evalExisting(joined), realRoot) {
		return "", fmt.Errorf("%w (root=%s, path=%s)", ErrOutsideRoot, r.abs, key)
	}
	return joined, nil
}

// WriteFile writes data to key, creating parent directories.
func (r *Root) WriteFile(key string, data []byte) error {
	p, err := r.Resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

// ReadFile reads key; a missing file yields an error wrapping fs.ErrNotExist.
func (r *Root) ReadFile(key string) ([]byte, error) {
	p, err := r.Resolve(key)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("safeio: %s is a directory: %w", key, fs.ErrNotExist)
	}
	return os.ReadFile(p)
}

// evalExisting resolves symlinks in the longest existing prefix of p and
// re-appends the missing tail.
func evalExisting(p string) string {
	var tail []string
	cur := p
	for {
		if resolved, err := filepath.EvalSymlinks(cur); err == nil {
			return filepath.Join(append([]string{resolved}, tail...)...)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p
		}
		tail = append([]string{filepath.Base(cur)}, tail...)
		cur = parent
	}
}

func hasPathPrefix(path, root string) bool {
	path = filepath.Clean(path)
	root = filepath.Clean(root)
	if runtime.GOOS == "windows" {
		path = strings.ToLower(path)
		root = strings.ToLower(root)
	}
	if path == root {
		return true
	}
	sep := string(os.PathSeparator)
	if !strings.HasSuffix(root, sep) {
		root += sep
	}
	return strings.HasPrefix(path, root)
}
