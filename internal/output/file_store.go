package output

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"constellation/internal/safeio"
)

// FileStore keeps documents on the local filesystem rooted at a base directory.
// Keys never resolve outside that directory, symlinks included.
type FileStore struct {
	root string
	fs   *safeio.Root
}

func NewFileStore(root string) *FileStore {
	root = strings.TrimSpace(root)
	s := &FileStore{root: root}
	if r, err := safeio.NewRoot(root); err == nil {
		s.fs = r
	}
	return s
}

// Root returns the base directory.
func (s *FileStore) Root() string { return s.root }

func (s *FileStore) Put(_ context.Context, key string, content []byte) error {
	k, err := s.key(key)
	if err != nil {
		return err
	}
	return s.fs.WriteFile(k, content)
}

func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	k, err := s.key(key)
	if err != nil {
		return nil, err
	}
	b, err := s.fs.ReadFile(k)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return b, err
}

func (s *FileStore) List(_ context.Context, prefix string) ([]string, error) {
	if s == nil || s.root == "" {
		return nil, fmt.Errorf("output: file store root is required")
	}
	prefix = cleanPrefix(prefix)
	var out []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == s.root {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if underPrefix(key, prefix) {
			out = append(out, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func (s *FileStore) key(key string) (string, error) {
	if s == nil || s.fs == nil {
		return "", fmt.Errorf("output: file store root is required")
	}
	return cleanKey(key)
}
