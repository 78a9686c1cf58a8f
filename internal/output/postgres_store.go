package output

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore keeps documents as rows of constellation_documents, one row
// per key, with the id of the run that last wrote it.
type PostgresStore struct {
	db *sql.DB

	schemaOnce sync.Once
	schemaErr  error

	cache *lru.Cache[string, []byte]
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return newPostgresStore(db)
}

func newPostgresStore(db *sql.DB) (*PostgresStore, error) {
	cache, err := lru.New[string, []byte](512)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{db: db, cache: cache}, nil
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS constellation_documents (
  path TEXT PRIMARY KEY,
  run_id TEXT NOT NULL DEFAULT '',
  content BYTEA NOT NULL,
  size BIGINT NOT NULL DEFAULT 0,
  updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_constellation_documents_run_id ON constellation_documents (run_id);
`)
	})
	return s.schemaErr
}

func (s *PostgresStore) Put(ctx context.Context, key string, content []byte) error {
	k, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := s.ensureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	if content == nil {
		content = []byte{}
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO constellation_documents (path, run_id, content, size, updated_at)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (path)
DO UPDATE SET run_id=EXCLUDED.run_id,
  content=EXCLUDED.content,
  size=EXCLUDED.size,
  updated_at=NOW()`, k, RunIDFrom(ctx), content, int64(len(content)))
	if err != nil {
		return err
	}
	s.cache.Add(k, append([]byte(nil), content...))
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	k, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	if b, ok := s.cache.Get(k); ok {
		return append([]byte(nil), b...), nil
	}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	var content []byte
	err = s.db.QueryRowContext(ctx, `SELECT content FROM constellation_documents WHERE path = $1`, k).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.cache.Add(k, content)
	return append([]byte(nil), content...), nil
}

func (s *PostgresStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	prefix = cleanPrefix(prefix)
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM constellation_documents ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		if underPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	return out, rows.Err()
}
