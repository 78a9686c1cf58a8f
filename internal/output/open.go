package output

import (
	"fmt"
	"strings"
)

const (
	KindFS       = "fs"
	KindMemory   = "memory"
	KindS3       = "s3"
	KindPostgres = "postgres"
)

// Options selects and configures a Store.
type Options struct {
	Kind        string
	Dir         string
	S3          S3Config
	PostgresDSN string
}

// Open builds the store named by opts.Kind; "" means "fs".
func Open(opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Kind)) {
	case "", KindFS:
		dir := strings.TrimSpace(opts.Dir)
		if dir == "" {
			dir = "root"
		}
		return NewFileStore(dir), nil
	case KindMemory:
		return NewMemoryStore(), nil
	case KindS3:
		return NewS3Store(opts.S3)
	case KindPostgres:
		return NewPostgresStore(opts.PostgresDSN)
	default:
		return nil, fmt.Errorf("output: unknown store %q (want fs, memory, s3 or postgres)", opts.Kind)
	}
}

// Location describes where a store writes, for reports.
func Location(s Store) string {
	switch v := s.(type) {
	case *FileStore:
		return v.Root()
	case *MemoryStore:
		return "memory"
	case *S3Store:
		if v.prefix == "" {
			return "s3://" + v.bucketName
		}
		return "s3://" + v.bucketName + "/" + v.prefix
	case *PostgresStore:
		return "postgres:constellation_documents"
	default:
		return fmt.Sprintf("%T", s)
	}
}
