package repository

import (
	"context"
	"fmt"
	"os"

	"github.com/debemdeboas/site-editor/internal/config"
	"github.com/debemdeboas/site-editor/internal/db"
	"github.com/debemdeboas/site-editor/internal/util/compression"
)

// NewFromConfig creates the content repository selected by cfg.Type. database is only
// used by the sqlite backend and may be nil otherwise.
func NewFromConfig(ctx context.Context, cfg config.BackendConfig, database db.Db) (ContentRepository, error) {
	switch cfg.Type {
	case TypeMemory:
		return NewMemoryRepository(), nil
	case TypeSQLite, "":
		if database == nil {
			return nil, fmt.Errorf("backend type %s requires a database", TypeSQLite)
		}
		compressor, err := compression.New(cfg.Compression)
		if err != nil {
			return nil, err
		}
		return NewDbRepository(database, WithCompressor(compressor)), nil
	case TypeFS:
		return NewFSRepository(cfg.ContentPath), nil
	case TypeS3:
		client, err := NewS3Client(ctx, os.Getenv("S3_ACCESS_KEY_ID"), os.Getenv("S3_SECRET_ACCESS_KEY"), cfg.S3Endpoint)
		if err != nil {
			return nil, err
		}
		return NewS3Repository(client, cfg.S3Bucket, cfg.S3Prefix), nil
	default:
		return nil, fmt.Errorf("unknown backend type: %s (supported: %s, %s, %s, %s)", cfg.Type, TypeMemory, TypeSQLite, TypeFS, TypeS3)
	}
}

var (
	_ ContentRepository = (*MemoryRepository)(nil)
	_ ContentRepository = (*DbRepository)(nil)
	_ ContentRepository = (*FSRepository)(nil)
	_ ContentRepository = (*S3Repository)(nil)
)
