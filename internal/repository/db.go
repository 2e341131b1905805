package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/debemdeboas/site-editor/internal/db"
	"github.com/debemdeboas/site-editor/internal/model"
	"github.com/debemdeboas/site-editor/internal/util"
	"github.com/debemdeboas/site-editor/internal/util/compression"
)

// DbRepository stores one row per field, values zstd-compressed.
type DbRepository struct { // implements ContentRepository
	notifier

	db         db.Db
	compressor compression.Compressor

	mu               sync.Mutex
	lastModifiedTime int64 // unix millis of the newest row seen by Watch
	userID           model.UserID
}

type DbOption func(*DbRepository)

// WithCompressor changes the value codec. Rows written with another codec no longer
// decode.
func WithCompressor(c compression.Compressor) DbOption {
	return func(r *DbRepository) { r.compressor = c }
}

func NewDbRepository(database db.Db, opts ...DbOption) *DbRepository {
	r := &DbRepository{
		db:         database,
		compressor: compression.ZstdCompressor{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetAuthor records who writes subsequent values.
func (r *DbRepository) SetAuthor(userID model.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userID = userID
}

func (r *DbRepository) FetchSectionContent(ctx context.Context, section model.SectionKey) (model.SectionContent, error) {
	rows, err := r.db.Get().QueryContext(ctx, `SELECT field, value FROM section_fields WHERE section = ?`, string(section))
	if err != nil {
		return nil, wrapErr("querying", section, err)
	}
	defer rows.Close()

	fields := make(model.SectionContent)
	for rows.Next() {
		var name string
		var compressed []byte
		if err := rows.Scan(&name, &compressed); err != nil {
			return nil, wrapErr("scanning", section, err)
		}

		value, err := r.compressor.Decompress(compressed)
		if err != nil {
			return nil, fmt.Errorf("error decompressing %s.%s: %w", section, name, err)
		}
		fields[model.FieldName(name)] = string(value)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("reading", section, err)
	}

	return fields, nil
}

func (r *DbRepository) WriteField(ctx context.Context, section model.SectionKey, field model.FieldName, value string) error {
	compressed, err := r.compressor.Compress([]byte(value))
	if err != nil {
		return fmt.Errorf("error compressing content: %w", err)
	}

	r.mu.Lock()
	userID := r.userID
	r.mu.Unlock()

	res, err := r.db.Get().ExecContext(ctx, `
INSERT INTO section_fields (section, field, value, content_hash, modified_at, user_id)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(section, field) DO UPDATE SET
    value = excluded.value,
    content_hash = excluded.content_hash,
    modified_at = excluded.modified_at,
    user_id = excluded.user_id`,
		string(section), string(field), compressed, util.ContentHash(compressed), time.Now().UTC().UnixMilli(), string(userID),
	)
	if err != nil {
		return fmt.Errorf("error saving %s.%s: %w", section, field, err)
	}

	repoLogger.Debug().Interface("result", res).Str("section", string(section)).Str("field", string(field)).Msg("Field saved")
	return nil
}

// GetLatestModifiedTime returns the newest modified_at in unix millis, 0 for an empty table.
func (r *DbRepository) GetLatestModifiedTime() (int64, error) {
	var latest sql.NullInt64
	if err := r.db.QueryRow(`SELECT MAX(modified_at) FROM section_fields`).Scan(&latest); err != nil {
		return 0, fmt.Errorf("error scanning latest modified time: %w", err)
	}
	return latest.Int64, nil
}

// ChangedSince lists the sections with a row modified after since.
func (r *DbRepository) ChangedSince(since int64) ([]model.SectionKey, error) {
	rows, err := r.db.Query(`SELECT DISTINCT section FROM section_fields WHERE modified_at > ?`, since)
	if err != nil {
		return nil, fmt.Errorf("error querying changed sections: %w", err)
	}
	defer rows.Close()

	var sections []model.SectionKey
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("error scanning section: %w", err)
		}
		if key, ok := sectionKeyFromName(name); ok {
			sections = append(sections, key)
		}
	}
	return sections, rows.Err()
}

func (r *DbRepository) Watch(ctx context.Context, interval time.Duration) {
	// Start from the current state; only later changes are reported.
	if latest, err := r.GetLatestModifiedTime(); err == nil {
		r.mu.Lock()
		r.lastModifiedTime = latest
		r.mu.Unlock()
	}
	poll(ctx, interval, func(context.Context) { r.checkForChanges() })
}

func (r *DbRepository) checkForChanges() {
	// First, do a lightweight check to see if anything has changed
	latest, err := r.GetLatestModifiedTime()
	if err != nil {
		repoLogger.Error().Err(err).Msg("Error checking latest modification time")
		return
	}

	r.mu.Lock()
	since := r.lastModifiedTime
	r.mu.Unlock()

	if latest <= since {
		repoLogger.Debug().Msg("No sections modified, skipping reload")
		return
	}

	sections, err := r.ChangedSince(since)
	if err != nil {
		repoLogger.Error().Err(err).Msg("Error listing changed sections")
		return
	}

	r.mu.Lock()
	r.lastModifiedTime = latest
	r.mu.Unlock()

	for _, section := range sections {
		repoLogger.Info().Str("section", string(section)).Msg("Section content changed, reloading")
		r.notifySectionReload(section)
	}
}
