// Package repository implements the content backends the edit store persists to.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/site-editor/internal/content"
	"github.com/debemdeboas/site-editor/internal/model"
)

var repoLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	repoLogger = l
}

const (
	TypeMemory = "memory"
	TypeSQLite = "sqlite"
	TypeFS     = "fs"
	TypeS3     = "s3"
)

// ContentRepository is a content.Backend that can also report sections changed behind
// the store's back.
type ContentRepository interface {
	content.Backend

	// Watch polls for changes until ctx is done, calling the reload notifier for every
	// section whose persisted content changed.
	Watch(ctx context.Context, interval time.Duration)

	// SetReloadNotifier sets a function that will be called when a section changed.
	SetReloadNotifier(notifier func(model.SectionKey))
}

type notifier struct {
	reloadNotifier func(model.SectionKey)
}

func (n *notifier) SetReloadNotifier(fn func(model.SectionKey)) {
	n.reloadNotifier = fn
}

func (n *notifier) notifySectionReload(section model.SectionKey) {
	if n.reloadNotifier != nil {
		n.reloadNotifier(section)
	}
}

// poll runs check every interval until ctx is done.
func poll(ctx context.Context, interval time.Duration, check func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check(ctx)
		}
	}
}

// sectionKeyFromName parses a stored section name, logging and skipping invalid ones.
func sectionKeyFromName(name string) (model.SectionKey, bool) {
	key, err := model.ParseSectionKey(name)
	if err != nil {
		repoLogger.Warn().Err(err).Msg("Skipping stored section with invalid key")
		return "", false
	}
	return key, true
}

func wrapErr(op string, section model.SectionKey, err error) error {
	return fmt.Errorf("%s section %q: %w", op, section, err)
}
