package content

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/debemdeboas/site-editor/internal/model"
)

const DefaultMaxValueLength = 4096

type Option func(*Store)

// WithSchema restricts editable sections and fields.
func WithSchema(schema Schema) Option {
	return func(s *Store) { s.schema = schema }
}

// WithMaxValueLength bounds the length, in runes, of staged values.
func WithMaxValueLength(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxValueLength = n
		}
	}
}

// Store is the edit session: edit-mode flag, section cache and the pending-change slot.
// All mutation goes through its methods; it is safe for concurrent use.
type Store struct {
	backend Backend
	cache   *ContentCache

	schema         Schema
	maxValueLength int

	mu         sync.Mutex
	editMode   bool
	pending    *model.PendingChange
	persisting bool

	reloadNotifier func(model.SectionKey)
}

func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:        backend,
		cache:          NewContentCache(),
		maxValueLength: DefaultMaxValueLength,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetReloadNotifier sets a function that is called after a change to a section was persisted.
func (s *Store) SetReloadNotifier(notifier func(model.SectionKey)) {
	s.reloadNotifier = notifier
}

func (s *Store) Cache() *ContentCache { return s.cache }

// LoadSection makes sure the section is fetched once. Concurrent callers share a single
// in-flight fetch and wait for it; ctx only bounds the wait, never the fetch itself.
// A loaded section returns immediately. A failed one is fetched again.
func (s *Store) LoadSection(ctx context.Context, section model.SectionKey) error {
	if !section.Valid() {
		return model.ErrInvalidSectionKey
	}

	entry, started := s.cache.begin(section)
	if entry.status == model.StatusLoaded {
		return nil
	}
	if started {
		go s.fetch(context.WithoutCancel(ctx), section, entry.load)
	}

	select {
	case <-entry.load.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := entry.load.err; err != nil {
		return &LoadError{Section: section, Err: err}
	}
	return nil
}

// Prefetch starts loading a section without waiting for it.
func (s *Store) Prefetch(ctx context.Context, section model.SectionKey) {
	if !section.Valid() {
		return
	}
	if entry, started := s.cache.begin(section); started {
		go s.fetch(context.WithoutCancel(ctx), section, entry.load)
	}
}

func (s *Store) fetch(ctx context.Context, section model.SectionKey, load *inflight) {
	contentLogger.Debug().Str("section", string(section)).Msg("Loading section")

	fetched, err := s.backend.FetchSectionContent(ctx, section)
	if err != nil {
		contentLogger.Warn().Err(err).Str("section", string(section)).Msg("Section load failed, using defaults")
		s.cache.finish(section, load, nil, err)
		return
	}

	fields := make(model.SectionContent, len(fetched))
	for name, value := range fetched {
		if !name.Valid() || !s.schema.Allows(section, name) {
			contentLogger.Warn().
				Str("section", string(section)).
				Str("field", string(name)).
				Msg("Dropping unknown field from backend")
			continue
		}
		fields[name] = value
	}

	s.cache.finish(section, load, fields, nil)
	contentLogger.Debug().Str("section", string(section)).Int("fields", len(fields)).Msg("Section loaded")
}

// ReadField returns the cached value or fallback. It never triggers a load.
func (s *Store) ReadField(section model.SectionKey, field model.FieldName, fallback string) string {
	if val, ok := s.cache.Read(section, field); ok {
		return val
	}
	return fallback
}

func (s *Store) Status(section model.SectionKey) model.LoadStatus {
	return s.cache.Status(section)
}

// Invalidate forgets a loaded or failed section so the next LoadSection fetches it again.
func (s *Store) Invalidate(section model.SectionKey) bool {
	return s.cache.Invalidate(section)
}

// Editable reports whether the schema accepts edits to the field.
func (s *Store) Editable(section model.SectionKey, field model.FieldName) bool {
	return section.Valid() && field.Valid() && s.schema.Allows(section, field)
}

// SetPendingChange stages candidate as the pending change and returns it with its new ID.
// A pending change for the same field is replaced; one for any other field is kept and
// ErrStagingConflict returned.
func (s *Store) SetPendingChange(candidate model.PendingChange) (model.PendingChange, error) {
	if !candidate.Section.Valid() {
		return model.PendingChange{}, model.ErrInvalidSectionKey
	}
	if !candidate.Field.Valid() {
		return model.PendingChange{}, model.ErrInvalidFieldName
	}
	if !s.schema.Allows(candidate.Section, candidate.Field) {
		return model.PendingChange{}, ErrUnknownField
	}

	candidate.NewValue = NormalizeValue(candidate.NewValue)
	if len([]rune(candidate.NewValue)) > s.maxValueLength {
		return model.PendingChange{}, ErrValueTooLong
	}
	// Stored values may carry line endings the editor never produces.
	if candidate.NewValue == NormalizeValue(candidate.OldValue) {
		return model.PendingChange{}, ErrNoOpChange
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.persisting {
		return model.PendingChange{}, ErrStagingConflict
	}
	if s.pending != nil && s.pending.Ref() != candidate.Ref() {
		return model.PendingChange{}, ErrStagingConflict
	}

	candidate.ID = model.ChangeID(uuid.New().String())
	s.pending = &candidate

	contentLogger.Debug().
		Str("change_id", string(candidate.ID)).
		Str("field", candidate.Ref().String()).
		Msg("Change staged")

	return candidate, nil
}

// Pending returns a copy of the pending change, if any.
func (s *Store) Pending() (model.PendingChange, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return model.PendingChange{}, false
	}
	return *s.pending, true
}

// ConfirmChange persists the pending change.
func (s *Store) ConfirmChange(ctx context.Context) error {
	return s.Confirm(ctx, "")
}

// Confirm persists the pending change if its ID matches id (an empty id matches any).
// On success the cache holds the new value. On failure the change is discarded, the
// cache is untouched and a *PersistError is returned.
func (s *Store) Confirm(ctx context.Context, id model.ChangeID) error {
	s.mu.Lock()
	if s.persisting {
		s.mu.Unlock()
		return ErrConfirmInFlight
	}
	if s.pending == nil {
		s.mu.Unlock()
		return ErrNothingPending
	}
	if id != "" && s.pending.ID != id {
		s.mu.Unlock()
		return ErrStaleChange
	}
	change := *s.pending
	s.persisting = true
	s.mu.Unlock()

	err := s.backend.WriteField(ctx, change.Section, change.Field, change.NewValue)

	// The cache holds the new value before the slot frees, so no reader sees the
	// change as neither pending nor persisted.
	s.mu.Lock()
	if err == nil {
		s.cache.Set(change.Section, change.Field, change.NewValue)
	}
	s.persisting = false
	if s.pending != nil && s.pending.ID == change.ID {
		s.pending = nil
	}
	s.mu.Unlock()

	if err != nil {
		contentLogger.Error().
			Err(err).
			Str("change_id", string(change.ID)).
			Str("field", change.Ref().String()).
			Msg("Persisting change failed, reverting")
		return &PersistError{Change: change, Err: err}
	}

	contentLogger.Info().
		Str("change_id", string(change.ID)).
		Str("field", change.Ref().String()).
		Msg("Change persisted")

	if s.reloadNotifier != nil {
		go s.reloadNotifier(change.Section)
	}
	return nil
}

// CancelChange discards the pending change without calling the backend.
func (s *Store) CancelChange() error {
	return s.Cancel("")
}

// Cancel discards the pending change if its ID matches id (an empty id matches any).
// A change that is already being written cannot be cancelled.
func (s *Store) Cancel(id model.ChangeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.persisting {
		return ErrConfirmInFlight
	}
	if s.pending == nil {
		return ErrNothingPending
	}
	if id != "" && s.pending.ID != id {
		return ErrStaleChange
	}

	contentLogger.Debug().Str("change_id", string(s.pending.ID)).Msg("Change cancelled")
	s.pending = nil
	return nil
}

// ToggleEditMode flips edit mode and returns the new value. Privilege checks are the caller's job.
func (s *Store) ToggleEditMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editMode = !s.editMode
	contentLogger.Info().Bool("edit_mode", s.editMode).Msg("Edit mode toggled")
	return s.editMode
}

func (s *Store) EditMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editMode
}

// Snapshot returns a copy of the whole session.
func (s *Store) Snapshot() model.EditSession {
	sections, statuses := s.cache.snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	session := model.EditSession{
		EditMode: s.editMode,
		Sections: sections,
		Status:   statuses,
	}
	if s.pending != nil {
		p := *s.pending
		session.Pending = &p
	}
	return session
}

// NormalizeValue converts line endings to \n and drops trailing newlines.
func NormalizeValue(v string) string {
	v = strings.ReplaceAll(v, "\r\n", "\n")
	v = strings.ReplaceAll(v, "\r", "\n")
	return strings.TrimRight(v, "\n")
}
