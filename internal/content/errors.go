package content

import (
	"errors"
	"fmt"

	"github.com/debemdeboas/site-editor/internal/model"
)

var (
	// ErrStagingConflict is returned when a different field is staged while a change is pending.
	ErrStagingConflict = errors.New("another change is already pending")
	// ErrNoOpChange is returned when the staged value equals the value being replaced.
	ErrNoOpChange = errors.New("nothing to stage: value unchanged")
	// ErrNothingPending is returned by confirm or cancel when no change is staged.
	ErrNothingPending = errors.New("no pending change")
	// ErrStaleChange is returned when the caller resolves a change that is no longer the pending one.
	ErrStaleChange = errors.New("pending change was replaced")
	// ErrConfirmInFlight is returned while a previous confirm is still writing.
	ErrConfirmInFlight = errors.New("confirm already in progress")
	// ErrUnknownField is returned for a field outside the configured sections.
	ErrUnknownField = errors.New("field is not editable")
	// ErrValueTooLong is returned when a staged value exceeds the maximum length.
	ErrValueTooLong = errors.New("value exceeds maximum length")
)

// LoadError reports a failed section fetch. Reads fall back to caller defaults until
// a later load succeeds.
type LoadError struct {
	Section model.SectionKey
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading section %q: %v", e.Section, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// PersistError reports a failed confirm. The change has been discarded and the cache
// still holds the last persisted value.
type PersistError struct {
	Change model.PendingChange
	Err    error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persisting %s: %v", e.Change.Ref(), e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
