package model

// ChangeID identifies one staged change so a stale confirmation surface can be detected.
type ChangeID string

// PendingChange is a single staged edit awaiting confirmation.
//
// OldValue is what the field showed when editing started (the cached value, or the
// caller's default when the section was never loaded).
type PendingChange struct {
	ID       ChangeID
	Section  SectionKey
	Field    FieldName
	OldValue string
	NewValue string
}

func (c PendingChange) Ref() FieldRef {
	return FieldRef{Section: c.Section, Field: c.Field}
}

// EditSession is a point-in-time copy of the store state.
type EditSession struct {
	EditMode bool
	Pending  *PendingChange
	Sections map[SectionKey]SectionContent
	Status   map[SectionKey]LoadStatus
}

type UserID string
