// Package model defines core data structures and types for the inline content editor.
package model

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	ErrInvalidSectionKey = errors.New("invalid section key")
	ErrInvalidFieldName  = errors.New("invalid field name")
)

var identifierPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,63}$`)

// SectionKey identifies a logical content block on the page, e.g. "hero".
type SectionKey string

// FieldName identifies a piece of text within a section, e.g. "title".
type FieldName string

func ParseSectionKey(s string) (SectionKey, error) {
	if !identifierPattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSectionKey, s)
	}
	return SectionKey(s), nil
}

func ParseFieldName(s string) (FieldName, error) {
	if !identifierPattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFieldName, s)
	}
	return FieldName(s), nil
}

func (k SectionKey) Valid() bool { return identifierPattern.MatchString(string(k)) }

func (f FieldName) Valid() bool { return identifierPattern.MatchString(string(f)) }

// SectionContent maps field names to their current text.
type SectionContent map[FieldName]string

// Clone returns a copy that shares nothing with c.
func (c SectionContent) Clone() SectionContent {
	out := make(SectionContent, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// FieldRef addresses a single field.
type FieldRef struct {
	Section SectionKey
	Field   FieldName
}

func (r FieldRef) String() string {
	return string(r.Section) + "." + string(r.Field)
}

type LoadStatus int

const (
	StatusUnloaded LoadStatus = iota
	StatusLoading
	StatusLoaded
	StatusFailed
)

func (s LoadStatus) String() string {
	switch s {
	case StatusUnloaded:
		return "unloaded"
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("LoadStatus(%d)", int(s))
	}
}
