// Package content holds the edit session: a per-section cache of editable text loaded
// lazily from a Backend, the edit-mode flag and a single staged change awaiting confirmation.
package content

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/site-editor/internal/model"
)

var contentLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	contentLogger = l
}

// Backend is the persistence collaborator of the store.
type Backend interface {
	// FetchSectionContent reads all known fields of a section. A section that was never
	// written returns an empty map and no error.
	FetchSectionContent(ctx context.Context, section model.SectionKey) (model.SectionContent, error)

	// WriteField persists a single field value.
	WriteField(ctx context.Context, section model.SectionKey, field model.FieldName, value string) error
}

// Schema restricts the sections and fields the store accepts. An empty schema accepts
// every syntactically valid identifier.
type Schema map[model.SectionKey]map[model.FieldName]struct{}

func NewSchema(sections map[string][]string) (Schema, error) {
	schema := make(Schema, len(sections))
	for s, fields := range sections {
		key, err := model.ParseSectionKey(s)
		if err != nil {
			return nil, err
		}
		set := make(map[model.FieldName]struct{}, len(fields))
		for _, f := range fields {
			name, err := model.ParseFieldName(f)
			if err != nil {
				return nil, err
			}
			set[name] = struct{}{}
		}
		schema[key] = set
	}
	return schema, nil
}

func (s Schema) Allows(section model.SectionKey, field model.FieldName) bool {
	if len(s) == 0 {
		return true
	}
	fields, ok := s[section]
	if !ok {
		return false
	}
	_, ok = fields[field]
	return ok
}

func (s Schema) allowsSection(section model.SectionKey) bool {
	if len(s) == 0 {
		return true
	}
	_, ok := s[section]
	return ok
}
