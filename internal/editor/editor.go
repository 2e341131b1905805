// Package editor serves the inline editing overlay: editable field fragments, the
// edit-mode toggle and the change confirmation dialog.
package editor

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/site-editor/internal/model"
)

var editorLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	editorLogger = l
}

//go:embed templates/*.html
var templateFS embed.FS

const (
	tmplField        = "field"
	tmplFieldEdit    = "field-edit"
	tmplToggle       = "toggle"
	tmplConfirmation = "confirmation"
)

// Session is the part of the edit session store the overlay drives.
type Session interface {
	LoadSection(ctx context.Context, section model.SectionKey) error
	ReadField(section model.SectionKey, field model.FieldName, fallback string) string
	Status(section model.SectionKey) model.LoadStatus
	Editable(section model.SectionKey, field model.FieldName) bool

	Stager
	Pending() (model.PendingChange, bool)
	Confirm(ctx context.Context, id model.ChangeID) error
	Cancel(id model.ChangeID) error

	ToggleEditMode() bool
	EditMode() bool
}

// Binding ties a rendered piece of text to one field. Default is shown until the
// section has loaded, or when it has no value for the field.
type Binding struct {
	Section model.SectionKey
	Field   model.FieldName
	Default string
}

func NewBinding(section, field, def string) (Binding, error) {
	s, err := model.ParseSectionKey(section)
	if err != nil {
		return Binding{}, err
	}
	f, err := model.ParseFieldName(field)
	if err != nil {
		return Binding{}, err
	}
	return Binding{Section: s, Field: f, Default: def}, nil
}

// ParseBinding reads the section, field and default parameters of a request.
func ParseBinding(v url.Values) (Binding, error) {
	return NewBinding(v.Get("section"), v.Get("field"), v.Get("default"))
}

func (b Binding) Ref() model.FieldRef {
	return model.FieldRef{Section: b.Section, Field: b.Field}
}

func (b Binding) Values() url.Values {
	return url.Values{
		"section": {string(b.Section)},
		"field":   {string(b.Field)},
		"default": {b.Default},
	}
}

func (b Binding) url(path string) string {
	return fmt.Sprintf("%s?%s", path, b.Values().Encode())
}

func parseTemplates() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/*.html"))
}
