package editor

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/site-editor/internal/auth"
	"github.com/debemdeboas/site-editor/internal/config"
	"github.com/debemdeboas/site-editor/internal/content"
	"github.com/debemdeboas/site-editor/internal/model"
	"github.com/debemdeboas/site-editor/internal/routes"
)

const (
	eventKeydown = "keydown"
	formOriginal = "original"

	loadingRefresh = "load delay:1s"
	maxEditorRows  = 12
)

type Handler struct {
	session   Session
	privilege auth.Privilege
	templates *template.Template
	cfg       config.EditorConfig
}

func NewHandler(session Session, privilege auth.Privilege, cfg config.EditorConfig) *Handler {
	return &Handler{
		session:   session,
		privilege: privilege,
		templates: parseTemplates(),
		cfg:       cfg,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET "+routes.EditorField, h.ServeField)
	mux.HandleFunc("POST "+routes.EditorField, h.ServeCommit)
	mux.HandleFunc("GET "+routes.EditorFieldEdit, h.ServeFieldEdit)
	mux.HandleFunc("GET "+routes.EditorToggle, h.ServeToggle)
	mux.HandleFunc("POST "+routes.EditorToggle, h.ServeToggleFlip)
	mux.HandleFunc("GET "+routes.EditorPending, h.ServePending)
	mux.HandleFunc("POST "+routes.EditorConfirm, h.ServeConfirm)
	mux.HandleFunc("POST "+routes.EditorCancel, h.ServeCancel)
}

// ContentEvent is the server-sent event name announcing new persisted content for a section.
func ContentEvent(section model.SectionKey) string {
	return config.EventContentChanged + "-" + string(section)
}

// canEdit reports whether the viewer may use the overlay at all.
func (h *Handler) canEdit(r *http.Request) bool {
	return h.cfg.Enabled && h.privilege.IsPrivilegedViewer(r)
}

func (h *Handler) affordance(r *http.Request, b Binding) bool {
	return h.canEdit(r) && h.session.EditMode() && h.session.Editable(b.Section, b.Field)
}

// load waits a bounded time for the section. Failures leave the defaults in place.
func (h *Handler) load(r *http.Request, section model.SectionKey) {
	ctx := r.Context()
	if h.cfg.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.LoadTimeout)
		defer cancel()
	}
	if err := h.session.LoadSection(ctx, section); err != nil {
		zerolog.Ctx(r.Context()).Debug().Err(err).Str("section", string(section)).Msg("Rendering with defaults")
	}
}

type fieldView struct {
	FieldURL   string
	EditURL    string
	Refresh    string
	Affordance bool
	Pending    bool
	Value      string
}

// displayed returns what a field shows: the staged text when the viewer can edit and
// the pending change is for this field, otherwise the cached value or the default.
func (h *Handler) displayed(r *http.Request, b Binding) (string, bool) {
	if h.canEdit(r) {
		if p, ok := h.session.Pending(); ok && p.Ref() == b.Ref() {
			return p.NewValue, true
		}
	}
	return h.session.ReadField(b.Section, b.Field, b.Default), false
}

func (h *Handler) fieldView(r *http.Request, b Binding) fieldView {
	value, pending := h.displayed(r, b)

	refresh := []string{
		config.EventPendingChanged + " from:body",
		config.EventEditModeChanged + " from:body",
		"sse:" + ContentEvent(b.Section),
	}
	if h.session.Status(b.Section) == model.StatusLoading {
		refresh = append(refresh, loadingRefresh)
	}

	return fieldView{
		FieldURL:   b.url(routes.EditorField),
		EditURL:    b.url(routes.EditorFieldEdit),
		Refresh:    strings.Join(refresh, ", "),
		Affordance: h.affordance(r, b),
		Pending:    pending,
		Value:      value,
	}
}

func (h *Handler) render(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	html, err := h.render(name, data)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("template", name).Msg("Error rendering fragment")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
		return
	}
	w.Header().Set(config.HCType, config.CTypeHTML)
	w.Header().Set(config.HCacheControl, "no-store")
	w.WriteHeader(status)
	w.Write([]byte(html))
}

func (h *Handler) writeEmpty(w http.ResponseWriter) {
	w.Header().Set(config.HCType, config.CTypeHTML)
	w.Header().Set(config.HCacheControl, "no-store")
	w.WriteHeader(http.StatusOK)
}

// RenderField renders the EditableField for b, waiting briefly for its section to load.
func (h *Handler) RenderField(r *http.Request, b Binding) (template.HTML, error) {
	h.load(r, b.Section)
	return h.render(tmplField, h.fieldView(r, b))
}

func (h *Handler) ServeField(w http.ResponseWriter, r *http.Request) {
	b, err := ParseBinding(r.URL.Query())
	if err != nil {
		http.Error(w, config.ErrInvalidField, http.StatusBadRequest)
		return
	}
	h.load(r, b.Section)
	h.write(w, r, http.StatusOK, tmplField, h.fieldView(r, b))
}

type editView struct {
	CommitURL string
	Section   model.SectionKey
	Field     model.FieldName
	Default   string
	Original  string
	Ref       string
	Value     string
	Rows      int
	MaxLength int
	Error     string
}

func (h *Handler) editView(b Binding, original, value, errMsg string) editView {
	rows := strings.Count(value, "\n") + 1
	if rows > maxEditorRows {
		rows = maxEditorRows
	}
	return editView{
		CommitURL: routes.EditorField,
		Section:   b.Section,
		Field:     b.Field,
		Default:   b.Default,
		Original:  original,
		Ref:       b.Ref().String(),
		Value:     value,
		Rows:      rows,
		MaxLength: h.cfg.MaxValueLength,
		Error:     errMsg,
	}
}

// ServeFieldEdit swaps a field for its inline editor.
func (h *Handler) ServeFieldEdit(w http.ResponseWriter, r *http.Request) {
	b, err := ParseBinding(r.URL.Query())
	if err != nil {
		http.Error(w, config.ErrInvalidField, http.StatusBadRequest)
		return
	}
	if !h.affordance(r, b) {
		http.Error(w, config.ErrForbidden, http.StatusForbidden)
		return
	}

	h.load(r, b.Section)
	value, _ := h.displayed(r, b)
	original := h.session.ReadField(b.Section, b.Field, b.Default)
	h.write(w, r, http.StatusOK, tmplFieldEdit, h.editView(b, original, value, ""))
}

func keyFromForm(form url.Values) Key {
	return Key{
		Name:  form.Get("key"),
		Shift: form.Get("shift") == "true",
		Ctrl:  form.Get("ctrl") == "true",
		Alt:   form.Get("alt") == "true",
		Meta:  form.Get("meta") == "true",
	}
}

// ServeCommit ends an inline edit. Blur and Enter stage the text, Escape abandons it.
func (h *Handler) ServeCommit(w http.ResponseWriter, r *http.Request) {
	l := zerolog.Ctx(r.Context())

	if err := r.ParseForm(); err != nil {
		http.Error(w, config.ErrInvalidField, http.StatusBadRequest)
		return
	}
	b, err := ParseBinding(r.PostForm)
	if err != nil {
		http.Error(w, config.ErrInvalidField, http.StatusBadRequest)
		return
	}
	if !h.canEdit(r) {
		http.Error(w, config.ErrForbidden, http.StatusForbidden)
		return
	}
	if !h.affordance(r, b) {
		// Edit mode was switched off while the editor was open.
		h.write(w, r, http.StatusOK, tmplField, h.fieldView(r, b))
		return
	}

	// The change is measured against what the editor opened with. A section that
	// finished loading since then must not turn untouched text into a change.
	original, ok := r.PostForm[formOriginal]
	if !ok {
		h.load(r, b.Section)
		original = []string{h.session.ReadField(b.Section, b.Field, b.Default)}
	}
	value := r.PostForm.Get("value")
	it := NewInteraction(b)
	it.Begin(original[0])

	var change model.PendingChange
	if r.PostForm.Get("event") == eventKeydown {
		var action Action
		action, change, err = it.HandleKey(h.session, keyFromForm(r.PostForm), value)
		if action == ActionNone {
			w.WriteHeader(http.StatusNoContent)
			return
		}
	} else {
		change, err = it.Blur(h.session, value)
	}

	switch {
	case err == nil && it.State() == StateStaged:
		l.Debug().Str("change_id", string(change.ID)).Str("field", b.Ref().String()).Msg("Change staged")
		w.Header().Set(config.HHxTrigger, config.EventPendingChanged)
		h.write(w, r, http.StatusOK, tmplField, h.fieldView(r, b))

	case err == nil, silent(err):
		h.write(w, r, http.StatusOK, tmplField, h.fieldView(r, b))

	case errors.Is(err, content.ErrStagingConflict):
		l.Info().Str("field", b.Ref().String()).Msg("Edit rejected, another change is pending")
		h.write(w, r, http.StatusConflict, tmplField, h.fieldView(r, b))

	case errors.Is(err, content.ErrValueTooLong):
		h.write(w, r, http.StatusUnprocessableEntity, tmplFieldEdit, h.editView(b, it.Original(), value, config.ErrValueTooLong))

	case errors.Is(err, content.ErrUnknownField),
		errors.Is(err, model.ErrInvalidSectionKey),
		errors.Is(err, model.ErrInvalidFieldName):
		http.Error(w, config.ErrFieldNotEditable, http.StatusBadRequest)

	default:
		l.Error().Err(err).Str("field", b.Ref().String()).Msg("Error staging change")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
	}
}
