package editor

import (
	"context"
	"errors"
	"html/template"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/site-editor/internal/config"
	"github.com/debemdeboas/site-editor/internal/content"
	"github.com/debemdeboas/site-editor/internal/model"
	"github.com/debemdeboas/site-editor/internal/routes"
	"github.com/debemdeboas/site-editor/internal/util"
)

const formChangeID = "change-id"

type changeView struct {
	ID      model.ChangeID
	Field   string
	Old     string
	New     string
	OldFull string
	NewFull string
}

type confirmationView struct {
	URL        string
	ConfirmURL string
	CancelURL  string
	Change     *changeView
	Error      string
}

// newChangeView prepares a pending change for display, shortening both values to
// truncateLength runes.
func newChangeView(p model.PendingChange, truncateLength int) *changeView {
	return &changeView{
		ID:      p.ID,
		Field:   p.Ref().String(),
		Old:     util.Truncate(p.OldValue, truncateLength),
		New:     util.Truncate(p.NewValue, truncateLength),
		OldFull: p.OldValue,
		NewFull: p.NewValue,
	}
}

func (h *Handler) confirmationView(errMsg string) confirmationView {
	v := confirmationView{
		URL:        routes.EditorPending,
		ConfirmURL: routes.EditorConfirm,
		CancelURL:  routes.EditorCancel,
		Error:      errMsg,
	}
	if p, ok := h.session.Pending(); ok {
		v.Change = newChangeView(p, h.cfg.TruncateLength)
	}
	return v
}

// RenderConfirmation renders the ChangeConfirmation container, or nothing for viewers
// who cannot edit.
func (h *Handler) RenderConfirmation(r *http.Request) (template.HTML, error) {
	if !h.canEdit(r) {
		return "", nil
	}
	return h.render(tmplConfirmation, h.confirmationView(""))
}

func (h *Handler) ServePending(w http.ResponseWriter, r *http.Request) {
	if !h.canEdit(r) {
		h.writeEmpty(w)
		return
	}
	h.write(w, r, http.StatusOK, tmplConfirmation, h.confirmationView(""))
}

func changeIDFromRequest(r *http.Request) (model.ChangeID, error) {
	if err := r.ParseForm(); err != nil {
		return "", err
	}
	return model.ChangeID(r.PostForm.Get(formChangeID)), nil
}

// ServeConfirm persists the pending change. The write is not tied to the request, so
// a closed tab cannot abort it halfway.
func (h *Handler) ServeConfirm(w http.ResponseWriter, r *http.Request) {
	l := zerolog.Ctx(r.Context())
	if !h.canEdit(r) {
		http.Error(w, config.ErrForbidden, http.StatusForbidden)
		return
	}
	id, err := changeIDFromRequest(r)
	if err != nil {
		http.Error(w, config.ErrInvalidField, http.StatusBadRequest)
		return
	}

	err = h.session.Confirm(context.WithoutCancel(r.Context()), id)

	var persistErr *content.PersistError
	switch {
	case err == nil:
		w.Header().Set(config.HHxTrigger, config.EventPendingChanged)
		h.write(w, r, http.StatusOK, tmplConfirmation, h.confirmationView(""))

	case errors.As(err, &persistErr):
		l.Error().Err(err).Str("change_id", string(persistErr.Change.ID)).Msg("Confirm failed")
		w.Header().Set(config.HHxTrigger, config.EventPendingChanged)
		h.write(w, r, http.StatusBadGateway, tmplConfirmation, h.confirmationView(config.ErrPersistFailed))

	default:
		h.writeResolveError(w, r, err)
	}
}

// ServeCancel discards the pending change. Dismissing the dialog posts here too.
func (h *Handler) ServeCancel(w http.ResponseWriter, r *http.Request) {
	if !h.canEdit(r) {
		http.Error(w, config.ErrForbidden, http.StatusForbidden)
		return
	}
	id, err := changeIDFromRequest(r)
	if err != nil {
		http.Error(w, config.ErrInvalidField, http.StatusBadRequest)
		return
	}

	if err := h.session.Cancel(id); err != nil {
		h.writeResolveError(w, r, err)
		return
	}

	w.Header().Set(config.HHxTrigger, config.EventPendingChanged)
	h.write(w, r, http.StatusOK, tmplConfirmation, h.confirmationView(""))
}

func (h *Handler) writeResolveError(w http.ResponseWriter, r *http.Request, err error) {
	var msg string
	switch {
	case errors.Is(err, content.ErrNothingPending):
		msg = config.ErrNothingPending
	case errors.Is(err, content.ErrStaleChange):
		msg = config.ErrStaleChange
	case errors.Is(err, content.ErrConfirmInFlight):
		msg = config.ErrConfirmInFlight
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Error resolving change")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
		return
	}
	zerolog.Ctx(r.Context()).Info().Err(err).Msg("Change not resolved")
	h.write(w, r, http.StatusConflict, tmplConfirmation, h.confirmationView(msg))
}
