package editor

import (
	"html/template"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/site-editor/internal/config"
	"github.com/debemdeboas/site-editor/internal/routes"
)

type toggleView struct {
	URL string
	On  bool
}

func (h *Handler) toggleView() toggleView {
	return toggleView{URL: routes.EditorToggle, On: h.session.EditMode()}
}

// RenderToggle renders the EditModeToggle, or nothing for viewers who cannot edit.
func (h *Handler) RenderToggle(r *http.Request) (template.HTML, error) {
	if !h.canEdit(r) {
		return "", nil
	}
	return h.render(tmplToggle, h.toggleView())
}

func (h *Handler) ServeToggle(w http.ResponseWriter, r *http.Request) {
	if !h.canEdit(r) {
		h.writeEmpty(w)
		return
	}
	h.write(w, r, http.StatusOK, tmplToggle, h.toggleView())
}

// ServeToggleFlip flips edit mode. Fields refresh on the editModeChanged event.
func (h *Handler) ServeToggleFlip(w http.ResponseWriter, r *http.Request) {
	if !h.canEdit(r) {
		http.Error(w, config.ErrForbidden, http.StatusForbidden)
		return
	}

	on := h.session.ToggleEditMode()
	zerolog.Ctx(r.Context()).Info().Bool("edit_mode", on).Msg("Edit mode switched")

	w.Header().Set(config.HHxTrigger, config.EventEditModeChanged)
	h.write(w, r, http.StatusOK, tmplToggle, toggleView{URL: routes.EditorToggle, On: on})
}
