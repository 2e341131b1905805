// Package site renders the public pages. Any text on a page can be bound to an
// editable field with {{editable "section" "field" "default text"}}.
package site

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/site-editor/internal/config"
	"github.com/debemdeboas/site-editor/internal/editor"
)

var siteLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	siteLogger = l
}

const (
	pagesDir  = "pages"
	indexPage = "index"
)

// Overlay renders the editing overlay pieces for a request.
type Overlay interface {
	RenderField(r *http.Request, b editor.Binding) (template.HTML, error)
	RenderToggle(r *http.Request) (template.HTML, error)
	RenderConfirmation(r *http.Request) (template.HTML, error)
}

type PageData struct {
	Site config.SiteConfig
	Page string
	Path string
}

type Renderer struct {
	overlay  Overlay
	site     config.SiteConfig
	pages    map[string]*template.Template
	notFound *template.Template
}

// placeholderFuncs lets pages parse; they are replaced per request.
var placeholderFuncs = template.FuncMap{
	"editable":     func(section, field, def string) (template.HTML, error) { return "", nil },
	"editToggle":   func() (template.HTML, error) { return "", nil },
	"confirmation": func() (template.HTML, error) { return "", nil },
}

// NewRenderer parses the layout with each page under templates/pages. The page named
// index is served at the root.
func NewRenderer(files fs.FS, overlay Overlay, site config.SiteConfig) (*Renderer, error) {
	layout := path.Join(config.TemplatesLocalDir, config.TemplateLayout)

	parse := func(page string) (*template.Template, error) {
		return template.New(path.Base(page)).Funcs(placeholderFuncs).ParseFS(files, layout, page)
	}

	matches, err := fs.Glob(files, path.Join(config.TemplatesLocalDir, pagesDir, "*.html"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, errors.New("no page templates found")
	}

	pages := make(map[string]*template.Template, len(matches))
	for _, m := range matches {
		tmpl, err := parse(m)
		if err != nil {
			return nil, fmt.Errorf("error parsing page %s: %w", m, err)
		}
		pages[strings.TrimSuffix(path.Base(m), ".html")] = tmpl
	}

	notFound, err := parse(path.Join(config.TemplatesLocalDir, config.TemplateNotFound))
	if err != nil {
		return nil, fmt.Errorf("error parsing not found page: %w", err)
	}

	r := &Renderer{overlay: overlay, site: site, pages: pages, notFound: notFound}
	siteLogger.Debug().Strs("pages", r.Pages()).Msg("Page templates parsed")
	return r, nil
}

func (s *Renderer) Pages() []string {
	names := make([]string, 0, len(s.pages))
	for name := range s.pages {
		names = append(names, name)
	}
	return names
}

func (s *Renderer) funcs(r *http.Request) template.FuncMap {
	return template.FuncMap{
		"editable": func(section, field, def string) (template.HTML, error) {
			b, err := editor.NewBinding(section, field, def)
			if err != nil {
				return "", err
			}
			return s.overlay.RenderField(r, b)
		},
		"editToggle": func() (template.HTML, error) {
			return s.overlay.RenderToggle(r)
		},
		"confirmation": func() (template.HTML, error) {
			return s.overlay.RenderConfirmation(r)
		},
	}
}

func (s *Renderer) execute(r *http.Request, tmpl *template.Template, data PageData) ([]byte, error) {
	clone, err := tmpl.Clone()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := clone.Funcs(s.funcs(r)).ExecuteTemplate(&buf, tmpl.Name(), data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ServePage serves GET / and GET /{page}.
func (s *Renderer) ServePage(w http.ResponseWriter, r *http.Request) {
	l := zerolog.Ctx(r.Context())
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}

	name := r.PathValue("page")
	if name == "" {
		name = indexPage
	}

	status := http.StatusOK
	tmpl, ok := s.pages[name]
	if !ok || (name == indexPage && r.URL.Path != "/") {
		status = http.StatusNotFound
		tmpl = s.notFound
	}

	body, err := s.execute(r, tmpl, PageData{Site: s.site, Page: name, Path: r.URL.Path})
	if err != nil {
		l.Error().Err(err).Str("page", name).Msg("Error rendering page")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
		return
	}

	w.Header().Set(config.HCType, config.CTypeHTML)
	// Text on the page can change at any time.
	w.Header().Set(config.HCacheControl, "no-cache")
	w.WriteHeader(status)
	w.Write(body)
}
