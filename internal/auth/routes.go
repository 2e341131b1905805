package auth

import (
	"html/template"
	"io/fs"
	"net/http"

	"github.com/debemdeboas/site-editor/internal/config"
	"github.com/debemdeboas/site-editor/internal/routes"
)

// RegisterEd25519AuthRoutes registers the challenge, verify and login page routes.
func RegisterEd25519AuthRoutes(mux *http.ServeMux, provider *Ed25519AuthProvider, files fs.FS) error {
	tmpl, err := template.ParseFS(
		files,
		config.TemplatesLocalDir+"/"+config.TemplateLayout,
		config.TemplatesLocalDir+"/"+config.TemplateNameAuth,
	)
	if err != nil {
		return err
	}

	mux.HandleFunc(routes.AuthChallenge, Ed25519ChallengeHandler(provider))
	mux.HandleFunc(routes.AuthVerify, Ed25519VerifyHandler(provider))
	mux.HandleFunc(routes.AuthLogin, Ed25519AuthPageHandler(provider, tmpl))
	return nil
}
