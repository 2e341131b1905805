package auth

import (
	"errors"
	"net/http"

	"github.com/debemdeboas/site-editor/internal/model"
)

var ErrNoUser = errors.New("no user ID in context")

// NoAuthProvider serves the site read-only: nobody is privileged.
type NoAuthProvider struct{}

func NewNoAuthProvider() *NoAuthProvider {
	return &NoAuthProvider{}
}

func (NoAuthProvider) IsPrivilegedViewer(*http.Request) bool {
	return false
}

func (NoAuthProvider) WithHeaderAuthorization() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler { return next }
}

func (NoAuthProvider) GetUserIDFromSession(*http.Request) (model.UserID, error) {
	return "", ErrNoUser
}

func (NoAuthProvider) EnforceUserAndGetID(w http.ResponseWriter, r *http.Request) (model.UserID, error) {
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
	return "", ErrNoUser
}

func (NoAuthProvider) HandleWebhookUser(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotFound)
}
