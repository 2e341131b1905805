// Package auth identifies the viewer of a request and decides whether they may edit
// page text.
package auth

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/site-editor/internal/model"
)

var authLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	authLogger = l
}

const (
	TypeEd25519 = "ed25519"
	TypeClerk   = "clerk"
	TypeNone    = "none"
)

type AuthProvider interface {
	Privilege

	WithHeaderAuthorization() func(http.Handler) http.Handler

	GetUserIDFromSession(r *http.Request) (model.UserID, error)

	EnforceUserAndGetID(w http.ResponseWriter, r *http.Request) (model.UserID, error)

	HandleWebhookUser(w http.ResponseWriter, r *http.Request)
}

// Privilege is the only thing the editor needs to know about the viewer.
type Privilege interface {
	// IsPrivilegedViewer reports whether the viewer of r may switch edit mode and change text.
	IsPrivilegedViewer(r *http.Request) bool
}

// PrivilegeFunc adapts a plain function to Privilege.
type PrivilegeFunc func(r *http.Request) bool

func (f PrivilegeFunc) IsPrivilegedViewer(r *http.Request) bool {
	return f(r)
}
