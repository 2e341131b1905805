package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkhttp "github.com/clerk/clerk-sdk-go/v2/http"
	clerkuser "github.com/clerk/clerk-sdk-go/v2/user"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/site-editor/internal/db"
	"github.com/debemdeboas/site-editor/internal/model"
)

const clerkSessionCookie = "__session"

// ClerkAuthProvider trusts Clerk session tokens. Privileged viewers are the Clerk users
// listed as admins.
type ClerkAuthProvider struct {
	db     db.Db
	admins map[model.UserID]struct{}

	cookieExtractor clerkhttp.AuthorizationOption
}

func NewClerkAuthProvider(clerkKey string, database db.Db, admins []string) *ClerkAuthProvider {
	clerk.SetKey(clerkKey)

	set := make(map[model.UserID]struct{}, len(admins))
	for _, id := range admins {
		set[model.UserID(id)] = struct{}{}
	}

	return &ClerkAuthProvider{
		db:     database,
		admins: set,
		cookieExtractor: clerkhttp.AuthorizationJWTExtractor(func(r *http.Request) string {
			cookie, err := r.Cookie(clerkSessionCookie)
			if err != nil {
				return ""
			}
			return cookie.Value
		}),
	}
}

func (c *ClerkAuthProvider) WithHeaderAuthorization() func(http.Handler) http.Handler {
	return clerkhttp.WithHeaderAuthorization(c.cookieExtractor)
}

func (c *ClerkAuthProvider) subject(r *http.Request) (model.UserID, bool) {
	claims, ok := clerk.SessionClaimsFromContext(r.Context())
	if !ok || claims.Subject == "" {
		return "", false
	}
	return model.UserID(claims.Subject), true
}

func (c *ClerkAuthProvider) GetUserIDFromSession(r *http.Request) (model.UserID, error) {
	subject, ok := c.subject(r)
	if !ok {
		return "", errors.New("failed to get session claims from context")
	}

	usr, err := clerkuser.Get(r.Context(), string(subject))
	if err != nil {
		return "", err
	}

	return model.UserID(usr.ID), nil
}

// IsPrivilegedViewer only looks at the verified session claims, so rendering a page
// never waits on the Clerk API.
func (c *ClerkAuthProvider) IsPrivilegedViewer(r *http.Request) bool {
	subject, ok := c.subject(r)
	if !ok {
		return false
	}
	_, admin := c.admins[subject]
	return admin
}

func (c *ClerkAuthProvider) EnforceUserAndGetID(w http.ResponseWriter, r *http.Request) (model.UserID, error) {
	subject, ok := c.subject(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return "", ErrNoUser
	}
	return subject, nil
}

type clerkEventPayload struct {
	Data struct {
		clerk.User
	} `json:"data"`

	Type string `json:"type"`
}

// HandleWebhookUser mirrors Clerk users into the users table so content rows can be
// attributed to a username.
func (c *ClerkAuthProvider) HandleWebhookUser(w http.ResponseWriter, r *http.Request) {
	l := zerolog.Ctx(r.Context())

	var payload clerkEventPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		l.Warn().Err(err).Msg("Error decoding event payload")
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	usr := payload.Data.User
	log := l.With().Str("type", payload.Type).Str("user", usr.ID).Logger()

	switch payload.Type {
	case "user.created", "user.updated":
		username := usr.ID
		if usr.Username != nil && *usr.Username != "" {
			username = *usr.Username
		}

		_, err := c.db.Exec(
			"INSERT INTO users (id, username) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET username = excluded.username",
			usr.ID, username,
		)
		if err != nil {
			log.Error().Err(err).Msg("Error saving user")
			http.Error(w, "Error saving user", http.StatusInternalServerError)
			return
		}

		log.Info().Str("username", username).Msg("User saved")
		if payload.Type == "user.created" {
			w.WriteHeader(http.StatusCreated)
		} else {
			w.WriteHeader(http.StatusNoContent)
		}

	case "user.deleted":
		if _, err := c.db.Exec("DELETE FROM users WHERE id = ?", usr.ID); err != nil {
			log.Error().Err(err).Msg("Error deleting user")
			http.Error(w, "Error deleting user", http.StatusInternalServerError)
			return
		}

		log.Info().Msg("User deleted")
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Invalid event type", http.StatusBadRequest)
	}
}
