// Package routes defines HTTP route constants for the application.
package routes

const (
	RobotsPath = "/robots.txt"
	RootPath   = "/"
	PagePath   = "/{page}"

	// SSE
	SSEPath = "/sse"

	// Editor routes
	EditorField     = "/editor/field"
	EditorFieldEdit = "/editor/field/edit"
	EditorToggle    = "/editor/toggle"
	EditorPending   = "/editor/pending"
	EditorConfirm   = "/editor/confirm"
	EditorCancel    = "/editor/cancel"

	// Auth routes
	AuthChallenge = "/auth/challenge"
	AuthVerify    = "/auth/verify"
	AuthLogin     = "/auth/login"
	WebhookUser   = "/webhook/user"
)
