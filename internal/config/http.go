package config

const (
	HCType        = "Content-Type"
	HETag         = "ETag"
	HCacheControl = "Cache-Control"

	HHxRedirect = "Hx-Redirect"
	HHxTrigger  = "Hx-Trigger"
	HHxRequest  = "Hx-Request"

	CTypeCSS  = "text/css"
	CTypeHTML = "text/html; charset=utf-8"
	CTypeJSON = "application/json"
)

const (
	HTTPErrMethodNotAllowed = "Method not allowed"
)

const (
	CookieAuthToken = "auth_token"
)

// Events sent to the page in the Hx-Trigger header.
const (
	EventPendingChanged  = "pendingChanged"
	EventEditModeChanged = "editModeChanged"
	EventContentChanged  = "contentChanged"
)
