package config

const (
	// Database errors
	ErrInitializeDatabaseFmt = "Failed to initialize database: %v"

	// Auth errors
	ErrCreateProviderFmt      = "Failed to create provider: %v"
	ErrAuthHeaderRequired     = "Authorization header required"
	ErrInvalidSignatureFormat = "Invalid signature format"
	ErrInvalidSignature       = "Invalid signature"
	ErrInternalServerError    = "Internal server error"
	ErrForbidden              = "Forbidden"

	// Editor errors
	ErrInvalidField     = "Invalid section or field"
	ErrFieldNotEditable = "Field is not editable"
	ErrStagingConflict  = "Another change is waiting for confirmation"
	ErrNothingPending   = "No change is waiting for confirmation"
	ErrStaleChange      = "This change was replaced, review the latest one"
	ErrConfirmInFlight  = "A change is being saved"
	ErrPersistFailed    = "Saving failed, the previous text was restored"
	ErrValueTooLong     = "Text is too long"
	ErrEditModeOff      = "Edit mode is off"

	// Challenge errors
	ErrRefreshChallengeFmt = "Failed to refresh challenge"
)
