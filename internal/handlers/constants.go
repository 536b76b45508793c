package handlers

import "mmanyinorie/internal/security"

const (
	SessionCookieName = security.SessionCookieName
	CSRFHeaderName    = "X-CSRF-Token"

	maxJSONBodySize = 1 << 20

	ErrInvalidJSON           = "Invalid JSON body"
	ErrUnauthorized          = "Unauthorized"
	ErrForbidden             = "Forbidden"
	ErrNotFound              = "Not found"
	ErrInternalServerError   = "Internal server error"
	ErrInvalidCSRFToken      = "Invalid CSRF token"
	ErrOAuthNotConfigured    = "OAuth provider not configured"
	ErrInvalidOAuthState     = "Invalid OAuth state"
	ErrMissingOAuthCode      = "Missing authorization code"
)
