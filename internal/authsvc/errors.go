package authsvc

import "errors"

// Error kinds from spec.md §7. Callers pattern-match with errors.Is;
// they never parse a message string.
var (
	// Input
	ErrInvalidPhone      = errors.New("authsvc: invalid phone")
	ErrInvalidEmail      = errors.New("authsvc: invalid email")
	ErrInvalidUsername   = errors.New("authsvc: invalid username")
	ErrInvalidAvatar     = errors.New("authsvc: invalid avatar")
	ErrEmptyDisplayName  = errors.New("authsvc: empty display name")
	ErrInvalidThemePreference = errors.New("authsvc: invalid theme preference")

	// Auth
	ErrInvalidChallenge  = errors.New("authsvc: invalid challenge")
	ErrExpired           = errors.New("authsvc: expired")
	ErrCodeMismatch      = errors.New("authsvc: code mismatch")
	ErrInvalidCredentials = errors.New("authsvc: invalid credentials")
	ErrUnknownUser       = errors.New("authsvc: unknown user")

	// Username lifecycle
	ErrUsernameTaken    = errors.New("authsvc: username taken")
	ErrUsernameReserved = errors.New("authsvc: username reserved")

	// Avatar lifecycle
	ErrUploadExpired     = errors.New("authsvc: upload expired")
	ErrUploadMimeMismatch = errors.New("authsvc: upload mime mismatch")
	ErrUnknownUpload     = errors.New("authsvc: unknown upload")

	// Session
	ErrMissingRefresh = errors.New("authsvc: missing refresh token")
	ErrRefreshExpired = errors.New("authsvc: refresh token expired")

	// Defense
	ErrRateLimited        = errors.New("authsvc: rate limited")
	ErrInsecureTransport  = errors.New("authsvc: insecure transport")
	ErrCryptoUnavailable  = errors.New("authsvc: crypto unavailable")
)

// UserFacingMessage maps an internal error to the generic, non-leaking
// string the transport layer shows the caller, per spec.md §7's policy
// that login-path failures never reveal which credential was wrong.
func UserFacingMessage(err error) string {
	switch {
	case errors.Is(err, ErrCodeMismatch), errors.Is(err, ErrInvalidChallenge), errors.Is(err, ErrExpired):
		return "Incorrect one-time code."
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUnknownUser):
		return "Invalid email or password."
	case errors.Is(err, ErrRateLimited):
		return "Too many attempts. Please try again later."
	default:
		return "Something went wrong. Please try again."
	}
}
