package authsvc

import "time"

// Identity is a single linked credential on a User, per spec.md §3.
type Identity struct {
	Provider string `json:"provider"` // phone | google | apple | email
	Subject  string `json:"subject"`
	Verified bool   `json:"verified"`
}

const (
	ProviderPhone  = "phone"
	ProviderGoogle = "google"
	ProviderApple  = "apple"
	ProviderEmail  = "email"
)

// ThemePreference values for User.Preferences.
const (
	ThemeSystem = "system"
	ThemeLight  = "light"
	ThemeDark   = "dark"
)

// Preferences holds user-settable display preferences.
type Preferences struct {
	ThemePreference string `json:"themePreference"`
}

// User is the account record described in spec.md §3.
type User struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email,omitempty"`
	PrimaryPhone        string     `json:"primaryPhone,omitempty"`
	PasswordHash        string     `json:"passwordHash,omitempty"`
	DisplayName         string     `json:"displayName,omitempty"`
	AvatarURL           string     `json:"avatarUrl,omitempty"`
	Username            string     `json:"username,omitempty"`
	UsernameNormalized  string     `json:"usernameNormalized,omitempty"`
	Identities          []Identity `json:"identities"`
	Preferences         Preferences `json:"preferences"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// PhoneChallenge is an in-flight OTP challenge, per spec.md §3.
type PhoneChallenge struct {
	ChallengeID string `json:"challengeId"`
	Phone       string `json:"phone"`
	CodeHash    string `json:"codeHash"`
	ExpiresAtMs int64  `json:"expiresAtMs"`
}

// RefreshTokenRecord is a single-use, rotated refresh token, per spec.md §3.
type RefreshTokenRecord struct {
	RefreshToken string `json:"refreshToken"`
	UserID       string `json:"userId"`
	IssuedAtMs   int64  `json:"issuedAtMs"`
	ExpiresAtMs  int64  `json:"expiresAtMs"`
}

// UsernameReservation temporarily blocks a normalized username for one
// user, per spec.md §3.
type UsernameReservation struct {
	Normalized  string `json:"normalized"`
	UserID      string `json:"userId"`
	ExpiresAtMs int64  `json:"expiresAtMs"`
}

// AvatarUpload is a pending upload plan, per spec.md §3.
type AvatarUpload struct {
	UploadID    string             `json:"uploadId"`
	ObjectKey   string             `json:"objectKey"`
	UserID      string             `json:"userId"`
	ExpiresAtMs int64              `json:"expiresAtMs"`
	Request     AvatarUploadRequest `json:"request"`
}

// AvatarUploadRequest is the client-declared file metadata for an upload plan.
type AvatarUploadRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Bytes       int64  `json:"bytes"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

// AvatarUploadPlan is returned to the caller from createAvatarUploadPlan.
type AvatarUploadPlan struct {
	UploadID        string    `json:"uploadId"`
	ObjectKey       string    `json:"objectKey"`
	UploadURL       string    `json:"uploadUrl"`
	ExpiresAt       time.Time `json:"expiresAt"`
	RequiredHeaders map[string]string `json:"requiredHeaders"`
}

// SessionPair is the access/refresh token pair issued on login or refresh.
type SessionPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresInMs  int64  `json:"expiresInMs"`
}

// ProviderLoginResult is returned by every login operation.
type ProviderLoginResult struct {
	User    AuthUser    `json:"user"`
	Session SessionPair `json:"session"`
	Linked  bool        `json:"linked"`
}

// AuthUser is the public-facing projection of User returned over the wire.
type AuthUser struct {
	ID          string      `json:"id"`
	Email       string      `json:"email,omitempty"`
	DisplayName string      `json:"displayName,omitempty"`
	AvatarURL   string      `json:"avatarUrl,omitempty"`
	Username    string      `json:"username,omitempty"`
	Preferences Preferences `json:"preferences"`
}

func toAuthUser(u User) AuthUser {
	return AuthUser{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: EscapeDisplayName(u.DisplayName),
		AvatarURL:   u.AvatarURL,
		Username:    u.Username,
		Preferences: u.Preferences,
	}
}

// UsernameAvailability is returned by checkUsernameAvailability and
// reserveUsername.
type UsernameAvailability struct {
	Requested     string     `json:"requested"`
	Normalized    string     `json:"normalized"`
	Available     bool       `json:"available"`
	Reason        string     `json:"reason,omitempty"` // invalid | taken | reserved
	ReservedUntil *time.Time `json:"reservedUntil,omitempty"`
}

// ProfileUpdate is the set of optionally-present fields for updateProfile.
type ProfileUpdate struct {
	DisplayName     *string `json:"displayName,omitempty"`
	Username        *string `json:"username,omitempty"`
	ThemePreference *string `json:"themePreference,omitempty"`
}

// PhoneStartResult is returned by startPhoneLogin.
type PhoneStartResult struct {
	ChallengeID   string    `json:"challengeId"`
	ExpiresAt     time.Time `json:"expiresAt"`
	RedactedPhone string    `json:"redactedPhone"`
	DevCode       string    `json:"devCode,omitempty"`
}

// TransportPolicy is validated at Service construction, per spec.md §6.
type TransportPolicy struct {
	APIBaseURL           string
	CookieName           string
	Platform             string // web | ios | android
	EnforceSecureStorage bool
}

// TTL policy, per spec.md §3/§5.
const (
	SMSCodeTTL           = 10 * time.Minute
	UsernameReservationTTL = 5 * time.Minute
	AvatarUploadTTL      = 10 * time.Minute
	AccessTokenTTL       = 15 * time.Minute
	RefreshTokenTTL      = 30 * 24 * time.Hour
)
