package transport

import "github.com/nospoilers/core/internal/authsvc"

type phoneStartRequest struct {
	Phone string `json:"phone" validate:"required"`
}

type phoneVerifyRequest struct {
	ChallengeID string `json:"challengeId" validate:"required"`
	Code        string `json:"code" validate:"required,min=4,max=8"`
}

type oauthLoginRequest struct {
	Provider  string `json:"provider" validate:"required,oneof=google apple"`
	Subject   string `json:"subject" validate:"required"`
	EmailHint string `json:"emailHint,omitempty"`
}

type emailLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type usernameReserveRequest struct {
	Username string `json:"username" validate:"required,min=2,max=30"`
}

type updateProfileRequest struct {
	DisplayName     *string `json:"displayName,omitempty"`
	Username        *string `json:"username,omitempty" validate:"omitempty,min=2,max=30"`
	ThemePreference *string `json:"themePreference,omitempty" validate:"omitempty,oneof=system light dark"`
}

func (r updateProfileRequest) toDomain() authsvc.ProfileUpdate {
	return authsvc.ProfileUpdate{
		DisplayName:     r.DisplayName,
		Username:        r.Username,
		ThemePreference: r.ThemePreference,
	}
}

type createAvatarUploadPlanRequest struct {
	FileName    string `json:"fileName" validate:"required"`
	ContentType string `json:"contentType" validate:"required"`
	Bytes       int64  `json:"bytes" validate:"required,gte=1"`
	Width       int    `json:"width" validate:"required,gte=1"`
	Height      int    `json:"height" validate:"required,gte=1"`
}

func (r createAvatarUploadPlanRequest) toDomain() authsvc.AvatarUploadRequest {
	return authsvc.AvatarUploadRequest{
		FileName:    r.FileName,
		ContentType: r.ContentType,
		Bytes:       r.Bytes,
		Width:       r.Width,
		Height:      r.Height,
	}
}

type finalizeAvatarUploadRequest struct {
	ContentType string `json:"contentType" validate:"required"`
}

type refreshSessionRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}
