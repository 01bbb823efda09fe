package authsvc

import (
	"context"
	"regexp"
	"strings"
)

var avatarContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

const maxAvatarBytes = 5 * 1024 * 1024

var filenameUnsafeRe = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func sanitizeFilename(name string) string {
	cleaned := filenameUnsafeRe.ReplaceAllString(name, "_")
	if cleaned == "" {
		return "file"
	}
	return cleaned
}

// CreateAvatarUploadPlan implements createAvatarUploadPlan from
// spec.md §4.5.
func (s *Service) CreateAvatarUploadPlan(ctx context.Context, userID string, req AvatarUploadRequest) (AvatarUploadPlan, error) {
	if !avatarContentTypes[req.ContentType] {
		return AvatarUploadPlan{}, ErrInvalidAvatar
	}
	if req.Width < 128 || req.Height < 128 {
		return AvatarUploadPlan{}, ErrInvalidAvatar
	}
	if req.Bytes <= 0 || req.Bytes > maxAvatarBytes {
		return AvatarUploadPlan{}, ErrInvalidAvatar
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	uploads, err := s.loadAvatarUploads(ctx)
	if err != nil {
		return AvatarUploadPlan{}, err
	}

	now := s.clock.Now()
	uploadID := s.ids.New()
	objectKey := "avatars/" + userID + "/" + uploadID + "-" + sanitizeFilename(req.FileName)
	expiresAt := now.Add(AvatarUploadTTL)

	uploads[uploadID] = AvatarUpload{
		UploadID:    uploadID,
		ObjectKey:   objectKey,
		UserID:      userID,
		ExpiresAtMs: expiresAt.UnixMilli(),
		Request:     req,
	}
	if err := s.saveAvatarUploads(ctx, uploads); err != nil {
		return AvatarUploadPlan{}, err
	}

	return AvatarUploadPlan{
		UploadID:  uploadID,
		ObjectKey: objectKey,
		UploadURL: strings.TrimRight(s.policy.APIBaseURL, "/") + "/storage/" + objectKey,
		ExpiresAt: expiresAt,
		RequiredHeaders: map[string]string{
			"Content-Type": req.ContentType,
		},
	}, nil
}

// FinalizeAvatarUploadMeta carries the metadata reported back after the
// client finishes the upload, per spec.md §4.5.
type FinalizeAvatarUploadMeta struct {
	ContentType string `json:"contentType"`
}

// FinalizeAvatarUpload implements finalizeAvatarUpload from spec.md §4.5.
func (s *Service) FinalizeAvatarUpload(ctx context.Context, userID, uploadID string, meta FinalizeAvatarUploadMeta) (AuthUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	uploads, err := s.loadAvatarUploads(ctx)
	if err != nil {
		return AuthUser{}, err
	}
	upload, ok := uploads[uploadID]
	if !ok || upload.UserID != userID {
		return AuthUser{}, ErrUnknownUpload
	}

	now := s.clock.Now()
	if now.UnixMilli() > upload.ExpiresAtMs {
		delete(uploads, uploadID)
		_ = s.saveAvatarUploads(ctx, uploads)
		return AuthUser{}, ErrUploadExpired
	}
	if meta.ContentType != upload.Request.ContentType {
		return AuthUser{}, ErrUploadMimeMismatch
	}

	users, err := s.loadUsers(ctx)
	if err != nil {
		return AuthUser{}, err
	}
	u, ok := users[userID]
	if !ok {
		return AuthUser{}, ErrUnknownUser
	}
	u.AvatarURL = strings.TrimRight(s.policy.APIBaseURL, "/") + "/storage/" + upload.ObjectKey
	u.UpdatedAt = now
	users[userID] = u
	if err := s.saveUsers(ctx, users); err != nil {
		return AuthUser{}, err
	}

	delete(uploads, uploadID)
	if err := s.saveAvatarUploads(ctx, uploads); err != nil {
		return AuthUser{}, err
	}

	return toAuthUser(u), nil
}
