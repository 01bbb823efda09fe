package transport

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nospoilers/core/internal/authsvc"
	"github.com/nospoilers/core/internal/securestore"
)

// AuthHandlers wires the Authentication & Identity Service's
// operations onto chi routes. DevMode controls whether
// startPhoneLogin echoes the OTP code in the response, for local
// development and tests without an SMS provider wired up.
type AuthHandlers struct {
	Service    *authsvc.Service
	DevMode    bool
	CookieName string
	// WebPlatform mirrors the refresh token into an HttpOnly cookie on
	// every login/refresh response. It is false for the ios/android
	// deployment targets, where the client owns its own secure storage
	// and the refresh token travels only in the JSON body.
	WebPlatform bool
}

func (h *AuthHandlers) cookieMaxAge() time.Duration {
	return authsvc.RefreshTokenTTL
}

// mirrorToCookie writes the session's refresh token into an HttpOnly
// cookie for the web platform, alongside the JSON body every platform
// receives. The service's own secure-storage slot (authsvc.Service's
// securestore.Store) tracks the most recently issued session
// server-side for revocation on logout; this cookie is the
// client-side copy a browser actually presents on the next request.
func (h *AuthHandlers) mirrorToCookie(w http.ResponseWriter, r *http.Request, token string) {
	if !h.WebPlatform {
		return
	}
	cs := securestore.NewCookieStore(w, r, h.CookieName, h.cookieMaxAge(), true)
	_ = cs.Set(r.Context(), token)
}

func (h *AuthHandlers) StartPhoneLogin(w http.ResponseWriter, r *http.Request) {
	var req phoneStartRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}
	result, err := h.Service.StartPhoneLogin(r.Context(), req.Phone, h.DevMode)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	Respond(w, http.StatusAccepted, result)
}

func (h *AuthHandlers) VerifyPhoneCode(w http.ResponseWriter, r *http.Request) {
	var req phoneVerifyRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}
	result, err := h.Service.VerifyPhoneCode(r.Context(), req.ChallengeID, req.Code)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	h.mirrorToCookie(w, r, result.Session.RefreshToken)
	Respond(w, http.StatusOK, result)
}

func (h *AuthHandlers) LoginWithOAuth(w http.ResponseWriter, r *http.Request) {
	var req oauthLoginRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}
	result, err := h.Service.LoginWithOAuth(r.Context(), req.Provider, req.Subject, req.EmailHint)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	h.mirrorToCookie(w, r, result.Session.RefreshToken)
	Respond(w, http.StatusOK, result)
}

func (h *AuthHandlers) LoginWithEmailPassword(w http.ResponseWriter, r *http.Request) {
	var req emailLoginRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}
	result, err := h.Service.LoginWithEmailPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	h.mirrorToCookie(w, r, result.Session.RefreshToken)
	Respond(w, http.StatusOK, result)
}

func (h *AuthHandlers) CheckUsernameAvailability(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		RespondError(w, http.StatusBadRequest, nil, "username query parameter is required.")
		return
	}
	result, err := h.Service.CheckUsernameAvailability(r.Context(), username)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	Respond(w, http.StatusOK, result)
}

func (h *AuthHandlers) ReserveUsername(w http.ResponseWriter, r *http.Request) {
	var req usernameReserveRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}
	userID := UserIDFromContext(r.Context())
	result, err := h.Service.ReserveUsername(r.Context(), req.Username, userID)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	Respond(w, http.StatusOK, result)
}

func (h *AuthHandlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}
	userID := UserIDFromContext(r.Context())
	user, err := h.Service.UpdateProfile(r.Context(), userID, req.toDomain())
	if err != nil {
		respondAuthError(w, err)
		return
	}
	Respond(w, http.StatusOK, user)
}

func (h *AuthHandlers) CreateAvatarUploadPlan(w http.ResponseWriter, r *http.Request) {
	var req createAvatarUploadPlanRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}
	userID := UserIDFromContext(r.Context())
	plan, err := h.Service.CreateAvatarUploadPlan(r.Context(), userID, req.toDomain())
	if err != nil {
		respondAuthError(w, err)
		return
	}
	Respond(w, http.StatusOK, plan)
}

func (h *AuthHandlers) FinalizeAvatarUpload(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "uploadId")
	var req finalizeAvatarUploadRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}
	userID := UserIDFromContext(r.Context())
	user, err := h.Service.FinalizeAvatarUpload(r.Context(), userID, uploadID, authsvc.FinalizeAvatarUploadMeta{ContentType: req.ContentType})
	if err != nil {
		respondAuthError(w, err)
		return
	}
	Respond(w, http.StatusOK, user)
}

func (h *AuthHandlers) RefreshSession(w http.ResponseWriter, r *http.Request) {
	var req refreshSessionRequest
	// Body is optional: the web platform relies on the cookie instead.
	_ = Decode(r, &req)

	presented := req.RefreshToken
	if presented == "" && h.WebPlatform {
		cs := securestore.NewCookieStore(w, r, h.CookieName, h.cookieMaxAge(), true)
		if tok, found, _ := cs.Get(r.Context()); found {
			presented = tok
		}
	}

	session, err := h.Service.RefreshSession(r.Context(), presented)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	h.mirrorToCookie(w, r, session.RefreshToken)
	Respond(w, http.StatusOK, session)
}

func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Logout(r.Context()); err != nil {
		respondAuthError(w, err)
		return
	}
	if h.WebPlatform {
		cs := securestore.NewCookieStore(w, r, h.CookieName, h.cookieMaxAge(), true)
		_ = cs.Clear(r.Context())
	}
	Respond(w, http.StatusNoContent, nil)
}

// respondAuthError maps an authsvc error to an HTTP status and writes
// the generic, non-leaking message authsvc.UserFacingMessage provides.
func respondAuthError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, authsvc.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, authsvc.ErrInvalidCredentials),
		errors.Is(err, authsvc.ErrInvalidChallenge),
		errors.Is(err, authsvc.ErrCodeMismatch),
		errors.Is(err, authsvc.ErrExpired),
		errors.Is(err, authsvc.ErrMissingRefresh),
		errors.Is(err, authsvc.ErrRefreshExpired):
		status = http.StatusUnauthorized
	case errors.Is(err, authsvc.ErrUsernameTaken),
		errors.Is(err, authsvc.ErrUsernameReserved),
		errors.Is(err, authsvc.ErrUploadExpired),
		errors.Is(err, authsvc.ErrUploadMimeMismatch):
		status = http.StatusConflict
	case errors.Is(err, authsvc.ErrUnknownUser), errors.Is(err, authsvc.ErrUnknownUpload):
		status = http.StatusNotFound
	}
	RespondError(w, status, err, authsvc.UserFacingMessage(err))
}
