package transport

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nospoilers/core/internal/contentsvc"
)

// ContentHandlers wires the Content & Progress Service's operations
// onto chi routes. Group and media-item identifiers travel in the
// URL; the authenticated user ID comes from the request context set
// by RequireAuth.
type ContentHandlers struct {
	Service *contentsvc.Service
}

func (h *ContentHandlers) CreateMediaItem(w http.ResponseWriter, r *http.Request) {
	var req createMediaItemRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}
	item, err := h.Service.CreateMediaItem(r.Context(), req.toDomain())
	if err != nil {
		respondContentError(w, err)
		return
	}
	Respond(w, http.StatusCreated, item)
}

func (h *ContentHandlers) CreateMediaUnit(w http.ResponseWriter, r *http.Request) {
	mediaItemID := chi.URLParam(r, "mediaItemId")
	var req createMediaUnitRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}
	unit, err := h.Service.CreateMediaUnit(r.Context(), req.toDomain(mediaItemID))
	if err != nil {
		respondContentError(w, err)
		return
	}
	Respond(w, http.StatusCreated, unit)
}

func (h *ContentHandlers) SelectGroupMedia(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")
	var req selectGroupMediaRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}
	selection, err := h.Service.SelectGroupMedia(r.Context(), groupID, req.MediaItemID, req.IsActive)
	if err != nil {
		respondContentError(w, err)
		return
	}
	Respond(w, http.StatusOK, selection)
}

func (h *ContentHandlers) CreatePost(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")
	var req createPostRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}
	authorID := UserIDFromContext(r.Context())
	post, err := h.Service.CreatePost(r.Context(), req.toDomain(groupID, authorID))
	if err != nil {
		respondContentError(w, err)
		return
	}
	Respond(w, http.StatusCreated, post)
}

func (h *ContentHandlers) GetFeedForUser(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")
	mediaItemID := chi.URLParam(r, "mediaItemId")
	userID := UserIDFromContext(r.Context())

	feed, err := h.Service.GetFeedForUser(r.Context(), userID, groupID, mediaItemID)
	if err != nil {
		respondContentError(w, err)
		return
	}
	Respond(w, http.StatusOK, feed)
}

func (h *ContentHandlers) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")
	var req markAsReadRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}
	userID := UserIDFromContext(r.Context())
	result, err := h.Service.MarkAsRead(r.Context(), userID, groupID, req.MediaItemID, req.UnitID)
	if err != nil {
		respondContentError(w, err)
		return
	}
	Respond(w, http.StatusOK, result)
}

func (h *ContentHandlers) RollbackProgress(w http.ResponseWriter, r *http.Request) {
	var req rollbackProgressRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}
	userID := UserIDFromContext(r.Context())
	result, err := h.Service.RollbackProgress(r.Context(), userID, req.RollbackToken)
	if err != nil {
		respondContentError(w, err)
		return
	}
	Respond(w, http.StatusOK, result)
}

func (h *ContentHandlers) GetProgressAuditTrail(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")
	mediaItemID := chi.URLParam(r, "mediaItemId")
	userID := UserIDFromContext(r.Context())

	trail, err := h.Service.GetProgressAuditTrail(r.Context(), userID, groupID, mediaItemID)
	if err != nil {
		respondContentError(w, err)
		return
	}
	Respond(w, http.StatusOK, trail)
}

func respondContentError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, contentsvc.ErrUnknownMedia),
		errors.Is(err, contentsvc.ErrUnknownUnit),
		errors.Is(err, contentsvc.ErrUnknownSelection),
		errors.Is(err, contentsvc.ErrUnknownToken):
		status = http.StatusNotFound
	case errors.Is(err, contentsvc.ErrAlreadyRolledBack),
		errors.Is(err, contentsvc.ErrStale):
		status = http.StatusConflict
	case errors.Is(err, contentsvc.ErrRollbackExpired):
		status = http.StatusGone
	}
	RespondError(w, status, err, "Request could not be completed.")
}
