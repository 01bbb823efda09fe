package transport

import "github.com/nospoilers/core/internal/contentsvc"

type createMediaItemRequest struct {
	Kind        string `json:"kind" validate:"required,oneof=book show"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty"`
}

func (r createMediaItemRequest) toDomain() contentsvc.MediaItem {
	return contentsvc.MediaItem{
		Kind:        r.Kind,
		Title:       r.Title,
		Description: r.Description,
		Author:      r.Author,
	}
}

type createMediaUnitRequest struct {
	ReleaseOrder int  `json:"releaseOrder" validate:"required,gte=1"`
	Season       *int `json:"season,omitempty"`
	Episode      *int `json:"episode,omitempty"`
	Chapter      *int `json:"chapter,omitempty"`
}

func (r createMediaUnitRequest) toDomain(mediaItemID string) contentsvc.MediaUnit {
	return contentsvc.MediaUnit{
		MediaItemID:  mediaItemID,
		ReleaseOrder: r.ReleaseOrder,
		Season:       r.Season,
		Episode:      r.Episode,
		Chapter:      r.Chapter,
	}
}

type selectGroupMediaRequest struct {
	MediaItemID string `json:"mediaItemId" validate:"required"`
	IsActive    bool   `json:"isActive"`
}

type createPostRequest struct {
	MediaItemID    string `json:"mediaItemId" validate:"required"`
	PreviewText    string `json:"previewText" validate:"required"`
	Body           string `json:"body" validate:"required"`
	RequiredUnitID string `json:"requiredUnitId" validate:"required"`
}

func (r createPostRequest) toDomain(groupID, authorID string) contentsvc.Post {
	return contentsvc.Post{
		GroupID:        groupID,
		MediaItemID:    r.MediaItemID,
		AuthorID:       authorID,
		PreviewText:    r.PreviewText,
		Body:           r.Body,
		RequiredUnitID: r.RequiredUnitID,
	}
}

type markAsReadRequest struct {
	MediaItemID string `json:"mediaItemId" validate:"required"`
	UnitID      string `json:"unitId" validate:"required"`
}

type rollbackProgressRequest struct {
	RollbackToken string `json:"rollbackToken" validate:"required"`
}
