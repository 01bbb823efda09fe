// Package contentsvc implements the Content & Progress Service of
// spec.md §4.6: media catalog, group media selection, per-user
// monotonic progress with optimistic concurrency, spoiler-gated feed
// assembly, and bounded-window progress rollback with post re-locking.
//
// Grounded on the teacher's service-package shape (constructor holding
// a mutex-guarded in-memory map plus typed methods returning tagged
// errors, as in pkg/user/service.go) — this domain has no teacher
// analog, so the structure is reused without a line-level source.
package contentsvc

import (
	"strconv"
	"time"
)

// MediaKind values.
const (
	MediaBook = "book"
	MediaShow = "show"
)

// MediaItem is a catalog entry, per spec.md §3.
type MediaItem struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Author      string    `json:"author,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// MediaUnit is a single chapter/episode/unit within a MediaItem.
type MediaUnit struct {
	ID           string `json:"id"`
	MediaItemID  string `json:"mediaItemId"`
	ReleaseOrder int    `json:"releaseOrder"`
	Season       *int   `json:"season,omitempty"`
	Episode      *int   `json:"episode,omitempty"`
	Chapter      *int   `json:"chapter,omitempty"`
}

// unitReference formats the unit label shown when a post is locked,
// per spec.md §4.6: "SxEy" when season+episode are present, else
// "Chapter N", else "Unit N".
func (u MediaUnit) unitReference() string {
	if u.Season != nil && u.Episode != nil {
		return formatSE(*u.Season, *u.Episode)
	}
	if u.Chapter != nil {
		return "Chapter " + strconv.Itoa(*u.Chapter)
	}
	return "Unit " + strconv.Itoa(u.ReleaseOrder)
}

func formatSE(season, episode int) string {
	return "S" + strconv.Itoa(season) + "E" + strconv.Itoa(episode)
}

// GroupMediaSelection binds a group to the media it is currently
// reading/watching, per spec.md §3.
type GroupMediaSelection struct {
	GroupID     string `json:"groupId"`
	MediaItemID string `json:"mediaItemId"`
	IsActive    bool   `json:"isActive"`
}

// Post is a reaction gated by a required unit, per spec.md §3.
type Post struct {
	ID             string    `json:"id"`
	GroupID        string    `json:"groupId"`
	MediaItemID    string    `json:"mediaItemId"`
	AuthorID       string    `json:"authorId"`
	PreviewText    string    `json:"previewText"`
	Body           string    `json:"body"`
	RequiredUnitID string    `json:"requiredUnitId"`
	CreatedAt      time.Time `json:"createdAt"`
}

// UserProgress is per-(user,group,mediaItem) monotonic progress, per
// spec.md §3.
type UserProgress struct {
	UserID          string    `json:"userId"`
	GroupID         string    `json:"groupId"`
	MediaItemID     string    `json:"mediaItemId"`
	HighestUnitOrder int      `json:"highestUnitOrder"`
	HighestUnitID   string    `json:"highestUnitId"`
	Version         int64     `json:"version"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// ProgressAuditEvent records one progress transition, per spec.md §3.
type ProgressAuditEvent struct {
	ID                   string    `json:"id"`
	UserID               string    `json:"userId"`
	GroupID              string    `json:"groupId"`
	MediaItemID          string    `json:"mediaItemId"`
	Kind                 string    `json:"kind"` // mark_read | rollback
	PreviousUnitOrder    int       `json:"previousUnitOrder"`
	PreviousUnitID       string    `json:"previousUnitId"`
	NextUnitOrder        int       `json:"nextUnitOrder"`
	NextUnitID           string    `json:"nextUnitId"`
	PreviousVersion      int64     `json:"previousVersion"`
	NextVersion          int64     `json:"nextVersion"`
	RollbackToken        string    `json:"rollbackToken,omitempty"`
	RollbackOfAuditID    string    `json:"rollbackOfAuditId,omitempty"`
	RolledBackByAuditID  string    `json:"rolledBackByAuditId,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
}

// FeedPost is a post as rendered to a particular viewer.
type FeedPost struct {
	ID             string `json:"id"`
	AuthorID       string `json:"authorId"`
	PreviewText    string `json:"previewText"`
	Body           string `json:"body,omitempty"`
	UnitReference  string `json:"unitReference"`
	Unlocked       bool   `json:"unlocked"`
	MarkAsReadUnitID string `json:"markAsReadUnitId,omitempty"`
	MarkAsReadEnabled bool  `json:"markAsReadEnabled"`
}

// FeedResponse is returned by getFeedForUser.
type FeedResponse struct {
	Posts []FeedPost `json:"posts"`
}

// MarkProgressResult is returned by markAsRead.
type MarkProgressResult struct {
	UnlockedPostIDs []string  `json:"unlockedPostIds"`
	Token           string    `json:"token"`
	ExpiresAt       time.Time `json:"expiresAt"`
}

// RollbackResult is returned by rollbackProgress.
type RollbackResult struct {
	RelockedPostIDs []string `json:"relockedPostIds"`
}

// RollbackWindow is the time bound for rollbackProgress, per spec.md §4.6/§5.
const RollbackWindow = 2 * time.Minute
