package contentsvc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nospoilers/core/internal/clock"
	"github.com/nospoilers/core/internal/cryptostore"
	"github.com/nospoilers/core/internal/idgen"
)

func newTestService(t *testing.T, c clock.Clock) *Service {
	t.Helper()
	kv, err := cryptostore.New(cryptostore.NewMemoryBackend(), "test-secret-content")
	if err != nil {
		t.Fatalf("cryptostore.New: %v", err)
	}
	return New(kv, c, &idgen.Sequential{Prefix: "c"})
}

// seedMediaWithFiveUnits creates one media item with units of
// releaseOrder 1..5 and an active group selection, returning the
// media item ID, unit IDs in order, and post IDs whose requiredUnit
// equals each unit.
func seedMediaWithFiveUnits(t *testing.T, ctx context.Context, s *Service, groupID string) (mediaItemID string, unitIDs []string, postIDs []string) {
	t.Helper()

	item, err := s.CreateMediaItem(ctx, MediaItem{Kind: MediaBook, Title: "Dune"})
	if err != nil {
		t.Fatalf("CreateMediaItem: %v", err)
	}
	mediaItemID = item.ID

	if _, err := s.SelectGroupMedia(ctx, groupID, mediaItemID, true); err != nil {
		t.Fatalf("SelectGroupMedia: %v", err)
	}

	for i := 1; i <= 5; i++ {
		unit, err := s.CreateMediaUnit(ctx, MediaUnit{MediaItemID: mediaItemID, ReleaseOrder: i})
		if err != nil {
			t.Fatalf("CreateMediaUnit %d: %v", i, err)
		}
		unitIDs = append(unitIDs, unit.ID)

		post, err := s.CreatePost(ctx, Post{
			GroupID:        groupID,
			MediaItemID:    mediaItemID,
			AuthorID:       "author-1",
			PreviewText:    "preview",
			Body:           "body",
			RequiredUnitID: unit.ID,
		})
		if err != nil {
			t.Fatalf("CreatePost %d: %v", i, err)
		}
		postIDs = append(postIDs, post.ID)
	}

	return mediaItemID, unitIDs, postIDs
}

func TestSelectGroupMedia_OnlyOneActivePerGroup(t *testing.T) {
	c := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s := newTestService(t, c)
	ctx := context.Background()

	a, _ := s.CreateMediaItem(ctx, MediaItem{Kind: MediaBook, Title: "A"})
	b, _ := s.CreateMediaItem(ctx, MediaItem{Kind: MediaBook, Title: "B"})

	if _, err := s.SelectGroupMedia(ctx, "group-1", a.ID, true); err != nil {
		t.Fatalf("select A: %v", err)
	}
	if _, err := s.SelectGroupMedia(ctx, "group-1", b.ID, true); err != nil {
		t.Fatalf("select B: %v", err)
	}

	selections, _ := s.loadSelections(ctx)
	activeCount := 0
	for _, sel := range selections {
		if sel.GroupID == "group-1" && sel.IsActive {
			activeCount++
		}
	}
	if activeCount != 1 {
		t.Fatalf("expected exactly 1 active selection, got %d", activeCount)
	}
}

// Scenario 5: progress + rollback happy path.
func TestMarkAsReadAndRollback_HappyPath(t *testing.T) {
	c := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s := newTestService(t, c)
	ctx := context.Background()
	groupID, userID := "group-1", "user-1"

	_, unitIDs, postIDs := seedMediaWithFiveUnits(t, ctx, s, groupID)
	mediaItemID, err := mediaItemIDFromUnit(ctx, s, unitIDs[0])
	if err != nil {
		t.Fatalf("resolving mediaItemId: %v", err)
	}

	markResult, err := s.MarkAsRead(ctx, userID, groupID, mediaItemID, unitIDs[2]) // unit order 3
	if err != nil {
		t.Fatalf("MarkAsRead: %v", err)
	}
	if markResult.Token == "" {
		t.Fatalf("expected a rollback token")
	}
	if len(markResult.UnlockedPostIDs) != 3 {
		t.Fatalf("expected 3 posts unlocked (orders 1-3), got %d: %v", len(markResult.UnlockedPostIDs), markResult.UnlockedPostIDs)
	}

	feed, err := s.GetFeedForUser(ctx, userID, groupID, mediaItemID)
	if err != nil {
		t.Fatalf("GetFeedForUser: %v", err)
	}
	unlockedCount := 0
	for _, p := range feed.Posts {
		if p.Unlocked {
			unlockedCount++
		}
	}
	if unlockedCount != 3 {
		t.Fatalf("expected 3 unlocked posts in feed, got %d", unlockedCount)
	}

	rollbackResult, err := s.RollbackProgress(ctx, userID, markResult.Token)
	if err != nil {
		t.Fatalf("RollbackProgress: %v", err)
	}
	if len(rollbackResult.RelockedPostIDs) != 3 {
		t.Fatalf("expected 3 relocked posts (orders 1-3), got %d: %v", len(rollbackResult.RelockedPostIDs), rollbackResult.RelockedPostIDs)
	}
	for _, id := range rollbackResult.RelockedPostIDs {
		if !contains(postIDs[:3], id) {
			t.Fatalf("unexpected relocked post id %s", id)
		}
	}

	// Token is now consumed.
	if _, err := s.RollbackProgress(ctx, userID, markResult.Token); !errors.Is(err, ErrAlreadyRolledBack) {
		t.Fatalf("re-rollback: got %v, want ErrAlreadyRolledBack", err)
	}
}

// Scenario 6: rollback races.
func TestRollbackProgress_FailsStaleAfterInterveningMark(t *testing.T) {
	c := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s := newTestService(t, c)
	ctx := context.Background()
	groupID, userID := "group-1", "user-1"

	_, unitIDs, _ := seedMediaWithFiveUnits(t, ctx, s, groupID)
	mediaItemID, _ := mediaItemIDFromUnit(ctx, s, unitIDs[0])

	markResult, err := s.MarkAsRead(ctx, userID, groupID, mediaItemID, unitIDs[2])
	if err != nil {
		t.Fatalf("MarkAsRead(unit=3): %v", err)
	}

	if _, err := s.MarkAsRead(ctx, userID, groupID, mediaItemID, unitIDs[3]); err != nil {
		t.Fatalf("MarkAsRead(unit=4): %v", err)
	}

	if _, err := s.RollbackProgress(ctx, userID, markResult.Token); !errors.Is(err, ErrStale) {
		t.Fatalf("got %v, want ErrStale", err)
	}
}

func TestRollbackProgress_ExpiredAfterWindow(t *testing.T) {
	c := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s := newTestService(t, c)
	ctx := context.Background()
	groupID, userID := "group-1", "user-1"

	_, unitIDs, _ := seedMediaWithFiveUnits(t, ctx, s, groupID)
	mediaItemID, _ := mediaItemIDFromUnit(ctx, s, unitIDs[0])

	markResult, err := s.MarkAsRead(ctx, userID, groupID, mediaItemID, unitIDs[2])
	if err != nil {
		t.Fatalf("MarkAsRead: %v", err)
	}

	c.Advance(RollbackWindow + time.Second)

	if _, err := s.RollbackProgress(ctx, userID, markResult.Token); !errors.Is(err, ErrRollbackExpired) {
		t.Fatalf("got %v, want ErrRollbackExpired", err)
	}
}

func TestMarkAsRead_IdempotentBelowCurrentProgress(t *testing.T) {
	c := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s := newTestService(t, c)
	ctx := context.Background()
	groupID, userID := "group-1", "user-1"

	_, unitIDs, _ := seedMediaWithFiveUnits(t, ctx, s, groupID)
	mediaItemID, _ := mediaItemIDFromUnit(ctx, s, unitIDs[0])

	if _, err := s.MarkAsRead(ctx, userID, groupID, mediaItemID, unitIDs[2]); err != nil {
		t.Fatalf("MarkAsRead(3): %v", err)
	}

	progress, _ := s.loadProgress(ctx)
	versionAfterFirst := progress[progressKey(userID, groupID, mediaItemID)].Version

	second, err := s.MarkAsRead(ctx, userID, groupID, mediaItemID, unitIDs[0]) // order 1 <= 3
	if err != nil {
		t.Fatalf("MarkAsRead(1) idempotent: %v", err)
	}
	if second.Token != "" {
		t.Fatalf("expected empty token for no-op markAsRead, got %q", second.Token)
	}

	progress, _ = s.loadProgress(ctx)
	versionAfterSecond := progress[progressKey(userID, groupID, mediaItemID)].Version
	if versionAfterSecond != versionAfterFirst {
		t.Fatalf("expected version unchanged after no-op, got %d vs %d", versionAfterSecond, versionAfterFirst)
	}
}

func TestGetFeedForUser_UnknownSelectionFails(t *testing.T) {
	c := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s := newTestService(t, c)
	ctx := context.Background()

	if _, err := s.GetFeedForUser(ctx, "user-1", "group-x", "media-x"); !errors.Is(err, ErrUnknownSelection) {
		t.Fatalf("got %v, want ErrUnknownSelection", err)
	}
}

func TestUnitReference_Formatting(t *testing.T) {
	season, episode, chapter := 2, 5, 7

	se := MediaUnit{Season: &season, Episode: &episode, ReleaseOrder: 12}
	if got := se.unitReference(); got != "S2E5" {
		t.Fatalf("got %q, want S2E5", got)
	}

	ch := MediaUnit{Chapter: &chapter, ReleaseOrder: 7}
	if got := ch.unitReference(); got != "Chapter 7" {
		t.Fatalf("got %q, want Chapter 7", got)
	}

	plain := MediaUnit{ReleaseOrder: 3}
	if got := plain.unitReference(); got != "Unit 3" {
		t.Fatalf("got %q, want Unit 3", got)
	}
}

func mediaItemIDFromUnit(ctx context.Context, s *Service, unitID string) (string, error) {
	units, err := s.loadMediaUnits(ctx)
	if err != nil {
		return "", err
	}
	return units[unitID].MediaItemID, nil
}

func contains(haystack []string, needle string) bool {
	for _, h := range haystack {
		if h == needle {
			return true
		}
	}
	return false
}
