package contentsvc

import (
	"context"
	"sync"

	"github.com/nospoilers/core/internal/clock"
	"github.com/nospoilers/core/internal/cryptostore"
	"github.com/nospoilers/core/internal/idgen"
)

const (
	keyMediaItems     = "content:mediaItems"
	keyMediaUnits     = "content:units"
	keySelections     = "content:selections"
	keyPosts          = "content:posts"
	keyProgress       = "content:progress"
	keyProgressAudit  = "content:progressAudit"
)

type mediaItemsDoc map[string]MediaItem              // id -> MediaItem
type mediaUnitsDoc map[string]MediaUnit               // id -> MediaUnit
type selectionsDoc map[string]GroupMediaSelection      // groupId+"/"+mediaItemId -> selection
type postsDoc map[string]Post                          // id -> Post
type progressDoc map[string]UserProgress               // userId+"/"+groupId+"/"+mediaItemId -> progress
type progressAuditDoc map[string]ProgressAuditEvent     // id -> event

func selectionKey(groupID, mediaItemID string) string {
	return groupID + "/" + mediaItemID
}

func progressKey(userID, groupID, mediaItemID string) string {
	return userID + "/" + groupID + "/" + mediaItemID
}

// Service implements the content operations of spec.md §4.6. All
// mutating operations run under mu, a single coarse lock, matching
// spec.md §5's concurrency model.
type Service struct {
	mu sync.Mutex

	kv    *cryptostore.Store
	clock clock.Clock
	ids   idgen.Source
}

// New constructs a content Service.
func New(kv *cryptostore.Store, c clock.Clock, ids idgen.Source) *Service {
	return &Service{kv: kv, clock: c, ids: ids}
}

func (s *Service) loadMediaItems(ctx context.Context) (mediaItemsDoc, error) {
	var doc mediaItemsDoc
	found, err := s.kv.Load(ctx, keyMediaItems, &doc)
	if err != nil {
		return nil, err
	}
	if !found || doc == nil {
		doc = mediaItemsDoc{}
	}
	return doc, nil
}

func (s *Service) saveMediaItems(ctx context.Context, doc mediaItemsDoc) error {
	return s.kv.Save(ctx, keyMediaItems, doc)
}

func (s *Service) loadMediaUnits(ctx context.Context) (mediaUnitsDoc, error) {
	var doc mediaUnitsDoc
	found, err := s.kv.Load(ctx, keyMediaUnits, &doc)
	if err != nil {
		return nil, err
	}
	if !found || doc == nil {
		doc = mediaUnitsDoc{}
	}
	return doc, nil
}

func (s *Service) saveMediaUnits(ctx context.Context, doc mediaUnitsDoc) error {
	return s.kv.Save(ctx, keyMediaUnits, doc)
}

func (s *Service) loadSelections(ctx context.Context) (selectionsDoc, error) {
	var doc selectionsDoc
	found, err := s.kv.Load(ctx, keySelections, &doc)
	if err != nil {
		return nil, err
	}
	if !found || doc == nil {
		doc = selectionsDoc{}
	}
	return doc, nil
}

func (s *Service) saveSelections(ctx context.Context, doc selectionsDoc) error {
	return s.kv.Save(ctx, keySelections, doc)
}

func (s *Service) loadPosts(ctx context.Context) (postsDoc, error) {
	var doc postsDoc
	found, err := s.kv.Load(ctx, keyPosts, &doc)
	if err != nil {
		return nil, err
	}
	if !found || doc == nil {
		doc = postsDoc{}
	}
	return doc, nil
}

func (s *Service) savePosts(ctx context.Context, doc postsDoc) error {
	return s.kv.Save(ctx, keyPosts, doc)
}

func (s *Service) loadProgress(ctx context.Context) (progressDoc, error) {
	var doc progressDoc
	found, err := s.kv.Load(ctx, keyProgress, &doc)
	if err != nil {
		return nil, err
	}
	if !found || doc == nil {
		doc = progressDoc{}
	}
	return doc, nil
}

func (s *Service) saveProgress(ctx context.Context, doc progressDoc) error {
	return s.kv.Save(ctx, keyProgress, doc)
}

func (s *Service) loadProgressAudit(ctx context.Context) (progressAuditDoc, error) {
	var doc progressAuditDoc
	found, err := s.kv.Load(ctx, keyProgressAudit, &doc)
	if err != nil {
		return nil, err
	}
	if !found || doc == nil {
		doc = progressAuditDoc{}
	}
	return doc, nil
}

func (s *Service) saveProgressAudit(ctx context.Context, doc progressAuditDoc) error {
	return s.kv.Save(ctx, keyProgressAudit, doc)
}
