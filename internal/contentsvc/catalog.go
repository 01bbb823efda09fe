package contentsvc

import "context"

// CreateMediaItem implements createMediaItem from spec.md §4.6.
func (s *Service) CreateMediaItem(ctx context.Context, item MediaItem) (MediaItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.loadMediaItems(ctx)
	if err != nil {
		return MediaItem{}, err
	}

	now := s.clock.Now()
	item.ID = s.ids.New()
	item.CreatedAt = now
	item.UpdatedAt = now
	items[item.ID] = item

	if err := s.saveMediaItems(ctx, items); err != nil {
		return MediaItem{}, err
	}
	return item, nil
}

// CreateMediaUnit implements createMediaUnit from spec.md §4.6,
// enforcing that releaseOrder is unique within its MediaItem (spec.md §3).
func (s *Service) CreateMediaUnit(ctx context.Context, unit MediaUnit) (MediaUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.loadMediaItems(ctx)
	if err != nil {
		return MediaUnit{}, err
	}
	if _, ok := items[unit.MediaItemID]; !ok {
		return MediaUnit{}, ErrUnknownMedia
	}

	units, err := s.loadMediaUnits(ctx)
	if err != nil {
		return MediaUnit{}, err
	}
	for _, existing := range units {
		if existing.MediaItemID == unit.MediaItemID && existing.ReleaseOrder == unit.ReleaseOrder {
			return MediaUnit{}, ErrInvalidPostReference
		}
	}

	unit.ID = s.ids.New()
	units[unit.ID] = unit

	if err := s.saveMediaUnits(ctx, units); err != nil {
		return MediaUnit{}, err
	}
	return unit, nil
}

// SelectGroupMedia implements selectGroupMedia from spec.md §4.6: at
// most one active selection per group; activating a new one
// deactivates the previous atomically.
func (s *Service) SelectGroupMedia(ctx context.Context, groupID, mediaItemID string, isActive bool) (GroupMediaSelection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.loadMediaItems(ctx)
	if err != nil {
		return GroupMediaSelection{}, err
	}
	if _, ok := items[mediaItemID]; !ok {
		return GroupMediaSelection{}, ErrUnknownMedia
	}

	selections, err := s.loadSelections(ctx)
	if err != nil {
		return GroupMediaSelection{}, err
	}

	if isActive {
		for key, sel := range selections {
			if sel.GroupID == groupID && sel.IsActive {
				sel.IsActive = false
				selections[key] = sel
			}
		}
	}

	sel := GroupMediaSelection{GroupID: groupID, MediaItemID: mediaItemID, IsActive: isActive}
	selections[selectionKey(groupID, mediaItemID)] = sel

	if err := s.saveSelections(ctx, selections); err != nil {
		return GroupMediaSelection{}, err
	}
	return sel, nil
}

// CreatePost implements createPost from spec.md §4.6, enforcing that
// requiredUnit.mediaItemId matches post.mediaItemId and that a
// selection exists for (groupId, mediaItemId) at creation time.
func (s *Service) CreatePost(ctx context.Context, post Post) (Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	selections, err := s.loadSelections(ctx)
	if err != nil {
		return Post{}, err
	}
	if _, ok := selections[selectionKey(post.GroupID, post.MediaItemID)]; !ok {
		return Post{}, ErrUnknownSelection
	}

	units, err := s.loadMediaUnits(ctx)
	if err != nil {
		return Post{}, err
	}
	unit, ok := units[post.RequiredUnitID]
	if !ok {
		return Post{}, ErrUnknownUnit
	}
	if unit.MediaItemID != post.MediaItemID {
		return Post{}, ErrInvalidPostReference
	}

	posts, err := s.loadPosts(ctx)
	if err != nil {
		return Post{}, err
	}

	post.ID = s.ids.New()
	post.CreatedAt = s.clock.Now()
	posts[post.ID] = post

	if err := s.savePosts(ctx, posts); err != nil {
		return Post{}, err
	}
	return post, nil
}
