package contentsvc

import "context"

// GetFeedForUser implements getFeedForUser from spec.md §4.6.
func (s *Service) GetFeedForUser(ctx context.Context, userID, groupID, mediaItemID string) (FeedResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	selections, err := s.loadSelections(ctx)
	if err != nil {
		return FeedResponse{}, err
	}
	if _, ok := selections[selectionKey(groupID, mediaItemID)]; !ok {
		return FeedResponse{}, ErrUnknownSelection
	}

	progress, err := s.loadProgress(ctx)
	if err != nil {
		return FeedResponse{}, err
	}
	pKey := progressKey(userID, groupID, mediaItemID)
	userProgress, ok := progress[pKey]
	if !ok {
		userProgress = UserProgress{UserID: userID, GroupID: groupID, MediaItemID: mediaItemID, Version: 0}
	}

	units, err := s.loadMediaUnits(ctx)
	if err != nil {
		return FeedResponse{}, err
	}

	posts, err := s.loadPosts(ctx)
	if err != nil {
		return FeedResponse{}, err
	}

	ordered := postsForPair(posts, groupID, mediaItemID)

	out := make([]FeedPost, 0, len(ordered))
	for _, p := range ordered {
		unit, ok := units[p.RequiredUnitID]
		if !ok {
			continue
		}
		unlocked := userProgress.HighestUnitOrder >= unit.ReleaseOrder
		fp := FeedPost{
			ID:                p.ID,
			AuthorID:          p.AuthorID,
			PreviewText:       p.PreviewText,
			UnitReference:     unit.unitReference(),
			Unlocked:          unlocked,
			MarkAsReadUnitID:  unit.ID,
			MarkAsReadEnabled: !unlocked,
		}
		if unlocked {
			fp.Body = p.Body
		}
		out = append(out, fp)
	}

	return FeedResponse{Posts: out}, nil
}

// postsForPair returns posts for (groupID, mediaItemID) sorted by
// createdAt descending, per spec.md §4.6.
func postsForPair(posts postsDoc, groupID, mediaItemID string) []Post {
	matched := make([]Post, 0, len(posts))
	for _, p := range posts {
		if p.GroupID == groupID && p.MediaItemID == mediaItemID {
			matched = append(matched, p)
		}
	}
	// Insertion sort descending by CreatedAt; feeds are small enough
	// that this is simpler than pulling in a sort-by-key helper.
	for i := 1; i < len(matched); i++ {
		for j := i; j > 0 && matched[j].CreatedAt.After(matched[j-1].CreatedAt); j-- {
			matched[j], matched[j-1] = matched[j-1], matched[j]
		}
	}
	return matched
}
