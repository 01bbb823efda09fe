package contentsvc

import "context"

// MarkAsRead implements markAsRead from spec.md §4.6. A target unit
// order at or below current progress is idempotent: no version bump,
// no audit event, and an immediately-expired empty token.
func (s *Service) MarkAsRead(ctx context.Context, userID, groupID, mediaItemID, unitID string) (MarkProgressResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	units, err := s.loadMediaUnits(ctx)
	if err != nil {
		return MarkProgressResult{}, err
	}
	targetUnit, ok := units[unitID]
	if !ok {
		return MarkProgressResult{}, ErrUnknownUnit
	}
	if targetUnit.MediaItemID != mediaItemID {
		return MarkProgressResult{}, ErrInvalidPostReference
	}

	progress, err := s.loadProgress(ctx)
	if err != nil {
		return MarkProgressResult{}, err
	}
	pKey := progressKey(userID, groupID, mediaItemID)
	current, existed := progress[pKey]
	if !existed {
		current = UserProgress{UserID: userID, GroupID: groupID, MediaItemID: mediaItemID, Version: 0}
	}

	now := s.clock.Now()

	if targetUnit.ReleaseOrder <= current.HighestUnitOrder {
		return MarkProgressResult{Token: "", ExpiresAt: now}, nil
	}

	previousOrder := current.HighestUnitOrder
	previousUnitID := current.HighestUnitID
	previousVersion := current.Version

	current.HighestUnitOrder = targetUnit.ReleaseOrder
	current.HighestUnitID = targetUnit.ID
	current.Version = previousVersion + 1
	current.UpdatedAt = now
	progress[pKey] = current

	if err := s.saveProgress(ctx, progress); err != nil {
		return MarkProgressResult{}, err
	}

	token := s.ids.New()
	event := ProgressAuditEvent{
		ID:                s.ids.New(),
		UserID:            userID,
		GroupID:           groupID,
		MediaItemID:       mediaItemID,
		Kind:              "mark_read",
		PreviousUnitOrder: previousOrder,
		PreviousUnitID:    previousUnitID,
		NextUnitOrder:     current.HighestUnitOrder,
		NextUnitID:        current.HighestUnitID,
		PreviousVersion:   previousVersion,
		NextVersion:       current.Version,
		RollbackToken:     token,
		CreatedAt:         now,
	}

	auditDoc, err := s.loadProgressAudit(ctx)
	if err != nil {
		return MarkProgressResult{}, err
	}
	auditDoc[event.ID] = event
	if err := s.saveProgressAudit(ctx, auditDoc); err != nil {
		return MarkProgressResult{}, err
	}

	unlockedIDs, err := s.unlockedPostIDsInRange(ctx, groupID, mediaItemID, previousOrder, current.HighestUnitOrder)
	if err != nil {
		return MarkProgressResult{}, err
	}

	return MarkProgressResult{
		UnlockedPostIDs: unlockedIDs,
		Token:           token,
		ExpiresAt:       now.Add(RollbackWindow),
	}, nil
}

// unlockedPostIDsInRange returns post IDs for (groupID, mediaItemID)
// whose required unit's releaseOrder falls in (lowOrder, highOrder].
// Caller must hold s.mu.
func (s *Service) unlockedPostIDsInRange(ctx context.Context, groupID, mediaItemID string, lowOrder, highOrder int) ([]string, error) {
	units, err := s.loadMediaUnits(ctx)
	if err != nil {
		return nil, err
	}
	posts, err := s.loadPosts(ctx)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, p := range posts {
		if p.GroupID != groupID || p.MediaItemID != mediaItemID {
			continue
		}
		unit, ok := units[p.RequiredUnitID]
		if !ok {
			continue
		}
		if unit.ReleaseOrder > lowOrder && unit.ReleaseOrder <= highOrder {
			out = append(out, p.ID)
		}
	}
	return out, nil
}

// GetProgressAuditTrail implements getProgressAuditTrail from spec.md
// §4.6, ascending by createdAt.
func (s *Service) GetProgressAuditTrail(ctx context.Context, userID, groupID, mediaItemID string) ([]ProgressAuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	auditDoc, err := s.loadProgressAudit(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]ProgressAuditEvent, 0)
	for _, e := range auditDoc {
		if e.UserID == userID && e.GroupID == groupID && e.MediaItemID == mediaItemID {
			matched = append(matched, e)
		}
	}
	for i := 1; i < len(matched); i++ {
		for j := i; j > 0 && matched[j].CreatedAt.Before(matched[j-1].CreatedAt); j-- {
			matched[j], matched[j-1] = matched[j-1], matched[j]
		}
	}
	return matched, nil
}
