package contentsvc

import "context"

// RollbackProgress implements rollbackProgress from spec.md §4.6.
// Preconditions are checked in the order spec.md specifies, each its
// own error: UnknownToken, AlreadyRolledBack, Expired, Stale.
func (s *Service) RollbackProgress(ctx context.Context, userID, rollbackToken string) (RollbackResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	auditDoc, err := s.loadProgressAudit(ctx)
	if err != nil {
		return RollbackResult{}, err
	}

	var forward *ProgressAuditEvent
	for id, e := range auditDoc {
		if e.UserID == userID && e.RollbackToken == rollbackToken && e.Kind == "mark_read" {
			found := auditDoc[id]
			forward = &found
			break
		}
	}
	if forward == nil {
		return RollbackResult{}, ErrUnknownToken
	}

	if forward.RolledBackByAuditID != "" {
		return RollbackResult{}, ErrAlreadyRolledBack
	}

	now := s.clock.Now()
	if now.After(forward.CreatedAt.Add(RollbackWindow)) {
		return RollbackResult{}, ErrRollbackExpired
	}

	progress, err := s.loadProgress(ctx)
	if err != nil {
		return RollbackResult{}, err
	}
	pKey := progressKey(userID, forward.GroupID, forward.MediaItemID)
	current, ok := progress[pKey]
	if !ok || current.Version != forward.NextVersion {
		return RollbackResult{}, ErrStale
	}

	relockedIDs, err := s.unlockedPostIDsInRange(ctx, forward.GroupID, forward.MediaItemID, forward.PreviousUnitOrder, current.HighestUnitOrder)
	if err != nil {
		return RollbackResult{}, err
	}

	current.HighestUnitOrder = forward.PreviousUnitOrder
	current.HighestUnitID = forward.PreviousUnitID
	current.Version++
	current.UpdatedAt = now
	progress[pKey] = current
	if err := s.saveProgress(ctx, progress); err != nil {
		return RollbackResult{}, err
	}

	rollbackEvent := ProgressAuditEvent{
		ID:                s.ids.New(),
		UserID:            userID,
		GroupID:           forward.GroupID,
		MediaItemID:       forward.MediaItemID,
		Kind:              "rollback",
		PreviousUnitOrder: forward.NextUnitOrder,
		PreviousUnitID:    forward.NextUnitID,
		NextUnitOrder:     current.HighestUnitOrder,
		NextUnitID:        current.HighestUnitID,
		PreviousVersion:   forward.NextVersion,
		NextVersion:       current.Version,
		RollbackOfAuditID: forward.ID,
		CreatedAt:         now,
	}
	auditDoc[rollbackEvent.ID] = rollbackEvent

	updatedForward := *forward
	updatedForward.RolledBackByAuditID = rollbackEvent.ID
	auditDoc[forward.ID] = updatedForward

	if err := s.saveProgressAudit(ctx, auditDoc); err != nil {
		return RollbackResult{}, err
	}

	return RollbackResult{RelockedPostIDs: relockedIDs}, nil
}
