package authsvc

import (
	"context"

	"github.com/nospoilers/core/internal/audit"
)

// RefreshSession implements refreshSession from spec.md §4.5: accept a
// token from the argument or the secure slot, fail Expired past TTL,
// and rotate — delete the presented token, issue a fresh pair, store
// the new refresh token in the secure slot.
func (s *Service) RefreshSession(ctx context.Context, presented string) (SessionPair, error) {
	token := presented
	if token == "" {
		stored, found, err := s.secrets.Get(ctx)
		if err != nil {
			return SessionPair{}, err
		}
		if !found {
			return SessionPair{}, ErrMissingRefresh
		}
		token = stored
	}

	s.mu.Lock()
	tokens, err := s.loadRefreshTokens(ctx)
	if err != nil {
		s.mu.Unlock()
		return SessionPair{}, err
	}

	record, ok := tokens[token]
	if !ok {
		s.mu.Unlock()
		return SessionPair{}, ErrMissingRefresh
	}

	now := s.clock.Now()
	if now.UnixMilli() > record.ExpiresAtMs {
		delete(tokens, token)
		_ = s.saveRefreshTokens(ctx, tokens)
		s.mu.Unlock()
		return SessionPair{}, ErrRefreshExpired
	}

	delete(tokens, token)
	if err := s.saveRefreshTokens(ctx, tokens); err != nil {
		s.mu.Unlock()
		return SessionPair{}, err
	}
	s.mu.Unlock()

	pair, err := s.issueSession(ctx, record.UserID)
	if err != nil {
		return SessionPair{}, err
	}
	s.audit.Record(audit.ActionSessionRefresh, audit.StatusSuccess, record.UserID, "", nil)
	return pair, nil
}

// Logout implements logout from spec.md §4.5: delete the current
// refresh record and clear the secure slot.
func (s *Service) Logout(ctx context.Context) error {
	token, found, err := s.secrets.Get(ctx)
	if err != nil {
		return err
	}

	if found {
		s.mu.Lock()
		tokens, err := s.loadRefreshTokens(ctx)
		if err == nil {
			if record, ok := tokens[token]; ok {
				delete(tokens, token)
				_ = s.saveRefreshTokens(ctx, tokens)
				s.audit.Record(audit.ActionLogout, audit.StatusSuccess, record.UserID, "", nil)
			}
		}
		s.mu.Unlock()
	}

	return s.secrets.Clear(ctx)
}
