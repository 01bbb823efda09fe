package authsvc

import (
	"context"
	"regexp"
	"strings"
	"time"
)

var usernameRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9_]{1,28}[a-z0-9])?$`)

func normalizeUsername(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// sweepExpiredReservations lazily drops reservations past their TTL,
// per spec.md §4.5's "swept lazily on every read" rule. Caller must
// hold s.mu.
func sweepExpiredReservations(doc usernameReservationsDoc, nowMs int64) {
	for k, r := range doc {
		if r.ExpiresAtMs <= nowMs {
			delete(doc, k)
		}
	}
}

// CheckUsernameAvailability implements checkUsernameAvailability from
// spec.md §4.5.
func (s *Service) CheckUsernameAvailability(ctx context.Context, username string) (UsernameAvailability, error) {
	normalized := normalizeUsername(username)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !usernameRe.MatchString(normalized) {
		return UsernameAvailability{Requested: username, Normalized: normalized, Available: false, Reason: "invalid"}, nil
	}

	index, err := s.loadUsernameIndex(ctx)
	if err != nil {
		return UsernameAvailability{}, err
	}
	if _, taken := index[normalized]; taken {
		return UsernameAvailability{Requested: username, Normalized: normalized, Available: false, Reason: "taken"}, nil
	}

	reservations, err := s.loadUsernameReservations(ctx)
	if err != nil {
		return UsernameAvailability{}, err
	}
	now := s.clock.Now()
	sweepExpiredReservations(reservations, now.UnixMilli())
	if err := s.saveUsernameReservations(ctx, reservations); err != nil {
		return UsernameAvailability{}, err
	}

	if r, reserved := reservations[normalized]; reserved {
		until := time.UnixMilli(r.ExpiresAtMs).UTC()
		return UsernameAvailability{Requested: username, Normalized: normalized, Available: false, Reason: "reserved", ReservedUntil: &until}, nil
	}

	return UsernameAvailability{Requested: username, Normalized: normalized, Available: true}, nil
}

// ReserveUsername implements reserveUsername from spec.md §4.5.
func (s *Service) ReserveUsername(ctx context.Context, username, userID string) (UsernameAvailability, error) {
	normalized := normalizeUsername(username)
	if !usernameRe.MatchString(normalized) {
		return UsernameAvailability{}, ErrInvalidUsername
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.loadUsernameIndex(ctx)
	if err != nil {
		return UsernameAvailability{}, err
	}
	if _, taken := index[normalized]; taken {
		return UsernameAvailability{}, ErrUsernameTaken
	}

	reservations, err := s.loadUsernameReservations(ctx)
	if err != nil {
		return UsernameAvailability{}, err
	}
	now := s.clock.Now()
	sweepExpiredReservations(reservations, now.UnixMilli())

	if r, reserved := reservations[normalized]; reserved && r.UserID != userID {
		return UsernameAvailability{}, ErrUsernameReserved
	}

	expiresAt := now.Add(UsernameReservationTTL)
	reservations[normalized] = UsernameReservation{
		Normalized:  normalized,
		UserID:      userID,
		ExpiresAtMs: expiresAt.UnixMilli(),
	}
	if err := s.saveUsernameReservations(ctx, reservations); err != nil {
		return UsernameAvailability{}, err
	}

	return UsernameAvailability{Requested: username, Normalized: normalized, Available: false, Reason: "reserved", ReservedUntil: &expiresAt}, nil
}
