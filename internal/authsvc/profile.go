package authsvc

import (
	"context"
	"html"
	"strings"
)

// sanitizeDisplayName strips C0 control characters and DEL, trims
// whitespace, and caps length at 80 runes, per spec.md §4.5.
func sanitizeDisplayName(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	trimmed := strings.TrimSpace(b.String())
	runes := []rune(trimmed)
	if len(runes) > 80 {
		runes = runes[:80]
	}
	return string(runes)
}

// EscapeDisplayName HTML-entity-encodes a display name for output, per
// spec.md §4.5's "HTML-entity-encoded on output" rule.
func EscapeDisplayName(name string) string {
	return html.EscapeString(name)
}

// UpdateProfile implements updateProfile from spec.md §4.5.
func (s *Service) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (AuthUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return AuthUser{}, err
	}
	u, ok := users[userID]
	if !ok {
		return AuthUser{}, ErrUnknownUser
	}

	if update.DisplayName != nil {
		name := sanitizeDisplayName(*update.DisplayName)
		if name == "" {
			return AuthUser{}, ErrEmptyDisplayName
		}
		u.DisplayName = name
	}

	if update.ThemePreference != nil {
		switch *update.ThemePreference {
		case ThemeSystem, ThemeLight, ThemeDark:
			u.Preferences.ThemePreference = *update.ThemePreference
		default:
			return AuthUser{}, ErrInvalidThemePreference
		}
	}

	if update.Username != nil {
		normalized := normalizeUsername(*update.Username)
		if !usernameRe.MatchString(normalized) {
			return AuthUser{}, ErrInvalidUsername
		}

		index, err := s.loadUsernameIndex(ctx)
		if err != nil {
			return AuthUser{}, err
		}
		if owner, taken := index[normalized]; taken && owner != userID {
			return AuthUser{}, ErrUsernameTaken
		}

		reservations, err := s.loadUsernameReservations(ctx)
		if err != nil {
			return AuthUser{}, err
		}
		now := s.clock.Now()
		sweepExpiredReservations(reservations, now.UnixMilli())
		if r, reserved := reservations[normalized]; reserved && r.UserID != userID {
			return AuthUser{}, ErrUsernameReserved
		}

		if u.UsernameNormalized != "" && u.UsernameNormalized != normalized {
			delete(index, u.UsernameNormalized)
		}
		index[normalized] = userID
		delete(reservations, normalized)

		if err := s.saveUsernameIndex(ctx, index); err != nil {
			return AuthUser{}, err
		}
		if err := s.saveUsernameReservations(ctx, reservations); err != nil {
			return AuthUser{}, err
		}

		u.Username = *update.Username
		u.UsernameNormalized = normalized
	}

	u.UpdatedAt = s.clock.Now()
	users[userID] = u
	if err := s.saveUsers(ctx, users); err != nil {
		return AuthUser{}, err
	}

	return toAuthUser(u), nil
}
