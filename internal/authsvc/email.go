package authsvc

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/nospoilers/core/internal/audit"
	"github.com/nospoilers/core/internal/ratelimit"
)

const emailPasswordSalt = "nospoilers/authsvc/password/v1"

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func normalizeEmail(raw string) (string, error) {
	e := strings.ToLower(strings.TrimSpace(raw))
	if !emailRe.MatchString(e) {
		return "", ErrInvalidEmail
	}
	return e, nil
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password + emailPasswordSalt))
	return hex.EncodeToString(sum[:])
}

// LoginWithEmailPassword implements loginWithEmailPassword from
// spec.md §4.5: SHA-256(password ∥ salt) compared in constant time
// (spec.md §3/§4.5's explicit algorithm choice, not bcrypt).
func (s *Service) LoginWithEmailPassword(ctx context.Context, email, password string) (ProviderLoginResult, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return ProviderLoginResult{}, ErrInvalidEmail
	}
	if password == "" {
		return ProviderLoginResult{}, ErrInvalidCredentials
	}

	rateKey := "login:email:" + normalized
	if err := s.limiter.Allow(ctx, rateKey, ratelimit.LimitLogin); err != nil {
		s.recordGenericSuspicion(ctx, rateKey, "email_login_rate_limited", audit.ActionEmailLogin)
		s.audit.Record(audit.ActionEmailLogin, audit.StatusFailure, "", normalized, map[string]any{"reason": "rate_limited"})
		return ProviderLoginResult{}, ErrRateLimited
	}

	s.mu.Lock()
	users, err := s.loadUsers(ctx)
	if err != nil {
		s.mu.Unlock()
		return ProviderLoginResult{}, err
	}

	var existing *User
	for id, u := range users {
		if u.Email != "" && strings.EqualFold(u.Email, normalized) {
			found := users[id]
			existing = &found
			break
		}
	}

	if existing != nil {
		hash := hashPassword(password)
		if existing.PasswordHash == "" || subtle.ConstantTimeCompare([]byte(hash), []byte(existing.PasswordHash)) != 1 {
			s.mu.Unlock()
			s.recordGenericSuspicion(ctx, rateKey, "email_password_mismatch", audit.ActionEmailLogin)
			s.audit.Record(audit.ActionEmailLogin, audit.StatusFailure, "", normalized, map[string]any{"reason": "invalid_credentials"})
			return ProviderLoginResult{}, ErrInvalidCredentials
		}
		s.mu.Unlock()

		session, err := s.issueSession(ctx, existing.ID)
		if err != nil {
			return ProviderLoginResult{}, err
		}
		s.audit.Record(audit.ActionEmailLogin, audit.StatusSuccess, existing.ID, normalized, nil)
		return ProviderLoginResult{User: toAuthUser(*existing), Session: session, Linked: false}, nil
	}

	now := s.clock.Now()
	u := User{
		ID:           s.ids.New(),
		Email:        normalized,
		PasswordHash: hashPassword(password),
		Identities:   []Identity{{Provider: ProviderEmail, Subject: normalized, Verified: false}},
		Preferences:  Preferences{ThemePreference: ThemeSystem},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	users[u.ID] = u
	if err := s.saveUsers(ctx, users); err != nil {
		s.mu.Unlock()
		return ProviderLoginResult{}, err
	}
	s.mu.Unlock()

	session, err := s.issueSession(ctx, u.ID)
	if err != nil {
		return ProviderLoginResult{}, err
	}
	s.audit.Record(audit.ActionEmailLogin, audit.StatusSuccess, u.ID, normalized, map[string]any{"created": true})
	return ProviderLoginResult{User: toAuthUser(u), Session: session, Linked: true}, nil
}
