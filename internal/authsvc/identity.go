package authsvc

import (
	"context"
	"strings"
)

// upsertHint carries the optional contact fields a login path may
// supply to help merge an identity onto an existing user.
type upsertHint struct {
	Email string
	Phone string
}

// upsertProviderIdentity implements the deterministic merge order of
// spec.md §4.5: match by (provider, subject), then by email hint, then
// by phone hint, else create a new user. linked reports whether a new
// user was created, a new identity appended, or a contact field
// backfilled.
func (s *Service) upsertProviderIdentity(ctx context.Context, provider, subject string, verified bool, hint upsertHint) (User, bool, error) {
	users, err := s.loadUsers(ctx)
	if err != nil {
		return User{}, false, err
	}

	var match *User
	for id, u := range users {
		for _, ident := range u.Identities {
			if ident.Provider == provider && ident.Subject == subject {
				found := users[id]
				match = &found
				break
			}
		}
		if match != nil {
			break
		}
	}

	if match == nil && hint.Email != "" {
		for id, u := range users {
			if u.Email != "" && strings.EqualFold(u.Email, hint.Email) {
				found := users[id]
				match = &found
				break
			}
		}
	}

	if match == nil && hint.Phone != "" {
		for id, u := range users {
			if u.PrimaryPhone != "" && u.PrimaryPhone == hint.Phone {
				found := users[id]
				match = &found
				break
			}
		}
	}

	now := s.clock.Now()
	linked := false

	if match == nil {
		u := User{
			ID:          s.ids.New(),
			Email:       hint.Email,
			PrimaryPhone: hint.Phone,
			Identities:  []Identity{{Provider: provider, Subject: subject, Verified: verified}},
			Preferences: Preferences{ThemePreference: ThemeSystem},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		users[u.ID] = u
		if err := s.saveUsers(ctx, users); err != nil {
			return User{}, false, err
		}
		return u, true, nil
	}

	u := *match
	hasIdentity := false
	for _, ident := range u.Identities {
		if ident.Provider == provider && ident.Subject == subject {
			hasIdentity = true
			break
		}
	}
	if !hasIdentity {
		u.Identities = append(u.Identities, Identity{Provider: provider, Subject: subject, Verified: verified})
		linked = true
	}
	if u.Email == "" && hint.Email != "" {
		u.Email = hint.Email
		linked = true
	}
	if u.PrimaryPhone == "" && hint.Phone != "" {
		u.PrimaryPhone = hint.Phone
		linked = true
	}

	if linked {
		u.UpdatedAt = now
		users[u.ID] = u
		if err := s.saveUsers(ctx, users); err != nil {
			return User{}, false, err
		}
	}

	return u, linked, nil
}
