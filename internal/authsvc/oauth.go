package authsvc

import (
	"context"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/nospoilers/core/internal/audit"
	"github.com/nospoilers/core/internal/ratelimit"
)

// OAuthProvider names accepted by loginWithOAuth.
const (
	OAuthGoogle = "google"
	OAuthApple  = "apple"
)

// oauthEndpoints ties provider names to a real oauth2.Endpoint, so the
// registry is exercised against an actual ecosystem binding rather
// than a bare string constant. Apple has no endpoint wired: spec.md §9
// leaves Apple OAuth as types-only ("the service implementation only
// demonstrates Google"), so loginWithOAuth accepts OAuthApple as a
// valid provider name for identity bookkeeping but does not perform a
// token exchange against it.
var oauthEndpoints = map[string]oauth2.Endpoint{
	OAuthGoogle: google.Endpoint,
}

// IsKnownOAuthProvider reports whether provider is one spec.md §3 lists.
func IsKnownOAuthProvider(provider string) bool {
	switch provider {
	case OAuthGoogle, OAuthApple:
		return true
	default:
		return false
	}
}

// LoginWithOAuth implements loginWithOAuth from spec.md §4.5. subject
// is the provider-issued stable subject identifier (e.g. Google's
// "sub" claim) already verified by the caller's OAuth exchange against
// oauthEndpoints; this service only performs identity bookkeeping.
func (s *Service) LoginWithOAuth(ctx context.Context, provider, subject, emailHint string) (ProviderLoginResult, error) {
	if !IsKnownOAuthProvider(provider) {
		return ProviderLoginResult{}, ErrInvalidCredentials
	}
	subject = strings.ToLower(strings.TrimSpace(subject))
	if subject == "" {
		return ProviderLoginResult{}, ErrInvalidCredentials
	}

	rateKey := "login:oauth:" + provider + ":" + subject
	if err := s.limiter.Allow(ctx, rateKey, ratelimit.LimitLogin); err != nil {
		s.recordGenericSuspicion(ctx, rateKey, "oauth_login_rate_limited", audit.ActionOAuthLogin)
		s.audit.Record(audit.ActionOAuthLogin, audit.StatusFailure, "", subject, map[string]any{"reason": "rate_limited", "provider": provider})
		return ProviderLoginResult{}, ErrRateLimited
	}

	user, linked, err := s.upsertProviderIdentity(ctx, provider, subject, true, upsertHint{Email: strings.ToLower(strings.TrimSpace(emailHint))})
	if err != nil {
		return ProviderLoginResult{}, err
	}

	session, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return ProviderLoginResult{}, err
	}

	s.audit.Record(audit.ActionOAuthLogin, audit.StatusSuccess, user.ID, subject, map[string]any{"provider": provider})

	return ProviderLoginResult{User: toAuthUser(user), Session: session, Linked: linked}, nil
}

func (s *Service) recordGenericSuspicion(ctx context.Context, key, reason, action string) {
	score, err := s.suspicion.Record(ctx, key, reason)
	if err != nil {
		return
	}
	if score >= ratelimit.SuspicionThreshold {
		s.audit.RecordSuspicious(action, audit.StatusFailure, "", key, map[string]any{"reason": reason, "score": score})
	}
}
