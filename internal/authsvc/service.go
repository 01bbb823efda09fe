// Package authsvc implements the Authentication & Identity Service of
// spec.md §4.5: phone OTP, OAuth, and email/password login; account
// linking; session issuance and refresh; username reservation;
// avatar upload planning; rate limiting and audit logging.
//
// Grounded on the teacher's internal/auth package for the session JWT
// and login shapes (internal/auth/session.go, internal/auth/login.go),
// generalized from a single local-login flow to the multi-provider
// state machine spec.md describes, and rewired onto an encrypted KV
// store instead of Postgres — this repo has no relational schema.
package authsvc

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"

	"github.com/nospoilers/core/internal/audit"
	"github.com/nospoilers/core/internal/clock"
	"github.com/nospoilers/core/internal/cryptostore"
	"github.com/nospoilers/core/internal/idgen"
	"github.com/nospoilers/core/internal/ratelimit"
	"github.com/nospoilers/core/internal/securestore"
)

const (
	keyUsers               = "auth:users"
	keyPhoneChallenges     = "auth:phone:challenges"
	keyRefreshTokens       = "auth:refreshTokens"
	keyUsernameIndex       = "auth:username:index"
	keyUsernameReservations = "auth:username:reservations"
	keyAvatarUploads       = "auth:avatar:uploads"
)

// usersDoc, phoneChallengesDoc, etc. are the documents stored at each
// stable key: the whole map, loaded and rewritten atomically under the
// service's coarse lock. This matches spec.md §5's "per-service coarse
// lock suffices" guidance and the teacher's pattern of treating each
// domain collection as a unit of storage.
type usersDoc map[string]User                       // userID -> User
type phoneChallengesDoc map[string]PhoneChallenge    // challengeID -> PhoneChallenge
type refreshTokensDoc map[string]RefreshTokenRecord  // refreshToken -> record
type usernameIndexDoc map[string]string              // normalized -> userID
type usernameReservationsDoc map[string]UsernameReservation // normalized -> reservation
type avatarUploadsDoc map[string]AvatarUpload         // uploadID -> AvatarUpload

// Service implements the auth operations of spec.md §4.5. All mutating
// operations run under mu, a single coarse lock, per spec.md §5.
type Service struct {
	mu sync.Mutex

	kv      *cryptostore.Store
	secrets securestore.Store
	clock   clock.Clock
	ids     idgen.Source
	limiter ratelimit.Limiter
	suspicion ratelimit.SuspicionTracker
	audit   *audit.Log

	policy     TransportPolicy
	signingKey []byte
}

// New constructs a Service. Per spec.md §6, transport policy is
// validated here and construction fails fatally (not at call time) if
// apiBaseUrl isn't https or enforceSecureStorage is false.
func New(
	kv *cryptostore.Store,
	secrets securestore.Store,
	c clock.Clock,
	ids idgen.Source,
	limiter ratelimit.Limiter,
	suspicion ratelimit.SuspicionTracker,
	auditLog *audit.Log,
	policy TransportPolicy,
	sessionSigningKey []byte,
) (*Service, error) {
	if len(policy.APIBaseURL) < 8 || policy.APIBaseURL[:8] != "https://" {
		return nil, ErrInsecureTransport
	}
	if !policy.EnforceSecureStorage {
		return nil, ErrInsecureTransport
	}
	if len(sessionSigningKey) < 32 {
		return nil, fmt.Errorf("authsvc: session signing key must be at least 32 bytes, got %d", len(sessionSigningKey))
	}

	return &Service{
		kv:         kv,
		secrets:    secrets,
		clock:      c,
		ids:        ids,
		limiter:    limiter,
		suspicion:  suspicion,
		audit:      auditLog,
		policy:     policy,
		signingKey: sessionSigningKey,
	}, nil
}

func (s *Service) loadUsers(ctx context.Context) (usersDoc, error) {
	var doc usersDoc
	found, err := s.kv.Load(ctx, keyUsers, &doc)
	if err != nil {
		return nil, err
	}
	if !found || doc == nil {
		doc = usersDoc{}
	}
	return doc, nil
}

func (s *Service) saveUsers(ctx context.Context, doc usersDoc) error {
	return s.kv.Save(ctx, keyUsers, doc)
}

func (s *Service) loadPhoneChallenges(ctx context.Context) (phoneChallengesDoc, error) {
	var doc phoneChallengesDoc
	found, err := s.kv.Load(ctx, keyPhoneChallenges, &doc)
	if err != nil {
		return nil, err
	}
	if !found || doc == nil {
		doc = phoneChallengesDoc{}
	}
	return doc, nil
}

func (s *Service) savePhoneChallenges(ctx context.Context, doc phoneChallengesDoc) error {
	return s.kv.Save(ctx, keyPhoneChallenges, doc)
}

func (s *Service) loadRefreshTokens(ctx context.Context) (refreshTokensDoc, error) {
	var doc refreshTokensDoc
	found, err := s.kv.Load(ctx, keyRefreshTokens, &doc)
	if err != nil {
		return nil, err
	}
	if !found || doc == nil {
		doc = refreshTokensDoc{}
	}
	return doc, nil
}

func (s *Service) saveRefreshTokens(ctx context.Context, doc refreshTokensDoc) error {
	return s.kv.Save(ctx, keyRefreshTokens, doc)
}

func (s *Service) loadUsernameIndex(ctx context.Context) (usernameIndexDoc, error) {
	var doc usernameIndexDoc
	found, err := s.kv.Load(ctx, keyUsernameIndex, &doc)
	if err != nil {
		return nil, err
	}
	if !found || doc == nil {
		doc = usernameIndexDoc{}
	}
	return doc, nil
}

func (s *Service) saveUsernameIndex(ctx context.Context, doc usernameIndexDoc) error {
	return s.kv.Save(ctx, keyUsernameIndex, doc)
}

func (s *Service) loadUsernameReservations(ctx context.Context) (usernameReservationsDoc, error) {
	var doc usernameReservationsDoc
	found, err := s.kv.Load(ctx, keyUsernameReservations, &doc)
	if err != nil {
		return nil, err
	}
	if !found || doc == nil {
		doc = usernameReservationsDoc{}
	}
	return doc, nil
}

func (s *Service) saveUsernameReservations(ctx context.Context, doc usernameReservationsDoc) error {
	return s.kv.Save(ctx, keyUsernameReservations, doc)
}

func (s *Service) loadAvatarUploads(ctx context.Context) (avatarUploadsDoc, error) {
	var doc avatarUploadsDoc
	found, err := s.kv.Load(ctx, keyAvatarUploads, &doc)
	if err != nil {
		return nil, err
	}
	if !found || doc == nil {
		doc = avatarUploadsDoc{}
	}
	return doc, nil
}

func (s *Service) saveAvatarUploads(ctx context.Context, doc avatarUploadsDoc) error {
	return s.kv.Save(ctx, keyAvatarUploads, doc)
}

// issueSession signs a fresh access token and mints+records a rotated
// refresh token for userID. Grounded on the teacher's
// internal/auth/session.go SessionManager.IssueToken.
func (s *Service) issueSession(ctx context.Context, userID string) (SessionPair, error) {
	now := s.clock.Now()

	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: s.signingKey},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return SessionPair{}, fmt.Errorf("authsvc: creating signer: %w", err)
	}

	claims := jwt.Claims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		Expiry:    jwt.NewNumericDate(now.Add(AccessTokenTTL)),
		NotBefore: jwt.NewNumericDate(now),
		Issuer:    "nospoilers",
	}
	accessToken, err := jwt.Signed(signer).Claims(claims).Serialize()
	if err != nil {
		return SessionPair{}, fmt.Errorf("authsvc: signing access token: %w", err)
	}

	refreshToken := s.ids.New() + "." + s.ids.New()

	tokens, err := s.loadRefreshTokens(ctx)
	if err != nil {
		return SessionPair{}, err
	}
	tokens[refreshToken] = RefreshTokenRecord{
		RefreshToken: refreshToken,
		UserID:       userID,
		IssuedAtMs:   now.UnixMilli(),
		ExpiresAtMs:  now.Add(RefreshTokenTTL).UnixMilli(),
	}
	if err := s.saveRefreshTokens(ctx, tokens); err != nil {
		return SessionPair{}, err
	}

	if err := s.secrets.Set(ctx, refreshToken); err != nil {
		return SessionPair{}, fmt.Errorf("authsvc: storing refresh token: %w", err)
	}

	return SessionPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresInMs:  AccessTokenTTL.Milliseconds(),
	}, nil
}

// validateAccessToken verifies signature, issuer, and expiry and
// returns the subject (userID). Exposed for transport middleware.
func (s *Service) validateAccessToken(raw string) (string, error) {
	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return "", fmt.Errorf("authsvc: parsing token: %w", err)
	}
	var claims jwt.Claims
	if err := tok.Claims(s.signingKey, &claims); err != nil {
		return "", fmt.Errorf("authsvc: verifying token: %w", err)
	}
	if err := claims.Validate(jwt.Expected{Issuer: "nospoilers", Time: s.clock.Now()}); err != nil {
		return "", fmt.Errorf("authsvc: validating claims: %w", err)
	}
	return claims.Subject, nil
}

// ValidateAccessToken is the exported form used by transport middleware.
func (s *Service) ValidateAccessToken(raw string) (string, error) {
	return s.validateAccessToken(raw)
}
