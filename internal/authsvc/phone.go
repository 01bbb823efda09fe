package authsvc

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/nospoilers/core/internal/audit"
	"github.com/nospoilers/core/internal/ratelimit"
)

const phoneSalt = "nospoilers/authsvc/phone/v1"

// normalizePhone strips everything but digits and a leading '+',
// requiring at least 7 digits, per spec.md §4.5.
func normalizePhone(raw string) (string, error) {
	var b strings.Builder
	digits := 0
	for i, r := range raw {
		switch {
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			digits++
		}
	}
	if digits < 7 {
		return "", ErrInvalidPhone
	}
	return b.String(), nil
}

// redactPhone masks all but the last 4 characters.
func redactPhone(phone string) string {
	if len(phone) <= 4 {
		return strings.Repeat("*", len(phone))
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}

func generateOTPCode() (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("authsvc: generating otp code: %w", err)
	}
	n := (uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])) % 1_000_000
	return fmt.Sprintf("%06d", n), nil
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code + phoneSalt))
	return hex.EncodeToString(sum[:])
}

// isDevProfile reports whether devCode should be included in the
// response. Per spec.md §9's resolved open question, this is wired
// through the transport policy's platform field being set to a
// non-empty dev marker by cmd/nospoilers in non-production profiles;
// the service itself just takes an explicit flag.
//
// StartPhoneLogin takes devMode explicitly rather than inferring it,
// so the service has no notion of "environment".
func (s *Service) StartPhoneLogin(ctx context.Context, phone string, devMode bool) (PhoneStartResult, error) {
	normalized, err := normalizePhone(phone)
	if err != nil {
		return PhoneStartResult{}, ErrInvalidPhone
	}

	rateKey := "otp_send:" + normalized
	if err := s.limiter.Allow(ctx, rateKey, ratelimit.LimitOTPSend); err != nil {
		s.recordGenericSuspicion(ctx, rateKey, "otp_send_rate_limited", audit.ActionOTPSend)
		s.audit.Record(audit.ActionOTPSend, audit.StatusFailure, "", normalized, map[string]any{"reason": "rate_limited"})
		return PhoneStartResult{}, ErrRateLimited
	}

	code, err := generateOTPCode()
	if err != nil {
		return PhoneStartResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	challenges, err := s.loadPhoneChallenges(ctx)
	if err != nil {
		return PhoneStartResult{}, err
	}

	now := s.clock.Now()
	challengeID := s.ids.New()
	challenges[challengeID] = PhoneChallenge{
		ChallengeID: challengeID,
		Phone:       normalized,
		CodeHash:    hashCode(code),
		ExpiresAtMs: now.Add(SMSCodeTTL).UnixMilli(),
	}
	if err := s.savePhoneChallenges(ctx, challenges); err != nil {
		return PhoneStartResult{}, err
	}

	s.audit.Record(audit.ActionOTPSend, audit.StatusSuccess, "", normalized, map[string]any{"challengeId": challengeID})

	result := PhoneStartResult{
		ChallengeID:   challengeID,
		ExpiresAt:     now.Add(SMSCodeTTL),
		RedactedPhone: redactPhone(normalized),
	}
	if devMode {
		result.DevCode = code
	}
	return result, nil
}

// VerifyPhoneCode implements verifyPhoneCode from spec.md §4.5.
func (s *Service) VerifyPhoneCode(ctx context.Context, challengeID, code string) (ProviderLoginResult, error) {
	rateKey := "otp_verify:" + challengeID
	if err := s.limiter.Allow(ctx, rateKey, ratelimit.LimitOTPVerify); err != nil {
		s.recordGenericSuspicion(ctx, rateKey, "otp_verify_rate_limited", audit.ActionOTPVerify)
		s.audit.Record(audit.ActionOTPVerify, audit.StatusFailure, "", challengeID, map[string]any{"reason": "rate_limited"})
		return ProviderLoginResult{}, ErrRateLimited
	}

	s.mu.Lock()

	challenges, err := s.loadPhoneChallenges(ctx)
	if err != nil {
		s.mu.Unlock()
		return ProviderLoginResult{}, err
	}

	challenge, ok := challenges[challengeID]
	if !ok {
		s.mu.Unlock()
		s.recordGenericSuspicion(ctx, rateKey, "unknown_challenge", audit.ActionOTPVerify)
		s.audit.Record(audit.ActionOTPVerify, audit.StatusFailure, "", challengeID, map[string]any{"reason": "invalid_challenge"})
		return ProviderLoginResult{}, ErrInvalidChallenge
	}

	now := s.clock.Now()
	if now.UnixMilli() > challenge.ExpiresAtMs {
		delete(challenges, challengeID)
		_ = s.savePhoneChallenges(ctx, challenges)
		s.mu.Unlock()
		s.audit.Record(audit.ActionOTPVerify, audit.StatusFailure, "", challengeID, map[string]any{"reason": "expired"})
		return ProviderLoginResult{}, ErrExpired
	}

	if subtle.ConstantTimeCompare([]byte(hashCode(code)), []byte(challenge.CodeHash)) != 1 {
		s.mu.Unlock()
		score, _ := s.suspicion.Record(ctx, rateKey, "otp_code_mismatch")
		s.audit.Record(audit.ActionOTPVerify, audit.StatusFailure, "", challengeID, map[string]any{"reason": "code_mismatch"})
		if score >= ratelimit.SuspicionThreshold {
			s.audit.RecordSuspicious(audit.ActionOTPVerify, audit.StatusFailure, "", challengeID, map[string]any{"reason": "code_mismatch", "score": score})
		}
		return ProviderLoginResult{}, ErrCodeMismatch
	}

	delete(challenges, challengeID)
	if err := s.savePhoneChallenges(ctx, challenges); err != nil {
		s.mu.Unlock()
		return ProviderLoginResult{}, err
	}
	s.mu.Unlock()

	user, linked, err := s.upsertProviderIdentity(ctx, ProviderPhone, challenge.Phone, true, upsertHint{Phone: challenge.Phone})
	if err != nil {
		return ProviderLoginResult{}, err
	}

	session, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return ProviderLoginResult{}, err
	}

	s.audit.Record(audit.ActionOTPVerify, audit.StatusSuccess, user.ID, challenge.Phone, nil)

	return ProviderLoginResult{User: toAuthUser(user), Session: session, Linked: linked}, nil
}
