package cryptostore

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// domainSalt fixes the PBKDF2 salt so key derivation is deterministic
// for a given process secret — the salt provides domain separation
// between this store and any other use of the same secret, not
// per-value randomness (that's the GCM nonce's job).
const domainSalt = "nospoilers/cryptostore/v1"

const (
	pbkdf2Iterations = 150_000
	aesKeyLen        = 32 // 256-bit AES key
	gcmNonceLen      = 12 // 96-bit nonce
)

// envelope is the on-the-wire shape stored in the backend: an IV and the
// GCM-sealed ciphertext (which includes the auth tag), both base64'd by
// encoding/json's []byte handling.
type envelope struct {
	IV         []byte `json:"iv"`
	CipherText []byte `json:"cipherText"`
}

// Store is an authenticated-encryption wrapper over a Backend. Every
// Save/Load round-trips a Go value through JSON, then AES-GCM.
type Store struct {
	backend Backend
	key     []byte
}

// New derives a 256-bit key from secret via PBKDF2-HMAC-SHA256 and
// returns a Store backed by backend. secret should be a long-lived
// process secret (e.g. from configuration), not a user-supplied value.
func New(backend Backend, secret string) (*Store, error) {
	key := pbkdf2.Key([]byte(secret), []byte(domainSalt), pbkdf2Iterations, aesKeyLen, sha256.New)

	// Exercise the primitive once at construction so a host without a
	// working AES-GCM implementation fails fast rather than on first use.
	if _, err := newGCM(key); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCryptoUnavailable, err)
	}

	return &Store{backend: backend, key: key}, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Save JSON-marshals value, encrypts it, and stores it under key.
func (s *Store) Save(ctx context.Context, key string, value any) error {
	plain, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cryptostore: marshaling value for %q: %w", key, err)
	}

	gcm, err := newGCM(s.key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCryptoUnavailable, err)
	}

	nonce := make([]byte, gcmNonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("cryptostore: generating nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, plain, nil)

	raw, err := json.Marshal(envelope{IV: nonce, CipherText: sealed})
	if err != nil {
		return fmt.Errorf("cryptostore: marshaling envelope for %q: %w", key, err)
	}

	return s.backend.Put(ctx, key, raw)
}

// Load decrypts and JSON-unmarshals the value stored under key into
// dst (a pointer). found is false if key does not exist in the backend.
func (s *Store) Load(ctx context.Context, key string, dst any) (found bool, err error) {
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("cryptostore: loading %q: %w", key, err)
	}
	if !ok {
		return false, nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return false, fmt.Errorf("cryptostore: decoding envelope for %q: %w", key, err)
	}

	gcm, err := newGCM(s.key)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrCryptoUnavailable, err)
	}

	plain, err := gcm.Open(nil, env.IV, env.CipherText, nil)
	if err != nil {
		return false, ErrTampered
	}

	if err := json.Unmarshal(plain, dst); err != nil {
		return false, fmt.Errorf("cryptostore: unmarshaling value for %q: %w", key, err)
	}
	return true, nil
}

// Delete removes the value stored under key, if present.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}
