// Package cryptostore wraps an untrusted key/value backend so that
// values at rest are ciphertext: a 256-bit AES key is derived from a
// process secret via PBKDF2-HMAC-SHA256, and every write is sealed with
// AES-GCM under a fresh random nonce.
package cryptostore

import "context"

// Backend is the untrusted key/value store the encrypted Store sits on
// top of. Implementations need not understand the value format — they
// only move opaque bytes.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
