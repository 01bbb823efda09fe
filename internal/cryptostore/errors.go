package cryptostore

import "errors"

// Error kinds, stable across the API per the data model's error policy.
var (
	// ErrCryptoUnavailable is returned when the host lacks a working
	// authenticated-encryption primitive.
	ErrCryptoUnavailable = errors.New("cryptostore: authenticated encryption unavailable")
	// ErrTampered is returned when GCM authentication fails on read,
	// meaning the stored ciphertext was modified or corrupted.
	ErrTampered = errors.New("cryptostore: ciphertext failed authentication")
)
