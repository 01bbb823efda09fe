// Package securestore models the single-slot secure storage the auth
// service keeps the current user's refresh token in — an OS
// keystore/keychain on mobile, an HttpOnly cookie on web. Only one
// token is held at a time, and implementations must refuse to operate
// when the platform's secure storage is unavailable.
package securestore

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by implementations constructed against a
// disabled or unsupported secure-storage backend.
var ErrUnavailable = errors.New("securestore: secure storage unavailable on this platform")

// Store is the single-slot refresh token holder.
type Store interface {
	Set(ctx context.Context, token string) error
	Get(ctx context.Context) (token string, found bool, err error)
	Clear(ctx context.Context) error
}
