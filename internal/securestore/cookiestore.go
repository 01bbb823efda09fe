package securestore

import (
	"context"
	"net/http"
	"time"
)

// CookieStore is the web-platform Store: the refresh token is carried
// in an HttpOnly, Secure, SameSite=Strict cookie rather than any
// server-side state. Because the slot lives in the HTTP
// request/response pair, a CookieStore is constructed fresh per request
// by the transport layer rather than shared across requests.
type CookieStore struct {
	w          http.ResponseWriter
	r          *http.Request
	cookieName string
	maxAge     time.Duration
	available  bool
}

// NewCookieStore creates a request-scoped CookieStore. enforceSecureStorage
// must be true (the transport policy requires it); w may be nil for
// read-only use (e.g. validating an incoming refresh call before any
// response has been started).
func NewCookieStore(w http.ResponseWriter, r *http.Request, cookieName string, maxAge time.Duration, enforceSecureStorage bool) *CookieStore {
	return &CookieStore{
		w:          w,
		r:          r,
		cookieName: cookieName,
		maxAge:     maxAge,
		available:  enforceSecureStorage,
	}
}

// Set writes the refresh token as an HttpOnly/Secure/SameSite=Strict cookie.
func (c *CookieStore) Set(_ context.Context, token string) error {
	if !c.available {
		return ErrUnavailable
	}
	if c.w == nil {
		return ErrUnavailable
	}
	http.SetCookie(c.w, &http.Cookie{
		Name:     c.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

// Get reads the refresh token cookie from the incoming request.
func (c *CookieStore) Get(_ context.Context) (string, bool, error) {
	if !c.available {
		return "", false, ErrUnavailable
	}
	if c.r == nil {
		return "", false, ErrUnavailable
	}
	cookie, err := c.r.Cookie(c.cookieName)
	if err != nil {
		return "", false, nil
	}
	return cookie.Value, true, nil
}

// Clear expires the refresh token cookie immediately.
func (c *CookieStore) Clear(_ context.Context) error {
	if !c.available {
		return ErrUnavailable
	}
	if c.w == nil {
		return ErrUnavailable
	}
	http.SetCookie(c.w, &http.Cookie{
		Name:     c.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}
