// Package idgen provides an injectable identifier source, wrapping
// github.com/google/uuid the way the teacher stack does throughout its
// domain packages.
package idgen

import "github.com/google/uuid"

// Source generates opaque string identifiers.
type Source interface {
	New() string
}

// UUID is the production Source, backed by google/uuid v4.
type UUID struct{}

// New returns a fresh random UUID string.
func (UUID) New() string {
	return uuid.NewString()
}

// Sequential is a deterministic Source for tests: it returns
// "<prefix>-1", "<prefix>-2", ... in call order.
type Sequential struct {
	Prefix string
	n      int
}

// New returns the next sequential id.
func (s *Sequential) New() string {
	s.n++
	if s.Prefix == "" {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte{byte(s.n)}).String()
	}
	return s.Prefix + "-" + itoa(s.n)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
