// Package audit implements the bounded ring of structured security
// events described in spec.md §4.4: OTP sends/verifies, OAuth and
// email logins, session refreshes, and logouts. It is grounded on the
// teacher's internal/audit/audit.go Writer — async, buffered-channel,
// non-blocking on the caller — adapted from a pgx-backed flush loop to
// an in-memory bounded ring, since this spec has no relational schema.
package audit

import (
	"log/slog"
	"sync"
	"time"

	"github.com/nospoilers/core/internal/clock"
)

// Capacity is the maximum number of entries retained; the oldest entry
// is dropped once a new one arrives past this bound (spec.md §4.4).
const Capacity = 1000

// Action names used across the auth service, per spec.md §4.4.
const (
	ActionOTPSend        = "otp_send"
	ActionOTPVerify      = "otp_verify"
	ActionEmailLogin     = "email_login"
	ActionOAuthLogin     = "oauth_login"
	ActionSessionRefresh = "session_refresh"
	ActionLogout         = "logout"
)

// Status values recorded on an Entry.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Entry is a single structured audit event.
type Entry struct {
	ID         string
	Action     string
	Status     string
	UserID     string // empty when no authenticated subject yet
	ActorRef   string // e.g. a phone/email/provider subject, for pre-auth events
	Metadata   map[string]any
	Suspicious bool
	Timestamp  time.Time
}

const bufferSize = 256

// Log is an async, buffered ring-backed audit log writer. Entries are
// sent to an internal channel and drained by a background goroutine;
// Log never blocks the caller.
type Log struct {
	logger  *slog.Logger
	clock   clock.Clock
	idgen   idSource
	entries chan Entry

	mu     sync.RWMutex
	ring   []Entry
	cursor int // next write position
	filled bool

	wg   sync.WaitGroup
	done chan struct{}
}

// idSource matches internal/idgen.Source without importing it, so
// audit stays leaf-level per SPEC_FULL.md's dependency ordering.
type idSource interface {
	New() string
}

// New creates a Log. Call Start to begin draining entries.
func New(logger *slog.Logger, c clock.Clock, ids idSource) *Log {
	return &Log{
		logger:  logger,
		clock:   c,
		idgen:   ids,
		entries: make(chan Entry, bufferSize),
		ring:    make([]Entry, Capacity),
		done:    make(chan struct{}),
	}
}

// Start begins the background goroutine that drains entries into the ring.
func (l *Log) Start() {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.run()
	}()
}

// Close stops accepting new entries and waits for the drain loop to exit.
func (l *Log) Close() {
	close(l.entries)
	l.wg.Wait()
}

// Record enqueues a new entry for async writing. It never blocks; if
// the buffer is full, the entry is dropped and a warning is logged —
// the ring itself separately bounds retained history.
func (l *Log) Record(action, status, userID, actorRef string, metadata map[string]any) {
	entry := Entry{
		ID:        l.idgen.New(),
		Action:    action,
		Status:    status,
		UserID:    userID,
		ActorRef:  actorRef,
		Metadata:  metadata,
		Timestamp: l.clock.Now(),
	}
	select {
	case l.entries <- entry:
	default:
		l.logger.Warn("audit log buffer full, dropping entry", "action", action, "status", status)
	}
}

// RecordSuspicious is a convenience wrapper that tags the entry with
// suspicious=true, per spec.md §4.3's score≥3 rule.
func (l *Log) RecordSuspicious(action, status, userID, actorRef string, metadata map[string]any) {
	entry := Entry{
		ID:         l.idgen.New(),
		Action:     action,
		Status:     status,
		UserID:     userID,
		ActorRef:   actorRef,
		Metadata:   metadata,
		Suspicious: true,
		Timestamp:  l.clock.Now(),
	}
	select {
	case l.entries <- entry:
	default:
		l.logger.Warn("audit log buffer full, dropping entry", "action", action, "status", status)
	}
	if status == StatusFailure {
		l.logger.Warn("suspicious activity", "action", action, "actorRef", actorRef)
	}
}

// run drains entries into the bounded ring, overwriting the oldest
// slot once Capacity is reached.
func (l *Log) run() {
	for entry := range l.entries {
		l.append(entry)
		if entry.Status == StatusFailure {
			l.logger.Warn("audit event", "action", entry.Action, "status", entry.Status, "userId", entry.UserID)
		} else {
			l.logger.Info("audit event", "action", entry.Action, "status", entry.Status, "userId", entry.UserID)
		}
	}
	close(l.done)
}

func (l *Log) append(entry Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ring[l.cursor] = entry
	l.cursor = (l.cursor + 1) % Capacity
	if l.cursor == 0 {
		l.filled = true
	}
}

// Snapshot returns all retained entries in insertion order (oldest
// first). Readers observe a consistent copy, never a torn entry,
// per spec.md §5's concurrent-diagnostic-read requirement.
func (l *Log) Snapshot() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.filled {
		out := make([]Entry, l.cursor)
		copy(out, l.ring[:l.cursor])
		return out
	}

	out := make([]Entry, Capacity)
	copy(out, l.ring[l.cursor:])
	copy(out[Capacity-l.cursor:], l.ring[:l.cursor])
	return out
}

// ForUser filters a snapshot down to entries for a given user, in
// insertion order, for diagnostic and test use.
func (l *Log) ForUser(userID string) []Entry {
	all := l.Snapshot()
	out := make([]Entry, 0, len(all))
	for _, e := range all {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}
