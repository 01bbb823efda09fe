package audit

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nospoilers/core/internal/clock"
	"github.com/nospoilers/core/internal/idgen"
)

func newTestLog(c clock.Clock) *Log {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(logger, c, &idgen.Sequential{Prefix: "audit"})
}

// waitForDrain blocks until the background goroutine has consumed
// everything queued so far, by pushing a final entry and polling the
// snapshot for it — avoiding a real sleep.
func waitForDrain(t *testing.T, l *Log, markerAction string) {
	t.Helper()
	l.Record(markerAction, StatusSuccess, "", "", nil)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, e := range l.Snapshot() {
			if e.Action == markerAction {
				return
			}
		}
	}
	t.Fatalf("timed out waiting for audit drain")
}

func TestLog_RecordAndSnapshot(t *testing.T) {
	c := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	l := newTestLog(c)
	l.Start()
	defer l.Close()

	l.Record(ActionOTPSend, StatusSuccess, "", "+15551234567", map[string]any{"challengeId": "c1"})
	l.Record(ActionOTPVerify, StatusFailure, "", "c1", map[string]any{"reason": "mismatch"})
	waitForDrain(t, l, "__marker__")

	entries := l.Snapshot()
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Action != ActionOTPSend || entries[0].Status != StatusSuccess {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Action != ActionOTPVerify || entries[1].Status != StatusFailure {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
}

func TestLog_RingDropsOldestPastCapacity(t *testing.T) {
	c := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	l := newTestLog(c)
	l.Start()
	defer l.Close()

	for i := 0; i < Capacity+10; i++ {
		l.Record(ActionSessionRefresh, StatusSuccess, "user-1", "", nil)
	}
	waitForDrain(t, l, "__marker__")

	entries := l.Snapshot()
	if len(entries) != Capacity {
		t.Fatalf("got %d entries, want ring capped at %d", len(entries), Capacity)
	}
}

func TestLog_ForUserFiltersByUserID(t *testing.T) {
	c := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	l := newTestLog(c)
	l.Start()
	defer l.Close()

	l.Record(ActionEmailLogin, StatusSuccess, "user-1", "a@example.com", nil)
	l.Record(ActionEmailLogin, StatusSuccess, "user-2", "b@example.com", nil)
	l.Record(ActionLogout, StatusSuccess, "user-1", "", nil)
	waitForDrain(t, l, "__marker__")

	got := l.ForUser("user-1")
	if len(got) != 2 {
		t.Fatalf("got %d entries for user-1, want 2", len(got))
	}
}

func TestLog_RecordSuspiciousTagsEntry(t *testing.T) {
	c := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	l := newTestLog(c)
	l.Start()
	defer l.Close()

	l.RecordSuspicious(ActionOTPVerify, StatusFailure, "", "c1", map[string]any{"score": 3})
	waitForDrain(t, l, "__marker__")

	entries := l.Snapshot()
	if len(entries) < 1 || !entries[0].Suspicious {
		t.Fatalf("expected first entry to be tagged suspicious, got %+v", entries)
	}
}
