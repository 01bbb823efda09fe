package cryptostore

import (
	"context"
	"testing"
)

func TestStore_RoundTrip(t *testing.T) {
	s, err := New(NewMemoryBackend(), "a-sufficiently-long-process-secret")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	type payload struct {
		Name  string
		Count int
	}

	cases := []payload{
		{Name: "", Count: 0},
		{Name: "hello, 世界", Count: 42},
		{Name: "emoji 🎉 and symbols !@#$%^&*()", Count: -7},
	}

	for i, want := range cases {
		key := "test:key"
		if err := s.Save(ctx, key, want); err != nil {
			t.Fatalf("case %d: Save: %v", i, err)
		}

		var got payload
		found, err := s.Load(ctx, key, &got)
		if err != nil {
			t.Fatalf("case %d: Load: %v", i, err)
		}
		if !found {
			t.Fatalf("case %d: expected found", i)
		}
		if got != want {
			t.Fatalf("case %d: got %+v, want %+v", i, got, want)
		}
	}
}

func TestStore_LoadMissingKey(t *testing.T) {
	s, err := New(NewMemoryBackend(), "a-sufficiently-long-process-secret")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var dst string
	found, err := s.Load(context.Background(), "does-not-exist", &dst)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if found {
		t.Fatalf("expected not found")
	}
}

func TestStore_TamperedCiphertextFailsAuthentication(t *testing.T) {
	backend := NewMemoryBackend()
	s, err := New(backend, "a-sufficiently-long-process-secret")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if err := s.Save(ctx, "k", "sensitive value"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	raw, ok, err := backend.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get: %v, ok=%v", err, ok)
	}
	// Flip a byte in the stored envelope to simulate tampering.
	raw[len(raw)-5] ^= 0xFF
	if err := backend.Put(ctx, "k", raw); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var dst string
	_, err = s.Load(ctx, "k", &dst)
	if err != ErrTampered {
		t.Fatalf("got error %v, want ErrTampered", err)
	}
}

func TestStore_WrongSecretFailsAuthentication(t *testing.T) {
	backend := NewMemoryBackend()
	ctx := context.Background()

	s1, err := New(backend, "secret-one-is-long-enough")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s1.Save(ctx, "k", "value"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	s2, err := New(backend, "secret-two-is-long-enough")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var dst string
	if _, err := s2.Load(ctx, "k", &dst); err != ErrTampered {
		t.Fatalf("got error %v, want ErrTampered", err)
	}
}
