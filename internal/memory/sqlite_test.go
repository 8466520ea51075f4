package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T, limit int, ttl time.Duration) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "memory.db"), limit, ttl)
	if err != nil {
		t.Fatalf("NewSQLiteStore error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAppendAndHistory(t *testing.T) {
	s := newTestStore(t, 10, time.Hour)
	ctx := context.Background()

	if err := s.Append(ctx, "sess", Entry{Role: "user", Content: "halo", Intent: "GREETING"}); err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if err := s.Append(ctx, "sess", Entry{Role: "assistant", Content: "Halo!", Intent: "GREETING"}); err != nil {
		t.Fatalf("Append error: %v", err)
	}

	entries, err := s.History(ctx, "sess")
	if err != nil {
		t.Fatalf("History error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Role != "user" || entries[0].Content != "halo" {
		t.Errorf("entries[0] = %+v, want user/halo first", entries[0])
	}
	if entries[1].Role != "assistant" {
		t.Errorf("entries[1].Role = %q, want assistant", entries[1].Role)
	}
}

func TestAppend_TrimsToCapOldestFirst(t *testing.T) {
	const limit = 10
	s := newTestStore(t, limit, time.Hour)
	ctx := context.Background()

	for i := 0; i < limit+5; i++ {
		e := Entry{Role: "user", Content: fmt.Sprintf("msg-%d", i)}
		if err := s.Append(ctx, "sess", e); err != nil {
			t.Fatalf("Append %d error: %v", i, err)
		}
	}

	entries, err := s.History(ctx, "sess")
	if err != nil {
		t.Fatalf("History error: %v", err)
	}
	if len(entries) != limit {
		t.Fatalf("len(entries) = %d, want %d", len(entries), limit)
	}
	// The most recent limit entries remain, oldest first.
	for i, e := range entries {
		want := fmt.Sprintf("msg-%d", i+5)
		if e.Content != want {
			t.Errorf("entries[%d].Content = %q, want %q", i, e.Content, want)
		}
	}
}

func TestHistory_SessionsAreIsolated(t *testing.T) {
	s := newTestStore(t, 10, time.Hour)
	ctx := context.Background()

	_ = s.Append(ctx, "a", Entry{Role: "user", Content: "from a"})
	_ = s.Append(ctx, "b", Entry{Role: "user", Content: "from b"})

	entries, err := s.History(ctx, "a")
	if err != nil {
		t.Fatalf("History error: %v", err)
	}
	if len(entries) != 1 || entries[0].Content != "from a" {
		t.Errorf("session a history = %+v, want only its own entry", entries)
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t, 10, time.Hour)
	ctx := context.Background()

	_ = s.Append(ctx, "sess", Entry{Role: "user", Content: "halo"})
	if err := s.Clear(ctx, "sess"); err != nil {
		t.Fatalf("Clear error: %v", err)
	}

	entries, err := s.History(ctx, "sess")
	if err != nil {
		t.Fatalf("History error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("len(entries) = %d after Clear, want 0", len(entries))
	}
}

func TestSweepExpired(t *testing.T) {
	// TTL of one second; backdate the entry so the sweep catches it.
	s := newTestStore(t, 10, time.Second)
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_history (session_id, role, content, intent, created_at)
		VALUES ('old', 'user', 'stale', '', datetime('now', '-1 hour'))`)
	if err != nil {
		t.Fatalf("insert stale entry: %v", err)
	}
	_ = s.Append(ctx, "fresh", Entry{Role: "user", Content: "baru"})

	n, err := s.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("SweepExpired error: %v", err)
	}
	if n != 1 {
		t.Errorf("swept = %d, want 1", n)
	}

	old, _ := s.History(ctx, "old")
	if len(old) != 0 {
		t.Errorf("expired session still has %d entries", len(old))
	}
	fresh, _ := s.History(ctx, "fresh")
	if len(fresh) != 1 {
		t.Errorf("fresh session lost entries, have %d", len(fresh))
	}
}

func TestSweepExpired_DisabledTTL(t *testing.T) {
	s := newTestStore(t, 10, 0)
	n, err := s.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("SweepExpired error: %v", err)
	}
	if n != 0 {
		t.Errorf("swept = %d with zero TTL, want 0", n)
	}
}

func TestNewSQLiteStore_RejectsNonPositiveLimit(t *testing.T) {
	_, err := NewSQLiteStore(filepath.Join(t.TempDir(), "m.db"), 0, time.Hour)
	if err == nil {
		t.Error("expected error for limit 0")
	}
}
