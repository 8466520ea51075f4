// Package memory keeps bounded, TTL'd per-session conversation history.
// The store is best-effort: callers treat a read error as an empty
// history and a write error as a skipped append, never as a failed turn.
package memory

import "context"

// Entry is one prior turn in a session, oldest first when listed.
type Entry struct {
	Role      string // "user" or "assistant"
	Content   string
	Intent    string
	CreatedAt string
}

type Store interface {
	// History returns up to the retention cap of entries for the
	// session, oldest first.
	History(ctx context.Context, sessionID string) ([]Entry, error)
	// Append adds an entry and trims the session to the most recent
	// cap entries (FIFO eviction).
	Append(ctx context.Context, sessionID string, e Entry) error
	// Clear removes the whole session history.
	Clear(ctx context.Context, sessionID string) error
	// SweepExpired deletes sessions untouched for longer than the TTL
	// and reports how many entries were removed.
	SweepExpired(ctx context.Context) (int, error)
}
