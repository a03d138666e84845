package auditlog

import (
	"context"
	"time"
)

// Ledger is the append-only assessment chain. MemoryLedger and PostgresLedger
// implement it.
type Ledger interface {
	// Append records payload against imo. The JSON encoding of payload is
	// hashed into DataHash; the payload itself is not stored.
	Append(ctx context.Context, imo, action, actor string, payload any) (*Entry, error)

	// Get returns the entry at a zero-based index, or ErrEntryNotFound.
	Get(ctx context.Context, index int) (*Entry, error)

	// ForIMO returns up to limit of the most recent entries for imo,
	// newest first.
	ForIMO(ctx context.Context, imo string, limit int) ([]*Entry, error)

	// Len counts entries, genesis included.
	Len(ctx context.Context) (int, error)

	// Verify walks the chain and returns the first inconsistency found.
	Verify(ctx context.Context) error

	// Root returns the hash of the chain tip.
	Root(ctx context.Context) (string, error)
}

// now truncates to microseconds so timestamps survive a TIMESTAMPTZ round
// trip with their hash intact.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
