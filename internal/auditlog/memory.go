package auditlog

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryLedger is an in-process Ledger. The chain is lost on restart.
type MemoryLedger struct {
	mu      sync.RWMutex
	entries []*Entry
}

// New returns a MemoryLedger holding only the genesis entry.
func New() *MemoryLedger {
	return &MemoryLedger{entries: []*Entry{genesisEntry(now())}}
}

// Append implements Ledger.
func (l *MemoryLedger) Append(_ context.Context, imo, action, actor string, payload any) (*Entry, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tip := l.entries[len(l.entries)-1]
	e := &Entry{
		Index:     tip.Index + 1,
		Timestamp: now(),
		IMO:       imo,
		Action:    action,
		Actor:     actor,
		DataHash:  sha256Sum(data),
		PrevHash:  tip.Hash,
	}
	e.Hash = hashEntry(e)
	l.entries = append(l.entries, e)

	out := *e
	return &out, nil
}

// Get implements Ledger.
func (l *MemoryLedger) Get(_ context.Context, index int) (*Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index < 0 || index >= len(l.entries) {
		return nil, fmt.Errorf("%w: index %d", ErrEntryNotFound, index)
	}
	out := *l.entries[index]
	return &out, nil
}

// ForIMO implements Ledger.
func (l *MemoryLedger) ForIMO(_ context.Context, imo string, limit int) ([]*Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []*Entry
	for i := len(l.entries) - 1; i > 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		if e := l.entries[i]; e.IMO == imo {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Len implements Ledger.
func (l *MemoryLedger) Len(_ context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries), nil
}

// Verify implements Ledger.
func (l *MemoryLedger) Verify(_ context.Context) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var prev *Entry
	for _, curr := range l.entries {
		if err := verifyLink(prev, curr); err != nil {
			return err
		}
		prev = curr
	}
	return nil
}

// Root implements Ledger.
func (l *MemoryLedger) Root(_ context.Context) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.entries[len(l.entries)-1].Hash, nil
}
