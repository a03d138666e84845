// Package auditlog keeps a hash-chained, append-only record of threat
// assessments. Each entry commits to the digest of the assessment it records
// and to the hash of its predecessor, so any later edit breaks the chain.
package auditlog

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// GenesisHash is the fixed hash of entry 0. Every chain starts from it.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Actions recorded in the log.
const (
	ActionGenesis = "genesis"
	ActionAssess  = "assess"
)

// SystemActor is the actor recorded for entries the service writes itself.
const SystemActor = "seasense"

// ErrEntryNotFound is returned by Get for an index outside the chain.
var ErrEntryNotFound = errors.New("ledger entry not found")

// Entry is one link of the assessment chain.
type Entry struct {
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	IMO       string    `json:"imo"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	DataHash  string    `json:"dataHash"`
	PrevHash  string    `json:"prevHash"`
	Hash      string    `json:"hash"`
}

func genesisEntry(ts time.Time) *Entry {
	return &Entry{
		Index:     0,
		Timestamp: ts,
		Action:    ActionGenesis,
		Actor:     SystemActor,
		DataHash:  GenesisHash,
		PrevHash:  GenesisHash,
		Hash:      GenesisHash,
	}
}

// hashEntry is never applied to the genesis entry.
func hashEntry(e *Entry) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%s|%s|%s|%s|%s|%s",
		e.Index, e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.IMO, e.Action, e.Actor, e.DataHash, e.PrevHash,
	)
	return hex.EncodeToString(h.Sum(nil))
}

func sha256Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// verifyLink checks curr against its predecessor. prev is nil for entry 0.
func verifyLink(prev, curr *Entry) error {
	if prev == nil {
		if curr.Hash != GenesisHash {
			return fmt.Errorf("genesis entry has wrong hash: got %q", curr.Hash)
		}
		return nil
	}
	if curr.Index != prev.Index+1 {
		return fmt.Errorf("index gap between %d and %d", prev.Index, curr.Index)
	}
	if curr.PrevHash != prev.Hash {
		return fmt.Errorf("hash chain broken at index %d", curr.Index)
	}
	if curr.Hash != hashEntry(curr) {
		return fmt.Errorf("entry %d has invalid hash", curr.Index)
	}
	return nil
}
