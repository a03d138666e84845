// Package reconcile ties port-authority arrival records to vessel registry
// records.
//
// The two datasets are sourced independently and disagree: arrivals declare
// no IMO number, a placeholder "0", or one that belongs to a different hull.
// Resolve looks the declared number up and accepts the registry record only
// when its current or former name resembles the declared vessel name.
package reconcile

import (
	"context"
	"fmt"

	"github.com/jmerrifield20/seasense/internal/similarity"
	"github.com/jmerrifield20/seasense/internal/vessel/model"
	"github.com/jmerrifield20/seasense/pkg/imo"
)

// NameMatchThreshold is the minimum name similarity for a registry record to
// be accepted as the declared vessel.
const NameMatchThreshold = 0.5

// Status classifies a reconciliation.
type Status string

const (
	StatusResolved            Status = "resolved"
	StatusMissingIdentifier   Status = "missing-identifier"
	StatusConflictingIdentity Status = "conflicting-identity"
)

// Outcome is the result of reconciling one arrival. Record is nil for
// StatusMissingIdentifier. For StatusConflictingIdentity it is the record the
// declared IMO points at, which must not be scored as the arriving vessel.
type Outcome struct {
	Status Status        `json:"status"`
	Record *model.Vessel `json:"registryRecord"`
}

// Lookup fetches a registry record by exact IMO. A nil record with a nil
// error means the IMO is not in the registry; a non-nil error is a storage
// failure.
type Lookup interface {
	LookupVessel(ctx context.Context, imo string) (*model.Vessel, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, imo string) (*model.Vessel, error)

// LookupVessel implements Lookup.
func (f LookupFunc) LookupVessel(ctx context.Context, imo string) (*model.Vessel, error) {
	return f(ctx, imo)
}

// Config holds resolver settings.
type Config struct {
	NameThreshold float64 // 0 means NameMatchThreshold
}

// Resolver reconciles arrivals against the registry.
type Resolver struct {
	threshold float64
}

// New returns a Resolver.
func New(cfg Config) *Resolver {
	t := cfg.NameThreshold
	if t <= 0 {
		t = NameMatchThreshold
	}
	return &Resolver{threshold: t}
}

// Threshold returns the name similarity threshold in use.
func (r *Resolver) Threshold() float64 {
	return r.threshold
}

var defaultResolver = New(Config{})

// Resolve reconciles arrival using the default threshold.
func Resolve(ctx context.Context, arrival *model.Arrival, lookup Lookup) (Outcome, error) {
	return defaultResolver.Resolve(ctx, arrival, lookup)
}

// Resolve reconciles arrival against the registry reachable through lookup.
//
// A missing or placeholder IMO short-circuits to StatusMissingIdentifier
// without calling lookup. Lookup errors are returned wrapped, never folded
// into a status.
func (r *Resolver) Resolve(ctx context.Context, arrival *model.Arrival, lookup Lookup) (Outcome, error) {
	if arrival == nil || imo.IsPlaceholder(arrival.IMO) {
		return Outcome{Status: StatusMissingIdentifier}, nil
	}

	id := imo.Normalize(arrival.IMO)
	record, err := lookup.LookupVessel(ctx, id)
	if err != nil {
		return Outcome{}, fmt.Errorf("lookup vessel %s: %w", id, err)
	}
	if record == nil {
		return Outcome{Status: StatusMissingIdentifier}, nil
	}

	if !r.NamesMatch(record, arrival.VesselName) {
		return Outcome{Status: StatusConflictingIdentity, Record: record}, nil
	}
	return Outcome{Status: StatusResolved, Record: record}, nil
}

// NamesMatch reports whether name resembles the record's current or former name.
func (r *Resolver) NamesMatch(record *model.Vessel, name string) bool {
	return similarity.Score(record.ShipName, name) >= r.threshold ||
		similarity.Score(record.ExName, name) >= r.threshold
}
