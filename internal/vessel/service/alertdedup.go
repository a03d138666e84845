package service

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jmerrifield20/seasense/internal/vessel/model"
	"github.com/jmerrifield20/seasense/pkg/imo"
)

// alertSuppressor remembers which (vessel, level) pairs have already been
// alerted so that polling the same arrivals does not re-alert them. An entry
// expires after ttl; a level change is a new key.
type alertSuppressor struct {
	mu        sync.Mutex
	ttl       time.Duration
	sent      map[string]time.Time // key -> expiry
	lastSweep time.Time
}

func newAlertSuppressor(ttl time.Duration) *alertSuppressor {
	return &alertSuppressor{ttl: ttl, sent: make(map[string]time.Time)}
}

// claim reports whether key may alert now and, if so, marks it sent.
func (s *alertSuppressor) claim(key string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) >= s.ttl {
		for k, exp := range s.sent {
			if !now.Before(exp) {
				delete(s.sent, k)
			}
		}
		s.lastSweep = now
	}

	if exp, ok := s.sent[key]; ok && now.Before(exp) {
		return false
	}
	s.sent[key] = now.Add(s.ttl)
	return true
}

// release forgets key so the next assessment alerts again.
func (s *alertSuppressor) release(key string) {
	s.mu.Lock()
	delete(s.sent, key)
	s.mu.Unlock()
}

func (s *alertSuppressor) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

// alertKey identifies a vessel at a threat level by the identifier and name
// it reported. Feed rows are re-fetched under new IDs, so the row ID is not
// part of the key.
func alertKey(arr *model.Arrival, level int) string {
	lvl := strconv.Itoa(level)
	if arr == nil {
		return "|" + lvl
	}
	name := strings.Join(strings.Fields(strings.ToUpper(arr.VesselName)), " ")
	return imo.Normalize(arr.IMO) + "|" + name + "|" + lvl
}
