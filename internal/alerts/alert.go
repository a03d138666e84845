// Package alerts publishes high-threat assessments to downstream consumers.
package alerts

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Alert is the message published for an assessment at or above the alert
// level. It is encoded as JSON; ID is also used as the message key.
type Alert struct {
	ID           uuid.UUID `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	IMO          string    `json:"imo"`
	VesselName   string    `json:"vesselName"`
	Callsign     string    `json:"callsign,omitempty"`
	Resolution   string    `json:"resolution"`
	Score        int       `json:"score"`
	Level        int       `json:"level"`
	TrippedRules []string  `json:"trippedRules"`
}

// Publisher delivers alerts. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, a Alert) error
	Close() error
}

// NewAlert stamps a fresh ID and timestamp onto a.
func NewAlert(a Alert) Alert {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	if a.TrippedRules == nil {
		a.TrippedRules = []string{}
	}
	return a
}

func encode(a Alert) ([]byte, error) {
	return json.Marshal(a)
}

// LogPublisher writes alerts to the log. It is used when no brokers are
// configured.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher returns a LogPublisher.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish implements Publisher.
func (p *LogPublisher) Publish(_ context.Context, a Alert) error {
	p.logger.Warn("threat alert",
		zap.String("alert_id", a.ID.String()),
		zap.String("imo", a.IMO),
		zap.String("vessel", a.VesselName),
		zap.String("resolution", a.Resolution),
		zap.Int("score", a.Score),
		zap.Int("level", a.Level),
		zap.Strings("tripped", a.TrippedRules),
	)
	return nil
}

// Close implements Publisher.
func (p *LogPublisher) Close() error { return nil }
