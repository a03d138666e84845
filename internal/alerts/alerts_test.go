package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeProducer struct {
	mu      sync.Mutex
	records []*kgo.Record
	err     error
	closed  bool
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out kgo.ProduceResults
	for _, r := range rs {
		if f.err == nil {
			f.records = append(f.records, r)
		}
		out = append(out, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return out
}

func (f *fakeProducer) Ping(context.Context) error { return f.err }
func (f *fakeProducer) Close()                     { f.closed = true }

func TestNewAlert_fillsDefaults(t *testing.T) {
	a := NewAlert(Alert{IMO: "9123456"})
	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.False(t, a.Timestamp.IsZero())
	assert.NotNil(t, a.TrippedRules)

	fixed := uuid.New()
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	b := NewAlert(Alert{ID: fixed, Timestamp: ts})
	assert.Equal(t, fixed, b.ID)
	assert.Equal(t, ts, b.Timestamp)
}

func TestKafkaPublisher_Publish(t *testing.T) {
	fp := &fakeProducer{}
	p := newKafkaPublisher(fp, "seasense.alerts", zap.NewNop())

	a := NewAlert(Alert{IMO: "9123456", VesselName: "OCEAN PRIDE", Resolution: "resolved", Score: 60, Level: 2, TrippedRules: []string{"Sanction List"}})
	require.NoError(t, p.Publish(context.Background(), a))

	require.Len(t, fp.records, 1)
	rec := fp.records[0]
	assert.Equal(t, "seasense.alerts", rec.Topic)
	assert.Equal(t, a.ID.String(), string(rec.Key))

	var got Alert
	require.NoError(t, json.Unmarshal(rec.Value, &got))
	assert.Equal(t, "9123456", got.IMO)
	assert.Equal(t, 2, got.Level)
	assert.Equal(t, []string{"Sanction List"}, got.TrippedRules)

	headers := map[string]string{}
	for _, h := range rec.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "2", headers["level"])
	assert.Equal(t, "9123456", headers["imo"])
}

func TestKafkaPublisher_produceError(t *testing.T) {
	fp := &fakeProducer{err: errors.New("broker down")}
	p := newKafkaPublisher(fp, "t", zap.NewNop())

	err := p.Publish(context.Background(), NewAlert(Alert{IMO: "1"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Error(t, p.Ping(context.Background()))

	require.NoError(t, p.Close())
	assert.True(t, fp.closed)
}

func TestNewKafkaPublisher_requiresConfig(t *testing.T) {
	_, err := NewKafkaPublisher(nil, "t", zap.NewNop())
	assert.Error(t, err)
	_, err = NewKafkaPublisher([]string{"localhost:9092"}, "", zap.NewNop())
	assert.Error(t, err)
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	p := NewLogPublisher(zap.New(core))

	require.NoError(t, p.Publish(context.Background(), NewAlert(Alert{IMO: "9123456", Level: 4})))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "threat alert", entry.Message)
	assert.Equal(t, "9123456", entry.ContextMap()["imo"])
	assert.NoError(t, p.Close())
}
