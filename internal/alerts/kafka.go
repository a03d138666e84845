package alerts

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// producer is the subset of *kgo.Client used here.
type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Ping(ctx context.Context) error
	Close()
}

// KafkaPublisher produces alerts to a single topic.
type KafkaPublisher struct {
	client producer
	topic  string
	logger *zap.Logger
}

// NewKafkaPublisher connects to brokers and produces to topic.
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}
	if topic == "" {
		return nil, errors.New("alert topic is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return newKafkaPublisher(client, topic, logger), nil
}

func newKafkaPublisher(client producer, topic string, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{client: client, topic: topic, logger: logger}
}

// Publish implements Publisher. It blocks until the broker acknowledges the
// record or ctx ends.
func (p *KafkaPublisher) Publish(ctx context.Context, a Alert) error {
	value, err := encode(a)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	rec := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(a.ID.String()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "imo", Value: []byte(a.IMO)},
			{Key: "level", Value: []byte(fmt.Sprint(a.Level))},
		},
	}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce alert %s: %w", a.ID, err)
	}
	p.logger.Debug("alert published", zap.String("alert_id", a.ID.String()), zap.String("imo", a.IMO))
	return nil
}

// Ping checks broker connectivity.
func (p *KafkaPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Close implements Publisher.
func (p *KafkaPublisher) Close() error {
	p.client.Close()
	return nil
}
