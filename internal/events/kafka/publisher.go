package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"vouch/internal/events"
	"vouch/internal/platform/config"
	"vouch/pkg/requestcontext"
)

type producer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
	Flush(ctx context.Context) error
	Close()
}

// Publisher produces events to a single Kafka topic, keyed by user ID so a
// user's events stay ordered within a partition. Delivery failures are
// logged from the produce callback.
type Publisher struct {
	client producer
	topic  string
	logger *zap.Logger
}

// New connects a franz-go client from cfg.
func New(cfg config.KafkaConfig, log *zap.Logger) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return newWithProducer(client, cfg.Topic, log), nil
}

func newWithProducer(p producer, topic string, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{client: p, topic: topic, logger: log}
}

func (p *Publisher) Publish(ctx context.Context, e events.Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		p.logger.Error("failed to encode event", zap.String("type", e.Type), zap.Error(err))
		return
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(e.UserID.String()),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	}
	if reqID := requestcontext.RequestID(ctx); reqID != "" {
		record.Headers = append(record.Headers, kgo.RecordHeader{Key: "request_id", Value: []byte(reqID)})
	}

	p.client.Produce(context.WithoutCancel(ctx), record, func(r *kgo.Record, err error) {
		if err != nil {
			p.logger.Warn("event delivery failed",
				zap.String("type", e.Type),
				zap.String("user_id", e.UserID.String()),
				zap.Error(err))
		}
	})
}

// Close flushes buffered records and closes the client.
func (p *Publisher) Close(ctx context.Context) error {
	err := p.client.Flush(ctx)
	p.client.Close()
	return err
}
