package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"
)

var _ Publisher = (*KafkaPublisher)(nil)

// KafkaPublisher writes order events to a Kafka topic. Messages are keyed by
// order id so every event of one order lands on the same partition in order.
type KafkaPublisher struct {
	w *kafka.Writer
}

// NewKafkaPublisher creates a publisher with acknowledgement from all ISR
// replicas and bounded retries.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  5,
			WriteTimeout: 5 * time.Second,
			ReadTimeout:  5 * time.Second,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

// Close releases the underlying writer.
func (p *KafkaPublisher) Close() error { return p.w.Close() }

// Publish writes one event synchronously.
func (p *KafkaPublisher) Publish(ctx context.Context, ev OrderEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	if err := p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.OrderID),
		Value: b,
	}); err != nil {
		return errors.Wrap(err, "write message")
	}
	return nil
}
