package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes events to a Kafka topic keyed by resource id, so events
// for one resource stay ordered within a partition.
type KafkaSink struct {
	writer messageWriter
}

func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("audit kafka: brokers are required")
	}
	if topic == "" {
		return nil, fmt.Errorf("audit kafka: topic is required")
	}
	return &KafkaSink{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}}, nil
}

func (k *KafkaSink) Write(ctx context.Context, e Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("audit kafka: marshal failed: %w", err)
	}
	msg := kafka.Message{
		Key:     []byte(e.ResourceID),
		Value:   b,
		Headers: []kafka.Header{{Key: "event_type", Value: []byte(e.EventType)}},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("audit kafka: write failed: %w", err)
	}
	return nil
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
