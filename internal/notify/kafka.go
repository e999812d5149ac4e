package notify

import (
	"context"

	"studiobook/pkg/kafka"
)

const (
	eventSource   = "studiobook"
	schemaVersion = "1"
)

type kafkaPublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

type KafkaNotifier struct {
	producer kafkaPublisher
}

func NewKafkaNotifier(producer kafkaPublisher) *KafkaNotifier {
	return &KafkaNotifier{producer: producer}
}

func (n *KafkaNotifier) Notify(ctx context.Context, e Event) error {
	msg, err := kafka.NewMessage().
		WithKey(e.PartitionKey()).
		WithEventID(e.ID).
		WithEventType(string(e.Type)).
		WithSource(eventSource).
		WithSchemaVersion(schemaVersion).
		WithTimestamp(e.OccurredAt).
		WithValue(e).
		Build()
	if err != nil {
		return err
	}
	return n.producer.Publish(ctx, msg)
}

func (n *KafkaNotifier) Close() error {
	return n.producer.Close()
}
