package notify

import "context"

type amqpPublisher interface {
	PublishJSON(ctx context.Context, key, messageID string, v any) error
	Close() error
}

// AMQPNotifier routes each event by its type, e.g. "booking.promoted".
type AMQPNotifier struct {
	publisher amqpPublisher
}

func NewAMQPNotifier(publisher amqpPublisher) *AMQPNotifier {
	return &AMQPNotifier{publisher: publisher}
}

func (n *AMQPNotifier) Notify(ctx context.Context, e Event) error {
	return n.publisher.PublishJSON(ctx, string(e.Type), e.ID, e)
}

func (n *AMQPNotifier) Close() error {
	return n.publisher.Close()
}
