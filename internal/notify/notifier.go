package notify

import (
	"context"
	"fmt"

	"studiobook/pkg/amqp"
	"studiobook/pkg/config"
	"studiobook/pkg/kafka"
	kafka_config "studiobook/pkg/kafka/config"
	kafka_middleware "studiobook/pkg/kafka/middleware"
)

// Notifier delivers one event to the notification service.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
	Close() error
}

// New builds the notifier selected by cfg.Notifier.
func New(cfg *config.Config) (Notifier, error) {
	switch cfg.Notifier {
	case config.NotifierKafka:
		kcfg, err := kafka_config.Load()
		if err != nil {
			return nil, err
		}
		kcfg.LogConfiguration(cfg.Log.Info)

		producer, err := kafka.NewProducer(kcfg, cfg.Log, cfg.KafkaTopic, cfg.KafkaDLQTopic)
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka producer: %w", err)
		}
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		return NewKafkaNotifier(producer), nil

	case config.NotifierAMQP:
		publisher, err := amqp.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, fmt.Errorf("failed to create amqp publisher: %w", err)
		}
		return NewAMQPNotifier(publisher), nil

	case config.NotifierLog:
		return NewLogNotifier(cfg.Log), nil
	}
	return nil, fmt.Errorf("unknown notifier: %s", cfg.Notifier)
}
