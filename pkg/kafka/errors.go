package kafka

import "errors"

// Publish rejects messages before they reach the writer with one of these.
var (
	ErrProducerClosed = errors.New("kafka: publish on closed producer")
	ErrEmptyKey       = errors.New("kafka: booking event has no partition key")
	ErrEmptyValue     = errors.New("kafka: booking event has no payload")
	ErrInvalidMessage = errors.New("kafka: malformed booking event")
)
