package kafka_config

import "time"

const (
	DefaultBrokers  = "localhost:9092"
	DefaultClientID = "studiobook"

	DefaultMaxAttempts      = 3
	DefaultBatchTimeout     = 10 * time.Millisecond
	DefaultWriteTimeout     = 5 * time.Second
	DefaultRequireAcks      = -1
	DefaultCompression      = "snappy"
	DefaultAutoCreateTopics = false
)
