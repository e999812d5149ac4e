package kafka_config

const (
	EnvBrokers          = "KAFKA_BROKERS"
	EnvClientID         = "KAFKA_CLIENT_ID"
	EnvMaxAttempts      = "KAFKA_PRODUCER_MAX_ATTEMPTS"
	EnvBatchTimeout     = "KAFKA_PRODUCER_BATCH_TIMEOUT"
	EnvWriteTimeout     = "KAFKA_PRODUCER_WRITE_TIMEOUT"
	EnvRequireAcks      = "KAFKA_PRODUCER_REQUIRE_ACKS"
	EnvCompression      = "KAFKA_PRODUCER_COMPRESSION"
	EnvAutoCreateTopics = "KAFKA_AUTO_CREATE_TOPICS"
)
