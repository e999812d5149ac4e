package config

const (
	EnvStoreDriver       = "STORE_DRIVER"
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"
	EnvSQLDSN            = "SQL_DSN"
	EnvSQLMaxOpenConns   = "SQL_MAX_OPEN_CONNS"

	EnvPort      = "PORT"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvLockTimeout        = "LOCK_TIMEOUT"
	EnvLockMaxRetries     = "LOCK_MAX_RETRIES"
	EnvLockRetryBackoff   = "LOCK_RETRY_BACKOFF"
	EnvCancellationCutoff = "CANCELLATION_CUTOFF"
	EnvStudioTimeZone     = "STUDIO_TIME_ZONE"

	EnvJWTSecret          = "JWT_SECRET"
	EnvCSRFEnabled        = "CSRF_ENABLED"
	EnvCORSAllowedOrigins = "CORS_ALLOWED_ORIGINS"

	EnvNotifier        = "NOTIFIER"
	EnvKafkaTopic      = "KAFKA_TOPIC"
	EnvKafkaDLQTopic   = "KAFKA_DLQ_TOPIC"
	EnvAMQPURL         = "AMQP_URL"
	EnvAMQPExchange    = "AMQP_EXCHANGE"
	EnvNotifyWorkers   = "NOTIFY_WORKERS"
	EnvNotifyQueueSize = "NOTIFY_QUEUE_SIZE"

	EnvOTelEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"

	EnvSweepInterval  = "SWEEP_INTERVAL"
	EnvSweepBatchSize = "SWEEP_BATCH_SIZE"
)
