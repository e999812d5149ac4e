package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"studiobook/pkg/client"
	"studiobook/pkg/db"
	"studiobook/pkg/logger"
)

type Config struct {
	StoreDriver       string
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration
	SQLDSN            string
	SQLMaxOpenConns   int

	Port string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	LockTimeout        time.Duration
	LockMaxRetries     int
	LockRetryBackoff   time.Duration
	CancellationCutoff time.Duration
	StudioTimeZone     string
	Location           *time.Location

	JWTSecret          string
	CSRFEnabled        bool
	CORSAllowedOrigins []string

	Notifier        string
	KafkaTopic      string
	KafkaDLQTopic   string
	AMQPURL         string
	AMQPExchange    string
	NotifyWorkers   int
	NotifyQueueSize int

	OTelEndpoint string

	SweepInterval  time.Duration
	SweepBatchSize int

	LogLevel  string
	LogFormat string

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	cfg := &Config{
		StoreDriver:       getEnvStr(EnvStoreDriver, DefaultStoreDriver),
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),
		SQLDSN:            getEnvStr(EnvSQLDSN, DefaultSQLDSN),
		SQLMaxOpenConns:   getEnvNum(EnvSQLMaxOpenConns, DefaultSQLMaxOpenConns),

		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		LockTimeout:        getEnvDuration(EnvLockTimeout, DefaultLockTimeout),
		LockMaxRetries:     getEnvNum(EnvLockMaxRetries, DefaultLockMaxRetries),
		LockRetryBackoff:   getEnvDuration(EnvLockRetryBackoff, DefaultLockRetryBackoff),
		CancellationCutoff: getEnvDuration(EnvCancellationCutoff, DefaultCancellationCutoff),
		StudioTimeZone:     getEnvStr(EnvStudioTimeZone, DefaultStudioTimeZone),

		JWTSecret:          getEnvStr(EnvJWTSecret, ""),
		CSRFEnabled:        getEnvBool(EnvCSRFEnabled, DefaultCSRFEnabled),
		CORSAllowedOrigins: getEnvList(EnvCORSAllowedOrigins, DefaultCORSAllowedOrigins),

		Notifier:        getEnvStr(EnvNotifier, DefaultNotifier),
		KafkaTopic:      getEnvStr(EnvKafkaTopic, DefaultKafkaTopic),
		KafkaDLQTopic:   getEnvStr(EnvKafkaDLQTopic, DefaultKafkaDLQTopic),
		AMQPURL:         getEnvStr(EnvAMQPURL, DefaultAMQPURL),
		AMQPExchange:    getEnvStr(EnvAMQPExchange, DefaultAMQPExchange),
		NotifyWorkers:   getEnvNum(EnvNotifyWorkers, DefaultNotifyWorkers),
		NotifyQueueSize: getEnvNum(EnvNotifyQueueSize, DefaultNotifyQueueSize),

		OTelEndpoint: getEnvStr(EnvOTelEndpoint, ""),

		SweepInterval:  getEnvDuration(EnvSweepInterval, DefaultSweepInterval),
		SweepBatchSize: getEnvNum(EnvSweepBatchSize, DefaultSweepBatchSize),

		LogLevel:  getEnvStr(EnvLogLevel, DefaultLogLevel),
		LogFormat: getEnvStr(EnvLogFormat, DefaultLogFormat),

		Client: client.NewClient(),
	}
	cfg.Log = logger.New(logger.Config{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		AddSource: true,
		Service:   serviceName,
	})

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// SetStore connects the client selected by StoreDriver.
func (cfg *Config) SetStore() {
	if cfg.StoreDriver == StoreMongo {
		cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoDatabaseName, cfg.MongoConnTimeout)
		return
	}
	cfg.Client.SetSQL(cfg.Log, cfg.StoreDriver, cfg.SQLDSN, cfg.SQLMaxOpenConns, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if _, err := logger.ParseLevel(cfg.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("LogLevel must be one of [debug, info, warn, error], got: %s", cfg.LogLevel))
	}
	if cfg.LogFormat != logger.JSON && cfg.LogFormat != logger.TEXT {
		errors = append(errors, fmt.Sprintf("LogFormat must be one of [json, text], got: %s", cfg.LogFormat))
	}

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	switch cfg.StoreDriver {
	case StoreMongo:
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty")
		} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
	case StorePostgres, StoreMySQL, StoreSQLite:
		if cfg.SQLDSN == "" {
			errors = append(errors, "SQLDSN cannot be empty")
		}
		if cfg.SQLMaxOpenConns <= 0 {
			errors = append(errors, fmt.Sprintf("SQLMaxOpenConns must be positive, got: %d", cfg.SQLMaxOpenConns))
		}
	default:
		errors = append(errors, fmt.Sprintf("StoreDriver must be one of [mongo, postgres, mysql, sqlite], got: %s", cfg.StoreDriver))
	}

	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}
	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}
	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if cfg.LockTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("LockTimeout must be positive, got: %s", cfg.LockTimeout))
	}
	if cfg.LockMaxRetries < 0 {
		errors = append(errors, fmt.Sprintf("LockMaxRetries cannot be negative, got: %d", cfg.LockMaxRetries))
	}
	if cfg.LockRetryBackoff < 0 {
		errors = append(errors, fmt.Sprintf("LockRetryBackoff cannot be negative, got: %s", cfg.LockRetryBackoff))
	}
	if cfg.CancellationCutoff < 0 {
		errors = append(errors, fmt.Sprintf("CancellationCutoff cannot be negative, got: %s", cfg.CancellationCutoff))
	}
	if loc, err := time.LoadLocation(cfg.StudioTimeZone); err != nil {
		errors = append(errors, fmt.Sprintf("StudioTimeZone must be a valid IANA zone, got: %s", cfg.StudioTimeZone))
	} else {
		cfg.Location = loc
	}

	switch cfg.Notifier {
	case NotifierKafka:
		if cfg.KafkaTopic == "" {
			errors = append(errors, "KafkaTopic cannot be empty when Notifier is kafka")
		}
	case NotifierAMQP:
		if cfg.AMQPURL == "" || cfg.AMQPExchange == "" {
			errors = append(errors, "AMQPURL and AMQPExchange are required when Notifier is amqp")
		}
	case NotifierLog:
	default:
		errors = append(errors, fmt.Sprintf("Notifier must be one of [kafka, amqp, log], got: %s", cfg.Notifier))
	}
	if cfg.NotifyWorkers <= 0 {
		errors = append(errors, fmt.Sprintf("NotifyWorkers must be positive, got: %d", cfg.NotifyWorkers))
	}
	if cfg.NotifyQueueSize <= 0 {
		errors = append(errors, fmt.Sprintf("NotifyQueueSize must be positive, got: %d", cfg.NotifyQueueSize))
	}
	if cfg.SweepInterval <= 0 {
		errors = append(errors, fmt.Sprintf("SweepInterval must be positive, got: %s", cfg.SweepInterval))
	}
	if cfg.SweepBatchSize <= 0 {
		errors = append(errors, fmt.Sprintf("SweepBatchSize must be positive, got: %d", cfg.SweepBatchSize))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"store_driver", cfg.StoreDriver,
		"mongo_uri", redactURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"sql_dsn", redactURI(cfg.SQLDSN),
		"sql_max_open_conns", cfg.SQLMaxOpenConns,
		"port", cfg.Port,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"lock_timeout", cfg.LockTimeout,
		"lock_max_retries", cfg.LockMaxRetries,
		"lock_retry_backoff", cfg.LockRetryBackoff,
		"cancellation_cutoff", cfg.CancellationCutoff,
		"studio_time_zone", cfg.StudioTimeZone,
		"jwt_secret_set", cfg.JWTSecret != "",
		"csrf_enabled", cfg.CSRFEnabled,
		"cors_allowed_origins", cfg.CORSAllowedOrigins,
		"notifier", cfg.Notifier,
		"kafka_topic", cfg.KafkaTopic,
		"amqp_exchange", cfg.AMQPExchange,
		"notify_workers", cfg.NotifyWorkers,
		"notify_queue_size", cfg.NotifyQueueSize,
		"otel_endpoint", cfg.OTelEndpoint,
		"sweep_interval", cfg.SweepInterval,
		"sweep_batch_size", cfg.SweepBatchSize,
	)
}

// Now returns the current time in the studio location.
func (cfg *Config) Now() time.Time {
	if cfg.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(cfg.Location)
}

// LockPolicy is the retry budget of every occurrence or trainer-day scope.
func (cfg *Config) LockPolicy() db.RetryPolicy {
	return db.RetryPolicy{
		Timeout:     cfg.LockTimeout,
		MaxAttempts: cfg.LockMaxRetries + 1,
		Backoff:     cfg.LockRetryBackoff,
	}
}

func (cfg *Config) StudioLocation() *time.Location {
	if cfg.Location == nil {
		return time.UTC
	}
	return cfg.Location
}

func redactURI(uri string) string {
	credentialRegex := regexp.MustCompile(`([a-z0-9+]+://)[^:/@]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	raw := getEnvStr(key, fallback)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
