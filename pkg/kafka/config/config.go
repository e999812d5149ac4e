package kafka_config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"
)

// Config holds the writer settings for booking event topics.
type Config struct {
	Brokers  []string
	ClientID string

	MaxAttempts  int
	BatchTimeout time.Duration
	WriteTimeout time.Duration
	RequireAcks  int    // -1 all replicas, 0 fire and forget, 1 leader
	Compression  string // none, gzip, snappy, lz4, zstd
	AutoCreate   bool
}

var codecs = map[string]compress.Compression{
	"none":   compress.None,
	"gzip":   compress.Gzip,
	"snappy": compress.Snappy,
	"lz4":    compress.Lz4,
	"zstd":   compress.Zstd,
}

// Load reads the settings from the environment and validates them.
func Load() (*Config, error) {
	cfg := &Config{
		Brokers:      splitBrokers(env(EnvBrokers, DefaultBrokers)),
		ClientID:     env(EnvClientID, DefaultClientID),
		MaxAttempts:  envInt(EnvMaxAttempts, DefaultMaxAttempts),
		BatchTimeout: envDuration(EnvBatchTimeout, DefaultBatchTimeout),
		WriteTimeout: envDuration(EnvWriteTimeout, DefaultWriteTimeout),
		RequireAcks:  envInt(EnvRequireAcks, DefaultRequireAcks),
		Compression:  strings.ToLower(env(EnvCompression, DefaultCompression)),
		AutoCreate:   envBool(EnvAutoCreateTopics, DefaultAutoCreateTopics),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	var problems []string

	if len(cfg.Brokers) == 0 {
		problems = append(problems, "at least one broker is required")
	}
	if cfg.ClientID == "" {
		problems = append(problems, "ClientID must not be empty")
	}
	if cfg.MaxAttempts <= 0 {
		problems = append(problems, fmt.Sprintf("MaxAttempts must be positive, got %d", cfg.MaxAttempts))
	}
	if cfg.BatchTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("BatchTimeout must be positive, got %s", cfg.BatchTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("WriteTimeout must be positive, got %s", cfg.WriteTimeout))
	}
	if _, ok := codecs[cfg.Compression]; !ok {
		problems = append(problems, fmt.Sprintf("Compression must be one of none, gzip, snappy, lz4 or zstd, got %q", cfg.Compression))
	}
	if cfg.RequireAcks < -1 || cfg.RequireAcks > 1 {
		problems = append(problems, fmt.Sprintf("RequireAcks must be -1, 0 or 1, got %d", cfg.RequireAcks))
	}

	if len(problems) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString("invalid kafka configuration:")
	for i, p := range problems {
		fmt.Fprintf(&b, "\n  %d. %s", i+1, p)
	}
	return fmt.Errorf("%s", b.String())
}

// Codec returns the writer compression. Validate must have passed.
func (cfg *Config) Codec() compress.Compression {
	return codecs[cfg.Compression]
}

func (cfg *Config) Acks() kafka.RequiredAcks {
	switch cfg.RequireAcks {
	case 0:
		return kafka.RequireNone
	case 1:
		return kafka.RequireOne
	}
	return kafka.RequireAll
}

// Transport carries the client id so broker logs can attribute our writes.
func (cfg *Config) Transport() *kafka.Transport {
	return &kafka.Transport{ClientID: cfg.ClientID}
}

func (cfg *Config) LogConfiguration(logFunc func(msg string, keysAndValues ...any)) {
	if logFunc == nil {
		return
	}
	logFunc("kafka publisher configured",
		"brokers", cfg.Brokers,
		"client_id", cfg.ClientID,
		"max_attempts", cfg.MaxAttempts,
		"batch_timeout", cfg.BatchTimeout,
		"write_timeout", cfg.WriteTimeout,
		"require_acks", cfg.RequireAcks,
		"compression", cfg.Compression,
		"auto_create_topics", cfg.AutoCreate,
	)
}

func splitBrokers(raw string) []string {
	var out []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func env(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if n, err := strconv.Atoi(env(key, "")); err == nil {
		return n
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(env(key, "")); err == nil {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(env(key, "")); err == nil {
		return d
	}
	return fallback
}
