// Package config loads application configuration from YAML files with
// environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Kafka, Redis, Parser, Cache, Analytics, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Parser    ParserConfig    `yaml:"parser"`
	Cache     CacheConfig     `yaml:"cache"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`

	// RateLimit is requests per RateWindow per client; 0 disables limiting.
	RateLimit  int           `yaml:"rateLimit"`
	RateWindow time.Duration `yaml:"rateWindow"`

	// AdminKeys guard the cache invalidation endpoint when non-empty.
	AdminKeys []string `yaml:"adminKeys"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	ParseEvents string `yaml:"parseEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// ParserConfig is the configuration snapshot a query parser is built from.
// Every field except UpdateShardTimeout changes the grammar.
type ParserConfig struct {
	MaxQueryLength       int            `yaml:"maxQueryLength"`
	HardQueryLengthLimit int            `yaml:"hardQueryLengthLimit"`
	AllowLeadingWildcard bool           `yaml:"allowLeadingWildcard"`
	StripQuestionMarks   string         `yaml:"stripQuestionMarks"`
	LanguageCode         string         `yaml:"languageCode"`
	EnableRegex          bool           `yaml:"enableRegex"`
	Keywords             []string       `yaml:"keywords"`
	Namespaces           map[string]int `yaml:"namespaces"`
	MaxKeywordConditions int            `yaml:"maxKeywordConditions"`

	// UpdateShardTimeout is accepted in parser snapshots but never read by
	// the parser, and Fingerprint ignores it.
	UpdateShardTimeout time.Duration `yaml:"updateShardTimeout"`
}

// CacheConfig controls the two-level parse result cache.
type CacheConfig struct {
	Enabled           bool          `yaml:"enabled"`
	LocalTTL          time.Duration `yaml:"localTTL"`
	CleanupInterval   time.Duration `yaml:"cleanupInterval"`
	KeyPrefix         string        `yaml:"keyPrefix"`
	RemoteTimeout     time.Duration `yaml:"remoteTimeout"`
	InvalidateChannel string        `yaml:"invalidateChannel"`
}

// AnalyticsConfig controls parse event publishing and aggregation. A
// BatchSize above zero switches the publisher to batched writes.
type AnalyticsConfig struct {
	Enabled          bool          `yaml:"enabled"`
	BufferSize       int           `yaml:"bufferSize"`
	BatchSize        int           `yaml:"batchSize"`
	FlushInterval    time.Duration `yaml:"flushInterval"`
	SnapshotSchedule string        `yaml:"snapshotSchedule"`
	Port             int           `yaml:"port"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig controls distributed tracing (sample rate, endpoint).
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"`
	SampleRate float64 `yaml:"sampleRate"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// DefaultParserConfig returns the parser section used when nothing is
// configured.
func DefaultParserConfig() ParserConfig {
	return ParserConfig{
		MaxQueryLength:       300,
		HardQueryLengthLimit: 2048,
		StripQuestionMarks:   "languageDefault",
		LanguageCode:         "en",
		MaxKeywordConditions: 100,
		UpdateShardTimeout:   time.Second,
	}
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateWindow:      time.Minute,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "queryparser",
			User:            "queryparser",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "queryparser-analytics",
			Topics: KafkaTopics{
				ParseEvents: "parse-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 10 * time.Minute,
		},
		Parser: DefaultParserConfig(),
		Cache: CacheConfig{
			Enabled:           true,
			LocalTTL:          time.Minute,
			CleanupInterval:   5 * time.Minute,
			KeyPrefix:         "qp:parse:",
			RemoteTimeout:     50 * time.Millisecond,
			InvalidateChannel: "qp:cache:invalidate",
		},
		Analytics: AnalyticsConfig{
			Enabled:          true,
			BufferSize:       1024,
			FlushInterval:    5 * time.Second,
			SnapshotSchedule: "@every 1m",
			Port:             8081,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads QP_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	setInt("QP_SERVER_PORT", &cfg.Server.Port)
	setString("QP_POSTGRES_HOST", &cfg.Postgres.Host)
	setInt("QP_POSTGRES_PORT", &cfg.Postgres.Port)
	setString("QP_POSTGRES_DATABASE", &cfg.Postgres.Database)
	setString("QP_POSTGRES_USER", &cfg.Postgres.User)
	setString("QP_POSTGRES_PASSWORD", &cfg.Postgres.Password)
	setString("QP_POSTGRES_SSLMODE", &cfg.Postgres.SSLMode)
	if v := os.Getenv("QP_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	setString("QP_REDIS_ADDR", &cfg.Redis.Addr)
	setString("QP_REDIS_PASSWORD", &cfg.Redis.Password)
	setString("QP_LOGGING_LEVEL", &cfg.Logging.Level)
	setString("QP_LOGGING_FORMAT", &cfg.Logging.Format)

	setInt("QP_PARSER_MAX_QUERY_LENGTH", &cfg.Parser.MaxQueryLength)
	setInt("QP_PARSER_HARD_QUERY_LENGTH_LIMIT", &cfg.Parser.HardQueryLengthLimit)
	setBool("QP_PARSER_ALLOW_LEADING_WILDCARD", &cfg.Parser.AllowLeadingWildcard)
	setString("QP_PARSER_STRIP_QUESTION_MARKS", &cfg.Parser.StripQuestionMarks)
	setString("QP_PARSER_LANGUAGE_CODE", &cfg.Parser.LanguageCode)
	setBool("QP_PARSER_ENABLE_REGEX", &cfg.Parser.EnableRegex)
	if v := os.Getenv("QP_PARSER_KEYWORDS"); v != "" {
		cfg.Parser.Keywords = strings.Split(v, ",")
	}

	setBool("QP_CACHE_ENABLED", &cfg.Cache.Enabled)
	setBool("QP_ANALYTICS_ENABLED", &cfg.Analytics.Enabled)
	setInt("QP_ANALYTICS_PORT", &cfg.Analytics.Port)
	setInt("QP_ANALYTICS_BATCH_SIZE", &cfg.Analytics.BatchSize)
	setString("QP_ANALYTICS_SNAPSHOT_SCHEDULE", &cfg.Analytics.SnapshotSchedule)
	setInt("QP_SERVER_RATE_LIMIT", &cfg.Server.RateLimit)
	if v := os.Getenv("QP_SERVER_ADMIN_KEYS"); v != "" {
		cfg.Server.AdminKeys = strings.Split(v, ",")
	}
}

func setString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
