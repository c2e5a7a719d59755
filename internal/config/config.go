package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names the storage engine selected at startup.
type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// Events backends.
const (
	EventsNone  = "none"
	EventsKafka = "kafka"
	EventsRedis = "redis"
)

// Config holds application configuration. It is resolved once by Load and
// passed explicitly to every component that needs it.
type Config struct {
	HTTPPort        string        `yaml:"http_port"`
	DatabaseURL     string        `yaml:"database_url"`
	SQLitePath      string        `yaml:"sqlite_path"`
	DBPoolSize      int           `yaml:"db_pool_size"`
	QueryTimeout    time.Duration `yaml:"query_timeout"`
	LogLevel        string        `yaml:"log_level"`
	EventsBackend   string        `yaml:"events_backend"`
	RedisURL        string        `yaml:"redis_url"`
	RedisChannel    string        `yaml:"redis_channel"`
	KafkaBrokers    []string      `yaml:"kafka_brokers"`
	KafkaTopic      string        `yaml:"kafka_topic"`
	KafkaPartitions int           `yaml:"kafka_partitions"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		HTTPPort:        "8000",
		SQLitePath:      "todos.db",
		DBPoolSize:      10,
		QueryTimeout:    5 * time.Second,
		LogLevel:        "info",
		EventsBackend:   EventsNone,
		RedisURL:        "redis://localhost:6379/0",
		RedisChannel:    "todo-events",
		KafkaBrokers:    []string{"localhost:9092"},
		KafkaTopic:      "todo-events",
		KafkaPartitions: 1,
	}
}

// Load builds the config from defaults, then the optional YAML file at path,
// then the environment.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.HTTPPort = getEnv("HTTP_PORT", c.HTTPPort)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.SQLitePath = getEnv("TODO_DB_PATH", c.SQLitePath)
	c.DBPoolSize = getIntEnv("DB_POOL_SIZE", c.DBPoolSize)
	if sec := getIntEnv("DB_QUERY_TIMEOUT_SEC", 0); sec > 0 {
		c.QueryTimeout = time.Duration(sec) * time.Second
	}
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.EventsBackend = getEnv("EVENTS_BACKEND", c.EventsBackend)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.RedisChannel = getEnv("REDIS_EVENTS_CHANNEL", c.RedisChannel)
	c.KafkaBrokers = getSliceEnv("KAFKA_BROKERS", c.KafkaBrokers)
	c.KafkaTopic = getEnv("KAFKA_TODO_TOPIC", c.KafkaTopic)
	c.KafkaPartitions = getIntEnv("KAFKA_PARTITIONS", c.KafkaPartitions)
}

// Validate reports settings that cannot produce a working process.
func (c *Config) Validate() error {
	var errs []error
	if c.DBPoolSize <= 0 {
		errs = append(errs, fmt.Errorf("db_pool_size must be positive, got %d", c.DBPoolSize))
	}
	if c.QueryTimeout <= 0 {
		errs = append(errs, fmt.Errorf("query_timeout must be positive, got %s", c.QueryTimeout))
	}
	if c.DatabaseURL == "" && c.SQLitePath == "" {
		errs = append(errs, errors.New("sqlite_path is required when database_url is empty"))
	}
	switch c.EventsBackend {
	case "", EventsNone, EventsRedis:
	case EventsKafka:
		if len(c.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("kafka events require at least one broker"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown events_backend %q", c.EventsBackend))
	}
	return errors.Join(errs...)
}

// Backend reports which storage engine the config selects: a connection
// string means postgres, otherwise the embedded file.
func (c *Config) Backend() Backend {
	if c.DatabaseURL != "" {
		return BackendPostgres
	}
	return BackendSQLite
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getSliceEnv(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
