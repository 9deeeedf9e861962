// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Kafka, Redis, Reddit, Monitor, Matcher, etc.).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Reddit   RedditConfig   `yaml:"reddit"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Matcher  MatcherConfig  `yaml:"matcher"`
	Suggest  SuggestConfig  `yaml:"suggest"`
	API      APIConfig      `yaml:"api"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
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

// URL returns the connection string in URL form, as expected by the
// migration driver.
func (p PostgresConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	MentionsDetected string `yaml:"mentionsDetected"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
	LockTTL  time.Duration `yaml:"lockTTL"`
}

// RedditConfig lists the listing sources tried in order and the retry and
// circuit breaker settings applied to each of them.
type RedditConfig struct {
	Sources         []RedditSource `yaml:"sources"`
	MaxAttempts     int            `yaml:"maxAttempts"`
	RetryDelay      time.Duration  `yaml:"retryDelay"`
	SourceDelay     time.Duration  `yaml:"sourceDelay"`
	BreakerFailures int            `yaml:"breakerFailures"`
	BreakerReset    time.Duration  `yaml:"breakerReset"`
	TrackerSize     int            `yaml:"trackerSize"`
}

// RedditSource is one endpoint serving subreddit listings.
type RedditSource struct {
	Name        string        `yaml:"name"`
	BaseURL     string        `yaml:"baseUrl"`
	UserAgent   string        `yaml:"userAgent"`
	MinInterval time.Duration `yaml:"minInterval"`
	Timeout     time.Duration `yaml:"timeout"`
}

// MonitorConfig controls the monitoring pass and its schedule.
type MonitorConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Interval       time.Duration `yaml:"interval"`
	PostLimit      int           `yaml:"postLimit"`
	SubredditDelay time.Duration `yaml:"subredditDelay"`
}

// MatcherConfig controls context extraction.
type MatcherConfig struct {
	ContextWindow int `yaml:"contextWindow"`
}

// SuggestConfig controls keyword suggestions.
type SuggestConfig struct {
	CatalogFile string `yaml:"catalogFile"`
	MaxKeywords int    `yaml:"maxKeywords"`
}

// APIConfig holds dashboard API limits.
type APIConfig struct {
	RateLimit       int           `yaml:"rateLimit"`
	RateLimitWindow time.Duration `yaml:"rateLimitWindow"`
	DefaultLimit    int           `yaml:"defaultLimit"`
	MaxLimit        int           `yaml:"maxLimit"`
	AllowOrigins    []string      `yaml:"allowOrigins"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. Variables from a .env file in the working directory are loaded
// first; variables already set in the environment win. It returns a Config
// populated with sensible defaults for any missing values.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

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
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings that would make the service misbehave.
func (c *Config) Validate() error {
	var errs []error
	if c.Matcher.ContextWindow < 1 {
		errs = append(errs, fmt.Errorf("matcher.contextWindow must be positive, got %d", c.Matcher.ContextWindow))
	}
	if len(c.Reddit.Sources) == 0 {
		errs = append(errs, errors.New("reddit.sources must list at least one source"))
	}
	for i, s := range c.Reddit.Sources {
		if s.Name == "" || s.BaseURL == "" {
			errs = append(errs, fmt.Errorf("reddit.sources[%d] needs a name and baseUrl", i))
		}
	}
	if c.Monitor.PostLimit < 1 || c.Monitor.PostLimit > 100 {
		errs = append(errs, fmt.Errorf("monitor.postLimit must be between 1 and 100, got %d", c.Monitor.PostLimit))
	}
	if c.Monitor.Enabled && c.Monitor.Interval <= 0 {
		errs = append(errs, errors.New("monitor.interval must be positive when the monitor is enabled"))
	}
	if c.Suggest.MaxKeywords < 1 {
		errs = append(errs, fmt.Errorf("suggest.maxKeywords must be positive, got %d", c.Suggest.MaxKeywords))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers must not be empty when kafka is enabled"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// defaultConfig returns a Config with defaults for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "mentionmonitor",
			User:            "mentionmonitor",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Enabled:       true,
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "mentionmonitor-analytics",
			Topics: KafkaTopics{
				MentionsDetected: "mentions.detected",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 2 * time.Minute,
			LockTTL:  10 * time.Minute,
		},
		Reddit: RedditConfig{
			Sources: []RedditSource{
				{
					Name:        "reddit_json",
					BaseURL:     "https://www.reddit.com",
					UserAgent:   "Mozilla/5.0 (compatible; MentionMonitor/1.0)",
					MinInterval: 1000 * time.Millisecond,
					Timeout:     10 * time.Second,
				},
				{
					Name:        "old_reddit",
					BaseURL:     "https://old.reddit.com",
					UserAgent:   "MentionMonitor/1.0 (Business monitoring)",
					MinInterval: 1500 * time.Millisecond,
					Timeout:     10 * time.Second,
				},
				{
					Name:        "reddit_www",
					BaseURL:     "https://www.reddit.com",
					UserAgent:   "curl/7.68.0",
					MinInterval: 2000 * time.Millisecond,
					Timeout:     10 * time.Second,
				},
			},
			MaxAttempts:     3,
			RetryDelay:      2 * time.Second,
			SourceDelay:     500 * time.Millisecond,
			BreakerFailures: 5,
			BreakerReset:    time.Minute,
			TrackerSize:     1024,
		},
		Monitor: MonitorConfig{
			Enabled:        true,
			Interval:       15 * time.Minute,
			PostLimit:      25,
			SubredditDelay: time.Second,
		},
		Matcher: MatcherConfig{
			ContextWindow: 150,
		},
		Suggest: SuggestConfig{
			MaxKeywords: 20,
		},
		API: APIConfig{
			RateLimit:       120,
			RateLimitWindow: time.Minute,
			DefaultLimit:    50,
			MaxLimit:        200,
			AllowOrigins:    []string{"*"},
			RequestTimeout:  25 * time.Second,
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

// applyEnvOverrides reads MM_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MM_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("MM_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("MM_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("MM_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("MM_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("MM_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("MM_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("MM_KAFKA_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = b
		}
	}
	if v := os.Getenv("MM_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("MM_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("MM_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("MM_MONITOR_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Monitor.Enabled = b
		}
	}
	if v := os.Getenv("MM_MONITOR_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Monitor.Interval = d
		}
	}
	if v := os.Getenv("MM_MATCHER_CONTEXT_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Matcher.ContextWindow = n
		}
	}
	if v := os.Getenv("MM_SUGGEST_CATALOG_FILE"); v != "" {
		cfg.Suggest.CatalogFile = v
	}
	if v := os.Getenv("MM_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MM_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("MM_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}
