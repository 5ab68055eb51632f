package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"120s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		AllowOrigins    []string      `yaml:"allow_origins"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Store struct {
		Backend string `yaml:"backend" default:"memory"` // memory, redis, layered, postgres
		Prefix  string `yaml:"prefix" default:"stockpulse"`
		Redis   struct {
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			PoolSize int    `yaml:"pool_size" default:"10"`
		} `yaml:"redis"`
		Postgres struct {
			DSN   string `yaml:"dsn"`
			Table string `yaml:"table" default:"kv_entries"`
		} `yaml:"postgres"`
	} `yaml:"store"`
	AI struct {
		Provider string `yaml:"provider" default:"gemini"` // gemini or openai
		APIKey   string `yaml:"api_key"`
		Model    string `yaml:"model" default:"gemini-3-flash-preview"`
		OpenAI   struct {
			APIKey  string `yaml:"api_key"`
			BaseURL string `yaml:"base_url"`
			Model   string `yaml:"model" default:"gpt-4o-mini"`
		} `yaml:"openai"`
	} `yaml:"ai"`
	Policy struct {
		MaxAttempts      int           `yaml:"max_attempts" default:"5"`
		BackoffBase      time.Duration `yaml:"backoff_base" default:"5s"`
		BackoffJitter    time.Duration `yaml:"backoff_jitter" default:"2s"`
		Cooldown         time.Duration `yaml:"cooldown" default:"5m"`
		MarketTTL        time.Duration `yaml:"market_ttl" default:"1h"`
		BundleSpacing    time.Duration `yaml:"bundle_spacing" default:"2s"`
		RefreshGuard     time.Duration `yaml:"refresh_guard" default:"10s"`
		WatchdogInterval time.Duration `yaml:"watchdog_interval" default:"15m"`
		ScanSettle       time.Duration `yaml:"scan_settle" default:"2s"`
		HistoryCap       int           `yaml:"history_cap" default:"50"`
		PresenceTTL      time.Duration `yaml:"presence_ttl" default:"30m"`
	} `yaml:"policy"`
	RateLimit struct {
		Capacity     float64 `yaml:"capacity" default:"3"`
		RefillPerSec float64 `yaml:"refill_per_sec" default:"0.5"`
	} `yaml:"rate_limit"`
	Notify struct {
		Webhook struct {
			URL     string        `yaml:"url"`
			Timeout time.Duration `yaml:"timeout" default:"5s"`
		} `yaml:"webhook"`
		// Queue buffers platform notifications in Redis with retries.
		Queue struct {
			Enabled    bool          `yaml:"enabled"`
			Workers    int           `yaml:"workers" default:"2"`
			RetryLimit int           `yaml:"retry_limit" default:"5"`
			RetryDelay time.Duration `yaml:"retry_delay" default:"30s"`
		} `yaml:"queue"`
		Kafka struct {
			Brokers      []string      `yaml:"brokers"`
			Topic        string        `yaml:"topic" default:"stockpulse.notifications"`
			LogTopic     string        `yaml:"log_topic"`
			RequiredAcks int           `yaml:"required_acks" default:"-1"`
			Compression  string        `yaml:"compression" default:"gzip"`
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"kafka"`
	} `yaml:"notify"`
}

// Default returns a configuration populated from struct defaults only.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file on top of the defaults.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads config from YAML, overrides with environment variables
// (a local .env file is honoured) and validates the result.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("APP_ENV"); v != "" {
		c.Environment = v
	}
	c.Server.Port = getEnvInt("PORT", c.Server.Port)
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}

	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv("AI_PROVIDER"); v != "" {
		c.AI.Provider = v
	}
	if v := os.Getenv("AI_MODEL"); v != "" {
		c.AI.Model = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.AI.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		c.AI.OpenAI.BaseURL = v
	}

	if v := os.Getenv("STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Store.Redis.Host = v
	}
	c.Store.Redis.Port = getEnvInt("REDIS_PORT", c.Store.Redis.Port)
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Store.Redis.Password = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Store.Postgres.DSN = v
	}

	if v := os.Getenv("NOTIFY_WEBHOOK_URL"); v != "" {
		c.Notify.Webhook.URL = v
	}
	if v := os.Getenv("NOTIFY_QUEUE_ENABLED"); v != "" {
		c.Notify.Queue.Enabled, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Notify.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Notify.Kafka.Topic = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive, got %d", c.Server.Port)
	}
	switch c.Store.Backend {
	case "memory", "redis", "layered":
	case "postgres":
		if c.Store.Postgres.DSN == "" {
			return fmt.Errorf("store.postgres.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("store.backend must be one of memory, redis, layered, postgres, got '%s'", c.Store.Backend)
	}
	switch c.AI.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("ai.provider must be 'gemini' or 'openai', got '%s'", c.AI.Provider)
	}
	if c.Policy.MaxAttempts < 1 {
		return fmt.Errorf("policy.max_attempts must be at least 1")
	}
	if c.Policy.Cooldown <= 0 || c.Policy.MarketTTL <= 0 || c.Policy.WatchdogInterval <= 0 {
		return fmt.Errorf("policy durations must be positive")
	}
	if c.Policy.HistoryCap < 1 {
		return fmt.Errorf("policy.history_cap must be at least 1")
	}
	if len(c.Notify.Kafka.Brokers) > 0 && c.Notify.Kafka.Topic == "" {
		return fmt.Errorf("notify.kafka.topic is required when brokers are set")
	}
	return nil
}

// getEnvInt gets environment variable as int or returns default value.
func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}
