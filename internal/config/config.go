package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	DispatchInline = "inline"
	DispatchAsync  = "async"

	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Port         string `yaml:"port" env:"PORT" env-default:"8080"`
	DatabaseURL  string `yaml:"db_dsn" env:"DB_DSN"`
	StoreBackend string `yaml:"store_backend" env:"STORE_BACKEND" env-default:"postgres"`
	LogLevel     string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	VAPIDPublicKey  string `yaml:"vapid_public_key" env:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `yaml:"vapid_private_key" env:"VAPID_PRIVATE_KEY"`
	VAPIDSubject    string `yaml:"vapid_subject" env:"VAPID_SUBJECT" env-default:"admin@qrtrack.local"`
	CallMeBotKey    string `yaml:"callmebot_key" env:"CALLMEBOT_KEY"`
	CallMeBotURL    string `yaml:"callmebot_url" env:"CALLMEBOT_URL" env-default:"https://api.callmebot.com/whatsapp.php"`

	DispatchMode           string `yaml:"dispatch_mode" env:"DISPATCH_MODE" env-default:"inline"`
	DispatchTimeoutSeconds int    `yaml:"dispatch_timeout_seconds" env:"DISPATCH_TIMEOUT_SECONDS" env-default:"5"`
	DispatchWorkers        int    `yaml:"dispatch_workers" env:"DISPATCH_WORKERS" env-default:"4"`
	DispatchQueueSize      int    `yaml:"dispatch_queue_size" env:"DISPATCH_QUEUE_SIZE" env-default:"256"`

	PollIntervalSeconds int `yaml:"poll_interval_seconds" env:"POLL_INTERVAL_SECONDS" env-default:"5"`

	RateLimitPerMinute       int `yaml:"rate_limit_per_min" env:"RATE_LIMIT_PER_MIN" env-default:"120"`
	RateLimitBurst           int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST" env-default:"30"`
	TenantRateLimitPerMinute int `yaml:"tenant_rate_limit_per_min" env:"TENANT_RATE_LIMIT_PER_MIN" env-default:"600"`
	TenantRateLimitBurst     int `yaml:"tenant_rate_limit_burst" env:"TENANT_RATE_LIMIT_BURST" env-default:"120"`

	RedisAddr             string `yaml:"redis_addr" env:"REDIS_ADDR"`
	IdempotencyTTLSeconds int    `yaml:"idempotency_ttl_seconds" env:"IDEMPOTENCY_TTL_SECONDS" env-default:"86400"`
}

// Load reads CONFIG_PATH when set and lets the environment override it;
// otherwise only the environment is read.
func Load() (Config, error) {
	var cfg Config
	if path := strings.TrimSpace(os.Getenv("CONFIG_PATH")); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config error: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Port = strings.TrimSpace(c.Port)
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.StoreBackend = strings.ToLower(strings.TrimSpace(c.StoreBackend))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.VAPIDPublicKey = strings.TrimSpace(c.VAPIDPublicKey)
	c.VAPIDPrivateKey = strings.TrimSpace(c.VAPIDPrivateKey)
	c.VAPIDSubject = strings.TrimSpace(c.VAPIDSubject)
	c.CallMeBotKey = strings.TrimSpace(c.CallMeBotKey)
	c.CallMeBotURL = strings.TrimSpace(c.CallMeBotURL)
	c.DispatchMode = strings.ToLower(strings.TrimSpace(c.DispatchMode))
	c.RedisAddr = strings.TrimSpace(c.RedisAddr)
}

func (c Config) validate() error {
	switch c.StoreBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config error: DB_DSN is required for the postgres store")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("config error: unknown STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.DispatchMode {
	case DispatchInline, DispatchAsync:
	default:
		return fmt.Errorf("config error: unknown DISPATCH_MODE %q", c.DispatchMode)
	}
	return nil
}

func (c Config) DispatchTimeout() time.Duration {
	return secondsOr(c.DispatchTimeoutSeconds, 5)
}

func (c Config) PollInterval() time.Duration {
	return secondsOr(c.PollIntervalSeconds, 5)
}

func (c Config) IdempotencyTTL() time.Duration {
	return secondsOr(c.IdempotencyTTLSeconds, 86400)
}

func secondsOr(value, fallback int) time.Duration {
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * time.Second
}
