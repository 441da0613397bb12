package config

import (
	"context"
	"time"

	"github.com/glenroe/tenant-intake/internal/core"
	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"
)

// RedisConfig builds a go-redis client from environment settings.
type RedisConfig struct {
	URL          string `split_words:"true" default:"redis://localhost:6379/0"`
	ReadTimeout  int    `split_words:"true" default:"3"`
	WriteTimeout int    `split_words:"true" default:"3"`
	DialTimeout  int    `split_words:"true" default:"5"`
}

func (r *RedisConfig) New() (*redis.Client, error) {
	opts, err := redis.ParseURL(r.URL)
	if err != nil {
		return nil, err
	}

	opts.ReadTimeout = time.Duration(r.ReadTimeout) * time.Second
	opts.WriteTimeout = time.Duration(r.WriteTimeout) * time.Second
	opts.DialTimeout = time.Duration(r.DialTimeout) * time.Second

	client := redis.NewClient(opts)

	cmd := client.Ping(context.Background())
	if cmd.Err() != nil {
		return nil, cmd.Err()
	}

	return client, nil
}

// NATSConfig holds the request/reply transport settings.
type NATSConfig struct {
	URL           string        `split_words:"true" default:"nats://localhost:4222"`
	SubjectPrefix string        `split_words:"true" default:"tenant.chat"`
	Timeout       time.Duration `split_words:"true" default:"30s"`
}

// Config is the full service configuration, sourced from environment
// variables (loaded from .env for local runs).
type Config struct {
	Environment  string        `envconfig:"APP_ENV" default:"development"`
	ServiceName  string        `envconfig:"SERVICE_NAME" default:"tenant-intake"`
	HTTPAddr     string        `envconfig:"HTTP_ADDR" default:":8080"`
	ContactEmail string        `envconfig:"CONTACT_EMAIL" default:"customerservices@glenroe.co.uk"`
	SessionTTL   time.Duration `envconfig:"SESSION_TTL" default:"30m"`
	PrefillTTL   time.Duration `envconfig:"PREFILL_TTL" default:"10m"`

	NATS  NATSConfig
	Redis RedisConfig
}

// Load processes the environment into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Env returns the parsed deployment environment.
func (c *Config) Env() core.Environment {
	return core.ParseEnvironment(c.Environment)
}
