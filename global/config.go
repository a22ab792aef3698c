package global

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// AppConfig is the environment-sourced process configuration.
// Defaults mirror the web application's broadcast settings
// (redis on 127.0.0.1:6379 db 0, socket server on :8005).
type AppConfig struct {
	GatewayID string `env:"GATEWAY_ID" envDefault:"relay-1"`

	SocketPort int `env:"SOCKET_PORT" envDefault:"8005"`

	BusBackend string `env:"BUS_BACKEND" envDefault:"redis"` // redis | nats

	RedisHost     string `env:"REDIS_HOST" envDefault:"127.0.0.1"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	NatsServers []string `env:"NATS_SERVERS" envSeparator:"," envDefault:"nats://127.0.0.1:4222"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	FanoutWorkers int `env:"FANOUT_WORKERS" envDefault:"4"`
	FanoutQueue   int `env:"FANOUT_QUEUE" envDefault:"1024"`
	SendQueueSize int `env:"SEND_QUEUE_SIZE" envDefault:"256"`
}

const (
	BusBackendRedis = "redis"
	BusBackendNats  = "nats"
)

// LoadConfig parses the configuration from the process environment.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "parse env config")
	}
	if cfg.BusBackend != BusBackendRedis && cfg.BusBackend != BusBackendNats {
		return nil, errors.Errorf("unknown bus backend %q", cfg.BusBackend)
	}
	return cfg, nil
}

func (c *AppConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

func (c *AppConfig) ListenAddr() string {
	return fmt.Sprintf(":%d", c.SocketPort)
}

// OriginAllowed reports whether the given Origin header value is accepted.
func (c *AppConfig) OriginAllowed(origin string) bool {
	for _, o := range c.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
