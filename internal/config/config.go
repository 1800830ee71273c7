package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Listener Listener `mapstructure:"listener"`
	Publish  Publish  `mapstructure:"publish"`
	NATS     NATS     `mapstructure:"nats"`
	Redis    Redis    `mapstructure:"redis"`
	DLQ      DLQ      `mapstructure:"dlq"`
	Metrics  Metrics  `mapstructure:"metrics"`
	Logging  Logging  `mapstructure:"logging"`
}

// Listener configures the transport the plugin receives hub messages on.
type Listener struct {
	// Transport is "udp" (hub broadcasts) or "tcp" (length-prefixed stream).
	Transport string `mapstructure:"transport"`
	Port      int    `mapstructure:"port"`
	Bind      string `mapstructure:"bind"`
}

// Publish configures throttling and the downstream sink envelope.
type Publish struct {
	// Interval is the minimum time between publishes per message type.
	Interval time.Duration `mapstructure:"interval"`
	// ForceStatus bypasses the throttle for status publications.
	ForceStatus bool `mapstructure:"force_status"`
	// HeartbeatInterval controls the periodic liveness publication.
	// Zero falls back to Interval.
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	// QueueSize is the listener-to-coordinator handoff capacity.
	QueueSize int `mapstructure:"queue_size"`
}

type NATS struct {
	URL      string `mapstructure:"url"`
	Name     string `mapstructure:"name"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Token    string `mapstructure:"token"`
}

type Redis struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

type DLQ struct {
	Enabled bool   `mapstructure:"enabled"`
	NatsURL string `mapstructure:"nats_url"`
}

type Metrics struct {
	// Port exposes /metrics and /healthz; 0 disables the endpoint.
	Port int `mapstructure:"port"`
}

type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("listener.transport", "tcp")
	v.SetDefault("listener.port", 50222)
	v.SetDefault("listener.bind", "0.0.0.0")
	v.SetDefault("publish.interval", "60s")
	v.SetDefault("publish.force_status", true)
	v.SetDefault("publish.heartbeat_interval", "60s")
	v.SetDefault("publish.queue_size", 1024)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.name", "waggle-tempest")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("dlq.enabled", false)
	v.SetDefault("dlq.nats_url", "nats://localhost:4222")
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/waggle-tempest")
	}

	// Environment variables override: nested keys map to underscores,
	// e.g. TEMPEST_LISTENER_TRANSPORT overrides listener.transport
	v.SetEnvPrefix("TEMPEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Listener.Transport {
	case "udp", "tcp":
	default:
		return fmt.Errorf("invalid transport %q: must be udp or tcp", c.Listener.Transport)
	}
	if c.Listener.Port < 1 || c.Listener.Port > 65535 {
		return fmt.Errorf("invalid listen port %d", c.Listener.Port)
	}
	if c.Publish.Interval <= 0 {
		return fmt.Errorf("publish interval must be positive, got %s", c.Publish.Interval)
	}
	if c.Publish.QueueSize < 1 {
		return fmt.Errorf("publish queue size must be positive, got %d", c.Publish.QueueSize)
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("invalid metrics port %d", c.Metrics.Port)
	}
	return nil
}

// HeartbeatInterval returns the effective heartbeat period.
func (c *Config) HeartbeatInterval() time.Duration {
	if c.Publish.HeartbeatInterval > 0 {
		return c.Publish.HeartbeatInterval
	}
	return c.Publish.Interval
}
