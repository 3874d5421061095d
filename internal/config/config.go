package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// HTTP API and /metrics.
	Port int `env:"PORT" envDefault:"9102"`
	// TCP/UDP line ingestion; 0 disables it.
	IngestPort int `env:"INGEST_PORT" envDefault:"5140"`

	CheckoutDir  string `env:"CHECKOUT_DIR"`
	OutputFormat string `env:"OUTPUT_FORMAT" envDefault:"teamcity"`
	WebhookURL   string `env:"WEBHOOK_URL"`
	QueueSize    int    `env:"QUEUE_SIZE" envDefault:"1000"`

	// Resources enabled with build scope whenever a build starts.
	Parsers []string `env:"PARSERS" envSeparator:","`

	TailPoll       bool          `env:"TAIL_POLL" envDefault:"true"`
	WatchInterval  time.Duration `env:"WATCH_INTERVAL" envDefault:"5s"`
	SampleInterval time.Duration `env:"SAMPLE_INTERVAL" envDefault:"5s"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the agent cannot run with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.IngestPort < 0 || c.IngestPort > 65535 {
		return fmt.Errorf("invalid INGEST_PORT %d", c.IngestPort)
	}
	switch c.OutputFormat {
	case "teamcity", "plain":
	default:
		return fmt.Errorf("invalid OUTPUT_FORMAT %q", c.OutputFormat)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("invalid QUEUE_SIZE %d", c.QueueSize)
	}
	if c.WatchInterval <= 0 || c.SampleInterval <= 0 {
		return fmt.Errorf("intervals must be positive")
	}
	return nil
}
