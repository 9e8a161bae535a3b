// Package config provides configuration loading for pipelined.
package config

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/pipelined/internal/telemetry"
)

// Config is the full daemon configuration.
type Config struct {
	Server    ServerConfig     `koanf:"server"`
	NATS      NATSConfig       `koanf:"nats"`
	Logging   LoggingConfig    `koanf:"logging"`
	Pipeline  PipelineConfig   `koanf:"pipeline"`
	AI        AIConfig         `koanf:"ai"`
	Telemetry telemetry.Config `koanf:"telemetry"`
}

// ServerConfig configures the HTTP trigger surface.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// NATSConfig configures the job-queue consumer.
type NATSConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
	Subject string `koanf:"subject"`
}

// LoggingConfig configures zap construction.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// PipelineConfig holds the tunable knobs of the phase handlers.
type PipelineConfig struct {
	VisualThreshold  int   `koanf:"visual_threshold"`
	MaxFixIterations int   `koanf:"max_fix_iterations"`
	AssetBatchSize   int   `koanf:"asset_batch_size"`
	MinMarkupLength  int   `koanf:"min_markup_length"`
	MaxImageBytes    int64 `koanf:"max_image_bytes"`
	LinkCheckLimit   int   `koanf:"link_check_limit"`

	Timeouts TimeoutConfig `koanf:"timeouts"`
}

// TimeoutConfig sets per-sub-operation budgets for best-effort calls.
type TimeoutConfig struct {
	HeadCheck  time.Duration `koanf:"head_check"`
	Screenshot time.Duration `koanf:"screenshot"`
	Audit      time.Duration `koanf:"audit"`
	PageFetch  time.Duration `koanf:"page_fetch"`
}

// AIConfig configures the AI collaborator wrapper.
type AIConfig struct {
	RatePerSecond float64 `koanf:"rate_per_second"`
	Burst         int     `koanf:"burst"`
	MaxTokens     int     `koanf:"max_tokens"`
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Pipeline.VisualThreshold < 0 || c.Pipeline.VisualThreshold > 100 {
		return fmt.Errorf("visual threshold must be in [0,100], got %d", c.Pipeline.VisualThreshold)
	}
	if c.Pipeline.MaxFixIterations < 0 {
		return fmt.Errorf("max fix iterations must be non-negative, got %d", c.Pipeline.MaxFixIterations)
	}
	if c.Pipeline.AssetBatchSize < 1 {
		return fmt.Errorf("asset batch size must be at least 1, got %d", c.Pipeline.AssetBatchSize)
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("invalid logging format: %s", c.Logging.Format)
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		return fmt.Errorf("nats is enabled but no url is set")
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	return nil
}
