package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024 // 1MB

// Load reads configuration from the YAML file at configPath (skipped when
// empty or absent), then overrides with environment variables.
//
// Precedence (highest to lowest):
//  1. Environment variables (SERVER_PORT, PIPELINE_VISUAL_THRESHOLD, ...)
//  2. YAML config file
//  3. Hardcoded defaults
//
// Environment variables map to config keys by splitting on the first
// underscore: SERVER_PORT -> server.port, NATS_SUBJECT -> nats.subject,
// PIPELINE_MAX_FIX_ITERATIONS -> pipeline.max_fix_iterations.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			f, err := os.Open(configPath)
			if err != nil {
				return nil, fmt.Errorf("failed to open config file: %w", err)
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				return nil, fmt.Errorf("failed to stat config file: %w", err)
			}
			if info.Size() > maxConfigFileSize {
				return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
			}

			content, err := io.ReadAll(f)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		// SECTION_FIELD_NAME -> section.field_name
		lower := strings.ToLower(s)
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9190
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://localhost:4222"
	}
	if cfg.NATS.Subject == "" {
		cfg.NATS.Subject = "pipeline.run"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Pipeline.VisualThreshold == 0 {
		cfg.Pipeline.VisualThreshold = 85
	}
	if cfg.Pipeline.MaxFixIterations == 0 {
		cfg.Pipeline.MaxFixIterations = 3
	}
	if cfg.Pipeline.AssetBatchSize == 0 {
		cfg.Pipeline.AssetBatchSize = 10
	}
	if cfg.Pipeline.MinMarkupLength == 0 {
		cfg.Pipeline.MinMarkupLength = 500
	}
	if cfg.Pipeline.MaxImageBytes == 0 {
		cfg.Pipeline.MaxImageBytes = 800 * 1024
	}
	if cfg.Pipeline.LinkCheckLimit == 0 {
		cfg.Pipeline.LinkCheckLimit = 20
	}

	if cfg.Pipeline.Timeouts.HeadCheck == 0 {
		cfg.Pipeline.Timeouts.HeadCheck = 5 * time.Second
	}
	if cfg.Pipeline.Timeouts.Screenshot == 0 {
		cfg.Pipeline.Timeouts.Screenshot = 30 * time.Second
	}
	if cfg.Pipeline.Timeouts.Audit == 0 {
		cfg.Pipeline.Timeouts.Audit = 60 * time.Second
	}
	if cfg.Pipeline.Timeouts.PageFetch == 0 {
		cfg.Pipeline.Timeouts.PageFetch = 15 * time.Second
	}

	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "pipelined"
	}
	if cfg.Telemetry.ServiceVersion == "" {
		cfg.Telemetry.ServiceVersion = "0.1.0"
	}
	if cfg.Telemetry.SampleRate == 0 {
		cfg.Telemetry.SampleRate = 1.0
	}
	if cfg.Telemetry.MetricInterval == 0 {
		cfg.Telemetry.MetricInterval = 15 * time.Second
	}
	if cfg.Telemetry.ShutdownTimeout == 0 {
		cfg.Telemetry.ShutdownTimeout = 5 * time.Second
	}

	if cfg.AI.RatePerSecond == 0 {
		cfg.AI.RatePerSecond = 2
	}
	if cfg.AI.Burst == 0 {
		cfg.AI.Burst = 4
	}
	if cfg.AI.MaxTokens == 0 {
		cfg.AI.MaxTokens = 4096
	}
}
