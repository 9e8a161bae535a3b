package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid enabled config",
			mutate: func(c *Config) {},
		},
		{
			name:   "disabled config skips validation",
			mutate: func(c *Config) { *c = Config{Enabled: false} },
		},
		{
			name:    "missing endpoint",
			mutate:  func(c *Config) { c.Endpoint = "" },
			wantErr: "endpoint is required",
		},
		{
			name:    "missing service name",
			mutate:  func(c *Config) { c.ServiceName = "" },
			wantErr: "service_name is required",
		},
		{
			name:    "invalid protocol",
			mutate:  func(c *Config) { c.Protocol = "thrift" },
			wantErr: "invalid protocol",
		},
		{
			name:   "http protocol accepted",
			mutate: func(c *Config) { c.Protocol = "http/protobuf" },
		},
		{
			name:    "insecure remote endpoint rejected",
			mutate:  func(c *Config) { c.Endpoint = "collector.example.com:4317" },
			wantErr: "insecure connections to remote endpoints",
		},
		{
			name: "secure remote endpoint accepted",
			mutate: func(c *Config) {
				c.Endpoint = "collector.example.com:4317"
				c.Insecure = false
			},
		},
		{
			name:   "insecure loopback accepted",
			mutate: func(c *Config) { c.Endpoint = "127.0.0.1:4317" },
		},
		{
			name:   "insecure bracketed ipv6 loopback accepted",
			mutate: func(c *Config) { c.Endpoint = "[::1]:4317" },
		},
		{
			name:    "sample rate out of range",
			mutate:  func(c *Config) { c.SampleRate = 1.5 },
			wantErr: "sample_rate must be between 0 and 1",
		},
		{
			name:    "non-positive metric interval",
			mutate:  func(c *Config) { c.MetricInterval = 0 },
			wantErr: "metric_interval must be positive",
		},
		{
			name:    "non-positive shutdown timeout",
			mutate:  func(c *Config) { c.ShutdownTimeout = -time.Second },
			wantErr: "shutdown_timeout must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := enabledConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}
