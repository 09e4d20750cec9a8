package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v, want nil", err)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("Server.Port = %d, want 9191", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout.Duration() != 10*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 10s", cfg.Server.ShutdownTimeout.Duration())
	}
	if cfg.Store.DefaultTopK != 4 {
		t.Errorf("Store.DefaultTopK = %d, want 4", cfg.Store.DefaultTopK)
	}
	if cfg.Embeddings.Provider != "fastembed" {
		t.Errorf("Embeddings.Provider = %q, want fastembed", cfg.Embeddings.Provider)
	}
	if cfg.Telemetry.Enabled {
		t.Error("Telemetry.Enabled = true, want false (disabled by default)")
	}
	if got := cfg.Server.Addr(); got != "127.0.0.1:9191" {
		t.Errorf("Server.Addr() = %q, want 127.0.0.1:9191", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid defaults", mutate: func(*Config) {}},
		{name: "port zero", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "invalid server port"},
		{name: "port too high", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "invalid server port"},
		{name: "zero shutdown timeout", mutate: func(c *Config) { c.Server.ShutdownTimeout = 0 }, wantErr: "shutdown timeout"},
		{name: "negative rate limit", mutate: func(c *Config) { c.Server.RateLimit = -1 }, wantErr: "rate limit"},
		{name: "empty store path", mutate: func(c *Config) { c.Store.Path = "" }, wantErr: "store path"},
		{name: "zero top-k", mutate: func(c *Config) { c.Store.DefaultTopK = 0 }, wantErr: "default_top_k"},
		{name: "threshold above one", mutate: func(c *Config) { c.Store.DefaultThreshold = 1.5 }, wantErr: "default_threshold"},
		{name: "watch without debounce", mutate: func(c *Config) {
			c.Store.Watch = true
			c.Store.WatchDebounce = 0
		}, wantErr: "watch_debounce"},
		{name: "unknown provider", mutate: func(c *Config) { c.Embeddings.Provider = "openai" }, wantErr: "unknown embeddings provider"},
		{name: "tei without url", mutate: func(c *Config) {
			c.Embeddings.Provider = "tei"
			c.Embeddings.BaseURL = ""
		}, wantErr: "base_url"},
		{name: "negative dimension", mutate: func(c *Config) { c.Embeddings.Dimension = -1 }, wantErr: "dimension"},
		{name: "bad log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "logging format"},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: "logging level"},
		{name: "trace level", mutate: func(c *Config) { c.Logging.Level = "trace" }},
		{name: "telemetry without endpoint", mutate: func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.Endpoint = ""
		}, wantErr: "telemetry endpoint"},
		{name: "telemetry bad protocol", mutate: func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.Protocol = "udp"
		}, wantErr: "telemetry protocol"},
		{name: "telemetry bad sampling", mutate: func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.SamplingRate = 2
		}, wantErr: "sampling_rate"},
		{name: "telemetry insecure remote", mutate: func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.Endpoint = "collector.example.com:4317"
		}, wantErr: "local endpoint"},
		{name: "telemetry tls remote", mutate: func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.Endpoint = "collector.example.com:4317"
			c.Telemetry.Insecure = false
		}},
		{name: "telemetry insecure ipv6 loopback", mutate: func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.Endpoint = "[::1]:4317"
		}},
		{name: "disabled telemetry is not validated", mutate: func(c *Config) {
			c.Telemetry.Endpoint = ""
			c.Telemetry.SamplingRate = 2
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() error = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
