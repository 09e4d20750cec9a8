// Package config provides configuration loading for memvec.
//
// Values come from three layers, highest precedence first: MEMVEC_*
// environment variables, a YAML or TOML file, and the defaults returned by
// Default.
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

// Config holds the complete memvec configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Store      StoreConfig      `koanf:"store"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	Logging    LoggingConfig    `koanf:"logging"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`

	// RateLimit is the allowed requests per second per client. 0 disables limiting.
	RateLimit float64 `koanf:"rate_limit"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StoreConfig holds vector store configuration.
type StoreConfig struct {
	// Path is the JSON snapshot file. A leading "~/" is expanded.
	Path             string  `koanf:"path"`
	DefaultTopK      int     `koanf:"default_top_k"`
	DefaultThreshold float64 `koanf:"default_threshold"`

	// Watch reloads the store when the snapshot file changes on disk.
	Watch         bool     `koanf:"watch"`
	WatchDebounce Duration `koanf:"watch_debounce"`

	// RedactSecrets replaces detected credentials in added documents with
	// [REDACTED:<rule>] markers before embedding.
	RedactSecrets    bool   `koanf:"redact_secrets"`
	SecretsAllowlist string `koanf:"secrets_allowlist"`
}

// EmbeddingsConfig holds embedding provider configuration.
type EmbeddingsConfig struct {
	Provider string `koanf:"provider"` // "fastembed" or "tei"
	Model    string `koanf:"model"`
	BaseURL  string `koanf:"base_url"`
	APIKey   Secret `koanf:"api_key"`

	// Dimension overrides the dimension detected from the model name. 0 means detect.
	Dimension int    `koanf:"dimension"`
	CacheDir  string `koanf:"cache_dir"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	OTEL   bool   `koanf:"otel"`
}

// TelemetryConfig holds OpenTelemetry export configuration.
type TelemetryConfig struct {
	Enabled         bool     `koanf:"enabled"`
	Endpoint        string   `koanf:"endpoint"`
	Protocol        string   `koanf:"protocol"` // "grpc" or "http/protobuf"
	ServiceName     string   `koanf:"service_name"`
	ServiceVersion  string   `koanf:"service_version"`
	Insecure        bool     `koanf:"insecure"`
	SamplingRate    float64  `koanf:"sampling_rate"`
	MetricsEnabled  bool     `koanf:"metrics_enabled"`
	ExportInterval  Duration `koanf:"export_interval"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            9191,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Store: StoreConfig{
			Path:             "~/.local/share/memvec/store.json",
			DefaultTopK:      4,
			DefaultThreshold: 0,
			WatchDebounce:    Duration(500 * time.Millisecond),
		},
		Embeddings: EmbeddingsConfig{
			Provider: "fastembed",
			Model:    "BAAI/bge-small-en-v1.5",
			BaseURL:  "http://localhost:8080",
			CacheDir: "~/.cache/memvec/models",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Enabled:         false,
			Endpoint:        "localhost:4317",
			Protocol:        "grpc",
			ServiceName:     "memvec",
			ServiceVersion:  "0.1.0",
			Insecure:        true,
			SamplingRate:    1.0,
			MetricsEnabled:  true,
			ExportInterval:  Duration(15 * time.Second),
			ShutdownTimeout: Duration(5 * time.Second),
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative: %v", c.Server.RateLimit)
	}

	if c.Store.Path == "" {
		return errors.New("store path is required")
	}
	if c.Store.DefaultTopK <= 0 {
		return fmt.Errorf("store default_top_k must be positive, got %d", c.Store.DefaultTopK)
	}
	if c.Store.DefaultThreshold < 0 || c.Store.DefaultThreshold > 1 {
		return fmt.Errorf("store default_threshold must be in [0,1], got %v", c.Store.DefaultThreshold)
	}
	if c.Store.Watch && c.Store.WatchDebounce.Duration() <= 0 {
		return errors.New("store watch_debounce must be positive when watch is enabled")
	}

	switch c.Embeddings.Provider {
	case "fastembed":
	case "tei":
		if c.Embeddings.BaseURL == "" {
			return errors.New("embeddings base_url is required for the tei provider")
		}
	default:
		return fmt.Errorf("unknown embeddings provider %q (expected fastembed or tei)", c.Embeddings.Provider)
	}
	if c.Embeddings.Dimension < 0 {
		return fmt.Errorf("embeddings dimension cannot be negative: %d", c.Embeddings.Dimension)
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format)
	}
	if !strings.EqualFold(c.Logging.Level, "trace") {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(c.Logging.Level)); err != nil {
			return fmt.Errorf("invalid logging level %q: %w", c.Logging.Level, err)
		}
	}

	return c.Telemetry.Validate()
}

// Validate checks telemetry settings. Disabled telemetry is always valid.
func (c *TelemetryConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Endpoint == "" {
		return errors.New("telemetry endpoint is required when telemetry is enabled")
	}
	if c.ServiceName == "" {
		return errors.New("telemetry service_name is required when telemetry is enabled")
	}
	if c.Insecure && !c.isLocalEndpoint() {
		return errors.New("insecure telemetry export is only allowed to a local endpoint (localhost/127.0.0.1); set insecure=false for TLS")
	}
	if c.Protocol != "" && c.Protocol != "grpc" && c.Protocol != "http/protobuf" {
		return fmt.Errorf("telemetry protocol must be grpc or http/protobuf, got %q", c.Protocol)
	}
	if c.SamplingRate < 0 || c.SamplingRate > 1 {
		return fmt.Errorf("telemetry sampling_rate must be between 0 and 1, got %v", c.SamplingRate)
	}
	if c.MetricsEnabled && c.ExportInterval.Duration() <= 0 {
		return errors.New("telemetry export_interval must be positive when metrics are enabled")
	}
	if c.ShutdownTimeout.Duration() <= 0 {
		return errors.New("telemetry shutdown_timeout must be positive")
	}
	return nil
}

// isLocalEndpoint reports whether Endpoint points at the loopback interface.
func (c *TelemetryConfig) isLocalEndpoint() bool {
	host := strings.TrimPrefix(strings.TrimPrefix(c.Endpoint, "https://"), "http://")
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	return host == "localhost" || host == "::1" || strings.HasPrefix(host, "127.")
}
