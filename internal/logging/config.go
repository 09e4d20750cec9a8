package logging

import (
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/memvec/internal/config"
	"go.uber.org/zap/zapcore"
)

// Config is the resolved logger configuration. Build it with
// NewDefaultConfig or FromAppConfig.
type Config struct {
	Level      zapcore.Level
	Format     string // "json" or "console"
	Output     OutputConfig
	Sampling   SamplingConfig
	Caller     CallerConfig
	Stacktrace StacktraceConfig

	// Fields are attached to every entry.
	Fields map[string]string
}

type (
	OutputConfig struct {
		Stdout bool
		OTEL   bool // requires a LoggerProvider in NewLogger
	}

	SamplingConfig struct {
		Enabled bool
		Tick    config.Duration
		Levels  map[zapcore.Level]LevelSamplingConfig
	}

	// LevelSamplingConfig keeps the first Initial entries with the same
	// message per tick, then every Thereafter-th. Thereafter 0 drops the rest.
	LevelSamplingConfig struct {
		Initial    int
		Thereafter int
	}

	CallerConfig struct {
		Enabled bool
		Skip    int
	}

	StacktraceConfig struct {
		Level zapcore.Level
	}
)

func NewDefaultConfig() *Config {
	return &Config{
		Level:  zapcore.InfoLevel,
		Format: "json",
		Output: OutputConfig{Stdout: true},
		Sampling: SamplingConfig{
			Enabled: true,
			Tick:    config.Duration(time.Second),
			Levels:  DefaultLevelSamplingConfig(),
		},
		// Logger.<Level> and Logger.write sit between zap and the caller.
		Caller:     CallerConfig{Enabled: true, Skip: 2},
		Stacktrace: StacktraceConfig{Level: zapcore.ErrorLevel},
		Fields:     map[string]string{"service": "memvec"},
	}
}

// FromAppConfig applies the [logging] section on top of the defaults.
func FromAppConfig(c config.LoggingConfig) (*Config, error) {
	cfg := NewDefaultConfig()
	if c.Level != "" {
		lvl, err := LevelFromString(c.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid level %q: %w", c.Level, err)
		}
		cfg.Level = lvl
	}
	if c.Format != "" {
		cfg.Format = c.Format
	}
	cfg.Output.OTEL = c.OTEL
	return cfg, nil
}

// DefaultLevelSamplingConfig samples the chatty levels. Error and above, and
// any level missing from the map, pass unsampled.
func DefaultLevelSamplingConfig() map[zapcore.Level]LevelSamplingConfig {
	return map[zapcore.Level]LevelSamplingConfig{
		TraceLevel:         {Initial: 1},
		zapcore.DebugLevel: {Initial: 10},
		zapcore.InfoLevel:  {Initial: 100, Thereafter: 10},
		zapcore.WarnLevel:  {Initial: 100, Thereafter: 100},
	}
}

func (c *Config) Validate() error {
	switch {
	case c.Format != "json" && c.Format != "console":
		return fmt.Errorf("format must be 'json' or 'console', got %q", c.Format)
	case !c.Output.Stdout && !c.Output.OTEL:
		return errors.New("at least one output must be enabled (stdout or otel)")
	case c.Sampling.Enabled && c.Sampling.Tick <= 0:
		return errors.New("sampling tick must be > 0 when sampling is enabled")
	case c.Caller.Enabled && c.Caller.Skip < 0:
		return fmt.Errorf("caller skip must be >= 0, got %d", c.Caller.Skip)
	}
	for k, v := range c.Fields {
		if k == "" {
			return errors.New("field key cannot be empty")
		}
		if v == "" {
			return fmt.Errorf("field %q has empty value", k)
		}
	}
	return nil
}
