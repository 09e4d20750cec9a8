package logging

import (
	"context"
	"testing"
	"time"

	"github.com/fyrsmithlabs/memvec/internal/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newSampledTestLogger(cfg SamplingConfig) (*Logger, *observer.ObservedLogs) {
	core, observed := observer.New(TraceLevel)
	return &Logger{
		zap:    zap.New(newSampledCore(core, cfg)),
		config: NewDefaultConfig(),
	}, observed
}

func TestNewSampledCore_Disabled(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)

	sampled := newSampledCore(core, SamplingConfig{Enabled: false})

	assert.Equal(t, core, sampled)
}

func TestNewSampledCore_ErrorsNeverSampled(t *testing.T) {
	logger, observed := newSampledTestLogger(SamplingConfig{
		Enabled: true,
		Tick:    config.Duration(time.Minute),
		Levels: map[zapcore.Level]LevelSamplingConfig{
			zapcore.InfoLevel: {Initial: 5, Thereafter: 0},
			// Entries at Error and above are ignored.
			zapcore.ErrorLevel: {Initial: 1, Thereafter: 0},
		},
	})

	for i := 0; i < 100; i++ {
		logger.Error(context.Background(), "error message")
	}

	assert.Len(t, observed.FilterMessage("error message").All(), 100, "errors should never be sampled")
}

func TestNewSampledCore_InfoSampled(t *testing.T) {
	logger, observed := newSampledTestLogger(SamplingConfig{
		Enabled: true,
		Tick:    config.Duration(time.Minute),
		Levels: map[zapcore.Level]LevelSamplingConfig{
			zapcore.InfoLevel: {Initial: 5, Thereafter: 0},
		},
	})

	for i := 0; i < 20; i++ {
		logger.Info(context.Background(), "info message")
	}

	assert.Len(t, observed.FilterMessage("info message").All(), 5)
}

func TestNewSampledCore_Thereafter(t *testing.T) {
	logger, observed := newSampledTestLogger(SamplingConfig{
		Enabled: true,
		Tick:    config.Duration(time.Minute),
		Levels: map[zapcore.Level]LevelSamplingConfig{
			zapcore.InfoLevel: {Initial: 5, Thereafter: 5},
		},
	})

	for i := 0; i < 100; i++ {
		logger.Info(context.Background(), "repeated message")
	}

	// 5 initial, then every 5th of the remaining 95.
	assert.Len(t, observed.FilterMessage("repeated message").All(), 24)
}

func TestNewSampledCore_PerLevelRates(t *testing.T) {
	logger, observed := newSampledTestLogger(SamplingConfig{
		Enabled: true,
		Tick:    config.Duration(time.Minute),
		Levels: map[zapcore.Level]LevelSamplingConfig{
			zapcore.DebugLevel: {Initial: 2, Thereafter: 0},
			zapcore.InfoLevel:  {Initial: 10, Thereafter: 0},
		},
	})

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		logger.Debug(ctx, "debug message")
		logger.Info(ctx, "info message")
		logger.Warn(ctx, "warn message")
	}

	assert.Len(t, observed.FilterMessage("debug message").All(), 2)
	assert.Len(t, observed.FilterMessage("info message").All(), 10)
	assert.Len(t, observed.FilterMessage("warn message").All(), 20, "unconfigured levels pass through")
}

func TestLevelFilterCore_With(t *testing.T) {
	core, observed := observer.New(TraceLevel)

	filtered := &levelFilterCore{
		Core:   core,
		accept: func(l zapcore.Level) bool { return l >= zapcore.ErrorLevel },
	}

	logger := &Logger{
		zap:    zap.New(filtered),
		config: NewDefaultConfig(),
	}

	ctx := context.Background()
	child := logger.With(zap.String("component", "test"))

	child.Info(ctx, "info message")
	child.Warn(ctx, "warn message")
	child.Error(ctx, "error message")

	logs := observed.All()
	assert.Equal(t, 1, len(logs), "only error should pass through")
	assert.Equal(t, "error message", logs[0].Message)
	assert.Equal(t, "test", logs[0].ContextMap()["component"])
}
