package logging

import (
	"go.uber.org/zap/zapcore"
)

// newSampledCore wraps core with level-aware sampling.
//
// Each level configured in cfg.Levels gets its own sampler. Unconfigured
// levels and Error and above are never sampled.
func newSampledCore(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled {
		return core
	}

	cores := []zapcore.Core{
		&levelFilterCore{Core: core, accept: func(l zapcore.Level) bool {
			if l >= zapcore.ErrorLevel {
				return true
			}
			_, sampled := cfg.Levels[l]
			return !sampled
		}},
	}

	for level, rate := range cfg.Levels {
		if level >= zapcore.ErrorLevel {
			continue
		}
		level := level
		only := &levelFilterCore{Core: core, accept: func(l zapcore.Level) bool { return l == level }}
		cores = append(cores, zapcore.NewSamplerWithOptions(
			only,
			cfg.Tick.Duration(),
			rate.Initial,
			rate.Thereafter,
		))
	}

	return zapcore.NewTee(cores...)
}

// levelFilterCore passes through only the levels accepted by accept.
type levelFilterCore struct {
	zapcore.Core
	accept func(zapcore.Level) bool
}

func (c *levelFilterCore) Enabled(lvl zapcore.Level) bool {
	return c.accept(lvl) && c.Core.Enabled(lvl)
}

func (c *levelFilterCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

// With creates a child core that preserves level filtering.
func (c *levelFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelFilterCore{
		Core:   c.Core.With(fields),
		accept: c.accept,
	}
}
