package logging

import (
	"errors"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap/zapcore"
)

const otelScope = "github.com/fyrsmithlabs/memvec"

// newDualCore tees stdout and the OTEL log bridge, then applies sampling.
// The OTEL output is skipped when lp is nil.
func newDualCore(cfg *Config, lp log.LoggerProvider) (zapcore.Core, error) {
	var cores []zapcore.Core
	if cfg.Output.Stdout {
		cores = append(cores, zapcore.NewCore(newEncoder(cfg.Format), zapcore.Lock(os.Stdout), cfg.Level))
	}
	if cfg.Output.OTEL && lp != nil {
		cores = append(cores, otelzap.NewCore(otelScope, otelzap.WithLoggerProvider(lp)))
	}

	switch len(cores) {
	case 0:
		return nil, errors.New("at least one output must be enabled and available")
	case 1:
		return newSampledCore(cores[0], cfg.Sampling), nil
	default:
		return newSampledCore(zapcore.NewTee(cores...), cfg.Sampling), nil
	}
}
