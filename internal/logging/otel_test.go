package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/noop"
)

func TestNewDualCore(t *testing.T) {
	tests := []struct {
		name         string
		stdout, otel bool
		provider     log.LoggerProvider
		wantErr      bool
	}{
		{name: "stdout only", stdout: true},
		{name: "stdout and otel", stdout: true, otel: true, provider: noop.NewLoggerProvider()},
		{name: "otel only", otel: true, provider: noop.NewLoggerProvider()},
		{name: "otel without provider", otel: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			cfg.Output = OutputConfig{Stdout: tt.stdout, OTEL: tt.otel}

			core, err := newDualCore(cfg, tt.provider)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "at least one output")
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, core)
		})
	}
}

func TestNewLogger_OTELOnly(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Output = OutputConfig{OTEL: true}

	logger, err := NewLogger(cfg, noop.NewLoggerProvider())
	require.NoError(t, err)
	assert.NotNil(t, logger)
}
