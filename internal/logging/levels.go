package logging

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// TraceLevel sits one step below Debug. The store logs per-document scoring
// at this level.
const TraceLevel zapcore.Level = zapcore.DebugLevel - 1

// LevelFromString parses zap level names plus "trace", case-insensitively.
func LevelFromString(s string) (zapcore.Level, error) {
	if strings.EqualFold(s, "trace") {
		return TraceLevel, nil
	}
	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel, err
	}
	return lvl, nil
}
