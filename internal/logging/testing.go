package logging

import (
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger is a Logger that records every entry, down to TraceLevel, for
// assertions.
type TestLogger struct {
	*Logger
	observed *observer.ObservedLogs
}

// NewTestLogger returns a recording logger.
func NewTestLogger() *TestLogger {
	core, observed := observer.New(TraceLevel)
	return &TestLogger{
		Logger:   &Logger{zap: zap.New(core), config: NewDefaultConfig()},
		observed: observed,
	}
}

// All returns every recorded entry.
func (t *TestLogger) All() []observer.LoggedEntry { return t.observed.All() }

// FilterMessage returns entries whose message equals msg.
func (t *TestLogger) FilterMessage(msg string) *observer.ObservedLogs {
	return t.observed.FilterMessage(msg)
}

// Reset discards recorded entries.
func (t *TestLogger) Reset() { t.observed.TakeAll() }

func (t *TestLogger) matching(level zapcore.Level, substr string) []observer.LoggedEntry {
	var out []observer.LoggedEntry
	for _, e := range t.observed.All() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			out = append(out, e)
		}
	}
	return out
}

// AssertLogged fails tb unless an entry at level contains substr.
func (t *TestLogger) AssertLogged(tb testing.TB, level zapcore.Level, substr string) {
	tb.Helper()
	if len(t.matching(level, substr)) == 0 {
		tb.Errorf("no %v entry containing %q; recorded: %+v", level, substr, t.observed.All())
	}
}

// AssertNotLogged fails tb if an entry at level contains substr.
func (t *TestLogger) AssertNotLogged(tb testing.TB, level zapcore.Level, substr string) {
	tb.Helper()
	if n := len(t.matching(level, substr)); n > 0 {
		tb.Errorf("found %d unexpected %v entries containing %q", n, level, substr)
	}
}

// AssertField fails tb unless an entry with message msg carries key=want.
// Integer fields are recorded as int64.
func (t *TestLogger) AssertField(tb testing.TB, msg, key string, want interface{}) {
	tb.Helper()
	entries := t.observed.FilterMessage(msg).All()
	for _, e := range entries {
		if got, ok := e.ContextMap()[key]; ok && reflect.DeepEqual(got, want) {
			return
		}
	}
	tb.Errorf("%d entries with message %q, none with %s=%v", len(entries), msg, key, want)
}

// AssertTraceCorrelation fails tb unless an entry with message msg has a trace_id.
func (t *TestLogger) AssertTraceCorrelation(tb testing.TB, msg string) {
	tb.Helper()
	for _, e := range t.observed.FilterMessage(msg).All() {
		if _, ok := e.ContextMap()["trace_id"]; ok {
			return
		}
	}
	tb.Errorf("no entry with message %q has a trace_id", msg)
}
