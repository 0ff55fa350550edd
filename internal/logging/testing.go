package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// Observed is a logger whose entries are captured for assertions
type Observed struct {
	Logger *zap.Logger
	logs   *observer.ObservedLogs
}

// NewObserved creates a debug-level logger for tests
func NewObserved() *Observed {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Observed{Logger: zap.New(core), logs: logs}
}

// All returns all logged entries
func (o *Observed) All() []observer.LoggedEntry {
	return o.logs.All()
}

// Count returns how many entries at level contain msg
func (o *Observed) Count(level zapcore.Level, msgContains string) int {
	n := 0
	for _, entry := range o.logs.All() {
		if entry.Level == level && strings.Contains(entry.Message, msgContains) {
			n++
		}
	}
	return n
}

// AssertLogged verifies a log at level containing message was logged
func (o *Observed) AssertLogged(tb testing.TB, level zapcore.Level, msgContains string) {
	tb.Helper()
	if o.Count(level, msgContains) == 0 {
		tb.Errorf("expected log at %v containing %q, logs: %+v", level, msgContains, o.logs.All())
	}
}

// AssertNotLogged verifies no log at level containing message was logged
func (o *Observed) AssertNotLogged(tb testing.TB, level zapcore.Level, msgContains string) {
	tb.Helper()
	if n := o.Count(level, msgContains); n > 0 {
		tb.Errorf("unexpected %d logs at %v containing %q", n, level, msgContains)
	}
}
