// Package mocklogger records log calls for assertions in tests. Loggers
// derived through With share one recording, so entries logged by a component
// that rebinds the logger still show up on the root mock. Safe for
// concurrent use.
package mocklogger

import (
	"sync"

	"github.com/hugolhafner/go-changefeed/logger"
)

var _ logger.Logger = (*MockLogger)(nil)

type LogEntry struct {
	Level   logger.LogLevel
	Message string
	KV      []any
}

type MockLogger struct {
	sink *entrySink
	args []any
}

type entrySink struct {
	mu      sync.Mutex
	entries []LogEntry
}

func New() *MockLogger {
	return &MockLogger{sink: &entrySink{}}
}

func (m *MockLogger) Log(level logger.LogLevel, msg string, kv ...any) {
	all := make([]any, 0, len(m.args)+len(kv))
	all = append(all, m.args...)
	all = append(all, kv...)

	m.sink.mu.Lock()
	defer m.sink.mu.Unlock()
	m.sink.entries = append(m.sink.entries, LogEntry{
		Level:   level,
		Message: msg,
		KV:      all,
	})
}

func (m *MockLogger) Level() logger.LogLevel {
	return logger.DebugLevel
}

func (m *MockLogger) With(kv ...any) logger.Logger {
	args := make([]any, 0, len(m.args)+len(kv))
	args = append(args, m.args...)
	args = append(args, kv...)

	return &MockLogger{sink: m.sink, args: args}
}

func (m *MockLogger) Debug(msg string, kv ...any) {
	m.Log(logger.DebugLevel, msg, kv...)
}

func (m *MockLogger) Info(msg string, kv ...any) {
	m.Log(logger.InfoLevel, msg, kv...)
}

func (m *MockLogger) Warn(msg string, kv ...any) {
	m.Log(logger.WarnLevel, msg, kv...)
}

func (m *MockLogger) Error(msg string, kv ...any) {
	m.Log(logger.ErrorLevel, msg, kv...)
}

// Entries returns a snapshot of everything logged so far, across the root
// mock and every logger derived from it.
func (m *MockLogger) Entries() []LogEntry {
	m.sink.mu.Lock()
	defer m.sink.mu.Unlock()

	out := make([]LogEntry, len(m.sink.entries))
	copy(out, m.sink.entries)
	return out
}
