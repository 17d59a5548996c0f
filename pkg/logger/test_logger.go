package logger

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// TestLogger captures log messages for assertions
type TestLogger struct {
	sink   *testSink
	fields map[string]interface{}
}

type testSink struct {
	mu       sync.Mutex
	messages []LogMessage
}

// LogMessage represents a captured log message
type LogMessage struct {
	Level   string
	Message string
	Fields  map[string]interface{}
}

// NewTestLogger creates a new test logger
func NewTestLogger() *TestLogger {
	return &TestLogger{sink: &testSink{}, fields: map[string]interface{}{}}
}

func (t *TestLogger) record(level, msg string, extra map[string]interface{}) {
	fields := make(map[string]interface{}, len(t.fields)+len(extra))
	for k, v := range t.fields {
		fields[k] = v
	}
	for k, v := range extra {
		fields[k] = v
	}

	t.sink.mu.Lock()
	defer t.sink.mu.Unlock()
	t.sink.messages = append(t.sink.messages, LogMessage{Level: level, Message: msg, Fields: fields})
}

func (t *TestLogger) Debug(msg string) { t.record("debug", msg, nil) }
func (t *TestLogger) Info(msg string)  { t.record("info", msg, nil) }
func (t *TestLogger) Warn(msg string)  { t.record("warn", msg, nil) }
func (t *TestLogger) Error(msg string) { t.record("error", msg, nil) }

func (t *TestLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	t.record("debug", msg, fields)
}

func (t *TestLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	t.record("info", msg, fields)
}

func (t *TestLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	t.record("warn", msg, fields)
}

func (t *TestLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	t.record("error", msg, fields)
}

// WithField returns a logger sharing this logger's captured messages
func (t *TestLogger) WithField(key string, value interface{}) Logger {
	return t.WithFields(map[string]interface{}{key: value})
}

func (t *TestLogger) WithFields(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(t.fields)+len(fields))
	for k, v := range t.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &TestLogger{sink: t.sink, fields: merged}
}

func (t *TestLogger) WithError(err error) Logger {
	if err == nil {
		return t
	}
	return t.WithField("error", err.Error())
}

func (t *TestLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}

// GetMessages returns a copy of all captured messages
func (t *TestLogger) GetMessages() []LogMessage {
	t.sink.mu.Lock()
	defer t.sink.mu.Unlock()
	out := make([]LogMessage, len(t.sink.messages))
	copy(out, t.sink.messages)
	return out
}

// GetMessagesByLevel returns captured messages of one level
func (t *TestLogger) GetMessagesByLevel(level string) []LogMessage {
	var out []LogMessage
	for _, msg := range t.GetMessages() {
		if msg.Level == level {
			out = append(out, msg)
		}
	}
	return out
}

// HasMessage checks if a message containing text was logged at level
func (t *TestLogger) HasMessage(level, text string) bool {
	for _, msg := range t.GetMessagesByLevel(level) {
		if strings.Contains(msg.Message, text) {
			return true
		}
	}
	return false
}

// Clear drops all captured messages
func (t *TestLogger) Clear() {
	t.sink.mu.Lock()
	defer t.sink.mu.Unlock()
	t.sink.messages = nil
}
