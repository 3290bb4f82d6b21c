package audit

import (
	"context"
	"fmt"
	"strings"
)

// Logger records audit events to a backing sink.
type Logger interface {
	Record(ctx context.Context, event *Event) error
	Close() error
}

// MultiLogger fans events out to several sinks. A failing sink does not
// stop the others; the errors are joined.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a new MultiLogger
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Record writes the event to every sink.
func (m *MultiLogger) Record(ctx context.Context, event *Event) error {
	var failures []string
	for _, logger := range m.loggers {
		if err := logger.Record(ctx, event); err != nil {
			failures = append(failures, err.Error())
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("audit record failed: %s", strings.Join(failures, "; "))
	}
	return nil
}

// Close closes every sink.
func (m *MultiLogger) Close() error {
	var failures []string
	for _, logger := range m.loggers {
		if err := logger.Close(); err != nil {
			failures = append(failures, err.Error())
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("audit close failed: %s", strings.Join(failures, "; "))
	}
	return nil
}
