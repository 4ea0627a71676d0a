package logger

import "time"

// NoOpLogger is a logger that does nothing.
type NoOpLogger struct{}

// NewNoOp creates a new no-op logger instance.
func NewNoOp() Interface {
	return &NoOpLogger{}
}

// Debug logs a debug message.
func (l *NoOpLogger) Debug(string, ...any) {}

// Info logs an info message.
func (l *NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (l *NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (l *NoOpLogger) Error(string, ...any) {}

// Fatal does nothing; it does not exit.
func (l *NoOpLogger) Fatal(string, ...any) {}

// With returns the same logger.
func (l *NoOpLogger) With(...any) Interface { return l }

// WithComponent returns the same logger.
func (l *NoOpLogger) WithComponent(string) Interface { return l }

// WithError returns the same logger.
func (l *NoOpLogger) WithError(error) Interface { return l }

// WithDuration returns the same logger.
func (l *NoOpLogger) WithDuration(time.Duration) Interface { return l }

// Sync is a no-op.
func (l *NoOpLogger) Sync() error { return nil }
