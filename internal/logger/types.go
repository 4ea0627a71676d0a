// Package logger wraps zap behind a small key/value logging interface.
package logger

// Level represents the logging level.
type Level string

const (
	// DebugLevel logs debug messages.
	DebugLevel Level = "debug"
	// InfoLevel logs info messages.
	InfoLevel Level = "info"
	// WarnLevel logs warning messages.
	WarnLevel Level = "warn"
	// ErrorLevel logs error messages.
	ErrorLevel Level = "error"
	// FatalLevel logs fatal messages and exits.
	FatalLevel Level = "fatal"
)

// Encodings supported by New.
const (
	EncodingConsole = "console"
	EncodingJSON    = "json"
)

// Config represents the logger configuration.
type Config struct {
	// Level is the minimum logging level.
	Level Level `mapstructure:"level" yaml:"level" json:"level"`
	// Development enables colored levels and human timestamps.
	Development bool `mapstructure:"development" yaml:"development" json:"development"`
	// Encoding is either "console" or "json".
	Encoding string `mapstructure:"encoding" yaml:"encoding" json:"encoding"`
	// OutputPaths lists the sinks log lines are written to.
	OutputPaths []string `mapstructure:"output_paths" yaml:"output_paths" json:"output_paths"`
}
