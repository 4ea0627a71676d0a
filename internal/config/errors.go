package config

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigInvalid is wrapped by every validation failure.
	ErrConfigInvalid = errors.New("invalid configuration")

	// ErrMissingBaseURL is returned when a command needs a target site and none is configured.
	ErrMissingBaseURL = errors.New("target base url is required")
)

// ValidationError represents an error in configuration validation.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config: field %q with value %v: %s", e.Field, e.Value, e.Reason)
}

// Unwrap lets callers match ErrConfigInvalid.
func (e *ValidationError) Unwrap() error {
	return ErrConfigInvalid
}

// ViperError represents an error from viper.
type ViperError struct {
	Operation string
	Err       error
}

func (e *ViperError) Error() string {
	return fmt.Sprintf("viper error during %s: %v", e.Operation, e.Err)
}

func (e *ViperError) Unwrap() error {
	return e.Err
}
