package common

import "errors"

var (
	// ErrLoggerRequired is returned when CommandDeps.Logger is nil
	ErrLoggerRequired = errors.New("logger is required")

	// ErrConfigRequired is returned when CommandDeps.Config is nil
	ErrConfigRequired = errors.New("config is required")

	// ErrDatabaseDisabled is returned by commands that need the run history
	// when database.enabled is false.
	ErrDatabaseDisabled = errors.New("database is disabled (set database.enabled or DATABASE_ENABLED)")
)
