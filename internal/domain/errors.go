package domain

import "errors"

var (
	// ErrUnknownCategory is returned when a category name is not recognized.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrRunFinalized is returned when a record is appended after Finalize.
	ErrRunFinalized = errors.New("collection run already finalized")
)
