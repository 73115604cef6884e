package store

import "errors"

var (
	// ErrInvalidRecord is returned when a record lacks a required field.
	ErrInvalidRecord = errors.New("store: invalid record")

	// ErrInvalidRetention is returned for a non-positive retention period.
	ErrInvalidRetention = errors.New("store: retention must be positive")
)
