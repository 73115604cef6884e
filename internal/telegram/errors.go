package telegram

import "errors"

// Domain errors for the decoding engine.
var (
	// ErrUnsupportedProfile is returned when no decoder is registered for a
	// profile key.
	ErrUnsupportedProfile = errors.New("telegram: unsupported profile")

	// ErrDuplicateProfile is returned when a profile key is registered twice.
	ErrDuplicateProfile = errors.New("telegram: duplicate profile")

	// ErrRegistryFrozen is returned when registering after Freeze.
	ErrRegistryFrozen = errors.New("telegram: registry is frozen")

	// ErrInvalidProfileKey is returned for nil or non-comparable keys.
	ErrInvalidProfileKey = errors.New("telegram: invalid profile key")

	// ErrDuplicateBinding is returned when two devices claim the same
	// family and address.
	ErrDuplicateBinding = errors.New("telegram: duplicate binding")

	// ErrInvalidBinding is returned when a binding is missing required fields.
	ErrInvalidBinding = errors.New("telegram: invalid binding")

	// ErrInvalidOptions is returned by NewDispatcher for incomplete options.
	ErrInvalidOptions = errors.New("telegram: invalid dispatcher options")
)
