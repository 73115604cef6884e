package gateway

import "errors"

// Domain errors for the gateway.
var (
	// ErrInvalidOptions is returned when required options are missing.
	ErrInvalidOptions = errors.New("gateway: invalid options")

	// ErrUnknownFamily is returned for a family name without a decoder set.
	ErrUnknownFamily = errors.New("gateway: unknown family")

	// ErrInvalidDevice is returned when a configured device cannot be bound.
	ErrInvalidDevice = errors.New("gateway: invalid device")

	// ErrInvalidLearnRequest is returned for unparseable learn mode requests.
	ErrInvalidLearnRequest = errors.New("gateway: invalid learn request")
)
