package transport

import "errors"

// Domain errors for the transport package.
var (
	// ErrInvalidEndpoint is returned when an endpoint URL cannot be used.
	ErrInvalidEndpoint = errors.New("transport: invalid endpoint")

	// ErrConnectionFailed is returned when opening or handshaking an
	// endpoint fails.
	ErrConnectionFailed = errors.New("transport: connection failed")

	// ErrInvalidConfig is returned by New for incomplete configuration.
	ErrInvalidConfig = errors.New("transport: invalid config")
)
