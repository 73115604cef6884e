package dsmr

import "errors"

// Domain errors for the DSMR family.
var (
	// ErrInvalidOBIS is returned when an OBIS reference cannot be parsed.
	ErrInvalidOBIS = errors.New("dsmr: invalid OBIS code")

	// ErrInvalidTelegram is returned when a P1 telegram is malformed.
	ErrInvalidTelegram = errors.New("dsmr: invalid telegram")

	// ErrChecksum is returned when the telegram CRC does not match.
	ErrChecksum = errors.New("dsmr: CRC mismatch")
)
