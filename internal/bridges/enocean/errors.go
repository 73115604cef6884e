package enocean

import "errors"

// Domain errors for the EnOcean family.
var (
	// ErrInvalidEEP is returned when an EEP string cannot be parsed.
	ErrInvalidEEP = errors.New("enocean: invalid EEP")

	// ErrInvalidPacket is returned when ESP3 framing is broken.
	ErrInvalidPacket = errors.New("enocean: invalid ESP3 packet")

	// ErrChecksum is returned when an ESP3 CRC8 does not match.
	ErrChecksum = errors.New("enocean: CRC8 mismatch")

	// ErrInvalidTelegram is returned when an ERP1 telegram is too short
	// for its RORG.
	ErrInvalidTelegram = errors.New("enocean: invalid radio telegram")
)
