package knx

import "errors"

var (
	ErrInvalidGroupAddress = errors.New("knx: bad group address")
	ErrInvalidDPT          = errors.New("knx: bad datapoint type")
	ErrInvalidTelegram     = errors.New("knx: malformed telegram")

	// ErrShortPayload means the payload has fewer octets than the
	// datapoint type needs.
	ErrShortPayload = errors.New("knx: payload too short")

	// ErrNoValue is the 2-octet float 0x7FFF the bus uses for
	// "sensor fault or not available".
	ErrNoValue = errors.New("knx: no value")
)
