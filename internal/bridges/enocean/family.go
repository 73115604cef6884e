package enocean

import (
	"errors"

	"github.com/nerrad567/gray-logic-telegrams/internal/telegram"
)

// Family is the EnOcean telegram family.
type Family struct{}

var _ telegram.Family = Family{}

// Name returns "enocean".
func (Family) Name() string { return FamilyName }

// Validate checks ESP3 framing and checksums when present, then the ERP1
// length for the telegram's RORG. CRC8 mismatches yield CHECKSUM_ERROR;
// everything else that fails to parse is MALFORMED.
func (Family) Validate(data []byte) telegram.State {
	_, err := parseRadio(data)
	switch {
	case err == nil:
		return telegram.StateOK
	case errors.Is(err, ErrChecksum):
		return telegram.StateChecksumError
	default:
		return telegram.StateMalformed
	}
}

// IsTeachIn reports whether a validated telegram is a teach-in.
func (Family) IsTeachIn(data []byte) bool {
	r, err := parseRadio(data)
	if err != nil {
		return false
	}
	learn, _ := teachIn(r)
	return learn
}

// Split returns the single unit of a radio telegram. 4BS and UTE teach-in
// telegrams are marked SkipDecode because their data bytes describe the
// device rather than a measurement.
func (Family) Split(data []byte) ([]telegram.Unit, error) {
	r, err := parseRadio(data)
	if err != nil {
		return nil, err
	}

	learn, key := teachIn(r)
	u := telegram.Unit{
		Address:    r.Address(),
		Payload:    r.Payload(),
		TeachKey:   key,
		SkipDecode: learn && (r.RORG == RORG4BS || r.RORG == RORGUTE),
		Meta: map[string]telegram.Value{
			"repeatCount": telegram.Numeric(float64(r.RepeatCount()), ""),
		},
	}
	if r.HasLinkInfo {
		u.Meta["rssi"] = telegram.Numeric(float64(r.DBm), "dBm")
	}
	return []telegram.Unit{u}, nil
}

// ParseKey parses an EEP.
func (Family) ParseKey(s string) (telegram.ProfileKey, error) {
	return ParseEEP(s)
}

// LearnedKey maps a profile announced by a teach-in to a registered key:
// the manufacturer variant if one is registered, otherwise the generic
// profile.
func LearnedKey(reg *telegram.Registry, key EEP) EEP {
	if _, err := reg.Lookup(key); err == nil {
		return key
	}
	return key.Generic()
}
