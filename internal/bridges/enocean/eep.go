package enocean

import (
	"fmt"
	"strconv"
	"strings"
)

// FamilyName is the family identifier used in bindings and topics.
const FamilyName = "enocean"

// RORG values.
const (
	RORGRPS byte = 0xF6 // repeated switch communication
	RORG1BS byte = 0xD5 // 1 byte communication
	RORG4BS byte = 0xA5 // 4 byte communication
	RORGVLD byte = 0xD2 // variable length data
	RORGSIG byte = 0xD0 // signal telegram
	RORGUTE byte = 0xD4 // universal teach-in
)

// Manufacturer IDs with vendor-specific profile variants.
const (
	ManufacturerGeneric uint16 = 0x000
	ManufacturerEltako  uint16 = 0x00D
)

var manufacturerNames = map[uint16]string{
	ManufacturerEltako: "ELTAKO",
}

// EEP is an EnOcean Equipment Profile key.
type EEP struct {
	RORG         byte
	Func         byte
	Type         byte
	Manufacturer uint16
}

// Family implements telegram.ProfileKey.
func (e EEP) Family() string { return FamilyName }

// String returns "RR-FF-TT", with "/VENDOR" appended for manufacturer
// variants.
func (e EEP) String() string {
	s := fmt.Sprintf("%02X-%02X-%02X", e.RORG, e.Func, e.Type)
	if e.Manufacturer == ManufacturerGeneric {
		return s
	}
	if name, ok := manufacturerNames[e.Manufacturer]; ok {
		return s + "/" + name
	}
	return fmt.Sprintf("%s/%03X", s, e.Manufacturer)
}

// Generic returns the key without its manufacturer.
func (e EEP) Generic() EEP {
	e.Manufacturer = ManufacturerGeneric
	return e
}

// ParseEEP parses "A5-06-01", "a5-06-01/ELTAKO" or "A5-06-01/00D".
func ParseEEP(s string) (EEP, error) {
	base, vendor, hasVendor := strings.Cut(strings.TrimSpace(s), "/")

	parts := strings.Split(base, "-")
	if len(parts) != 3 {
		return EEP{}, fmt.Errorf("%w: %q", ErrInvalidEEP, s)
	}

	var fields [3]byte
	for i, p := range parts {
		if len(p) != 2 {
			return EEP{}, fmt.Errorf("%w: %q", ErrInvalidEEP, s)
		}
		v, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return EEP{}, fmt.Errorf("%w: %q", ErrInvalidEEP, s)
		}
		fields[i] = byte(v)
	}

	eep := EEP{RORG: fields[0], Func: fields[1], Type: fields[2]}
	if hasVendor {
		m, err := parseManufacturer(vendor)
		if err != nil {
			return EEP{}, fmt.Errorf("%w: %q: %v", ErrInvalidEEP, s, err)
		}
		eep.Manufacturer = m
	}
	return eep, nil
}

func parseManufacturer(s string) (uint16, error) {
	upper := strings.ToUpper(s)
	for id, name := range manufacturerNames {
		if name == upper {
			return id, nil
		}
	}
	v, err := strconv.ParseUint(s, 16, 11)
	if err != nil {
		return 0, fmt.Errorf("unknown manufacturer %q", s)
	}
	return uint16(v), nil
}
