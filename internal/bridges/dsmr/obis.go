package dsmr

import (
	"fmt"
	"strconv"
	"strings"
)

// FamilyName is the family identifier used in bindings and topics.
const FamilyName = "dsmr"

// OBIS is an object identification reference "A-B:C.D.E".
type OBIS struct {
	A, B, C, D, E byte
}

// Family implements telegram.ProfileKey.
func (o OBIS) Family() string { return FamilyName }

// String returns "A-B:C.D.E".
func (o OBIS) String() string {
	return fmt.Sprintf("%d-%d:%d.%d.%d", o.A, o.B, o.C, o.D, o.E)
}

// ParseOBIS parses "A-B:C.D.E". A trailing ".F" or "*F" group is ignored.
func ParseOBIS(s string) (OBIS, error) {
	ab, cde, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return OBIS{}, fmt.Errorf("%w: %q", ErrInvalidOBIS, s)
	}
	a, b, ok := strings.Cut(ab, "-")
	if !ok {
		return OBIS{}, fmt.Errorf("%w: %q", ErrInvalidOBIS, s)
	}
	if i := strings.IndexByte(cde, '*'); i >= 0 {
		cde = cde[:i]
	}
	rest := strings.Split(cde, ".")
	if len(rest) != 3 && len(rest) != 4 {
		return OBIS{}, fmt.Errorf("%w: %q", ErrInvalidOBIS, s)
	}

	var out [5]byte
	for i, part := range append([]string{a, b}, rest[:3]...) {
		v, err := strconv.ParseUint(part, 10, 8)
		if err != nil {
			return OBIS{}, fmt.Errorf("%w: %q", ErrInvalidOBIS, s)
		}
		out[i] = byte(v)
	}
	return OBIS{A: out[0], B: out[1], C: out[2], D: out[3], E: out[4]}, nil
}
