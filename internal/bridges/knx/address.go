package knx

import (
	"fmt"
	"strconv"
	"strings"
)

// GroupAddress is a KNX group address in 3-level format Main/Middle/Sub
// (5/3/8 bits).
type GroupAddress struct {
	Main   uint8
	Middle uint8
	Sub    uint8
}

// Group address limits per KNX specification.
const (
	maxMain   = 31
	maxMiddle = 7
)

// ParseGroupAddress parses "main/middle/sub".
func ParseGroupAddress(s string) (GroupAddress, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return GroupAddress{}, fmt.Errorf("%w: expected 3-level format (main/middle/sub), got %q", ErrInvalidGroupAddress, s)
	}

	limits := [3]uint64{maxMain, maxMiddle, 255}
	var levels [3]uint8
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 8)
		if err != nil || v > limits[i] {
			return GroupAddress{}, fmt.Errorf("%w: level %d must be 0-%d, got %q", ErrInvalidGroupAddress, i+1, limits[i], p)
		}
		levels[i] = uint8(v)
	}

	return GroupAddress{Main: levels[0], Middle: levels[1], Sub: levels[2]}, nil
}

// String returns "main/middle/sub".
func (ga GroupAddress) String() string {
	return fmt.Sprintf("%d/%d/%d", ga.Main, ga.Middle, ga.Sub)
}

// ToUint16 packs the address as MMMM MSSS SSSS SSSS.
func (ga GroupAddress) ToUint16() uint16 {
	return uint16(ga.Main)<<11 | uint16(ga.Middle)<<8 | uint16(ga.Sub)
}

// GroupAddressFromUint16 unpacks a 16-bit group address.
func GroupAddressFromUint16(value uint16) GroupAddress {
	return GroupAddress{
		Main:   uint8((value >> 11) & 0x1F), //nolint:gosec // masked to 5 bits
		Middle: uint8((value >> 8) & 0x07),  //nolint:gosec // masked to 3 bits
		Sub:    uint8(value & 0xFF),         //nolint:gosec // masked to 8 bits
	}
}

// formatIndividualAddress converts a 16-bit individual address to "A.L.D".
func formatIndividualAddress(ia uint16) string {
	return fmt.Sprintf("%d.%d.%d", (ia>>12)&0x0F, (ia>>8)&0x0F, ia&0xFF)
}
