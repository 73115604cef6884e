package knx

import (
	"encoding/binary"
	"fmt"
	"math"
	"regexp"
	"strings"
)

// DPT is a KNX datapoint type written "main.sub", e.g. "9.001". It is the
// profile key of the KNX family.
type DPT string

// Supported datapoint types.
const (
	DPTSwitch    DPT = "1.001"
	DPTBool      DPT = "1.002"
	DPTEnable    DPT = "1.003"
	DPTStep      DPT = "1.007"
	DPTUpDown    DPT = "1.008"
	DPTOpenClose DPT = "1.009"
	DPTStart     DPT = "1.010"
	DPTTrigger   DPT = "1.017"

	DPTDimmingControl DPT = "3.007"
	DPTBlindControl   DPT = "3.008"

	DPTPercentage DPT = "5.001"
	DPTAngle      DPT = "5.003"
	DPTPercentU8  DPT = "5.004"

	DPTTemperature DPT = "9.001"
	DPTLux         DPT = "9.004"
	DPTSpeed       DPT = "9.005"
	DPTHumidity    DPT = "9.007"
	DPTAirQuality  DPT = "9.008"

	DPTSceneNumber  DPT = "17.001"
	DPTSceneControl DPT = "18.001"

	DPTColourRGB DPT = "232.600"
)

var dptPattern = regexp.MustCompile(`^[0-9]{1,3}\.[0-9]{3}$`)

// ParseDPT parses "main.sub". ETS style "DPT9.001" is accepted too.
func ParseDPT(s string) (DPT, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(s, "DPT"), "dpt")
	if !dptPattern.MatchString(trimmed) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDPT, s)
	}
	return DPT(trimmed), nil
}

// Family returns "knx".
func (d DPT) Family() string { return FamilyName }

func (d DPT) String() string { return string(d) }

// Payload readers. The group telegram parser already strips the APCI, so
// 6-bit values arrive as a single octet.

func need(p []byte, n int) error {
	if len(p) < n {
		return fmt.Errorf("%w: need %d octets, got %d", ErrShortPayload, n, len(p))
	}
	return nil
}

func bit(p []byte) (bool, error) {
	if err := need(p, 1); err != nil {
		return false, err
	}
	return p[0]&0x01 == 1, nil
}

// control reads a 4-bit step code cSSS. A step of 0 is a break.
func control(p []byte) (up bool, step uint8, err error) {
	if err := need(p, 1); err != nil {
		return false, 0, err
	}
	return p[0]&0x08 != 0, p[0] & 0x07, nil
}

func octet(p []byte) (uint8, error) {
	if err := need(p, 1); err != nil {
		return 0, err
	}
	return p[0], nil
}

// float16 reads the 2-octet float MEEEEMMM MMMMMMMM, worth 0.01·M·2^E with
// M a 12-bit two's complement mantissa.
func float16(p []byte) (float64, error) {
	if err := need(p, 2); err != nil {
		return 0, err
	}
	raw := binary.BigEndian.Uint16(p)
	if raw == 0x7FFF {
		return 0, ErrNoValue
	}
	m := int(raw & 0x07FF)
	if raw&0x8000 != 0 {
		m -= 0x800
	}
	e := int(raw>>11) & 0x0F
	return math.Ldexp(float64(m)/100, e), nil
}

// scene splits a scene octet into its 6-bit number and the learn flag.
func scene(p []byte) (number uint8, learn bool, err error) {
	b, err := octet(p)
	if err != nil {
		return 0, false, err
	}
	return b & 0x3F, b&0x80 != 0, nil
}

// rgb returns three colour octets as "#RRGGBB".
func rgb(p []byte) (string, error) {
	if err := need(p, 3); err != nil {
		return "", err
	}
	return fmt.Sprintf("#%02X%02X%02X", p[0], p[1], p[2]), nil
}
