package dsmr

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Meter timestamps carry a DST flag instead of an offset: W is CET,
// S is CEST.
var (
	winterTime = time.FixedZone("CET", 1*60*60)
	summerTime = time.FixedZone("CEST", 2*60*60)
)

// splitValues returns the contents of each "(...)" group of a COSEM line.
func splitValues(payload []byte) ([]string, error) {
	var out []string
	s := string(payload)
	for len(s) > 0 {
		if s[0] != '(' {
			return nil, fmt.Errorf("%w: expected '(' in %q", ErrInvalidTelegram, payload)
		}
		end := strings.IndexByte(s, ')')
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated value in %q", ErrInvalidTelegram, payload)
		}
		out = append(out, s[1:end])
		s = s[end+1:]
	}
	return out, nil
}

// parseNumber parses "123.456*kWh" into value and unit.
func parseNumber(s string) (float64, string, error) {
	num, unit, _ := strings.Cut(s, "*")
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, "", fmt.Errorf("%w: number %q", ErrInvalidTelegram, s)
	}
	return v, unit, nil
}

// parseTimestamp parses "YYMMDDhhmmssX" where X is W or S.
func parseTimestamp(s string) (time.Time, error) {
	if len(s) != 13 {
		return time.Time{}, fmt.Errorf("%w: timestamp %q", ErrInvalidTelegram, s)
	}

	loc := winterTime
	switch s[12] {
	case 'W':
	case 'S':
		loc = summerTime
	default:
		return time.Time{}, fmt.Errorf("%w: timestamp %q has no DST flag", ErrInvalidTelegram, s)
	}

	t, err := time.ParseInLocation("060102150405", s[:12], loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp %q: %v", ErrInvalidTelegram, s, err)
	}
	return t, nil
}

// parseOctets decodes a hex-encoded octet string. Values that are not
// valid hex or not printable UTF-8 are returned as sent.
func parseOctets(s string) string {
	b, err := hex.DecodeString(s)
	if err != nil || !utf8.Valid(b) {
		return s
	}
	return string(b)
}
