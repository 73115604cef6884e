// Package field extracts bit fields and multi-byte integers from telegram
// payloads.
//
// Offsets are byte indexes into the payload. Bit 0 is the least significant
// bit of a byte, matching how EnOcean and KNX documents number data bits
// (DB0.0 is bit 0 of the last data byte).
//
// Profiles are fixed when they are registered, so an offset or width that
// falls outside the buffer is a programming error and panics. Callers that
// handle untrusted lengths check them before extracting.
package field

import "fmt"

// Bits returns width bits of buf[byteIndex], starting at bitOffset.
//
// Parameters:
//   - byteIndex: index of the byte holding the field
//   - bitOffset: position of the field's least significant bit (0-7)
//   - width: number of bits (1-8); bitOffset+width must not exceed 8
func Bits(buf []byte, byteIndex, bitOffset, width int) uint64 {
	checkIndex(buf, byteIndex)
	if bitOffset < 0 || width < 1 || bitOffset+width > 8 {
		panic(fmt.Sprintf("field: bit range %d+%d outside byte", bitOffset, width))
	}
	mask := byte(1<<width - 1)
	return uint64((buf[byteIndex] >> bitOffset) & mask)
}

// Bit reports whether a single bit is set.
func Bit(buf []byte, byteIndex, bit int) bool {
	return Bits(buf, byteIndex, bit, 1) == 1
}

// Byte returns buf[i].
func Byte(buf []byte, i int) uint8 {
	checkIndex(buf, i)
	return buf[i]
}

// Int8 returns buf[i] as a two's complement value.
func Int8(buf []byte, i int) int8 {
	return int8(Byte(buf, i))
}

// Nibble returns the high or low four bits of buf[i].
func Nibble(buf []byte, i int, high bool) uint8 {
	if high {
		return uint8(Bits(buf, i, 4, 4))
	}
	return uint8(Bits(buf, i, 0, 4))
}

// Uint returns n consecutive bytes starting at start as a big-endian
// unsigned integer. n is limited to 8.
func Uint(buf []byte, start, n int) uint64 {
	if n < 1 || n > 8 {
		panic(fmt.Sprintf("field: invalid byte count %d", n))
	}
	if start < 0 || start+n > len(buf) {
		panic(fmt.Sprintf("field: bytes %d..%d outside buffer of %d", start, start+n-1, len(buf)))
	}

	var v uint64
	for _, b := range buf[start : start+n] {
		v = v<<8 | uint64(b)
	}
	return v
}

// Linear applies raw*scale + offset.
func Linear(raw uint64, scale, offset float64) float64 {
	return float64(raw)*scale + offset
}

// Range maps raw from [rawMin, rawMax] onto [min, max]. Inverted ranges
// (rawMin > rawMax or min > max) are allowed, as used by sensors that count
// down.
func Range(raw uint64, rawMin, rawMax, min, max float64) float64 {
	if rawMax == rawMin {
		panic("field: empty raw range")
	}
	scale := (max - min) / (rawMax - rawMin)
	return Linear(raw, scale, min-rawMin*scale)
}

func checkIndex(buf []byte, i int) {
	if i < 0 || i >= len(buf) {
		panic(fmt.Sprintf("field: byte index %d outside buffer of %d", i, len(buf)))
	}
}
