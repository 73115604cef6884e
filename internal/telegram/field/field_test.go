package field

import (
	"math"
	"testing"
)

func TestBits(t *testing.T) {
	buf := []byte{0b1010_1100, 0xFF}

	tests := []struct {
		name      string
		byteIndex int
		offset    int
		width     int
		want      uint64
	}{
		{"low bit", 0, 0, 1, 0},
		{"bit 2", 0, 2, 1, 1},
		{"high nibble", 0, 4, 4, 0b1010},
		{"middle run", 0, 2, 3, 0b011},
		{"whole byte", 0, 0, 8, 0xAC},
		{"second byte", 1, 7, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Bits(buf, tt.byteIndex, tt.offset, tt.width)
			if got != tt.want {
				t.Errorf("Bits(%d, %d, %d) = %b, want %b", tt.byteIndex, tt.offset, tt.width, got, tt.want)
			}
		})
	}
}

func TestBit(t *testing.T) {
	buf := []byte{0x08}
	if !Bit(buf, 0, 3) {
		t.Error("Bit(0, 3) = false, want true")
	}
	if Bit(buf, 0, 0) {
		t.Error("Bit(0, 0) = true, want false")
	}
}

func TestUint(t *testing.T) {
	tests := []struct {
		name  string
		buf   []byte
		start int
		n     int
		want  uint64
	}{
		{"single byte", []byte{0x7F}, 0, 1, 0x7F},
		{"two bytes big-endian", []byte{0x01, 0x02}, 0, 2, 0x0102},
		{"sender id", []byte{0xF6, 0x01, 0x81, 0x2A, 0xC3, 0x30}, 2, 4, 0x812AC330},
		{"eight bytes", []byte{1, 2, 3, 4, 5, 6, 7, 8}, 0, 8, 0x0102030405060708},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Uint(tt.buf, tt.start, tt.n); got != tt.want {
				t.Errorf("Uint() = %#x, want %#x", got, tt.want)
			}
		})
	}
}

func TestNibbleAndInt8(t *testing.T) {
	buf := []byte{0xA5, 0xFE}
	if got := Nibble(buf, 0, true); got != 0xA {
		t.Errorf("Nibble(high) = %x, want a", got)
	}
	if got := Nibble(buf, 0, false); got != 0x5 {
		t.Errorf("Nibble(low) = %x, want 5", got)
	}
	if got := Int8(buf, 1); got != -2 {
		t.Errorf("Int8() = %d, want -2", got)
	}
}

func TestLinearAndRange(t *testing.T) {
	if got := Linear(100, 0.5, 0); got != 50.0 {
		t.Errorf("Linear(100, 0.5, 0) = %v, want 50", got)
	}
	if got := Linear(2, 116.48, 300.0); math.Abs(got-532.96) > 1e-9 {
		t.Errorf("Linear(2, 116.48, 300) = %v, want 532.96", got)
	}

	// Counting-down sensor: 255 -> 0 degrees, 0 -> 40 degrees.
	if got := Range(255, 255, 0, 0, 40); math.Abs(got) > 1e-9 {
		t.Errorf("Range(255) = %v, want 0", got)
	}
	if got := Range(0, 255, 0, 0, 40); math.Abs(got-40) > 1e-9 {
		t.Errorf("Range(0) = %v, want 40", got)
	}
	if got := Range(125, 0, 250, 0, 100); math.Abs(got-50) > 1e-9 {
		t.Errorf("Range(125) = %v, want 50", got)
	}
}

func TestOutOfRangePanics(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
	}{
		{"byte index", func() { Byte([]byte{1}, 1) }},
		{"negative index", func() { Byte([]byte{1}, -1) }},
		{"bit overflow", func() { Bits([]byte{1}, 0, 6, 3) }},
		{"zero width", func() { Bits([]byte{1}, 0, 0, 0) }},
		{"uint past end", func() { Uint([]byte{1, 2}, 1, 2) }},
		{"uint too wide", func() { Uint(make([]byte, 9), 0, 9) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			tt.fn()
		})
	}
}
