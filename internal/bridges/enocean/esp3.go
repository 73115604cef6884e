package enocean

import (
	"bytes"
	"fmt"

	"github.com/sigurn/crc8"
)

// ESP3 framing constants.
const (
	SyncByte       = 0x55
	esp3HeaderLen  = 6 // sync, data length (2), optional length, type, CRC8H
	maxESP3DataLen = 0x0FFF
	maxESP3OptLen  = 0xFF
	maxESP3Len     = esp3HeaderLen + maxESP3DataLen + maxESP3OptLen + 1
)

// PacketType is the ESP3 packet type byte.
type PacketType byte

const (
	PacketTypeRadioERP1   PacketType = 0x01
	PacketTypeResponse    PacketType = 0x02
	PacketTypeRadioSubTel PacketType = 0x03
	PacketTypeEvent       PacketType = 0x04
	PacketTypeCommonCmd   PacketType = 0x05
)

// ESP3 uses CRC-8 with polynomial 0x07 and zero init for both header and
// data checksums.
var crcTable = crc8.MakeTable(crc8.CRC8)

// Packet is a decoded ESP3 packet.
type Packet struct {
	Type         PacketType
	Data         []byte
	OptionalData []byte
}

// ParsePacket decodes one complete ESP3 packet.
//
// Returns an error wrapping ErrInvalidPacket for framing problems and
// ErrChecksum for CRC mismatches.
func ParsePacket(raw []byte) (Packet, error) {
	if len(raw) < esp3HeaderLen+1 {
		return Packet{}, fmt.Errorf("%w: %d bytes, need at least %d", ErrInvalidPacket, len(raw), esp3HeaderLen+1)
	}
	if raw[0] != SyncByte {
		return Packet{}, fmt.Errorf("%w: sync byte 0x%02X", ErrInvalidPacket, raw[0])
	}

	dataLen := int(raw[1])<<8 | int(raw[2])
	optLen := int(raw[3])
	total := esp3HeaderLen + dataLen + optLen + 1
	if len(raw) != total {
		return Packet{}, fmt.Errorf("%w: length %d, header says %d", ErrInvalidPacket, len(raw), total)
	}

	if crc := crc8.Checksum(raw[1:5], crcTable); crc != raw[5] {
		return Packet{}, fmt.Errorf("%w: header 0x%02X, computed 0x%02X", ErrChecksum, raw[5], crc)
	}
	body := raw[esp3HeaderLen : total-1]
	if crc := crc8.Checksum(body, crcTable); crc != raw[total-1] {
		return Packet{}, fmt.Errorf("%w: data 0x%02X, computed 0x%02X", ErrChecksum, raw[total-1], crc)
	}

	return Packet{
		Type:         PacketType(raw[4]),
		Data:         body[:dataLen],
		OptionalData: body[dataLen:],
	}, nil
}

// EncodePacket builds an ESP3 packet with both checksums.
func EncodePacket(p Packet) ([]byte, error) {
	if len(p.Data) > maxESP3DataLen || len(p.OptionalData) > maxESP3OptLen {
		return nil, fmt.Errorf("%w: data %d, optional %d bytes", ErrInvalidPacket, len(p.Data), len(p.OptionalData))
	}

	buf := make([]byte, 0, esp3HeaderLen+len(p.Data)+len(p.OptionalData)+1)
	buf = append(buf,
		SyncByte,
		byte(len(p.Data)>>8),
		byte(len(p.Data)),
		byte(len(p.OptionalData)),
		byte(p.Type),
	)
	buf = append(buf, crc8.Checksum(buf[1:5], crcTable))
	buf = append(buf, p.Data...)
	buf = append(buf, p.OptionalData...)
	buf = append(buf, crc8.Checksum(buf[esp3HeaderLen:], crcTable))
	return buf, nil
}

// SplitESP3 is a bufio.SplitFunc that frames ESP3 packets out of a serial
// byte stream.
//
// Bytes before a sync byte are dropped. A header whose CRC8 does not match
// is treated as a false sync and scanning resumes at the next byte; data
// checksum errors are left for validation so they are reported. A header
// declaring more data than ESP3 allows is also a false sync.
func SplitESP3(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for {
		start := bytes.IndexByte(data[advance:], SyncByte)
		if start < 0 {
			return len(data), nil, nil
		}
		pos := advance + start
		frame := data[pos:]
		if len(frame) < esp3HeaderLen {
			return incomplete(data, pos, atEOF)
		}

		if crc8.Checksum(frame[1:5], crcTable) != frame[5] {
			advance = pos + 1
			continue
		}

		total := esp3HeaderLen + (int(frame[1])<<8 | int(frame[2])) + int(frame[3]) + 1
		if total > maxESP3Len {
			advance = pos + 1
			continue
		}
		if len(frame) < total {
			return incomplete(data, pos, atEOF)
		}
		return pos + total, frame[:total], nil
	}
}

// incomplete asks for more data, or drops a truncated tail at EOF.
func incomplete(data []byte, pos int, atEOF bool) (int, []byte, error) {
	if atEOF {
		return len(data), nil, nil
	}
	return pos, nil, nil
}
