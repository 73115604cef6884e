package knx

import (
	"encoding/binary"
	"fmt"
)

// knxd protocol message types.
const (
	// EIBOpenGroupCon opens a group socket. Payload: reserved(1) +
	// write_only(1) + reserved(1).
	EIBOpenGroupCon uint16 = 0x0026

	// EIBGroupPacket carries one group telegram.
	EIBGroupPacket uint16 = 0x0027

	// EIBClose closes the knxd connection gracefully.
	EIBClose uint16 = 0x0006
)

// APCI codes of the group value services.
const (
	APCIRead     byte = 0x00
	APCIResponse byte = 0x40
	APCIWrite    byte = 0x80
)

const (
	// knxdHeaderSize is size(2) + type(2).
	knxdHeaderSize = 4

	// groupHeaderSize is source(2) + destination(2) + TPCI + APCI.
	groupHeaderSize = 6
)

// GroupTelegram is a received KNX group telegram.
type GroupTelegram struct {
	// Source is the sender's individual address ("1.1.5").
	Source string

	Destination GroupAddress
	APCI        byte

	// Data is the DPT payload; nil for read requests.
	Data []byte
}

// ParseGroupTelegram parses the payload of an EIB_GROUP_PACKET received on
// a group socket:
//
//	Byte 0-1: source individual address
//	Byte 2-3: destination group address
//	Byte 4:   TPCI
//	Byte 5:   APCI (upper 2 bits) | data (lower 6 bits) for short frames
//	Byte 6+:  data for long frames
func ParseGroupTelegram(data []byte) (GroupTelegram, error) {
	if len(data) < groupHeaderSize {
		return GroupTelegram{}, fmt.Errorf("%w: too short (%d bytes, need at least %d)", ErrInvalidTelegram, len(data), groupHeaderSize)
	}
	if data[4]&0x03 != 0 {
		return GroupTelegram{}, fmt.Errorf("%w: APCI 0x%X%02X is not a group value service", ErrInvalidTelegram, data[4]&0x03, data[5])
	}

	t := GroupTelegram{
		Source:      formatIndividualAddress(binary.BigEndian.Uint16(data[0:2])),
		Destination: GroupAddressFromUint16(binary.BigEndian.Uint16(data[2:4])),
		APCI:        data[5] & 0xC0,
	}

	switch {
	case t.APCI != APCIRead && t.APCI != APCIWrite && t.APCI != APCIResponse:
		return GroupTelegram{}, fmt.Errorf("%w: APCI 0x%02X is not a group value service", ErrInvalidTelegram, t.APCI)
	case len(data) > groupHeaderSize:
		t.Data = append([]byte(nil), data[groupHeaderSize:]...)
	case t.APCI != APCIRead:
		t.Data = []byte{data[5] & 0x3F}
	}
	return t, nil
}

// IsRead reports a group read request.
func (t GroupTelegram) IsRead() bool { return t.APCI == APCIRead }

// EncodeKNXDMessage wraps a payload in knxd framing. The size field counts
// the type and payload but not itself.
func EncodeKNXDMessage(msgType uint16, payload []byte) []byte {
	buf := make([]byte, knxdHeaderSize+len(payload))
	binary.BigEndian.PutUint16(buf[0:2], uint16(2+len(payload))) //nolint:gosec // bounded by small message sizes
	binary.BigEndian.PutUint16(buf[2:4], msgType)
	copy(buf[knxdHeaderSize:], payload)
	return buf
}

// ParseKNXDMessage splits one complete knxd message into type and payload.
func ParseKNXDMessage(data []byte) (msgType uint16, payload []byte, err error) {
	if len(data) < knxdHeaderSize {
		return 0, nil, fmt.Errorf("%w: message too short (%d bytes)", ErrInvalidTelegram, len(data))
	}

	declared := binary.BigEndian.Uint16(data[0:2])
	if int(declared) != len(data)-2 {
		return 0, nil, fmt.Errorf("%w: size mismatch (declared %d, expected %d)", ErrInvalidTelegram, declared, len(data)-2)
	}

	msgType = binary.BigEndian.Uint16(data[2:4])
	if len(data) > knxdHeaderSize {
		payload = data[knxdHeaderSize:]
	}
	return msgType, payload, nil
}

// OpenGroupConRequest returns the handshake that switches a knxd
// connection into group socket mode.
func OpenGroupConRequest() []byte {
	return EncodeKNXDMessage(EIBOpenGroupCon, []byte{0x00, 0x00, 0x00})
}

// CheckOpenGroupConReply checks knxd's answer to OpenGroupConRequest.
func CheckOpenGroupConReply(msg []byte) error {
	msgType, _, err := ParseKNXDMessage(msg)
	if err != nil {
		return err
	}
	if msgType != EIBOpenGroupCon {
		return fmt.Errorf("%w: unexpected response type 0x%04X", ErrInvalidTelegram, msgType)
	}
	return nil
}

// SplitKNXD is a bufio.SplitFunc that frames knxd messages by their size
// prefix.
func SplitKNXD(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if len(data) < 2 {
		if atEOF && len(data) > 0 {
			return len(data), nil, nil
		}
		return 0, nil, nil
	}

	total := 2 + int(binary.BigEndian.Uint16(data[0:2]))
	if len(data) < total {
		if atEOF {
			return len(data), nil, nil
		}
		return 0, nil, nil
	}
	return total, data[:total], nil
}
