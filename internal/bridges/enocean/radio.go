package enocean

import (
	"fmt"

	"github.com/nerrad567/gray-logic-telegrams/internal/telegram"
	"github.com/nerrad567/gray-logic-telegrams/internal/telegram/field"
)

const (
	senderLen   = 4
	erp1Trailer = senderLen + 1 // sender ID + status
	minERP1Len  = 1 + erp1Trailer
)

// Radio is a parsed ERP1 radio telegram.
type Radio struct {
	RORG     byte
	Data     []byte
	SenderID uint32
	Status   byte

	// Link-level details from the ESP3 optional data, when present.
	SubTelegrams int
	DBm          int
	HasLinkInfo  bool
}

// Address returns the sender ID as eight uppercase hex digits.
func (r Radio) Address() string {
	return fmt.Sprintf("%08X", r.SenderID)
}

// RepeatCount returns the repeater hop count from the status byte.
func (r Radio) RepeatCount() int {
	return int(r.Status & 0x0F)
}

// Payload returns the user data followed by the status byte.
func (r Radio) Payload() []byte {
	p := make([]byte, 0, len(r.Data)+1)
	p = append(p, r.Data...)
	return append(p, r.Status)
}

// dataLen returns the permitted user data length range for a RORG.
func dataLen(rorg byte) (min, max int) {
	switch rorg {
	case RORGRPS, RORG1BS:
		return 1, 1
	case RORG4BS:
		return 4, 4
	case RORGVLD:
		return 1, 14
	case RORGSIG:
		return 1, 14
	case RORGUTE:
		return 7, 7
	default:
		return 0, 255
	}
}

// parseERP1 parses a bare ERP1 telegram and checks its length against the
// RORG.
func parseERP1(b []byte) (Radio, error) {
	if len(b) < minERP1Len {
		return Radio{}, fmt.Errorf("%w: %d bytes", ErrInvalidTelegram, len(b))
	}

	rorg := b[0]
	n := len(b) - 1 - erp1Trailer
	min, max := dataLen(rorg)
	if n < min || n > max {
		return Radio{}, fmt.Errorf("%w: RORG 0x%02X with %d data bytes", ErrInvalidTelegram, rorg, n)
	}

	return Radio{
		RORG:     rorg,
		Data:     b[1 : 1+n],
		SenderID: uint32(field.Uint(b, 1+n, senderLen)),
		Status:   b[len(b)-1],
	}, nil
}

// parseRadio accepts an ESP3 packet or a bare ERP1 telegram.
func parseRadio(b []byte) (Radio, error) {
	if len(b) == 0 {
		return Radio{}, fmt.Errorf("%w: empty", ErrInvalidTelegram)
	}
	if b[0] != SyncByte {
		return parseERP1(b)
	}

	pkt, err := ParsePacket(b)
	if err != nil {
		return Radio{}, err
	}
	if pkt.Type != PacketTypeRadioERP1 {
		return Radio{}, fmt.Errorf("%w: packet type 0x%02X is not ERP1", ErrInvalidPacket, byte(pkt.Type))
	}

	r, err := parseERP1(pkt.Data)
	if err != nil {
		return Radio{}, err
	}
	// Optional data: SubTelNum, DestinationID(4), dBm, SecurityLevel.
	if opt := pkt.OptionalData; len(opt) >= 6 {
		r.SubTelegrams = int(opt[0])
		r.DBm = -int(opt[5])
		r.HasLinkInfo = true
	}
	return r, nil
}

// teachIn reports whether a radio telegram is a teach-in and, for 4BS
// variant 2 and UTE telegrams, which profile it announces.
func teachIn(r Radio) (bool, telegram.ProfileKey) {
	switch r.RORG {
	case RORG1BS:
		return !field.Bit(r.Data, 0, 3), nil
	case RORG4BS:
		if field.Bit(r.Data, 3, 3) {
			return false, nil
		}
		if !field.Bit(r.Data, 3, 7) {
			return true, nil
		}
		// DB3: FUNC(6) TYPE(2 high), DB2: TYPE(5 low) MANUF(3 high), DB1: MANUF(8 low)
		return true, EEP{
			RORG:         RORG4BS,
			Func:         r.Data[0] >> 2,
			Type:         (r.Data[0]&0x03)<<5 | r.Data[1]>>3,
			Manufacturer: uint16(r.Data[1]&0x07)<<8 | uint16(r.Data[2]),
		}
	case RORGUTE:
		// DB6..DB0: command, channels, MANUF low, MANUF high, TYPE, FUNC, RORG
		return true, EEP{
			RORG:         r.Data[6],
			Func:         r.Data[5],
			Type:         r.Data[4],
			Manufacturer: uint16(r.Data[3]&0x07)<<8 | uint16(r.Data[2]),
		}
	default:
		return false, nil
	}
}
