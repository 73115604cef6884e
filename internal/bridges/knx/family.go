package knx

import (
	"fmt"

	"github.com/nerrad567/gray-logic-telegrams/internal/telegram"
)

// FamilyName is the family name of KNX telegrams.
const FamilyName = "knx"

// Family is the KNX telegram family. Its raw telegrams are complete knxd
// EIB_GROUP_PACKET messages as read from a group socket.
type Family struct{}

var _ telegram.Family = Family{}

// Name returns "knx".
func (Family) Name() string { return FamilyName }

// Validate checks knxd framing, the message type and the group telegram
// header. KNX carries no checksum at this layer so the result is either
// OK or MALFORMED.
func (Family) Validate(data []byte) telegram.State {
	if _, err := parseGroupPacket(data); err != nil {
		return telegram.StateMalformed
	}
	return telegram.StateOK
}

// IsTeachIn always reports false; KNX devices are bound by group address.
func (Family) IsTeachIn([]byte) bool { return false }

// Split returns one unit addressed by the destination group address. Read
// requests carry no value and are marked SkipDecode.
func (Family) Split(data []byte) ([]telegram.Unit, error) {
	t, err := parseGroupPacket(data)
	if err != nil {
		return nil, err
	}
	return []telegram.Unit{{
		Address:    t.Destination.String(),
		Payload:    t.Data,
		SkipDecode: t.IsRead(),
	}}, nil
}

// ParseKey parses a DPT.
func (Family) ParseKey(s string) (telegram.ProfileKey, error) {
	return ParseDPT(s)
}

func parseGroupPacket(data []byte) (GroupTelegram, error) {
	msgType, payload, err := ParseKNXDMessage(data)
	if err != nil {
		return GroupTelegram{}, err
	}
	if msgType != EIBGroupPacket {
		return GroupTelegram{}, fmt.Errorf("%w: message type 0x%04X is not a group packet", ErrInvalidTelegram, msgType)
	}
	return ParseGroupTelegram(payload)
}
