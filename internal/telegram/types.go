package telegram

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// State is the validation verdict for a raw telegram.
type State uint8

const (
	// StateOK means the telegram is structurally valid and its checksum
	// (if any) matched.
	StateOK State = iota

	// StateChecksumError means the structure was intact but the checksum
	// did not match.
	StateChecksumError

	// StateMalformed means the telegram could not be parsed at all.
	StateMalformed
)

// String returns the wire name of the state.
func (s State) String() string {
	switch s {
	case StateOK:
		return "OK"
	case StateChecksumError:
		return "CHECKSUM_ERROR"
	case StateMalformed:
		return "MALFORMED"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// RawTelegram is one framed telegram as received from a transport.
// It is never modified after creation.
type RawTelegram struct {
	ID         uuid.UUID
	Family     string
	Source     string
	Data       []byte
	ReceivedAt time.Time
}

// NewRawTelegram copies data into a new telegram stamped with a fresh ID
// and the current time.
func NewRawTelegram(family, source string, data []byte) RawTelegram {
	buf := make([]byte, len(data))
	copy(buf, data)
	return RawTelegram{
		ID:         uuid.New(),
		Family:     family,
		Source:     source,
		Data:       buf,
		ReceivedAt: time.Now().UTC(),
	}
}

// Hex returns the telegram bytes as uppercase hex.
func (t RawTelegram) Hex() string {
	return strings.ToUpper(hex.EncodeToString(t.Data))
}

// ProfileKey identifies a decodable profile within a family.
//
// Implementations must be comparable value types (structs of scalars,
// strings) so they can be used as map keys.
type ProfileKey interface {
	Family() string
	String() string
}

// ChannelConfig is the per-channel configuration a decoder may consult.
type ChannelConfig struct {
	// Inverted flips boolean-like outputs (contacts).
	Inverted bool

	// Scale and Offset, when set, are applied to numeric results as
	// value*Scale + Offset.
	Scale  *float64
	Offset *float64
}

// Apply returns v with the configured scale and offset applied.
// Non-numeric values are returned unchanged.
func (c ChannelConfig) Apply(v Value) Value {
	if v.Kind != KindNumeric {
		return v
	}
	if c.Scale != nil {
		v.Number *= *c.Scale
	}
	if c.Offset != nil {
		v.Number += *c.Offset
	}
	return v
}

// Decoder turns a validated payload into channel values for one profile.
//
// Decode returns Undefined for a channel the profile does not define.
// prior is the last defined value of the channel, or nil.
type Decoder interface {
	Channels() []string
	Decode(channelID string, payload []byte, prior *Value, cfg ChannelConfig) Value
}

// ChannelFunc decodes a single channel.
type ChannelFunc func(payload []byte, prior *Value, cfg ChannelConfig) Value

// Channel pairs a channel ID with its decoding function.
type Channel struct {
	ID     string
	Decode ChannelFunc
}

// ChannelDecoder is a Decoder built from a fixed list of channels.
type ChannelDecoder []Channel

// Channels returns the channel IDs in declaration order.
func (d ChannelDecoder) Channels() []string {
	ids := make([]string, len(d))
	for i, ch := range d {
		ids[i] = ch.ID
	}
	return ids
}

// Decode runs the named channel's function, or returns Undefined.
func (d ChannelDecoder) Decode(channelID string, payload []byte, prior *Value, cfg ChannelConfig) Value {
	for _, ch := range d {
		if ch.ID == channelID {
			return ch.Decode(payload, prior, cfg)
		}
	}
	return Undefined()
}

// Unit is one addressable payload inside a validated telegram.
type Unit struct {
	// Address identifies the sending device (EnOcean sender ID, KNX group
	// address, DSMR equipment identifier).
	Address string

	// Key is set when the telegram names its own profile (DSMR OBIS codes).
	// When nil the profile comes from the device binding.
	Key ProfileKey

	// Payload is the slice handed to the decoder.
	Payload []byte

	// SkipDecode marks units that carry no values (4BS teach-in, KNX
	// read requests).
	SkipDecode bool

	// TeachKey is the profile advertised by a teach-in telegram, if any.
	TeachKey ProfileKey

	// Meta holds link-level values such as signal strength.
	Meta map[string]Value
}

// Family is a protocol family: its validator, teach-in predicate and the
// way it splits a telegram into units.
type Family interface {
	Validator
	TeachInDetector

	// Name returns the family name used in bindings and topics.
	Name() string

	// Split breaks an OK telegram into units. It is never called for
	// telegrams that failed validation.
	Split(data []byte) ([]Unit, error)

	// ParseKey parses a profile key in the family's notation.
	ParseKey(s string) (ProfileKey, error)
}

// Validator assigns a State to raw bytes. It never panics.
type Validator interface {
	Validate(data []byte) State
}

// TeachInDetector reports whether a structurally valid telegram is a
// teach-in (learn) telegram.
type TeachInDetector interface {
	IsTeachIn(data []byte) bool
}
