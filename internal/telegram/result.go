package telegram

// Outcome summarises a Result.
type Outcome string

const (
	// OutcomeDecoded means at least one channel value was produced.
	OutcomeDecoded Outcome = "decoded"

	// OutcomeRejected means validation failed.
	OutcomeRejected Outcome = "rejected"

	// OutcomeUnsupported means a profile key had no registered decoder.
	OutcomeUnsupported Outcome = "unsupported"

	// OutcomeUnbound means the sender is not a known device.
	OutcomeUnbound Outcome = "unbound"

	// OutcomeTeachIn means the telegram only announced a device.
	OutcomeTeachIn Outcome = "teach-in"

	// OutcomeEmpty means the telegram was valid but carried no values.
	OutcomeEmpty Outcome = "empty"
)

// ChannelValue is one decoded channel of one device.
type ChannelValue struct {
	DeviceID string
	Address  string
	Channel  string
	Key      ProfileKey
	Value    Value
}

// TeachIn describes a teach-in seen in a telegram. Key is nil when the
// telegram does not name its profile.
type TeachIn struct {
	Family  string
	Address string
	Key     ProfileKey
}

// Result is everything the engine learned from one raw telegram.
type Result struct {
	Telegram RawTelegram
	Family   string
	State    State

	// TeachIn is the family's teach-in predicate, evaluated only for OK
	// telegrams.
	TeachIn  bool
	TeachIns []TeachIn

	Values      []ChannelValue
	Unsupported []ProfileKey
	Unbound     []string

	// Err explains a non-OK state when the family could give a reason.
	Err error
}

// Outcome classifies the result. Decoded values win over unsupported or
// unbound units in the same telegram.
func (r Result) Outcome() Outcome {
	switch {
	case r.State != StateOK:
		return OutcomeRejected
	case len(r.Values) > 0:
		return OutcomeDecoded
	case len(r.Unsupported) > 0:
		return OutcomeUnsupported
	case len(r.Unbound) > 0:
		return OutcomeUnbound
	case r.TeachIn:
		return OutcomeTeachIn
	default:
		return OutcomeEmpty
	}
}

// Value returns the first value for a device channel.
func (r Result) Value(deviceID, channel string) (Value, bool) {
	for _, cv := range r.Values {
		if cv.DeviceID == deviceID && cv.Channel == channel {
			return cv.Value, true
		}
	}
	return Undefined(), false
}
