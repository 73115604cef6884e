package telegram

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Kind discriminates the Value union.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNumeric
	KindBool
	KindEnum
	KindText
	KindTime
)

var kindNames = [...]string{
	KindUndefined: "undefined",
	KindNumeric:   "numeric",
	KindBool:      "bool",
	KindEnum:      "enum",
	KindText:      "text",
	KindTime:      "time",
}

// String returns the lower-case kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

func parseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return KindUndefined, fmt.Errorf("telegram: unknown value kind %q", s)
}

// Value is a decoded channel value. The zero Value is Undefined.
//
// Only the field matching Kind is meaningful: Number and Unit for numerics,
// Flag for booleans, Text for enums and text, Time for timestamps.
type Value struct {
	Kind   Kind
	Number float64
	Unit   string
	Flag   bool
	Text   string
	Time   time.Time
}

// Undefined returns a value carrying no data.
func Undefined() Value { return Value{} }

// Numeric returns a number with its unit ("" for dimensionless).
func Numeric(v float64, unit string) Value {
	return Value{Kind: KindNumeric, Number: v, Unit: unit}
}

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{Kind: KindBool, Flag: b} }

// Enum returns one of a profile's named states.
func Enum(s string) Value { return Value{Kind: KindEnum, Text: s} }

// Text returns free text (identifiers, meter messages).
func Text(s string) Value { return Value{Kind: KindText, Text: s} }

// Timestamp returns a point in time.
func Timestamp(t time.Time) Value { return Value{Kind: KindTime, Time: t} }

// Defined reports whether the value carries data.
func (v Value) Defined() bool { return v.Kind != KindUndefined }

// Equal compares two values of the same kind field by field.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNumeric:
		return v.Number == o.Number && v.Unit == o.Unit
	case KindBool:
		return v.Flag == o.Flag
	case KindEnum, KindText:
		return v.Text == o.Text
	case KindTime:
		return v.Time.Equal(o.Time)
	default:
		return true
	}
}

// Any returns the payload as a plain Go value for JSON and line protocol
// (float64, bool, string, time.Time or nil).
func (v Value) Any() any {
	switch v.Kind {
	case KindNumeric:
		return v.Number
	case KindBool:
		return v.Flag
	case KindEnum, KindText:
		return v.Text
	case KindTime:
		return v.Time
	default:
		return nil
	}
}

// String formats the value for logs and the analyzer.
func (v Value) String() string {
	switch v.Kind {
	case KindNumeric:
		s := strconv.FormatFloat(v.Number, 'f', -1, 64)
		if v.Unit != "" {
			return s + " " + v.Unit
		}
		return s
	case KindBool:
		if v.Flag {
			return "ON"
		}
		return "OFF"
	case KindEnum, KindText:
		return v.Text
	case KindTime:
		return v.Time.Format(time.RFC3339)
	default:
		return "UNDEF"
	}
}

type valueJSON struct {
	Kind  string `json:"kind"`
	Value any    `json:"value"`
	Unit  string `json:"unit,omitempty"`
}

// MarshalJSON encodes the value as {"kind":..,"value":..,"unit":..}.
// Undefined values carry a null value.
func (v Value) MarshalJSON() ([]byte, error) {
	out := valueJSON{Kind: v.Kind.String(), Value: v.Any(), Unit: v.Unit}
	if v.Kind == KindTime {
		out.Value = v.Time.Format(time.RFC3339)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	var in struct {
		Kind  string          `json:"kind"`
		Value json.RawMessage `json:"value"`
		Unit  string          `json:"unit"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("telegram: decoding value: %w", err)
	}

	kind, err := parseKind(in.Kind)
	if err != nil {
		return err
	}

	out := Value{Kind: kind, Unit: in.Unit}
	switch kind {
	case KindNumeric:
		err = json.Unmarshal(in.Value, &out.Number)
	case KindBool:
		err = json.Unmarshal(in.Value, &out.Flag)
	case KindEnum, KindText:
		err = json.Unmarshal(in.Value, &out.Text)
	case KindTime:
		var s string
		if err = json.Unmarshal(in.Value, &s); err == nil {
			out.Time, err = time.Parse(time.RFC3339, s)
		}
	}
	if err != nil {
		return fmt.Errorf("telegram: decoding %s value: %w", kind, err)
	}

	*v = out
	return nil
}
