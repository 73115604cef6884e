package knx

import (
	"fmt"

	"github.com/nerrad567/gray-logic-telegrams/internal/telegram"
)

// ChannelValue is the single channel of every KNX datapoint.
const ChannelValue = "value"

// Enum states.
const (
	Open     = "OPEN"
	Closed   = "CLOSED"
	Increase = "INCREASE"
	Decrease = "DECREASE"
	Break    = "BREAK"
	Recall   = "RECALL"
	Learn    = "LEARN"
)

// Profiles returns every decoder of the package keyed by DPT.
func Profiles() map[DPT]telegram.Decoder {
	profiles := map[DPT]telegram.Decoder{
		DPTOpenClose:      single(decodeOpenClose),
		DPTDimmingControl: single(decodeControl),
		DPTBlindControl:   single(decodeControl),
		DPTPercentage:     single(scaled(100, "%")),
		DPTAngle:          single(scaled(360, "°")),
		DPTPercentU8:      single(scaled(0xFF, "%")),
		DPTSceneNumber:    single(decodeSceneNumber),
		DPTSceneControl:   single(decodeSceneControl),
		DPTColourRGB:      single(decodeColour),
	}
	for _, d := range []DPT{DPTSwitch, DPTBool, DPTEnable, DPTStep, DPTUpDown, DPTStart, DPTTrigger} {
		profiles[d] = single(decodeBool)
	}
	floats := map[DPT]string{
		DPTTemperature: "°C",
		DPTLux:         "lx",
		DPTSpeed:       "m/s",
		DPTHumidity:    "%",
		DPTAirQuality:  "ppm",
	}
	for d, unit := range floats {
		profiles[d] = single(decodeFloat(unit))
	}
	return profiles
}

// Register adds every KNX decoder to reg.
func Register(reg *telegram.Registry) error {
	for key, dec := range Profiles() {
		if err := reg.Register(key, dec); err != nil {
			return fmt.Errorf("registering %s: %w", key, err)
		}
	}
	return nil
}

func single(fn telegram.ChannelFunc) telegram.Decoder {
	return telegram.ChannelDecoder{{ID: ChannelValue, Decode: fn}}
}

// scaled maps an octet 0..255 linearly onto 0..full.
func scaled(full float64, unit string) telegram.ChannelFunc {
	return func(payload []byte, _ *telegram.Value, _ telegram.ChannelConfig) telegram.Value {
		b, err := octet(payload)
		if err != nil {
			return telegram.Undefined()
		}
		return telegram.Numeric(float64(b)*full/0xFF, unit)
	}
}

func decodeFloat(unit string) telegram.ChannelFunc {
	return func(payload []byte, _ *telegram.Value, _ telegram.ChannelConfig) telegram.Value {
		v, err := float16(payload)
		if err != nil {
			return telegram.Undefined()
		}
		return telegram.Numeric(v, unit)
	}
}

func decodeBool(payload []byte, _ *telegram.Value, cfg telegram.ChannelConfig) telegram.Value {
	b, err := bit(payload)
	if err != nil {
		return telegram.Undefined()
	}
	return telegram.Bool(b != cfg.Inverted)
}

func decodeOpenClose(payload []byte, _ *telegram.Value, cfg telegram.ChannelConfig) telegram.Value {
	closed, err := bit(payload)
	switch {
	case err != nil:
		return telegram.Undefined()
	case closed != cfg.Inverted:
		return telegram.Enum(Closed)
	default:
		return telegram.Enum(Open)
	}
}

func decodeControl(payload []byte, _ *telegram.Value, _ telegram.ChannelConfig) telegram.Value {
	up, step, err := control(payload)
	switch {
	case err != nil:
		return telegram.Undefined()
	case step == 0:
		return telegram.Enum(Break)
	case up:
		return telegram.Enum(fmt.Sprintf("%s:%d", Increase, step))
	default:
		return telegram.Enum(fmt.Sprintf("%s:%d", Decrease, step))
	}
}

func decodeSceneNumber(payload []byte, _ *telegram.Value, _ telegram.ChannelConfig) telegram.Value {
	n, _, err := scene(payload)
	if err != nil {
		return telegram.Undefined()
	}
	return telegram.Numeric(float64(n), "")
}

func decodeSceneControl(payload []byte, _ *telegram.Value, _ telegram.ChannelConfig) telegram.Value {
	n, learn, err := scene(payload)
	switch {
	case err != nil:
		return telegram.Undefined()
	case learn:
		return telegram.Enum(fmt.Sprintf("%s:%d", Learn, n))
	default:
		return telegram.Enum(fmt.Sprintf("%s:%d", Recall, n))
	}
}

func decodeColour(payload []byte, _ *telegram.Value, _ telegram.ChannelConfig) telegram.Value {
	hex, err := rgb(payload)
	if err != nil {
		return telegram.Undefined()
	}
	return telegram.Text(hex)
}
