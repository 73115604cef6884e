package enocean

import (
	"fmt"

	"github.com/nerrad567/gray-logic-telegrams/internal/telegram"
	"github.com/nerrad567/gray-logic-telegrams/internal/telegram/field"
)

// Channel IDs.
const (
	ChannelContact           = "contact"
	ChannelIllumination      = "illumination"
	ChannelSupplyVoltage     = "supplyVoltage"
	ChannelBatteryVoltage    = "batteryVoltage"
	ChannelBatteryLevel      = "batteryLevel"
	ChannelTemperature       = "temperature"
	ChannelHumidity          = "humidity"
	ChannelMotionDetection   = "motionDetection"
	ChannelPushButton        = "pushButton"
	ChannelPushButtonToggle  = "pushButtonToggle"
	ChannelRockerSwitchA     = "rockerswitchA"
	ChannelRockerSwitchB     = "rockerswitchB"
	ChannelVirtualSwitchA    = "virtualSwitchA"
	ChannelWindowHandleState = "windowHandleState"
	ChannelTotalUsage        = "totalusage"
	ChannelInstantPower      = "instantpower"
)

// Enum states.
const (
	Open     = "OPEN"
	Closed   = "CLOSED"
	Tilted   = "TILTED"
	Pressed  = "PRESSED"
	Released = "RELEASED"

	Dir1Pressed  = "DIR1_PRESSED"
	Dir1Released = "DIR1_RELEASED"
	Dir2Pressed  = "DIR2_PRESSED"
	Dir2Released = "DIR2_RELEASED"
)

// Profile keys supported by this package.
var (
	EEPContact           = EEP{RORG: RORG1BS, Func: 0x00, Type: 0x01}
	EEPPushButton        = EEP{RORG: RORGRPS, Func: 0x01, Type: 0x01}
	EEPRockerSwitch      = EEP{RORG: RORGRPS, Func: 0x02, Type: 0x01}
	EEPWindowHandle      = EEP{RORG: RORGRPS, Func: 0x10, Type: 0x00}
	EEPTemperature       = EEP{RORG: RORG4BS, Func: 0x02, Type: 0x05}
	EEPTempHumidity      = EEP{RORG: RORG4BS, Func: 0x04, Type: 0x01}
	EEPLightSensor       = EEP{RORG: RORG4BS, Func: 0x06, Type: 0x01}
	EEPLightSensorEltako = EEP{RORG: RORG4BS, Func: 0x06, Type: 0x01, Manufacturer: ManufacturerEltako}
	EEPOccupancy         = EEP{RORG: RORG4BS, Func: 0x07, Type: 0x01}
	EEPAutomatedMeter    = EEP{RORG: RORG4BS, Func: 0x12, Type: 0x01}
	EEPMultiContact      = EEP{RORG: RORG4BS, Func: 0x14, Type: 0x01}
	EEPBatteryStatus     = EEP{RORG: RORGSIG, Func: 0x06, Type: 0x00}
)

// Profiles returns every decoder of the package keyed by EEP.
func Profiles() map[EEP]telegram.Decoder {
	return map[EEP]telegram.Decoder{
		EEPContact: telegram.ChannelDecoder{
			{ID: ChannelContact, Decode: decodeContact1BS},
		},
		EEPPushButton: telegram.ChannelDecoder{
			{ID: ChannelPushButton, Decode: decodePushButton},
			{ID: ChannelPushButtonToggle, Decode: decodePushButtonToggle},
		},
		EEPRockerSwitch: telegram.ChannelDecoder{
			{ID: ChannelRockerSwitchA, Decode: decodeRocker(rockerA)},
			{ID: ChannelRockerSwitchB, Decode: decodeRocker(rockerB)},
			{ID: ChannelVirtualSwitchA, Decode: decodeVirtualSwitch},
		},
		EEPWindowHandle: telegram.ChannelDecoder{
			{ID: ChannelWindowHandleState, Decode: decodeWindowHandle},
			{ID: ChannelContact, Decode: decodeWindowContact},
		},
		EEPTemperature: telegram.ChannelDecoder{
			{ID: ChannelTemperature, Decode: decodeTemperatureA50205},
		},
		EEPTempHumidity: telegram.ChannelDecoder{
			{ID: ChannelTemperature, Decode: decodeTemperatureA50401},
			{ID: ChannelHumidity, Decode: decodeHumidityA50401},
		},
		EEPLightSensor: telegram.ChannelDecoder{
			{ID: ChannelIllumination, Decode: decodeIlluminationA50601},
			{ID: ChannelSupplyVoltage, Decode: decodeSupplyVoltageA50601},
		},
		EEPLightSensorEltako: telegram.ChannelDecoder{
			{ID: ChannelIllumination, Decode: decodeIlluminationEltako},
		},
		EEPOccupancy: telegram.ChannelDecoder{
			{ID: ChannelMotionDetection, Decode: decodeMotion},
			{ID: ChannelBatteryVoltage, Decode: decodeOccupancyVoltage},
		},
		EEPAutomatedMeter: telegram.ChannelDecoder{
			{ID: ChannelTotalUsage, Decode: decodeMeter(false)},
			{ID: ChannelInstantPower, Decode: decodeMeter(true)},
		},
		EEPMultiContact: telegram.ChannelDecoder{
			{ID: ChannelBatteryVoltage, Decode: decodeBatteryVoltage},
			{ID: ChannelContact, Decode: decodeContact4BS},
		},
		EEPBatteryStatus: telegram.ChannelDecoder{
			{ID: ChannelBatteryLevel, Decode: decodeBatteryLevel},
		},
	}
}

// Register adds all EnOcean profiles to reg.
func Register(reg *telegram.Registry) error {
	for key, dec := range Profiles() {
		if err := reg.Register(key, dec); err != nil {
			return fmt.Errorf("registering %s: %w", key, err)
		}
	}
	return nil
}

// need reports whether payload holds at least n data bytes plus status.
func need(payload []byte, n int) bool {
	return len(payload) >= n+1
}

func contact(closed bool, cfg telegram.ChannelConfig) telegram.Value {
	if closed != cfg.Inverted {
		return telegram.Enum(Closed)
	}
	return telegram.Enum(Open)
}

// ─── 1BS ────────────────────────────────────────────────────────────

// D5-00-01: DB0.0 1 = closed.
func decodeContact1BS(p []byte, _ *telegram.Value, cfg telegram.ChannelConfig) telegram.Value {
	if !need(p, 1) {
		return telegram.Undefined()
	}
	return contact(field.Bit(p, 0, 0), cfg)
}

// ─── RPS ────────────────────────────────────────────────────────────

// F6-01-01: 0x10 pressed, anything else released.
func decodePushButton(p []byte, _ *telegram.Value, _ telegram.ChannelConfig) telegram.Value {
	if !need(p, 1) {
		return telegram.Undefined()
	}
	if p[0] == 0x10 {
		return telegram.Enum(Pressed)
	}
	return telegram.Enum(Released)
}

func decodePushButtonToggle(p []byte, prior *telegram.Value, _ telegram.ChannelConfig) telegram.Value {
	if !need(p, 1) {
		return telegram.Undefined()
	}
	if p[0] != 0x10 {
		return priorOrUndefined(prior)
	}
	if prior == nil || prior.Kind != telegram.KindBool {
		return telegram.Bool(true)
	}
	return telegram.Bool(!prior.Flag)
}

type rocker int

const (
	rockerA rocker = iota
	rockerB
)

// Rocker actions in the R1/R2 fields of an F6-02-01 N-message.
const (
	actionAI = 0
	actionA0 = 1
	actionBI = 2
	actionB0 = 3
)

// statusNU marks an N-message (rocker actions) in the RPS status byte.
const statusNU = 0x10

// rockerPress returns the direction pressed on rocker r, or "" if the
// telegram holds no press for it.
func rockerPress(p []byte, r rocker) string {
	data, status := p[0], p[1]
	if status&statusNU == 0 {
		return ""
	}

	energyBow := data&0x10 != 0
	if !energyBow {
		return ""
	}

	actions := []int{int(data >> 5)}
	if data&0x01 != 0 {
		actions = append(actions, int(data>>1)&0x07)
	}

	for _, a := range actions {
		switch {
		case r == rockerA && a == actionA0, r == rockerB && a == actionB0:
			return Dir1Pressed
		case r == rockerA && a == actionAI, r == rockerB && a == actionBI:
			return Dir2Pressed
		}
	}
	return ""
}

// isRelease reports a U-message with the energy bow released.
func isRelease(p []byte) bool {
	return p[1]&statusNU == 0 && p[0]&0x10 == 0
}

func decodeRocker(r rocker) telegram.ChannelFunc {
	return func(p []byte, prior *telegram.Value, _ telegram.ChannelConfig) telegram.Value {
		if !need(p, 1) {
			return telegram.Undefined()
		}
		if dir := rockerPress(p, r); dir != "" {
			return telegram.Enum(dir)
		}
		if !isRelease(p) || prior == nil || prior.Kind != telegram.KindEnum {
			return telegram.Undefined()
		}
		switch prior.Text {
		case Dir1Pressed:
			return telegram.Enum(Dir1Released)
		case Dir2Pressed:
			return telegram.Enum(Dir2Released)
		default:
			return telegram.Undefined()
		}
	}
}

func decodeVirtualSwitch(p []byte, prior *telegram.Value, _ telegram.ChannelConfig) telegram.Value {
	if !need(p, 1) {
		return telegram.Undefined()
	}
	switch rockerPress(p, rockerA) {
	case Dir1Pressed:
		return telegram.Bool(true)
	case Dir2Pressed:
		return telegram.Bool(false)
	default:
		return priorOrUndefined(prior)
	}
}

// F6-10-00 handle positions (high nibble): 11x1 closed, 1101 tilted,
// 11x0 open.
func windowHandle(p []byte) string {
	hi := p[0] & 0xF0
	switch {
	case hi == 0xF0:
		return Closed
	case hi == 0xD0:
		return Tilted
	case hi&0xD0 == 0xC0:
		return Open
	default:
		return ""
	}
}

func decodeWindowHandle(p []byte, _ *telegram.Value, _ telegram.ChannelConfig) telegram.Value {
	if !need(p, 1) {
		return telegram.Undefined()
	}
	if s := windowHandle(p); s != "" {
		return telegram.Enum(s)
	}
	return telegram.Undefined()
}

func decodeWindowContact(p []byte, _ *telegram.Value, cfg telegram.ChannelConfig) telegram.Value {
	if !need(p, 1) {
		return telegram.Undefined()
	}
	s := windowHandle(p)
	if s == "" {
		return telegram.Undefined()
	}
	return contact(s == Closed, cfg)
}

// ─── 4BS ────────────────────────────────────────────────────────────
// Payload indexes: 0 = DB3, 1 = DB2, 2 = DB1, 3 = DB0.

const (
	db3 = 0
	db2 = 1
	db1 = 2
	db0 = 3
)

// A5-02-05: DB1 255..0 maps to 0..40 °C.
func decodeTemperatureA50205(p []byte, _ *telegram.Value, _ telegram.ChannelConfig) telegram.Value {
	if !need(p, 4) {
		return telegram.Undefined()
	}
	return telegram.Numeric(field.Range(uint64(p[db1]), 255, 0, 0, 40), "°C")
}

// A5-04-01: temperature only valid when DB0.1 (T-sensor) is set.
func decodeTemperatureA50401(p []byte, _ *telegram.Value, _ telegram.ChannelConfig) telegram.Value {
	if !need(p, 4) || !field.Bit(p, db0, 1) {
		return telegram.Undefined()
	}
	return telegram.Numeric(field.Range(uint64(p[db1]), 0, 250, 0, 40), "°C")
}

func decodeHumidityA50401(p []byte, _ *telegram.Value, _ telegram.ChannelConfig) telegram.Value {
	if !need(p, 4) {
		return telegram.Undefined()
	}
	return telegram.Numeric(field.Range(uint64(p[db2]), 0, 250, 0, 100), "%")
}

// A5-06-01: DB0.0 selects between ILL1 (DB1, 600..60000 lx) and ILL2
// (DB2, 300..30000 lx).
func decodeIlluminationA50601(p []byte, _ *telegram.Value, _ telegram.ChannelConfig) telegram.Value {
	if !need(p, 4) {
		return telegram.Undefined()
	}
	if field.Bit(p, db0, 0) {
		return telegram.Numeric(field.Range(uint64(p[db2]), 0, 255, 300, 30000), "lx")
	}
	return telegram.Numeric(field.Range(uint64(p[db1]), 0, 255, 600, 60000), "lx")
}

func decodeSupplyVoltageA50601(p []byte, _ *telegram.Value, _ telegram.ChannelConfig) telegram.Value {
	if !need(p, 4) {
		return telegram.Undefined()
	}
	return telegram.Numeric(field.Range(uint64(p[db3]), 0, 255, 0, 5.1), "V")
}

// Eltako A5-06-01: DB3 == 0 reads the low range from DB2 in 0.5 lx steps,
// otherwise DB3 holds the high range.
func decodeIlluminationEltako(p []byte, _ *telegram.Value, _ telegram.ChannelConfig) telegram.Value {
	if !need(p, 4) {
		return telegram.Undefined()
	}
	if p[db3] == 0 {
		return telegram.Numeric(float64(p[db2])*0.5, "lx")
	}
	return telegram.Numeric(float64(p[db3])*116.48+300.0, "lx")
}

// A5-07-01: PIR status in DB1, supply voltage in DB3 if DB0.0 is set.
func decodeMotion(p []byte, _ *telegram.Value, _ telegram.ChannelConfig) telegram.Value {
	if !need(p, 4) {
		return telegram.Undefined()
	}
	return telegram.Bool(p[db1] >= 128)
}

func decodeOccupancyVoltage(p []byte, _ *telegram.Value, _ telegram.ChannelConfig) telegram.Value {
	if !need(p, 4) || !field.Bit(p, db0, 0) {
		return telegram.Undefined()
	}
	return telegram.Numeric(field.Range(uint64(p[db3]), 0, 250, 0, 5.0), "V")
}

// A5-14-01: supply voltage DB3, contact DB0.0 (1 = closed).
func decodeBatteryVoltage(p []byte, _ *telegram.Value, _ telegram.ChannelConfig) telegram.Value {
	if !need(p, 4) {
		return telegram.Undefined()
	}
	return telegram.Numeric(field.Range(uint64(p[db3]), 0, 250, 0, 5.0), "V")
}

func decodeContact4BS(p []byte, _ *telegram.Value, cfg telegram.ChannelConfig) telegram.Value {
	if !need(p, 4) {
		return telegram.Undefined()
	}
	return contact(field.Bit(p, db0, 0), cfg)
}

// A5-12-01: 24-bit meter reading in DB3..DB1; DB0.2 selects cumulative
// (kWh) or current (W) value, DB0.1..0 the decimal divisor.
func decodeMeter(current bool) telegram.ChannelFunc {
	return func(p []byte, _ *telegram.Value, _ telegram.ChannelConfig) telegram.Value {
		if !need(p, 4) || field.Bit(p, db0, 2) != current {
			return telegram.Undefined()
		}
		reading := float64(field.Uint(p, db3, 3))
		for i := uint64(0); i < field.Bits(p, db0, 0, 2); i++ {
			reading /= 10
		}
		if current {
			return telegram.Numeric(reading, "W")
		}
		return telegram.Numeric(reading, "kWh")
	}
}

// ─── SIG ────────────────────────────────────────────────────────────

// D0-06: MID 0x06 carries the energy level in percent.
func decodeBatteryLevel(p []byte, _ *telegram.Value, _ telegram.ChannelConfig) telegram.Value {
	if !need(p, 2) || p[0] != 0x06 {
		return telegram.Undefined()
	}
	return telegram.Numeric(float64(p[1]), "%")
}

func priorOrUndefined(prior *telegram.Value) telegram.Value {
	if prior == nil {
		return telegram.Undefined()
	}
	return *prior
}
