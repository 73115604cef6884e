package dsmr

import (
	"fmt"
	"strconv"

	"github.com/nerrad567/gray-logic-telegrams/internal/telegram"
)

// MaxMBusChannels is the number of M-Bus devices a meter can relay.
const MaxMBusChannels = 4

// Object describes how one OBIS code maps to channels.
type Object struct {
	Key      OBIS
	Channels telegram.ChannelDecoder
}

func obis(a, b, c, d, e byte) OBIS { return OBIS{A: a, B: b, C: c, D: d, E: e} }

// valueAt returns the i-th "(...)" group of a payload.
func valueAt(p []byte, i int) (string, bool) {
	vals, err := splitValues(p)
	if err != nil || i >= len(vals) {
		return "", false
	}
	return vals[i], true
}

func numberAt(i int) telegram.ChannelFunc {
	return func(p []byte, _ *telegram.Value, _ telegram.ChannelConfig) telegram.Value {
		s, ok := valueAt(p, i)
		if !ok {
			return telegram.Undefined()
		}
		v, unit, err := parseNumber(s)
		if err != nil {
			return telegram.Undefined()
		}
		return telegram.Numeric(v, unit)
	}
}

func timestampAt(i int) telegram.ChannelFunc {
	return func(p []byte, _ *telegram.Value, _ telegram.ChannelConfig) telegram.Value {
		s, ok := valueAt(p, i)
		if !ok {
			return telegram.Undefined()
		}
		t, err := parseTimestamp(s)
		if err != nil {
			return telegram.Undefined()
		}
		return telegram.Timestamp(t)
	}
}

func textAt(i int, octets bool) telegram.ChannelFunc {
	return func(p []byte, _ *telegram.Value, _ telegram.ChannelConfig) telegram.Value {
		s, ok := valueAt(p, i)
		if !ok || s == "" {
			return telegram.Undefined()
		}
		if octets {
			s = parseOctets(s)
		}
		return telegram.Text(s)
	}
}

// tariff maps the tariff indicator "0001"/"0002" to T1/T2.
func tariff(p []byte, _ *telegram.Value, _ telegram.ChannelConfig) telegram.Value {
	s, ok := valueAt(p, 0)
	if !ok {
		return telegram.Undefined()
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return telegram.Undefined()
	}
	return telegram.Enum(fmt.Sprintf("T%d", n))
}

func single(key OBIS, channel string, fn telegram.ChannelFunc) Object {
	return Object{Key: key, Channels: telegram.ChannelDecoder{{ID: channel, Decode: fn}}}
}

// Objects returns the supported OBIS codes and their channels.
func Objects() []Object {
	objs := []Object{
		single(obis(1, 3, 0, 2, 8), "p1Version", textAt(0, false)),
		single(obis(0, 0, 1, 0, 0), "timestamp", timestampAt(0)),
		single(obis(0, 0, 96, 1, 1), "equipmentId", textAt(0, true)),
		single(obis(1, 0, 1, 8, 1), "deliveryTariff1", numberAt(0)),
		single(obis(1, 0, 1, 8, 2), "deliveryTariff2", numberAt(0)),
		single(obis(1, 0, 2, 8, 1), "productionTariff1", numberAt(0)),
		single(obis(1, 0, 2, 8, 2), "productionTariff2", numberAt(0)),
		single(obis(0, 0, 96, 14, 0), "tariffIndicator", tariff),
		single(obis(1, 0, 1, 7, 0), "actualDelivery", numberAt(0)),
		single(obis(1, 0, 2, 7, 0), "actualProduction", numberAt(0)),
		single(obis(0, 0, 96, 7, 21), "powerFailures", numberAt(0)),
		single(obis(0, 0, 96, 7, 9), "longPowerFailures", numberAt(0)),
		single(obis(1, 0, 99, 97, 0), "powerFailureLogEntries", numberAt(0)),
		single(obis(0, 0, 96, 13, 0), "textMessage", textAt(0, true)),
	}

	// Per-phase objects: C = 20*phase + offset.
	for phase := byte(1); phase <= 3; phase++ {
		base := 20 * phase
		suffix := fmt.Sprintf("L%d", phase)
		objs = append(objs,
			single(obis(1, 0, base+12, 32, 0), "voltageSags"+suffix, numberAt(0)),
			single(obis(1, 0, base+12, 36, 0), "voltageSwells"+suffix, numberAt(0)),
			single(obis(1, 0, base+12, 7, 0), "voltage"+suffix, numberAt(0)),
			single(obis(1, 0, base+11, 7, 0), "current"+suffix, numberAt(0)),
			single(obis(1, 0, base+1, 7, 0), "powerDelivery"+suffix, numberAt(0)),
			single(obis(1, 0, base+2, 7, 0), "powerProduction"+suffix, numberAt(0)),
		)
	}

	for n := byte(1); n <= MaxMBusChannels; n++ {
		prefix := fmt.Sprintf("mbus%d", n)
		objs = append(objs,
			single(obis(0, n, 24, 1, 0), prefix+"DeviceType", numberAt(0)),
			single(obis(0, n, 96, 1, 0), prefix+"EquipmentId", textAt(0, true)),
			Object{
				Key: obis(0, n, 24, 2, 1),
				Channels: telegram.ChannelDecoder{
					{ID: prefix + "Value", Decode: numberAt(1)},
					{ID: prefix + "Timestamp", Decode: timestampAt(0)},
				},
			},
		)
	}
	return objs
}

// Register adds all DSMR objects to reg.
func Register(reg *telegram.Registry) error {
	for _, o := range Objects() {
		if err := reg.Register(o.Key, o.Channels); err != nil {
			return fmt.Errorf("registering %s: %w", o.Key, err)
		}
	}
	return nil
}
