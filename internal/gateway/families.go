package gateway

import (
	"bufio"
	"fmt"

	"github.com/nerrad567/gray-logic-telegrams/internal/bridges/dsmr"
	"github.com/nerrad567/gray-logic-telegrams/internal/bridges/enocean"
	"github.com/nerrad567/gray-logic-telegrams/internal/bridges/knx"
	"github.com/nerrad567/gray-logic-telegrams/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-telegrams/internal/telegram"
	"github.com/nerrad567/gray-logic-telegrams/internal/transport"
)

// familyDef ties a telegram family to its stream framing and decoders.
type familyDef struct {
	family    telegram.Family
	split     bufio.SplitFunc
	register  func(*telegram.Registry) error
	handshake func() *transport.Handshake

	// address canonicalises a configured device address. Nil accepts
	// addresses as written.
	address func(string) (string, error)
}

var familyDefs = map[string]familyDef{
	enocean.FamilyName: {
		family:   enocean.Family{},
		split:    enocean.SplitESP3,
		register: enocean.Register,
	},
	dsmr.FamilyName: {
		family:   dsmr.Family{},
		split:    dsmr.SplitTelegram,
		register: dsmr.Register,
	},
	knx.FamilyName: {
		family:    knx.Family{},
		split:     knx.SplitKNXD,
		register:  knx.Register,
		handshake: knxdHandshake,
		address:   knxGroupAddress,
	},
}

// knxdHandshake switches a knxd connection into group socket mode.
func knxdHandshake() *transport.Handshake {
	return &transport.Handshake{
		Request: knx.OpenGroupConRequest(),
		Ack:     knx.CheckOpenGroupConReply,
	}
}

// knxGroupAddress rewrites "01/2/003" as "1/2/3", matching the addresses
// produced by knx.Family.Split.
func knxGroupAddress(s string) (string, error) {
	ga, err := knx.ParseGroupAddress(s)
	if err != nil {
		return "", err
	}
	return ga.String(), nil
}

func lookupFamily(name string) (familyDef, error) {
	def, ok := familyDefs[name]
	if !ok {
		return familyDef{}, fmt.Errorf("%w: %q", ErrUnknownFamily, name)
	}
	return def, nil
}

// LookupFamily returns the telegram family called name.
func LookupFamily(name string) (telegram.Family, error) {
	def, err := lookupFamily(name)
	if err != nil {
		return nil, err
	}
	return def.family, nil
}

// SplitFunc returns the stream framing of the family called name.
func SplitFunc(name string) (bufio.SplitFunc, error) {
	def, err := lookupFamily(name)
	if err != nil {
		return nil, err
	}
	return def.split, nil
}

// NewRegistry returns a frozen registry holding the decoders of every
// supported family.
func NewRegistry() (*telegram.Registry, error) {
	reg := telegram.NewRegistry()
	for _, name := range config.Families {
		def, err := lookupFamily(name)
		if err != nil {
			return nil, err
		}
		if err := def.register(reg); err != nil {
			return nil, fmt.Errorf("registering %s profiles: %w", name, err)
		}
	}
	reg.Freeze()
	return reg, nil
}

// BuildBindings converts configured devices into a binding set.
func BuildBindings(devices []config.DeviceConfig) (*telegram.Bindings, error) {
	bindings := telegram.NewBindings()
	for _, d := range devices {
		bd, err := bindingFromConfig(d)
		if err != nil {
			return nil, err
		}
		if err := bindings.Add(bd); err != nil {
			return nil, err
		}
	}
	return bindings, nil
}

func bindingFromConfig(d config.DeviceConfig) (telegram.Binding, error) {
	def, err := lookupFamily(d.Family)
	if err != nil {
		return telegram.Binding{}, fmt.Errorf("device %s: %w", d.ID, err)
	}

	bd := telegram.Binding{
		DeviceID: d.ID,
		Family:   d.Family,
		Address:  d.Address,
	}
	if def.address != nil {
		if bd.Address, err = def.address(d.Address); err != nil {
			return telegram.Binding{}, fmt.Errorf("%w: %s: %w", ErrInvalidDevice, d.ID, err)
		}
	}
	if d.Profile != "" {
		key, err := def.family.ParseKey(d.Profile)
		if err != nil {
			return telegram.Binding{}, fmt.Errorf("%w: %s: %w", ErrInvalidDevice, d.ID, err)
		}
		bd.Key = key
	}

	if len(d.Channels) > 0 {
		bd.Channels = make(map[string]telegram.ChannelBinding, len(d.Channels))
		for id, ch := range d.Channels {
			bd.Channels[id] = telegram.ChannelBinding{
				Alias: ch.Alias,
				Config: telegram.ChannelConfig{
					Inverted: ch.Inverted,
					Scale:    ch.Scale,
					Offset:   ch.Offset,
				},
			}
		}
	}
	return bd, nil
}

// unsupportedBindings returns the device IDs whose profile has no decoder.
func unsupportedBindings(reg *telegram.Registry, bindings *telegram.Bindings) []string {
	var ids []string
	for _, bd := range bindings.All() {
		if bd.Key == nil {
			continue
		}
		if _, err := reg.Lookup(bd.Key); err != nil {
			ids = append(ids, bd.DeviceID)
		}
	}
	return ids
}
