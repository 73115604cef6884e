package enocean

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-telegrams/internal/telegram"
)

func TestFamily_Validate(t *testing.T) {
	f := Family{}
	good := mustHex(t, esp3Eltako)
	badCRC := append([]byte(nil), good...)
	badCRC[len(badCRC)-1] ^= 0x01

	tests := []struct {
		name string
		hex  string
		raw  []byte
		want telegram.State
	}{
		{name: "esp3 4BS", raw: good, want: telegram.StateOK},
		{name: "esp3 data crc", raw: badCRC, want: telegram.StateChecksumError},
		{name: "bare 1BS", hex: "D5010180AB1300", want: telegram.StateOK},
		{name: "bare RPS", hex: "F6300180AB1430", want: telegram.StateOK},
		{name: "bare 4BS", hex: "A5006400080180AB1200", want: telegram.StateOK},
		{name: "4BS too short", hex: "A50064000180AB1200", want: telegram.StateMalformed},
		{name: "1BS too long", hex: "D501010180AB1300", want: telegram.StateMalformed},
		{name: "unknown RORG minimum", hex: "A70180AB1200", want: telegram.StateOK},
		{name: "too short", hex: "D50180AB13", want: telegram.StateMalformed},
		{name: "empty", hex: "", want: telegram.StateMalformed},
		{name: "esp3 response packet", hex: "5500010002650000", want: telegram.StateMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := tt.raw
			if raw == nil {
				raw = mustHex(t, tt.hex)
			}
			assert.Equal(t, tt.want, f.Validate(raw))
		})
	}
}

func TestFamily_Split(t *testing.T) {
	units, err := Family{}.Split(mustHex(t, esp3Eltako))
	require.NoError(t, err)
	require.Len(t, units, 1)

	u := units[0]
	assert.Equal(t, "0180AB12", u.Address)
	assert.Equal(t, []byte{0x00, 0x64, 0x00, 0x08, 0x00}, u.Payload)
	assert.False(t, u.SkipDecode)
	assert.Equal(t, telegram.Numeric(-45, "dBm"), u.Meta["rssi"])
	assert.Equal(t, telegram.Numeric(0, ""), u.Meta["repeatCount"])
}

func TestFamily_TeachIn(t *testing.T) {
	f := Family{}

	tests := []struct {
		name    string
		hex     string
		teachIn bool
		skip    bool
		wantKey telegram.ProfileKey
	}{
		{name: "1BS teach-in still decodes", hex: "D5000180AB1300", teachIn: true},
		{name: "1BS data", hex: "D5090180AB1300"},
		{name: "4BS data", hex: "A5006400080180AB1200"},
		{name: "RPS never teaches in", hex: "F6300180AB1430"},
		{name: "4BS teach-in without EEP", hex: "A5000000000180AB1200", teachIn: true, skip: true},
		{
			name:    "4BS teach-in with Eltako A5-06-01",
			hex:     "A518080D800180AB1200",
			teachIn: true,
			skip:    true,
			wantKey: EEP{RORG: RORG4BS, Func: 0x06, Type: 0x01, Manufacturer: ManufacturerEltako},
		},
		{
			name:    "UTE announcing D5-00-01",
			hex:     "D4A0010D000100D50180AB1300",
			teachIn: true,
			skip:    true,
			wantKey: EEP{RORG: RORG1BS, Func: 0x00, Type: 0x01, Manufacturer: ManufacturerEltako},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := mustHex(t, tt.hex)
			require.Equal(t, telegram.StateOK, f.Validate(raw))
			assert.Equal(t, tt.teachIn, f.IsTeachIn(raw))

			units, err := f.Split(raw)
			require.NoError(t, err)
			require.Len(t, units, 1)
			assert.Equal(t, tt.skip, units[0].SkipDecode)
			assert.Equal(t, tt.wantKey, units[0].TeachKey)
		})
	}
}

func TestLearnedKey(t *testing.T) {
	reg := telegram.NewRegistry()
	require.NoError(t, Register(reg))

	eltako := EEP{RORG: RORG4BS, Func: 0x06, Type: 0x01, Manufacturer: ManufacturerEltako}
	assert.Equal(t, eltako, LearnedKey(reg, eltako))

	other := EEP{RORG: RORG4BS, Func: 0x02, Type: 0x05, Manufacturer: 0x7FF}
	assert.Equal(t, EEPTemperature, LearnedKey(reg, other))
}

func TestParseEEP(t *testing.T) {
	tests := []struct {
		in      string
		want    EEP
		wantStr string
		wantErr bool
	}{
		{in: "A5-06-01", want: EEPLightSensor, wantStr: "A5-06-01"},
		{in: "a5-06-01/eltako", want: EEPLightSensorEltako, wantStr: "A5-06-01/ELTAKO"},
		{in: "A5-06-01/00D", want: EEPLightSensorEltako, wantStr: "A5-06-01/ELTAKO"},
		{in: "F6-02-01/7FF", want: EEP{RORG: RORGRPS, Func: 2, Type: 1, Manufacturer: 0x7FF}, wantStr: "F6-02-01/7FF"},
		{in: "A5-06", wantErr: true},
		{in: "A5-6-01", wantErr: true},
		{in: "ZZ-06-01", wantErr: true},
		{in: "A5-06-01/NOBODY", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEEP(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidEEP)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantStr, got.String())
		})
	}
}
