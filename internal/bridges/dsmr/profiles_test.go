package dsmr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-telegrams/internal/telegram"
	"github.com/nerrad567/gray-logic-telegrams/internal/testutil"
)

func newDispatcher(t *testing.T) *telegram.Dispatcher {
	t.Helper()
	reg := telegram.NewRegistry()
	require.NoError(t, Register(reg))
	reg.Freeze()

	d, err := telegram.NewDispatcher(telegram.DispatcherOptions{Family: Family{}, Registry: reg})
	require.NoError(t, err)
	return d
}

func TestDSMR5Golden(t *testing.T) {
	d := newDispatcher(t)
	res := d.Dispatch(telegram.NewRawTelegram(FamilyName, "test", testutil.LoadText(t, "dsmr/dsmr5.txt")))

	require.Equal(t, telegram.StateOK, res.State)
	require.Equal(t, telegram.OutcomeDecoded, res.Outcome())

	got := make(map[string]string, len(res.Values))
	for _, cv := range res.Values {
		assert.Equal(t, "dsmr:"+meterID, cv.DeviceID)
		got[cv.Channel] = cv.Value.String()
	}

	var want map[string]string
	testutil.LoadJSON(t, "dsmr/dsmr5_values.json", &want)
	assert.Equal(t, want, got)

	// 0-0:96.3.10 (breaker state) has no decoder.
	assert.Equal(t, []telegram.ProfileKey{OBIS{0, 0, 96, 3, 10}}, res.Unsupported)
}

func TestDSMR22(t *testing.T) {
	d := newDispatcher(t)
	res := d.Dispatch(telegram.NewRawTelegram(FamilyName, "test", testutil.LoadText(t, "dsmr/dsmr22.txt")))
	require.Equal(t, telegram.StateOK, res.State)

	device := `dsmr:ISk5\2ME382-1003`
	v, ok := res.Value(device, "deliveryTariff1")
	require.True(t, ok)
	assert.Equal(t, telegram.Numeric(185, "kWh"), v)

	v, _ = res.Value(device, "tariffIndicator")
	assert.Equal(t, telegram.Enum("T1"), v)

	v, _ = res.Value(device, "textMessage")
	assert.False(t, v.Defined())
}

func TestRejectedTelegramYieldsNoValues(t *testing.T) {
	d := newDispatcher(t)
	data := testutil.LoadText(t, "dsmr/dsmr5.txt")
	data[len(data)-3] = '0'

	res := d.Dispatch(telegram.NewRawTelegram(FamilyName, "test", data))
	assert.Equal(t, telegram.StateChecksumError, res.State)
	assert.Empty(t, res.Values)
}

func TestParseTimestamp(t *testing.T) {
	winter, err := parseTimestamp("101209113020W")
	require.NoError(t, err)
	assert.True(t, winter.Equal(time.Date(2010, 12, 9, 10, 30, 20, 0, time.UTC)))

	summer, err := parseTimestamp("210701120000S")
	require.NoError(t, err)
	assert.True(t, summer.Equal(time.Date(2021, 7, 1, 10, 0, 0, 0, time.UTC)))

	_, err = parseTimestamp("210701120000X")
	assert.Error(t, err)
	_, err = parseTimestamp("2107011200")
	assert.Error(t, err)
}

func TestNumberAndOctets(t *testing.T) {
	v, unit, err := parseNumber("000123.456*kWh")
	require.NoError(t, err)
	assert.InDelta(t, 123.456, v, 1e-9)
	assert.Equal(t, "kWh", unit)

	v, unit, err = parseNumber("00004")
	require.NoError(t, err)
	assert.Equal(t, 4.0, v)
	assert.Empty(t, unit)

	_, _, err = parseNumber("abc*V")
	assert.Error(t, err)

	assert.Equal(t, "Hello", parseOctets("48656C6C6F"))
	assert.Equal(t, "XYZ", parseOctets("XYZ"))
}

func TestObjectsAreUnique(t *testing.T) {
	seen := make(map[OBIS]bool)
	for _, o := range Objects() {
		assert.False(t, seen[o.Key], "duplicate object %s", o.Key)
		seen[o.Key] = true
	}
}
