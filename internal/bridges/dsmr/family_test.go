package dsmr

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-telegrams/internal/telegram"
	"github.com/nerrad567/gray-logic-telegrams/internal/testutil"
)

const meterID = `ISk5\2MT382-1000`

func TestValidate(t *testing.T) {
	good := testutil.LoadText(t, "dsmr/dsmr5.txt")

	withCRC := func(crc string) []byte {
		b := bytes.Clone(good)
		copy(b[len(b)-6:], crc)
		return b
	}
	flipped := bytes.Clone(good)
	flipped[bytes.Index(flipped, []byte("220.1"))] = '3'

	tests := []struct {
		name string
		data []byte
		want telegram.State
	}{
		{"dsmr5 with crc", good, telegram.StateOK},
		{"dsmr 2.2 without crc", testutil.LoadText(t, "dsmr/dsmr22.txt"), telegram.StateOK},
		{"lowercase crc", withCRC("f039"), telegram.StateOK},
		{"wrong crc", withCRC("0000"), telegram.StateChecksumError},
		{"payload changed", flipped, telegram.StateChecksumError},
		{"non-hex crc", withCRC("ZZ39"), telegram.StateMalformed},
		{"missing slash", good[1:], telegram.StateMalformed},
		{"missing end marker", bytes.ReplaceAll(good, []byte("!"), []byte("?")), telegram.StateMalformed},
		{"short crc", []byte("/ISK5\r\n\r\n!AB\r\n"), telegram.StateMalformed},
		{"no trailing crlf", good[:len(good)-2], telegram.StateMalformed},
		{"empty", nil, telegram.StateMalformed},
		{"below minimum length", []byte("/X\r\n\r\n!\r\n"), telegram.StateMalformed},
		{"shortest accepted", []byte("/ISK5\r\n\r\nAB\r\n!\r\n"), telegram.StateOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Family{}.Validate(tt.data))
		})
	}
}

func TestSplit(t *testing.T) {
	units, err := Family{}.Split(testutil.LoadText(t, "dsmr/dsmr5.txt"))
	require.NoError(t, err)
	require.Len(t, units, 36)

	first := units[0]
	assert.Equal(t, meterID, first.Address)
	assert.Equal(t, OBIS{A: 1, B: 3, C: 0, D: 2, E: 8}, first.Key)
	assert.Equal(t, "(50)", string(first.Payload))
}

func TestSplit_ContinuationLines(t *testing.T) {
	units, err := Family{}.Split(testutil.LoadText(t, "dsmr/dsmr22.txt"))
	require.NoError(t, err)

	last := units[len(units)-1]
	assert.Equal(t, "0-1:24.3.0", last.Key.String())
	assert.Equal(t, "(121030140000)(00)(60)(1)(0-1:24.2.1)(m3)(00001.001)", string(last.Payload))
}

func TestSplit_BadLine(t *testing.T) {
	_, err := Family{}.Split([]byte("/ISK5\r\n\r\n1-0:1.8.1\r\n!\r\n"))
	assert.ErrorIs(t, err, ErrInvalidTelegram)
}

func TestParseOBIS(t *testing.T) {
	tests := []struct {
		in      string
		want    OBIS
		wantErr bool
	}{
		{in: "1-0:1.8.1", want: OBIS{1, 0, 1, 8, 1}},
		{in: "0-1:24.2.1", want: OBIS{0, 1, 24, 2, 1}},
		{in: "1-0:1.8.1.255", want: OBIS{1, 0, 1, 8, 1}},
		{in: "1-0:1.8.1*255", want: OBIS{1, 0, 1, 8, 1}},
		{in: "1-0:1.8", wantErr: true},
		{in: "1.8.1", wantErr: true},
		{in: "1-0:1.8.x", wantErr: true},
		{in: "1-0:1.8.300", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOBIS(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidOBIS)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitTelegram(t *testing.T) {
	t5 := testutil.LoadText(t, "dsmr/dsmr5.txt")
	t22 := testutil.LoadText(t, "dsmr/dsmr22.txt")

	var stream []byte
	stream = append(stream, "noise\r\n"...)
	stream = append(stream, t5...)
	stream = append(stream, t22...)
	stream = append(stream, t5[:40]...)

	sc := bufio.NewScanner(bytes.NewReader(stream))
	sc.Split(SplitTelegram)

	var got [][]byte
	for sc.Scan() {
		got = append(got, bytes.Clone(sc.Bytes()))
	}
	require.NoError(t, sc.Err())
	require.Len(t, got, 2)
	assert.Equal(t, t5, got[0])
	assert.Equal(t, t22, got[1])
}
