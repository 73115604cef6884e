package telegram

import (
	"encoding/json"
	"testing"
	"time"
)

func TestValue_Equal(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"undefined", Undefined(), Value{}, true},
		{"same number", Numeric(1.5, "V"), Numeric(1.5, "V"), true},
		{"different unit", Numeric(1.5, "V"), Numeric(1.5, "A"), false},
		{"bool", Bool(true), Bool(true), true},
		{"bool differs", Bool(true), Bool(false), false},
		{"enum", Enum("OPEN"), Enum("OPEN"), true},
		{"enum vs text", Enum("OPEN"), Text("OPEN"), false},
		{"time", Timestamp(ts), Timestamp(ts.In(time.FixedZone("CET", 3600))), true},
		{"kind differs", Numeric(0, ""), Undefined(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValue_String(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Numeric(532.96, "lx"), "532.96 lx"},
		{Numeric(3, ""), "3"},
		{Bool(true), "ON"},
		{Enum("CLOSED"), "CLOSED"},
		{Undefined(), "UNDEF"},
	}

	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestValue_JSON(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"numeric", Numeric(50, "lx"), `{"kind":"numeric","value":50,"unit":"lx"}`},
		{"bool false", Bool(false), `{"kind":"bool","value":false}`},
		{"enum", Enum("TILTED"), `{"kind":"enum","value":"TILTED"}`},
		{"time", Timestamp(ts), `{"kind":"time","value":"2024-03-01T12:00:00Z"}`},
		{"undefined", Undefined(), `{"kind":"undefined","value":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.v)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Marshal() = %s, want %s", data, tt.want)
			}

			var back Value
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if !back.Equal(tt.v) {
				t.Errorf("Unmarshal() = %v, want %v", back, tt.v)
			}
		})
	}
}

func TestValue_UnmarshalUnknownKind(t *testing.T) {
	var v Value
	if err := json.Unmarshal([]byte(`{"kind":"blob","value":1}`), &v); err == nil {
		t.Error("Unmarshal() expected error for unknown kind")
	}
}

func TestChannelConfig_Apply(t *testing.T) {
	scale, offset := 2.0, -1.0
	cfg := ChannelConfig{Scale: &scale, Offset: &offset}

	if got := cfg.Apply(Numeric(10, "W")); got.Number != 19 || got.Unit != "W" {
		t.Errorf("Apply() = %v, want 19 W", got)
	}
	if got := cfg.Apply(Enum("OPEN")); got.Text != "OPEN" {
		t.Errorf("Apply() changed enum: %v", got)
	}
	if got := (ChannelConfig{}).Apply(Numeric(10, "W")); got.Number != 10 {
		t.Errorf("Apply() without config = %v, want 10", got)
	}
}

func TestState_String(t *testing.T) {
	if StateChecksumError.String() != "CHECKSUM_ERROR" {
		t.Errorf("String() = %s", StateChecksumError)
	}
	if StateMalformed.String() != "MALFORMED" {
		t.Errorf("String() = %s", StateMalformed)
	}
}
