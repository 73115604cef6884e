package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

// validConfig returns a minimal config that passes validation.
func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Transports = []TransportConfig{{Name: "usb300", Family: "enocean", URL: "serial:///dev/ttyUSB0"}}
	return cfg
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
gateway:
  id: "test-gateway"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
transports:
  - name: usb300
    family: enocean
    url: "serial:///dev/ttyUSB0?baud=57600"
  - name: p1
    family: dsmr
    url: "serial:///dev/ttyUSB1?baud=115200"
    reconnect_interval: 2
devices:
  - id: hall-lux
    family: enocean
    address: "0180AB12"
    profile: "A5-06-01/ELTAKO"
    channels:
      illumination:
        alias: lux
        scale: 1.5
  - id: meter
    family: dsmr
    address: "ISk5\\2MT382-1000"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Gateway.ID != "test-gateway" {
		t.Errorf("Gateway.ID = %q, want %q", cfg.Gateway.ID, "test-gateway")
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
	if len(cfg.Transports) != 2 {
		t.Fatalf("len(Transports) = %d, want 2", len(cfg.Transports))
	}
	if got := cfg.Transports[1].GetReconnectInterval().Seconds(); got != 2 {
		t.Errorf("Transports[1].GetReconnectInterval() = %v, want 2s", got)
	}

	ch := cfg.Devices[0].Channels["illumination"]
	if ch.Alias != "lux" || ch.Scale == nil || *ch.Scale != 1.5 || ch.Offset != nil {
		t.Errorf("channel config = %+v, want alias lux scale 1.5 offset nil", ch)
	}
	if cfg.Devices[1].Address != `ISk5\2MT382-1000` {
		t.Errorf("Devices[1].Address = %q", cfg.Devices[1].Address)
	}

	// untouched defaults survive
	if cfg.MQTT.TopicPrefix != "telegramd" {
		t.Errorf("MQTT.TopicPrefix = %q, want default", cfg.MQTT.TopicPrefix)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
gateway:
  id: ""
transports:
  - name: usb300
    family: enocean
    url: "serial:///dev/ttyUSB0"
`
	_, err := Load(writeConfig(t, content))
	if err == nil || !strings.Contains(err.Error(), "gateway.id is required") {
		t.Errorf("Load() error = %v, want gateway.id validation error", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:    "missing gateway ID",
			mutate:  func(c *Config) { c.Gateway.ID = "" },
			wantErr: "gateway.id is required",
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path is required",
		},
		{
			name: "database disabled without path",
			mutate: func(c *Config) {
				c.Database.Enabled = false
				c.Database.Path = ""
			},
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos must be 0, 1, or 2",
		},
		{
			name:    "influxdb enabled without url",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: "influxdb.url is required",
		},
		{
			name:    "no transports",
			mutate:  func(c *Config) { c.Transports = nil },
			wantErr: "at least one transport is required",
		},
		{
			name: "duplicate transport name",
			mutate: func(c *Config) {
				c.Transports = append(c.Transports, TransportConfig{Name: "usb300", Family: "knx", URL: "tcp://localhost:6720"})
			},
			wantErr: `transports[1].name "usb300" is duplicated`,
		},
		{
			name:    "unknown transport family",
			mutate:  func(c *Config) { c.Transports[0].Family = "zigbee" },
			wantErr: "transports[0].family must be one of enocean, dsmr, knx",
		},
		{
			name: "device without profile",
			mutate: func(c *Config) {
				c.Devices = []DeviceConfig{{ID: "lamp", Family: "knx", Address: "1/2/3"}}
			},
			wantErr: "devices[0].profile is required for knx devices",
		},
		{
			name: "dsmr device without profile",
			mutate: func(c *Config) {
				c.Devices = []DeviceConfig{{ID: "meter", Family: "dsmr", Address: "ISk5"}}
			},
		},
		{
			name: "duplicate device id",
			mutate: func(c *Config) {
				c.Devices = []DeviceConfig{
					{ID: "lamp", Family: "knx", Address: "1/2/3", Profile: "1.001"},
					{ID: "lamp", Family: "knx", Address: "1/2/4", Profile: "1.001"},
				}
			},
			wantErr: `devices[1].id "lamp" is duplicated`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Gateway.ID = ""
	cfg.MQTT.QoS = 5

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	if !strings.Contains(err.Error(), "gateway.id is required; mqtt.qos must be 0, 1, or 2") {
		t.Errorf("Validate() = %v, want both messages joined", err)
	}
}

func TestConfig_GetDurations(t *testing.T) {
	cfg := &Config{
		Gateway: GatewayConfig{HealthInterval: 45},
		Journal: JournalConfig{RetentionHours: 48},
	}

	if got := cfg.GetHealthInterval().Seconds(); got != 45 {
		t.Errorf("GetHealthInterval() = %v, want 45", got)
	}
	if got := cfg.GetJournalRetention().Hours(); got != 48 {
		t.Errorf("GetJournalRetention() = %v, want 48", got)
	}

	tc := TransportConfig{ConnectTimeout: 3, ReconnectInterval: 7}
	if got := tc.GetConnectTimeout().Seconds(); got != 3 {
		t.Errorf("GetConnectTimeout() = %v, want 3", got)
	}
	if got := tc.GetReconnectInterval().Seconds(); got != 7 {
		t.Errorf("GetReconnectInterval() = %v, want 7", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("TELEGRAMD_GATEWAY_ID", "gw-7")
	t.Setenv("TELEGRAMD_DATABASE_PATH", "/custom/path.db")
	t.Setenv("TELEGRAMD_MQTT_HOST", "mqtt.example.com")
	t.Setenv("TELEGRAMD_MQTT_PORT", "8883")
	t.Setenv("TELEGRAMD_MQTT_USERNAME", "testuser")
	t.Setenv("TELEGRAMD_MQTT_PASSWORD", "testpass")
	t.Setenv("TELEGRAMD_INFLUXDB_URL", "http://influx:8086")
	t.Setenv("TELEGRAMD_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("TELEGRAMD_LOG_LEVEL", "debug")

	applyEnvOverrides(cfg)

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"Gateway.ID", cfg.Gateway.ID, "gw-7"},
		{"Database.Path", cfg.Database.Path, "/custom/path.db"},
		{"MQTT.Broker.Host", cfg.MQTT.Broker.Host, "mqtt.example.com"},
		{"MQTT.Broker.Port", cfg.MQTT.Broker.Port, 8883},
		{"MQTT.Auth.Username", cfg.MQTT.Auth.Username, "testuser"},
		{"MQTT.Auth.Password", cfg.MQTT.Auth.Password, "testpass"},
		{"InfluxDB.URL", cfg.InfluxDB.URL, "http://influx:8086"},
		{"InfluxDB.Token", cfg.InfluxDB.Token, "secret-token"},
		{"Logging.Level", cfg.Logging.Level, "debug"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestApplyEnvOverrides_InvalidPortIgnored(t *testing.T) {
	cfg := defaultConfig()
	t.Setenv("TELEGRAMD_MQTT_PORT", "not-a-port")

	applyEnvOverrides(cfg)

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("MQTT.Broker.Port = %d, want default 1883", cfg.MQTT.Broker.Port)
	}
}

func TestSecretsRedacted(t *testing.T) {
	auth := MQTTAuthConfig{Username: "u", Password: "hunter2"}
	influx := InfluxDBConfig{URL: "http://influx:8086", Token: "tok-123"}

	for name, s := range map[string]string{"auth": auth.String(), "influx": influx.String()} {
		if strings.Contains(s, "hunter2") || strings.Contains(s, "tok-123") {
			t.Errorf("%s String() leaks secret: %s", name, s)
		}
		if !strings.Contains(s, redacted) {
			t.Errorf("%s String() = %s, want %s marker", name, s, redacted)
		}
	}

	data, err := json.Marshal(struct {
		Auth   MQTTAuthConfig
		Influx InfluxDBConfig
	}{auth, influx})
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	if strings.Contains(string(data), "hunter2") || strings.Contains(string(data), "tok-123") {
		t.Errorf("JSON leaks secret: %s", data)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Gateway.ID == "" {
		t.Error("defaultConfig should have non-empty Gateway.ID")
	}
	if cfg.Database.Path == "" {
		t.Error("defaultConfig should have non-empty Database.Path")
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.InfluxDB.Enabled {
		t.Error("defaultConfig should leave InfluxDB disabled")
	}
}
