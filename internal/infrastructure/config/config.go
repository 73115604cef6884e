package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// redacted replaces secrets in String and MarshalJSON output.
const redacted = "[REDACTED]"

// Families lists the telegram families a transport or device may name.
var Families = []string{"enocean", "dsmr", "knx"}

// Config is the root configuration structure for telegramd.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Gateway    GatewayConfig     `yaml:"gateway"`
	Database   DatabaseConfig    `yaml:"database"`
	Journal    JournalConfig     `yaml:"journal"`
	MQTT       MQTTConfig        `yaml:"mqtt"`
	InfluxDB   InfluxDBConfig    `yaml:"influxdb"`
	Logging    LoggingConfig     `yaml:"logging"`
	Transports []TransportConfig `yaml:"transports"`
	Devices    []DeviceConfig    `yaml:"devices"`
}

// GatewayConfig contains gateway identity and operational settings.
type GatewayConfig struct {
	// ID uniquely identifies this gateway instance in health messages.
	ID string `yaml:"id"`

	// HealthInterval is how often to publish health status (seconds).
	// Default: 30 seconds.
	HealthInterval int `yaml:"health_interval"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// JournalConfig controls the telegram journal in SQLite.
type JournalConfig struct {
	Enabled bool `yaml:"enabled"`

	// RetentionHours is how long journal rows are kept. 0 keeps everything.
	RetentionHours int `yaml:"retention_hours"`

	// QueueSize bounds telegrams waiting to be written.
	QueueSize int `yaml:"queue_size"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`

	// TopicPrefix is the root of every published topic.
	// Default: "telegramd"
	TopicPrefix string `yaml:"topic_prefix"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`

	// Password for MQTT authentication (optional).
	// WARNING: Never log this value. Use String() method for safe logging.
	Password string `yaml:"password"`
}

// String returns a string representation with password masked.
func (a MQTTAuthConfig) String() string {
	password := ""
	if a.Password != "" {
		password = redacted
	}
	return fmt.Sprintf("MQTTAuthConfig{Username:%q, Password:%s}", a.Username, password)
}

// MarshalJSON implements json.Marshaler to redact password in JSON output.
func (a MQTTAuthConfig) MarshalJSON() ([]byte, error) {
	type plain MQTTAuthConfig
	safe := plain(a)
	if safe.Password != "" {
		safe.Password = redacted
	}
	return json.Marshal(safe)
}

// MQTTReconnectConfig bounds the reconnect backoff, in seconds. The client
// retries until it is closed.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// String returns a string representation with the token masked.
func (i InfluxDBConfig) String() string {
	token := ""
	if i.Token != "" {
		token = redacted
	}
	return fmt.Sprintf("InfluxDBConfig{Enabled:%t, URL:%q, Org:%q, Bucket:%q, Token:%s}",
		i.Enabled, i.URL, i.Org, i.Bucket, token)
}

// MarshalJSON implements json.Marshaler to redact the token in JSON output.
func (i InfluxDBConfig) MarshalJSON() ([]byte, error) {
	type plain InfluxDBConfig
	safe := plain(i)
	if safe.Token != "" {
		safe.Token = redacted
	}
	return json.Marshal(safe)
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TransportConfig defines one telegram source.
type TransportConfig struct {
	// Name labels the transport in logs, health and the journal.
	Name string `yaml:"name"`

	// Family is the telegram family read from this transport.
	Family string `yaml:"family"`

	// URL is the endpoint:
	//   - "serial:///dev/ttyUSB0?baud=57600"
	//   - "tcp://localhost:6720"
	//   - "unix:///run/knxd"
	//   - "file:///path/to/capture"
	URL string `yaml:"url"`

	// ConnectTimeout is the maximum time to open the endpoint (seconds).
	// Default: 10 seconds.
	ConnectTimeout int `yaml:"connect_timeout"`

	// ReconnectInterval is the initial delay between reconnection attempts (seconds).
	// Default: 5 seconds.
	ReconnectInterval int `yaml:"reconnect_interval"`
}

// DeviceConfig binds a device address to a profile.
type DeviceConfig struct {
	// ID is the device identifier used in topics and storage.
	ID string `yaml:"id"`

	Family string `yaml:"family"`

	// Address is the EnOcean sender ID, KNX group address or DSMR
	// meter identification.
	Address string `yaml:"address"`

	// Profile is the profile key in the family's notation ("A5-06-01",
	// "9.001"). DSMR devices leave it empty.
	Profile string `yaml:"profile"`

	// Channels optionally restricts and configures the decoded channels.
	Channels map[string]ChannelConfig `yaml:"channels"`
}

// ChannelConfig configures one channel of a device.
type ChannelConfig struct {
	Alias    string   `yaml:"alias"`
	Inverted bool     `yaml:"inverted"`
	Scale    *float64 `yaml:"scale"`
	Offset   *float64 `yaml:"offset"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: TELEGRAMD_SECTION_KEY
// For example: TELEGRAMD_DATABASE_PATH, TELEGRAMD_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			ID:             "telegramd-001",
			HealthInterval: 30,
		},
		Database: DatabaseConfig{
			Enabled:     true,
			Path:        "./data/telegramd.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Journal: JournalConfig{
			Enabled:        true,
			RetentionHours: 24 * 7,
			QueueSize:      1000,
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "telegramd",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			TopicPrefix: "telegramd",
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: TELEGRAMD_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TELEGRAMD_GATEWAY_ID"); v != "" {
		cfg.Gateway.ID = v
	}

	// Database
	if v := os.Getenv("TELEGRAMD_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("TELEGRAMD_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("TELEGRAMD_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("TELEGRAMD_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("TELEGRAMD_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("TELEGRAMD_INFLUXDB_URL"); v != "" {
		cfg.InfluxDB.URL = v
	}
	if v := os.Getenv("TELEGRAMD_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("TELEGRAMD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Gateway.ID == "" {
		errs = append(errs, "gateway.id is required")
	}
	if c.Gateway.HealthInterval < 1 {
		errs = append(errs, "gateway.health_interval must be at least 1 second")
	}

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.Journal.Enabled && c.Journal.QueueSize < 1 {
		errs = append(errs, "journal.queue_size must be at least 1")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	errs = append(errs, c.validateTransports()...)
	errs = append(errs, c.validateDevices()...)

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (c *Config) validateTransports() []string {
	var errs []string
	names := make(map[string]bool, len(c.Transports))

	if len(c.Transports) == 0 {
		errs = append(errs, "at least one transport is required")
	}
	for i, t := range c.Transports {
		if t.Name == "" {
			errs = append(errs, fmt.Sprintf("transports[%d].name is required", i))
		} else if names[t.Name] {
			errs = append(errs, fmt.Sprintf("transports[%d].name %q is duplicated", i, t.Name))
		}
		names[t.Name] = true

		if !knownFamily(t.Family) {
			errs = append(errs, fmt.Sprintf("transports[%d].family must be one of %s", i, strings.Join(Families, ", ")))
		}
		if t.URL == "" {
			errs = append(errs, fmt.Sprintf("transports[%d].url is required", i))
		}
	}
	return errs
}

func (c *Config) validateDevices() []string {
	var errs []string
	ids := make(map[string]bool, len(c.Devices))

	for i, d := range c.Devices {
		if d.ID == "" {
			errs = append(errs, fmt.Sprintf("devices[%d].id is required", i))
		} else if ids[d.ID] {
			errs = append(errs, fmt.Sprintf("devices[%d].id %q is duplicated", i, d.ID))
		}
		ids[d.ID] = true

		if !knownFamily(d.Family) {
			errs = append(errs, fmt.Sprintf("devices[%d].family must be one of %s", i, strings.Join(Families, ", ")))
		}
		if d.Address == "" {
			errs = append(errs, fmt.Sprintf("devices[%d].address is required", i))
		}
		if d.Profile == "" && d.Family != "dsmr" {
			errs = append(errs, fmt.Sprintf("devices[%d].profile is required for %s devices", i, d.Family))
		}
	}
	return errs
}

func knownFamily(name string) bool {
	for _, f := range Families {
		if f == name {
			return true
		}
	}
	return false
}

// GetHealthInterval returns the health publishing interval as a Duration.
func (c *Config) GetHealthInterval() time.Duration {
	return time.Duration(c.Gateway.HealthInterval) * time.Second
}

// GetJournalRetention returns the journal retention as a Duration; 0 keeps everything.
func (c *Config) GetJournalRetention() time.Duration {
	return time.Duration(c.Journal.RetentionHours) * time.Hour
}

// GetConnectTimeout returns the transport connect timeout as a Duration.
func (t TransportConfig) GetConnectTimeout() time.Duration {
	return time.Duration(t.ConnectTimeout) * time.Second
}

// GetReconnectInterval returns the initial reconnect delay as a Duration.
func (t TransportConfig) GetReconnectInterval() time.Duration {
	return time.Duration(t.ReconnectInterval) * time.Second
}
