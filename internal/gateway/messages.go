package gateway

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-telegrams/internal/telegram"
)

// MQTT message types published and consumed by the gateway.

// StateMessage carries one decoded channel value.
// Topic: {prefix}/state/{family}/{device}/{channel}
// QoS: configured, Retained: Yes
type StateMessage struct {
	// DeviceID is the bound device identifier.
	DeviceID string `json:"device_id"`

	// Channel is the published channel name (alias when configured).
	Channel string `json:"channel"`

	// Value is the decoded value: number, bool, string or timestamp.
	Value any `json:"value"`

	Unit string `json:"unit,omitempty"`

	// Kind is the value kind ("numeric", "bool", "enum", "text", "time").
	Kind string `json:"kind"`

	// State is the validation state of the telegram that carried the value.
	State string `json:"state"`

	// TelegramID correlates the value with the telegram journal.
	TelegramID string `json:"telegram_id"`

	// Timestamp is when the telegram was received (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`
}

// NewStateMessage builds the state message of one channel value.
func NewStateMessage(res telegram.Result, cv telegram.ChannelValue) StateMessage {
	return StateMessage{
		DeviceID:   cv.DeviceID,
		Channel:    cv.Channel,
		Value:      cv.Value.Any(),
		Unit:       cv.Value.Unit,
		Kind:       cv.Value.Kind.String(),
		State:      res.State.String(),
		TelegramID: res.Telegram.ID.String(),
		Timestamp:  res.Telegram.ReceivedAt,
	}
}

// HealthStatus represents the operational status of the gateway.
type HealthStatus string

const (
	// HealthHealthy indicates every transport is connected.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded indicates a transport or MQTT is down.
	HealthDegraded HealthStatus = "degraded"

	// HealthStarting indicates the gateway is starting up.
	HealthStarting HealthStatus = "starting"

	// HealthStopping indicates the gateway is shutting down.
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage reports gateway status and telegram statistics.
// Topic: {prefix}/health/{gateway}
// QoS: 1, Retained: Yes
type HealthMessage struct {
	// Gateway is the gateway identifier.
	Gateway string `json:"gateway"`

	// Timestamp is when the health status was generated (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	Status  HealthStatus `json:"status"`
	Version string       `json:"version,omitempty"`

	// UptimeSeconds is how long the gateway has been running.
	UptimeSeconds int64 `json:"uptime_seconds"`

	Transports []TransportStatus   `json:"transports,omitempty"`
	Telegrams  *TelegramStatistics `json:"telegrams,omitempty"`

	// DevicesBound counts configured and learned devices.
	DevicesBound int `json:"devices_bound"`

	// Learning lists families currently in learn mode.
	Learning []string `json:"learning,omitempty"`

	// Reason explains a degraded status.
	Reason string `json:"reason,omitempty"`
}

// TransportStatus describes one transport connection.
type TransportStatus struct {
	Name         string     `json:"name"`
	Family       string     `json:"family"`
	Endpoint     string     `json:"endpoint"`
	Connected    bool       `json:"connected"`
	TelegramsRx  uint64     `json:"telegrams_rx"`
	Errors       uint64     `json:"errors"`
	Reconnects   uint64     `json:"reconnects"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
}

// TelegramStatistics counts dispatch outcomes since start.
type TelegramStatistics struct {
	Received       uint64 `json:"received"`
	Decoded        uint64 `json:"decoded"`
	Rejected       uint64 `json:"rejected"`
	ChecksumErrors uint64 `json:"checksum_errors"`
	Malformed      uint64 `json:"malformed"`
	Unsupported    uint64 `json:"unsupported"`
	Unbound        uint64 `json:"unbound"`
	TeachIns       uint64 `json:"teach_ins"`
	Empty          uint64 `json:"empty"`

	// JournalDropped counts telegrams not journalled because the write
	// queue was full.
	JournalDropped uint64 `json:"journal_dropped"`
}

// Fields returns the statistics keyed by their JSON names.
func (s TelegramStatistics) Fields() map[string]uint64 {
	return map[string]uint64{
		"received":        s.Received,
		"decoded":         s.Decoded,
		"rejected":        s.Rejected,
		"checksum_errors": s.ChecksumErrors,
		"malformed":       s.Malformed,
		"unsupported":     s.Unsupported,
		"unbound":         s.Unbound,
		"teach_ins":       s.TeachIns,
		"empty":           s.Empty,
		"journal_dropped": s.JournalDropped,
	}
}

// DiscoveryMessage announces a teach-in telegram.
// Topic: {prefix}/discovery/{family}
// QoS: configured, Retained: No
type DiscoveryMessage struct {
	Timestamp time.Time `json:"timestamp"`
	Gateway   string    `json:"gateway"`
	Family    string    `json:"family"`
	Address   string    `json:"address"`

	// Profile is the announced profile; empty when the teach-in carries none.
	Profile string `json:"profile,omitempty"`

	// DeviceID is set when the address is bound, either before or by this
	// teach-in.
	DeviceID string `json:"device_id,omitempty"`

	// Learned reports that this teach-in created the binding.
	Learned bool `json:"learned"`

	TelegramID string `json:"telegram_id"`
}

// LearnRequest controls learn mode.
// Topic: {prefix}/config/{family}
//
// Examples:
//
//	{"learn": true, "timeout_s": 120}
//	{"learn": false}
//	{"forget": "0180AB12"}
type LearnRequest struct {
	// Learn starts (true) or stops (false) learn mode.
	Learn *bool `json:"learn,omitempty"`

	// TimeoutSeconds bounds learn mode. Default: 60 seconds.
	TimeoutSeconds int `json:"timeout_s,omitempty"`

	// Forget removes a learned device by address.
	Forget string `json:"forget,omitempty"`
}

// ParseLearnRequest decodes and checks a learn request.
func ParseLearnRequest(payload []byte) (LearnRequest, error) {
	var req LearnRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return LearnRequest{}, fmt.Errorf("%w: %w", ErrInvalidLearnRequest, err)
	}
	req.Forget = strings.TrimSpace(req.Forget)
	switch {
	case req.Learn == nil && req.Forget == "":
		return LearnRequest{}, fmt.Errorf("%w: learn or forget is required", ErrInvalidLearnRequest)
	case req.TimeoutSeconds < 0:
		return LearnRequest{}, fmt.Errorf("%w: timeout_s must not be negative", ErrInvalidLearnRequest)
	}
	return req, nil
}
