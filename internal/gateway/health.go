package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-telegrams/internal/infrastructure/mqtt"
)

const defaultHealthInterval = 30 * time.Second

// allTransports tags gateway-wide statistics in InfluxDB.
const allTransports = "all"

// HealthSource provides the figures a health report is built from.
type HealthSource interface {
	TransportStatuses() []TransportStatus
	TelegramStatistics() TelegramStatistics
	DevicesBound() int
	Learning() []string
}

// HealthReporterConfig holds configuration for the health reporter.
type HealthReporterConfig struct {
	GatewayID string
	Version   string

	// Interval is how often to report. Default: 30 seconds.
	Interval time.Duration

	Source HealthSource

	// Publisher publishes health messages; may be nil.
	Publisher Publisher
	Topics    mqtt.Topics

	// Metrics receives gateway statistics; may be nil.
	Metrics PointWriter

	Logger Logger
}

// HealthReporter manages periodic health status reporting to MQTT and
// InfluxDB.
type HealthReporter struct {
	gatewayID string
	version   string
	startTime time.Time
	interval  time.Duration
	source    HealthSource
	publisher Publisher
	topics    mqtt.Topics
	metrics   PointWriter
	logger    Logger

	// Shutdown coordination (stopOnce prevents double-close panics)
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewHealthReporter creates a new health reporter. Call Start to begin
// reporting.
func NewHealthReporter(cfg HealthReporterConfig) (*HealthReporter, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("%w: health source is required", ErrInvalidOptions)
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultHealthInterval
	}

	return &HealthReporter{
		gatewayID: cfg.GatewayID,
		version:   cfg.Version,
		startTime: time.Now(),
		interval:  interval,
		source:    cfg.Source,
		publisher: cfg.Publisher,
		topics:    cfg.Topics,
		metrics:   cfg.Metrics,
		logger:    orNop(cfg.Logger),
		done:      make(chan struct{}),
	}, nil
}

// Start begins periodic health reporting.
func (h *HealthReporter) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.reportLoop(ctx)
}

// Stop stops reporting and publishes a final "stopping" status. Safe to
// call multiple times.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()

		if err := h.publish(h.Build(HealthStopping, "")); err != nil {
			h.logger.Warn("failed to publish stopping health", "error", err)
		}
	})
}

// PublishStarting publishes a "starting" status.
func (h *HealthReporter) PublishStarting() error {
	return h.publish(h.Build(HealthStarting, "gateway starting"))
}

// ReportNow publishes the current status and writes gateway statistics.
func (h *HealthReporter) ReportNow() error {
	status, reason := h.determineStatus()
	msg := h.Build(status, reason)
	h.writeMetrics(msg)
	return h.publish(msg)
}

func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	if err := h.ReportNow(); err != nil {
		h.logger.Error("failed to publish initial health", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			if err := h.ReportNow(); err != nil {
				h.logger.Error("failed to publish health", "error", err)
			}
		}
	}
}

// determineStatus is degraded while MQTT or any transport is down.
func (h *HealthReporter) determineStatus() (HealthStatus, string) {
	var reasons []string
	if h.publisher != nil && !h.publisher.IsConnected() {
		reasons = append(reasons, "MQTT disconnected")
	}
	for _, t := range h.source.TransportStatuses() {
		if !t.Connected {
			reasons = append(reasons, fmt.Sprintf("transport %s disconnected", t.Name))
		}
	}
	if len(reasons) > 0 {
		return HealthDegraded, strings.Join(reasons, "; ")
	}
	return HealthHealthy, ""
}

// Build assembles a health message with the current figures.
func (h *HealthReporter) Build(status HealthStatus, reason string) HealthMessage {
	stats := h.source.TelegramStatistics()
	return HealthMessage{
		Gateway:       h.gatewayID,
		Timestamp:     time.Now().UTC(),
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Transports:    h.source.TransportStatuses(),
		Telegrams:     &stats,
		DevicesBound:  h.source.DevicesBound(),
		Learning:      h.source.Learning(),
		Reason:        reason,
	}
}

func (h *HealthReporter) publish(msg HealthMessage) error {
	if h.publisher == nil {
		return nil
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return h.publisher.Publish(h.topics.Health(h.gatewayID), payload, 1, true)
}

func (h *HealthReporter) writeMetrics(msg HealthMessage) {
	if h.metrics == nil {
		return
	}
	if msg.Telegrams != nil {
		h.metrics.WriteGatewayStats(h.gatewayID, allTransports, msg.Telegrams.Fields())
	}
	for _, t := range msg.Transports {
		h.metrics.WriteGatewayStats(h.gatewayID, t.Name, map[string]uint64{
			"telegrams_rx": t.TelegramsRx,
			"errors":       t.Errors,
			"reconnects":   t.Reconnects,
		})
	}
}
