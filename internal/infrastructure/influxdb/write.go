package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the gateway.
const (
	// MeasurementChannelValues holds one point per decoded numeric channel.
	MeasurementChannelValues = "channel_values"

	// MeasurementGatewayStats holds the periodic telegram counters.
	MeasurementGatewayStats = "gateway_stats"
)

// ChannelPoint is one numeric channel reading. Boolean channels are
// written as 0 or 1 by the caller.
type ChannelPoint struct {
	DeviceID string
	Channel  string
	Family   string
	Unit     string
	Value    float64
	Time     time.Time
}

// NewChannelPoint builds the line protocol point for a channel reading.
//
// Tags: device, channel, family and unit (omitted when empty).
// Field: value.
func NewChannelPoint(p ChannelPoint) *write.Point {
	tags := map[string]string{
		"device":  p.DeviceID,
		"channel": p.Channel,
		"family":  p.Family,
	}
	if p.Unit != "" {
		tags["unit"] = p.Unit
	}

	ts := p.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	return write.NewPoint(
		MeasurementChannelValues,
		tags,
		map[string]interface{}{"value": p.Value},
		ts,
	)
}

// WriteChannelValue queues a channel reading.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Example:
//
//	client.WriteChannelValue(influxdb.ChannelPoint{
//	    DeviceID: "hall-temp", Channel: "temperature", Family: "enocean",
//	    Unit: "°C", Value: 21.5, Time: receivedAt,
//	})
func (c *Client) WriteChannelValue(p ChannelPoint) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(NewChannelPoint(p))
}

// WriteGatewayStats writes the telegram counters of one transport.
//
// Parameters:
//   - gatewayID: Gateway instance identifier
//   - transport: Transport name from the configuration
//   - counters: Counter name to value (e.g., "telegrams_ok": 1200)
func (c *Client) WriteGatewayStats(gatewayID, transport string, counters map[string]uint64) {
	if !c.IsConnected() || len(counters) == 0 {
		return
	}

	fields := make(map[string]interface{}, len(counters))
	for k, v := range counters {
		fields[k] = v
	}

	c.WritePointWithTime(MeasurementGatewayStats,
		map[string]string{
			"gateway":   gatewayID,
			"transport": transport,
		},
		fields,
		time.Now(),
	)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
