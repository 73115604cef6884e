// Package influxdb provides InfluxDB connectivity for the telegram gateway.
//
// It wraps the official influxdb-client-go v2 library for connection
// management, channel value writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series storage of:
//   - Numeric and boolean channel values (measurement channel_values)
//   - Per-transport telegram counters (measurement gateway_stats)
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteChannelValue(influxdb.ChannelPoint{
//	    DeviceID: "meter", Channel: "power_delivered", Family: "dsmr",
//	    Unit: "kW", Value: 1.193,
//	})
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via the
// SetOnError callback. Connection and health check errors are returned directly.
package influxdb
