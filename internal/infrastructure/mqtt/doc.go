// Package mqtt provides MQTT client connectivity for the telegram gateway.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//
// # Architecture
//
// The gateway publishes decoded channel values, health and teach-in
// announcements, and listens for learn mode requests:
//
//	Field bus → telegramd → MQTT Broker → home automation, dashboards
//
// All topics live under a configurable prefix (see Topics).
//
// # Security Considerations
//
//   - TLS should be enabled whenever the broker is not on localhost
//   - Credentials are redacted when the configuration is logged
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := client.Topics().State("enocean", "window-kitchen", "contact")
//	client.Publish(topic, payload, 1, true)
package mqtt
