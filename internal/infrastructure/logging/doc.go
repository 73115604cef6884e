// Package logging sets up the log/slog logger shared by telegramd and its
// tools.
//
// Entries carry service and version attributes. Sub-systems tag theirs with
// Component:
//
//	logger := logging.New(cfg.Logging, version)
//	log := logger.Component("transport")
//	log.Info("transport connected", "transport", "usb300")
//
// The logging section of config.yaml picks the level (debug, info, warn,
// error), the format (json or text) and the stream (stdout or stderr).
// Raw telegrams may be logged as hex; MQTT and InfluxDB credentials never
// are.
package logging
