// Package gateway connects telegram transports to the decoding engine and
// fans decoded results out to the gateway's outputs.
//
// One Gateway runs per configured transport:
//
//	transport.Reader → telegram.Dispatcher → listeners
//
// Listeners publish channel state to MQTT, write numeric values to
// InfluxDB, journal telegrams and persist last-known state in SQLite,
// count outcomes for health reports, and handle EnOcean teach-in while
// learn mode is active.
//
// A Service owns every Gateway plus the shared registry, bindings and
// prior-state store, and runs them together until its context ends or
// every replay transport has finished.
package gateway
