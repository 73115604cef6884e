// Package knx implements the KNX telegram family.
//
// Raw telegrams are knxd group socket messages: a two-byte size prefix, the
// EIB_GROUP_PACKET message type and the group telegram itself. The transport
// opens the socket with [OpenGroupConRequest] and frames the stream with
// [SplitKNXD]; this package validates each message and splits it into a
// single unit addressed by its destination group address.
//
// Group addresses use the 3-level form main/middle/sub. Configured
// addresses are canonicalised through [ParseGroupAddress], so "01/2/003"
// binds the same device as "1/2/3".
//
// # Datapoint Types
//
// KNX telegrams do not carry their data format. The DPT is the profile key
// and comes from the device binding of the group address. Supported DPTs:
//
//   - DPT 1.xxx: 1-bit (switch, bool, up/down, open/close)
//   - DPT 3.xxx: 4-bit dimming and blind control
//   - DPT 5.xxx: 1-byte unsigned (percentage, angle)
//   - DPT 9.xxx: 2-byte float (temperature, lux, humidity)
//   - DPT 17.001 / 18.001: scene number and scene control
//   - DPT 232.600: 3-byte RGB colour
//
// Every DPT decodes to the single channel "value".
//
// See https://github.com/knxd/knxd for the socket protocol.
package knx
