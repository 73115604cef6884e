// Package telegram is the decoding engine shared by every protocol family.
//
// A raw telegram travels through four stages:
//
//	RawTelegram ──► Validate ──► Split into units ──► Registry lookup ──► Decode
//	                   │                                    │               │
//	                   ▼                                    ▼               ▼
//	           CHECKSUM_ERROR / MALFORMED          unsupported profile   channel values
//
// and the Listener is notified exactly once with the combined Result.
//
// # Families
//
// Protocol specifics live behind the Family interface: the EnOcean, DSMR and
// KNX packages each validate their own framing, split a telegram into
// addressable units and register their profile decoders. The engine itself
// knows nothing about bytes beyond what the Family tells it.
//
// # Profiles
//
// A ProfileKey identifies one decodable format (an EnOcean EEP, a DSMR OBIS
// code, a KNX datapoint type). Keys are comparable value types, so the
// Registry is a flat map with exact lookup. A key that was never registered
// produces an unsupported-profile outcome, never a panic.
//
// # Prior state
//
// Some profiles (rocker switches, toggles) need the previously decoded value
// of a channel. PriorStore keeps the last defined value per device channel
// and serialises access per device, so two telegrams for the same device
// never race on it.
//
// # Thread Safety
//
// Registry, Bindings and PriorStore are safe for concurrent use. A
// Dispatcher may be shared, but the listener sees results in receipt order
// only when Dispatch is called from a single goroutine per source.
package telegram
