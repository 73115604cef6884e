package telegram

import "sync"

// PriorStore keeps the last defined value of every device channel.
//
// Each device has its own lock; With holds it for the duration of the
// callback so a whole telegram's channels are decoded against a consistent
// view.
type PriorStore struct {
	mu      sync.Mutex
	devices map[string]*DeviceState
}

// DeviceState is the channel state of one device. It is only valid inside
// a PriorStore.With callback.
type DeviceState struct {
	mu     sync.Mutex
	values map[string]Value
}

// NewPriorStore creates an empty store.
func NewPriorStore() *PriorStore {
	return &PriorStore{devices: make(map[string]*DeviceState)}
}

func (s *PriorStore) device(deviceID string) *DeviceState {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, ok := s.devices[deviceID]
	if !ok {
		ds = &DeviceState{values: make(map[string]Value)}
		s.devices[deviceID] = ds
	}
	return ds
}

// With runs fn while holding the device's lock.
func (s *PriorStore) With(deviceID string, fn func(*DeviceState)) {
	ds := s.device(deviceID)
	ds.mu.Lock()
	defer ds.mu.Unlock()
	fn(ds)
}

// Seed stores a value restored from persistence. Undefined values are
// ignored.
func (s *PriorStore) Seed(deviceID, channel string, v Value) {
	if !v.Defined() {
		return
	}
	s.With(deviceID, func(ds *DeviceState) { ds.Set(channel, v) })
}

// Snapshot returns a copy of a device's channel values.
func (s *PriorStore) Snapshot(deviceID string) map[string]Value {
	out := make(map[string]Value)
	s.With(deviceID, func(ds *DeviceState) {
		for k, v := range ds.values {
			out[k] = v
		}
	})
	return out
}

// Get returns the prior value of channel, or nil.
func (ds *DeviceState) Get(channel string) *Value {
	v, ok := ds.values[channel]
	if !ok {
		return nil
	}
	return &v
}

// Set records v as the channel's prior value. Undefined values are not
// stored, so a failed decode never erases known state.
func (ds *DeviceState) Set(channel string, v Value) {
	if v.Defined() {
		ds.values[channel] = v
	}
}
