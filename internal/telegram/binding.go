package telegram

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Binding ties a device address on a family to a device ID, a profile and
// per-channel configuration.
type Binding struct {
	DeviceID string
	Family   string
	Address  string

	// Key is the device profile. Families whose telegrams name their own
	// profiles (DSMR) leave it nil.
	Key ProfileKey

	// Channels restricts and configures decoded channels. Empty means all
	// channels of the profile with default configuration.
	Channels map[string]ChannelBinding
}

// ChannelBinding configures one channel of a bound device.
type ChannelBinding struct {
	// Alias replaces the channel ID in published results.
	Alias  string
	Config ChannelConfig
}

type bindingID struct {
	family  string
	address string
}

func newBindingID(family, address string) bindingID {
	return bindingID{family: family, address: strings.ToUpper(address)}
}

// Bindings is the set of known devices, indexed by family and address.
// Addresses compare case-insensitively.
type Bindings struct {
	mu     sync.RWMutex
	byAddr map[bindingID]Binding
}

// NewBindings creates an empty binding set.
func NewBindings() *Bindings {
	return &Bindings{byAddr: make(map[bindingID]Binding)}
}

// Add inserts a new binding. It fails with ErrDuplicateBinding if the
// family and address are already bound.
func (b *Bindings) Add(bd Binding) error {
	if err := checkBinding(bd); err != nil {
		return err
	}

	id := newBindingID(bd.Family, bd.Address)

	b.mu.Lock()
	defer b.mu.Unlock()

	if existing, ok := b.byAddr[id]; ok {
		return fmt.Errorf("%w: %s %s already bound to %q", ErrDuplicateBinding, bd.Family, bd.Address, existing.DeviceID)
	}
	b.byAddr[id] = bd
	return nil
}

// Put inserts or replaces a binding. Used for devices learned at runtime.
func (b *Bindings) Put(bd Binding) error {
	if err := checkBinding(bd); err != nil {
		return err
	}

	b.mu.Lock()
	b.byAddr[newBindingID(bd.Family, bd.Address)] = bd
	b.mu.Unlock()
	return nil
}

// Get returns the binding for family and address.
func (b *Bindings) Get(family, address string) (Binding, bool) {
	b.mu.RLock()
	bd, ok := b.byAddr[newBindingID(family, address)]
	b.mu.RUnlock()
	return bd, ok
}

// Remove deletes a binding if present.
func (b *Bindings) Remove(family, address string) {
	b.mu.Lock()
	delete(b.byAddr, newBindingID(family, address))
	b.mu.Unlock()
}

// All returns every binding sorted by device ID.
func (b *Bindings) All() []Binding {
	b.mu.RLock()
	out := make([]Binding, 0, len(b.byAddr))
	for _, bd := range b.byAddr {
		out = append(out, bd)
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}

// Len returns the number of bindings.
func (b *Bindings) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byAddr)
}

func checkBinding(bd Binding) error {
	switch {
	case bd.DeviceID == "":
		return fmt.Errorf("%w: device ID is required", ErrInvalidBinding)
	case bd.Family == "":
		return fmt.Errorf("%w: %s: family is required", ErrInvalidBinding, bd.DeviceID)
	case bd.Address == "":
		return fmt.Errorf("%w: %s: address is required", ErrInvalidBinding, bd.DeviceID)
	}
	return nil
}

// implicitBinding is used for units that carry their own profile but have
// no configured device.
func implicitBinding(family, address string) Binding {
	return Binding{
		DeviceID: family + ":" + address,
		Family:   family,
		Address:  address,
	}
}
