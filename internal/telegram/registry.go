package telegram

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Registry maps profile keys to decoders.
//
// It is populated once at startup and then frozen. Lookup is an exact map
// access; there is no fuzzy or fallback matching.
type Registry struct {
	mu       sync.RWMutex
	decoders map[ProfileKey]Decoder
	frozen   bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[ProfileKey]Decoder)}
}

// Register binds a decoder to key.
//
// Returns ErrInvalidProfileKey for a nil or non-comparable key or a nil
// decoder, ErrDuplicateProfile if the key is already bound and
// ErrRegistryFrozen after Freeze.
func (r *Registry) Register(key ProfileKey, dec Decoder) error {
	if key == nil || dec == nil {
		return fmt.Errorf("%w: nil key or decoder", ErrInvalidProfileKey)
	}
	if !reflect.TypeOf(key).Comparable() {
		return fmt.Errorf("%w: %T is not comparable", ErrInvalidProfileKey, key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("%w: cannot register %s", ErrRegistryFrozen, key)
	}
	if _, exists := r.decoders[key]; exists {
		return fmt.Errorf("%w: %s %s", ErrDuplicateProfile, key.Family(), key)
	}

	r.decoders[key] = dec
	return nil
}

// MustRegister is Register for package-level profile tables; it panics on
// error.
func (r *Registry) MustRegister(key ProfileKey, dec Decoder) {
	if err := r.Register(key, dec); err != nil {
		panic(err)
	}
}

// Lookup returns the decoder for key, or an error wrapping
// ErrUnsupportedProfile.
func (r *Registry) Lookup(key ProfileKey) (Decoder, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: no profile", ErrUnsupportedProfile)
	}

	r.mu.RLock()
	dec, ok := r.decoders[key]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrUnsupportedProfile, key.Family(), key)
	}
	return dec, nil
}

// Freeze rejects further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Len returns the number of registered profiles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.decoders)
}

// Keys returns all registered keys ordered by family, then key string.
func (r *Registry) Keys() []ProfileKey {
	r.mu.RLock()
	keys := make([]ProfileKey, 0, len(r.decoders))
	for k := range r.decoders {
		keys = append(keys, k)
	}
	r.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Family() != keys[j].Family() {
			return keys[i].Family() < keys[j].Family()
		}
		return keys[i].String() < keys[j].String()
	})
	return keys
}
