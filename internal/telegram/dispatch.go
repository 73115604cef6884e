package telegram

import (
	"fmt"
	"sort"
)

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	Family   Family
	Registry *Registry

	// Bindings and Prior default to empty sets.
	Bindings *Bindings
	Prior    *PriorStore

	// Listener may be nil when the caller only uses the returned Result.
	Listener Listener
	Logger   Logger
}

// Dispatcher validates, decodes and publishes telegrams of one family.
type Dispatcher struct {
	family   Family
	registry *Registry
	bindings *Bindings
	prior    *PriorStore
	listener Listener
	logger   Logger
}

// NewDispatcher creates a dispatcher. Family and Registry are required.
func NewDispatcher(opts DispatcherOptions) (*Dispatcher, error) {
	if opts.Family == nil {
		return nil, fmt.Errorf("%w: family is required", ErrInvalidOptions)
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("%w: registry is required", ErrInvalidOptions)
	}

	d := &Dispatcher{
		family:   opts.Family,
		registry: opts.Registry,
		bindings: opts.Bindings,
		prior:    opts.Prior,
		listener: opts.Listener,
		logger:   opts.Logger,
	}
	if d.bindings == nil {
		d.bindings = NewBindings()
	}
	if d.prior == nil {
		d.prior = NewPriorStore()
	}
	if d.logger == nil {
		d.logger = nopLogger{}
	}
	return d, nil
}

// Family returns the dispatcher's family.
func (d *Dispatcher) Family() Family { return d.family }

// Bindings returns the binding set consulted during dispatch.
func (d *Dispatcher) Bindings() *Bindings { return d.bindings }

// Prior returns the prior-state store.
func (d *Dispatcher) Prior() *PriorStore { return d.prior }

// Dispatch runs one telegram through the engine and notifies the listener
// exactly once. Decoders are never invoked for telegrams that fail
// validation.
func (d *Dispatcher) Dispatch(raw RawTelegram) Result {
	res := Result{
		Telegram: raw,
		Family:   d.family.Name(),
	}

	res.State = d.validate(raw.Data)
	if res.State == StateOK {
		d.decode(&res)
	}

	d.notify(res)
	return res
}

func (d *Dispatcher) validate(data []byte) (state State) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("validator panic", "family", d.family.Name(), "panic", r)
			state = StateMalformed
		}
	}()
	return d.family.Validate(data)
}

func (d *Dispatcher) decode(res *Result) {
	data := res.Telegram.Data
	res.TeachIn = d.family.IsTeachIn(data)

	units, err := d.split(data)
	if err != nil {
		res.State = StateMalformed
		res.Err = err
		return
	}

	for _, u := range units {
		d.decodeUnit(res, u)
	}
}

func (d *Dispatcher) split(data []byte) (units []Unit, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("split panic: %v", r)
		}
	}()
	return d.family.Split(data)
}

func (d *Dispatcher) decodeUnit(res *Result, u Unit) {
	if res.TeachIn {
		res.TeachIns = append(res.TeachIns, TeachIn{
			Family:  res.Family,
			Address: u.Address,
			Key:     u.TeachKey,
		})
	}
	if u.SkipDecode {
		return
	}

	binding, bound := d.bindings.Get(res.Family, u.Address)
	key := u.Key
	switch {
	case bound && key == nil:
		key = binding.Key
	case !bound && key != nil:
		binding = implicitBinding(res.Family, u.Address)
	case !bound:
		res.Unbound = append(res.Unbound, u.Address)
		return
	}
	if key == nil {
		d.logger.Warn("binding has no profile", "device_id", binding.DeviceID)
		res.Unbound = append(res.Unbound, u.Address)
		return
	}

	dec, err := d.registry.Lookup(key)
	if err != nil {
		res.Unsupported = append(res.Unsupported, key)
		return
	}

	channels, unknown := selectChannels(dec.Channels(), binding.Channels, u.Meta)

	d.prior.With(binding.DeviceID, func(ds *DeviceState) {
		for _, ch := range channels {
			cb := binding.Channels[ch]
			v := d.decodeChannel(dec, ch, u.Payload, ds.Get(ch), cb.Config)
			ds.Set(ch, v)
			res.Values = append(res.Values, channelValue(binding, u.Address, ch, cb, key, cb.Config.Apply(v)))
		}
	})
	for _, ch := range unknown {
		res.Values = append(res.Values, channelValue(binding, u.Address, ch, binding.Channels[ch], key, Undefined()))
	}

	for _, name := range sortedMeta(u.Meta) {
		cb, listed := binding.Channels[name]
		if len(binding.Channels) > 0 && !listed {
			continue
		}
		res.Values = append(res.Values, channelValue(binding, u.Address, name, cb, key, u.Meta[name]))
	}
}

func (d *Dispatcher) decodeChannel(dec Decoder, channel string, payload []byte, prior *Value, cfg ChannelConfig) (v Value) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("decoder panic", "family", d.family.Name(), "channel", channel, "panic", r)
			v = Undefined()
		}
	}()
	return dec.Decode(channel, payload, prior, cfg)
}

func (d *Dispatcher) notify(res Result) {
	if d.listener == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("listener panic", "family", res.Family, "telegram_id", res.Telegram.ID, "panic", r)
		}
	}()
	d.listener.OnTelegram(res)
}

// selectChannels returns the configured channels the decoder knows, in the
// decoder's order, and the configured channels it does not know, sorted.
// The latter publish as Undefined. Names carried as unit metadata are
// neither.
func selectChannels(all []string, configured map[string]ChannelBinding, meta map[string]Value) (known, unknown []string) {
	if len(configured) == 0 {
		return all, nil
	}
	known = make([]string, 0, len(configured))
	seen := make(map[string]bool, len(all))
	for _, ch := range all {
		seen[ch] = true
		if _, ok := configured[ch]; ok {
			known = append(known, ch)
		}
	}
	for ch := range configured {
		if _, isMeta := meta[ch]; !seen[ch] && !isMeta {
			unknown = append(unknown, ch)
		}
	}
	sort.Strings(unknown)
	return known, unknown
}

func channelValue(b Binding, address, channel string, cb ChannelBinding, key ProfileKey, v Value) ChannelValue {
	name := channel
	if cb.Alias != "" {
		name = cb.Alias
	}
	return ChannelValue{
		DeviceID: b.DeviceID,
		Address:  address,
		Channel:  name,
		Key:      key,
		Value:    v,
	}
}

func sortedMeta(meta map[string]Value) []string {
	if len(meta) == 0 {
		return nil
	}
	names := make([]string, 0, len(meta))
	for k := range meta {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
