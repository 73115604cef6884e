package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-telegrams/internal/bridges/enocean"
	"github.com/nerrad567/gray-logic-telegrams/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-telegrams/internal/store"
	"github.com/nerrad567/gray-logic-telegrams/internal/telegram"
)

const (
	defaultLearnTimeout = 60 * time.Second
	maxLearnTimeout     = 30 * time.Minute

	// repoTimeout bounds learned-device writes made from the dispatch path.
	repoTimeout = 5 * time.Second
)

// LearnerOptions configures a Learner.
type LearnerOptions struct {
	Registry *telegram.Registry
	Bindings *telegram.Bindings

	// Repository persists learned devices; nil keeps them in memory only.
	Repository store.LearnedRepository

	// Publisher announces teach-ins on the discovery topic; may be nil.
	Publisher Publisher
	Topics    mqtt.Topics
	QoS       byte
	GatewayID string

	Logger Logger
}

// Learner handles teach-in telegrams. While learn mode is active for a
// family, a teach-in from an unbound address creates a binding using the
// announced profile. Every teach-in is announced on the discovery topic.
type Learner struct {
	registry  *telegram.Registry
	bindings  *telegram.Bindings
	repo      store.LearnedRepository
	publisher Publisher
	topics    mqtt.Topics
	qos       byte
	gatewayID string
	logger    Logger

	mu      sync.Mutex
	until   map[string]time.Time // family → end of learn window
	learned map[string]string    // binding key → device ID of learned devices

	now func() time.Time
}

var _ telegram.Listener = (*Learner)(nil)

// NewLearner creates a Learner. Registry and Bindings are required.
func NewLearner(opts LearnerOptions) (*Learner, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("%w: registry is required", ErrInvalidOptions)
	}
	if opts.Bindings == nil {
		return nil, fmt.Errorf("%w: bindings are required", ErrInvalidOptions)
	}
	return &Learner{
		registry:  opts.Registry,
		bindings:  opts.Bindings,
		repo:      opts.Repository,
		publisher: opts.Publisher,
		topics:    opts.Topics,
		qos:       opts.QoS,
		gatewayID: opts.GatewayID,
		logger:    orNop(opts.Logger),
		until:     make(map[string]time.Time),
		learned:   make(map[string]string),
		now:       time.Now,
	}, nil
}

func learnedKey(family, address string) string {
	return family + "/" + strings.ToUpper(address)
}

// learnedDeviceID names a device bound by teach-in.
func learnedDeviceID(family, address string) string {
	return family + "-" + strings.ToLower(address)
}

// Load binds the persisted learned devices. Addresses that are already
// bound by configuration are skipped. It returns the number bound.
func (l *Learner) Load(ctx context.Context) (int, error) {
	if l.repo == nil {
		return 0, nil
	}
	devices, err := l.repo.List(ctx, "")
	if err != nil {
		return 0, err
	}

	n := 0
	for _, d := range devices {
		if existing, ok := l.bindings.Get(d.Family, d.Address); ok {
			l.logger.Warn("learned device shadowed by configuration",
				"family", d.Family, "address", d.Address, "device_id", existing.DeviceID)
			continue
		}
		family, err := LookupFamily(d.Family)
		if err != nil {
			l.logger.Warn("skipping learned device", "address", d.Address, "error", err)
			continue
		}
		key, err := family.ParseKey(d.Profile)
		if err != nil {
			l.logger.Warn("skipping learned device", "address", d.Address, "error", err)
			continue
		}
		if err := l.bindings.Add(telegram.Binding{
			DeviceID: d.DeviceID,
			Family:   d.Family,
			Address:  d.Address,
			Key:      key,
		}); err != nil {
			return n, err
		}

		l.mu.Lock()
		l.learned[learnedKey(d.Family, d.Address)] = d.DeviceID
		l.mu.Unlock()
		n++
	}
	return n, nil
}

// Start opens the learn window of family for timeout. A zero timeout uses
// the default of 60 seconds.
func (l *Learner) Start(family string, timeout time.Duration) {
	if timeout <= 0 {
		timeout = defaultLearnTimeout
	}
	if timeout > maxLearnTimeout {
		timeout = maxLearnTimeout
	}
	l.mu.Lock()
	l.until[family] = l.now().Add(timeout)
	l.mu.Unlock()
	l.logger.Info("learn mode started", "family", family, "timeout", timeout.String())
}

// Stop closes the learn window of family.
func (l *Learner) Stop(family string) {
	l.mu.Lock()
	_, active := l.until[family]
	delete(l.until, family)
	l.mu.Unlock()
	if active {
		l.logger.Info("learn mode stopped", "family", family)
	}
}

// Learning reports whether family is in learn mode.
func (l *Learner) Learning(family string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.learningLocked(family)
}

func (l *Learner) learningLocked(family string) bool {
	until, ok := l.until[family]
	if !ok {
		return false
	}
	if !l.now().Before(until) {
		delete(l.until, family)
		return false
	}
	return true
}

// Active returns the families in learn mode, sorted.
func (l *Learner) Active() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var families []string
	for family := range l.until {
		if l.learningLocked(family) {
			families = append(families, family)
		}
	}
	sort.Strings(families)
	return families
}

// Forget removes a learned device. Configured devices are left bound.
func (l *Learner) Forget(ctx context.Context, family, address string) error {
	key := learnedKey(family, address)

	l.mu.Lock()
	deviceID, ok := l.learned[key]
	delete(l.learned, key)
	l.mu.Unlock()

	if ok {
		if bd, bound := l.bindings.Get(family, address); bound && bd.DeviceID == deviceID {
			l.bindings.Remove(family, address)
		}
	}
	if l.repo != nil {
		if err := l.repo.Delete(ctx, family, strings.ToUpper(address)); err != nil {
			return err
		}
	}
	l.logger.Info("learned device forgotten", "family", family, "address", address)
	return nil
}

// HandleConfig handles a learn request on {prefix}/config/{family}. It
// matches mqtt.MessageHandler.
func (l *Learner) HandleConfig(topic string, payload []byte) error {
	family := path.Base(topic)
	if _, err := LookupFamily(family); err != nil {
		return err
	}
	req, err := ParseLearnRequest(payload)
	if err != nil {
		return err
	}

	if req.Forget != "" {
		ctx, cancel := context.WithTimeout(context.Background(), repoTimeout)
		defer cancel()
		if err := l.Forget(ctx, family, req.Forget); err != nil {
			return err
		}
	}
	switch {
	case req.Learn == nil:
	case *req.Learn:
		l.Start(family, time.Duration(req.TimeoutSeconds)*time.Second)
	default:
		l.Stop(family)
	}
	return nil
}

// OnTelegram learns and announces the teach-ins of a result.
func (l *Learner) OnTelegram(res telegram.Result) {
	for _, ti := range res.TeachIns {
		msg := DiscoveryMessage{
			Timestamp:  res.Telegram.ReceivedAt,
			Gateway:    l.gatewayID,
			Family:     ti.Family,
			Address:    ti.Address,
			TelegramID: res.Telegram.ID.String(),
		}
		if ti.Key != nil {
			msg.Profile = ti.Key.String()
		}

		if bd, ok := l.bindings.Get(ti.Family, ti.Address); ok {
			msg.DeviceID = bd.DeviceID
		} else if l.Learning(ti.Family) && ti.Key != nil {
			if bd, err := l.learn(ti, res.Telegram.ReceivedAt); err != nil {
				l.logger.Error("failed to learn device", "family", ti.Family, "address", ti.Address, "error", err)
			} else {
				msg.DeviceID = bd.DeviceID
				msg.Profile = bd.Key.String()
				msg.Learned = true
			}
		}

		l.announce(msg)
	}
}

func (l *Learner) learn(ti telegram.TeachIn, at time.Time) (telegram.Binding, error) {
	key := l.resolveKey(ti.Key)
	if _, err := l.registry.Lookup(key); err != nil {
		return telegram.Binding{}, err
	}

	address := strings.ToUpper(ti.Address)
	bd := telegram.Binding{
		DeviceID: learnedDeviceID(ti.Family, address),
		Family:   ti.Family,
		Address:  address,
		Key:      key,
	}
	if err := l.bindings.Put(bd); err != nil {
		return telegram.Binding{}, err
	}

	l.mu.Lock()
	l.learned[learnedKey(ti.Family, address)] = bd.DeviceID
	l.mu.Unlock()

	l.logger.Info("device learned", "family", ti.Family, "address", address, "device_id", bd.DeviceID, "profile", key.String())

	if l.repo == nil {
		return bd, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), repoTimeout)
	defer cancel()
	err := l.repo.Save(ctx, store.LearnedDevice{
		Family:    ti.Family,
		Address:   address,
		DeviceID:  bd.DeviceID,
		Profile:   key.String(),
		LearnedAt: at,
	})
	return bd, err
}

// resolveKey maps an announced EnOcean profile to a registered variant.
func (l *Learner) resolveKey(key telegram.ProfileKey) telegram.ProfileKey {
	if eep, ok := key.(enocean.EEP); ok {
		return enocean.LearnedKey(l.registry, eep)
	}
	return key
}

func (l *Learner) announce(msg DiscoveryMessage) {
	if l.publisher == nil {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		l.logger.Error("failed to marshal discovery message", "error", err)
		return
	}
	if err := l.publisher.Publish(l.topics.Discovery(msg.Family), payload, l.qos, false); err != nil {
		l.logger.Warn("failed to publish discovery", "family", msg.Family, "error", err)
	}
}
