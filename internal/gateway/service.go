package gateway

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-telegrams/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-telegrams/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-telegrams/internal/store"
	"github.com/nerrad567/gray-logic-telegrams/internal/telegram"
	"github.com/nerrad567/gray-logic-telegrams/internal/transport"
)

// MQTTClient is the subset of the MQTT client used by the service.
type MQTTClient interface {
	Publisher
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// ServiceOptions configures a Service. Outputs left nil are disabled; pass
// untyped nils, not nil pointers.
type ServiceOptions struct {
	Config  *config.Config
	Version string

	MQTT    MQTTClient
	Metrics PointWriter

	// DB is a migrated SQLite database for state, journal and learned
	// devices.
	DB *sql.DB

	Logger Logger

	// Dial overrides how transports are opened (tests).
	Dial transport.DialFunc
}

// Service runs every configured transport against a shared registry,
// binding set and prior-state store.
type Service struct {
	cfg    *config.Config
	topics mqtt.Topics
	qos    byte
	mqtt   MQTTClient
	logger Logger

	registry *telegram.Registry
	bindings *telegram.Bindings
	prior    *telegram.PriorStore

	counters  *Counters
	persister *Persister
	learner   *Learner
	health    *HealthReporter
	gateways  []*Gateway
}

var _ HealthSource = (*Service)(nil)

// NewService builds the service: decoders, bindings, prior state seeded
// from the database, learned devices, listeners and one gateway per
// transport.
func NewService(ctx context.Context, opts ServiceOptions) (*Service, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("%w: config is required", ErrInvalidOptions)
	}
	cfg := opts.Config

	s := &Service{
		cfg:      cfg,
		topics:   mqtt.NewTopics(cfg.MQTT.TopicPrefix),
		qos:      byte(cfg.MQTT.QoS), //nolint:gosec // validated 0-2
		mqtt:     opts.MQTT,
		logger:   orNop(opts.Logger),
		prior:    telegram.NewPriorStore(),
		counters: &Counters{},
	}

	var err error
	if s.registry, err = NewRegistry(); err != nil {
		return nil, err
	}
	if s.bindings, err = BuildBindings(cfg.Devices); err != nil {
		return nil, err
	}
	for _, id := range unsupportedBindings(s.registry, s.bindings) {
		s.logger.Warn("device profile has no decoder", "device_id", id)
	}

	if err := s.openStores(ctx, opts.DB); err != nil {
		return nil, err
	}

	listeners := telegram.Listeners{s.counters}
	if s.mqtt != nil {
		listeners = append(listeners, NewStatePublisher(s.mqtt, s.topics, s.qos, s.logger))
	}
	if opts.Metrics != nil {
		listeners = append(listeners, NewMetricsWriter(opts.Metrics))
	}
	if s.persister != nil {
		listeners = append(listeners, s.persister)
	}
	listeners = append(listeners, s.learner)

	for _, tc := range cfg.Transports {
		gw, err := New(Options{
			Transport: tc,
			Registry:  s.registry,
			Bindings:  s.bindings,
			Prior:     s.prior,
			Listener:  listeners,
			Logger:    s.logger,
			Dial:      opts.Dial,
		})
		if err != nil {
			return nil, err
		}
		s.gateways = append(s.gateways, gw)
	}

	s.health, err = NewHealthReporter(HealthReporterConfig{
		GatewayID: cfg.Gateway.ID,
		Version:   opts.Version,
		Interval:  cfg.GetHealthInterval(),
		Source:    s,
		Publisher: s.mqtt,
		Topics:    s.topics,
		Metrics:   opts.Metrics,
		Logger:    s.logger,
	})
	if err != nil {
		return nil, err
	}

	return s, nil
}

// openStores seeds prior state, loads learned devices and creates the
// persister. Without a database the learner keeps devices in memory.
func (s *Service) openStores(ctx context.Context, db *sql.DB) error {
	var learnedRepo store.LearnedRepository
	if db != nil {
		learnedRepo = store.NewSQLiteLearnedRepository(db)
	}

	var err error
	s.learner, err = NewLearner(LearnerOptions{
		Registry:   s.registry,
		Bindings:   s.bindings,
		Repository: learnedRepo,
		Publisher:  s.mqtt,
		Topics:     s.topics,
		QoS:        s.qos,
		GatewayID:  s.cfg.Gateway.ID,
		Logger:     s.logger,
	})
	if err != nil {
		return err
	}

	if db == nil {
		return nil
	}

	n, err := s.learner.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading learned devices: %w", err)
	}
	s.logger.Info("learned devices loaded", "count", n)

	stateRepo := store.NewSQLiteStateRepository(db)
	seeded, err := store.SeedPrior(ctx, stateRepo, s.prior)
	if err != nil {
		return fmt.Errorf("seeding prior state: %w", err)
	}
	s.logger.Info("prior state restored", "channels", seeded)

	var journal store.JournalRepository
	if s.cfg.Journal.Enabled {
		journal = store.NewSQLiteJournalRepository(db)
	}
	s.persister, err = NewPersister(PersisterOptions{
		Journal:   journal,
		State:     stateRepo,
		Prior:     s.prior,
		QueueSize: s.cfg.Journal.QueueSize,
		Retention: s.cfg.GetJournalRetention(),
		Logger:    s.logger,
	})
	return err
}

// Run runs every gateway until ctx is cancelled or all of them have
// finished, then stops the supporting loops. Persisted writes still
// queued are flushed before Run returns.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var support errgroup.Group
	if s.persister != nil {
		support.Go(func() error { return s.persister.Run(ctx) })
	}

	if s.mqtt != nil {
		if err := s.mqtt.Subscribe(s.topics.AllConfigs(), s.qos, s.learner.HandleConfig); err != nil {
			s.logger.Warn("learn mode unavailable", "error", err)
		}
	}
	if err := s.health.PublishStarting(); err != nil {
		s.logger.Warn("failed to publish starting health", "error", err)
	}
	s.health.Start(ctx)

	s.logger.Info("gateway started",
		"transports", len(s.gateways),
		"devices", s.bindings.Len(),
		"profiles", s.registry.Len(),
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, gw := range s.gateways {
		g.Go(func() error {
			if err := gw.Run(gctx); err != nil {
				return fmt.Errorf("transport %s: %w", gw.Name(), err)
			}
			return nil
		})
	}
	err := g.Wait()

	s.health.Stop()
	cancel()
	if perr := support.Wait(); err == nil {
		err = perr
	}
	if s.mqtt != nil {
		if uerr := s.mqtt.Unsubscribe(s.topics.AllConfigs()); uerr != nil {
			s.logger.Debug("unsubscribe failed", "error", uerr)
		}
	}

	s.logger.Info("gateway stopped", "telegrams", s.counters.Snapshot().Received)
	return err
}

// Registry returns the frozen decoder registry.
func (s *Service) Registry() *telegram.Registry { return s.registry }

// Bindings returns the shared binding set.
func (s *Service) Bindings() *telegram.Bindings { return s.bindings }

// Prior returns the shared prior-state store.
func (s *Service) Prior() *telegram.PriorStore { return s.prior }

// Learner returns the teach-in handler.
func (s *Service) Learner() *Learner { return s.learner }

// Health returns the health reporter.
func (s *Service) Health() *HealthReporter { return s.health }

// TransportStatuses implements HealthSource.
func (s *Service) TransportStatuses() []TransportStatus {
	out := make([]TransportStatus, len(s.gateways))
	for i, gw := range s.gateways {
		out[i] = gw.Status()
	}
	return out
}

// TelegramStatistics implements HealthSource.
func (s *Service) TelegramStatistics() TelegramStatistics {
	stats := s.counters.Snapshot()
	if s.persister != nil {
		stats.JournalDropped = s.persister.Dropped()
	}
	return stats
}

// DevicesBound implements HealthSource.
func (s *Service) DevicesBound() int { return s.bindings.Len() }

// Learning implements HealthSource.
func (s *Service) Learning() []string { return s.learner.Active() }
