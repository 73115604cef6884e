package gateway

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-telegrams/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-telegrams/internal/telegram"
	"github.com/nerrad567/gray-logic-telegrams/internal/transport"
)

// Options configures a Gateway.
type Options struct {
	Transport config.TransportConfig

	// Registry is required. Bindings and Prior are usually shared
	// between gateways.
	Registry *telegram.Registry
	Bindings *telegram.Bindings
	Prior    *telegram.PriorStore

	// Listener receives every dispatch result.
	Listener telegram.Listener

	Logger Logger

	// Dial overrides how the transport is opened (tests).
	Dial transport.DialFunc
}

// Gateway reads one transport and dispatches every framed telegram.
//
// Thread Safety:
//   - Run must be called once; Stats is safe for concurrent use.
type Gateway struct {
	name       string
	family     string
	reader     *transport.Reader
	dispatcher *telegram.Dispatcher
	logger     Logger
}

// New creates a gateway for one configured transport.
func New(opts Options) (*Gateway, error) {
	def, err := lookupFamily(opts.Transport.Family)
	if err != nil {
		return nil, fmt.Errorf("transport %s: %w", opts.Transport.Name, err)
	}
	logger := orNop(opts.Logger)

	dispatcher, err := telegram.NewDispatcher(telegram.DispatcherOptions{
		Family:   def.family,
		Registry: opts.Registry,
		Bindings: opts.Bindings,
		Prior:    opts.Prior,
		Listener: opts.Listener,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		name:       opts.Transport.Name,
		family:     def.family.Name(),
		dispatcher: dispatcher,
		logger:     logger,
	}

	var handshake *transport.Handshake
	if def.handshake != nil {
		handshake = def.handshake()
	}
	g.reader, err = transport.New(transport.Config{
		Name:              opts.Transport.Name,
		Endpoint:          opts.Transport.URL,
		Split:             def.split,
		Handshake:         handshake,
		ConnectTimeout:    opts.Transport.GetConnectTimeout(),
		ReconnectInterval: opts.Transport.GetReconnectInterval(),
		Dial:              opts.Dial,
	}, g.handle)
	if err != nil {
		return nil, fmt.Errorf("transport %s: %w", opts.Transport.Name, err)
	}
	g.reader.SetLogger(logger)
	return g, nil
}

// Name returns the transport name.
func (g *Gateway) Name() string { return g.name }

// Family returns the telegram family read by this gateway.
func (g *Gateway) Family() string { return g.family }

// Run reads and dispatches until ctx is cancelled or a replay finishes.
func (g *Gateway) Run(ctx context.Context) error {
	return g.reader.Run(ctx)
}

func (g *Gateway) handle(data []byte) {
	res := g.dispatcher.Dispatch(telegram.NewRawTelegram(g.family, g.name, data))

	switch outcome := res.Outcome(); outcome {
	case telegram.OutcomeRejected:
		g.logger.Debug("telegram rejected",
			"transport", g.name,
			"state", res.State.String(),
			"hex", res.Telegram.Hex(),
			"error", res.Err,
		)
	case telegram.OutcomeUnsupported:
		g.logger.Debug("unsupported profile", "transport", g.name, "profiles", res.Unsupported)
	default:
		g.logger.Debug("telegram dispatched",
			"transport", g.name,
			"outcome", string(outcome),
			"values", len(res.Values),
		)
	}
}

// Status returns the transport's health figures.
func (g *Gateway) Status() TransportStatus {
	s := g.reader.Stats()
	status := TransportStatus{
		Name:        s.Name,
		Family:      g.family,
		Endpoint:    s.Endpoint,
		Connected:   s.Connected,
		TelegramsRx: s.TelegramsRx,
		Errors:      s.ErrorsTotal,
		Reconnects:  s.ReconnectsTotal,
	}
	if !s.LastActivity.IsZero() {
		last := s.LastActivity
		status.LastActivity = &last
	}
	return status
}
