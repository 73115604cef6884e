package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// Default timeouts and intervals.
const (
	// defaultConnectTimeout bounds dialling and the handshake.
	defaultConnectTimeout = 10 * time.Second

	// defaultReconnectInterval is the initial delay between reconnection attempts.
	defaultReconnectInterval = 5 * time.Second

	// maxReconnectInterval is the maximum delay between reconnection attempts.
	maxReconnectInterval = 2 * time.Minute

	// defaultMaxTokenSize caps one framed telegram. DSMR telegrams with
	// long text messages are the largest seen in practice.
	defaultMaxTokenSize = 16 * 1024

	// initialBufferSize is the scanner's starting buffer.
	initialBufferSize = 512
)

// errConnectionClosed reports that the peer closed a live stream.
var errConnectionClosed = errors.New("transport: connection closed by peer")

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Handshake is written after every (re)connect.
type Handshake struct {
	Request []byte

	// Ack checks the first framed token as the reply. When nil no reply
	// is expected and the first token is a telegram.
	Ack func(token []byte) error
}

// Config configures a Reader.
type Config struct {
	// Name labels the reader in logs and stats, and becomes the Source
	// of every telegram it reads.
	Name string

	// Endpoint is the connection URL (see ParseEndpoint).
	Endpoint string

	// Split frames the byte stream into raw telegrams.
	Split bufio.SplitFunc

	Handshake *Handshake

	// ConnectTimeout bounds dial and handshake. Default: 10 seconds.
	ConnectTimeout time.Duration

	// ReconnectInterval is the initial reconnect delay; it grows by 1.5
	// per failed attempt up to 2 minutes. Default: 5 seconds.
	ReconnectInterval time.Duration

	// MaxTokenSize caps one telegram. Default: 16 KiB.
	MaxTokenSize int

	// Dial overrides how the endpoint is opened. Default: Dial.
	Dial DialFunc
}

// Handler receives one framed telegram. data is only valid for the
// duration of the call.
type Handler func(data []byte)

// Stats holds operational statistics.
type Stats struct {
	Name            string
	Endpoint        string
	TelegramsRx     uint64
	ErrorsTotal     uint64
	ReconnectsTotal uint64
	LastActivity    time.Time
	Connected       bool
}

// Reader reads framed telegrams from one endpoint.
//
// Thread Safety:
//   - Run must be called once; Stats and SetLogger are safe for concurrent use.
//   - The handler is always called from the Run goroutine.
type Reader struct {
	cfg     Config
	ep      Endpoint
	handler Handler

	logger   Logger
	loggerMu sync.RWMutex

	connected       atomic.Bool
	sessions        atomic.Uint64
	telegramsRx     atomic.Uint64
	errorsTotal     atomic.Uint64
	reconnectsTotal atomic.Uint64
	lastActivity    atomic.Int64
}

// New validates cfg and creates a Reader.
//
// Parameters:
//   - cfg: Reader configuration; Endpoint and Split are required
//   - handler: Called for every framed telegram
//
// Returns:
//   - *Reader: Reader ready to Run
//   - error: ErrInvalidConfig or ErrInvalidEndpoint
func New(cfg Config, handler Handler) (*Reader, error) {
	if cfg.Split == nil {
		return nil, fmt.Errorf("%w: split function is required", ErrInvalidConfig)
	}
	if handler == nil {
		return nil, fmt.Errorf("%w: handler is required", ErrInvalidConfig)
	}
	ep, err := ParseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	if cfg.Name == "" {
		cfg.Name = ep.String()
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.ReconnectInterval == 0 {
		cfg.ReconnectInterval = defaultReconnectInterval
	}
	if cfg.MaxTokenSize == 0 {
		cfg.MaxTokenSize = defaultMaxTokenSize
	}
	if cfg.Dial == nil {
		cfg.Dial = Dial
	}

	return &Reader{cfg: cfg, ep: ep, handler: handler, logger: nopLogger{}}, nil
}

// SetLogger sets the logger for this reader.
func (r *Reader) SetLogger(logger Logger) {
	if logger == nil {
		logger = nopLogger{}
	}
	r.loggerMu.Lock()
	r.logger = logger
	r.loggerMu.Unlock()
}

func (r *Reader) log() Logger {
	r.loggerMu.RLock()
	defer r.loggerMu.RUnlock()
	return r.logger
}

// Name returns the reader's name.
func (r *Reader) Name() string { return r.cfg.Name }

// Run reads until ctx is cancelled, reconnecting with exponential backoff.
// Replay endpoints return nil at end of file. Run returns nil on
// cancellation.
func (r *Reader) Run(ctx context.Context) error {
	backoff := r.cfg.ReconnectInterval

	for {
		established, err := r.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			return nil // replay finished
		}

		r.errorsTotal.Add(1)
		if established {
			backoff = r.cfg.ReconnectInterval
		}
		r.log().Warn("transport disconnected",
			"transport", r.cfg.Name,
			"error", err,
			"retry_in", backoff.String(),
		)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}

		backoff = nextBackoff(backoff)
	}
}

// nextBackoff grows the delay by 1.5 up to maxReconnectInterval.
func nextBackoff(backoff time.Duration) time.Duration {
	next := time.Duration(float64(backoff) * 1.5)
	if next > maxReconnectInterval {
		next = maxReconnectInterval
	}
	return next
}

// session runs one connection. established reports whether the connection
// got past the handshake.
func (r *Reader) session(ctx context.Context) (established bool, err error) {
	conn, err := r.open(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	// Closing the connection unblocks a pending read on cancellation.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, initialBufferSize), r.cfg.MaxTokenSize)
	sc.Split(r.cfg.Split)

	if err := r.handshake(conn, sc); err != nil {
		return false, err
	}

	r.connected.Store(true)
	defer r.connected.Store(false)
	if r.sessions.Add(1) > 1 {
		r.reconnectsTotal.Add(1)
	}
	r.log().Info("transport connected", "transport", r.cfg.Name, "endpoint", r.ep.String())

	for sc.Scan() {
		r.telegramsRx.Add(1)
		r.lastActivity.Store(time.Now().Unix())
		r.handle(sc.Bytes())
	}

	if err := sc.Err(); err != nil {
		return true, fmt.Errorf("read %s: %w", r.ep, err)
	}
	if r.ep.Replay() {
		r.log().Info("replay finished", "transport", r.cfg.Name, "telegrams", r.telegramsRx.Load())
		return true, nil
	}
	return true, errConnectionClosed
}

func (r *Reader) open(ctx context.Context) (io.ReadWriteCloser, error) {
	dialCtx, cancel := context.WithTimeout(ctx, r.cfg.ConnectTimeout)
	defer cancel()

	conn, err := r.cfg.Dial(dialCtx, r.ep)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return conn, nil
}

type deadliner interface {
	SetDeadline(t time.Time) error
}

// handshake writes the request and checks the reply within ConnectTimeout
// when the connection supports deadlines.
func (r *Reader) handshake(conn io.ReadWriter, sc *bufio.Scanner) error {
	hs := r.cfg.Handshake
	if hs == nil {
		return nil
	}

	if d, ok := conn.(deadliner); ok {
		if err := d.SetDeadline(time.Now().Add(r.cfg.ConnectTimeout)); err != nil {
			return fmt.Errorf("%w: set deadline: %w", ErrConnectionFailed, err)
		}
		defer d.SetDeadline(time.Time{}) //nolint:errcheck // best-effort reset
	}

	if len(hs.Request) > 0 {
		if _, err := conn.Write(hs.Request); err != nil {
			return fmt.Errorf("%w: handshake write: %w", ErrConnectionFailed, err)
		}
	}
	if hs.Ack == nil {
		return nil
	}

	if !sc.Scan() {
		err := sc.Err()
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("%w: handshake reply: %w", ErrConnectionFailed, err)
	}
	if err := hs.Ack(sc.Bytes()); err != nil {
		return fmt.Errorf("%w: handshake rejected: %w", ErrConnectionFailed, err)
	}
	return nil
}

// handle calls the handler, containing panics so one bad telegram cannot
// stop the connection.
func (r *Reader) handle(data []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			r.errorsTotal.Add(1)
			r.log().Error("telegram handler panic", "transport", r.cfg.Name, "panic", fmt.Sprint(rec))
		}
	}()
	r.handler(data)
}

// IsConnected returns true while a session is established.
func (r *Reader) IsConnected() bool {
	return r.connected.Load()
}

// Stats returns current operational statistics.
func (r *Reader) Stats() Stats {
	s := Stats{
		Name:            r.cfg.Name,
		Endpoint:        r.ep.String(),
		TelegramsRx:     r.telegramsRx.Load(),
		ErrorsTotal:     r.errorsTotal.Load(),
		ReconnectsTotal: r.reconnectsTotal.Load(),
		Connected:       r.connected.Load(),
	}
	if ts := r.lastActivity.Load(); ts > 0 {
		s.LastActivity = time.Unix(ts, 0)
	}
	return s
}
