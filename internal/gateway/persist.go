package gateway

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-telegrams/internal/store"
	"github.com/nerrad567/gray-logic-telegrams/internal/telegram"
)

const (
	defaultQueueSize     = 1000
	defaultPruneInterval = time.Hour

	// maxBatch bounds the jobs written in one transaction.
	maxBatch = 100

	// drainTimeout bounds the final flush after cancellation.
	drainTimeout = 5 * time.Second
)

// PersisterOptions configures a Persister.
type PersisterOptions struct {
	// Journal records every telegram; nil disables the journal.
	Journal store.JournalRepository

	// State stores last-known channel values; nil disables it. Prior is
	// required with State.
	State store.StateRepository
	Prior *telegram.PriorStore

	// QueueSize bounds telegrams waiting to be written. Default: 1000.
	QueueSize int

	// Retention prunes journal rows older than this; 0 keeps everything.
	Retention time.Duration

	// PruneInterval is how often the journal is pruned. Default: 1 hour.
	PruneInterval time.Duration

	Logger Logger
}

type persistJob struct {
	entry  *store.JournalEntry
	states []store.ChannelState
}

// Persister writes the journal and channel state to SQLite off the
// dispatch path. OnTelegram never blocks; when the queue is full the
// telegram is dropped and counted.
type Persister struct {
	journal store.JournalRepository
	state   store.StateRepository
	prior   *telegram.PriorStore

	queue         chan persistJob
	retention     time.Duration
	pruneInterval time.Duration
	dropped       atomic.Uint64
	logger        Logger
}

var _ telegram.Listener = (*Persister)(nil)

// NewPersister validates opts and creates a Persister. Call Run to start
// writing.
func NewPersister(opts PersisterOptions) (*Persister, error) {
	if opts.Journal == nil && opts.State == nil {
		return nil, fmt.Errorf("%w: journal or state repository is required", ErrInvalidOptions)
	}
	if opts.State != nil && opts.Prior == nil {
		return nil, fmt.Errorf("%w: prior store is required with a state repository", ErrInvalidOptions)
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.PruneInterval <= 0 {
		opts.PruneInterval = defaultPruneInterval
	}

	return &Persister{
		journal:       opts.Journal,
		state:         opts.State,
		prior:         opts.Prior,
		queue:         make(chan persistJob, opts.QueueSize),
		retention:     opts.Retention,
		pruneInterval: opts.PruneInterval,
		logger:        orNop(opts.Logger),
	}, nil
}

// OnTelegram queues the journal entry and the state of every device that
// received values. The state is snapshotted here so the write reflects
// this telegram even if later ones arrive before it is flushed.
func (p *Persister) OnTelegram(res telegram.Result) {
	var job persistJob
	if p.journal != nil {
		entry := store.EntryFromResult(res)
		job.entry = &entry
	}
	if p.state != nil {
		job.states = p.snapshot(res)
	}
	if job.entry == nil && len(job.states) == 0 {
		return
	}

	select {
	case p.queue <- job:
	default:
		if p.dropped.Add(1) == 1 {
			p.logger.Warn("persist queue full, dropping telegrams", "telegram_id", res.Telegram.ID)
		}
	}
}

func (p *Persister) snapshot(res telegram.Result) []store.ChannelState {
	var states []store.ChannelState
	seen := make(map[string]bool)
	for _, cv := range res.Values {
		if seen[cv.DeviceID] {
			continue
		}
		seen[cv.DeviceID] = true

		snap := p.prior.Snapshot(cv.DeviceID)
		channels := make([]string, 0, len(snap))
		for ch := range snap {
			channels = append(channels, ch)
		}
		sort.Strings(channels)

		for _, ch := range channels {
			states = append(states, store.ChannelState{
				DeviceID:   cv.DeviceID,
				Channel:    ch,
				Family:     res.Family,
				Value:      snap[ch],
				TelegramID: res.Telegram.ID.String(),
				UpdatedAt:  res.Telegram.ReceivedAt,
			})
		}
	}
	return states
}

// Dropped returns the number of telegrams dropped on a full queue.
func (p *Persister) Dropped() uint64 {
	return p.dropped.Load()
}

// Run writes queued jobs until ctx is cancelled, then flushes what is
// still queued. It always returns nil; write errors are logged.
func (p *Persister) Run(ctx context.Context) error {
	var prune <-chan time.Time
	if p.journal != nil && p.retention > 0 {
		ticker := time.NewTicker(p.pruneInterval)
		defer ticker.Stop()
		prune = ticker.C
		p.prune(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			p.drain()
			return nil
		case job := <-p.queue:
			p.write(ctx, p.batch(job))
		case <-prune:
			p.prune(ctx)
		}
	}
}

// batch collects job plus whatever else is already queued.
func (p *Persister) batch(first persistJob) []persistJob {
	jobs := []persistJob{first}
	for len(jobs) < maxBatch {
		select {
		case job := <-p.queue:
			jobs = append(jobs, job)
		default:
			return jobs
		}
	}
	return jobs
}

func (p *Persister) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	for {
		select {
		case job := <-p.queue:
			p.write(ctx, p.batch(job))
		default:
			return
		}
	}
}

func (p *Persister) write(ctx context.Context, jobs []persistJob) {
	var entries []store.JournalEntry
	var states []store.ChannelState
	for _, job := range jobs {
		if job.entry != nil {
			entries = append(entries, *job.entry)
		}
		states = append(states, job.states...)
	}

	if len(entries) > 0 {
		if err := p.journal.Insert(ctx, entries); err != nil {
			p.logger.Error("failed to write telegram journal", "entries", len(entries), "error", err)
		}
	}
	if len(states) > 0 {
		if err := p.state.Upsert(ctx, states); err != nil {
			p.logger.Error("failed to write channel state", "states", len(states), "error", err)
		}
	}
}

func (p *Persister) prune(ctx context.Context) {
	n, err := p.journal.Prune(ctx, p.retention)
	if err != nil {
		p.logger.Error("failed to prune telegram journal", "error", err)
		return
	}
	if n > 0 {
		p.logger.Debug("pruned telegram journal", "rows", n)
	}
}
