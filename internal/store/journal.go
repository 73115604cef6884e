package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-telegrams/internal/telegram"
)

const (
	defaultJournalLimit = 50
	maxJournalLimit     = 1000
)

// JournalEntry is one received telegram.
type JournalEntry struct {
	ID         string    `json:"id"`
	Family     string    `json:"family"`
	Source     string    `json:"source"`
	State      string    `json:"state"`
	Outcome    string    `json:"outcome"`
	Hex        string    `json:"hex"`
	ReceivedAt time.Time `json:"received_at"`
}

// EntryFromResult builds the journal entry of a dispatch result.
func EntryFromResult(res telegram.Result) JournalEntry {
	return JournalEntry{
		ID:         res.Telegram.ID.String(),
		Family:     res.Family,
		Source:     res.Telegram.Source,
		State:      res.State.String(),
		Outcome:    string(res.Outcome()),
		Hex:        res.Telegram.Hex(),
		ReceivedAt: res.Telegram.ReceivedAt,
	}
}

// JournalFilter selects journal entries. Zero fields match everything.
type JournalFilter struct {
	Family  string
	Outcome string
	Limit   int // default 50, max 1000
}

// JournalRepository records received telegrams.
type JournalRepository interface {
	// Insert writes entries in one transaction. Duplicate IDs are ignored.
	Insert(ctx context.Context, entries []JournalEntry) error

	// Recent returns entries newest first.
	Recent(ctx context.Context, filter JournalFilter) ([]JournalEntry, error)

	// Prune deletes entries received before now-olderThan.
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// SQLiteJournalRepository implements JournalRepository on the
// telegram_journal table.
type SQLiteJournalRepository struct {
	db *sql.DB
}

// NewSQLiteJournalRepository creates a journal repository.
func NewSQLiteJournalRepository(db *sql.DB) *SQLiteJournalRepository {
	return &SQLiteJournalRepository{db: db}
}

// Insert writes a batch of entries.
func (r *SQLiteJournalRepository) Insert(ctx context.Context, entries []JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting journal transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO telegram_journal (id, family, source, state, outcome, hex, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing journal insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if e.ID == "" || e.Family == "" {
			return fmt.Errorf("%w: journal entry needs id and family", ErrInvalidRecord)
		}
		received := e.ReceivedAt
		if received.IsZero() {
			received = time.Now()
		}
		if _, err := stmt.ExecContext(ctx,
			e.ID, e.Family, e.Source, e.State, e.Outcome, e.Hex, formatTime(received),
		); err != nil {
			return fmt.Errorf("inserting journal entry %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing journal: %w", err)
	}
	return nil
}

// Recent returns the newest entries matching filter.
func (r *SQLiteJournalRepository) Recent(ctx context.Context, filter JournalFilter) ([]JournalEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultJournalLimit
	}
	if limit > maxJournalLimit {
		limit = maxJournalLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, family, source, state, outcome, hex, received_at
		FROM telegram_journal
		WHERE (? = '' OR family = ?) AND (? = '' OR outcome = ?)
		ORDER BY received_at DESC
		LIMIT ?`,
		filter.Family, filter.Family, filter.Outcome, filter.Outcome, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	entries := make([]JournalEntry, 0, limit)
	for rows.Next() {
		var e JournalEntry
		var receivedAt string
		if err := rows.Scan(&e.ID, &e.Family, &e.Source, &e.State, &e.Outcome, &e.Hex, &receivedAt); err != nil {
			return nil, fmt.Errorf("scanning journal entry: %w", err)
		}
		if e.ReceivedAt, err = parseTime(receivedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal: %w", err)
	}
	return entries, nil
}

// Prune deletes entries older than the retention period.
//
// Returns:
//   - int64: Number of rows deleted
//   - error: ErrInvalidRetention, or the underlying database error
func (r *SQLiteJournalRepository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, ErrInvalidRetention
	}

	cutoff := formatTime(time.Now().Add(-olderThan))
	result, err := r.db.ExecContext(ctx, "DELETE FROM telegram_journal WHERE received_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning journal: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}
