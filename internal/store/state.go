package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-telegrams/internal/telegram"
)

// ChannelState is the last decoded value of one device channel. Channel is
// the decoder's channel ID, not the published alias, and Value is taken
// before scale and offset.
type ChannelState struct {
	DeviceID   string
	Channel    string
	Family     string
	Value      telegram.Value
	TelegramID string
	UpdatedAt  time.Time
}

// StateRepository stores channel states.
type StateRepository interface {
	// Upsert writes the given states in one transaction.
	Upsert(ctx context.Context, states []ChannelState) error

	// LoadAll returns every stored state ordered by device and channel.
	LoadAll(ctx context.Context) ([]ChannelState, error)
}

// SQLiteStateRepository implements StateRepository on the channel_state table.
type SQLiteStateRepository struct {
	db *sql.DB
}

// NewSQLiteStateRepository creates a state repository.
func NewSQLiteStateRepository(db *sql.DB) *SQLiteStateRepository {
	return &SQLiteStateRepository{db: db}
}

// Upsert inserts or replaces channel states. Undefined values are skipped.
func (r *SQLiteStateRepository) Upsert(ctx context.Context, states []ChannelState) error {
	if len(states) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting state transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO channel_state (device_id, channel, family, value_json, telegram_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (device_id, channel) DO UPDATE SET
			family = excluded.family,
			value_json = excluded.value_json,
			telegram_id = excluded.telegram_id,
			updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("preparing state upsert: %w", err)
	}
	defer stmt.Close()

	for _, s := range states {
		if s.DeviceID == "" || s.Channel == "" {
			return fmt.Errorf("%w: channel state needs device and channel", ErrInvalidRecord)
		}
		if !s.Value.Defined() {
			continue
		}
		valueJSON, err := json.Marshal(s.Value)
		if err != nil {
			return fmt.Errorf("marshalling %s/%s: %w", s.DeviceID, s.Channel, err)
		}
		updated := s.UpdatedAt
		if updated.IsZero() {
			updated = time.Now()
		}
		if _, err := stmt.ExecContext(ctx,
			s.DeviceID, s.Channel, s.Family, string(valueJSON),
			nullableString(s.TelegramID), formatTime(updated),
		); err != nil {
			return fmt.Errorf("upserting %s/%s: %w", s.DeviceID, s.Channel, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing states: %w", err)
	}
	return nil
}

// LoadAll returns every stored channel state.
func (r *SQLiteStateRepository) LoadAll(ctx context.Context) ([]ChannelState, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT device_id, channel, family, value_json, telegram_id, updated_at
		FROM channel_state
		ORDER BY device_id, channel`)
	if err != nil {
		return nil, fmt.Errorf("querying channel state: %w", err)
	}
	defer rows.Close()

	var states []ChannelState
	for rows.Next() {
		var s ChannelState
		var valueJSON, updatedAt string
		var telegramID sql.NullString

		if err := rows.Scan(&s.DeviceID, &s.Channel, &s.Family, &valueJSON, &telegramID, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning channel state: %w", err)
		}
		if err := json.Unmarshal([]byte(valueJSON), &s.Value); err != nil {
			return nil, fmt.Errorf("decoding %s/%s: %w", s.DeviceID, s.Channel, err)
		}
		s.TelegramID = telegramID.String
		if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		states = append(states, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating channel state: %w", err)
	}
	return states, nil
}

// SeedPrior loads every stored state into the prior store and returns the
// number of channels restored.
func SeedPrior(ctx context.Context, repo StateRepository, prior *telegram.PriorStore) (int, error) {
	states, err := repo.LoadAll(ctx)
	if err != nil {
		return 0, err
	}
	for _, s := range states {
		prior.Seed(s.DeviceID, s.Channel, s.Value)
	}
	return len(states), nil
}
