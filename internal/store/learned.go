package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// LearnedDevice is a device bound through teach-in.
type LearnedDevice struct {
	Family    string
	Address   string
	DeviceID  string
	Profile   string
	LearnedAt time.Time
}

// LearnedRepository stores learned devices.
type LearnedRepository interface {
	Save(ctx context.Context, d LearnedDevice) error
	List(ctx context.Context, family string) ([]LearnedDevice, error)
	Delete(ctx context.Context, family, address string) error
}

// SQLiteLearnedRepository implements LearnedRepository on the
// learned_devices table.
type SQLiteLearnedRepository struct {
	db *sql.DB
}

// NewSQLiteLearnedRepository creates a learned device repository.
func NewSQLiteLearnedRepository(db *sql.DB) *SQLiteLearnedRepository {
	return &SQLiteLearnedRepository{db: db}
}

// Save inserts or replaces a learned device. A device taught in again
// keeps its original device ID and gets the new profile.
func (r *SQLiteLearnedRepository) Save(ctx context.Context, d LearnedDevice) error {
	if d.Family == "" || d.Address == "" || d.DeviceID == "" || d.Profile == "" {
		return fmt.Errorf("%w: learned device needs family, address, device id and profile", ErrInvalidRecord)
	}
	learned := d.LearnedAt
	if learned.IsZero() {
		learned = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO learned_devices (family, address, device_id, profile, learned_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (family, address) DO UPDATE SET
			profile = excluded.profile,
			learned_at = excluded.learned_at`,
		d.Family, d.Address, d.DeviceID, d.Profile, formatTime(learned),
	)
	if err != nil {
		return fmt.Errorf("saving learned device %s %s: %w", d.Family, d.Address, err)
	}
	return nil
}

// List returns the learned devices of a family, or of every family when
// family is empty.
func (r *SQLiteLearnedRepository) List(ctx context.Context, family string) ([]LearnedDevice, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT family, address, device_id, profile, learned_at
		FROM learned_devices
		WHERE ? = '' OR family = ?
		ORDER BY family, address`,
		family, family,
	)
	if err != nil {
		return nil, fmt.Errorf("querying learned devices: %w", err)
	}
	defer rows.Close()

	var devices []LearnedDevice
	for rows.Next() {
		var d LearnedDevice
		var learnedAt string
		if err := rows.Scan(&d.Family, &d.Address, &d.DeviceID, &d.Profile, &learnedAt); err != nil {
			return nil, fmt.Errorf("scanning learned device: %w", err)
		}
		if d.LearnedAt, err = parseTime(learnedAt); err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating learned devices: %w", err)
	}
	return devices, nil
}

// Delete forgets a learned device.
func (r *SQLiteLearnedRepository) Delete(ctx context.Context, family, address string) error {
	if _, err := r.db.ExecContext(ctx,
		"DELETE FROM learned_devices WHERE family = ? AND address = ?", family, address,
	); err != nil {
		return fmt.Errorf("deleting learned device %s %s: %w", family, address, err)
	}
	return nil
}
