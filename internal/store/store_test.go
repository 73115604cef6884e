package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-telegrams/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-telegrams/internal/telegram"
	_ "github.com/nerrad567/gray-logic-telegrams/migrations" // Registers embedded migrations
)

// openTestDB returns an in-memory database with the gateway schema.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(database.Config{Path: database.MemoryPath, BusyTimeout: 1})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db.DB
}

// ─── Channel state ────────────────────────────────────────────────

func TestStateUpsertAndLoad(t *testing.T) {
	repo := NewSQLiteStateRepository(openTestDB(t))
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	err := repo.Upsert(ctx, []ChannelState{
		{DeviceID: "hall", Channel: "temperature", Family: "enocean", Value: telegram.Numeric(21.5, "°C"), TelegramID: "t-1", UpdatedAt: ts},
		{DeviceID: "hall", Channel: "contact", Family: "enocean", Value: telegram.Enum("CLOSED"), UpdatedAt: ts},
		{DeviceID: "hall", Channel: "rssi", Family: "enocean", Value: telegram.Undefined(), UpdatedAt: ts},
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	// Second write replaces the first.
	err = repo.Upsert(ctx, []ChannelState{
		{DeviceID: "hall", Channel: "temperature", Family: "enocean", Value: telegram.Numeric(22, "°C"), TelegramID: "t-2", UpdatedAt: ts.Add(time.Minute)},
	})
	if err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}

	states, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("LoadAll() returned %d states, want 2 (undefined skipped)", len(states))
	}

	// Ordered by device, channel.
	if states[0].Channel != "contact" || !states[0].Value.Equal(telegram.Enum("CLOSED")) {
		t.Errorf("states[0] = %+v", states[0])
	}
	if states[0].TelegramID != "" {
		t.Errorf("TelegramID = %q, want empty", states[0].TelegramID)
	}
	temp := states[1]
	if !temp.Value.Equal(telegram.Numeric(22, "°C")) {
		t.Errorf("temperature = %v, want 22 °C", temp.Value)
	}
	if temp.TelegramID != "t-2" {
		t.Errorf("TelegramID = %q, want t-2", temp.TelegramID)
	}
	if !temp.UpdatedAt.Equal(ts.Add(time.Minute)) {
		t.Errorf("UpdatedAt = %v", temp.UpdatedAt)
	}
}

func TestStateUpsertRejectsIncompleteRecord(t *testing.T) {
	repo := NewSQLiteStateRepository(openTestDB(t))

	err := repo.Upsert(context.Background(), []ChannelState{{Channel: "x", Value: telegram.Bool(true)}})
	if !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("Upsert() error = %v, want ErrInvalidRecord", err)
	}
}

func TestSeedPrior(t *testing.T) {
	repo := NewSQLiteStateRepository(openTestDB(t))
	ctx := context.Background()

	if err := repo.Upsert(ctx, []ChannelState{
		{DeviceID: "rocker", Channel: "channelA", Family: "enocean", Value: telegram.Enum("DIR1")},
		{DeviceID: "meter", Channel: "energy_delivered_tariff1", Family: "dsmr", Value: telegram.Numeric(123.456, "kWh")},
	}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	prior := telegram.NewPriorStore()
	n, err := SeedPrior(ctx, repo, prior)
	if err != nil {
		t.Fatalf("SeedPrior() error = %v", err)
	}
	if n != 2 {
		t.Errorf("SeedPrior() = %d, want 2", n)
	}

	got := prior.Snapshot("rocker")["channelA"]
	if !got.Equal(telegram.Enum("DIR1")) {
		t.Errorf("prior rocker/channelA = %v, want DIR1", got)
	}
}

// ─── Journal ──────────────────────────────────────────────────────

func TestJournalInsertRecentPrune(t *testing.T) {
	repo := NewSQLiteJournalRepository(openTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	entries := []JournalEntry{
		{ID: "old", Family: "enocean", Source: "usb300", State: "OK", Outcome: "decoded", Hex: "55", ReceivedAt: now.Add(-48 * time.Hour)},
		{ID: "bad", Family: "enocean", Source: "usb300", State: "CHECKSUM_ERROR", Outcome: "rejected", Hex: "55", ReceivedAt: now.Add(-time.Minute)},
		{ID: "p1", Family: "dsmr", Source: "p1", State: "OK", Outcome: "decoded", Hex: "2F", ReceivedAt: now},
	}
	if err := repo.Insert(ctx, entries); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	// Duplicate IDs are ignored.
	if err := repo.Insert(ctx, entries[:1]); err != nil {
		t.Fatalf("Insert() duplicate error = %v", err)
	}

	tests := []struct {
		name   string
		filter JournalFilter
		want   []string
	}{
		{"all newest first", JournalFilter{}, []string{"p1", "bad", "old"}},
		{"by family", JournalFilter{Family: "enocean"}, []string{"bad", "old"}},
		{"by outcome", JournalFilter{Outcome: "rejected"}, []string{"bad"}},
		{"limited", JournalFilter{Limit: 1}, []string{"p1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.Recent(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Recent() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Recent() returned %d entries, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("entry %d = %q, want %q", i, got[i].ID, id)
				}
			}
		})
	}

	n, err := repo.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Prune() = %d, want 1", n)
	}

	if _, err := repo.Prune(ctx, 0); !errors.Is(err, ErrInvalidRetention) {
		t.Errorf("Prune(0) error = %v, want ErrInvalidRetention", err)
	}
}

func TestEntryFromResult(t *testing.T) {
	raw := telegram.NewRawTelegram("enocean", "usb300", []byte{0x55, 0x00})
	res := telegram.Result{Telegram: raw, Family: "enocean", State: telegram.StateChecksumError}

	e := EntryFromResult(res)

	if e.ID != raw.ID.String() {
		t.Errorf("ID = %q, want %q", e.ID, raw.ID)
	}
	if e.State != "CHECKSUM_ERROR" || e.Outcome != "rejected" {
		t.Errorf("State/Outcome = %s/%s", e.State, e.Outcome)
	}
	if e.Hex != "5500" || e.Source != "usb300" {
		t.Errorf("Hex/Source = %s/%s", e.Hex, e.Source)
	}
}

// ─── Learned devices ──────────────────────────────────────────────

func TestLearnedDevices(t *testing.T) {
	repo := NewSQLiteLearnedRepository(openTestDB(t))
	ctx := context.Background()

	if err := repo.Save(ctx, LearnedDevice{Family: "enocean", Address: "0180A1B2", DeviceID: "enocean:0180A1B2", Profile: "A5-02-05"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := repo.Save(ctx, LearnedDevice{Family: "enocean", Address: "0180A1B2", DeviceID: "ignored", Profile: "A5-02-05"}); err != nil {
		t.Fatalf("Save() again error = %v", err)
	}
	if err := repo.Save(ctx, LearnedDevice{Family: "enocean", Address: "01"}); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("Save() incomplete error = %v, want ErrInvalidRecord", err)
	}

	devices, err := repo.List(ctx, "enocean")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(devices) != 1 {
		t.Fatalf("List() = %d devices, want 1", len(devices))
	}
	if devices[0].DeviceID != "enocean:0180A1B2" {
		t.Errorf("DeviceID = %q, want original ID kept", devices[0].DeviceID)
	}

	if others, _ := repo.List(ctx, "knx"); len(others) != 0 {
		t.Errorf("List(knx) = %d devices, want 0", len(others))
	}

	if err := repo.Delete(ctx, "enocean", "0180A1B2"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if all, _ := repo.List(ctx, ""); len(all) != 0 {
		t.Errorf("List() after Delete = %d devices, want 0", len(all))
	}
}
