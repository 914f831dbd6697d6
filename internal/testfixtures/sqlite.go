package testfixtures

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/store-attendance/internal/persistence"
	"github.com/example/store-attendance/internal/persistence/sqlite"
	"github.com/example/store-attendance/internal/persistence/sqlite/migration"
)

// SQLiteHarness provides repository access backed by a temporary, migrated
// SQLite database for integration-style persistence tests.
type SQLiteHarness struct {
	Storage    *sqlite.Storage
	Users      persistence.UserRepository
	Sessions   persistence.SessionRepository
	Attendance persistence.AttendanceRepository
	Settings   persistence.SettingsRepository

	tb      testing.TB
	cleanup func()
}

// NewSQLiteHarness opens and migrates a database file under tb.TempDir. Closing
// is registered with tb; calling Close earlier is allowed.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	ctx := context.Background()
	storage, err := sqlite.Open(ctx, migration.SQLiteConfig{
		Path:              filepath.Join(tb.TempDir(), "attendance.db"),
		BusyTimeout:       5 * time.Second,
		EnableForeignKeys: true,
		JournalMode:       "WAL",
		Synchronous:       "NORMAL",
		MaxOpenConns:      1,
	})
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(ctx, nil); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage:    storage,
		Users:      storage,
		Sessions:   storage,
		Attendance: storage,
		Settings:   storage,
		tb:         tb,
		cleanup: func() {
			_ = storage.Close()
		},
	}
	tb.Cleanup(harness.Close)
	return harness
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// InsertUsers stores the fixtures, failing the test on error.
func (h *SQLiteHarness) InsertUsers(users ...UserFixture) {
	h.tb.Helper()
	for _, u := range users {
		if err := h.Users.CreateUser(context.Background(), u.Persistence()); err != nil {
			h.tb.Fatalf("failed to insert user %s: %v", u.ID, err)
		}
	}
}

// InsertAttendance stores the fixtures, failing the test on error.
func (h *SQLiteHarness) InsertAttendance(records ...AttendanceFixture) {
	h.tb.Helper()
	for _, r := range records {
		if err := h.Attendance.CreateRecord(context.Background(), r.Persistence()); err != nil {
			h.tb.Fatalf("failed to insert attendance %s: %v", r.ID, err)
		}
	}
}
