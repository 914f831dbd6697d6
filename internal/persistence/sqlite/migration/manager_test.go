package migration

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"strings"
	"testing"
	"testing/fstest"
	"time"
)

type stubScanner struct {
	migrations []Migration
	err        error
}

func (s *stubScanner) ScanMigrations(fs.FS, string) ([]Migration, error) {
	return s.migrations, s.err
}

func (s *stubScanner) ValidateFileName(string) error { return nil }

func (s *stubScanner) ParseMigrationFile(fs.FS, string) (*Migration, error) { return nil, nil }

type stubExecutor struct {
	applied   []AppliedMigration
	execErr   error
	initErr   error
	execOrder []string
}

func (s *stubExecutor) ExecuteMigration(_ context.Context, migration Migration, at time.Time) error {
	if s.execErr != nil {
		return s.execErr
	}
	s.execOrder = append(s.execOrder, migration.Version)
	s.applied = append(s.applied, AppliedMigration{Version: migration.Version, AppliedAt: at, Checksum: migration.Checksum})
	return nil
}

func (s *stubExecutor) InitializeVersionTable(context.Context) error { return s.initErr }

func (s *stubExecutor) GetAppliedVersions(context.Context) ([]AppliedMigration, error) {
	return s.applied, nil
}

func newTestManager(scanner FileScanner, executor Executor) (*Manager, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewManager(scanner, executor, fstest.MapFS{}, "migrations", logger), &buf
}

func TestManager_Run(t *testing.T) {
	t.Parallel()

	t.Run("applies only pending migrations in order", func(t *testing.T) {
		t.Parallel()

		scanner := &stubScanner{migrations: []Migration{
			{Version: "001", Checksum: "a"},
			{Version: "002", Checksum: "b"},
			{Version: "003", Checksum: "c"},
		}}
		executor := &stubExecutor{applied: []AppliedMigration{{Version: "001", Checksum: "a"}}}
		manager, logs := newTestManager(scanner, executor)

		if err := manager.Run(context.Background()); err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
		if strings.Join(executor.execOrder, ",") != "002,003" {
			t.Fatalf("unexpected execution order %v", executor.execOrder)
		}
		if !strings.Contains(logs.String(), "database migrations completed") {
			t.Fatalf("expected completion log, got %s", logs.String())
		}
	})

	t.Run("does nothing when up to date", func(t *testing.T) {
		t.Parallel()

		scanner := &stubScanner{migrations: []Migration{{Version: "001"}}}
		executor := &stubExecutor{applied: []AppliedMigration{{Version: "001"}}}
		manager, _ := newTestManager(scanner, executor)

		if err := manager.Run(context.Background()); err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
		if len(executor.execOrder) != 0 {
			t.Fatalf("expected no executions, got %v", executor.execOrder)
		}
	})

	t.Run("wraps execution failures", func(t *testing.T) {
		t.Parallel()

		scanner := &stubScanner{migrations: []Migration{{Version: "001"}}}
		executor := &stubExecutor{execErr: errors.New("boom")}
		manager, _ := newTestManager(scanner, executor)

		err := manager.Run(context.Background())
		if !errors.Is(err, ErrMigrationFailed) {
			t.Fatalf("expected ErrMigrationFailed, got %v", err)
		}
	})

	t.Run("fails when the version table cannot be created", func(t *testing.T) {
		t.Parallel()

		manager, _ := newTestManager(&stubScanner{}, &stubExecutor{initErr: errors.New("locked")})
		if err := manager.Run(context.Background()); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestManager_Status(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		available []Migration
		applied   []AppliedMigration
		wantErr   error
		current   string
		pending   int
	}{
		{
			name:      "reports current version and pending count",
			available: []Migration{{Version: "001"}, {Version: "002"}},
			applied:   []AppliedMigration{{Version: "001"}},
			current:   "001",
			pending:   1,
		},
		{
			name:      "rejects gaps in the file sequence",
			available: []Migration{{Version: "001"}, {Version: "003"}},
			wantErr:   ErrVersionConflict,
		},
		{
			name:      "rejects applied versions without files",
			available: []Migration{{Version: "001"}},
			applied:   []AppliedMigration{{Version: "001"}, {Version: "002"}},
			wantErr:   ErrVersionConflict,
		},
		{
			name:      "rejects edited migrations",
			available: []Migration{{Version: "001", Checksum: "new"}},
			applied:   []AppliedMigration{{Version: "001", Checksum: "old"}},
			wantErr:   ErrChecksumMismatch,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			manager, _ := newTestManager(&stubScanner{migrations: tc.available}, &stubExecutor{applied: tc.applied})
			status, err := manager.Status(context.Background())
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Status returned error: %v", err)
			}
			if status.CurrentVersion != tc.current || status.PendingCount != tc.pending {
				t.Fatalf("unexpected status %#v", status)
			}
		})
	}
}

func TestManager_RunAgainstSQLite(t *testing.T) {
	t.Parallel()

	files := fstest.MapFS{
		"migrations/001_people.sql": {Data: []byte("CREATE TABLE people (id INTEGER PRIMARY KEY, name TEXT);")},
		"migrations/002_index.sql":  {Data: []byte("CREATE INDEX idx_people_name ON people(name);")},
	}
	db := openTestDB(t)
	manager := NewManager(NewFileScanner(), NewSQLiteExecutor(db), files, "migrations", slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	ctx := context.Background()

	if err := manager.Run(ctx); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	if err := manager.Run(ctx); err != nil {
		t.Fatalf("second Run should be a no-op: %v", err)
	}

	status, err := manager.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.CurrentVersion != "002" || status.PendingCount != 0 {
		t.Fatalf("unexpected status %#v", status)
	}
}
