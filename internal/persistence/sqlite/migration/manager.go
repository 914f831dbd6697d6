package migration

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"time"
)

// Manager orchestrates scanning, validation and execution of migrations.
type Manager struct {
	scanner  FileScanner
	executor Executor
	files    fs.FS
	dir      string
	logger   *slog.Logger
	now      func() time.Time
}

// NewManager wires a Manager reading migrations from dir inside files.
func NewManager(scanner FileScanner, executor Executor, files fs.FS, dir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		scanner:  scanner,
		executor: executor,
		files:    files,
		dir:      dir,
		logger:   logger.With("component", "migration"),
		now:      time.Now,
	}
}

// Run executes every pending migration in version order.
func (m *Manager) Run(ctx context.Context) error {
	started := m.now()

	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		m.logger.ErrorContext(ctx, "failed to initialize schema_migrations table", "error", err)
		return fmt.Errorf("failed to initialize version table: %w", err)
	}

	status, err := m.Status(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to determine migration status", "error", err)
		return err
	}

	m.logger.InfoContext(ctx, "checked database schema version",
		"current_version", status.CurrentVersion,
		"pending", status.PendingCount,
	)
	if status.PendingCount == 0 {
		return nil
	}

	for i, migration := range status.PendingMigrations {
		logger := m.logger.With(
			"version", migration.Version,
			"description", migration.Description,
			"file", migration.FilePath,
		)
		logger.InfoContext(ctx, "executing migration", "position", i+1, "total", status.PendingCount)

		if err := m.executor.ExecuteMigration(ctx, migration, m.now()); err != nil {
			logger.ErrorContext(ctx, "migration failed", "error", err)
			return NewMigrationError(migration.Version, migration.FilePath,
				"execute migration", fmt.Errorf("%w: %v", ErrMigrationFailed, err))
		}
		logger.InfoContext(ctx, "migration applied")
	}

	m.logger.InfoContext(ctx, "database migrations completed",
		"applied", status.PendingCount,
		"duration", m.now().Sub(started),
	)
	return nil
}

// Status compares the migration files with the schema_migrations table.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize version table: %w", err)
	}

	available, err := m.scanner.ScanMigrations(m.files, m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan migrations: %w", err)
	}

	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied versions: %w", err)
	}

	if err := validateSequence(available, applied); err != nil {
		return nil, fmt.Errorf("migration sequence validation failed: %w", err)
	}

	appliedSet := make(map[string]struct{}, len(applied))
	current := ""
	for _, entry := range applied {
		appliedSet[entry.Version] = struct{}{}
		if current == "" || versionNumber(entry.Version) > versionNumber(current) {
			current = entry.Version
		}
	}

	var pending []Migration
	for _, migration := range available {
		if _, ok := appliedSet[migration.Version]; !ok {
			pending = append(pending, migration)
		}
	}

	return &Status{
		CurrentVersion:    current,
		PendingCount:      len(pending),
		AppliedMigrations: applied,
		PendingMigrations: pending,
	}, nil
}

// validateSequence rejects gaps in the file versions, applied versions without a
// file and files edited after they were applied.
func validateSequence(available []Migration, applied []AppliedMigration) error {
	byVersion := make(map[int]Migration, len(available))
	for _, migration := range available {
		byVersion[versionNumber(migration.Version)] = migration
	}

	if len(available) > 0 {
		first := versionNumber(available[0].Version)
		last := versionNumber(available[len(available)-1].Version)
		for version := first; version <= last; version++ {
			if _, ok := byVersion[version]; !ok {
				return fmt.Errorf("%w: missing migration version %03d in sequence", ErrVersionConflict, version)
			}
		}
	}

	for _, entry := range applied {
		migration, ok := byVersion[versionNumber(entry.Version)]
		if !ok {
			return fmt.Errorf("%w: applied migration %s not found in available migrations", ErrVersionConflict, entry.Version)
		}
		if entry.Checksum != "" && migration.Checksum != "" && entry.Checksum != migration.Checksum {
			return NewMigrationError(entry.Version, migration.FilePath, "verify checksum", ErrChecksumMismatch)
		}
	}
	return nil
}
