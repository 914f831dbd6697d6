// Package sqlite implements the persistence repositories on top of modernc.org/sqlite.
package sqlite

import (
	"context"
	"embed"
	"log/slog"

	"github.com/example/store-attendance/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationDir = "migrations"

// Storage bundles the repositories sharing one connection pool. It is built
// once by the caller and handed to the services that need it.
type Storage struct {
	*UserRepository
	*SessionRepository
	*AttendanceRepository
	*SettingsRepository

	pool *ConnectionPool
}

// Open connects to the database described by config.
func Open(ctx context.Context, config migration.SQLiteConfig) (*Storage, error) {
	pool, err := NewConnectionPool(ctx, config)
	if err != nil {
		return nil, err
	}
	return &Storage{
		UserRepository:       NewUserRepository(pool),
		SessionRepository:    NewSessionRepository(pool),
		AttendanceRepository: NewAttendanceRepository(pool),
		SettingsRepository:   NewSettingsRepository(pool),
		pool:                 pool,
	}, nil
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// Ping checks that the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context, logger *slog.Logger) error {
	return s.migrationManager(logger).Run(ctx)
}

// MigrationStatus reports applied and pending embedded migrations.
func (s *Storage) MigrationStatus(ctx context.Context, logger *slog.Logger) (*migration.Status, error) {
	return s.migrationManager(logger).Status(ctx)
}

func (s *Storage) migrationManager(logger *slog.Logger) *migration.Manager {
	return migration.NewManager(
		migration.NewFileScanner(),
		migration.NewSQLiteExecutor(s.pool.DB()),
		migrationFiles,
		migrationDir,
		logger,
	)
}
