package migration

import (
	"context"
	"io/fs"
	"time"
)

// Migration represents a database migration with its metadata and SQL content
type Migration struct {
	Version     string // Version identifier (e.g., "001", "002")
	Description string
	SQL         string
	FilePath    string
	Checksum    string
}

// AppliedMigration represents a migration that has been successfully applied
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}

// Status provides information about the current migration state
type Status struct {
	CurrentVersion    string
	PendingCount      int
	AppliedMigrations []AppliedMigration
	PendingMigrations []Migration
}

// FileScanner reads migration files out of a filesystem.
type FileScanner interface {
	// ScanMigrations returns every migration in dir ordered by version.
	ScanMigrations(fsys fs.FS, dir string) ([]Migration, error)

	// ValidateFileName checks if migration file follows naming convention
	ValidateFileName(filename string) error

	// ParseMigrationFile reads and parses a single migration file
	ParseMigrationFile(fsys fs.FS, path string) (*Migration, error)
}

// Executor handles the actual execution of migrations against the database
type Executor interface {
	// ExecuteMigration runs a single migration within a transaction and records it.
	ExecuteMigration(ctx context.Context, migration Migration, recordedAt time.Time) error

	// InitializeVersionTable creates the schema_migrations table if it doesn't exist
	InitializeVersionTable(ctx context.Context) error

	// GetAppliedVersions returns all applied migration versions with timestamps
	GetAppliedVersions(ctx context.Context) ([]AppliedMigration, error)
}
