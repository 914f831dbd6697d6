package sqlite

import (
	"context"
	"fmt"

	"github.com/example/store-attendance/internal/persistence"
)

// SettingsRepository implements persistence.SettingsRepository using SQLite
type SettingsRepository struct {
	pool *ConnectionPool
}

// NewSettingsRepository creates a new SQLite settings repository
func NewSettingsRepository(pool *ConnectionPool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// GetSettings returns the store settings row
func (r *SettingsRepository) GetSettings(ctx context.Context) (persistence.StoreSettings, error) {
	var (
		settings  persistence.StoreSettings
		updatedAt string
	)
	err := r.pool.db.QueryRowContext(ctx, `
		SELECT store_name, work_start_time, work_end_time, break_duration_minutes, overtime_threshold, timezone, updated_at
		FROM store_settings
		WHERE id = 1
	`).Scan(
		&settings.StoreName,
		&settings.WorkStartTime,
		&settings.WorkEndTime,
		&settings.BreakDurationMinutes,
		&settings.OvertimeThreshold,
		&settings.Timezone,
		&updatedAt,
	)
	if err != nil {
		return persistence.StoreSettings{}, mapError(err)
	}
	if settings.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.StoreSettings{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return settings, nil
}

// SaveSettings inserts or replaces the store settings row
func (r *SettingsRepository) SaveSettings(ctx context.Context, settings persistence.StoreSettings) error {
	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO store_settings (id, store_name, work_start_time, work_end_time, break_duration_minutes, overtime_threshold, timezone, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			store_name = excluded.store_name,
			work_start_time = excluded.work_start_time,
			work_end_time = excluded.work_end_time,
			break_duration_minutes = excluded.break_duration_minutes,
			overtime_threshold = excluded.overtime_threshold,
			timezone = excluded.timezone,
			updated_at = excluded.updated_at
	`,
		settings.StoreName,
		settings.WorkStartTime,
		settings.WorkEndTime,
		settings.BreakDurationMinutes,
		settings.OvertimeThreshold,
		settings.Timezone,
		formatTime(settings.UpdatedAt),
	)
	return mapError(err)
}
