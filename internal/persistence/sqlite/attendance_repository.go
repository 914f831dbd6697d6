package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/store-attendance/internal/persistence"
)

// AttendanceRepository implements persistence.AttendanceRepository using SQLite
type AttendanceRepository struct {
	pool *ConnectionPool
}

// NewAttendanceRepository creates a new SQLite attendance repository
func NewAttendanceRepository(pool *ConnectionPool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

const attendanceColumns = `a.id, a.user_id, a.work_date, a.clock_in, a.clock_out, a.break_start, a.break_end,
	a.work_hours, a.overtime_hours, a.status, a.note, a.approved_by, a.approved_at, a.created_at, a.updated_at`

// CreateRecord inserts the record opening a business day. A second record for
// the same user and day fails with a persistence.UniqueViolation.
func (r *AttendanceRepository) CreateRecord(ctx context.Context, record persistence.AttendanceRecord) error {
	if record.ID == "" || record.UserID == "" || record.WorkDate == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO attendance_records (
			id, user_id, work_date, clock_in, clock_out, break_start, break_end,
			work_hours, overtime_hours, status, note, approved_by, approved_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID,
		record.UserID,
		record.WorkDate,
		formatTimePtr(record.ClockIn),
		formatTimePtr(record.ClockOut),
		formatTimePtr(record.BreakStart),
		formatTimePtr(record.BreakEnd),
		record.WorkHours,
		record.OvertimeHours,
		record.Status,
		nullString(record.Note),
		nullString(record.ApprovedBy),
		formatTimePtr(record.ApprovedAt),
		formatTime(record.CreatedAt),
		formatTime(record.UpdatedAt),
	)
	return mapError(err)
}

// UpdateRecord writes the punches, totals and status of an existing record
func (r *AttendanceRepository) UpdateRecord(ctx context.Context, record persistence.AttendanceRecord) error {
	if record.ID == "" {
		return persistence.ErrConstraintViolation
	}

	result, err := r.pool.db.ExecContext(ctx, `
		UPDATE attendance_records
		SET clock_in = ?, clock_out = ?, break_start = ?, break_end = ?,
		    work_hours = ?, overtime_hours = ?, status = ?, note = ?,
		    approved_by = ?, approved_at = ?, updated_at = ?
		WHERE id = ?
	`,
		formatTimePtr(record.ClockIn),
		formatTimePtr(record.ClockOut),
		formatTimePtr(record.BreakStart),
		formatTimePtr(record.BreakEnd),
		record.WorkHours,
		record.OvertimeHours,
		record.Status,
		nullString(record.Note),
		nullString(record.ApprovedBy),
		formatTimePtr(record.ApprovedAt),
		formatTime(record.UpdatedAt),
		record.ID,
	)
	if err != nil {
		return mapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetRecordByUserAndDate returns the record of userID for workDate
func (r *AttendanceRepository) GetRecordByUserAndDate(ctx context.Context, userID, workDate string) (persistence.AttendanceRecord, error) {
	row := r.pool.db.QueryRowContext(ctx,
		`SELECT `+attendanceColumns+` FROM attendance_records a WHERE a.user_id = ? AND a.work_date = ?`,
		userID, workDate,
	)
	return scanAttendance(row)
}

// ListRecords returns records joined with their owner, newest business day first.
func (r *AttendanceRepository) ListRecords(ctx context.Context, filter persistence.AttendanceFilter) ([]persistence.AttendanceRow, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.UserID != "" {
		conditions = append(conditions, "a.user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.StartDate != "" {
		conditions = append(conditions, "a.work_date >= ?")
		args = append(args, filter.StartDate)
	}
	if filter.EndDate != "" {
		conditions = append(conditions, "a.work_date <= ?")
		args = append(args, filter.EndDate)
	}

	var query strings.Builder
	query.WriteString(`SELECT ` + attendanceColumns + `, u.name, u.employee_id, u.department
		FROM attendance_records a
		JOIN users u ON u.id = a.user_id`)
	if len(conditions) > 0 {
		query.WriteString(" WHERE ")
		query.WriteString(strings.Join(conditions, " AND "))
	}
	query.WriteString(" ORDER BY a.work_date DESC, a.created_at ASC, a.id ASC")
	if filter.Limit > 0 {
		query.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, filter.Limit, max(filter.Offset, 0))
	}

	rows, err := r.pool.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []persistence.AttendanceRow
	for rows.Next() {
		var (
			row  persistence.AttendanceRow
			user [3]string
		)
		record, err := scanAttendance(rows, &user[0], &user[1], &user[2])
		if err != nil {
			return nil, err
		}
		row.AttendanceRecord = record
		row.UserName, row.UserEmployeeID, row.UserDepartment = user[0], user[1], user[2]
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

// DeleteRecordsBetween removes every record whose business day lies in the inclusive range
func (r *AttendanceRepository) DeleteRecordsBetween(ctx context.Context, startDate, endDate string) (int64, error) {
	result, err := r.pool.db.ExecContext(ctx,
		`DELETE FROM attendance_records WHERE work_date >= ? AND work_date <= ?`,
		startDate, endDate,
	)
	if err != nil {
		return 0, mapError(err)
	}
	return result.RowsAffected()
}

// scanAttendance reads the attendance columns followed by any extra destinations.
func scanAttendance(row rowScanner, extra ...any) (persistence.AttendanceRecord, error) {
	var (
		record                                  persistence.AttendanceRecord
		clockIn, clockOut, breakStart, breakEnd sql.NullString
		note, approvedBy, approvedAt            sql.NullString
		createdAt, updatedAt                    string
	)
	dest := []any{
		&record.ID,
		&record.UserID,
		&record.WorkDate,
		&clockIn,
		&clockOut,
		&breakStart,
		&breakEnd,
		&record.WorkHours,
		&record.OvertimeHours,
		&record.Status,
		&note,
		&approvedBy,
		&approvedAt,
		&createdAt,
		&updatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return persistence.AttendanceRecord{}, mapError(err)
	}

	var err error
	for _, field := range []struct {
		name   string
		source sql.NullString
		target **time.Time
	}{
		{"clock_in", clockIn, &record.ClockIn},
		{"clock_out", clockOut, &record.ClockOut},
		{"break_start", breakStart, &record.BreakStart},
		{"break_end", breakEnd, &record.BreakEnd},
		{"approved_at", approvedAt, &record.ApprovedAt},
	} {
		if *field.target, err = parseTimePtr(field.source); err != nil {
			return persistence.AttendanceRecord{}, fmt.Errorf("failed to parse %s: %w", field.name, err)
		}
	}
	if record.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.AttendanceRecord{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if record.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.AttendanceRecord{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	record.Note = stringPtr(note)
	record.ApprovedBy = stringPtr(approvedBy)
	return record, nil
}
