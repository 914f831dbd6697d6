package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/store-attendance/internal/attendance"
	"github.com/example/store-attendance/internal/logging"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// AttendanceRepository captures the persistence operations needed by the attendance service.
type AttendanceRepository interface {
	CreateRecord(ctx context.Context, record AttendanceRecord) error
	UpdateRecord(ctx context.Context, record AttendanceRecord) error
	GetRecordByUserAndDate(ctx context.Context, userID, workDate string) (AttendanceRecord, error)
	ListRecords(ctx context.Context, filter AttendanceFilter) ([]AttendanceRecord, error)
	DeleteRecordsBetween(ctx context.Context, startDate, endDate string) (int64, error)
}

// AttendanceService drives the daily attendance state machine and the read/export surface.
type AttendanceService struct {
	records     AttendanceRepository
	idGenerator func() string
	now         func() time.Time
	location    *time.Location
	logger      *slog.Logger
}

// NewAttendanceService wires dependencies for the attendance service.
func NewAttendanceService(records AttendanceRepository, idGenerator func() string, now func() time.Time, location *time.Location) *AttendanceService {
	return NewAttendanceServiceWithLogger(records, idGenerator, now, location, nil)
}

// NewAttendanceServiceWithLogger wires dependencies for the attendance service with a specified logger.
// Business days are computed in location; nil means UTC.
func NewAttendanceServiceWithLogger(records AttendanceRepository, idGenerator func() string, now func() time.Time, location *time.Location, logger *slog.Logger) *AttendanceService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.UTC
	}
	return &AttendanceService{
		records:     records,
		idGenerator: idGenerator,
		now:         now,
		location:    location,
		logger:      logging.OrDefault(logger),
	}
}

// Location is the business-day location of the service.
func (s *AttendanceService) Location() *time.Location {
	return s.location
}

func (s *AttendanceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return logging.Component(ctx, s.logger, "service", "AttendanceService", operation, attrs...)
}

// ClockIn opens the caller's record for the current business day.
func (s *AttendanceService) ClockIn(ctx context.Context, principal Principal) (AttendanceRecord, error) {
	return s.transition(ctx, principal, "ClockIn", func(p attendance.Punches, now time.Time) (attendance.Punches, *attendance.Hours, error) {
		next, err := attendance.ClockIn(p, now)
		return next, nil, err
	})
}

// StartBreak stamps the start of the caller's break.
func (s *AttendanceService) StartBreak(ctx context.Context, principal Principal) (AttendanceRecord, error) {
	return s.transition(ctx, principal, "StartBreak", func(p attendance.Punches, now time.Time) (attendance.Punches, *attendance.Hours, error) {
		next, err := attendance.StartBreak(p, now)
		return next, nil, err
	})
}

// EndBreak stamps the end of the caller's break.
func (s *AttendanceService) EndBreak(ctx context.Context, principal Principal) (AttendanceRecord, error) {
	return s.transition(ctx, principal, "EndBreak", func(p attendance.Punches, now time.Time) (attendance.Punches, *attendance.Hours, error) {
		next, err := attendance.EndBreak(p, now)
		return next, nil, err
	})
}

// ClockOut closes the caller's day and records worked and overtime hours.
func (s *AttendanceService) ClockOut(ctx context.Context, principal Principal) (AttendanceRecord, error) {
	return s.transition(ctx, principal, "ClockOut", func(p attendance.Punches, now time.Time) (attendance.Punches, *attendance.Hours, error) {
		next, hours, err := attendance.ClockOut(p, now)
		if err != nil {
			return p, nil, err
		}
		return next, &hours, nil
	})
}

type transitionFunc func(attendance.Punches, time.Time) (attendance.Punches, *attendance.Hours, error)

// transition reads today's record, applies step and writes the result back.
// The day's record is created only by a successful clock-in.
func (s *AttendanceService) transition(ctx context.Context, principal Principal, operation string, step transitionFunc) (record AttendanceRecord, err error) {
	if s == nil {
		err = fmt.Errorf("AttendanceService is nil")
		return
	}
	if s.records == nil {
		err = fmt.Errorf("attendance repository not configured")
		return
	}

	now := s.now()
	workDate := attendance.BusinessDay(now, s.location)
	logger := s.loggerWith(ctx, operation,
		"user_id", principal.UserID,
		"work_date", workDate,
	)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "attendance transition rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "attendance transition applied", "record_id", record.ID, "state", record.Punches().State())
	}()

	if err = principal.require(RoleEmployee); err != nil {
		return
	}

	existing, getErr := s.records.GetRecordByUserAndDate(ctx, principal.UserID, workDate)
	found := getErr == nil
	if getErr != nil && !errors.Is(getErr, ErrNotFound) {
		err = getErr
		return
	}

	punches, hours, stepErr := step(existing.Punches(), now)
	if stepErr != nil {
		err = stepErr
		return
	}

	if !found {
		record = AttendanceRecord{
			ID:        s.idGenerator(),
			UserID:    principal.UserID,
			WorkDate:  workDate,
			Status:    StatusPresent,
			CreatedAt: now,
			UpdatedAt: now,
		}
		record.applyPunches(punches)
		if err = s.records.CreateRecord(ctx, record); err != nil {
			if errors.Is(err, ErrAlreadyExists) {
				err = attendance.ErrAlreadyClockedIn
			}
		}
		return
	}

	record = existing
	record.applyPunches(punches)
	if operation == "ClockIn" {
		record.Status = StatusPresent
	}
	if hours != nil {
		record.WorkHours = hours.Work
		record.OvertimeHours = hours.Overtime
	}
	record.UpdatedAt = now
	err = s.records.UpdateRecord(ctx, record)
	return
}

// Today returns the caller's record for the current business day with its derived state.
func (s *AttendanceService) Today(ctx context.Context, principal Principal) (TodayAttendance, error) {
	if s == nil {
		return TodayAttendance{}, fmt.Errorf("AttendanceService is nil")
	}
	if err := principal.require(RoleEmployee); err != nil {
		return TodayAttendance{}, err
	}

	workDate := attendance.BusinessDay(s.now(), s.location)
	today := TodayAttendance{WorkDate: workDate, State: attendance.StateNotClockedIn}

	record, err := s.records.GetRecordByUserAndDate(ctx, principal.UserID, workDate)
	if errors.Is(err, ErrNotFound) {
		return today, nil
	}
	if err != nil {
		s.loggerWith(ctx, "Today", "user_id", principal.UserID).ErrorContext(ctx, "failed to load today's record", "error", err, "error_kind", ErrorKind(err))
		return TodayAttendance{}, err
	}
	today.Record = &record
	today.State = record.Punches().State()
	return today, nil
}

// scopeUser returns the user id a listing may cover. Employees only ever see their own records.
func scopeUser(principal Principal, requested string) string {
	if principal.Role.AtLeast(RoleManager) {
		return requested
	}
	return principal.UserID
}

// ListRecords returns records in the inclusive range, newest business day first.
func (s *AttendanceService) ListRecords(ctx context.Context, params ListAttendanceParams) ([]AttendanceRecord, error) {
	if s == nil {
		return nil, fmt.Errorf("AttendanceService is nil")
	}
	if err := params.Principal.require(RoleEmployee); err != nil {
		return nil, err
	}

	start, end, vErr := validateDateRange(params.StartDate, params.EndDate)
	if vErr.HasErrors() {
		return nil, vErr
	}

	limit := params.Limit
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	filter := AttendanceFilter{
		UserID:    scopeUser(params.Principal, params.UserID),
		StartDate: start,
		EndDate:   end,
		Limit:     limit,
		Offset:    max(params.Offset, 0),
	}
	records, err := s.records.ListRecords(ctx, filter)
	if err != nil {
		s.loggerWith(ctx, "ListRecords", "user_id", params.Principal.UserID).ErrorContext(ctx, "failed to list records", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	return records, nil
}

// Summary totals the caller's own records in the inclusive range, defaulting
// to the current month when no bounds are given. Hours are rounded to two decimal places.
func (s *AttendanceService) Summary(ctx context.Context, principal Principal, startDate, endDate string) (AttendanceSummary, error) {
	if s == nil {
		return AttendanceSummary{}, fmt.Errorf("AttendanceService is nil")
	}
	if err := principal.require(RoleEmployee); err != nil {
		return AttendanceSummary{}, err
	}

	if startDate == "" && endDate == "" {
		today := s.now().In(s.location)
		startDate = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, s.location).Format(attendance.DateLayout)
		endDate = today.Format(attendance.DateLayout)
	}
	start, end, vErr := validateRequiredDateRange(startDate, endDate)
	if vErr.HasErrors() {
		return AttendanceSummary{}, vErr
	}

	records, err := s.records.ListRecords(ctx, AttendanceFilter{UserID: principal.UserID, StartDate: start, EndDate: end})
	if err != nil {
		return AttendanceSummary{}, err
	}

	summary := AttendanceSummary{StartDate: start, EndDate: end, WorkHours: decimal.Zero, OvertimeHours: decimal.Zero}
	for _, record := range records {
		if record.ClockIn != nil {
			summary.DaysWorked++
		}
		summary.WorkHours = summary.WorkHours.Add(decimal.NewFromFloat(record.WorkHours))
		summary.OvertimeHours = summary.OvertimeHours.Add(decimal.NewFromFloat(record.OvertimeHours))
	}
	summary.WorkHours = summary.WorkHours.Round(2)
	summary.OvertimeHours = summary.OvertimeHours.Round(2)
	return summary, nil
}

// ExportRecords returns every record in the inclusive range for export, oldest
// business day first. An empty range yields ErrNoExportData.
func (s *AttendanceService) ExportRecords(ctx context.Context, params ExportAttendanceParams) (records []AttendanceRecord, err error) {
	if s == nil {
		err = fmt.Errorf("AttendanceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ExportRecords",
		"principal_id", params.Principal.UserID,
		"start_date", params.StartDate,
		"end_date", params.EndDate,
	)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "export failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "export prepared", "records", len(records))
	}()

	if err = params.Principal.require(RoleEmployee); err != nil {
		return
	}

	start, end, vErr := validateRequiredDateRange(params.StartDate, params.EndDate)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	records, err = s.records.ListRecords(ctx, AttendanceFilter{
		UserID:    scopeUser(params.Principal, params.UserID),
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		return
	}
	if len(records) == 0 {
		err = ErrNoExportData
		return
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].WorkDate != records[j].WorkDate {
			return records[i].WorkDate < records[j].WorkDate
		}
		return ownerEmployeeID(records[i]) < ownerEmployeeID(records[j])
	})
	return
}

func ownerEmployeeID(record AttendanceRecord) string {
	if record.Owner == nil {
		return ""
	}
	return record.Owner.EmployeeID
}

// Cleanup deletes every record in the inclusive range. Requires ADMIN.
func (s *AttendanceService) Cleanup(ctx context.Context, params CleanupParams) (deleted int64, err error) {
	if s == nil {
		err = fmt.Errorf("AttendanceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Cleanup",
		"principal_id", params.Principal.UserID,
		"start_date", params.StartDate,
		"end_date", params.EndDate,
	)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "cleanup failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "attendance records deleted", "deleted", deleted)
	}()

	if err = params.Principal.require(RoleAdmin); err != nil {
		return
	}

	start, end, vErr := validateRequiredDateRange(params.StartDate, params.EndDate)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	deleted, err = s.records.DeleteRecordsBetween(ctx, start, end)
	return
}
