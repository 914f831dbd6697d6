package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/store-attendance/internal/application"
	"github.com/example/store-attendance/internal/persistence"
)

// mapPersistenceError translates storage failures into the application taxonomy.
func mapPersistenceError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return fmt.Errorf("%w: %v", application.ErrNotFound, err)
	}
	var violation *persistence.UniqueViolation
	if errors.As(err, &violation) {
		switch {
		case violation.Table == "attendance_records":
			return &application.ConflictError{Field: "workDate"}
		case violation.Column == "email":
			return &application.ConflictError{Field: "email"}
		case violation.Column == "employee_id":
			return &application.ConflictError{Field: "employeeId"}
		default:
			return &application.ConflictError{Field: violation.Column}
		}
	}
	return err
}

type credentialStoreAdapter struct {
	repo persistence.UserRepository
}

func newCredentialStoreAdapter(repo persistence.UserRepository) *credentialStoreAdapter {
	return &credentialStoreAdapter{repo: repo}
}

func (a *credentialStoreAdapter) GetUserCredentialsByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.UserCredentials{}, mapPersistenceError(err)
	}
	return toApplicationCredentials(stored), nil
}

func (a *credentialStoreAdapter) GetUserCredentials(ctx context.Context, id string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.UserCredentials{}, mapPersistenceError(err)
	}
	return toApplicationCredentials(stored), nil
}

func (a *credentialStoreAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, mapPersistenceError(err)
	}
	return toApplicationUser(stored), nil
}

func (a *credentialStoreAdapter) UpdatePasswordHash(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return mapPersistenceError(err)
	}
	stored.PasswordHash = passwordHash
	stored.UpdatedAt = updatedAt
	return mapPersistenceError(a.repo.UpdateUser(ctx, stored))
}

type userRepositoryAdapter struct {
	repo persistence.UserRepository
}

func newUserRepositoryAdapter(repo persistence.UserRepository) *userRepositoryAdapter {
	return &userRepositoryAdapter{repo: repo}
}

func (a *userRepositoryAdapter) CreateUser(ctx context.Context, creds application.UserCredentials) (application.User, error) {
	if err := a.repo.CreateUser(ctx, toPersistenceUser(creds.User, creds.PasswordHash)); err != nil {
		return application.User{}, mapPersistenceError(err)
	}
	stored, err := a.repo.GetUser(ctx, creds.User.ID)
	if err != nil {
		return application.User{}, mapPersistenceError(err)
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, mapPersistenceError(err)
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) UpdateUser(ctx context.Context, user application.User) (application.User, error) {
	current, err := a.repo.GetUser(ctx, user.ID)
	if err != nil {
		return application.User{}, mapPersistenceError(err)
	}
	if err := a.repo.UpdateUser(ctx, toPersistenceUser(user, current.PasswordHash)); err != nil {
		return application.User{}, mapPersistenceError(err)
	}
	stored, err := a.repo.GetUser(ctx, user.ID)
	if err != nil {
		return application.User{}, mapPersistenceError(err)
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) ListUsers(ctx context.Context) ([]application.User, error) {
	models, err := a.repo.ListUsers(ctx)
	if err != nil {
		return nil, mapPersistenceError(err)
	}
	users := make([]application.User, 0, len(models))
	for _, model := range models {
		users = append(users, toApplicationUser(model))
	}
	return users, nil
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, mapPersistenceError(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, id string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, id)
	if err != nil {
		return application.Session{}, mapPersistenceError(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) RevokeSession(ctx context.Context, id string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.repo.RevokeSession(ctx, id, revokedAt)
	if err != nil {
		return application.Session{}, mapPersistenceError(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	_, err := a.repo.DeleteExpiredSessions(ctx, reference)
	return mapPersistenceError(err)
}

type attendanceRepositoryAdapter struct {
	repo persistence.AttendanceRepository
}

func newAttendanceRepositoryAdapter(repo persistence.AttendanceRepository) *attendanceRepositoryAdapter {
	return &attendanceRepositoryAdapter{repo: repo}
}

func (a *attendanceRepositoryAdapter) CreateRecord(ctx context.Context, record application.AttendanceRecord) error {
	return mapPersistenceError(a.repo.CreateRecord(ctx, toPersistenceRecord(record)))
}

func (a *attendanceRepositoryAdapter) UpdateRecord(ctx context.Context, record application.AttendanceRecord) error {
	return mapPersistenceError(a.repo.UpdateRecord(ctx, toPersistenceRecord(record)))
}

func (a *attendanceRepositoryAdapter) GetRecordByUserAndDate(ctx context.Context, userID, workDate string) (application.AttendanceRecord, error) {
	stored, err := a.repo.GetRecordByUserAndDate(ctx, userID, workDate)
	if err != nil {
		return application.AttendanceRecord{}, mapPersistenceError(err)
	}
	return toApplicationRecord(stored), nil
}

func (a *attendanceRepositoryAdapter) ListRecords(ctx context.Context, filter application.AttendanceFilter) ([]application.AttendanceRecord, error) {
	rows, err := a.repo.ListRecords(ctx, persistence.AttendanceFilter{
		UserID:    filter.UserID,
		StartDate: filter.StartDate,
		EndDate:   filter.EndDate,
		Limit:     filter.Limit,
		Offset:    filter.Offset,
	})
	if err != nil {
		return nil, mapPersistenceError(err)
	}
	records := make([]application.AttendanceRecord, 0, len(rows))
	for _, row := range rows {
		record := toApplicationRecord(row.AttendanceRecord)
		record.Owner = &application.AttendanceOwner{
			Name:       row.UserName,
			EmployeeID: row.UserEmployeeID,
			Department: row.UserDepartment,
		}
		records = append(records, record)
	}
	return records, nil
}

func (a *attendanceRepositoryAdapter) DeleteRecordsBetween(ctx context.Context, startDate, endDate string) (int64, error) {
	deleted, err := a.repo.DeleteRecordsBetween(ctx, startDate, endDate)
	return deleted, mapPersistenceError(err)
}

type settingsRepositoryAdapter struct {
	repo persistence.SettingsRepository
}

func newSettingsRepositoryAdapter(repo persistence.SettingsRepository) *settingsRepositoryAdapter {
	return &settingsRepositoryAdapter{repo: repo}
}

func (a *settingsRepositoryAdapter) GetSettings(ctx context.Context) (application.StoreSettings, error) {
	stored, err := a.repo.GetSettings(ctx)
	if err != nil {
		return application.StoreSettings{}, mapPersistenceError(err)
	}
	return application.StoreSettings{
		StoreName:            stored.StoreName,
		WorkStartTime:        stored.WorkStartTime,
		WorkEndTime:          stored.WorkEndTime,
		BreakDurationMinutes: stored.BreakDurationMinutes,
		OvertimeThreshold:    stored.OvertimeThreshold,
		Timezone:             stored.Timezone,
		UpdatedAt:            stored.UpdatedAt,
	}, nil
}

// toApplicationUser ignores an unparseable role; such a user authorizes as RoleUnknown.
func toApplicationUser(model persistence.User) application.User {
	role, _ := application.ParseRole(model.Role)
	return application.User{
		ID:         model.ID,
		Email:      model.Email,
		Name:       model.Name,
		EmployeeID: model.EmployeeID,
		Department: model.Department,
		Position:   model.Position,
		Role:       role,
		IsActive:   model.IsActive,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}
}

func toApplicationCredentials(model persistence.User) application.UserCredentials {
	return application.UserCredentials{User: toApplicationUser(model), PasswordHash: model.PasswordHash}
}

func toPersistenceUser(user application.User, passwordHash string) persistence.User {
	return persistence.User{
		ID:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		EmployeeID:   user.EmployeeID,
		PasswordHash: passwordHash,
		Department:   user.Department,
		Position:     user.Position,
		Role:         user.Role.String(),
		IsActive:     user.IsActive,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:        model.ID,
		UserID:    model.UserID,
		ExpiresAt: model.ExpiresAt,
		RevokedAt: cloneTime(model.RevokedAt),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:        session.ID,
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
		RevokedAt: cloneTime(session.RevokedAt),
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}
}

func toApplicationRecord(model persistence.AttendanceRecord) application.AttendanceRecord {
	return application.AttendanceRecord{
		ID:            model.ID,
		UserID:        model.UserID,
		WorkDate:      model.WorkDate,
		ClockIn:       cloneTime(model.ClockIn),
		ClockOut:      cloneTime(model.ClockOut),
		BreakStart:    cloneTime(model.BreakStart),
		BreakEnd:      cloneTime(model.BreakEnd),
		WorkHours:     model.WorkHours,
		OvertimeHours: model.OvertimeHours,
		Status:        application.AttendanceStatus(model.Status),
		Note:          cloneString(model.Note),
		ApprovedBy:    cloneString(model.ApprovedBy),
		ApprovedAt:    cloneTime(model.ApprovedAt),
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

func toPersistenceRecord(record application.AttendanceRecord) persistence.AttendanceRecord {
	return persistence.AttendanceRecord{
		ID:            record.ID,
		UserID:        record.UserID,
		WorkDate:      record.WorkDate,
		ClockIn:       cloneTime(record.ClockIn),
		ClockOut:      cloneTime(record.ClockOut),
		BreakStart:    cloneTime(record.BreakStart),
		BreakEnd:      cloneTime(record.BreakEnd),
		WorkHours:     record.WorkHours,
		OvertimeHours: record.OvertimeHours,
		Status:        string(record.Status),
		Note:          cloneString(record.Note),
		ApprovedBy:    cloneString(record.ApprovedBy),
		ApprovedAt:    cloneTime(record.ApprovedAt),
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
