package persistence

import (
	"context"
	"time"
)

// UserRepository exposes CRUD operations for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByEmployeeID(ctx context.Context, employeeID string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
	RevokeSession(ctx context.Context, id string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error)
}

// AttendanceRepository stores one attendance record per user per business day.
type AttendanceRepository interface {
	CreateRecord(ctx context.Context, record AttendanceRecord) error
	UpdateRecord(ctx context.Context, record AttendanceRecord) error
	GetRecordByUserAndDate(ctx context.Context, userID, workDate string) (AttendanceRecord, error)
	ListRecords(ctx context.Context, filter AttendanceFilter) ([]AttendanceRow, error)
	DeleteRecordsBetween(ctx context.Context, startDate, endDate string) (int64, error)
}

// SettingsRepository reads and writes the store settings singleton.
type SettingsRepository interface {
	GetSettings(ctx context.Context) (StoreSettings, error)
	SaveSettings(ctx context.Context, settings StoreSettings) error
}
