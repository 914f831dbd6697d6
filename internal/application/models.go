package application

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/store-attendance/internal/attendance"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID     string
	Role       Role
	EmployeeID string
	SessionID  string
}

// User represents an employee account exposed by the application services.
type User struct {
	ID         string
	Email      string
	Name       string
	EmployeeID string
	Department string
	Position   string
	Role       Role
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// UserInput captures caller provided attributes of a new account.
type UserInput struct {
	Email      string
	Name       string
	EmployeeID string
	Password   string
	Department string
	Position   string
	Role       string
}

// UserUpdateInput carries the account fields an administrator may change. Nil fields are left as-is.
type UserUpdateInput struct {
	Name       *string
	Department *string
	Position   *string
	Role       *string
	IsActive   *bool
}

// CreateUserParams wraps the data required to create a user.
type CreateUserParams struct {
	Principal Principal
	Input     UserInput
}

// UpdateUserParams wraps the data required to update a user.
type UpdateUserParams struct {
	Principal Principal
	UserID    string
	Input     UserUpdateInput
}

// ChangePasswordParams wraps a self-service password change.
type ChangePasswordParams struct {
	Principal       Principal
	CurrentPassword string
	NewPassword     string
}

// Session represents an authenticated session issued to a user.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LoginParams captures the data required to authenticate a user.
type LoginParams struct {
	Email    string
	Password string
}

// LoginResult captures the outcome of a successful authentication attempt.
type LoginResult struct {
	User    User
	Session Session
	Token   string
}

// AttendanceStatus classifies a business day.
type AttendanceStatus string

const (
	StatusPresent    AttendanceStatus = "PRESENT"
	StatusAbsent     AttendanceStatus = "ABSENT"
	StatusLate       AttendanceStatus = "LATE"
	StatusEarlyLeave AttendanceStatus = "EARLY_LEAVE"
	StatusHoliday    AttendanceStatus = "HOLIDAY"
	StatusSickLeave  AttendanceStatus = "SICK_LEAVE"
)

// AttendanceOwner is the directory summary attached to listed records.
type AttendanceOwner struct {
	Name       string
	EmployeeID string
	Department string
}

// AttendanceRecord is one user's record for one business day.
type AttendanceRecord struct {
	ID            string
	UserID        string
	WorkDate      string
	ClockIn       *time.Time
	ClockOut      *time.Time
	BreakStart    *time.Time
	BreakEnd      *time.Time
	WorkHours     float64
	OvertimeHours float64
	Status        AttendanceStatus
	Note          *string
	ApprovedBy    *string
	ApprovedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Owner         *AttendanceOwner
}

// Punches returns the record's timestamps in the form the state machine works on.
func (r AttendanceRecord) Punches() attendance.Punches {
	return attendance.Punches{
		ClockIn:    r.ClockIn,
		ClockOut:   r.ClockOut,
		BreakStart: r.BreakStart,
		BreakEnd:   r.BreakEnd,
	}
}

func (r *AttendanceRecord) applyPunches(p attendance.Punches) {
	r.ClockIn = p.ClockIn
	r.ClockOut = p.ClockOut
	r.BreakStart = p.BreakStart
	r.BreakEnd = p.BreakEnd
}

// AttendanceFilter narrows record listings; dates are inclusive YYYY-MM-DD keys.
type AttendanceFilter struct {
	UserID    string
	StartDate string
	EndDate   string
	Limit     int
	Offset    int
}

// ListAttendanceParams wraps a listing request.
type ListAttendanceParams struct {
	Principal Principal
	UserID    string
	StartDate string
	EndDate   string
	Limit     int
	Offset    int
}

// ExportAttendanceParams wraps an export request. Both dates are required.
type ExportAttendanceParams struct {
	Principal Principal
	UserID    string
	StartDate string
	EndDate   string
}

// TodayAttendance is the caller's record for the current business day.
type TodayAttendance struct {
	WorkDate string
	State    attendance.State
	Record   *AttendanceRecord
}

// AttendanceSummary totals a caller's records over a date range.
type AttendanceSummary struct {
	StartDate     string
	EndDate       string
	DaysWorked    int
	WorkHours     decimal.Decimal
	OvertimeHours decimal.Decimal
}

// CleanupParams wraps an administrative deletion of a date range.
type CleanupParams struct {
	Principal Principal
	StartDate string
	EndDate   string
}

// StoreSettings is the singleton store configuration.
type StoreSettings struct {
	StoreName            string
	WorkStartTime        string
	WorkEndTime          string
	BreakDurationMinutes int
	OvertimeThreshold    float64
	Timezone             string
	UpdatedAt            time.Time
}
