package persistence

import "time"

// User represents an employee account.
type User struct {
	ID           string
	Email        string
	Name         string
	EmployeeID   string
	PasswordHash string
	Department   string
	Position     string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session represents an issued login session. Its ID is the token's jti claim.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AttendanceRecord is the single row a user owns for one business day.
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
	Status        string
	Note          *string
	ApprovedBy    *string
	ApprovedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AttendanceRow is an attendance record joined with the owner's directory fields.
type AttendanceRow struct {
	AttendanceRecord
	UserName       string
	UserEmployeeID string
	UserDepartment string
}

// AttendanceFilter narrows attendance listings. Dates are inclusive YYYY-MM-DD keys.
type AttendanceFilter struct {
	UserID    string
	StartDate string
	EndDate   string
	Limit     int
	Offset    int
}

// StoreSettings is the singleton store configuration row.
type StoreSettings struct {
	StoreName            string
	WorkStartTime        string
	WorkEndTime          string
	BreakDurationMinutes int
	OvertimeThreshold    float64
	Timezone             string
	UpdatedAt            time.Time
}
