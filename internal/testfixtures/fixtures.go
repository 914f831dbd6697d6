package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/store-attendance/internal/application"
	"github.com/example/store-attendance/internal/attendance"
	"github.com/example/store-attendance/internal/persistence"
)

var (
	userCounter       uint64
	attendanceCounter uint64
	sessionCounter    uint64
)

// Tokyo is the +09:00 business zone most fixtures are expressed in.
var Tokyo = time.FixedZone("JST", 9*60*60)

// 09:00 in Tokyo on a Monday.
var referenceTime = time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceDay is the business day ReferenceTime falls on in Tokyo.
func ReferenceDay() string {
	return attendance.BusinessDay(referenceTime, Tokyo)
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic employee account that can be materialised
// for application or persistence tests.
type UserFixture struct {
	ID           string
	Email        string
	Name         string
	EmployeeID   string
	PasswordHash string
	Department   string
	Position     string
	Role         application.Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic active employee with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(-time.Duration(idx) * time.Hour)
	fixture := UserFixture{
		ID:           id,
		Email:        fmt.Sprintf("%s@store.com", id),
		Name:         fmt.Sprintf("従業員%03d", idx),
		EmployeeID:   fmt.Sprintf("EMP%03d", idx%1000),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		Department:   "販売部",
		Position:     "スタッフ",
		Role:         application.RoleEmployee,
		IsActive:     true,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithUserID(id string) UserOption {
	return func(f *UserFixture) { f.ID = id }
}

func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) { f.Email = email }
}

func WithUserEmployeeID(employeeID string) UserOption {
	return func(f *UserFixture) { f.EmployeeID = employeeID }
}

func WithUserName(name string) UserOption {
	return func(f *UserFixture) { f.Name = name }
}

func WithUserRole(role application.Role) UserOption {
	return func(f *UserFixture) { f.Role = role }
}

func WithUserInactive() UserOption {
	return func(f *UserFixture) { f.IsActive = false }
}

func WithUserPasswordHash(hash string) UserOption {
	return func(f *UserFixture) { f.PasswordHash = hash }
}

// WithUserPassword stores an argon2id hash of password. It panics if hashing fails.
func WithUserPassword(password string) UserOption {
	return func(f *UserFixture) {
		hash, err := application.HashPassword(password)
		if err != nil {
			panic(fmt.Sprintf("testfixtures: hash password: %v", err))
		}
		f.PasswordHash = hash
	}
}

// Application converts the fixture into the application user model.
func (f UserFixture) Application() application.User {
	return application.User{
		ID:         f.ID,
		Email:      f.Email,
		Name:       f.Name,
		EmployeeID: f.EmployeeID,
		Department: f.Department,
		Position:   f.Position,
		Role:       f.Role,
		IsActive:   f.IsActive,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}

// Credentials returns the application user paired with its password hash.
func (f UserFixture) Credentials() application.UserCredentials {
	return application.UserCredentials{User: f.Application(), PasswordHash: f.PasswordHash}
}

// Principal returns the authenticated identity for the fixture.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, Role: f.Role, EmployeeID: f.EmployeeID}
}

// Persistence converts the fixture into the persistence row.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Email:        f.Email,
		Name:         f.Name,
		EmployeeID:   f.EmployeeID,
		PasswordHash: f.PasswordHash,
		Department:   f.Department,
		Position:     f.Position,
		Role:         f.Role.String(),
		IsActive:     f.IsActive,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// -------------------------- Attendance fixtures --------------------------

// AttendanceFixture is one user's record for one business day.
type AttendanceFixture struct {
	ID            string
	UserID        string
	WorkDate      string
	ClockIn       *time.Time
	ClockOut      *time.Time
	BreakStart    *time.Time
	BreakEnd      *time.Time
	WorkHours     float64
	OvertimeHours float64
	Status        application.AttendanceStatus
	Note          *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AttendanceOption configures the generated attendance fixture.
type AttendanceOption func(*AttendanceFixture)

// NewAttendanceFixture returns an open day for userID on the reference business
// day, clocked in at ReferenceTime.
func NewAttendanceFixture(userID string, opts ...AttendanceOption) AttendanceFixture {
	idx := atomic.AddUint64(&attendanceCounter, 1)
	in := referenceTime
	fixture := AttendanceFixture{
		ID:        fmt.Sprintf("att-%03d", idx),
		UserID:    userID,
		WorkDate:  ReferenceDay(),
		ClockIn:   &in,
		Status:    application.StatusPresent,
		CreatedAt: in,
		UpdatedAt: in,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithAttendanceID(id string) AttendanceOption {
	return func(f *AttendanceFixture) { f.ID = id }
}

// WithAttendanceDay moves the record to workDate, clocking in at 09:00 Tokyo time that day.
func WithAttendanceDay(workDate string) AttendanceOption {
	return func(f *AttendanceFixture) {
		day, err := time.ParseInLocation(attendance.DateLayout, workDate, Tokyo)
		if err != nil {
			panic(fmt.Sprintf("testfixtures: %v", err))
		}
		in := day.Add(9 * time.Hour)
		f.WorkDate = workDate
		f.ClockIn = &in
		f.CreatedAt = in
		f.UpdatedAt = in
	}
}

// WithAttendanceShift closes the day after the given worked span and break, filling
// the hours the way clock-out would.
func WithAttendanceShift(span, breakLength time.Duration) AttendanceOption {
	return func(f *AttendanceFixture) {
		if f.ClockIn == nil {
			return
		}
		out := f.ClockIn.Add(span)
		f.ClockOut = &out
		if breakLength > 0 {
			start := f.ClockIn.Add(span / 2)
			end := start.Add(breakLength)
			f.BreakStart = &start
			f.BreakEnd = &end
		}
		hours := attendance.CalculateHours(*f.ClockIn, out, f.BreakStart, f.BreakEnd)
		f.WorkHours = hours.Work
		f.OvertimeHours = hours.Overtime
		f.UpdatedAt = out
	}
}

func WithAttendanceStatus(status application.AttendanceStatus) AttendanceOption {
	return func(f *AttendanceFixture) { f.Status = status }
}

func WithAttendanceNote(note string) AttendanceOption {
	return func(f *AttendanceFixture) { f.Note = &note }
}

// Application converts the fixture into the application record.
func (f AttendanceFixture) Application() application.AttendanceRecord {
	return application.AttendanceRecord{
		ID:            f.ID,
		UserID:        f.UserID,
		WorkDate:      f.WorkDate,
		ClockIn:       copyTimePtr(f.ClockIn),
		ClockOut:      copyTimePtr(f.ClockOut),
		BreakStart:    copyTimePtr(f.BreakStart),
		BreakEnd:      copyTimePtr(f.BreakEnd),
		WorkHours:     f.WorkHours,
		OvertimeHours: f.OvertimeHours,
		Status:        f.Status,
		Note:          copyStringPtr(f.Note),
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

// Persistence converts the fixture into the persistence row.
func (f AttendanceFixture) Persistence() persistence.AttendanceRecord {
	return persistence.AttendanceRecord{
		ID:            f.ID,
		UserID:        f.UserID,
		WorkDate:      f.WorkDate,
		ClockIn:       copyTimePtr(f.ClockIn),
		ClockOut:      copyTimePtr(f.ClockOut),
		BreakStart:    copyTimePtr(f.BreakStart),
		BreakEnd:      copyTimePtr(f.BreakEnd),
		WorkHours:     f.WorkHours,
		OvertimeHours: f.OvertimeHours,
		Status:        string(f.Status),
		Note:          copyStringPtr(f.Note),
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

// ---------------------------- Session fixtures ---------------------------

// SessionFixture represents a stored login session.
type SessionFixture struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a live seven-day session for userID issued at ReferenceTime.
func NewSessionFixture(userID string, opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	fixture := SessionFixture{
		ID:        fmt.Sprintf("session-%03d", idx),
		UserID:    userID,
		ExpiresAt: referenceTime.Add(7 * 24 * time.Hour),
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithSessionID(id string) SessionOption {
	return func(f *SessionFixture) { f.ID = id }
}

func WithSessionExpiresAt(t time.Time) SessionOption {
	return func(f *SessionFixture) { f.ExpiresAt = t }
}

func WithSessionRevokedAt(t time.Time) SessionOption {
	return func(f *SessionFixture) { f.RevokedAt = &t }
}

// Persistence converts the fixture into the persistence row.
func (f SessionFixture) Persistence() persistence.Session {
	return persistence.Session{
		ID:        f.ID,
		UserID:    f.UserID,
		ExpiresAt: f.ExpiresAt,
		RevokedAt: copyTimePtr(f.RevokedAt),
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

func copyStringPtr(src *string) *string {
	if src == nil {
		return nil
	}
	v := *src
	return &v
}

func copyTimePtr(src *time.Time) *time.Time {
	if src == nil {
		return nil
	}
	v := *src
	return &v
}
