package application

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// credentialStoreStub implements CredentialStore and UserRepository for tests.
type credentialStoreStub struct {
	mu          sync.Mutex
	users       map[string]UserCredentials
	lookupErr   error
	createErr   error
	updateErr   error
	hashUpdates map[string]string
}

func newCredentialStoreStub(creds ...UserCredentials) *credentialStoreStub {
	stub := &credentialStoreStub{users: map[string]UserCredentials{}, hashUpdates: map[string]string{}}
	for _, c := range creds {
		stub.users[c.User.ID] = c
	}
	return stub
}

func (c *credentialStoreStub) GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lookupErr != nil {
		return UserCredentials{}, c.lookupErr
	}
	for _, creds := range c.users {
		if strings.EqualFold(creds.User.Email, email) {
			return creds, nil
		}
	}
	return UserCredentials{}, ErrNotFound
}

func (c *credentialStoreStub) GetUserCredentials(ctx context.Context, id string) (UserCredentials, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	creds, ok := c.users[id]
	if !ok {
		return UserCredentials{}, ErrNotFound
	}
	return creds, nil
}

func (c *credentialStoreStub) GetUser(ctx context.Context, id string) (User, error) {
	creds, err := c.GetUserCredentials(ctx, id)
	return creds.User, err
}

func (c *credentialStoreStub) UpdatePasswordHash(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.updateErr != nil {
		return c.updateErr
	}
	creds, ok := c.users[id]
	if !ok {
		return ErrNotFound
	}
	creds.PasswordHash = passwordHash
	creds.User.UpdatedAt = updatedAt
	c.users[id] = creds
	c.hashUpdates[id] = passwordHash
	return nil
}

func (c *credentialStoreStub) CreateUser(ctx context.Context, creds UserCredentials) (User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.createErr != nil {
		return User{}, c.createErr
	}
	for _, existing := range c.users {
		if existing.User.Email == creds.User.Email {
			return User{}, &ConflictError{Field: "email"}
		}
		if existing.User.EmployeeID == creds.User.EmployeeID {
			return User{}, &ConflictError{Field: "employeeId"}
		}
	}
	c.users[creds.User.ID] = creds
	return creds.User, nil
}

func (c *credentialStoreStub) UpdateUser(ctx context.Context, user User) (User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.updateErr != nil {
		return User{}, c.updateErr
	}
	creds, ok := c.users[user.ID]
	if !ok {
		return User{}, ErrNotFound
	}
	creds.User = user
	c.users[user.ID] = creds
	return user, nil
}

func (c *credentialStoreStub) ListUsers(ctx context.Context) ([]User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lookupErr != nil {
		return nil, c.lookupErr
	}
	var out []User
	for _, creds := range c.users {
		out = append(out, creds.User)
	}
	return out, nil
}

// sessionRepositoryStub implements SessionRepository for tests.
type sessionRepositoryStub struct {
	mu          sync.Mutex
	sessions    map[string]Session
	createErr   error
	deleteErr   error
	deleteCalls []time.Time
}

func newSessionRepositoryStub() *sessionRepositoryStub {
	return &sessionRepositoryStub{sessions: map[string]Session{}}
}

func (s *sessionRepositoryStub) CreateSession(ctx context.Context, session Session) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return Session{}, s.createErr
	}
	s.sessions[session.ID] = session
	return session, nil
}

func (s *sessionRepositoryStub) GetSession(ctx context.Context, id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return session, nil
}

func (s *sessionRepositoryStub) RevokeSession(ctx context.Context, id string, revokedAt time.Time) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	if session.RevokedAt == nil {
		at := revokedAt
		session.RevokedAt = &at
	}
	s.sessions[id] = session
	return session, nil
}

func (s *sessionRepositoryStub) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls = append(s.deleteCalls, reference)
	return s.deleteErr
}

// attendanceRepositoryStub implements AttendanceRepository over an in-memory map keyed by user and day.
type attendanceRepositoryStub struct {
	mu         sync.Mutex
	records    map[string]AttendanceRecord
	getErr     error
	createErr  error
	listErr    error
	lastFilter AttendanceFilter
	listResult []AttendanceRecord
	deleted    int64
	deleteArgs [2]string
}

func newAttendanceRepositoryStub() *attendanceRepositoryStub {
	return &attendanceRepositoryStub{records: map[string]AttendanceRecord{}}
}

func recordKey(userID, workDate string) string {
	return fmt.Sprintf("%s/%s", userID, workDate)
}

func (a *attendanceRepositoryStub) CreateRecord(ctx context.Context, record AttendanceRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.createErr != nil {
		return a.createErr
	}
	key := recordKey(record.UserID, record.WorkDate)
	if _, exists := a.records[key]; exists {
		return &ConflictError{Field: "workDate"}
	}
	a.records[key] = record
	return nil
}

func (a *attendanceRepositoryStub) UpdateRecord(ctx context.Context, record AttendanceRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := recordKey(record.UserID, record.WorkDate)
	if _, exists := a.records[key]; !exists {
		return ErrNotFound
	}
	a.records[key] = record
	return nil
}

func (a *attendanceRepositoryStub) GetRecordByUserAndDate(ctx context.Context, userID, workDate string) (AttendanceRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.getErr != nil {
		return AttendanceRecord{}, a.getErr
	}
	record, ok := a.records[recordKey(userID, workDate)]
	if !ok {
		return AttendanceRecord{}, ErrNotFound
	}
	return record, nil
}

func (a *attendanceRepositoryStub) ListRecords(ctx context.Context, filter AttendanceFilter) ([]AttendanceRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastFilter = filter
	if a.listErr != nil {
		return nil, a.listErr
	}
	out := make([]AttendanceRecord, len(a.listResult))
	copy(out, a.listResult)
	return out, nil
}

func (a *attendanceRepositoryStub) DeleteRecordsBetween(ctx context.Context, startDate, endDate string) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deleteArgs = [2]string{startDate, endDate}
	return a.deleted, nil
}

func plainVerifier(hashedPassword, password string) error {
	if hashedPassword != password {
		return ErrInvalidCredentials
	}
	return nil
}

func plainHasher(password string) (string, error) {
	return "hashed:" + password, nil
}

func sequence(values ...string) func() string {
	var mu sync.Mutex
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		if len(values) == 0 {
			return "fallback"
		}
		next := values[0]
		values = values[1:]
		return next
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
