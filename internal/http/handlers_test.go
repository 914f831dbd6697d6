package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/store-attendance/internal/application"
	"github.com/example/store-attendance/internal/attendance"
)

var (
	testNow   = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	testTokyo = time.FixedZone("JST", 9*60*60)

	employee = application.Principal{UserID: "user-1", Role: application.RoleEmployee, EmployeeID: "EMP001", SessionID: "s-emp"}
	admin    = application.Principal{UserID: "admin", Role: application.RoleAdmin, EmployeeID: "ADM001", SessionID: "s-adm"}
)

type fakeAuthService struct {
	loginResult  application.LoginResult
	loginErr     error
	loggedOut    []string
	user         application.User
	passwordErr  error
	passwordSeen application.ChangePasswordParams
}

func (f *fakeAuthService) Login(ctx context.Context, params application.LoginParams) (application.LoginResult, error) {
	return f.loginResult, f.loginErr
}

func (f *fakeAuthService) Logout(ctx context.Context, token string) error {
	f.loggedOut = append(f.loggedOut, token)
	return nil
}

func (f *fakeAuthService) Me(ctx context.Context, principal application.Principal) (application.User, error) {
	return f.user, nil
}

func (f *fakeAuthService) ChangePassword(ctx context.Context, params application.ChangePasswordParams) error {
	f.passwordSeen = params
	return f.passwordErr
}

func (f *fakeAuthService) SessionTTL() time.Duration { return 7 * 24 * time.Hour }

type fakeUserService struct {
	createErr error
	created   application.CreateUserParams
	updated   application.UpdateUserParams
}

func (f *fakeUserService) CreateUser(ctx context.Context, params application.CreateUserParams) (application.User, error) {
	f.created = params
	if f.createErr != nil {
		return application.User{}, f.createErr
	}
	return application.User{ID: "user-2", Email: params.Input.Email, EmployeeID: params.Input.EmployeeID, Role: application.RoleEmployee, IsActive: true}, nil
}

func (f *fakeUserService) UpdateUser(ctx context.Context, params application.UpdateUserParams) (application.User, error) {
	f.updated = params
	return application.User{ID: params.UserID, Role: application.RoleManager}, nil
}

func (f *fakeUserService) ListUsers(ctx context.Context, principal application.Principal) ([]application.User, error) {
	if principal.Role < application.RoleManager {
		return nil, application.ErrForbidden
	}
	return []application.User{{ID: "user-1", EmployeeID: "EMP001", Role: application.RoleEmployee}}, nil
}

type fakeAttendanceService struct {
	transitionErr error
	records       []application.AttendanceRecord
	listParams    application.ListAttendanceParams
	exportErr     error
}

func (f *fakeAttendanceService) step(principal application.Principal) (application.AttendanceRecord, error) {
	if f.transitionErr != nil {
		return application.AttendanceRecord{}, f.transitionErr
	}
	in := testNow
	return application.AttendanceRecord{ID: "rec-1", UserID: principal.UserID, WorkDate: "2024-01-15", ClockIn: &in, Status: application.StatusPresent}, nil
}

func (f *fakeAttendanceService) ClockIn(ctx context.Context, p application.Principal) (application.AttendanceRecord, error) {
	return f.step(p)
}

func (f *fakeAttendanceService) StartBreak(ctx context.Context, p application.Principal) (application.AttendanceRecord, error) {
	return f.step(p)
}

func (f *fakeAttendanceService) EndBreak(ctx context.Context, p application.Principal) (application.AttendanceRecord, error) {
	return f.step(p)
}

func (f *fakeAttendanceService) ClockOut(ctx context.Context, p application.Principal) (application.AttendanceRecord, error) {
	return f.step(p)
}

func (f *fakeAttendanceService) Today(ctx context.Context, p application.Principal) (application.TodayAttendance, error) {
	return application.TodayAttendance{WorkDate: "2024-01-15", State: attendance.StateNotClockedIn}, nil
}

func (f *fakeAttendanceService) ListRecords(ctx context.Context, params application.ListAttendanceParams) ([]application.AttendanceRecord, error) {
	f.listParams = params
	return f.records, nil
}

func (f *fakeAttendanceService) Summary(ctx context.Context, p application.Principal, startDate, endDate string) (application.AttendanceSummary, error) {
	return application.AttendanceSummary{StartDate: "2024-01-01", EndDate: "2024-01-15", DaysWorked: 2, WorkHours: decimal.RequireFromString("17.5"), OvertimeHours: decimal.RequireFromString("1.5")}, nil
}

func (f *fakeAttendanceService) ExportRecords(ctx context.Context, params application.ExportAttendanceParams) ([]application.AttendanceRecord, error) {
	if f.exportErr != nil {
		return nil, f.exportErr
	}
	return f.records, nil
}

func (f *fakeAttendanceService) Location() *time.Location { return testTokyo }

type fakeAdminService struct {
	deleted int64
}

func (f *fakeAdminService) Cleanup(ctx context.Context, params application.CleanupParams) (int64, error) {
	if params.Principal.Role != application.RoleAdmin {
		return 0, application.ErrForbidden
	}
	return f.deleted, nil
}

func (f *fakeAdminService) GetSettings(ctx context.Context, principal application.Principal) (application.StoreSettings, error) {
	return application.StoreSettings{StoreName: "本店", OvertimeThreshold: 8}, nil
}

type testServer struct {
	handler    http.Handler
	auth       *fakeAuthService
	users      *fakeUserService
	attendance *fakeAttendanceService
	admin      *fakeAdminService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	s := &testServer{
		auth:       &fakeAuthService{},
		users:      &fakeUserService{},
		attendance: &fakeAttendanceService{},
		admin:      &fakeAdminService{},
	}
	authenticator := &fakeAuthenticator{principals: map[string]application.Principal{
		"employee-token": employee,
		"admin-token":    admin,
	}}
	s.handler = NewRouter(RouterConfig{
		Auth:       NewAuthHandler(s.auth, true, nil),
		Users:      NewUserHandler(s.users, nil),
		Attendance: NewAttendanceHandler(s.attendance, func() time.Time { return testNow }, nil),
		Admin:      NewAdminHandler(s.admin, s.admin, nil),
		Session:    RequireSession(authenticator, nil),
	})
	return s
}

func (s *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	return out
}

func TestAuthHandler(t *testing.T) {
	t.Parallel()

	t.Run("login sets the session cookie", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		s.auth.loginResult = application.LoginResult{
			User:  application.User{ID: "user-1", Email: "staff@store.com", EmployeeID: "EMP001", Role: application.RoleEmployee},
			Token: "signed-token",
		}

		rec := s.do(http.MethodPost, "/auth/login", "", `{"email":"staff@store.com","password":"Secret123"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		cookies := rec.Result().Cookies()
		if len(cookies) != 1 || cookies[0].Name != sessionCookieName || cookies[0].Value != "signed-token" {
			t.Fatalf("unexpected cookies %#v", cookies)
		}
		if !cookies[0].HttpOnly || !cookies[0].Secure || cookies[0].SameSite != http.SameSiteStrictMode || cookies[0].MaxAge != 7*24*60*60 {
			t.Fatalf("unexpected cookie attributes %#v", cookies[0])
		}

		body := decodeBody[loginResponse](t, rec)
		if !body.Success || body.Token != "signed-token" || body.User.Role != "EMPLOYEE" {
			t.Fatalf("unexpected body %#v", body)
		}
	})

	t.Run("login failure is localized", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		s.auth.loginErr = application.ErrInvalidCredentials

		rec := s.do(http.MethodPost, "/auth/login", "", `{"email":"staff@store.com","password":"bad"}`)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if body := decodeBody[errorResponse](t, rec); body.Message != msgInvalidCredentials {
			t.Fatalf("unexpected message %q", body.Message)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()

		rec := newTestServer(t).do(http.MethodPost, "/auth/login", "", `{`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("logout clears the cookie without a session", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		rec := s.do(http.MethodPost, "/auth/logout", "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		cookies := rec.Result().Cookies()
		if len(cookies) != 1 || cookies[0].MaxAge != -1 {
			t.Fatalf("expected cleared cookie, got %#v", cookies)
		}
		if len(s.auth.loggedOut) != 0 {
			t.Fatalf("expected no revocation without a token")
		}
	})

	t.Run("logout revokes the presented token", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		s.do(http.MethodPost, "/auth/logout", "employee-token", "")
		if len(s.auth.loggedOut) != 1 || s.auth.loggedOut[0] != "employee-token" {
			t.Fatalf("expected revocation, got %#v", s.auth.loggedOut)
		}
	})

	t.Run("password change reports field errors", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		s.auth.passwordErr = &application.ValidationError{
			Message:     "現在のパスワードが正しくありません",
			FieldErrors: map[string]string{"currentPassword": "現在のパスワードが正しくありません"},
		}

		rec := s.do(http.MethodPost, "/auth/password", "employee-token", `{"currentPassword":"x","newPassword":"Better456"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		body := decodeBody[errorResponse](t, rec)
		if body.Errors["currentPassword"] == "" {
			t.Fatalf("expected field error, got %#v", body)
		}
		if s.auth.passwordSeen.Principal != employee {
			t.Fatalf("expected caller principal, got %#v", s.auth.passwordSeen.Principal)
		}
	})
}

func TestAttendanceHandler_Transitions(t *testing.T) {
	t.Parallel()

	t.Run("records the punch", func(t *testing.T) {
		t.Parallel()

		rec := newTestServer(t).do(http.MethodPost, "/attendance/clock-in", "employee-token", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := decodeBody[recordResponse](t, rec)
		if body.Message != "出勤しました" || body.Record.ClockIn == nil || *body.Record.ClockIn != "2024-01-15T09:00:00.000Z" {
			t.Fatalf("unexpected body %#v", body)
		}
	})

	guards := []struct {
		err     error
		message string
	}{
		{attendance.ErrAlreadyClockedIn, "既に出勤済みです"},
		{attendance.ErrNotClockedIn, "出勤記録がありません"},
		{attendance.ErrAlreadyClockedOut, "既に退勤済みです"},
		{attendance.ErrAlreadyOnBreak, "既に休憩中です"},
		{attendance.ErrBreakNotStarted, "休憩が開始されていません"},
		{attendance.ErrBreakAlreadyEnded, "既に休憩を終了しています"},
	}
	for _, g := range guards {
		g := g
		t.Run(g.message, func(t *testing.T) {
			t.Parallel()

			s := newTestServer(t)
			s.attendance.transitionErr = g.err
			rec := s.do(http.MethodPost, "/attendance/break-start", "employee-token", "")
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if body := decodeBody[errorResponse](t, rec); body.Message != g.message {
				t.Fatalf("expected %q, got %q", g.message, body.Message)
			}
		})
	}

	t.Run("requires a session", func(t *testing.T) {
		t.Parallel()

		if rec := newTestServer(t).do(http.MethodPost, "/attendance/clock-out", "", ""); rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("rejects other methods", func(t *testing.T) {
		t.Parallel()

		rec := newTestServer(t).do(http.MethodGet, "/attendance/clock-in", "employee-token", "")
		if rec.Code != http.StatusMethodNotAllowed || rec.Header().Get("Allow") != http.MethodPost {
			t.Fatalf("expected 405 with Allow header, got %d %q", rec.Code, rec.Header().Get("Allow"))
		}
	})
}

func TestAttendanceHandler_Reads(t *testing.T) {
	t.Parallel()

	t.Run("list forwards query parameters", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		rec := s.do(http.MethodGet, "/attendance?startDate=2024-01-01&endDate=2024-01-31&limit=10&offset=20&userId=user-9", "admin-token", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		want := application.ListAttendanceParams{Principal: admin, UserID: "user-9", StartDate: "2024-01-01", EndDate: "2024-01-31", Limit: 10, Offset: 20}
		if s.attendance.listParams != want {
			t.Fatalf("expected %#v, got %#v", want, s.attendance.listParams)
		}
		if body := decodeBody[listRecordsResponse](t, rec); body.Records == nil {
			t.Fatalf("expected empty records array, got null")
		}
	})

	t.Run("list rejects a non numeric limit", func(t *testing.T) {
		t.Parallel()

		if rec := newTestServer(t).do(http.MethodGet, "/attendance?limit=ten", "employee-token", ""); rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("today exposes the derived state", func(t *testing.T) {
		t.Parallel()

		rec := newTestServer(t).do(http.MethodGet, "/attendance/today", "employee-token", "")
		body := decodeBody[todayResponse](t, rec)
		if body.State != string(attendance.StateNotClockedIn) || body.Record != nil {
			t.Fatalf("unexpected body %#v", body)
		}
	})

	t.Run("summary renders decimals as numbers", func(t *testing.T) {
		t.Parallel()

		rec := newTestServer(t).do(http.MethodGet, "/attendance/summary", "employee-token", "")
		body := decodeBody[summaryResponse](t, rec)
		if body.DaysWorked != 2 || body.WorkHours != 17.5 || body.OvertimeHours != 1.5 {
			t.Fatalf("unexpected summary %#v", body)
		}
	})
}

func TestAttendanceHandler_Export(t *testing.T) {
	t.Parallel()

	in := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	out := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	t.Run("streams a csv attachment", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		s.attendance.records = []application.AttendanceRecord{{
			ID: "rec-1", UserID: "user-1", WorkDate: "2024-01-15", ClockIn: &in, ClockOut: &out,
			WorkHours: 9, OvertimeHours: 1, Status: application.StatusPresent,
			Owner: &application.AttendanceOwner{Name: "山田太郎", EmployeeID: "EMP001"},
		}}

		rec := s.do(http.MethodGet, "/attendance/export?startDate=2024-01-01&endDate=2024-01-31", "employee-token", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
		}
		if got := rec.Header().Get("Content-Type"); got != "text/csv; charset=utf-8" {
			t.Fatalf("unexpected content type %q", got)
		}
		disposition := rec.Header().Get("Content-Disposition")
		if !strings.HasPrefix(disposition, "attachment;") || !strings.Contains(disposition, "filename*=UTF-8''") || !strings.Contains(disposition, "20240101_20240131") {
			t.Fatalf("unexpected disposition %q", disposition)
		}
		body := rec.Body.String()
		if !strings.HasPrefix(body, "\ufeff") || !strings.Contains(body, "09:00") || !strings.Contains(body, "18:00") {
			t.Fatalf("unexpected csv body %q", body)
		}
	})

	t.Run("empty range", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		s.attendance.exportErr = application.ErrNoExportData
		rec := s.do(http.MethodGet, "/attendance/export?startDate=2024-01-01&endDate=2024-01-31", "employee-token", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if body := decodeBody[errorResponse](t, rec); body.Message != msgNoExportData {
			t.Fatalf("unexpected message %q", body.Message)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		t.Parallel()

		if rec := newTestServer(t).do(http.MethodGet, "/attendance/export?format=pdf", "employee-token", ""); rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestUserHandler(t *testing.T) {
	t.Parallel()

	t.Run("create returns 201", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		rec := s.do(http.MethodPost, "/users", "admin-token", `{"email":"new@store.com","name":"佐藤","employeeId":"EMP002","password":"Passw0rdX","department":"販売部","position":"スタッフ","role":"EMPLOYEE"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rec.Code)
		}
		if s.users.created.Input.EmployeeID != "EMP002" || s.users.created.Principal != admin {
			t.Fatalf("unexpected params %#v", s.users.created)
		}
		if body := decodeBody[userResponse](t, rec); body.Message != "ユーザーが正常に作成されました" {
			t.Fatalf("unexpected body %#v", body)
		}
	})

	conflicts := map[string]string{
		"email":      msgEmailTaken,
		"employeeId": msgEmployeeIDTaken,
	}
	for field, message := range conflicts {
		field, message := field, message
		t.Run("conflict on "+field, func(t *testing.T) {
			t.Parallel()

			s := newTestServer(t)
			s.users.createErr = &application.ConflictError{Field: field}
			rec := s.do(http.MethodPost, "/users", "admin-token", `{}`)
			if rec.Code != http.StatusConflict {
				t.Fatalf("expected 409, got %d", rec.Code)
			}
			if body := decodeBody[errorResponse](t, rec); body.Message != message {
				t.Fatalf("expected %q, got %q", message, body.Message)
			}
		})
	}

	t.Run("list is forbidden to employees", func(t *testing.T) {
		t.Parallel()

		if rec := newTestServer(t).do(http.MethodGet, "/users", "employee-token", ""); rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("update reads the id from the path", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		rec := s.do(http.MethodPut, "/users/user-7", "admin-token", `{"role":"MANAGER","isActive":false}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		in := s.users.updated.Input
		if s.users.updated.UserID != "user-7" || in.Role == nil || *in.Role != "MANAGER" || in.IsActive == nil || *in.IsActive || in.Name != nil {
			t.Fatalf("unexpected update %#v", s.users.updated)
		}
	})
}

func TestAdminHandler(t *testing.T) {
	t.Parallel()

	t.Run("cleanup reports the deleted count", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t)
		s.admin.deleted = 3
		rec := s.do(http.MethodPost, "/admin/attendance/cleanup", "admin-token", `{"startDate":"2024-01-01","endDate":"2024-01-31"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if body := decodeBody[cleanupResponse](t, rec); body.DeletedCount != 3 || !body.Success {
			t.Fatalf("unexpected body %#v", body)
		}
	})

	t.Run("cleanup is forbidden to employees", func(t *testing.T) {
		t.Parallel()

		rec := newTestServer(t).do(http.MethodPost, "/admin/attendance/cleanup", "employee-token", `{}`)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("settings", func(t *testing.T) {
		t.Parallel()

		rec := newTestServer(t).do(http.MethodGet, "/settings", "admin-token", "")
		if body := decodeBody[settingsResponse](t, rec); body.Settings.StoreName != "本店" {
			t.Fatalf("unexpected body %#v", body)
		}
	})
}

type failingPing struct{ err error }

func (f failingPing) Ping(ctx context.Context) error { return f.err }

func TestRouter_Health(t *testing.T) {
	t.Parallel()

	ok := NewRouter(RouterConfig{Health: failingPing{}})
	rec := httptest.NewRecorder()
	ok.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	down := NewRouter(RouterConfig{Health: failingPing{err: errors.New("closed")}})
	rec = httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestContentDisposition(t *testing.T) {
	t.Parallel()

	got := contentDisposition("勤怠データ_20240101_20240131.csv")
	want := `attachment; filename="______20240101_20240131.csv"; filename*=UTF-8''%E5%8B%A4%E6%80%A0%E3%83%87%E3%83%BC%E3%82%BF_20240101_20240131.csv`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
