package http

import (
	"context"
	"net/http"
	"strings"
)

// HealthChecker reports whether the storage backend is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	Auth       *AuthHandler
	Users      *UserHandler
	Attendance *AttendanceHandler
	Admin      *AdminHandler
	Health     HealthChecker
	// Session guards every route except login, logout and the health check.
	Session    func(http.Handler) http.Handler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	protected := http.NewServeMux()

	guard := cfg.Session
	if guard == nil {
		guard = func(next http.Handler) http.Handler { return next }
	}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		if cfg.Health != nil {
			if err := cfg.Health.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if cfg.Auth != nil {
		mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.Login(w, r)
		})
		mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.Logout(w, r)
		})
		protected.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Auth.Me(w, r)
		})
		protected.HandleFunc("/auth/password", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.ChangePassword(w, r)
		})
	}

	if cfg.Attendance != nil {
		reads := map[string]http.HandlerFunc{
			"/attendance":         cfg.Attendance.List,
			"/attendance/today":   cfg.Attendance.Today,
			"/attendance/summary": cfg.Attendance.Summary,
			"/attendance/export":  cfg.Attendance.Export,
		}
		for path, handler := range reads {
			protected.HandleFunc(path, getOnly(handler))
		}

		transitions := map[string]http.HandlerFunc{
			"/attendance/clock-in":    cfg.Attendance.ClockIn,
			"/attendance/break-start": cfg.Attendance.StartBreak,
			"/attendance/break-end":   cfg.Attendance.EndBreak,
			"/attendance/clock-out":   cfg.Attendance.ClockOut,
		}
		for path, handler := range transitions {
			protected.HandleFunc(path, postOnly(handler))
		}
	}

	if cfg.Users != nil {
		protected.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Users.List(w, r)
			case http.MethodPost:
				cfg.Users.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		protected.HandleFunc("/users/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/users/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			ctx := ContextWithUserID(r.Context(), id)
			r = r.WithContext(ctx)
			switch r.Method {
			case http.MethodPut, http.MethodPatch:
				cfg.Users.Update(w, r)
			default:
				methodNotAllowed(w, http.MethodPut, http.MethodPatch)
			}
		})
	}

	if cfg.Admin != nil {
		protected.HandleFunc("/admin/attendance/cleanup", postOnly(cfg.Admin.CleanupAttendance))
		protected.HandleFunc("/settings", getOnly(cfg.Admin.Settings))
	}

	mux.Handle("/", guard(protected))

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func getOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		next(w, r)
	}
}

func postOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		next(w, r)
	}
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
