package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/store-attendance/internal/application"
	"github.com/example/store-attendance/internal/logging"
)

const sessionCookieName = "auth-token"

type authService interface {
	Login(ctx context.Context, params application.LoginParams) (application.LoginResult, error)
	Logout(ctx context.Context, token string) error
	Me(ctx context.Context, principal application.Principal) (application.User, error)
	ChangePassword(ctx context.Context, params application.ChangePasswordParams) error
	SessionTTL() time.Duration
}

type AuthHandler struct {
	service      authService
	responder    responder
	logger       *slog.Logger
	secureCookie bool
}

// NewAuthHandler builds the login/logout handler. secureCookie marks the session cookie Secure.
func NewAuthHandler(service authService, secureCookie bool, logger *slog.Logger) *AuthHandler {
	base := logging.OrDefault(logger)
	return &AuthHandler{service: service, responder: newResponder(base), logger: base, secureCookie: secureCookie}
}

func (h *AuthHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return logging.Component(ctx, h.logger, "handler", "AuthHandler", operation, attrs...)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Login", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode login request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Login", "email", strings.TrimSpace(strings.ToLower(req.Email)))

	result, err := h.service.Login(r.Context(), application.LoginParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "login rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.setSessionCookie(w, result.Token)
	logger.With("user_id", result.User.ID).InfoContext(r.Context(), "user logged in")

	h.responder.writeJSON(r.Context(), w, http.StatusOK, loginResponse{
		Success: true,
		User:    toUserDTO(result.User),
		Token:   result.Token,
	})
}

// Logout revokes the presented session when there is one and always clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "Logout")
	if token := extractTokenFromRequest(r); token != "" {
		if err := h.service.Logout(r.Context(), token); err != nil {
			logger.WarnContext(r.Context(), "session revocation failed", "error", err, "error_kind", application.ErrorKind(err))
		}
	}

	h.clearSessionCookie(w)
	logger.InfoContext(r.Context(), "session closed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, messageResponse{Success: true, Message: "ログアウトしました"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	user, err := h.service.Me(r.Context(), principal)
	if err != nil {
		h.log(r.Context(), "Me", "principal_id", principal.UserID).ErrorContext(r.Context(), "profile lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, userResponse{Success: true, User: toUserDTO(user)})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "ChangePassword", "principal_id", principal.UserID)

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.ErrorContext(r.Context(), "failed to decode password request", "error", err, "error_kind", "bad_request")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	err := h.service.ChangePassword(r.Context(), application.ChangePasswordParams{
		Principal:       principal,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "password change failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "password changed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, messageResponse{Success: true, Message: "パスワードを変更しました"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type loginResponse struct {
	Success bool    `json:"success"`
	User    userDTO `json:"user"`
	Token   string  `json:"token"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.service.SessionTTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}
