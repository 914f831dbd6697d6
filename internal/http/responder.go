package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/store-attendance/internal/application"
	"github.com/example/store-attendance/internal/attendance"
)

var (
	errBadRequestBody = errors.New("無効なリクエスト形式です。")
	errInvalidUserID  = errors.New("無効なユーザー ID です。")
	errInvalidQuery   = errors.New("クエリパラメータの値が正しくありません。")
)

const (
	msgInvalidCredentials = "メールアドレスまたはパスワードが正しくありません"
	msgAccountDisabled    = "このアカウントは無効になっています"
	msgSessionInvalid     = "セッションが無効です。再度ログインしてください。"
	msgForbidden          = "この操作を実行する権限がありません。"
	msgNotFound           = "指定されたリソースが見つかりません。"
	msgNoExportData       = "指定された期間にデータがありません。"
	msgEmailTaken         = "このメールアドレスは既に使用されています"
	msgEmployeeIDTaken    = "この従業員IDは既に使用されています"
	msgInternal           = "サーバー内部でエラーが発生しました。"
)

var transitionMessages = []struct {
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

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError maps application errors to a status and a user-facing message.
// Unexpected errors are logged and answered with a generic 500.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New(msgInternal))
		return
	}

	for _, tm := range transitionMessages {
		if errors.Is(err, tm.err) {
			r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{ErrorCode: "ATTENDANCE_STATE_CONFLICT", Message: tm.message})
			return
		}
	}

	var (
		vErr     *application.ValidationError
		conflict *application.ConflictError
	)
	switch {
	case errors.As(err, &vErr):
		message := vErr.Message
		if message == "" {
			message = localizedStatusMessage(http.StatusBadRequest)
		}
		r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{Message: message, Errors: vErr.FieldErrors})
	case errors.As(err, &conflict):
		message := localizedStatusMessage(http.StatusConflict)
		switch conflict.Field {
		case "email":
			message = msgEmailTaken
		case "employeeId":
			message = msgEmployeeIDTaken
		}
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{ErrorCode: "RESOURCE_CONFLICT", Message: message})
	case errors.Is(err, application.ErrInvalidCredentials):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{ErrorCode: "AUTH_INVALID_CREDENTIALS", Message: msgInvalidCredentials})
	case errors.Is(err, application.ErrAccountDisabled):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{ErrorCode: "AUTH_ACCOUNT_DISABLED", Message: msgAccountDisabled})
	case errors.Is(err, application.ErrUnauthorized),
		errors.Is(err, application.ErrSessionExpired),
		errors.Is(err, application.ErrSessionRevoked):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{ErrorCode: "AUTH_SESSION_INVALID", Message: msgSessionInvalid})
	case errors.Is(err, application.ErrForbidden):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{ErrorCode: "AUTH_FORBIDDEN", Message: msgForbidden})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: msgNotFound})
	case errors.Is(err, application.ErrNoExportData):
		r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{Message: msgNoExportData})
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err, "error_kind", application.ErrorKind(err))
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: msgInternal})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "リクエスト内容が正しくありません。"
	case http.StatusUnauthorized:
		return "認証が必要です。"
	case http.StatusForbidden:
		return msgForbidden
	case http.StatusNotFound:
		return msgNotFound
	case http.StatusConflict:
		return "要求はリソースの現在の状態と競合しています。"
	default:
		return msgInternal
	}
}

type errorResponse struct {
	Success   bool              `json:"success"`
	ErrorCode string            `json:"errorCode,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
