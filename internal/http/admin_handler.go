package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/example/store-attendance/internal/application"
	"github.com/example/store-attendance/internal/logging"
)

type cleanupService interface {
	Cleanup(ctx context.Context, params application.CleanupParams) (int64, error)
}

type settingsService interface {
	GetSettings(ctx context.Context, principal application.Principal) (application.StoreSettings, error)
}

// AdminHandler serves the administrative cleanup and the store settings.
type AdminHandler struct {
	cleanup   cleanupService
	settings  settingsService
	responder responder
	logger    *slog.Logger
}

func NewAdminHandler(cleanup cleanupService, settings settingsService, logger *slog.Logger) *AdminHandler {
	base := logging.OrDefault(logger)
	return &AdminHandler{cleanup: cleanup, settings: settings, responder: newResponder(base), logger: base}
}

func (h *AdminHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return logging.Component(ctx, h.logger, "handler", "AdminHandler", operation, attrs...)
}

func (h *AdminHandler) CleanupAttendance(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.cleanup == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req cleanupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "CleanupAttendance", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode cleanup request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "CleanupAttendance", "principal_id", principal.UserID, "start_date", req.StartDate, "end_date", req.EndDate)

	deleted, err := h.cleanup.Cleanup(r.Context(), application.CleanupParams{
		Principal: principal,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "attendance cleanup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("deleted_count", deleted).InfoContext(r.Context(), "attendance records deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, cleanupResponse{
		Success:      true,
		Message:      "古いテストレコードを削除しました",
		DeletedCount: deleted,
	})
}

func (h *AdminHandler) Settings(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.settings == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	settings, err := h.settings.GetSettings(r.Context(), principal)
	if err != nil {
		h.log(r.Context(), "Settings", "principal_id", principal.UserID).ErrorContext(r.Context(), "settings lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, settingsResponse{
		Success: true,
		Settings: settingsDTO{
			StoreName:            settings.StoreName,
			WorkStartTime:        settings.WorkStartTime,
			WorkEndTime:          settings.WorkEndTime,
			BreakDurationMinutes: settings.BreakDurationMinutes,
			OvertimeThreshold:    settings.OvertimeThreshold,
			Timezone:             settings.Timezone,
			UpdatedAt:            formatTimestamp(settings.UpdatedAt),
		},
	})
}

type cleanupRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type cleanupResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	DeletedCount int64  `json:"deletedCount"`
}

type settingsDTO struct {
	StoreName            string  `json:"storeName"`
	WorkStartTime        string  `json:"workStartTime"`
	WorkEndTime          string  `json:"workEndTime"`
	BreakDurationMinutes int     `json:"breakDurationMinutes"`
	OvertimeThreshold    float64 `json:"overtimeThreshold"`
	Timezone             string  `json:"timezone"`
	UpdatedAt            string  `json:"updatedAt"`
}

type settingsResponse struct {
	Success  bool        `json:"success"`
	Settings settingsDTO `json:"settings"`
}
