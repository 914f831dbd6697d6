package http

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/store-attendance/internal/application"
	"github.com/example/store-attendance/internal/export"
	"github.com/example/store-attendance/internal/logging"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

type attendanceService interface {
	ClockIn(ctx context.Context, principal application.Principal) (application.AttendanceRecord, error)
	StartBreak(ctx context.Context, principal application.Principal) (application.AttendanceRecord, error)
	EndBreak(ctx context.Context, principal application.Principal) (application.AttendanceRecord, error)
	ClockOut(ctx context.Context, principal application.Principal) (application.AttendanceRecord, error)
	Today(ctx context.Context, principal application.Principal) (application.TodayAttendance, error)
	ListRecords(ctx context.Context, params application.ListAttendanceParams) ([]application.AttendanceRecord, error)
	Summary(ctx context.Context, principal application.Principal, startDate, endDate string) (application.AttendanceSummary, error)
	ExportRecords(ctx context.Context, params application.ExportAttendanceParams) ([]application.AttendanceRecord, error)
	Location() *time.Location
}

type AttendanceHandler struct {
	service   attendanceService
	responder responder
	logger    *slog.Logger
	now       func() time.Time
}

func NewAttendanceHandler(service attendanceService, now func() time.Time, logger *slog.Logger) *AttendanceHandler {
	base := logging.OrDefault(logger)
	if now == nil {
		now = time.Now
	}
	return &AttendanceHandler{service: service, responder: newResponder(base), logger: base, now: now}
}

func (h *AttendanceHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return logging.Component(ctx, h.logger, "handler", "AttendanceHandler", operation, attrs...)
}

type transitionFunc func(ctx context.Context, principal application.Principal) (application.AttendanceRecord, error)

var transitionSuccessMessages = map[string]string{
	"ClockIn":    "出勤しました",
	"StartBreak": "休憩を開始しました",
	"EndBreak":   "休憩を終了しました",
	"ClockOut":   "退勤しました",
}

func (h *AttendanceHandler) ClockIn(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "ClockIn", h.service.ClockIn)
}

func (h *AttendanceHandler) StartBreak(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "StartBreak", h.service.StartBreak)
}

func (h *AttendanceHandler) EndBreak(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "EndBreak", h.service.EndBreak)
}

func (h *AttendanceHandler) ClockOut(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "ClockOut", h.service.ClockOut)
}

func (h *AttendanceHandler) transition(w http.ResponseWriter, r *http.Request, operation string, step transitionFunc) {
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), operation, "principal_id", principal.UserID)

	record, err := step(r.Context(), principal)
	if err != nil {
		logger.WarnContext(r.Context(), "attendance transition rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("record_id", record.ID, "work_date", record.WorkDate).InfoContext(r.Context(), "attendance recorded")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, recordResponse{
		Success: true,
		Message: transitionSuccessMessages[operation],
		Record:  toRecordDTO(record),
	})
}

func (h *AttendanceHandler) Today(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	today, err := h.service.Today(r.Context(), principal)
	if err != nil {
		h.log(r.Context(), "Today", "principal_id", principal.UserID).ErrorContext(r.Context(), "today lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := todayResponse{Success: true, WorkDate: today.WorkDate, State: string(today.State)}
	if today.Record != nil {
		dto := toRecordDTO(*today.Record)
		resp.Record = &dto
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)
	query := r.URL.Query()

	limit, err := optionalInt(query, "limit")
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidQuery)
		return
	}
	offset, err := optionalInt(query, "offset")
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidQuery)
		return
	}

	records, err := h.service.ListRecords(r.Context(), application.ListAttendanceParams{
		Principal: principal,
		UserID:    strings.TrimSpace(query.Get("userId")),
		StartDate: strings.TrimSpace(query.Get("startDate")),
		EndDate:   strings.TrimSpace(query.Get("endDate")),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "attendance list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(records)).InfoContext(r.Context(), "attendance listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRecordsResponse{Success: true, Records: toRecordDTOs(records)})
}

func (h *AttendanceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	summary, err := h.service.Summary(r.Context(), principal, strings.TrimSpace(query.Get("startDate")), strings.TrimSpace(query.Get("endDate")))
	if err != nil {
		h.log(r.Context(), "Summary", "principal_id", principal.UserID).ErrorContext(r.Context(), "attendance summary failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, summaryResponse{
		Success:       true,
		StartDate:     summary.StartDate,
		EndDate:       summary.EndDate,
		DaysWorked:    summary.DaysWorked,
		WorkHours:     summary.WorkHours.InexactFloat64(),
		OvertimeHours: summary.OvertimeHours.InexactFloat64(),
	})
}

// Export streams the selected range as a CSV or XLSX attachment.
func (h *AttendanceHandler) Export(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()
	logger := h.log(r.Context(), "Export", "principal_id", principal.UserID)

	format, err := export.ParseFormat(query.Get("format"))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidQuery)
		return
	}

	params := application.ExportAttendanceParams{
		Principal: principal,
		UserID:    strings.TrimSpace(query.Get("userId")),
		StartDate: strings.TrimSpace(query.Get("startDate")),
		EndDate:   strings.TrimSpace(query.Get("endDate")),
	}
	records, err := h.service.ExportRecords(r.Context(), params)
	if err != nil {
		logger.WarnContext(r.Context(), "attendance export failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	opts := export.Options{
		IncludeBreaks: queryFlag(query, "includeBreaks"),
		IncludeNotes:  queryFlag(query, "includeNotes"),
		Location:      h.service.Location(),
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, records, opts); err != nil {
		logger.ErrorContext(r.Context(), "failed to render export", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	filename := export.Filename(params.StartDate, params.EndDate, format, h.now())
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", contentDisposition(filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logger.ErrorContext(r.Context(), "failed to write export", "error", err)
		return
	}
	logger.With("result_count", len(records), "format", string(format)).InfoContext(r.Context(), "attendance exported")
}

// contentDisposition carries an ASCII fallback plus the UTF-8 name in RFC 5987 form.
func contentDisposition(filename string) string {
	fallback := strings.Map(func(r rune) rune {
		if r > 0x7e || r < 0x20 || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, filename)
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, fallback, url.PathEscape(filename))
}

func optionalInt(query url.Values, key string) (int, error) {
	raw := strings.TrimSpace(query.Get(key))
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func queryFlag(query url.Values, key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(query.Get(key)))
	return err == nil && v
}

type recordDTO struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	Date          string    `json:"date"`
	ClockIn       *string   `json:"clockIn"`
	ClockOut      *string   `json:"clockOut"`
	BreakStart    *string   `json:"breakStart"`
	BreakEnd      *string   `json:"breakEnd"`
	WorkHours     float64   `json:"workHours"`
	OvertimeHours float64   `json:"overtimeHours"`
	Status        string    `json:"status"`
	Note          *string   `json:"note"`
	ApprovedBy    *string   `json:"approvedBy"`
	ApprovedAt    *string   `json:"approvedAt"`
	CreatedAt     string    `json:"createdAt"`
	UpdatedAt     string    `json:"updatedAt"`
	User          *ownerDTO `json:"user,omitempty"`
}

type ownerDTO struct {
	Name       string `json:"name"`
	EmployeeID string `json:"employeeId"`
	Department string `json:"department"`
}

type recordResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Record  recordDTO `json:"record"`
}

type todayResponse struct {
	Success  bool       `json:"success"`
	WorkDate string     `json:"workDate"`
	State    string     `json:"state"`
	Record   *recordDTO `json:"record"`
}

type listRecordsResponse struct {
	Success bool        `json:"success"`
	Records []recordDTO `json:"records"`
}

type summaryResponse struct {
	Success       bool    `json:"success"`
	StartDate     string  `json:"startDate"`
	EndDate       string  `json:"endDate"`
	DaysWorked    int     `json:"daysWorked"`
	WorkHours     float64 `json:"workHours"`
	OvertimeHours float64 `json:"overtimeHours"`
}

func toRecordDTO(record application.AttendanceRecord) recordDTO {
	dto := recordDTO{
		ID:            record.ID,
		UserID:        record.UserID,
		Date:          record.WorkDate,
		ClockIn:       formatOptionalTimestamp(record.ClockIn),
		ClockOut:      formatOptionalTimestamp(record.ClockOut),
		BreakStart:    formatOptionalTimestamp(record.BreakStart),
		BreakEnd:      formatOptionalTimestamp(record.BreakEnd),
		WorkHours:     record.WorkHours,
		OvertimeHours: record.OvertimeHours,
		Status:        string(record.Status),
		Note:          record.Note,
		ApprovedBy:    record.ApprovedBy,
		ApprovedAt:    formatOptionalTimestamp(record.ApprovedAt),
		CreatedAt:     formatTimestamp(record.CreatedAt),
		UpdatedAt:     formatTimestamp(record.UpdatedAt),
	}
	if record.Owner != nil {
		dto.User = &ownerDTO{
			Name:       record.Owner.Name,
			EmployeeID: record.Owner.EmployeeID,
			Department: record.Owner.Department,
		}
	}
	return dto
}

func toRecordDTOs(records []application.AttendanceRecord) []recordDTO {
	out := make([]recordDTO, 0, len(records))
	for _, record := range records {
		out = append(out, toRecordDTO(record))
	}
	return out
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

func formatOptionalTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTimestamp(*t)
	return &s
}
