// Package export renders attendance records as CSV or XLSX downloads.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/store-attendance/internal/application"
)

// Format selects the file type of an export.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" or "xlsx" in any case; empty selects CSV.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(FormatCSV):
		return FormatCSV, nil
	case string(FormatXLSX):
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("export: unsupported format %q", value)
}

// ContentType is the media type served for f.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Options controls the optional columns and the zone times are shown in.
type Options struct {
	IncludeBreaks bool
	IncludeNotes  bool
	Location      *time.Location
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

var statusLabels = map[application.AttendanceStatus]string{
	application.StatusPresent:    "出勤",
	application.StatusAbsent:     "欠勤",
	application.StatusLate:       "遅刻",
	application.StatusEarlyLeave: "早退",
	application.StatusHoliday:    "休日",
	application.StatusSickLeave:  "病欠",
}

// StatusLabel returns the display label of status, or the raw value when unknown.
func StatusLabel(status application.AttendanceStatus) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return string(status)
}

type column struct {
	title string
	text  bool
	hours bool
	value func(application.AttendanceRecord, Options) string
}

func columns(opts Options) []column {
	cols := []column{
		{title: "ユーザーID", value: func(r application.AttendanceRecord, _ Options) string { return owner(r).EmployeeID }},
		{title: "ユーザー名", text: true, value: func(r application.AttendanceRecord, _ Options) string { return owner(r).Name }},
		{title: "日付", value: func(r application.AttendanceRecord, _ Options) string { return formatDate(r.WorkDate) }},
		{title: "出勤時刻", value: func(r application.AttendanceRecord, o Options) string { return formatClock(r.ClockIn, o) }},
		{title: "退勤時刻", value: func(r application.AttendanceRecord, o Options) string { return formatClock(r.ClockOut, o) }},
	}
	if opts.IncludeBreaks {
		cols = append(cols,
			column{title: "休憩開始", value: func(r application.AttendanceRecord, o Options) string { return formatClock(r.BreakStart, o) }},
			column{title: "休憩終了", value: func(r application.AttendanceRecord, o Options) string { return formatClock(r.BreakEnd, o) }},
		)
	}
	cols = append(cols,
		column{title: "勤務時間", hours: true, value: func(r application.AttendanceRecord, _ Options) string { return FormatHours(r.WorkHours) }},
		column{title: "残業時間", hours: true, value: func(r application.AttendanceRecord, _ Options) string { return FormatHours(r.OvertimeHours) }},
		column{title: "ステータス", text: true, value: func(r application.AttendanceRecord, _ Options) string { return StatusLabel(r.Status) }},
	)
	if opts.IncludeNotes {
		cols = append(cols, column{title: "備考", text: true, value: func(r application.AttendanceRecord, _ Options) string {
			if r.Note == nil {
				return ""
			}
			return *r.Note
		}})
	}
	return cols
}

func owner(r application.AttendanceRecord) application.AttendanceOwner {
	if r.Owner == nil {
		return application.AttendanceOwner{}
	}
	return *r.Owner
}

// FormatHours renders hours with exactly two decimal places.
func FormatHours(hours float64) string {
	return decimal.NewFromFloat(hours).StringFixed(2)
}

// formatClock renders t as HH:MM in the export location, or "" when unset.
func formatClock(t *time.Time, opts Options) string {
	if t == nil {
		return ""
	}
	return t.In(opts.location()).Format("15:04")
}

// formatDate turns a YYYY-MM-DD day key into YYYY/MM/DD.
func formatDate(workDate string) string {
	return strings.ReplaceAll(workDate, "-", "/")
}

// Filename builds the download name 勤怠データ_<start>_<end>_<timestamp>.<ext>.
func Filename(startDate, endDate string, format Format, now time.Time) string {
	compact := func(day string) string { return strings.ReplaceAll(day, "-", "") }
	return fmt.Sprintf("勤怠データ_%s_%s_%s.%s", compact(startDate), compact(endDate), now.UTC().Format("20060102T150405"), format)
}
