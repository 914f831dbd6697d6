package attendance

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the storage and wire format of a business day key.
const DateLayout = "2006-01-02"

// ParseZoneOffset parses a fixed offset such as "+09:00", "-0530" or "Z" into a location.
func ParseZoneOffset(value string) (*time.Location, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || trimmed == "Z" || strings.EqualFold(trimmed, "UTC") {
		return time.UTC, nil
	}

	sign := 1
	switch trimmed[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return nil, fmt.Errorf("attendance: invalid zone offset %q", value)
	}

	digits := strings.ReplaceAll(trimmed[1:], ":", "")
	if len(digits) != 2 && len(digits) != 4 {
		return nil, fmt.Errorf("attendance: invalid zone offset %q", value)
	}
	hours, err := strconv.Atoi(digits[:2])
	if err != nil || hours > 14 {
		return nil, fmt.Errorf("attendance: invalid zone offset %q", value)
	}
	minutes := 0
	if len(digits) == 4 {
		minutes, err = strconv.Atoi(digits[2:])
		if err != nil || minutes > 59 {
			return nil, fmt.Errorf("attendance: invalid zone offset %q", value)
		}
	}

	seconds := sign * (hours*3600 + minutes*60)
	return time.FixedZone(formatOffset(seconds), seconds), nil
}

func formatOffset(seconds int) string {
	sign := '+'
	if seconds < 0 {
		sign = '-'
		seconds = -seconds
	}
	return fmt.Sprintf("UTC%c%02d:%02d", sign, seconds/3600, (seconds%3600)/60)
}

// BusinessDay returns the day key of t in loc. Every record key is computed through here.
func BusinessDay(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateLayout)
}

// ParseBusinessDay validates a YYYY-MM-DD day key and returns its canonical form.
func ParseBusinessDay(value string) (string, error) {
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return "", fmt.Errorf("attendance: invalid date %q: %w", value, err)
	}
	return parsed.Format(DateLayout), nil
}
