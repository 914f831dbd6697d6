package attendance

import "time"

// OvertimeThreshold is the number of worked hours per day after which time counts as overtime.
const OvertimeThreshold = 8.0

// Hours captures the derived totals of a closed day.
type Hours struct {
	Work     float64
	Overtime float64
}

// CalculateHours derives worked and overtime hours from the day's punches.
//
// The break is subtracted only when both ends are present. A break whose end
// precedes its start counts as zero, and the total never drops below zero.
func CalculateHours(clockIn, clockOut time.Time, breakStart, breakEnd *time.Time) Hours {
	worked := clockOut.Sub(clockIn)

	if breakStart != nil && breakEnd != nil {
		if pause := breakEnd.Sub(*breakStart); pause > 0 {
			worked -= pause
		}
	}

	work := worked.Hours()
	if work < 0 {
		work = 0
	}
	overtime := work - OvertimeThreshold
	if overtime < 0 {
		overtime = 0
	}
	return Hours{Work: work, Overtime: overtime}
}
