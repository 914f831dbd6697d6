// Package attendance implements the daily clock-in/break/clock-out state machine
// and the work-hour arithmetic applied when a day is closed.
//
// The functions in this package are pure: they receive the punches recorded so far
// for a single business day plus the current instant, and return the updated
// punches or one of the sentinel errors below. Persistence and authorization live
// in the application layer.
package attendance

import (
	"errors"
	"time"
)

var (
	// ErrAlreadyClockedIn is returned when clock-in is attempted after a clock-in for the same day.
	ErrAlreadyClockedIn = errors.New("attendance: already clocked in")
	// ErrNotClockedIn is returned when an operation requires a prior clock-in.
	ErrNotClockedIn = errors.New("attendance: not clocked in")
	// ErrAlreadyClockedOut is returned once the day has been closed.
	ErrAlreadyClockedOut = errors.New("attendance: already clocked out")
	// ErrAlreadyOnBreak is returned when break-start is attempted after a break was started.
	ErrAlreadyOnBreak = errors.New("attendance: already on break")
	// ErrBreakNotStarted is returned when break-end is attempted without a break-start.
	ErrBreakNotStarted = errors.New("attendance: break not started")
	// ErrBreakAlreadyEnded is returned when break-end is attempted twice.
	ErrBreakAlreadyEnded = errors.New("attendance: already ended break")
)

// State is the derived position of a day in the attendance lifecycle.
type State string

const (
	StateNotClockedIn State = "not_clocked_in"
	StateClockedIn    State = "clocked_in"
	StateOnBreak      State = "on_break"
	StateClockedOut   State = "clocked_out"
)

// Punches holds the four optional event instants of one business day.
type Punches struct {
	ClockIn    *time.Time
	ClockOut   *time.Time
	BreakStart *time.Time
	BreakEnd   *time.Time
}

// State derives the lifecycle state from the recorded punches.
func (p Punches) State() State {
	switch {
	case p.ClockIn == nil:
		return StateNotClockedIn
	case p.ClockOut != nil:
		return StateClockedOut
	case p.BreakStart != nil && p.BreakEnd == nil:
		return StateOnBreak
	default:
		return StateClockedIn
	}
}

// IsTransitionError reports whether err is one of the guard violations of this package.
func IsTransitionError(err error) bool {
	for _, target := range []error{
		ErrAlreadyClockedIn,
		ErrNotClockedIn,
		ErrAlreadyClockedOut,
		ErrAlreadyOnBreak,
		ErrBreakNotStarted,
		ErrBreakAlreadyEnded,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ClockIn opens the day.
func ClockIn(p Punches, now time.Time) (Punches, error) {
	if p.ClockIn != nil {
		return p, ErrAlreadyClockedIn
	}
	p.ClockIn = stamp(now)
	return p, nil
}

// StartBreak records the start of the day's break.
func StartBreak(p Punches, now time.Time) (Punches, error) {
	if err := requireOpenDay(p); err != nil {
		return p, err
	}
	if p.BreakStart != nil {
		return p, ErrAlreadyOnBreak
	}
	p.BreakStart = stamp(now)
	return p, nil
}

// EndBreak records the end of the day's break.
func EndBreak(p Punches, now time.Time) (Punches, error) {
	if err := requireOpenDay(p); err != nil {
		return p, err
	}
	if p.BreakStart == nil {
		return p, ErrBreakNotStarted
	}
	if p.BreakEnd != nil {
		return p, ErrBreakAlreadyEnded
	}
	p.BreakEnd = stamp(now)
	return p, nil
}

// ClockOut closes the day and returns the hours worked.
func ClockOut(p Punches, now time.Time) (Punches, Hours, error) {
	if err := requireOpenDay(p); err != nil {
		return p, Hours{}, err
	}
	p.ClockOut = stamp(now)
	return p, CalculateHours(*p.ClockIn, *p.ClockOut, p.BreakStart, p.BreakEnd), nil
}

func requireOpenDay(p Punches) error {
	if p.ClockIn == nil {
		return ErrNotClockedIn
	}
	if p.ClockOut != nil {
		return ErrAlreadyClockedOut
	}
	return nil
}

func stamp(t time.Time) *time.Time {
	value := t
	return &value
}
