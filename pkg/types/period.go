package types

import (
	"errors"
	"time"
)

// Period is an inclusive settlement window in UTC.
type Period struct {
	Start time.Time
	End   time.Time
}

// NewPeriod builds a window covering every instant of the calendar days from start
// through end, both taken in UTC.
func NewPeriod(start, end time.Time) (Period, error) {
	if start.IsZero() || end.IsZero() {
		return Period{}, errors.New("start and end dates are required")
	}
	p := Period{
		Start: startOfDay(start),
		End:   startOfDay(end).Add(24*time.Hour - time.Nanosecond),
	}
	if p.End.Before(p.Start) {
		return Period{}, errors.New("start date must not be after end date")
	}
	return p, nil
}

// Contains reports whether t falls inside the window, bounds included.
func (p Period) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(p.Start) && !t.After(p.End)
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
