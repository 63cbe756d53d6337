package service

import (
	"fmt"
	"time"

	"zala/internal/database"
)

// Validator holds the immutable working-hours policy and checks candidate
// intervals against it. It is pure: no storage access, no clock, same
// answer for the same inputs.
type Validator struct {
	loc       *time.Location
	workdays  map[time.Weekday]bool
	workStart int // minutes since midnight
	workEnd   int
}

// NewValidator builds a validator from the configured policy. workStart
// and workEnd are wall-clock bounds in "15:04" form; workdays lists the
// allowed weekdays.
func NewValidator(loc *time.Location, workdays []time.Weekday, workStart, workEnd string) (*Validator, error) {
	if loc == nil {
		loc = time.Local
	}

	startMin, err := parseWallClock(workStart)
	if err != nil {
		return nil, fmt.Errorf("work_start: %w", err)
	}
	endMin, err := parseWallClock(workEnd)
	if err != nil {
		return nil, fmt.Errorf("work_end: %w", err)
	}
	if endMin <= startMin {
		return nil, fmt.Errorf("work_end %s must be after work_start %s", workEnd, workStart)
	}

	days := make(map[time.Weekday]bool, len(workdays))
	for _, d := range workdays {
		days[d] = true
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("workdays must not be empty")
	}

	return &Validator{
		loc:       loc,
		workdays:  days,
		workStart: startMin,
		workEnd:   endMin,
	}, nil
}

func parseWallClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid wall clock %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Location returns the time zone bookings are localized to.
func (v *Validator) Location() *time.Location {
	return v.loc
}

// ValidateInterval checks the shape and working-hours policy of a
// candidate interval. Overlap against other bookings is not its concern.
func (v *Validator) ValidateInterval(start, end time.Time) error {
	if !end.After(start) {
		return database.ErrInvalidRange
	}

	localStart := start.In(v.loc)
	localEnd := end.In(v.loc)

	sy, sm, sd := localStart.Date()
	ey, em, ed := localEnd.Date()
	if sy != ey || sm != em || sd != ed {
		return database.ErrCrossesDayBoundary
	}

	if !v.workdays[localStart.Weekday()] {
		return database.ErrOutsideWorkday
	}

	startMin := localStart.Hour()*60 + localStart.Minute()
	endMin := localEnd.Hour()*60 + localEnd.Minute()
	// Boundary equality is allowed: starting at work_start or ending
	// exactly at work_end is a valid booking.
	if startMin < v.workStart || endMin > v.workEnd {
		return database.ErrOutsideWorkHours
	}
	// Sub-minute precision would sneak past the minute comparison right
	// at the work_end boundary.
	if endMin == v.workEnd && (localEnd.Second() > 0 || localEnd.Nanosecond() > 0) {
		return database.ErrOutsideWorkHours
	}

	return nil
}
