package timetable

import (
	"errors"
	"fmt"
	"time"
)

// Weekday names a day of the week as stored in timetable rows.
type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
)

var weekdays = map[Weekday]bool{
	Monday: true, Tuesday: true, Wednesday: true, Thursday: true,
	Friday: true, Saturday: true, Sunday: true,
}

// ParseWeekday validates a day name.
func ParseWeekday(s string) (Weekday, error) {
	d := Weekday(s)
	if !weekdays[d] {
		return "", fmt.Errorf("invalid weekday %q", s)
	}
	return d, nil
}

// WeekdayOf maps a calendar date to its Weekday name.
func WeekdayOf(t time.Time) Weekday {
	return Weekday(t.Weekday().String())
}

// TimeOfDay is a clock time expressed as minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay parses "15:04" clock strings.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// MinutesOf converts a timestamp to its time-of-day component.
func MinutesOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Interval is a time-of-day window on a given weekday.
type Interval struct {
	Day   Weekday   `json:"day"`
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// ErrInvalidInterval is returned when start is not strictly before end.
var ErrInvalidInterval = errors.New("interval start must be before end")

// Validate checks the start-before-end invariant and the day name.
func (iv Interval) Validate() error {
	if !weekdays[iv.Day] {
		return fmt.Errorf("invalid weekday %q", iv.Day)
	}
	if iv.Start >= iv.End {
		return ErrInvalidInterval
	}
	return nil
}

// Overlaps reports whether two intervals collide. Intervals are half-open,
// so back-to-back slots (10:00-11:00 and 11:00-12:00) do not overlap.
func (iv Interval) Overlaps(other Interval) bool {
	if iv.Day != other.Day {
		return false
	}
	return iv.Start < other.End && iv.End > other.Start
}
