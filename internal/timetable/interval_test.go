package timetable

import (
	"testing"
	"time"
)

func mustTime(t *testing.T, s string) TimeOfDay {
	t.Helper()
	v, err := ParseTimeOfDay(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return v
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:00", 540, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"9am", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseTimeOfDay(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTimeOfDay(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseTimeOfDay(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTimeOfDayString(t *testing.T) {
	if s := mustTime(t, "09:05").String(); s != "09:05" {
		t.Errorf("String() = %q, want 09:05", s)
	}
}

func TestParseWeekday(t *testing.T) {
	if _, err := ParseWeekday("Monday"); err != nil {
		t.Errorf("Monday should parse: %v", err)
	}
	if _, err := ParseWeekday("monday"); err == nil {
		t.Error("lowercase day should not parse")
	}
	if _, err := ParseWeekday("Funday"); err == nil {
		t.Error("bogus day should not parse")
	}
}

func TestWeekdayOf(t *testing.T) {
	// 2026-03-02 is a Monday.
	d := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	if got := WeekdayOf(d); got != Monday {
		t.Errorf("WeekdayOf = %q, want Monday", got)
	}
}

func TestIntervalValidate(t *testing.T) {
	iv := Interval{Day: Monday, Start: mustTime(t, "09:00"), End: mustTime(t, "10:00")}
	if err := iv.Validate(); err != nil {
		t.Errorf("valid interval rejected: %v", err)
	}

	bad := Interval{Day: Monday, Start: mustTime(t, "10:00"), End: mustTime(t, "10:00")}
	if err := bad.Validate(); err == nil {
		t.Error("zero-length interval accepted")
	}

	rev := Interval{Day: Monday, Start: mustTime(t, "11:00"), End: mustTime(t, "10:00")}
	if err := rev.Validate(); err == nil {
		t.Error("reversed interval accepted")
	}

	noDay := Interval{Day: "Someday", Start: mustTime(t, "09:00"), End: mustTime(t, "10:00")}
	if err := noDay.Validate(); err == nil {
		t.Error("invalid day accepted")
	}
}

func TestIntervalOverlaps(t *testing.T) {
	mk := func(day Weekday, start, end string) Interval {
		return Interval{Day: day, Start: mustTime(t, start), End: mustTime(t, end)}
	}
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"identical", mk(Monday, "09:00", "10:00"), mk(Monday, "09:00", "10:00"), true},
		{"contained", mk(Monday, "09:00", "12:00"), mk(Monday, "10:00", "11:00"), true},
		{"partial overlap", mk(Monday, "09:00", "10:00"), mk(Monday, "09:30", "10:30"), true},
		{"back to back", mk(Monday, "09:00", "10:00"), mk(Monday, "10:00", "11:00"), false},
		{"back to back reversed", mk(Monday, "10:00", "11:00"), mk(Monday, "09:00", "10:00"), false},
		{"disjoint", mk(Monday, "09:00", "10:00"), mk(Monday, "14:00", "15:00"), false},
		{"different days", mk(Monday, "09:00", "10:00"), mk(Tuesday, "09:00", "10:00"), false},
		{"one minute overlap", mk(Monday, "09:00", "10:01"), mk(Monday, "10:00", "11:00"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("Overlaps = %v, want %v", got, tt.want)
			}
			// Overlap is symmetric.
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Errorf("reverse Overlaps = %v, want %v", got, tt.want)
			}
		})
	}
}
