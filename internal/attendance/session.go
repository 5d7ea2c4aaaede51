package attendance

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of an attendance session.
type Status string

const (
	// StatusPending is an open session: checked in, not yet checked out.
	StatusPending Status = "pending"
	// StatusPresent marks a resolved on-time, in-range occurrence.
	StatusPresent Status = "present"
	// StatusAbsent marks a scheduled occurrence with no check-in at all.
	StatusAbsent Status = "absent"
	// StatusCompleted marks a session with consistent check-in and
	// check-out evidence, both within range.
	StatusCompleted Status = "completed"
	// StatusIncomplete marks a session whose evidence is missing or
	// out of range (no geofence, off-site scan, never checked out).
	StatusIncomplete Status = "incomplete"
)

// DateLayout is the civil-date format sessions are keyed by.
const DateLayout = "2006-01-02"

// ParseDate validates a session date string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

// Session is one teacher's attendance record for one scheduled class
// occurrence on one date. The (teacher, course, classroom, timetable,
// date) tuple is unique in the ledger.
type Session struct {
	ID          string `json:"id"`
	TeacherID   string `json:"teacher_id"`
	CourseID    string `json:"course_id"`
	ClassroomID string `json:"classroom_id"`
	TimetableID string `json:"timetable_id"`
	Date        string `json:"date"`

	CheckInTime        *time.Time `json:"check_in_time,omitempty"`
	CheckInLat         *float64   `json:"check_in_lat,omitempty"`
	CheckInLng         *float64   `json:"check_in_lng,omitempty"`
	CheckInDistance    *float64   `json:"check_in_distance,omitempty"`
	CheckInWithinRange bool       `json:"check_in_within_range"`

	CheckOutTime        *time.Time `json:"check_out_time,omitempty"`
	CheckOutLat         *float64   `json:"check_out_lat,omitempty"`
	CheckOutLng         *float64   `json:"check_out_lng,omitempty"`
	CheckOutDistance    *float64   `json:"check_out_distance,omitempty"`
	CheckOutWithinRange bool       `json:"check_out_within_range"`

	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Open reports whether the session has a check-in but no check-out yet.
// Absent rows written by the sweeper have neither and are never open.
func (s *Session) Open() bool {
	return s.CheckInTime != nil && s.CheckOutTime == nil
}

// ResolveStatus derives the terminal status from recorded evidence.
// Client-supplied statuses are never trusted; this is the only authority.
// A session completes only when both geofence evaluations exist and both
// are within range; anything weaker resolves incomplete.
func ResolveStatus(s *Session) Status {
	if s.CheckInTime == nil || s.CheckOutTime == nil {
		return StatusIncomplete
	}
	if s.CheckInDistance == nil || s.CheckOutDistance == nil {
		// Geofence was unavailable on at least one side.
		return StatusIncomplete
	}
	if s.CheckInWithinRange && s.CheckOutWithinRange {
		return StatusCompleted
	}
	return StatusIncomplete
}

// Filter is the explicit query surface over the ledger. Each set field
// maps to one predicate; unset fields are ignored.
type Filter struct {
	TeacherID   string
	TimetableID string
	Date        string
	Status      Status
	Limit       int
	Offset      int
}
