package timetable

import (
	"fmt"
	"time"
)

// Entry is one scheduled class occurrence within an academic year.
type Entry struct {
	ID             string    `json:"id"`
	AcademicYearID string    `json:"academic_year_id"`
	CourseID       string    `json:"course_id"`
	ClassroomID    string    `json:"classroom_id"`
	Interval       Interval  `json:"interval"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ScheduledEntry is an entry with the joined course/classroom context the
// conflict detector needs: the assigned teacher (nil when the course has
// none) and the classroom name for conflict messages.
type ScheduledEntry struct {
	Entry
	TeacherID     *string `json:"teacher_id,omitempty"`
	ClassroomName string  `json:"classroom_name"`
}

// Candidate is a timetable entry submitted for scheduling. ExcludeEntryID
// is set on edits so an entry does not conflict with itself.
type Candidate struct {
	AcademicYearID string
	CourseID       string
	ClassroomID    string
	Interval       Interval
	ExcludeEntryID string
}

// ConflictKind discriminates which scheduling dimension collided.
type ConflictKind string

const (
	ConflictNone      ConflictKind = "none"
	ConflictClassroom ConflictKind = "classroom"
	ConflictTeacher   ConflictKind = "teacher"
	ConflictBoth      ConflictKind = "both"
)

// ConflictResult is the outcome of checking a candidate against the registry.
type ConflictResult struct {
	HasConflict   bool         `json:"has_conflict"`
	Kind          ConflictKind `json:"kind"`
	ClassroomName string       `json:"classroom_name,omitempty"`
}

// ConflictError rejects a scheduling attempt. No partial commit happens.
type ConflictError struct {
	Result ConflictResult
}

func (e *ConflictError) Error() string {
	switch e.Result.Kind {
	case ConflictClassroom:
		return fmt.Sprintf("classroom %s is already booked in this time slot", e.Result.ClassroomName)
	case ConflictTeacher:
		return "the assigned teacher already has a class in this time slot"
	case ConflictBoth:
		return fmt.Sprintf("classroom %s is already booked and the teacher already has a class in this time slot", e.Result.ClassroomName)
	}
	return "scheduling conflict"
}

// Filter is the explicit query surface over the registry. Each set field
// maps to one predicate; unset fields are ignored.
type Filter struct {
	AcademicYearID string
	Day            Weekday
	ClassroomID    string
	TeacherID      string
	Limit          int
	Offset         int
}
