package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/HalimKing/Teacher-to-class-ms-sub001/internal/directory"
	"github.com/HalimKing/Teacher-to-class-ms-sub001/internal/geo"
	"github.com/HalimKing/Teacher-to-class-ms-sub001/internal/timetable"
)

// Validation failures: the request itself is malformed or inconsistent.
var (
	ErrTimetableNotFound = errors.New("timetable entry not found")
	ErrCourseMismatch    = errors.New("course does not match timetable")
	ErrUnknownClassroom  = errors.New("classroom not found")
)

// Timing failures: recoverable by retrying later.
var (
	ErrClassNotStarted = errors.New("class has not started yet")
	ErrClassNotEnded   = errors.New("class is still ongoing")
)

// State failures: the operation is invalid for the current session state.
// Not-found, not-yours and wrong-state are distinct on purpose.
var (
	ErrSessionNotFound   = errors.New("attendance session not found")
	ErrNotSessionOwner   = errors.New("session belongs to another teacher")
	ErrAlreadyCheckedOut = errors.New("already checked out of this session")
	ErrActiveSession     = errors.New("already have an active check-in; check out first")
	ErrDuplicateSession  = errors.New("attendance already recorded for this class occurrence")
)

// Ledger persists sessions and enforces the two write-time invariants:
// tuple uniqueness, and at most one open session per teacher per day.
type Ledger interface {
	// CreateSession inserts atomically with respect to concurrent
	// check-ins from the same teacher, returning ErrActiveSession or
	// ErrDuplicateSession when an invariant would break.
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	// OpenSession returns the teacher's open session for a date, or nil.
	OpenSession(ctx context.Context, teacherID, date string) (*Session, error)
	// CompleteSession writes the check-out fields and final status.
	CompleteSession(ctx context.Context, s *Session) error
	List(ctx context.Context, f Filter) ([]Session, error)
}

// Schedule resolves the timetable entry being attended.
type Schedule interface {
	GetByID(ctx context.Context, id string) (*timetable.Entry, error)
}

// Directory resolves classrooms for geofence evaluation.
type Directory interface {
	GetClassroom(ctx context.Context, id string) (*directory.Classroom, error)
}

// Service drives sessions through check-in and check-out. The clock is
// always supplied by the caller; the service never reads wall time.
type Service struct {
	ledger   Ledger
	schedule Schedule
	dir      Directory
	grace    time.Duration
	logger   *zap.Logger
}

// NewService creates an attendance service. grace is how late after the
// scheduled start a check-in still counts as on time.
func NewService(ledger Ledger, schedule Schedule, dir Directory, grace time.Duration, logger *zap.Logger) *Service {
	if grace <= 0 {
		grace = 15 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{ledger: ledger, schedule: schedule, dir: dir, grace: grace, logger: logger}
}

// CheckInRequest carries everything a check-in needs; nothing is read
// from ambient state.
type CheckInRequest struct {
	TeacherID   string
	TimetableID string
	CourseID    string
	Date        string
	Now         time.Time
	Point       geo.Coord
}

// CheckIn validates the request against the timetable, the teacher's
// open sessions and the clock, scores the geofence, and opens a pending
// session. Preconditions fail fast in a fixed order.
func (s *Service) CheckIn(ctx context.Context, req CheckInRequest) (*Session, error) {
	if _, err := ParseDate(req.Date); err != nil {
		return nil, err
	}

	entry, err := s.schedule.GetByID(ctx, req.TimetableID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrTimetableNotFound
	}
	if entry.CourseID != req.CourseID {
		return nil, ErrCourseMismatch
	}

	open, err := s.ledger.OpenSession(ctx, req.TeacherID, req.Date)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, ErrActiveSession
	}

	if timetable.MinutesOf(req.Now) < entry.Interval.Start {
		return nil, ErrClassNotStarted
	}

	room, err := s.dir.GetClassroom(ctx, entry.ClassroomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrUnknownClassroom
	}

	now := req.Now
	sess := &Session{
		TeacherID:   req.TeacherID,
		CourseID:    entry.CourseID,
		ClassroomID: entry.ClassroomID,
		TimetableID: entry.ID,
		Date:        req.Date,
		CheckInTime: &now,
		CheckInLat:  &req.Point.Lat,
		CheckInLng:  &req.Point.Lng,
		Status:      StatusPending,
	}

	ev, err := geo.Evaluate(req.Point, room.Geofence())
	switch {
	case errors.Is(err, geo.ErrNoGeofence):
		// Recorded as range-unknown: distance stays null and the
		// session can only resolve incomplete.
		s.logger.Warn("check-in without geofence",
			zap.String("classroom_id", room.ID),
			zap.String("teacher_id", req.TeacherID))
	case err != nil:
		return nil, err
	default:
		d := ev.DistanceMeters
		sess.CheckInDistance = &d
		sess.CheckInWithinRange = ev.WithinRange
	}

	if err := s.ledger.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	s.logger.Info("checked in",
		zap.String("session_id", sess.ID),
		zap.String("teacher_id", sess.TeacherID),
		zap.Bool("within_range", sess.CheckInWithinRange))
	return sess, nil
}

// CheckOutRequest identifies the session being closed and who is asking.
type CheckOutRequest struct {
	SessionID string
	TeacherID string
	Now       time.Time
	Point     geo.Coord
}

// CheckOut closes an open session after the scheduled end, scoring the
// geofence symmetrically to check-in. The final status is derived here;
// any status a client sends is ignored.
func (s *Service) CheckOut(ctx context.Context, req CheckOutRequest) (*Session, error) {
	sess, err := s.ledger.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	if sess.TeacherID != req.TeacherID {
		return nil, ErrNotSessionOwner
	}
	if sess.CheckOutTime != nil {
		return nil, ErrAlreadyCheckedOut
	}

	entry, err := s.schedule.GetByID(ctx, sess.TimetableID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrTimetableNotFound
	}
	if timetable.MinutesOf(req.Now) < entry.Interval.End {
		return nil, ErrClassNotEnded
	}

	room, err := s.dir.GetClassroom(ctx, entry.ClassroomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrUnknownClassroom
	}

	now := req.Now
	sess.CheckOutTime = &now
	sess.CheckOutLat = &req.Point.Lat
	sess.CheckOutLng = &req.Point.Lng
	sess.CheckOutWithinRange = false
	sess.CheckOutDistance = nil

	ev, err := geo.Evaluate(req.Point, room.Geofence())
	switch {
	case errors.Is(err, geo.ErrNoGeofence):
		s.logger.Warn("check-out without geofence",
			zap.String("classroom_id", room.ID),
			zap.String("teacher_id", req.TeacherID))
	case err != nil:
		return nil, err
	default:
		d := ev.DistanceMeters
		sess.CheckOutDistance = &d
		sess.CheckOutWithinRange = ev.WithinRange
	}

	sess.Status = ResolveStatus(sess)
	if err := s.ledger.CompleteSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("complete session: %w", err)
	}
	s.logger.Info("checked out",
		zap.String("session_id", sess.ID),
		zap.String("status", string(sess.Status)))
	return sess, nil
}

// OnTime reports whether a session's check-in landed within the lateness
// grace after its entry's scheduled start.
func (s *Service) OnTime(sess *Session, entry *timetable.Entry) bool {
	if sess.CheckInTime == nil || entry == nil {
		return false
	}
	graceMinutes := timetable.TimeOfDay(s.grace / time.Minute)
	return timetable.MinutesOf(*sess.CheckInTime) <= entry.Interval.Start+graceMinutes
}

// List returns sessions matching the filter.
func (s *Service) List(ctx context.Context, f Filter) ([]Session, error) {
	return s.ledger.List(ctx, f)
}
