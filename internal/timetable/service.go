package timetable

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HalimKing/Teacher-to-class-ms-sub001/internal/directory"
)

var (
	// ErrEntryNotFound is returned when an entry id does not exist.
	ErrEntryNotFound = errors.New("timetable entry not found")
	// ErrUnknownCourse is returned when the candidate references a missing course.
	ErrUnknownCourse = errors.New("course not found")
	// ErrUnknownClassroom is returned when the candidate references a missing classroom.
	ErrUnknownClassroom = errors.New("classroom not found")
	// ErrInactiveClassroom is returned when scheduling into a deactivated classroom.
	ErrInactiveClassroom = errors.New("classroom is not active")
)

// Registry is the schedule store the detector queries and the scheduling
// flow writes through.
type Registry interface {
	ListForDay(ctx context.Context, academicYearID string, day Weekday, excludeEntryID string) ([]ScheduledEntry, error)
	Insert(ctx context.Context, e *Entry) error
	Update(ctx context.Context, e *Entry) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*Entry, error)
	List(ctx context.Context, f Filter) ([]ScheduledEntry, error)
}

// Directory resolves the course and classroom a candidate references.
type Directory interface {
	GetCourse(ctx context.Context, id string) (*directory.Course, error)
	GetClassroom(ctx context.Context, id string) (*directory.Classroom, error)
}

// Service runs conflict detection and gates all registry writes.
type Service struct {
	registry Registry
	dir      Directory
	logger   *zap.Logger
}

// NewService creates a scheduling service.
func NewService(registry Registry, dir Directory, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{registry: registry, dir: dir, logger: logger}
}

// CheckConflict evaluates a candidate against every committed entry sharing
// its academic year and day. Classroom and teacher checks are independent;
// the teacher check is skipped entirely when the course has no teacher.
func (s *Service) CheckConflict(ctx context.Context, cand Candidate) (ConflictResult, error) {
	if err := cand.Interval.Validate(); err != nil {
		return ConflictResult{}, err
	}
	course, err := s.dir.GetCourse(ctx, cand.CourseID)
	if err != nil {
		return ConflictResult{}, err
	}
	if course == nil {
		return ConflictResult{}, ErrUnknownCourse
	}

	entries, err := s.registry.ListForDay(ctx, cand.AcademicYearID, cand.Interval.Day, cand.ExcludeEntryID)
	if err != nil {
		return ConflictResult{}, err
	}

	var classroomHit, teacherHit bool
	var hitClassroomName string
	for _, e := range entries {
		if !e.Interval.Overlaps(cand.Interval) {
			continue
		}
		if e.ClassroomID == cand.ClassroomID && !classroomHit {
			classroomHit = true
			hitClassroomName = e.ClassroomName
		}
		if course.TeacherID != nil && e.TeacherID != nil && *e.TeacherID == *course.TeacherID {
			teacherHit = true
		}
	}

	res := ConflictResult{Kind: ConflictNone}
	switch {
	case classroomHit && teacherHit:
		res = ConflictResult{HasConflict: true, Kind: ConflictBoth, ClassroomName: hitClassroomName}
	case classroomHit:
		res = ConflictResult{HasConflict: true, Kind: ConflictClassroom, ClassroomName: hitClassroomName}
	case teacherHit:
		res = ConflictResult{HasConflict: true, Kind: ConflictTeacher}
	}
	return res, nil
}

// Create validates a candidate, runs conflict detection and commits the
// entry. A *ConflictError rejection leaves the registry untouched.
func (s *Service) Create(ctx context.Context, cand Candidate) (*Entry, error) {
	if err := s.validateRefs(ctx, cand); err != nil {
		return nil, err
	}
	cand.ExcludeEntryID = ""
	res, err := s.CheckConflict(ctx, cand)
	if err != nil {
		return nil, err
	}
	if res.HasConflict {
		s.logger.Info("schedule rejected",
			zap.String("course_id", cand.CourseID),
			zap.String("kind", string(res.Kind)))
		return nil, &ConflictError{Result: res}
	}

	e := &Entry{
		ID:             uuid.NewString(),
		AcademicYearID: cand.AcademicYearID,
		CourseID:       cand.CourseID,
		ClassroomID:    cand.ClassroomID,
		Interval:       cand.Interval,
	}
	if err := s.registry.Insert(ctx, e); err != nil {
		return nil, fmt.Errorf("insert timetable entry: %w", err)
	}
	return e, nil
}

// Update re-runs conflict detection with the entry excluded from the scan
// so it cannot collide with itself, then commits the new slot.
func (s *Service) Update(ctx context.Context, id string, cand Candidate) (*Entry, error) {
	existing, err := s.registry.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrEntryNotFound
	}
	if err := s.validateRefs(ctx, cand); err != nil {
		return nil, err
	}
	cand.ExcludeEntryID = id
	res, err := s.CheckConflict(ctx, cand)
	if err != nil {
		return nil, err
	}
	if res.HasConflict {
		return nil, &ConflictError{Result: res}
	}

	e := &Entry{
		ID:             id,
		AcademicYearID: cand.AcademicYearID,
		CourseID:       cand.CourseID,
		ClassroomID:    cand.ClassroomID,
		Interval:       cand.Interval,
	}
	if err := s.registry.Update(ctx, e); err != nil {
		return nil, fmt.Errorf("update timetable entry: %w", err)
	}
	return e, nil
}

// Delete removes an entry. Dependent attendance rows cascade at the store.
func (s *Service) Delete(ctx context.Context, id string) error {
	existing, err := s.registry.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrEntryNotFound
	}
	return s.registry.Delete(ctx, id)
}

// List returns entries matching the filter.
func (s *Service) List(ctx context.Context, f Filter) ([]ScheduledEntry, error) {
	return s.registry.List(ctx, f)
}

// Get returns one entry by id.
func (s *Service) Get(ctx context.Context, id string) (*Entry, error) {
	e, err := s.registry.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrEntryNotFound
	}
	return e, nil
}

func (s *Service) validateRefs(ctx context.Context, cand Candidate) error {
	if err := cand.Interval.Validate(); err != nil {
		return err
	}
	room, err := s.dir.GetClassroom(ctx, cand.ClassroomID)
	if err != nil {
		return err
	}
	if room == nil {
		return ErrUnknownClassroom
	}
	if !room.IsActive {
		return ErrInactiveClassroom
	}
	return nil
}
