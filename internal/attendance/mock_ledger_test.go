package attendance

import (
	"context"
	"strconv"

	"github.com/HalimKing/Teacher-to-class-ms-sub001/internal/directory"
	"github.com/HalimKing/Teacher-to-class-ms-sub001/internal/timetable"
)

// In-memory fakes mirroring the Postgres ledger's invariant behavior.

type memLedger struct {
	sessions map[string]*Session
	nextID   int
}

func newMemLedger() *memLedger {
	return &memLedger{sessions: make(map[string]*Session)}
}

func (l *memLedger) CreateSession(_ context.Context, s *Session) error {
	for _, existing := range l.sessions {
		if existing.TeacherID == s.TeacherID && existing.Date == s.Date && existing.Open() {
			return ErrActiveSession
		}
		if existing.TeacherID == s.TeacherID && existing.CourseID == s.CourseID &&
			existing.ClassroomID == s.ClassroomID && existing.TimetableID == s.TimetableID &&
			existing.Date == s.Date {
			return ErrDuplicateSession
		}
	}
	if s.ID == "" {
		l.nextID++
		s.ID = "sess-" + strconv.Itoa(l.nextID)
	}
	cp := *s
	l.sessions[s.ID] = &cp
	return nil
}

func (l *memLedger) GetSession(_ context.Context, id string) (*Session, error) {
	s, ok := l.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (l *memLedger) OpenSession(_ context.Context, teacherID, date string) (*Session, error) {
	for _, s := range l.sessions {
		if s.TeacherID == teacherID && s.Date == date && s.Open() {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (l *memLedger) CompleteSession(_ context.Context, s *Session) error {
	if _, ok := l.sessions[s.ID]; !ok {
		return ErrSessionNotFound
	}
	cp := *s
	l.sessions[s.ID] = &cp
	return nil
}

func (l *memLedger) List(_ context.Context, f Filter) ([]Session, error) {
	var res []Session
	for _, s := range l.sessions {
		if f.TeacherID != "" && s.TeacherID != f.TeacherID {
			continue
		}
		if f.TimetableID != "" && s.TimetableID != f.TimetableID {
			continue
		}
		if f.Date != "" && s.Date != f.Date {
			continue
		}
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		res = append(res, *s)
	}
	return res, nil
}

type memSchedule struct {
	entries map[string]*timetable.Entry
}

func newMemSchedule() *memSchedule {
	return &memSchedule{entries: make(map[string]*timetable.Entry)}
}

func (s *memSchedule) GetByID(_ context.Context, id string) (*timetable.Entry, error) {
	e, ok := s.entries[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

type memDirectory struct {
	classrooms map[string]*directory.Classroom
}

func newMemDirectory() *memDirectory {
	return &memDirectory{classrooms: make(map[string]*directory.Classroom)}
}

func (d *memDirectory) GetClassroom(_ context.Context, id string) (*directory.Classroom, error) {
	c, ok := d.classrooms[id]
	if !ok {
		return nil, nil
	}
	return c, nil
}
