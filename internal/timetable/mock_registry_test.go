package timetable

import (
	"context"

	"github.com/HalimKing/Teacher-to-class-ms-sub001/internal/directory"
)

// In-memory fakes mirroring the Postgres repos closely enough for
// service tests: ListForDay performs the course/classroom join the SQL
// version does.

type memDirectory struct {
	courses    map[string]*directory.Course
	classrooms map[string]*directory.Classroom
}

func newMemDirectory() *memDirectory {
	return &memDirectory{
		courses:    make(map[string]*directory.Course),
		classrooms: make(map[string]*directory.Classroom),
	}
}

func (d *memDirectory) GetCourse(_ context.Context, id string) (*directory.Course, error) {
	return d.courses[id], nil
}

func (d *memDirectory) GetClassroom(_ context.Context, id string) (*directory.Classroom, error) {
	return d.classrooms[id], nil
}

func (d *memDirectory) addCourse(id, yearID string, teacherID *string) {
	d.courses[id] = &directory.Course{ID: id, Name: "course " + id, AcademicYearID: yearID, TeacherID: teacherID}
}

func (d *memDirectory) addClassroom(id, name string) {
	d.classrooms[id] = &directory.Classroom{ID: id, Name: name, Capacity: 30, RadiusMeters: 50, IsActive: true}
}

func dirClassroomInactive() *directory.Classroom {
	return &directory.Classroom{ID: "closed", Name: "Closed Room", RadiusMeters: 50, IsActive: false}
}

type memRegistry struct {
	dir     *memDirectory
	entries map[string]*Entry
}

func newMemRegistry(dir *memDirectory) *memRegistry {
	return &memRegistry{dir: dir, entries: make(map[string]*Entry)}
}

func (r *memRegistry) join(e *Entry) ScheduledEntry {
	se := ScheduledEntry{Entry: *e}
	if c := r.dir.courses[e.CourseID]; c != nil {
		se.TeacherID = c.TeacherID
	}
	if room := r.dir.classrooms[e.ClassroomID]; room != nil {
		se.ClassroomName = room.Name
	}
	return se
}

func (r *memRegistry) ListForDay(_ context.Context, yearID string, day Weekday, excludeID string) ([]ScheduledEntry, error) {
	var res []ScheduledEntry
	for _, e := range r.entries {
		if e.AcademicYearID != yearID || e.Interval.Day != day || e.ID == excludeID {
			continue
		}
		res = append(res, r.join(e))
	}
	return res, nil
}

func (r *memRegistry) Insert(_ context.Context, e *Entry) error {
	cp := *e
	r.entries[e.ID] = &cp
	return nil
}

func (r *memRegistry) Update(_ context.Context, e *Entry) error {
	if _, ok := r.entries[e.ID]; !ok {
		return ErrEntryNotFound
	}
	cp := *e
	r.entries[e.ID] = &cp
	return nil
}

func (r *memRegistry) Delete(_ context.Context, id string) error {
	delete(r.entries, id)
	return nil
}

func (r *memRegistry) GetByID(_ context.Context, id string) (*Entry, error) {
	e, ok := r.entries[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (r *memRegistry) List(_ context.Context, f Filter) ([]ScheduledEntry, error) {
	var res []ScheduledEntry
	for _, e := range r.entries {
		if f.AcademicYearID != "" && e.AcademicYearID != f.AcademicYearID {
			continue
		}
		if f.Day != "" && e.Interval.Day != f.Day {
			continue
		}
		if f.ClassroomID != "" && e.ClassroomID != f.ClassroomID {
			continue
		}
		se := r.join(e)
		if f.TeacherID != "" && (se.TeacherID == nil || *se.TeacherID != f.TeacherID) {
			continue
		}
		res = append(res, se)
	}
	return res, nil
}
