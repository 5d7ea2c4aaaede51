// Package directory exposes read access to the entities the scheduling and
// attendance flows depend on but do not manage: courses with their assigned
// teacher, and classrooms with their geofence definition.
package directory

import (
	"context"
	"database/sql"
	"errors"

	"github.com/HalimKing/Teacher-to-class-ms-sub001/internal/geo"
)

// Course is a taught unit. TeacherID is nil when no teacher is assigned.
type Course struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	AcademicYearID string  `json:"academic_year_id"`
	TeacherID      *string `json:"teacher_id,omitempty"`
}

// Classroom owns zero or one geofence: present iff both coordinates are set.
type Classroom struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Capacity     int      `json:"capacity"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	RadiusMeters float64  `json:"radius_meters"`
	IsActive     bool     `json:"is_active"`
}

// Geofence returns the classroom's boundary, or nil when no coordinates
// are registered.
func (c *Classroom) Geofence() *geo.Geofence {
	if c.Latitude == nil || c.Longitude == nil {
		return nil
	}
	return &geo.Geofence{
		Center:       geo.Coord{Lat: *c.Latitude, Lng: *c.Longitude},
		RadiusMeters: c.RadiusMeters,
	}
}

// Repository reads courses and classrooms from Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a directory repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// GetCourse returns a course by id, or nil when it does not exist.
func (r *Repository) GetCourse(ctx context.Context, id string) (*Course, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, academic_year_id, teacher_id
		FROM courses WHERE id = $1
	`, id)
	var c Course
	if err := row.Scan(&c.ID, &c.Name, &c.AcademicYearID, &c.TeacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// GetClassroom returns a classroom by id, or nil when it does not exist.
func (r *Repository) GetClassroom(ctx context.Context, id string) (*Classroom, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, capacity, latitude, longitude, radius_meters, is_active
		FROM classrooms WHERE id = $1
	`, id)
	var c Classroom
	if err := row.Scan(&c.ID, &c.Name, &c.Capacity, &c.Latitude, &c.Longitude, &c.RadiusMeters, &c.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}
