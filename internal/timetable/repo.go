package timetable

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
)

// Repository persists timetable entries in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a registry repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const scheduledColumns = `
	t.id, t.academic_year_id, t.course_id, t.classroom_id,
	t.day_of_week, t.start_minute, t.end_minute, t.created_at, t.updated_at,
	c.teacher_id, r.name
`

const scheduledJoins = `
	FROM timetable_entries t
	JOIN courses c ON c.id = t.course_id
	JOIN classrooms r ON r.id = t.classroom_id
`

func scanScheduled(rows *sql.Rows) (ScheduledEntry, error) {
	var e ScheduledEntry
	err := rows.Scan(
		&e.ID, &e.AcademicYearID, &e.CourseID, &e.ClassroomID,
		&e.Interval.Day, &e.Interval.Start, &e.Interval.End, &e.CreatedAt, &e.UpdatedAt,
		&e.TeacherID, &e.ClassroomName,
	)
	return e, err
}

// ListForDay returns all entries sharing an academic year and weekday,
// with teacher and classroom context joined in. excludeEntryID skips one
// entry so edits do not conflict with themselves.
func (r *Repository) ListForDay(ctx context.Context, academicYearID string, day Weekday, excludeEntryID string) ([]ScheduledEntry, error) {
	query := `SELECT` + scheduledColumns + scheduledJoins + `
		WHERE t.academic_year_id = $1 AND t.day_of_week = $2`
	args := []any{academicYearID, string(day)}
	if excludeEntryID != "" {
		query += ` AND t.id <> $3`
		args = append(args, excludeEntryID)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []ScheduledEntry
	for rows.Next() {
		e, err := scanScheduled(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// List returns entries matching the filter. Predicates are applied in a
// fixed order regardless of which fields are set.
func (r *Repository) List(ctx context.Context, f Filter) ([]ScheduledEntry, error) {
	limit, offset := f.Limit, f.Offset
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT` + scheduledColumns + scheduledJoins
	args := []any{}
	clauses := []string{}
	if f.AcademicYearID != "" {
		clauses = append(clauses, "t.academic_year_id = $"+strconv.Itoa(len(args)+1))
		args = append(args, f.AcademicYearID)
	}
	if f.Day != "" {
		clauses = append(clauses, "t.day_of_week = $"+strconv.Itoa(len(args)+1))
		args = append(args, string(f.Day))
	}
	if f.ClassroomID != "" {
		clauses = append(clauses, "t.classroom_id = $"+strconv.Itoa(len(args)+1))
		args = append(args, f.ClassroomID)
	}
	if f.TeacherID != "" {
		clauses = append(clauses, "c.teacher_id = $"+strconv.Itoa(len(args)+1))
		args = append(args, f.TeacherID)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY t.day_of_week, t.start_minute LIMIT $" + strconv.Itoa(len(args)+1) +
		" OFFSET $" + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []ScheduledEntry
	for rows.Next() {
		e, err := scanScheduled(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// GetByID returns one entry, or nil when it does not exist.
func (r *Repository) GetByID(ctx context.Context, id string) (*Entry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, academic_year_id, course_id, classroom_id,
		       day_of_week, start_minute, end_minute, created_at, updated_at
		FROM timetable_entries WHERE id = $1
	`, id)
	var e Entry
	err := row.Scan(&e.ID, &e.AcademicYearID, &e.CourseID, &e.ClassroomID,
		&e.Interval.Day, &e.Interval.Start, &e.Interval.End, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// Insert writes a new entry.
func (r *Repository) Insert(ctx context.Context, e *Entry) error {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO timetable_entries (id, academic_year_id, course_id, classroom_id, day_of_week, start_minute, end_minute)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at
	`, e.ID, e.AcademicYearID, e.CourseID, e.ClassroomID, string(e.Interval.Day), int(e.Interval.Start), int(e.Interval.End))
	return row.Scan(&e.CreatedAt, &e.UpdatedAt)
}

// Update rewrites an entry's slot.
func (r *Repository) Update(ctx context.Context, e *Entry) error {
	row := r.db.QueryRowContext(ctx, `
		UPDATE timetable_entries
		SET academic_year_id = $2, course_id = $3, classroom_id = $4,
		    day_of_week = $5, start_minute = $6, end_minute = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`, e.ID, e.AcademicYearID, e.CourseID, e.ClassroomID, string(e.Interval.Day), int(e.Interval.Start), int(e.Interval.End))
	if err := row.Scan(&e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEntryNotFound
		}
		return err
	}
	return nil
}

// Delete removes an entry; attendance rows referencing it cascade.
func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM timetable_entries WHERE id = $1`, id)
	return err
}
