package attendance

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema constraint names the repo maps back to domain errors. The
// partial unique index is the race-proof backstop for the one-open-
// session rule; the tuple key prevents duplicate occurrence records.
const (
	constraintOpenSession = "one_open_session_per_teacher_day"
	constraintTuple       = "attendance_sessions_tuple_key"
)

// Repository persists attendance sessions in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a ledger repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const sessionColumns = `
	id, teacher_id, course_id, classroom_id, timetable_id, date::text,
	check_in_time, check_in_lat, check_in_lng, check_in_distance, check_in_within_range,
	check_out_time, check_out_lat, check_out_lng, check_out_distance, check_out_within_range,
	status, created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner, s *Session) error {
	return row.Scan(
		&s.ID, &s.TeacherID, &s.CourseID, &s.ClassroomID, &s.TimetableID, &s.Date,
		&s.CheckInTime, &s.CheckInLat, &s.CheckInLng, &s.CheckInDistance, &s.CheckInWithinRange,
		&s.CheckOutTime, &s.CheckOutLat, &s.CheckOutLng, &s.CheckOutDistance, &s.CheckOutWithinRange,
		&s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
}

// CreateSession inserts a new session. The open-session check and the
// insert run in one transaction with the teacher's open rows locked, so
// two racing check-ins from the same teacher cannot both succeed; the
// partial unique index catches anything the lock misses.
func (r *Repository) CreateSession(ctx context.Context, s *Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var openID string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM attendance_sessions
		WHERE teacher_id = $1 AND date = $2
		  AND check_in_time IS NOT NULL AND check_out_time IS NULL
		FOR UPDATE
	`, s.TeacherID, s.Date).Scan(&openID)
	if err == nil {
		return ErrActiveSession
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	row := tx.QueryRowContext(ctx, `
		INSERT INTO attendance_sessions (
			id, teacher_id, course_id, classroom_id, timetable_id, date,
			check_in_time, check_in_lat, check_in_lng, check_in_distance, check_in_within_range,
			status
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at, updated_at
	`, s.ID, s.TeacherID, s.CourseID, s.ClassroomID, s.TimetableID, s.Date,
		s.CheckInTime, s.CheckInLat, s.CheckInLng, s.CheckInDistance, s.CheckInWithinRange,
		string(s.Status))
	if err := row.Scan(&s.CreatedAt, &s.UpdatedAt); err != nil {
		return mapConstraintErr(err)
	}
	return tx.Commit()
}

// mapConstraintErr converts unique violations into the domain errors the
// state machine surfaces, so a losing racer fails the same way a
// sequential violator would.
func mapConstraintErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case constraintOpenSession:
			return ErrActiveSession
		case constraintTuple:
			return ErrDuplicateSession
		}
	}
	return err
}

// GetSession returns a session by id, or nil when it does not exist.
func (r *Repository) GetSession(ctx context.Context, id string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT`+sessionColumns+`FROM attendance_sessions WHERE id = $1`, id)
	var s Session
	if err := scanSession(row, &s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// OpenSession returns the teacher's open session for a date, or nil.
func (r *Repository) OpenSession(ctx context.Context, teacherID, date string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT`+sessionColumns+`
		FROM attendance_sessions
		WHERE teacher_id = $1 AND date = $2
		  AND check_in_time IS NOT NULL AND check_out_time IS NULL
		LIMIT 1
	`, teacherID, date)
	var s Session
	if err := scanSession(row, &s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// CompleteSession writes the check-out evidence and final status.
func (r *Repository) CompleteSession(ctx context.Context, s *Session) error {
	row := r.db.QueryRowContext(ctx, `
		UPDATE attendance_sessions
		SET check_out_time = $2, check_out_lat = $3, check_out_lng = $4,
		    check_out_distance = $5, check_out_within_range = $6,
		    status = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, s.ID, s.CheckOutTime, s.CheckOutLat, s.CheckOutLng,
		s.CheckOutDistance, s.CheckOutWithinRange, string(s.Status))
	if err := row.Scan(&s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSessionNotFound
		}
		return err
	}
	return nil
}

// List returns sessions matching the filter, newest first. Predicates
// are applied in a fixed order regardless of which fields are set.
func (r *Repository) List(ctx context.Context, f Filter) ([]Session, error) {
	limit, offset := f.Limit, f.Offset
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT` + sessionColumns + `FROM attendance_sessions`
	args := []any{}
	clauses := []string{}
	if f.TeacherID != "" {
		clauses = append(clauses, "teacher_id = $"+strconv.Itoa(len(args)+1))
		args = append(args, f.TeacherID)
	}
	if f.TimetableID != "" {
		clauses = append(clauses, "timetable_id = $"+strconv.Itoa(len(args)+1))
		args = append(args, f.TimetableID)
	}
	if f.Date != "" {
		clauses = append(clauses, "date = $"+strconv.Itoa(len(args)+1))
		args = append(args, f.Date)
	}
	if f.Status != "" {
		clauses = append(clauses, "status = $"+strconv.Itoa(len(args)+1))
		args = append(args, string(f.Status))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT $" + strconv.Itoa(len(args)+1) +
		" OFFSET $" + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Session
	for rows.Next() {
		var s Session
		if err := scanSession(rows, &s); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// MarkStaleIncomplete demotes sessions still pending after their class
// ended plus the grace window. Used by the sweeper.
func (r *Repository) MarkStaleIncomplete(ctx context.Context, date string, asOfMinute, graceMinutes int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE attendance_sessions s
		SET status = 'incomplete', updated_at = NOW()
		FROM timetable_entries t
		WHERE s.timetable_id = t.id
		  AND s.date = $1
		  AND s.status = 'pending'
		  AND s.check_out_time IS NULL
		  AND t.end_minute + $3 <= $2
	`, date, asOfMinute, graceMinutes)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// InsertAbsences records an absent row for every scheduled occurrence on
// the given date whose course has an assigned teacher and no session in
// the ledger, once the occurrence ended plus the grace window. Used by
// the sweeper; the tuple key makes reruns idempotent.
func (r *Repository) InsertAbsences(ctx context.Context, date string, day string, asOfMinute, graceMinutes int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_sessions (id, teacher_id, course_id, classroom_id, timetable_id, date, status)
		SELECT gen_random_uuid()::text, c.teacher_id, t.course_id, t.classroom_id, t.id, $1, 'absent'
		FROM timetable_entries t
		JOIN courses c ON c.id = t.course_id
		WHERE t.day_of_week = $2
		  AND c.teacher_id IS NOT NULL
		  AND t.end_minute + $4 <= $3
		  AND NOT EXISTS (
			SELECT 1 FROM attendance_sessions s
			WHERE s.teacher_id = c.teacher_id
			  AND s.course_id = t.course_id
			  AND s.classroom_id = t.classroom_id
			  AND s.timetable_id = t.id
			  AND s.date = $1
		  )
		ON CONFLICT ON CONSTRAINT attendance_sessions_tuple_key DO NOTHING
	`, date, day, asOfMinute, graceMinutes)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
