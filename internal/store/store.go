package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"classattend/internal/model"
)

// Timestamps are persisted as text so the date-prefix queries below stay
// plain string comparisons.
const (
	TimeLayout = "2006-01-02 15:04:05"
	DateLayout = "2006-01-02"
)

var (
	// ErrSubjectExists signals a uniqueness violation on subject names.
	ErrSubjectExists = errors.New("subject already exists")
	// ErrDuplicate signals an existing check-in for the same
	// (student, course, calendar date). Policy rejection, not a failure.
	ErrDuplicate = errors.New("duplicate check-in")
)

// Store persists subjects and attendance records in a local sqlite file.
// The connection is safe to share between the primary goroutine and the
// capture goroutine; sqlite access is serialized by the driver and write
// transactions take the write lock up front (_txlock=immediate).
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS subjects (
		id    INTEGER PRIMARY KEY AUTOINCREMENT,
		name  TEXT UNIQUE
	);

	CREATE TABLE IF NOT EXISTS attendance (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id    TEXT,
		student_name  TEXT,
		course_code   TEXT,
		room          TEXT,
		date_time     TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_student     ON attendance(student_id);
	CREATE INDEX IF NOT EXISTS idx_attendance_course_date ON attendance(course_code, date_time);
	`
	_, err := db.Exec(schema)
	return err
}

func (s *Store) Close() error { return s.db.Close() }

// -------- Subjects --------

// AddSubject inserts a subject, returning ErrSubjectExists when the name is
// already present.
func (s *Store) AddSubject(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO subjects (name) VALUES (?)`, name)
	var serr sqlite3.Error
	if errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return ErrSubjectExists
	}
	return err
}

// DeleteSubject deletes by name. Deleting an absent subject is a no-op
// success, and historical attendance rows are left untouched (no cascade).
func (s *Store) DeleteSubject(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM subjects WHERE name = ?`, name)
	return err
}

// ListSubjects returns all subject names in insertion order.
func (s *Store) ListSubjects(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM subjects`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		subjects = append(subjects, name)
	}
	return subjects, rows.Err()
}

// -------- Attendance --------

// HasCheckIn reports whether a record exists for the student and course on
// the given calendar date, ignoring time of day.
func (s *Store) HasCheckIn(ctx context.Context, studentID, course string, date time.Time) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM attendance WHERE student_id = ? AND course_code = ? AND date_time LIKE ? LIMIT 1`,
		studentID, course, date.Format(DateLayout)+"%",
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// SaveAttendance appends a check-in with a store-assigned timestamp. The
// duplicate probe and the insert run in one immediate transaction, so two
// concurrent saves for the same (student, course, day) commit exactly one
// row; the loser gets ErrDuplicate.
func (s *Store) SaveAttendance(ctx context.Context, studentID, studentName, course, room string) (model.Record, error) {
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Record{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM attendance WHERE student_id = ? AND course_code = ? AND date_time LIKE ? LIMIT 1`,
		studentID, course, now.Format(DateLayout)+"%",
	).Scan(&one)
	if err == nil {
		return model.Record{}, ErrDuplicate
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.Record{}, fmt.Errorf("duplicate probe: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO attendance (student_id, student_name, course_code, room, date_time)
		 VALUES (?, ?, ?, ?, ?)`,
		studentID, studentName, course, room, now.Format(TimeLayout),
	)
	if err != nil {
		return model.Record{}, fmt.Errorf("insert check-in: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Record{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Record{}, fmt.Errorf("commit: %w", err)
	}

	return model.Record{
		ID:          id,
		StudentID:   studentID,
		StudentName: studentName,
		CourseCode:  course,
		Room:        room,
		Timestamp:   now.Truncate(time.Second),
	}, nil
}

// DeleteRecord deletes a single check-in by surrogate key.
func (s *Store) DeleteRecord(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM attendance WHERE id = ?`, id)
	return err
}

// RecordsByDate returns all records on the given calendar date, optionally
// filtered by exact subject match (empty subject = all).
func (s *Store) RecordsByDate(ctx context.Context, date time.Time, subject string) ([]model.Record, error) {
	query := `SELECT id, student_id, student_name, course_code, room, date_time FROM attendance WHERE date_time LIKE ?`
	args := []any{date.Format(DateLayout) + "%"}
	if subject != "" {
		query += ` AND course_code = ?`
		args = append(args, subject)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		var r model.Record
		var ts string
		if err := rows.Scan(&r.ID, &r.StudentID, &r.StudentName, &r.CourseCode, &r.Room, &ts); err != nil {
			return nil, err
		}
		if r.Timestamp, err = time.ParseInLocation(TimeLayout, ts, time.Local); err != nil {
			return nil, fmt.Errorf("record %d: bad timestamp %q: %w", r.ID, ts, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// SubjectStats ranks students of a course by check-in count, descending.
// Rows are grouped by student id; ties keep sqlite's stable secondary order.
// An empty course yields an empty result.
func (s *Store) SubjectStats(ctx context.Context, course string) ([]model.StudentCount, error) {
	if course == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT student_name, COUNT(*) AS c
		FROM attendance
		WHERE course_code = ?
		GROUP BY student_id
		ORDER BY c DESC
	`, course)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []model.StudentCount
	for rows.Next() {
		var sc model.StudentCount
		if err := rows.Scan(&sc.StudentName, &sc.Count); err != nil {
			return nil, err
		}
		stats = append(stats, sc)
	}
	return stats, rows.Err()
}

// CountForStudent returns the student's total historical check-ins across
// all subjects and dates.
func (s *Store) CountForStudent(ctx context.Context, studentID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attendance WHERE student_id = ?`, studentID,
	).Scan(&count)
	return count, err
}
