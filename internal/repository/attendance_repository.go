package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ams-api/internal/models"
)

// UpsertResult reports how many rows were inserted versus overwritten.
type UpsertResult struct {
	Created int
	Updated int
}

// AttendanceRepository persists per-teacher attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// UpsertBatch writes every record in one transaction keyed by
// (student, course, date, marking teacher). Existing rows get the new status
// and make-up flag; created_at is preserved.
func (r *AttendanceRepository) UpsertBatch(ctx context.Context, records []models.Attendance) (UpsertResult, error) {
	var result UpsertResult
	if len(records) == 0 {
		return result, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin attendance upsert: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO attendance (id, student_id, course_id, marked_by_teacher_id, date, status, is_make_up, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (student_id, course_id, date, marked_by_teacher_id)
DO UPDATE SET status = EXCLUDED.status, is_make_up = EXCLUDED.is_make_up
RETURNING id, created_at, (xmax = 0) AS inserted`
	now := time.Now().UTC()
	for i := range records {
		rec := &records[i]
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		var inserted bool
		row := tx.QueryRowxContext(ctx, query, rec.ID, rec.StudentID, rec.CourseID, rec.MarkedByTeacherID, rec.Date, rec.Status, rec.IsMakeUp, rec.CreatedAt)
		if err := row.Scan(&rec.ID, &rec.CreatedAt, &inserted); err != nil {
			return UpsertResult{}, fmt.Errorf("upsert attendance for student %s: %w", rec.StudentID, err)
		}
		if inserted {
			result.Created++
		} else {
			result.Updated++
		}
	}
	if err := tx.Commit(); err != nil {
		return UpsertResult{}, fmt.Errorf("commit attendance upsert: %w", err)
	}
	commit = true
	return result, nil
}

// List returns attendance records with display names. Records are ordered by
// date (descending unless filter.Ascending) and then student name.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	query := `SELECT a.id, a.student_id, a.course_id, a.marked_by_teacher_id, a.date, a.status, a.is_make_up, a.created_at,
	s.name AS student_name, s.email AS student_email, c.code AS course_code, c.name AS course_name, t.name AS teacher_name
FROM attendance a
JOIN users s ON s.id = a.student_id
JOIN users t ON t.id = a.marked_by_teacher_id
JOIN courses c ON c.id = a.course_id`
	var conditions []string
	var args []interface{}
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}
	if filter.CourseID != "" {
		add("a.course_id = $%d", filter.CourseID)
	}
	if filter.StudentID != "" {
		add("a.student_id = $%d", filter.StudentID)
	}
	if filter.TeacherID != "" {
		add("a.marked_by_teacher_id = $%d", filter.TeacherID)
	}
	if filter.From != nil {
		add("a.date >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("a.date <= $%d", *filter.To)
	}
	if filter.EnrolledOnly {
		conditions = append(conditions, "EXISTS (SELECT 1 FROM enrollments e WHERE e.student_id = a.student_id AND e.course_id = a.course_id)")
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	direction := "DESC"
	if filter.Ascending {
		direction = "ASC"
	}
	query += fmt.Sprintf(" ORDER BY a.date %s, s.name ASC, c.code ASC", direction)

	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}

// ExistsForStudentCourse reports whether any attendance was recorded for the pair.
func (r *AttendanceRepository) ExistsForStudentCourse(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM attendance WHERE student_id = $1 AND course_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, studentID, courseID); err != nil {
		return false, fmt.Errorf("check attendance: %w", err)
	}
	return exists, nil
}
