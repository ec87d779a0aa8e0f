package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ams-api/internal/models"
)

const courseDetailSelect = `SELECT c.id, c.code, c.name, c.credit_hours, c.batch_id, c.created_at, c.updated_at,
	b.name AS batch_name,
	(SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id) AS enrollments_count,
	(SELECT COUNT(*) FROM teacher_assignments ta WHERE ta.course_id = c.id) AS teachers_count
FROM courses c
JOIN batches b ON b.id = c.batch_id`

// CourseRepository handles persistence of courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses ordered by code, optionally scoped to a batch.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, error) {
	query := courseDetailSelect
	var args []interface{}
	if filter.BatchID != "" {
		query += ` WHERE c.batch_id = $1`
		args = append(args, filter.BatchID)
	}
	query += ` ORDER BY c.code ASC`

	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// FindByID returns a course.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, code, name, credit_hours, batch_id, created_at, updated_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}

// FindDetail returns a course with batch name and counts.
func (r *CourseRepository) FindDetail(ctx context.Context, id string) (*models.CourseDetail, error) {
	query := courseDetailSelect + ` WHERE c.id = $1`
	var course models.CourseDetail
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find course detail: %w", err)
	}
	return &course, nil
}

// CodeExists reports whether another course already uses the code.
func (r *CourseRepository) CodeExists(ctx context.Context, code, excludeID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM courses WHERE LOWER(code) = LOWER($1) AND id::text <> $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, code, excludeID); err != nil {
		return false, fmt.Errorf("check course code: %w", err)
	}
	return exists, nil
}

// Create inserts a course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, code, name, credit_hours, batch_id, created_at, updated_at) VALUES (:id, :code, :name, :credit_hours, :batch_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update modifies a course.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET code = :code, name = :name, credit_hours = :credit_hours, batch_id = :batch_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// CountBlockingDependents returns enrollment and attendance counts for a course.
func (r *CourseRepository) CountBlockingDependents(ctx context.Context, id string) (enrollments int, attendance int, err error) {
	const query = `SELECT
	(SELECT COUNT(*) FROM enrollments WHERE course_id = $1) AS enrollments,
	(SELECT COUNT(*) FROM attendance WHERE course_id = $1) AS attendance`
	var row struct {
		Enrollments int `db:"enrollments"`
		Attendance  int `db:"attendance"`
	}
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return 0, 0, fmt.Errorf("count course dependents: %w", err)
	}
	return row.Enrollments, row.Attendance, nil
}

// DeleteWithSchedule removes a course together with its teacher assignments
// and timetable slots.
func (r *CourseRepository) DeleteWithSchedule(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete course: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM teacher_assignments WHERE course_id = $1`, id); err != nil {
		return fmt.Errorf("delete course assignments: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM timetable_slots WHERE course_id = $1`, id); err != nil {
		return fmt.Errorf("delete course timetable: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete course: %w", err)
	}
	return nil
}

// ListForTeacher returns the courses assigned to a teacher ordered by code.
func (r *CourseRepository) ListForTeacher(ctx context.Context, teacherID string) ([]models.TeacherCourse, error) {
	const query = `SELECT c.id AS course_id, c.code, c.name, c.credit_hours, b.name AS batch_name,
	(SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id) AS students_count,
	(SELECT COUNT(DISTINCT ts.day_of_week) FROM timetable_slots ts WHERE ts.course_id = c.id) AS scheduled_days
FROM teacher_assignments ta
JOIN courses c ON c.id = ta.course_id
JOIN batches b ON b.id = c.batch_id
WHERE ta.teacher_id = $1
ORDER BY c.code ASC`
	var courses []models.TeacherCourse
	if err := r.db.SelectContext(ctx, &courses, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher courses: %w", err)
	}
	return courses, nil
}

// ListForStudent returns every course flagged with the student's enrollment state.
func (r *CourseRepository) ListForStudent(ctx context.Context, studentID string) ([]models.StudentCourse, error) {
	const query = `SELECT c.id AS course_id, c.code, c.name, c.credit_hours, b.name AS batch_name,
	EXISTS(SELECT 1 FROM enrollments e WHERE e.course_id = c.id AND e.student_id = $1) AS is_enrolled
FROM courses c
JOIN batches b ON b.id = c.batch_id
ORDER BY c.code ASC`
	var courses []models.StudentCourse
	if err := r.db.SelectContext(ctx, &courses, query, studentID); err != nil {
		return nil, fmt.Errorf("list student courses: %w", err)
	}
	return courses, nil
}
