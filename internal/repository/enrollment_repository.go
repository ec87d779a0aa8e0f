package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/ams-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollments ordered by course code then student name.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error) {
	query := `SELECT e.id, e.student_id, e.course_id, e.created_at,
	u.name AS student_name, u.email AS student_email, c.code AS course_code, c.name AS course_name
FROM enrollments e
JOIN users u ON u.id = e.student_id
JOIN courses c ON c.id = e.course_id`
	var conditions []string
	var args []interface{}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("e.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY c.code ASC, u.name ASC`

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// FindByID returns an enrollment.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, course_id, created_at FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &enrollment, nil
}

// FindByStudentCourse returns the enrollment for the pair.
func (r *EnrollmentRepository) FindByStudentCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, course_id, created_at FROM enrollments WHERE student_id = $1 AND course_id = $2`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment by pair: %w", err)
	}
	return &enrollment, nil
}

// Exists reports whether the student is enrolled in the course.
func (r *EnrollmentRepository) Exists(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, studentID, courseID); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return exists, nil
}

// Create inserts an enrollment.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	enrollment.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO enrollments (id, student_id, course_id, created_at) VALUES (:id, :student_id, :course_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Delete removes an enrollment.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return nil
}

// ListStudents returns the roster of a course ordered by name.
func (r *EnrollmentRepository) ListStudents(ctx context.Context, courseID string) ([]models.EnrolledStudent, error) {
	const query = `SELECT u.id AS student_id, u.name, u.email
FROM enrollments e
JOIN users u ON u.id = e.student_id
WHERE e.course_id = $1
ORDER BY u.name ASC, u.email ASC`
	var students []models.EnrolledStudent
	if err := r.db.SelectContext(ctx, &students, query, courseID); err != nil {
		return nil, fmt.Errorf("list course students: %w", err)
	}
	return students, nil
}

// EnrolledAmong returns the subset of studentIDs enrolled in the course.
func (r *EnrollmentRepository) EnrolledAmong(ctx context.Context, courseID string, studentIDs []string) ([]string, error) {
	const query = `SELECT student_id FROM enrollments WHERE course_id = $1 AND student_id::text = ANY($2)`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, courseID, pq.Array(studentIDs)); err != nil {
		return nil, fmt.Errorf("filter enrolled students: %w", err)
	}
	return ids, nil
}

// SharesCourseWithTeacher reports whether the student is enrolled in any course
// assigned to the teacher.
func (r *EnrollmentRepository) SharesCourseWithTeacher(ctx context.Context, studentID, teacherID string) (bool, error) {
	const query = `SELECT EXISTS(
	SELECT 1 FROM enrollments e
	JOIN teacher_assignments ta ON ta.course_id = e.course_id
	WHERE e.student_id = $1 AND ta.teacher_id = $2)`
	var ok bool
	if err := r.db.GetContext(ctx, &ok, query, studentID, teacherID); err != nil {
		return false, fmt.Errorf("check teacher student: %w", err)
	}
	return ok, nil
}

// ListStudentsForTeacher returns students enrolled in the teacher's courses with
// the number of shared courses, optionally filtered by name or email.
func (r *EnrollmentRepository) ListStudentsForTeacher(ctx context.Context, teacherID, search string) ([]models.TeacherStudent, error) {
	query := `SELECT u.id AS student_id, u.name, u.email, b.name AS batch_name, COUNT(DISTINCT e.course_id) AS shared_courses
FROM enrollments e
JOIN teacher_assignments ta ON ta.course_id = e.course_id
JOIN users u ON u.id = e.student_id
LEFT JOIN batches b ON b.id = u.batch_id
WHERE ta.teacher_id = $1`
	args := []interface{}{teacherID}
	if search = strings.TrimSpace(search); search != "" {
		query += ` AND (LOWER(u.name) LIKE $2 OR LOWER(u.email) LIKE $2)`
		args = append(args, "%"+strings.ToLower(search)+"%")
	}
	query += ` GROUP BY u.id, u.name, u.email, b.name ORDER BY shared_courses DESC, u.name ASC`

	var students []models.TeacherStudent
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list teacher students: %w", err)
	}
	return students, nil
}
