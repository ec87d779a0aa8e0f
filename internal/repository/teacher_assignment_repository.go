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

	"github.com/noah-isme/ams-api/internal/models"
)

// TeacherAssignmentRepository manages persistence of teacher course assignments.
type TeacherAssignmentRepository struct {
	db *sqlx.DB
}

// NewTeacherAssignmentRepository constructs the repository.
func NewTeacherAssignmentRepository(db *sqlx.DB) *TeacherAssignmentRepository {
	return &TeacherAssignmentRepository{db: db}
}

// List returns assignments ordered by course code then teacher name.
func (r *TeacherAssignmentRepository) List(ctx context.Context, filter models.TeacherAssignmentFilter) ([]models.TeacherAssignmentDetail, error) {
	query := `SELECT ta.id, ta.teacher_id, ta.course_id, ta.created_at,
	u.name AS teacher_name, u.email AS teacher_email, c.code AS course_code, c.name AS course_name
FROM teacher_assignments ta
JOIN users u ON u.id = ta.teacher_id
JOIN courses c ON c.id = ta.course_id`
	var conditions []string
	var args []interface{}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("ta.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("ta.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY c.code ASC, u.name ASC`

	var assignments []models.TeacherAssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, fmt.Errorf("list teacher assignments: %w", err)
	}
	return assignments, nil
}

// FindByID returns an assignment.
func (r *TeacherAssignmentRepository) FindByID(ctx context.Context, id string) (*models.TeacherAssignment, error) {
	const query = `SELECT id, teacher_id, course_id, created_at FROM teacher_assignments WHERE id = $1`
	var assignment models.TeacherAssignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find teacher assignment: %w", err)
	}
	return &assignment, nil
}

// IsAssigned reports whether the teacher is assigned to the course.
func (r *TeacherAssignmentRepository) IsAssigned(ctx context.Context, teacherID, courseID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM teacher_assignments WHERE teacher_id = $1 AND course_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, teacherID, courseID); err != nil {
		return false, fmt.Errorf("check teacher assignment: %w", err)
	}
	return exists, nil
}

// Create inserts an assignment.
func (r *TeacherAssignmentRepository) Create(ctx context.Context, assignment *models.TeacherAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	assignment.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO teacher_assignments (id, teacher_id, course_id, created_at) VALUES (:id, :teacher_id, :course_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create teacher assignment: %w", err)
	}
	return nil
}

// Delete removes an assignment.
func (r *TeacherAssignmentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM teacher_assignments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete teacher assignment: %w", err)
	}
	return nil
}
