package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/ams-api/internal/dto"
	"github.com/noah-isme/ams-api/internal/models"
	"github.com/noah-isme/ams-api/pkg/database"
)

type teacherAssignmentRepo interface {
	List(ctx context.Context, filter models.TeacherAssignmentFilter) ([]models.TeacherAssignmentDetail, error)
	FindByID(ctx context.Context, id string) (*models.TeacherAssignment, error)
	IsAssigned(ctx context.Context, teacherID, courseID string) (bool, error)
	Create(ctx context.Context, assignment *models.TeacherAssignment) error
	Delete(ctx context.Context, id string) error
}

// TeacherAssignmentService manages which teachers may mark which courses.
type TeacherAssignmentService struct {
	repo      teacherAssignmentRepo
	users     roleUserReader
	courses   courseLookup
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherAssignmentService constructs the service.
func NewTeacherAssignmentService(repo teacherAssignmentRepo, users roleUserReader, courses courseLookup, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *TeacherAssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherAssignmentService{repo: repo, users: users, courses: courses, audit: audit, validator: validate, logger: logger}
}

// List returns assignments filtered by course or teacher.
func (s *TeacherAssignmentService) List(ctx context.Context, filter models.TeacherAssignmentFilter) ([]models.TeacherAssignmentDetail, error) {
	assignments, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, internal(err, "failed to list assignments")
	}
	return assignments, nil
}

// Create assigns a teacher to a course.
func (s *TeacherAssignmentService) Create(ctx context.Context, req dto.AssignmentRequest, actor models.Actor) (*models.TeacherAssignment, error) {
	req.TeacherID = strings.TrimSpace(req.TeacherID)
	req.CourseID = strings.TrimSpace(req.CourseID)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid assignment payload")
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if isNoRows(err) {
			return nil, invalid("course does not exist")
		}
		return nil, internal(err, "failed to load course")
	}
	if err := requireRole(ctx, s.users, req.TeacherID, models.RoleTeacher, "teacher"); err != nil {
		return nil, err
	}
	assigned, err := s.repo.IsAssigned(ctx, req.TeacherID, req.CourseID)
	if err != nil {
		return nil, internal(err, "failed to check assignment")
	}
	if assigned {
		return nil, conflict("course_id", "teacher is already assigned to this course")
	}

	assignment := &models.TeacherAssignment{
		ID:        uuid.NewString(),
		TeacherID: req.TeacherID,
		CourseID:  req.CourseID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, assignment); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, conflict("course_id", "teacher is already assigned to this course")
		}
		return nil, internal(err, "failed to create assignment")
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionCreate, "teacher_assignments", assignment.ID, nil, assignment)
	return assignment, nil
}

// Delete removes an assignment. Attendance already marked by the teacher is kept.
func (s *TeacherAssignmentService) Delete(ctx context.Context, id string, actor models.Actor) error {
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFound(err, "assignment not found")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return internal(err, "failed to delete assignment")
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionDelete, "teacher_assignments", id, assignment, nil)
	return nil
}
