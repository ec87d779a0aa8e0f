package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/ams-api/internal/dto"
	"github.com/noah-isme/ams-api/internal/models"
	"github.com/noah-isme/ams-api/pkg/database"
	appErrors "github.com/noah-isme/ams-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindByStudentCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	Exists(ctx context.Context, studentID, courseID string) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Delete(ctx context.Context, id string) error
}

type attendancePresence interface {
	ExistsForStudentCourse(ctx context.Context, studentID, courseID string) (bool, error)
}

type roleUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// EnrollmentService orchestrates enrollment workflows for admins and students.
type EnrollmentService struct {
	repo       enrollmentRepository
	attendance attendancePresence
	users      roleUserReader
	courses    courseLookup
	cache      *CacheService
	audit      auditWriter
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(
	repo enrollmentRepository,
	attendance attendancePresence,
	users roleUserReader,
	courses courseLookup,
	cache *CacheService,
	audit auditWriter,
	validate *validator.Validate,
	logger *zap.Logger,
) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:       repo,
		attendance: attendance,
		users:      users,
		courses:    courses,
		cache:      cache,
		audit:      audit,
		validator:  validate,
		logger:     logger,
	}
}

// List returns enrollments ordered by course code then student name.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error) {
	enrollments, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, internal(err, "failed to list enrollments")
	}
	return enrollments, nil
}

// Create enrolls a student on behalf of an admin.
func (s *EnrollmentService) Create(ctx context.Context, req dto.EnrollmentRequest, actor models.Actor) (*models.Enrollment, error) {
	req.StudentID = strings.TrimSpace(req.StudentID)
	req.CourseID = strings.TrimSpace(req.CourseID)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid enrollment payload")
	}
	if err := s.requireCourse(ctx, req.CourseID, true); err != nil {
		return nil, err
	}
	if err := requireRole(ctx, s.users, req.StudentID, models.RoleStudent, "student"); err != nil {
		return nil, err
	}
	exists, err := s.repo.Exists(ctx, req.StudentID, req.CourseID)
	if err != nil {
		return nil, internal(err, "failed to check enrollment")
	}
	if exists {
		return nil, conflict("course_id", "student is already enrolled in this course")
	}

	enrollment, err := s.insert(ctx, req.StudentID, req.CourseID)
	if err != nil {
		return nil, err
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionCreate, "enrollments", enrollment.ID, nil, enrollment)
	return enrollment, nil
}

// Delete removes an enrollment that has no attendance recorded.
func (s *EnrollmentService) Delete(ctx context.Context, id string, actor models.Actor) error {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFound(err, "enrollment not found")
	}
	if err := s.remove(ctx, enrollment); err != nil {
		return err
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionDelete, "enrollments", id, enrollment, nil)
	return nil
}

// Enroll self-enrolls a student. Enrolling twice is not an error.
func (s *EnrollmentService) Enroll(ctx context.Context, studentID, courseID string) (*dto.EnrollResult, error) {
	if err := s.requireCourse(ctx, courseID, false); err != nil {
		return nil, err
	}
	existing, err := s.repo.FindByStudentCourse(ctx, studentID, courseID)
	if err == nil {
		return &dto.EnrollResult{Enrollment: existing, AlreadyEnrolled: true}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, internal(err, "failed to check enrollment")
	}

	enrollment, err := s.insert(ctx, studentID, courseID)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrConflict) {
			if existing, findErr := s.repo.FindByStudentCourse(ctx, studentID, courseID); findErr == nil {
				return &dto.EnrollResult{Enrollment: existing, AlreadyEnrolled: true}, nil
			}
		}
		return nil, err
	}
	return &dto.EnrollResult{Enrollment: enrollment}, nil
}

// Unenroll removes a student's own enrollment while no attendance exists for it.
func (s *EnrollmentService) Unenroll(ctx context.Context, studentID, courseID string) error {
	enrollment, err := s.repo.FindByStudentCourse(ctx, studentID, courseID)
	if err != nil {
		return notFound(err, "you are not enrolled in this course")
	}
	return s.remove(ctx, enrollment)
}

func (s *EnrollmentService) insert(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	enrollment := &models.Enrollment{
		ID:        uuid.NewString(),
		StudentID: studentID,
		CourseID:  courseID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, conflict("course_id", "student is already enrolled in this course")
		}
		return nil, internal(err, "failed to create enrollment")
	}
	s.cache.InvalidateAnalytics(ctx)
	return enrollment, nil
}

func (s *EnrollmentService) remove(ctx context.Context, enrollment *models.Enrollment) error {
	hasAttendance, err := s.attendance.ExistsForStudentCourse(ctx, enrollment.StudentID, enrollment.CourseID)
	if err != nil {
		return internal(err, "failed to check attendance")
	}
	if hasAttendance {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "Cannot remove this enrollment because attendance has already been recorded.")
	}
	if err := s.repo.Delete(ctx, enrollment.ID); err != nil {
		return internal(err, "failed to delete enrollment")
	}
	s.cache.InvalidateAnalytics(ctx)
	return nil
}

// requireCourse maps a missing course to 400 for admin payloads and to 404
// for path parameters.
func (s *EnrollmentService) requireCourse(ctx context.Context, courseID string, payload bool) error {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if payload {
				return invalid("course does not exist")
			}
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return internal(err, "failed to load course")
	}
	return nil
}

func requireRole(ctx context.Context, users roleUserReader, id string, role models.UserRole, label string) error {
	user, err := users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return invalid(label + " does not exist")
		}
		return internal(err, "failed to load "+label)
	}
	if user.Role != role {
		return invalid("user is not a " + label)
	}
	return nil
}
