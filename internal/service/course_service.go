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

const defaultCreditHours = 3

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindDetail(ctx context.Context, id string) (*models.CourseDetail, error)
	CodeExists(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	CountBlockingDependents(ctx context.Context, id string) (int, int, error)
	DeleteWithSchedule(ctx context.Context, id string) error
	ListForStudent(ctx context.Context, studentID string) ([]models.StudentCourse, error)
}

type batchLookup interface {
	FindByID(ctx context.Context, id string) (*models.BatchSummary, error)
}

// CourseService manages the course catalogue.
type CourseService struct {
	repo      courseRepository
	batches   batchLookup
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs a CourseService.
func NewCourseService(repo courseRepository, batches batchLookup, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, batches: batches, audit: audit, validator: validate, logger: logger}
}

// List returns courses ordered by code, optionally within one batch.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, error) {
	courses, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, internal(err, "failed to list courses")
	}
	return courses, nil
}

// Get returns one course with its counts.
func (s *CourseService) Get(ctx context.Context, id string) (*models.CourseDetail, error) {
	course, err := s.repo.FindDetail(ctx, id)
	if err != nil {
		return nil, notFound(err, "course not found")
	}
	return course, nil
}

// ListForStudent returns every course with the student's enrollment flag.
func (s *CourseService) ListForStudent(ctx context.Context, studentID string) ([]models.StudentCourse, error) {
	courses, err := s.repo.ListForStudent(ctx, studentID)
	if err != nil {
		return nil, internal(err, "failed to list courses")
	}
	return courses, nil
}

// Create adds a course to an existing batch.
func (s *CourseService) Create(ctx context.Context, req dto.CourseRequest, actor models.Actor) (*models.Course, error) {
	req, err := s.prepare(ctx, req, "")
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	course := &models.Course{
		ID:          uuid.NewString(),
		Code:        req.Code,
		Name:        req.Name,
		CreditHours: req.CreditHours,
		BatchID:     req.BatchID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, conflict("code", "a course with this code already exists")
		}
		return nil, internal(err, "failed to create course")
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionCreate, "courses", course.ID, nil, course)
	return course, nil
}

// Update edits a course.
func (s *CourseService) Update(ctx context.Context, id string, req dto.CourseRequest, actor models.Actor) (*models.Course, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "course not found")
	}
	req, err = s.prepare(ctx, req, id)
	if err != nil {
		return nil, err
	}
	before := *existing
	existing.Code = req.Code
	existing.Name = req.Name
	existing.CreditHours = req.CreditHours
	existing.BatchID = req.BatchID
	if err := s.repo.Update(ctx, existing); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, conflict("code", "a course with this code already exists")
		}
		return nil, internal(err, "failed to update course")
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionUpdate, "courses", id, before, existing)
	return existing, nil
}

// Delete removes a course with no enrollments or attendance, together with
// its teacher assignments and timetable slots.
func (s *CourseService) Delete(ctx context.Context, id string, actor models.Actor) error {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFound(err, "course not found")
	}
	enrollments, attendance, err := s.repo.CountBlockingDependents(ctx, id)
	if err != nil {
		return internal(err, "failed to check course dependents")
	}
	if enrollments > 0 || attendance > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "Cannot delete this course because it has enrollments or attendance records.")
	}
	if err := s.repo.DeleteWithSchedule(ctx, id); err != nil {
		return internal(err, "failed to delete course")
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionDelete, "courses", id, course, nil)
	return nil
}

func (s *CourseService) prepare(ctx context.Context, req dto.CourseRequest, excludeID string) (dto.CourseRequest, error) {
	req.Code = strings.TrimSpace(req.Code)
	req.Name = strings.TrimSpace(req.Name)
	req.BatchID = strings.TrimSpace(req.BatchID)
	if req.CreditHours == 0 {
		req.CreditHours = defaultCreditHours
	}
	if err := s.validator.Struct(req); err != nil {
		return req, validationError(err, "invalid course payload")
	}
	if _, err := s.batches.FindByID(ctx, req.BatchID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return req, invalid("batch does not exist")
		}
		return req, internal(err, "failed to load batch")
	}
	exists, err := s.repo.CodeExists(ctx, req.Code, excludeID)
	if err != nil {
		return req, internal(err, "failed to check course code")
	}
	if exists {
		return req, conflict("code", "a course with this code already exists")
	}
	return req, nil
}
