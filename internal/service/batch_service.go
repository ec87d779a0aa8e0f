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
	appErrors "github.com/noah-isme/ams-api/pkg/errors"
)

type batchRepository interface {
	List(ctx context.Context) ([]models.BatchSummary, error)
	FindByID(ctx context.Context, id string) (*models.BatchSummary, error)
	NameExists(ctx context.Context, name, excludeID string) (bool, error)
	Create(ctx context.Context, batch *models.Batch) error
	Update(ctx context.Context, batch *models.Batch) error
	Delete(ctx context.Context, id string) error
}

// BatchService manages student cohorts.
type BatchService struct {
	repo      batchRepository
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBatchService constructs a BatchService.
func NewBatchService(repo batchRepository, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *BatchService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns batches ordered by name with their dependent counts.
func (s *BatchService) List(ctx context.Context) ([]models.BatchSummary, error) {
	batches, err := s.repo.List(ctx)
	if err != nil {
		return nil, internal(err, "failed to list batches")
	}
	return batches, nil
}

// Get returns one batch.
func (s *BatchService) Get(ctx context.Context, id string) (*models.BatchSummary, error) {
	batch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "batch not found")
	}
	return batch, nil
}

// Create adds a batch with a unique trimmed name.
func (s *BatchService) Create(ctx context.Context, req dto.BatchRequest, actor models.Actor) (*models.Batch, error) {
	name, err := s.normalise(ctx, req, "")
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	batch := &models.Batch{ID: uuid.NewString(), Name: name, CreatedAt: now, UpdatedAt: now}
	if err := s.repo.Create(ctx, batch); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, conflict("name", "a batch with this name already exists")
		}
		return nil, internal(err, "failed to create batch")
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionCreate, "batches", batch.ID, nil, batch)
	return batch, nil
}

// Update renames a batch.
func (s *BatchService) Update(ctx context.Context, id string, req dto.BatchRequest, actor models.Actor) (*models.Batch, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "batch not found")
	}
	name, err := s.normalise(ctx, req, id)
	if err != nil {
		return nil, err
	}
	before := existing.Batch
	updated := existing.Batch
	updated.Name = name
	updated.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, &updated); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, conflict("name", "a batch with this name already exists")
		}
		return nil, internal(err, "failed to update batch")
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionUpdate, "batches", id, before, updated)
	return &updated, nil
}

// Delete removes an empty batch. Batches that still own students or courses
// are rejected.
func (s *BatchService) Delete(ctx context.Context, id string, actor models.Actor) error {
	batch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFound(err, "batch not found")
	}
	if batch.StudentsCount > 0 || batch.CoursesCount > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "Cannot delete this batch because it has students or courses assigned.")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if database.IsForeignKeyViolation(err) {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "Cannot delete this batch because it has students or courses assigned.")
		}
		return internal(err, "failed to delete batch")
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionDelete, "batches", id, batch.Batch, nil)
	return nil
}

func (s *BatchService) normalise(ctx context.Context, req dto.BatchRequest, excludeID string) (string, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return "", validationError(err, "invalid batch payload")
	}
	exists, err := s.repo.NameExists(ctx, req.Name, excludeID)
	if err != nil {
		return "", internal(err, "failed to check batch name")
	}
	if exists {
		return "", conflict("name", "a batch with this name already exists")
	}
	return req.Name, nil
}
