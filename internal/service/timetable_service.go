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
)

type timetableRepository interface {
	List(ctx context.Context, courseID string) ([]models.TimetableSlotDetail, error)
	FindByID(ctx context.Context, id string) (*models.TimetableSlot, error)
	Exists(ctx context.Context, courseID string, day int, timeRange *string, excludeID string) (bool, error)
	Create(ctx context.Context, slot *models.TimetableSlot) error
	Update(ctx context.Context, slot *models.TimetableSlot) error
	Delete(ctx context.Context, id string) error
}

type courseLookup interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// TimetableService manages the weekdays on which courses meet.
type TimetableService struct {
	repo      timetableRepository
	courses   courseLookup
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimetableService constructs a TimetableService.
func NewTimetableService(repo timetableRepository, courses courseLookup, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{repo: repo, courses: courses, audit: audit, validator: validate, logger: logger}
}

// List returns slots ordered by course code then weekday.
func (s *TimetableService) List(ctx context.Context, courseID string) ([]models.TimetableSlotDetail, error) {
	slots, err := s.repo.List(ctx, courseID)
	if err != nil {
		return nil, internal(err, "failed to list timetable")
	}
	for i := range slots {
		slots[i].DayName = slots[i].Weekday().String()
	}
	return slots, nil
}

// Create adds a slot.
func (s *TimetableService) Create(ctx context.Context, req dto.TimetableSlotRequest, actor models.Actor) (*models.TimetableSlot, error) {
	req, err := s.prepare(ctx, req, "")
	if err != nil {
		return nil, err
	}
	slot := &models.TimetableSlot{
		ID:        uuid.NewString(),
		CourseID:  req.CourseID,
		DayOfWeek: *req.DayOfWeek,
		TimeRange: req.TimeRange,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, slot); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, duplicateSlot()
		}
		return nil, internal(err, "failed to create timetable slot")
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionCreate, "timetable_slots", slot.ID, nil, slot)
	return slot, nil
}

// Update edits a slot.
func (s *TimetableService) Update(ctx context.Context, id string, req dto.TimetableSlotRequest, actor models.Actor) (*models.TimetableSlot, error) {
	slot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "timetable slot not found")
	}
	req, err = s.prepare(ctx, req, id)
	if err != nil {
		return nil, err
	}
	before := *slot
	slot.CourseID = req.CourseID
	slot.DayOfWeek = *req.DayOfWeek
	slot.TimeRange = req.TimeRange
	if err := s.repo.Update(ctx, slot); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, duplicateSlot()
		}
		return nil, internal(err, "failed to update timetable slot")
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionUpdate, "timetable_slots", id, before, slot)
	return slot, nil
}

// Delete removes a slot.
func (s *TimetableService) Delete(ctx context.Context, id string, actor models.Actor) error {
	slot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFound(err, "timetable slot not found")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return internal(err, "failed to delete timetable slot")
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionDelete, "timetable_slots", id, slot, nil)
	return nil
}

func (s *TimetableService) prepare(ctx context.Context, req dto.TimetableSlotRequest, excludeID string) (dto.TimetableSlotRequest, error) {
	req.CourseID = strings.TrimSpace(req.CourseID)
	if req.TimeRange != nil {
		trimmed := strings.TrimSpace(*req.TimeRange)
		if trimmed == "" {
			req.TimeRange = nil
		} else {
			req.TimeRange = &trimmed
		}
	}
	if err := s.validator.Struct(req); err != nil {
		return req, validationError(err, "invalid timetable payload")
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return req, invalid("course does not exist")
		}
		return req, internal(err, "failed to load course")
	}
	exists, err := s.repo.Exists(ctx, req.CourseID, *req.DayOfWeek, req.TimeRange, excludeID)
	if err != nil {
		return req, internal(err, "failed to check timetable")
	}
	if exists {
		return req, duplicateSlot()
	}
	return req, nil
}

func duplicateSlot() error {
	return conflict("time_range", "this course already has a slot on that day and time")
}
