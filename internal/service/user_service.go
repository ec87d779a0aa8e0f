package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/ams-api/internal/dto"
	"github.com/noah-isme/ams-api/internal/models"
	"github.com/noah-isme/ams-api/pkg/database"
	appErrors "github.com/noah-isme/ams-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.UserDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	EmailExists(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	CountDependents(ctx context.Context, id string) (*models.UserDependents, error)
	Delete(ctx context.Context, id string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// userAuditView is what audit entries record about a user; never the hash.
type userAuditView struct {
	Email   string          `json:"email"`
	Name    string          `json:"name"`
	Role    models.UserRole `json:"role"`
	BatchID *string         `json:"batch_id,omitempty"`
}

func auditView(u *models.User) userAuditView {
	return userAuditView{Email: u.Email, Name: u.Name, Role: u.Role, BatchID: u.BatchID}
}

// UserService handles user management workflows.
type UserService struct {
	repo      userRepository
	batches   batchLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, batches batchLookup, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, batches: batches, validator: validate, logger: logger}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.UserDetail, *models.Pagination, error) {
	if filter.Role != nil && !filter.Role.Valid() {
		return nil, nil, invalid("role must be one of ADMIN, TEACHER, STUDENT")
	}
	filter.Search = strings.TrimSpace(filter.Search)
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internal(err, "failed to list users")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	return users, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user not found")
	}
	return user, nil
}

// CreateTeacher adds a TEACHER account.
func (s *UserService) CreateTeacher(ctx context.Context, req dto.CreateTeacherRequest, actor models.Actor) (*models.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normaliseEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid teacher payload")
	}
	return s.create(ctx, req.Name, req.Email, req.Password, models.RoleTeacher, nil, actor)
}

// CreateStudent adds a STUDENT account inside an existing batch.
func (s *UserService) CreateStudent(ctx context.Context, req dto.CreateStudentRequest, actor models.Actor) (*models.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normaliseEmail(req.Email)
	req.BatchID = strings.TrimSpace(req.BatchID)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student payload")
	}
	if err := s.requireBatch(ctx, req.BatchID); err != nil {
		return nil, err
	}
	batchID := req.BatchID
	return s.create(ctx, req.Name, req.Email, req.Password, models.RoleStudent, &batchID, actor)
}

// Update modifies profile fields. The role never changes; only students keep a batch.
func (s *UserService) Update(ctx context.Context, id string, req dto.UpdateUserRequest, actor models.Actor) (*models.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normaliseEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid update payload")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user not found")
	}
	before := auditView(user)

	if err := s.ensureEmailFree(ctx, req.Email, id); err != nil {
		return nil, err
	}

	var batchID *string
	if user.Role == models.RoleStudent {
		if req.BatchID == nil || strings.TrimSpace(*req.BatchID) == "" {
			return nil, invalid("batch_id is required for students")
		}
		trimmed := strings.TrimSpace(*req.BatchID)
		if err := s.requireBatch(ctx, trimmed); err != nil {
			return nil, err
		}
		batchID = &trimmed
	}

	user.Name = req.Name
	user.Email = req.Email
	user.BatchID = batchID
	if err := s.repo.Update(ctx, user); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, conflict("email", "email already exists")
		}
		return nil, internal(err, "failed to update user")
	}

	if req.NewPassword != nil && *req.NewPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, internal(err, "failed to hash password")
		}
		if err := s.repo.UpdatePassword(ctx, id, string(hash), time.Now().UTC()); err != nil {
			return nil, internal(err, "failed to update password")
		}
	}

	recordAudit(ctx, s.repo, s.logger, actor, models.AuditActionUpdate, "users", id, before, auditView(user))
	return user, nil
}

// Delete removes a user with no dependent rows. Admin accounts cannot be deleted.
func (s *UserService) Delete(ctx context.Context, id string, actor models.Actor) error {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFound(err, "user not found")
	}
	if user.Role == models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "The administrator account cannot be deleted.")
	}

	deps, err := s.repo.CountDependents(ctx, id)
	if err != nil {
		return internal(err, "failed to check user dependents")
	}
	if deps.Any() {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "Cannot delete this user because they have enrollments, attendance records or course assignments.")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if isNoRows(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return internal(err, "failed to delete user")
	}
	recordAudit(ctx, s.repo, s.logger, actor, models.AuditActionDelete, "users", id, auditView(user), nil)
	return nil
}

func (s *UserService) create(ctx context.Context, name, email, password string, role models.UserRole, batchID *string, actor models.Actor) (*models.User, error) {
	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, internal(err, "failed to hash password")
	}
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Role:         role,
		BatchID:      batchID,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, conflict("email", "email already exists")
		}
		return nil, internal(err, "failed to create user")
	}
	recordAudit(ctx, s.repo, s.logger, actor, models.AuditActionCreate, "users", user.ID, nil, auditView(user))
	return user, nil
}

func (s *UserService) ensureEmailFree(ctx context.Context, email, excludeID string) error {
	exists, err := s.repo.EmailExists(ctx, email, excludeID)
	if err != nil {
		return internal(err, "failed to check email uniqueness")
	}
	if exists {
		return conflict("email", "email already exists")
	}
	return nil
}

func (s *UserService) requireBatch(ctx context.Context, batchID string) error {
	if _, err := s.batches.FindByID(ctx, batchID); err != nil {
		if isNoRows(err) {
			return invalid("batch does not exist")
		}
		return internal(err, "failed to load batch")
	}
	return nil
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
