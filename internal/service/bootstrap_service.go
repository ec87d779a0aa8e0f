package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/ams-api/internal/models"
)

type bootstrapUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateRole(ctx context.Context, id string, role models.UserRole) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// SeedAdmin designates the single administrator account.
type SeedAdmin struct {
	Email    string
	Password string
	Name     string
}

// BootstrapReport summarises what EnsureSingleAdmin changed.
type BootstrapReport struct {
	AdminID  string
	Created  bool
	Promoted bool
	Demoted  []string
}

// BootstrapService reconciles start-up invariants.
type BootstrapService struct {
	repo   bootstrapUserRepository
	logger *zap.Logger
}

// NewBootstrapService constructs a BootstrapService.
func NewBootstrapService(repo bootstrapUserRepository, logger *zap.Logger) *BootstrapService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BootstrapService{repo: repo, logger: logger}
}

// EnsureSingleAdmin makes the seed account the only ADMIN. It creates or
// promotes the seed account and strips the role from every other admin
// without granting another one. Running it again changes nothing.
func (s *BootstrapService) EnsureSingleAdmin(ctx context.Context, seed SeedAdmin) (*BootstrapReport, error) {
	email := normaliseEmail(seed.Email)
	if email == "" || seed.Password == "" {
		return nil, invalid("seed admin email and password are required")
	}
	name := strings.TrimSpace(seed.Name)
	if name == "" {
		name = "System Admin"
	}

	report := &BootstrapReport{}
	admin, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if admin.Role != models.RoleAdmin {
			if err := s.repo.UpdateRole(ctx, admin.ID, models.RoleAdmin); err != nil {
				return nil, internal(err, "failed to promote seed admin")
			}
			report.Promoted = true
			s.logger.Info("seed admin promoted", zap.String("user_id", admin.ID), zap.String("previous_role", string(admin.Role)))
		}
	case isNoRows(err):
		hash, hashErr := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.DefaultCost)
		if hashErr != nil {
			return nil, internal(hashErr, "failed to hash seed admin password")
		}
		admin = &models.User{ID: uuid.NewString(), Email: email, PasswordHash: string(hash), Name: name, Role: models.RoleAdmin}
		if err := s.repo.Create(ctx, admin); err != nil {
			return nil, internal(err, "failed to create seed admin")
		}
		report.Created = true
		s.logger.Info("seed admin created", zap.String("user_id", admin.ID), zap.String("email", email))
	default:
		return nil, internal(err, "failed to load seed admin")
	}
	report.AdminID = admin.ID

	admins, err := s.repo.ListByRole(ctx, models.RoleAdmin)
	if err != nil {
		return nil, internal(err, "failed to list admins")
	}
	for _, other := range admins {
		if other.ID == admin.ID {
			continue
		}
		if err := s.repo.UpdateRole(ctx, other.ID, models.RoleNone); err != nil {
			return nil, internal(err, "failed to demote admin")
		}
		report.Demoted = append(report.Demoted, other.ID)
		s.logger.Warn("admin demoted", zap.String("user_id", other.ID), zap.String("email", other.Email))
		recordAudit(ctx, s.repo, s.logger, models.Actor{}, models.AuditActionAdminDemoted, "users", other.ID,
			map[string]string{"role": string(models.RoleAdmin)}, map[string]string{"role": string(models.RoleNone)})
	}
	return report, nil
}
