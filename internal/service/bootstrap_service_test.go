package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/ams-api/internal/models"
)

type memoryBootstrapRepo struct {
	users     []*models.User
	auditLogs []*models.AuditLog
}

func (m *memoryBootstrapRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryBootstrapRepo) ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error) {
	var out []models.User
	for _, u := range m.users {
		if u.Role == role {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memoryBootstrapRepo) Create(ctx context.Context, user *models.User) error {
	user.CreatedAt = time.Now().UTC()
	m.users = append(m.users, user)
	return nil
}

func (m *memoryBootstrapRepo) UpdateRole(ctx context.Context, id string, role models.UserRole) error {
	for _, u := range m.users {
		if u.ID == id {
			u.Role = role
		}
	}
	return nil
}

func (m *memoryBootstrapRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func (m *memoryBootstrapRepo) roles() map[string]models.UserRole {
	out := make(map[string]models.UserRole)
	for _, u := range m.users {
		out[u.Email] = u.Role
	}
	return out
}

var testSeed = SeedAdmin{Email: "Admin@AMS.local", Password: "Admin@12345", Name: "System Admin"}

func TestEnsureSingleAdminCreatesSeed(t *testing.T) {
	repo := &memoryBootstrapRepo{}
	svc := NewBootstrapService(repo, nil)

	report, err := svc.EnsureSingleAdmin(context.Background(), testSeed)
	require.NoError(t, err)
	assert.True(t, report.Created)
	require.Len(t, repo.users, 1)
	assert.Equal(t, "admin@ams.local", repo.users[0].Email)
	assert.Equal(t, models.RoleAdmin, repo.users[0].Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users[0].PasswordHash), []byte("Admin@12345")))
}

func TestEnsureSingleAdminPromotesAndDemotes(t *testing.T) {
	repo := &memoryBootstrapRepo{users: []*models.User{
		{ID: "u1", Email: "admin@ams.local", Role: models.RoleTeacher, PasswordHash: "keep"},
		{ID: "u2", Email: "rogue@ams.local", Role: models.RoleAdmin},
		{ID: "u3", Email: "student@ams.local", Role: models.RoleStudent},
	}}
	svc := NewBootstrapService(repo, nil)

	report, err := svc.EnsureSingleAdmin(context.Background(), testSeed)
	require.NoError(t, err)
	assert.True(t, report.Promoted)
	assert.Equal(t, []string{"u2"}, report.Demoted)
	assert.Equal(t, map[string]models.UserRole{
		"admin@ams.local":   models.RoleAdmin,
		"rogue@ams.local":   models.RoleNone,
		"student@ams.local": models.RoleStudent,
	}, repo.roles())
	assert.Equal(t, "keep", repo.users[0].PasswordHash)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionAdminDemoted, repo.auditLogs[0].Action)
	assert.JSONEq(t, `{"role":"NONE"}`, string(repo.auditLogs[0].NewValues))
	assert.Len(t, repo.users, 3)
}

func TestEnsureSingleAdminIsIdempotent(t *testing.T) {
	repo := &memoryBootstrapRepo{users: []*models.User{
		{ID: "u2", Email: "rogue@ams.local", Role: models.RoleAdmin},
	}}
	svc := NewBootstrapService(repo, nil)

	_, err := svc.EnsureSingleAdmin(context.Background(), testSeed)
	require.NoError(t, err)
	first := repo.roles()

	report, err := svc.EnsureSingleAdmin(context.Background(), testSeed)
	require.NoError(t, err)
	assert.False(t, report.Created)
	assert.False(t, report.Promoted)
	assert.Empty(t, report.Demoted)
	assert.Equal(t, first, repo.roles())
	assert.Len(t, repo.users, 2)
}

func TestEnsureSingleAdminRequiresCredentials(t *testing.T) {
	svc := NewBootstrapService(&memoryBootstrapRepo{}, nil)
	_, err := svc.EnsureSingleAdmin(context.Background(), SeedAdmin{Email: " "})
	assert.Error(t, err)
}
