package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/ams-api/internal/dto"
	"github.com/noah-isme/ams-api/internal/models"
	appErrors "github.com/noah-isme/ams-api/pkg/errors"
)

type memoryUserRepo struct {
	users     map[string]*models.User
	deps      map[string]models.UserDependents
	deleted   []string
	auditLogs []*models.AuditLog
}

func newMemoryUserRepo(users ...*models.User) *memoryUserRepo {
	repo := &memoryUserRepo{users: make(map[string]*models.User), deps: make(map[string]models.UserDependents)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (m *memoryUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.UserDetail, int, error) {
	var out []models.UserDetail
	for _, u := range m.users {
		out = append(out, models.UserDetail{User: *u})
	}
	return out, len(out), nil
}

func (m *memoryUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryUserRepo) EmailExists(ctx context.Context, email, excludeID string) (bool, error) {
	for id, u := range m.users {
		if u.Email == email && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryUserRepo) Create(ctx context.Context, user *models.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *memoryUserRepo) Update(ctx context.Context, user *models.User) error {
	clone := *user
	m.users[user.ID] = &clone
	return nil
}

func (m *memoryUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	m.users[id].PasswordHash = passwordHash
	return nil
}

func (m *memoryUserRepo) CountDependents(ctx context.Context, id string) (*models.UserDependents, error) {
	deps := m.deps[id]
	return &deps, nil
}

func (m *memoryUserRepo) Delete(ctx context.Context, id string) error {
	delete(m.users, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *memoryUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func newUserFixture() (*UserService, *memoryUserRepo) {
	batch := "b1"
	repo := newMemoryUserRepo(
		&models.User{ID: "admin", Email: "admin@ams.local", Role: models.RoleAdmin},
		&models.User{ID: "t1", Email: "teacher@ams.local", Name: "T", Role: models.RoleTeacher},
		&models.User{ID: "s1", Email: "student@ams.local", Name: "S", Role: models.RoleStudent, BatchID: &batch},
	)
	batches := newMemoryBatchRepo(models.BatchSummary{Batch: models.Batch{ID: "b1", Name: "2024"}})
	return NewUserService(repo, batches, nil, nil), repo
}

func TestUserServiceCreateStudent(t *testing.T) {
	svc, repo := newUserFixture()

	user, err := svc.CreateStudent(context.Background(), dto.CreateStudentRequest{Name: " New ", Email: "New@AMS.local", Password: "password1", BatchID: "b1"}, models.Actor{ID: "admin"})
	require.NoError(t, err)
	assert.Equal(t, "new@ams.local", user.Email)
	assert.Equal(t, models.RoleStudent, user.Role)
	require.NotNil(t, user.BatchID)
	assert.NotContains(t, string(repo.auditLogs[0].NewValues), "password")

	_, err = svc.CreateStudent(context.Background(), dto.CreateStudentRequest{Name: "X", Email: "x@ams.local", Password: "password1", BatchID: "zz"}, models.Actor{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.CreateTeacher(context.Background(), dto.CreateTeacherRequest{Name: "Y", Email: "teacher@ams.local", Password: "password1"}, models.Actor{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUserServiceUpdate(t *testing.T) {
	svc, repo := newUserFixture()
	batch := "b1"
	newPassword := "changed-password"

	user, err := svc.Update(context.Background(), "t1", dto.UpdateUserRequest{Name: "Teacher", Email: "teacher@ams.local", BatchID: &batch, NewPassword: &newPassword}, models.Actor{})
	require.NoError(t, err)
	assert.Nil(t, user.BatchID)
	assert.Equal(t, models.RoleTeacher, user.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users["t1"].PasswordHash), []byte(newPassword)))

	_, err = svc.Update(context.Background(), "s1", dto.UpdateUserRequest{Name: "S", Email: "student@ams.local"}, models.Actor{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Update(context.Background(), "s1", dto.UpdateUserRequest{Name: "S", Email: "teacher@ams.local", BatchID: &batch}, models.Actor{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUserServiceDeleteGuards(t *testing.T) {
	svc, repo := newUserFixture()
	repo.deps["t1"] = models.UserDependents{Assignments: 1}

	err := svc.Delete(context.Background(), "admin", models.Actor{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)

	err = svc.Delete(context.Background(), "t1", models.Actor{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(context.Background(), "s1", models.Actor{}))
	assert.Equal(t, []string{"s1"}, repo.deleted)

	err = svc.Delete(context.Background(), "s1", models.Actor{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUserServiceListRejectsUnknownRole(t *testing.T) {
	svc, _ := newUserFixture()
	role := models.UserRole("SUPERADMIN")
	_, _, err := svc.List(context.Background(), models.UserFilter{Role: &role})
	require.Error(t, err)

	users, pagination, err := svc.List(context.Background(), models.UserFilter{PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, users, 3)
	assert.Equal(t, 20, pagination.PageSize)
}
