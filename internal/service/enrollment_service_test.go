package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ams-api/internal/dto"
	"github.com/noah-isme/ams-api/internal/models"
	appErrors "github.com/noah-isme/ams-api/pkg/errors"
)

type memoryEnrollmentRepo struct {
	rows map[string]*models.Enrollment
}

func (m *memoryEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error) {
	var out []models.EnrollmentDetail
	for _, e := range m.rows {
		out = append(out, models.EnrollmentDetail{Enrollment: *e})
	}
	return out, nil
}

func (m *memoryEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.rows[id]; ok {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryEnrollmentRepo) FindByStudentCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	for _, e := range m.rows {
		if e.StudentID == studentID && e.CourseID == courseID {
			return e, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryEnrollmentRepo) Exists(ctx context.Context, studentID, courseID string) (bool, error) {
	_, err := m.FindByStudentCourse(ctx, studentID, courseID)
	return err == nil, nil
}

func (m *memoryEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	m.rows[enrollment.ID] = enrollment
	return nil
}

func (m *memoryEnrollmentRepo) Delete(ctx context.Context, id string) error {
	delete(m.rows, id)
	return nil
}

type stubPresence map[string]bool

func (s stubPresence) ExistsForStudentCourse(ctx context.Context, studentID, courseID string) (bool, error) {
	return s[studentID+"/"+courseID], nil
}

type stubUsers map[string]*models.User

func (s stubUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

type stubCourses map[string]*models.Course

func (s stubCourses) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := s[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func newEnrollmentFixture() (*EnrollmentService, *memoryEnrollmentRepo, stubPresence) {
	repo := &memoryEnrollmentRepo{rows: map[string]*models.Enrollment{
		"e1": {ID: "e1", StudentID: "s1", CourseID: "c1"},
	}}
	presence := stubPresence{}
	users := stubUsers{
		"s1": {ID: "s1", Role: models.RoleStudent},
		"s2": {ID: "s2", Role: models.RoleStudent},
		"t1": {ID: "t1", Role: models.RoleTeacher},
	}
	courses := stubCourses{"c1": {ID: "c1"}, "c2": {ID: "c2"}}
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, true)
	return NewEnrollmentService(repo, presence, users, courses, cache, &recordingAudit{}, nil, nil), repo, presence
}

func TestEnrollmentServiceCreate(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture()

	_, err := svc.Create(context.Background(), dto.EnrollmentRequest{StudentID: "s2", CourseID: "c1"}, models.Actor{})
	require.NoError(t, err)
	assert.Len(t, repo.rows, 2)

	cases := map[string]struct {
		req  dto.EnrollmentRequest
		code string
	}{
		"duplicate":      {dto.EnrollmentRequest{StudentID: "s1", CourseID: "c1"}, appErrors.ErrConflict.Code},
		"teacher":        {dto.EnrollmentRequest{StudentID: "t1", CourseID: "c1"}, appErrors.ErrValidation.Code},
		"unknown user":   {dto.EnrollmentRequest{StudentID: "x", CourseID: "c1"}, appErrors.ErrValidation.Code},
		"unknown course": {dto.EnrollmentRequest{StudentID: "s1", CourseID: "x"}, appErrors.ErrValidation.Code},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.req, models.Actor{})
			require.Error(t, err)
			assert.Equal(t, tc.code, appErrors.FromError(err).Code)
		})
	}
}

func TestEnrollmentServiceDeleteGuard(t *testing.T) {
	svc, repo, presence := newEnrollmentFixture()
	presence["s1/c1"] = true

	err := svc.Delete(context.Background(), "e1", models.Actor{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	assert.Contains(t, repo.rows, "e1")

	presence["s1/c1"] = false
	require.NoError(t, svc.Delete(context.Background(), "e1", models.Actor{}))
	assert.NotContains(t, repo.rows, "e1")
}

func TestEnrollmentServiceSelfEnrollIsIdempotent(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture()

	res, err := svc.Enroll(context.Background(), "s2", "c2")
	require.NoError(t, err)
	assert.False(t, res.AlreadyEnrolled)

	res, err = svc.Enroll(context.Background(), "s2", "c2")
	require.NoError(t, err)
	assert.True(t, res.AlreadyEnrolled)
	assert.Len(t, repo.rows, 2)

	_, err = svc.Enroll(context.Background(), "s2", "nope")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceUnenroll(t *testing.T) {
	svc, _, presence := newEnrollmentFixture()

	err := svc.Unenroll(context.Background(), "s2", "c1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	presence["s1/c1"] = true
	err = svc.Unenroll(context.Background(), "s1", "c1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}
