package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ams-api/internal/dto"
	"github.com/noah-isme/ams-api/internal/models"
	appErrors "github.com/noah-isme/ams-api/pkg/errors"
)

type memoryCourseRepo struct {
	courses  map[string]*models.Course
	blocking map[string][2]int
	deleted  []string
}

func (m *memoryCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, error) {
	var out []models.CourseDetail
	for _, c := range m.courses {
		out = append(out, models.CourseDetail{Course: *c})
	}
	return out, nil
}

func (m *memoryCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		clone := *c
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryCourseRepo) FindDetail(ctx context.Context, id string) (*models.CourseDetail, error) {
	c, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.CourseDetail{Course: *c}, nil
}

func (m *memoryCourseRepo) CodeExists(ctx context.Context, code, excludeID string) (bool, error) {
	for id, c := range m.courses {
		if c.Code == code && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryCourseRepo) Create(ctx context.Context, course *models.Course) error {
	m.courses[course.ID] = course
	return nil
}

func (m *memoryCourseRepo) Update(ctx context.Context, course *models.Course) error {
	clone := *course
	m.courses[course.ID] = &clone
	return nil
}

func (m *memoryCourseRepo) CountBlockingDependents(ctx context.Context, id string) (int, int, error) {
	counts := m.blocking[id]
	return counts[0], counts[1], nil
}

func (m *memoryCourseRepo) DeleteWithSchedule(ctx context.Context, id string) error {
	delete(m.courses, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *memoryCourseRepo) ListForStudent(ctx context.Context, studentID string) ([]models.StudentCourse, error) {
	return nil, nil
}

func newCourseFixture() (*CourseService, *memoryCourseRepo) {
	repo := &memoryCourseRepo{
		courses:  map[string]*models.Course{"c1": {ID: "c1", Code: "CS-101", Name: "Intro", CreditHours: 3, BatchID: "b1"}},
		blocking: make(map[string][2]int),
	}
	batches := newMemoryBatchRepo(models.BatchSummary{Batch: models.Batch{ID: "b1", Name: "2024"}})
	return NewCourseService(repo, batches, &recordingAudit{}, nil, nil), repo
}

func TestCourseServiceCreateDefaultsCreditHours(t *testing.T) {
	svc, _ := newCourseFixture()

	course, err := svc.Create(context.Background(), dto.CourseRequest{Code: " CS-201 ", Name: "Data Structures", BatchID: "b1"}, models.Actor{})
	require.NoError(t, err)
	assert.Equal(t, "CS-201", course.Code)
	assert.Equal(t, 3, course.CreditHours)
}

func TestCourseServiceCreateRejects(t *testing.T) {
	svc, repo := newCourseFixture()

	cases := map[string]struct {
		req  dto.CourseRequest
		code string
	}{
		"duplicate code": {dto.CourseRequest{Code: "CS-101", Name: "Again", BatchID: "b1"}, appErrors.ErrConflict.Code},
		"unknown batch":  {dto.CourseRequest{Code: "CS-301", Name: "X", BatchID: "nope"}, appErrors.ErrValidation.Code},
		"credit hours":   {dto.CourseRequest{Code: "CS-302", Name: "X", BatchID: "b1", CreditHours: 31}, appErrors.ErrValidation.Code},
		"missing name":   {dto.CourseRequest{Code: "CS-303", BatchID: "b1"}, appErrors.ErrValidation.Code},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.req, models.Actor{})
			require.Error(t, err)
			assert.Equal(t, tc.code, appErrors.FromError(err).Code)
		})
	}
	assert.Len(t, repo.courses, 1)
}

func TestCourseServiceUpdateKeepsOwnCode(t *testing.T) {
	svc, repo := newCourseFixture()

	course, err := svc.Update(context.Background(), "c1", dto.CourseRequest{Code: "CS-101", Name: "Introduction", CreditHours: 4, BatchID: "b1"}, models.Actor{})
	require.NoError(t, err)
	assert.Equal(t, "Introduction", course.Name)
	assert.Equal(t, 4, repo.courses["c1"].CreditHours)
}

func TestCourseServiceDeleteGuard(t *testing.T) {
	svc, repo := newCourseFixture()
	repo.blocking["c1"] = [2]int{0, 2}

	err := svc.Delete(context.Background(), "c1", models.Actor{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)

	repo.blocking["c1"] = [2]int{}
	require.NoError(t, svc.Delete(context.Background(), "c1", models.Actor{}))
	assert.Equal(t, []string{"c1"}, repo.deleted)
}
