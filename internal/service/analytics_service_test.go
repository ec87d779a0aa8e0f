package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ams-api/internal/models"
	appErrors "github.com/noah-isme/ams-api/pkg/errors"
)

type stubAnalyticsRepo struct {
	records []models.AttendanceRecord
	filters []models.AttendanceFilter
	listErr error
}

func (s *stubAnalyticsRepo) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	s.filters = append(s.filters, filter)
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.records, nil
}

func (s *stubAnalyticsRepo) SystemCounts(ctx context.Context) (*models.SystemCounts, error) {
	return &models.SystemCounts{Students: 10, Teachers: 2, Courses: 3}, nil
}

func TestAnalyticsServiceAdminOverviewCaches(t *testing.T) {
	repo := &stubAnalyticsRepo{records: []models.AttendanceRecord{
		record("s1", "A", "c1", "CS1", models.AttendancePresent),
		record("s2", "B", "c1", "CS1", models.AttendanceAbsent),
	}}
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, true)
	svc := NewAnalyticsService(repo, cache, NewMetricsService(), nil)

	overview, cached, err := svc.AdminOverview(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 50, overview.Totals.Percentage)
	require.NotNil(t, overview.System)
	assert.Equal(t, 10, overview.System.Students)

	again, cached, err := svc.AdminOverview(context.Background())
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, overview.Totals, again.Totals)
	assert.Len(t, repo.filters, 1)

	cache.InvalidateAnalytics(context.Background())
	_, cached, err = svc.AdminOverview(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
}

func TestAnalyticsServiceScopedFilters(t *testing.T) {
	repo := &stubAnalyticsRepo{}
	svc := NewAnalyticsService(repo, nil, nil, nil)

	teacher, _, err := svc.TeacherOverview(context.Background(), "t1")
	require.NoError(t, err)
	assert.Nil(t, teacher.System)
	assert.Empty(t, teacher.Courses)

	_, _, err = svc.StudentOverview(context.Background(), "s1")
	require.NoError(t, err)

	require.Len(t, repo.filters, 2)
	assert.Equal(t, "t1", repo.filters[0].TeacherID)
	assert.Equal(t, "s1", repo.filters[1].StudentID)
	assert.True(t, repo.filters[1].EnrolledOnly)
}

func TestAnalyticsServiceStoreFailure(t *testing.T) {
	repo := &stubAnalyticsRepo{listErr: errors.New("timeout")}
	svc := NewAnalyticsService(repo, nil, nil, nil)
	_, _, err := svc.TeacherOverview(context.Background(), "t1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
