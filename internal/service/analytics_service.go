package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ams-api/internal/models"
)

// Overview scopes.
const (
	ScopeAdmin   = "admin"
	ScopeTeacher = "teacher"
	ScopeStudent = "student"
)

// AnalyticsRepository describes the persistence layer required by AnalyticsService.
type AnalyticsRepository interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
	SystemCounts(ctx context.Context) (*models.SystemCounts, error)
}

// AnalyticsService provides read-optimised access to attendance overviews with cache integration.
type AnalyticsService struct {
	repo    AnalyticsRepository
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(repo AnalyticsRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{repo: repo, cache: cache, metrics: metrics, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// AdminOverview summarises every record plus head counts. The boolean
// indicates whether data originated from cache.
func (s *AnalyticsService) AdminOverview(ctx context.Context) (*models.AttendanceOverview, bool, error) {
	return s.overview(ctx, ScopeAdmin, "", models.AttendanceFilter{}, true)
}

// TeacherOverview summarises the records the teacher marked.
func (s *AnalyticsService) TeacherOverview(ctx context.Context, teacherID string) (*models.AttendanceOverview, bool, error) {
	return s.overview(ctx, ScopeTeacher, teacherID, models.AttendanceFilter{TeacherID: teacherID}, false)
}

// StudentOverview summarises the student's records in courses they are still enrolled in.
func (s *AnalyticsService) StudentOverview(ctx context.Context, studentID string) (*models.AttendanceOverview, bool, error) {
	return s.overview(ctx, ScopeStudent, studentID, models.AttendanceFilter{StudentID: studentID, EnrolledOnly: true}, false)
}

// SystemMetrics returns system instrumentation snapshot.
func (s *AnalyticsService) SystemMetrics() models.AnalyticsSystemMetrics {
	return s.metrics.Snapshot()
}

func (s *AnalyticsService) overview(ctx context.Context, scope, subjectID string, filter models.AttendanceFilter, withSystem bool) (*models.AttendanceOverview, bool, error) {
	return Remember(ctx, s.cache, AnalyticsKey(scope, subjectID), func(ctx context.Context) (*models.AttendanceOverview, error) {
		return s.buildOverview(ctx, scope, filter, withSystem)
	})
}

func (s *AnalyticsService) buildOverview(ctx context.Context, scope string, filter models.AttendanceFilter, withSystem bool) (*models.AttendanceOverview, error) {
	start := time.Now()
	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, internal(err, "failed to load attendance")
	}
	s.metrics.ObserveDBQuery("analytics_"+scope, time.Since(start))

	overview := &models.AttendanceOverview{
		Scope:       scope,
		Totals:      Totals(records),
		Courses:     SummarizeByCourse(records),
		GeneratedAt: s.now(),
	}
	if withSystem {
		counts, err := s.repo.SystemCounts(ctx)
		if err != nil {
			return nil, internal(err, "failed to count users and courses")
		}
		overview.System = counts
	}
	return overview, nil
}
