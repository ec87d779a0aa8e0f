package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ams-api/internal/middleware"
	"github.com/noah-isme/ams-api/internal/models"
	appErrors "github.com/noah-isme/ams-api/pkg/errors"
	"github.com/noah-isme/ams-api/pkg/response"
)

type analyticsService interface {
	AdminOverview(ctx context.Context) (*models.AttendanceOverview, bool, error)
	TeacherOverview(ctx context.Context, teacherID string) (*models.AttendanceOverview, bool, error)
	StudentOverview(ctx context.Context, studentID string) (*models.AttendanceOverview, bool, error)
	SystemMetrics() models.AnalyticsSystemMetrics
}

// AnalyticsHandler exposes dashboard-ready attendance overviews.
type AnalyticsHandler struct {
	analytics analyticsService
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(analytics analyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Admin godoc
// @Summary System-wide attendance overview
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope{data=models.AttendanceOverview}
// @Router /admin/analytics [get]
func (h *AnalyticsHandler) Admin(c *gin.Context) {
	h.respond(c, func(ctx context.Context, _ string) (*models.AttendanceOverview, bool, error) {
		return h.analytics.AdminOverview(ctx)
	})
}

// Teacher godoc
// @Summary Overview of records the caller marked
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope{data=models.AttendanceOverview}
// @Router /teacher/analytics [get]
func (h *AnalyticsHandler) Teacher(c *gin.Context) {
	h.respond(c, h.analytics.TeacherOverview)
}

// Student godoc
// @Summary Overview of the caller's attendance in enrolled courses
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope{data=models.AttendanceOverview}
// @Router /student/analytics [get]
func (h *AnalyticsHandler) Student(c *gin.Context) {
	h.respond(c, h.analytics.StudentOverview)
}

// System godoc
// @Summary Instrumentation snapshot
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope{data=models.AnalyticsSystemMetrics}
// @Router /admin/analytics/system [get]
func (h *AnalyticsHandler) System(c *gin.Context) {
	response.OK(c, h.analytics.SystemMetrics())
}

func (h *AnalyticsHandler) respond(c *gin.Context, load func(ctx context.Context, userID string) (*models.AttendanceOverview, bool, error)) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	overview, cacheHit, err := load(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, overview, nil, middleware.ExtractMeta(c))
}
