package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ams-api/internal/dto"
	"github.com/noah-isme/ams-api/pkg/response"
)

type reportService interface {
	TeacherCourseReport(ctx context.Context, teacherID, courseID string, rng dto.ReportRange) (*dto.CourseReport, error)
	ExportTeacherCourse(ctx context.Context, teacherID, courseID string, rng dto.ReportRange, format dto.ReportFormat) (*dto.ExportFile, error)
	TeacherStudentReport(ctx context.Context, teacherID, studentID string, rng dto.ReportRange) (*dto.StudentReport, error)
	ExportTeacherStudent(ctx context.Context, teacherID, studentID string, rng dto.ReportRange, format dto.ReportFormat) (*dto.ExportFile, error)
	StudentCourseReport(ctx context.Context, studentID, courseID string, rng dto.ReportRange) (*dto.MyCourseReport, error)
	ExportStudentCourse(ctx context.Context, studentID, courseID string, rng dto.ReportRange, format dto.ReportFormat) (*dto.ExportFile, error)
}

type formatParser func(raw string) (dto.ReportFormat, error)

// ReportHandler exposes attendance reports and their CSV/PDF downloads.
type ReportHandler struct {
	reports     reportService
	parseFormat formatParser
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports reportService, parseFormat formatParser) *ReportHandler {
	return &ReportHandler{reports: reports, parseFormat: parseFormat}
}

// TeacherCourse godoc
// @Summary Course attendance report
// @Description The caller's own records for an assigned course, newest first
// @Tags Teacher Reports
// @Produce json
// @Param courseId path string true "Course ID"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Success 200 {object} response.Envelope{data=dto.CourseReport}
// @Failure 403 {object} response.Envelope
// @Router /teacher/reports/courses/{courseId} [get]
func (h *ReportHandler) TeacherCourse(c *gin.Context) {
	userID, rng, ok := h.prepare(c)
	if !ok {
		return
	}
	report, err := h.reports.TeacherCourseReport(c.Request.Context(), userID, c.Param("courseId"), rng)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// ExportTeacherCourse godoc
// @Summary Download course attendance
// @Tags Teacher Reports
// @Produce text/csv
// @Produce application/pdf
// @Param courseId path string true "Course ID"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /teacher/reports/courses/{courseId}/export [get]
func (h *ReportHandler) ExportTeacherCourse(c *gin.Context) {
	userID, rng, ok := h.prepare(c)
	if !ok {
		return
	}
	format, ok := h.format(c)
	if !ok {
		return
	}
	h.send(c)(h.reports.ExportTeacherCourse(c.Request.Context(), userID, c.Param("courseId"), rng, format))
}

// TeacherStudent godoc
// @Summary Student attendance report
// @Description The caller's records for a student enrolled in one of their courses
// @Tags Teacher Reports
// @Produce json
// @Param studentId path string true "Student ID"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Success 200 {object} response.Envelope{data=dto.StudentReport}
// @Failure 403 {object} response.Envelope
// @Router /teacher/reports/students/{studentId} [get]
func (h *ReportHandler) TeacherStudent(c *gin.Context) {
	userID, rng, ok := h.prepare(c)
	if !ok {
		return
	}
	report, err := h.reports.TeacherStudentReport(c.Request.Context(), userID, c.Param("studentId"), rng)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// ExportTeacherStudent godoc
// @Summary Download student attendance
// @Tags Teacher Reports
// @Produce text/csv
// @Produce application/pdf
// @Param studentId path string true "Student ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /teacher/reports/students/{studentId}/export [get]
func (h *ReportHandler) ExportTeacherStudent(c *gin.Context) {
	userID, rng, ok := h.prepare(c)
	if !ok {
		return
	}
	format, ok := h.format(c)
	if !ok {
		return
	}
	h.send(c)(h.reports.ExportTeacherStudent(c.Request.Context(), userID, c.Param("studentId"), rng, format))
}

// StudentCourse godoc
// @Summary My attendance in a course
// @Tags Student Reports
// @Produce json
// @Param courseId path string true "Course ID"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Success 200 {object} response.Envelope{data=dto.MyCourseReport}
// @Failure 403 {object} response.Envelope
// @Router /student/reports/courses/{courseId} [get]
func (h *ReportHandler) StudentCourse(c *gin.Context) {
	userID, rng, ok := h.prepare(c)
	if !ok {
		return
	}
	report, err := h.reports.StudentCourseReport(c.Request.Context(), userID, c.Param("courseId"), rng)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// ExportStudentCourse godoc
// @Summary Download my attendance in a course
// @Tags Student Reports
// @Produce text/csv
// @Produce application/pdf
// @Param courseId path string true "Course ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /student/reports/courses/{courseId}/export [get]
func (h *ReportHandler) ExportStudentCourse(c *gin.Context) {
	userID, rng, ok := h.prepare(c)
	if !ok {
		return
	}
	format, ok := h.format(c)
	if !ok {
		return
	}
	h.send(c)(h.reports.ExportStudentCourse(c.Request.Context(), userID, c.Param("courseId"), rng, format))
}

// prepare returns the caller's user ID and the requested date range.
func (h *ReportHandler) prepare(c *gin.Context) (string, dto.ReportRange, bool) {
	claims := requireClaims(c)
	if claims == nil {
		return "", dto.ReportRange{}, false
	}
	rng, err := parseRange(c)
	if err != nil {
		response.Error(c, err)
		return "", dto.ReportRange{}, false
	}
	return claims.UserID, rng, true
}

func (h *ReportHandler) format(c *gin.Context) (dto.ReportFormat, bool) {
	if h.parseFormat == nil {
		return dto.ReportFormatCSV, true
	}
	format, err := h.parseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return "", false
	}
	return format, true
}

func (h *ReportHandler) send(c *gin.Context) func(*dto.ExportFile, error) {
	return func(file *dto.ExportFile, err error) {
		if err != nil {
			response.Error(c, err)
			return
		}
		response.File(c, file.Filename, file.ContentType, file.Body)
	}
}
