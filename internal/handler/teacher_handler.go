package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ams-api/internal/dto"
	"github.com/noah-isme/ams-api/internal/models"
	"github.com/noah-isme/ams-api/pkg/response"
)

type attendanceService interface {
	ListTeacherCourses(ctx context.Context, teacherID string) ([]models.TeacherCourse, error)
	AttendanceSheet(ctx context.Context, teacherID, courseID string, date time.Time) (*dto.AttendanceSheet, error)
	MarkAttendance(ctx context.Context, teacherID string, req dto.MarkAttendanceRequest) (*dto.MarkAttendanceResult, error)
}

type teacherStudentLister interface {
	TeacherStudents(ctx context.Context, teacherID, search string) ([]models.TeacherStudent, error)
}

// TeacherHandler serves the teacher's courses, attendance sheets and roster.
type TeacherHandler struct {
	attendance attendanceService
	students   teacherStudentLister
}

// NewTeacherHandler constructs TeacherHandler.
func NewTeacherHandler(attendance attendanceService, students teacherStudentLister) *TeacherHandler {
	return &TeacherHandler{attendance: attendance, students: students}
}

// Courses godoc
// @Summary List assigned courses
// @Tags Teacher
// @Produce json
// @Success 200 {object} response.Envelope{data=[]models.TeacherCourse}
// @Router /teacher/courses [get]
func (h *TeacherHandler) Courses(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	courses, err := h.attendance.ListTeacherCourses(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, courses)
}

// AttendanceSheet godoc
// @Summary Attendance sheet for a date
// @Description Enrolled students with the teacher's existing status for the date, PRESENT when unmarked
// @Tags Teacher
// @Produce json
// @Param courseId path string true "Course ID"
// @Param date query string false "YYYY-MM-DD, defaults to today"
// @Success 200 {object} response.Envelope{data=dto.AttendanceSheet}
// @Failure 403 {object} response.Envelope
// @Router /teacher/courses/{courseId}/attendance [get]
func (h *TeacherHandler) AttendanceSheet(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	date, err := parseDateQuery(c, "date")
	if err != nil {
		response.Error(c, err)
		return
	}
	var day time.Time
	if date != nil {
		day = *date
	}

	sheet, err := h.attendance.AttendanceSheet(c.Request.Context(), claims.UserID, c.Param("courseId"), day)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sheet)
}

// MarkAttendance godoc
// @Summary Mark attendance
// @Description Records one status per student. Re-marking the same date overwrites.
// @Tags Teacher
// @Accept json
// @Produce json
// @Param courseId path string true "Course ID"
// @Param payload body dto.MarkAttendanceRequest true "Attendance rows"
// @Success 200 {object} response.Envelope{data=dto.MarkAttendanceResult}
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /teacher/courses/{courseId}/attendance [post]
func (h *TeacherHandler) MarkAttendance(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.MarkAttendanceRequest
	if !bindJSON(c, &req) {
		return
	}
	req.CourseID = c.Param("courseId")

	result, err := h.attendance.MarkAttendance(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Students godoc
// @Summary Students in the teacher's courses
// @Tags Teacher
// @Produce json
// @Param q query string false "Search name or email"
// @Success 200 {object} response.Envelope{data=[]models.TeacherStudent}
// @Router /teacher/students [get]
func (h *TeacherHandler) Students(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	students, err := h.students.TeacherStudents(c.Request.Context(), claims.UserID, c.Query("q"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, students)
}
