package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ams-api/internal/dto"
	"github.com/noah-isme/ams-api/internal/models"
	"github.com/noah-isme/ams-api/pkg/response"
)

type studentCourseLister interface {
	ListForStudent(ctx context.Context, studentID string) ([]models.StudentCourse, error)
}

type selfEnroller interface {
	Enroll(ctx context.Context, studentID, courseID string) (*dto.EnrollResult, error)
	Unenroll(ctx context.Context, studentID, courseID string) error
}

// StudentHandler serves the course catalogue and self-enrollment for students.
type StudentHandler struct {
	courses     studentCourseLister
	enrollments selfEnroller
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(courses studentCourseLister, enrollments selfEnroller) *StudentHandler {
	return &StudentHandler{courses: courses, enrollments: enrollments}
}

// Courses godoc
// @Summary Course catalogue
// @Description Every course ordered by code, flagged when the caller is enrolled
// @Tags Student
// @Produce json
// @Success 200 {object} response.Envelope{data=[]models.StudentCourse}
// @Router /student/courses [get]
func (h *StudentHandler) Courses(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	courses, err := h.courses.ListForStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, courses)
}

// Enroll godoc
// @Summary Enroll in a course
// @Description Idempotent. Returns 200 with already_enrolled when the enrollment exists.
// @Tags Student
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 201 {object} response.Envelope{data=dto.EnrollResult}
// @Success 200 {object} response.Envelope{data=dto.EnrollResult}
// @Failure 404 {object} response.Envelope
// @Router /student/courses/{courseId}/enroll [post]
func (h *StudentHandler) Enroll(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	result, err := h.enrollments.Enroll(c.Request.Context(), claims.UserID, c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusCreated
	if result.AlreadyEnrolled {
		status = http.StatusOK
	}
	response.JSON(c, status, result, nil)
}

// Unenroll godoc
// @Summary Leave a course
// @Tags Student
// @Param courseId path string true "Course ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /student/courses/{courseId}/enroll [delete]
func (h *StudentHandler) Unenroll(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if err := h.enrollments.Unenroll(c.Request.Context(), claims.UserID, c.Param("courseId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
