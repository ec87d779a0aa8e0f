package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ams-api/internal/dto"
	"github.com/noah-isme/ams-api/internal/models"
	"github.com/noah-isme/ams-api/internal/service"
	"github.com/noah-isme/ams-api/pkg/response"
)

// EnrollmentHandler exposes admin enrollment endpoints.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// List godoc
// @Summary List enrollments
// @Tags Admin Enrollments
// @Produce json
// @Param course_id query string false "Filter by course"
// @Param student_id query string false "Filter by student"
// @Success 200 {object} response.Envelope{data=[]models.EnrollmentDetail}
// @Router /admin/enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	filter := models.EnrollmentFilter{CourseID: c.Query("course_id"), StudentID: c.Query("student_id")}
	enrollments, err := h.enrollments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, enrollments)
}

// Create godoc
// @Summary Enroll student
// @Tags Admin Enrollments
// @Accept json
// @Produce json
// @Param payload body dto.EnrollmentRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope{data=models.Enrollment}
// @Failure 409 {object} response.Envelope
// @Router /admin/enrollments [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	var req dto.EnrollmentRequest
	if !bindJSON(c, &req) {
		return
	}
	enrollment, err := h.enrollments.Create(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Delete godoc
// @Summary Remove enrollment
// @Tags Admin Enrollments
// @Param id path string true "Enrollment ID"
// @Success 204
// @Failure 412 {object} response.Envelope
// @Router /admin/enrollments/{id} [delete]
func (h *EnrollmentHandler) Delete(c *gin.Context) {
	if err := h.enrollments.Delete(c.Request.Context(), c.Param("id"), actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
