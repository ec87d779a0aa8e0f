package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ams-api/internal/dto"
	"github.com/noah-isme/ams-api/internal/models"
	"github.com/noah-isme/ams-api/internal/service"
	"github.com/noah-isme/ams-api/pkg/response"
)

// AssignmentHandler exposes teacher-to-course assignment endpoints.
type AssignmentHandler struct {
	assignments *service.TeacherAssignmentService
}

// NewAssignmentHandler constructs AssignmentHandler.
func NewAssignmentHandler(assignments *service.TeacherAssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments}
}

// List godoc
// @Summary List teacher assignments
// @Tags Admin Assignments
// @Produce json
// @Param course_id query string false "Filter by course"
// @Param teacher_id query string false "Filter by teacher"
// @Success 200 {object} response.Envelope{data=[]models.TeacherAssignmentDetail}
// @Router /admin/assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	filter := models.TeacherAssignmentFilter{CourseID: c.Query("course_id"), TeacherID: c.Query("teacher_id")}
	assignments, err := h.assignments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, assignments)
}

// Create godoc
// @Summary Assign teacher to course
// @Tags Admin Assignments
// @Accept json
// @Produce json
// @Param payload body dto.AssignmentRequest true "Assignment payload"
// @Success 201 {object} response.Envelope{data=models.TeacherAssignment}
// @Failure 409 {object} response.Envelope
// @Router /admin/assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	var req dto.AssignmentRequest
	if !bindJSON(c, &req) {
		return
	}
	assignment, err := h.assignments.Create(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// Delete godoc
// @Summary Remove teacher assignment
// @Tags Admin Assignments
// @Param id path string true "Assignment ID"
// @Success 204
// @Router /admin/assignments/{id} [delete]
func (h *AssignmentHandler) Delete(c *gin.Context) {
	if err := h.assignments.Delete(c.Request.Context(), c.Param("id"), actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
