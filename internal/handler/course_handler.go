package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ams-api/internal/dto"
	"github.com/noah-isme/ams-api/internal/models"
	"github.com/noah-isme/ams-api/internal/service"
	"github.com/noah-isme/ams-api/pkg/response"
)

// CourseHandler exposes the admin course catalogue.
type CourseHandler struct {
	courses *service.CourseService
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(courses *service.CourseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

// List godoc
// @Summary List courses
// @Tags Admin Courses
// @Produce json
// @Param batch_id query string false "Filter by batch"
// @Success 200 {object} response.Envelope{data=[]models.CourseDetail}
// @Router /admin/courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	courses, err := h.courses.List(c.Request.Context(), models.CourseFilter{BatchID: c.Query("batch_id")})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, courses)
}

// Get godoc
// @Summary Get course
// @Tags Admin Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope{data=models.CourseDetail}
// @Failure 404 {object} response.Envelope
// @Router /admin/courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.courses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, course)
}

// Create godoc
// @Summary Create course
// @Tags Admin Courses
// @Accept json
// @Produce json
// @Param payload body dto.CourseRequest true "Course payload"
// @Success 201 {object} response.Envelope{data=models.Course}
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req dto.CourseRequest
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.courses.Create(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update godoc
// @Summary Update course
// @Tags Admin Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body dto.CourseRequest true "Course payload"
// @Success 200 {object} response.Envelope{data=models.Course}
// @Router /admin/courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	var req dto.CourseRequest
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.courses.Update(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, course)
}

// Delete godoc
// @Summary Delete course
// @Description Removes a course without enrollments or attendance, together with its assignments and timetable
// @Tags Admin Courses
// @Param id path string true "Course ID"
// @Success 204
// @Failure 412 {object} response.Envelope
// @Router /admin/courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	if err := h.courses.Delete(c.Request.Context(), c.Param("id"), actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
