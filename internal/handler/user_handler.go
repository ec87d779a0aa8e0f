package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ams-api/internal/dto"
	"github.com/noah-isme/ams-api/internal/models"
	"github.com/noah-isme/ams-api/internal/service"
	"github.com/noah-isme/ams-api/pkg/response"
)

// UserHandler handles admin user management endpoints.
type UserHandler struct {
	service *service.UserService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{service: svc}
}

// List godoc
// @Summary List users
// @Description List users ordered by name with pagination and filtering
// @Tags Admin Users
// @Produce json
// @Param role query string false "ADMIN, TEACHER or STUDENT"
// @Param q query string false "Search name or email"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/users [get]
func (h *UserHandler) List(c *gin.Context) {
	filter := models.UserFilter{
		Search:   c.Query("q"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}
	if raw := strings.TrimSpace(c.Query("role")); raw != "" {
		role := models.UserRole(strings.ToUpper(raw))
		filter.Role = &role
	}

	users, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, pagination)
}

// Get godoc
// @Summary Get user
// @Tags Admin Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope{data=models.User}
// @Failure 404 {object} response.Envelope
// @Router /admin/users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, user)
}

// CreateTeacher godoc
// @Summary Create teacher
// @Tags Admin Users
// @Accept json
// @Produce json
// @Param payload body dto.CreateTeacherRequest true "Teacher payload"
// @Success 201 {object} response.Envelope{data=models.User}
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/users/teachers [post]
func (h *UserHandler) CreateTeacher(c *gin.Context) {
	var req dto.CreateTeacherRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.service.CreateTeacher(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

// CreateStudent godoc
// @Summary Create student
// @Tags Admin Users
// @Accept json
// @Produce json
// @Param payload body dto.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope{data=models.User}
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/users/students [post]
func (h *UserHandler) CreateStudent(c *gin.Context) {
	var req dto.CreateStudentRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.service.CreateStudent(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

// Update godoc
// @Summary Update user
// @Tags Admin Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body dto.UpdateUserRequest true "User payload"
// @Success 200 {object} response.Envelope{data=models.User}
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/users/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	var req dto.UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.service.Update(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, user)
}

// Delete godoc
// @Summary Delete user
// @Tags Admin Users
// @Param id path string true "User ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /admin/users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
