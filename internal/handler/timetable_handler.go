package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ams-api/internal/dto"
	"github.com/noah-isme/ams-api/internal/service"
	"github.com/noah-isme/ams-api/pkg/response"
)

// TimetableHandler exposes timetable slot endpoints.
type TimetableHandler struct {
	timetable *service.TimetableService
}

// NewTimetableHandler constructs TimetableHandler.
func NewTimetableHandler(timetable *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{timetable: timetable}
}

// List godoc
// @Summary List timetable slots
// @Tags Admin Timetable
// @Produce json
// @Param course_id query string false "Filter by course"
// @Success 200 {object} response.Envelope{data=[]models.TimetableSlotDetail}
// @Router /admin/timetable [get]
func (h *TimetableHandler) List(c *gin.Context) {
	slots, err := h.timetable.List(c.Request.Context(), c.Query("course_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, slots)
}

// Create godoc
// @Summary Create timetable slot
// @Tags Admin Timetable
// @Accept json
// @Produce json
// @Param payload body dto.TimetableSlotRequest true "Slot payload"
// @Success 201 {object} response.Envelope{data=models.TimetableSlot}
// @Failure 409 {object} response.Envelope
// @Router /admin/timetable [post]
func (h *TimetableHandler) Create(c *gin.Context) {
	var req dto.TimetableSlotRequest
	if !bindJSON(c, &req) {
		return
	}
	slot, err := h.timetable.Create(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// Update godoc
// @Summary Update timetable slot
// @Tags Admin Timetable
// @Accept json
// @Produce json
// @Param id path string true "Slot ID"
// @Param payload body dto.TimetableSlotRequest true "Slot payload"
// @Success 200 {object} response.Envelope{data=models.TimetableSlot}
// @Router /admin/timetable/{id} [put]
func (h *TimetableHandler) Update(c *gin.Context) {
	var req dto.TimetableSlotRequest
	if !bindJSON(c, &req) {
		return
	}
	slot, err := h.timetable.Update(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, slot)
}

// Delete godoc
// @Summary Delete timetable slot
// @Tags Admin Timetable
// @Param id path string true "Slot ID"
// @Success 204
// @Router /admin/timetable/{id} [delete]
func (h *TimetableHandler) Delete(c *gin.Context) {
	if err := h.timetable.Delete(c.Request.Context(), c.Param("id"), actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
