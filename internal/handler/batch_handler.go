package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ams-api/internal/dto"
	"github.com/noah-isme/ams-api/internal/service"
	"github.com/noah-isme/ams-api/pkg/response"
)

// BatchHandler exposes batch endpoints.
type BatchHandler struct {
	batches *service.BatchService
}

// NewBatchHandler constructs BatchHandler.
func NewBatchHandler(batches *service.BatchService) *BatchHandler {
	return &BatchHandler{batches: batches}
}

// List godoc
// @Summary List batches
// @Tags Admin Batches
// @Produce json
// @Success 200 {object} response.Envelope{data=[]models.BatchSummary}
// @Router /admin/batches [get]
func (h *BatchHandler) List(c *gin.Context) {
	batches, err := h.batches.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, batches)
}

// Get godoc
// @Summary Get batch
// @Tags Admin Batches
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope{data=models.BatchSummary}
// @Failure 404 {object} response.Envelope
// @Router /admin/batches/{id} [get]
func (h *BatchHandler) Get(c *gin.Context) {
	batch, err := h.batches.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, batch)
}

// Create godoc
// @Summary Create batch
// @Tags Admin Batches
// @Accept json
// @Produce json
// @Param payload body dto.BatchRequest true "Batch payload"
// @Success 201 {object} response.Envelope{data=models.Batch}
// @Failure 409 {object} response.Envelope
// @Router /admin/batches [post]
func (h *BatchHandler) Create(c *gin.Context) {
	var req dto.BatchRequest
	if !bindJSON(c, &req) {
		return
	}
	batch, err := h.batches.Create(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, batch)
}

// Update godoc
// @Summary Rename batch
// @Tags Admin Batches
// @Accept json
// @Produce json
// @Param id path string true "Batch ID"
// @Param payload body dto.BatchRequest true "Batch payload"
// @Success 200 {object} response.Envelope{data=models.Batch}
// @Router /admin/batches/{id} [put]
func (h *BatchHandler) Update(c *gin.Context) {
	var req dto.BatchRequest
	if !bindJSON(c, &req) {
		return
	}
	batch, err := h.batches.Update(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, batch)
}

// Delete godoc
// @Summary Delete empty batch
// @Tags Admin Batches
// @Param id path string true "Batch ID"
// @Success 204
// @Failure 412 {object} response.Envelope
// @Router /admin/batches/{id} [delete]
func (h *BatchHandler) Delete(c *gin.Context) {
	if err := h.batches.Delete(c.Request.Context(), c.Param("id"), actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
