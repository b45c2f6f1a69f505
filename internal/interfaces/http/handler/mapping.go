package handler

import (
	"github.com/gin-gonic/gin"
	appintegration "github.com/omnisync/backend/internal/application/integration"
)

// MappingHandler handles channel option to SKU mappings
type MappingHandler struct {
	BaseHandler
	mappings *appintegration.OptionMappingService
}

// NewMappingHandler creates a new MappingHandler
func NewMappingHandler(mappings *appintegration.OptionMappingService) *MappingHandler {
	return &MappingHandler{mappings: mappings}
}

// List lists the mappings of one channel.
// GET /mappings?channel=naver
func (h *MappingHandler) List(c *gin.Context) {
	ms, err := h.mappings.List(c.Request.Context(), c.Query("channel"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ms)
}

// Upsert creates or replaces the mapping of one channel option.
// POST /mappings
func (h *MappingHandler) Upsert(c *gin.Context) {
	var req appintegration.OptionMappingRequest
	if !h.BindJSON(c, &req) {
		return
	}
	m, err := h.mappings.Upsert(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, m)
}

// UpsertBatch upserts several mappings; failures are reported per item.
// POST /mappings/batch
func (h *MappingHandler) UpsertBatch(c *gin.Context) {
	var req appintegration.BatchOptionMappingRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.Success(c, h.mappings.UpsertBatch(c.Request.Context(), req.Mappings))
}
