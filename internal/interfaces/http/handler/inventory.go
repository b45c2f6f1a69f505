package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appinventory "github.com/omnisync/backend/internal/application/inventory"
	"github.com/omnisync/backend/internal/interfaces/http/dto"
)

// InventoryHandler handles deductions, warehouses and stock levels
type InventoryHandler struct {
	BaseHandler
	engine *appinventory.DeductionEngine
	stock  *appinventory.StockService
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(engine *appinventory.DeductionEngine, stock *appinventory.StockService) *InventoryHandler {
	return &InventoryHandler{engine: engine, stock: stock}
}

// PreferenceRequest pins a SKU to a warehouse
type PreferenceRequest struct {
	SKU         string    `json:"sku" binding:"required,max=100"`
	WarehouseID uuid.UUID `json:"warehouseId" binding:"required"`
}

// Deduct deducts stock for every listed order.
// POST /inventory/deduct
func (h *InventoryHandler) Deduct(c *gin.Context) {
	var req dto.OrderKeysRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.Success(c, h.engine.Deduct(c.Request.Context(), req.OrderKeys))
}

// Rollback restores the active deduction of every listed order.
// POST /inventory/rollback
func (h *InventoryHandler) Rollback(c *gin.Context) {
	var req dto.OrderKeysRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.Success(c, h.engine.BulkRollback(c.Request.Context(), req.OrderKeys))
}

// History lists the deduction sets of an order, newest first.
// GET /inventory/deductions/:key
func (h *InventoryHandler) History(c *gin.Context) {
	sets, err := h.engine.History(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sets)
}

// ListWarehouses lists warehouses.
// GET /inventory/warehouses
func (h *InventoryHandler) ListWarehouses(c *gin.Context) {
	ws, err := h.stock.ListWarehouses(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ws)
}

// CreateWarehouse creates a warehouse.
// POST /inventory/warehouses
func (h *InventoryHandler) CreateWarehouse(c *gin.Context) {
	var req appinventory.CreateWarehouseRequest
	if !h.BindJSON(c, &req) {
		return
	}
	w, err := h.stock.CreateWarehouse(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, w)
}

// SetStock records a stock count for one SKU in one warehouse.
// PUT /inventory/stock
func (h *InventoryHandler) SetStock(c *gin.Context) {
	var req appinventory.SetStockRequest
	if !h.BindJSON(c, &req) {
		return
	}
	rec, err := h.stock.SetStock(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rec)
}

// Available returns sellable quantities summed over active warehouses.
// GET /inventory/stock?sku=A&sku=B or ?skus=A,B
func (h *InventoryHandler) Available(c *gin.Context) {
	skus := c.QueryArray("sku")
	if joined := c.Query("skus"); joined != "" {
		skus = append(skus, strings.Split(joined, ",")...)
	}
	if len(skus) == 0 {
		h.BadRequest(c, "at least one sku is required")
		return
	}
	res, err := h.stock.Available(c.Request.Context(), skus)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// SetPreference pins the warehouse a SKU is deducted from first.
// PUT /inventory/preferences
func (h *InventoryHandler) SetPreference(c *gin.Context) {
	var req PreferenceRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if err := h.stock.SetPreference(c.Request.Context(), req.SKU, req.WarehouseID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
