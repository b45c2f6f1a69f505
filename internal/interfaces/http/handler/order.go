package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	apporder "github.com/omnisync/backend/internal/application/order"
	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/omnisync/backend/internal/domain/integration"
	"github.com/omnisync/backend/internal/domain/order"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/omnisync/backend/internal/interfaces/http/dto"
)

// OrderSources resolves the pull adapter of a channel
type OrderSources interface {
	OrderSource(ch channel.Channel) (integration.OrderSource, error)
}

// OrderHandler handles the canonical order endpoints
type OrderHandler struct {
	BaseHandler
	orders  *apporder.Service
	sources OrderSources
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders *apporder.Service, sources OrderSources) *OrderHandler {
	return &OrderHandler{orders: orders, sources: sources}
}

// OrderQuery are the query parameters of GET /orders.
// Dates are KST calendar days.
type OrderQuery struct {
	Status      string `form:"status" binding:"omitempty,oneof=pending_payment preparing shipped delivered cancelled unknown"`
	Channel     string `form:"channel" binding:"omitempty,oneof=cafe24 naver coupang"`
	Search      string `form:"search" binding:"max=100"`
	DateFrom    string `form:"dateFrom" binding:"omitempty,datetime=2006-01-02"`
	DateTo      string `form:"dateTo" binding:"omitempty,datetime=2006-01-02"`
	SortBy      string `form:"sortBy" binding:"omitempty,oneof=ord_time total_amount to_name channel order_no"`
	SortOrder   string `form:"sortOrder" binding:"omitempty,oneof=asc desc"`
	Page        int    `form:"page" binding:"omitempty,min=1"`
	PageSize    int    `form:"pageSize" binding:"omitempty,min=1,max=200"`
	GlobalStats bool   `form:"globalStats"`
}

// Filter converts the query into a domain filter; newest first by default
func (q OrderQuery) Filter() order.Filter {
	f := order.Filter{
		Status:      order.Status(q.Status),
		Channel:     channel.Channel(q.Channel),
		Search:      q.Search,
		SortBy:      order.SortField(q.SortBy),
		SortDesc:    q.SortOrder != "asc",
		Page:        shared.Pagination{Page: q.Page, PageSize: q.PageSize},
		GlobalStats: q.GlobalStats,
	}
	if t, err := time.ParseInLocation("2006-01-02", q.DateFrom, shared.KST); err == nil {
		f.DateFrom = &t
	}
	if t, err := time.ParseInLocation("2006-01-02", q.DateTo, shared.KST); err == nil {
		f.DateTo = &t
	}
	return f
}

// SyncRequest bounds a channel pull; both ends default in the service
type SyncRequest struct {
	From *time.Time `json:"from"`
	To   *time.Time `json:"to"`
}

// StatusRequest sets the status of many orders
type StatusRequest struct {
	OrderKeys []string `json:"orderKeys" binding:"required,min=1,max=5000,dive,required"`
	Status    string   `json:"status" binding:"required,oneof=pending_payment preparing shipped delivered cancelled unknown"`
}

// Query returns one page of orders and the stats of the query.
// GET /orders
func (h *OrderHandler) Query(c *gin.Context) {
	var q OrderQuery
	if !h.BindQuery(c, &q) {
		return
	}

	page, err := h.orders.Query(c.Request.Context(), q.Filter())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, apporder.QueryResponse{
		Orders: apporder.ToOrderResponses(page.Orders),
		Stats:  page.Stats,
	}, page.Total, page.Page.Page, page.Page.PageSize)
}

// Get returns one order by key.
// GET /orders/:key
func (h *OrderHandler) Get(c *gin.Context) {
	o, err := h.orders.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, apporder.ToOrderResponse(o))
}

// Sync pulls the channel's orders and upserts them.
// POST /orders/sync/:channel
func (h *OrderHandler) Sync(c *gin.Context) {
	ch, err := channel.Parse(c.Param("channel"))
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var req SyncRequest
	if c.Request.ContentLength > 0 && !h.BindJSON(c, &req) {
		return
	}
	var from, to time.Time
	if req.From != nil {
		from = *req.From
	}
	if req.To != nil {
		to = *req.To
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		h.BadRequest(c, "to must not be before from")
		return
	}

	source, err := h.sources.OrderSource(ch)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	res, err := h.orders.Ingest(c.Request.Context(), source, from, to)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// UpdateStatus sets one status on many orders.
// POST /orders/status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req StatusRequest
	if !h.BindJSON(c, &req) {
		return
	}
	res, err := h.orders.BulkUpdateStatus(c.Request.Context(), req.OrderKeys, order.Status(req.Status))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// Delete hard-deletes many orders.
// POST /orders/delete
func (h *OrderHandler) Delete(c *gin.Context) {
	var req dto.OrderKeysRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.Success(c, h.orders.BulkDelete(c.Request.Context(), req.OrderKeys))
}
