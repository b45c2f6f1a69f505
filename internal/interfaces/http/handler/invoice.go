package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/omnisync/backend/internal/application/fulfillment"
	"github.com/omnisync/backend/internal/domain/carrier"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/omnisync/backend/internal/interfaces/http/dto"
)

// retryBaseDelay is the first pause of a bulk write with retries
const retryBaseDelay = 500 * time.Millisecond

// InvoiceHandler handles tracking number writes, sends and CSV imports
type InvoiceHandler struct {
	BaseHandler
	saga       *fulfillment.InvoiceSaga
	dispatcher *fulfillment.Dispatcher
	importer   *fulfillment.Importer
	carriers   *carrier.Registry
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(
	saga *fulfillment.InvoiceSaga,
	dispatcher *fulfillment.Dispatcher,
	importer *fulfillment.Importer,
	carriers *carrier.Registry,
) *InvoiceHandler {
	if carriers == nil {
		carriers = carrier.Default()
	}
	return &InvoiceHandler{saga: saga, dispatcher: dispatcher, importer: importer, carriers: carriers}
}

// InvoiceBatchRequest is a bulk write. RetryAttempts > 1 re-runs only the failed entries.
type InvoiceBatchRequest struct {
	Entries       []fulfillment.InvoiceEntry `json:"entries" binding:"required,min=1,max=5000,dive"`
	RetryAttempts int                        `json:"retryAttempts" binding:"omitempty,min=1,max=5"`
}

// Write runs the invoice saga for one order.
// POST /orders/invoice
func (h *InvoiceHandler) Write(c *gin.Context) {
	var req fulfillment.InvoiceEntry
	if !h.BindJSON(c, &req) {
		return
	}
	h.itemResult(c, h.saga.Write(c.Request.Context(), req))
}

// UpdateLocal records a corrected tracking number without calling the channel.
// PUT /orders/invoice
func (h *InvoiceHandler) UpdateLocal(c *gin.Context) {
	var req fulfillment.InvoiceEntry
	if !h.BindJSON(c, &req) {
		return
	}
	h.itemResult(c, h.saga.UpdateInvoice(c.Request.Context(), req))
}

// WriteBatch runs one saga per entry.
// POST /orders/invoices
func (h *InvoiceHandler) WriteBatch(c *gin.Context) {
	var req InvoiceBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	if req.RetryAttempts > 1 {
		h.Success(c, h.saga.RetryFailed(ctx, req.Entries, req.RetryAttempts, retryBaseDelay))
		return
	}
	h.Success(c, h.saga.WriteBatch(ctx, req.Entries))
}

// Send pushes tracking numbers to the channels without the lock and
// deduction steps of the saga.
// POST /orders/invoices/send
func (h *InvoiceHandler) Send(c *gin.Context) {
	var req InvoiceBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.Success(c, h.dispatcher.SendInvoices(c.Request.Context(), req.Entries))
}

// Import validates an uploaded CSV and, with ?apply=true, writes the valid rows.
// The body is the raw CSV text or a multipart form with a "file" field.
// POST /orders/invoices/import
func (h *InvoiceHandler) Import(c *gin.Context) {
	apply, err := strconv.ParseBool(c.DefaultQuery("apply", "false"))
	if err != nil {
		h.BadRequest(c, "apply must be true or false")
		return
	}

	data, err := readUpload(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "upload exceeds maximum allowed size")
			return
		}
		h.BadRequest(c, err.Error())
		return
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		h.HandleError(c, shared.ErrInvalidInput.WithMessage("empty upload"))
		return
	}

	res, err := h.importer.Import(c.Request.Context(), data, apply)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// Template returns the sample upload CSV.
// GET /orders/invoices/template
func (h *InvoiceHandler) Template(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="invoice-template.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(h.importer.SampleCSV()))
}

// Carriers lists the supported carriers with their channel codes.
// GET /carriers
func (h *InvoiceHandler) Carriers(c *gin.Context) {
	h.Success(c, h.carriers.All())
}

func (h *InvoiceHandler) itemResult(c *gin.Context, res shared.ItemResult) {
	if res.Success {
		h.Success(c, res)
		return
	}
	c.JSON(http.StatusUnprocessableEntity, dto.Response{
		Success: false,
		Data:    res,
		Error:   &dto.ErrorInfo{Code: dto.ErrCodeInvalidState, Message: res.Error},
	})
}

func readUpload(c *gin.Context) ([]byte, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, err
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	return c.GetRawData()
}
