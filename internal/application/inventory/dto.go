package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/inventory"
)

// DeductionResult is the outcome for one order of a Deduct call
type DeductionResult struct {
	OrderKey        string     `json:"orderKey"`
	Success         bool       `json:"success"`
	AlreadyDeducted bool       `json:"alreadyDeducted,omitempty"`
	SetID           *uuid.UUID `json:"setId,omitempty"`
	Error           string     `json:"error,omitempty"`
}

// DeductionOutcome aggregates a Deduct call. Errors are "<orderKey>: <reason>".
type DeductionOutcome struct {
	SuccessCount int               `json:"successCount"`
	FailCount    int               `json:"failCount"`
	Errors       []string          `json:"errors"`
	Results      []DeductionResult `json:"results"`
}

func newDeductionOutcome(n int) *DeductionOutcome {
	return &DeductionOutcome{
		Errors:  make([]string, 0),
		Results: make([]DeductionResult, 0, n),
	}
}

func (o *DeductionOutcome) add(r DeductionResult) {
	if r.Success {
		o.SuccessCount++
	} else {
		o.FailCount++
		o.Errors = append(o.Errors, r.OrderKey+": "+r.Error)
	}
	o.Results = append(o.Results, r)
}

// Succeeded reports whether the order key was deducted (or already was)
func (o *DeductionOutcome) Succeeded(orderKey string) bool {
	for _, r := range o.Results {
		if r.OrderKey == orderKey {
			return r.Success
		}
	}
	return false
}

// Failure returns the reason recorded for a failed order key
func (o *DeductionOutcome) Failure(orderKey string) string {
	for _, r := range o.Results {
		if r.OrderKey == orderKey && !r.Success {
			return r.Error
		}
	}
	return ""
}

// DeductionRecordResponse is one SKU movement of a deduction set
type DeductionRecordResponse struct {
	ID          uuid.UUID `json:"id"`
	SKU         string    `json:"sku"`
	WarehouseID uuid.UUID `json:"warehouseId"`
	Quantity    int       `json:"quantity"`
	StockBefore int       `json:"stockBefore"`
	StockAfter  int       `json:"stockAfter"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DeductionSetResponse is a deduction set as shown by the history endpoint
type DeductionSetResponse struct {
	ID           uuid.UUID                 `json:"id"`
	OrderKey     string                    `json:"orderKey"`
	Status       string                    `json:"status"`
	CreatedAt    time.Time                 `json:"createdAt"`
	RolledBackAt *time.Time                `json:"rolledBackAt,omitempty"`
	Records      []DeductionRecordResponse `json:"records"`
}

// ToDeductionSetResponse converts a domain set
func ToDeductionSetResponse(s inventory.DeductionSet) DeductionSetResponse {
	records := make([]DeductionRecordResponse, 0, len(s.Records))
	for _, r := range s.Records {
		records = append(records, DeductionRecordResponse{
			ID:          r.ID,
			SKU:         r.SKU,
			WarehouseID: r.WarehouseID,
			Quantity:    r.Quantity,
			StockBefore: r.StockBefore,
			StockAfter:  r.StockAfter,
			CreatedAt:   r.CreatedAt,
		})
	}
	return DeductionSetResponse{
		ID:           s.ID,
		OrderKey:     s.OrderKey,
		Status:       string(s.Status),
		CreatedAt:    s.CreatedAt,
		RolledBackAt: s.RolledBackAt,
		Records:      records,
	}
}

// ---------------------------------------------------------------------------
// Warehouses and stock counts
// ---------------------------------------------------------------------------

// CreateWarehouseRequest registers a warehouse
type CreateWarehouseRequest struct {
	Code      string `json:"code" binding:"required,max=50"`
	Name      string `json:"name" binding:"max=100"`
	IsDefault bool   `json:"isDefault"`
}

// WarehouseResponse is the API view of a warehouse
type WarehouseResponse struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	IsDefault bool      `json:"isDefault"`
	IsActive  bool      `json:"isActive"`
}

// ToWarehouseResponse converts a domain warehouse
func ToWarehouseResponse(w *inventory.Warehouse) WarehouseResponse {
	return WarehouseResponse{
		ID:        w.ID,
		Code:      w.Code,
		Name:      w.Name,
		IsDefault: w.IsDefault,
		IsActive:  w.IsActive,
	}
}

// SetStockRequest records a physical count of one SKU in one warehouse
type SetStockRequest struct {
	WarehouseID uuid.UUID `json:"warehouseId" binding:"required"`
	SKU         string    `json:"sku" binding:"required,max=100"`
	Quantity    int       `json:"quantity" binding:"min=0"`
	SafetyStock *int      `json:"safetyStock" binding:"omitempty,min=0"`
	Reason      string    `json:"reason" binding:"max=200"`
}

// StockRecordResponse is the API view of a stock row
type StockRecordResponse struct {
	ID          uuid.UUID `json:"id"`
	WarehouseID uuid.UUID `json:"warehouseId"`
	SKU         string    `json:"sku"`
	Quantity    int       `json:"quantity"`
	Reserved    int       `json:"reserved"`
	Available   int       `json:"available"`
	SafetyStock int       `json:"safetyStock"`
	Version     int       `json:"version"`
}

// ToStockRecordResponse converts a domain stock record
func ToStockRecordResponse(r *inventory.StockRecord) StockRecordResponse {
	return StockRecordResponse{
		ID:          r.ID,
		WarehouseID: r.WarehouseID,
		SKU:         r.SKU,
		Quantity:    r.Quantity,
		Reserved:    r.Reserved,
		Available:   r.Available(),
		SafetyStock: r.SafetyStock,
		Version:     r.Version,
	}
}

// AvailabilityResponse is the sellable stock of a SKU across warehouses
type AvailabilityResponse struct {
	SKU       string `json:"sku"`
	Available int    `json:"available"`
}
