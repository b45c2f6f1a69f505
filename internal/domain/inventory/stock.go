package inventory

import (
	"time"

	"github.com/google/uuid"
)

// StockRecord is the stock of one SKU in one warehouse
type StockRecord struct {
	ID          uuid.UUID
	WarehouseID uuid.UUID
	SKU         string
	Quantity    int
	Reserved    int
	SafetyStock int
	Version     int
	UpdatedAt   time.Time
}

// NewStockRecord creates a record with the given on-hand quantity
func NewStockRecord(warehouseID uuid.UUID, sku string, quantity int) *StockRecord {
	return &StockRecord{
		ID:          uuid.New(),
		WarehouseID: warehouseID,
		SKU:         sku,
		Quantity:    quantity,
		Version:     1,
		UpdatedAt:   time.Now(),
	}
}

// Available returns quantity minus reserved, never below zero
func (r *StockRecord) Available() int {
	if a := r.Quantity - r.Reserved; a > 0 {
		return a
	}
	return 0
}

// CanDeduct reports whether n units can leave the warehouse
func (r *StockRecord) CanDeduct(n int) bool {
	return n > 0 && r.Available() >= n
}

// IsBelowSafetyStock reports whether available stock sits under the threshold
func (r *StockRecord) IsBelowSafetyStock() bool {
	return r.SafetyStock > 0 && r.Available() < r.SafetyStock
}
