package inventory

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/shared"
)

// DeductionStatus is the lifecycle state of a deduction set
type DeductionStatus string

const (
	DeductionActive     DeductionStatus = "active"
	DeductionRolledBack DeductionStatus = "rolled_back"
)

// IsValid returns true if the status is known
func (s DeductionStatus) IsValid() bool {
	return s == DeductionActive || s == DeductionRolledBack
}

// ErrNoWarehouse is returned when neither a priority nor a default warehouse applies to a SKU
var ErrNoWarehouse = shared.NewDomainError("NO_WAREHOUSE", "no warehouse for SKU")

// DeductionSet groups the records written by one successful deduction of an
// order. At most one set per order key is active at any time.
type DeductionSet struct {
	ID           uuid.UUID
	OrderKey     string
	Status       DeductionStatus
	CreatedAt    time.Time
	RolledBackAt *time.Time
	Records      []DeductionRecord
}

// DeductionRecord is the immutable trace of one SKU leaving one warehouse
type DeductionRecord struct {
	ID          uuid.UUID
	SetID       uuid.UUID
	OrderKey    string
	SKU         string
	WarehouseID uuid.UUID
	Quantity    int
	StockBefore int
	StockAfter  int
	CreatedAt   time.Time
}

// IsActive reports whether the set still holds stock
func (s *DeductionSet) IsActive() bool {
	return s.Status == DeductionActive
}

// DeductionLine is one planned SKU decrement
type DeductionLine struct {
	SKU         string
	RecordID    uuid.UUID
	WarehouseID uuid.UUID
	Quantity    int
	StockBefore int
}

// PlanDeduction checks every SKU of an order against its resolved stock
// record. Any shortfall refuses the whole order: no partial plan is returned.
// Lines come back sorted by SKU so concurrent writers touch rows in the
// same order.
func PlanDeduction(demand map[string]int, records map[string]*StockRecord) ([]DeductionLine, error) {
	skus := make([]string, 0, len(demand))
	for sku := range demand {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	lines := make([]DeductionLine, 0, len(skus))
	for _, sku := range skus {
		qty := demand[sku]
		if qty < 1 {
			qty = 1
		}
		rec, ok := records[sku]
		if !ok || rec == nil {
			return nil, ErrNoWarehouse.WithMessage("no warehouse for SKU " + sku)
		}
		if !rec.CanDeduct(qty) {
			return nil, InsufficientStockError(sku, qty, rec.Available())
		}
		lines = append(lines, DeductionLine{
			SKU:         sku,
			RecordID:    rec.ID,
			WarehouseID: rec.WarehouseID,
			Quantity:    qty,
			StockBefore: rec.Quantity,
		})
	}
	return lines, nil
}

// InsufficientStockError builds the shortage error reported for a SKU
func InsufficientStockError(sku string, required, available int) error {
	return shared.ErrInsufficientStock.WithMessage(
		fmt.Sprintf("insufficient stock: %s: required %d, available %d", sku, required, available))
}

// NewDeductionSet builds an active set with one record per planned line
func NewDeductionSet(orderKey string, lines []DeductionLine, at time.Time) *DeductionSet {
	set := &DeductionSet{
		ID:        uuid.New(),
		OrderKey:  orderKey,
		Status:    DeductionActive,
		CreatedAt: at,
		Records:   make([]DeductionRecord, 0, len(lines)),
	}
	for _, l := range lines {
		set.Records = append(set.Records, DeductionRecord{
			ID:          uuid.New(),
			SetID:       set.ID,
			OrderKey:    orderKey,
			SKU:         l.SKU,
			WarehouseID: l.WarehouseID,
			Quantity:    l.Quantity,
			StockBefore: l.StockBefore,
			StockAfter:  l.StockBefore - l.Quantity,
			CreatedAt:   at,
		})
	}
	return set
}
