package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// WarehouseRepository reads warehouses and SKU routing preferences
type WarehouseRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Warehouse, error)
	FindActive(ctx context.Context) ([]Warehouse, error)
	// FindDefault returns shared.ErrNotFound when no active default warehouse exists
	FindDefault(ctx context.Context) (*Warehouse, error)
	// Preferences returns the priority warehouse per SKU for the given SKUs
	Preferences(ctx context.Context, skus []string) (map[string]uuid.UUID, error)
	Save(ctx context.Context, w *Warehouse) error
	SavePreference(ctx context.Context, p WarehousePreference) error
}

// StockRepository reads and mutates per-warehouse stock
type StockRepository interface {
	// FindRecord returns shared.ErrNotFound when the warehouse holds no row for the SKU
	FindRecord(ctx context.Context, warehouseID uuid.UUID, sku string) (*StockRecord, error)
	Save(ctx context.Context, r *StockRecord) error

	// DecrementIfAvailable subtracts n only while quantity - reserved >= n.
	// It reports false when no row qualified.
	DecrementIfAvailable(ctx context.Context, recordID uuid.UUID, n int) (bool, error)

	// Increment adds n back to the warehouse's SKU row and returns the stock before and after
	Increment(ctx context.Context, warehouseID uuid.UUID, sku string, n int) (before, after int, err error)

	// AvailableBySKU sums available stock across active warehouses
	AvailableBySKU(ctx context.Context, skus []string) (map[string]int, error)
}

// DeductionRepository stores deduction sets and the movement journal
type DeductionRepository interface {
	// FindActiveSet returns shared.ErrNotFound when the order holds no active set
	FindActiveSet(ctx context.Context, orderKey string) (*DeductionSet, error)
	FindSets(ctx context.Context, orderKey string) ([]DeductionSet, error)
	// CreateSet stores the set with its records. It returns
	// shared.ErrAlreadyExists when another active set exists for the order.
	CreateSet(ctx context.Context, set *DeductionSet) error
	// MarkRolledBack flips an active set; false means it was no longer active
	MarkRolledBack(ctx context.Context, setID uuid.UUID, at time.Time) (bool, error)

	AppendHistory(ctx context.Context, entries []History) error
	FindHistory(ctx context.Context, orderKey string) ([]History, error)
}
