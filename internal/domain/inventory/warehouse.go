package inventory

import (
	"time"

	"github.com/google/uuid"
)

// Warehouse is a physical stock location shared by every channel
type Warehouse struct {
	ID        uuid.UUID
	Code      string
	Name      string
	IsDefault bool
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewWarehouse creates an active warehouse
func NewWarehouse(code, name string, isDefault bool) *Warehouse {
	now := time.Now()
	return &Warehouse{
		ID:        uuid.New(),
		Code:      code,
		Name:      name,
		IsDefault: isDefault,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// WarehousePreference routes a SKU to its priority warehouse
type WarehousePreference struct {
	SKU         string
	WarehouseID uuid.UUID
}
