package models

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel provides common persistence fields for all models.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// EnsureID assigns a new id when none is set
func (m *BaseModel) EnsureID() {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
}

// All returns every model in dependency order, for AutoMigrate in tests
func All() []any {
	return []any{
		&OrderModel{},
		&OrderItemModel{},
		&WarehouseModel{},
		&WarehousePreferenceModel{},
		&StockRecordModel{},
		&DeductionSetModel{},
		&DeductionRecordModel{},
		&InventoryHistoryModel{},
		&OptionMappingModel{},
		&WorkflowModel{},
		&AllocationLogModel{},
	}
}
