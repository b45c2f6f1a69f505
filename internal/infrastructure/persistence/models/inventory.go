package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/inventory"
)

// WarehouseModel is the persistence model for a warehouse
type WarehouseModel struct {
	BaseModel
	Code      string `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name      string `gorm:"type:varchar(100);not null"`
	IsDefault bool   `gorm:"not null;default:false"`
	IsActive  bool   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (WarehouseModel) TableName() string {
	return "warehouses"
}

// ToDomain converts the persistence model to a domain Warehouse
func (m *WarehouseModel) ToDomain() *inventory.Warehouse {
	return &inventory.Warehouse{
		ID:        m.ID,
		Code:      m.Code,
		Name:      m.Name,
		IsDefault: m.IsDefault,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// WarehouseModelFromDomain creates a persistence model from a domain Warehouse
func WarehouseModelFromDomain(w *inventory.Warehouse) *WarehouseModel {
	return &WarehouseModel{
		BaseModel: BaseModel{ID: w.ID, CreatedAt: w.CreatedAt, UpdatedAt: w.UpdatedAt},
		Code:      w.Code,
		Name:      w.Name,
		IsDefault: w.IsDefault,
		IsActive:  w.IsActive,
	}
}

// WarehousePreferenceModel routes a SKU to its priority warehouse
type WarehousePreferenceModel struct {
	SKU         string    `gorm:"column:sku;type:varchar(100);primary_key"`
	WarehouseID uuid.UUID `gorm:"type:uuid;not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (WarehousePreferenceModel) TableName() string {
	return "product_warehouse_preferences"
}

// StockRecordModel is the stock of one SKU in one warehouse
type StockRecordModel struct {
	BaseModel
	WarehouseID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_records_wh_sku,priority:1"`
	SKU         string    `gorm:"column:sku;type:varchar(100);not null;uniqueIndex:idx_inventory_records_wh_sku,priority:2;index"`
	Quantity    int       `gorm:"not null;default:0"`
	Reserved    int       `gorm:"not null;default:0"`
	SafetyStock int       `gorm:"not null;default:0"`
	Version     int       `gorm:"not null;default:1"`
}

// TableName returns the table name for GORM
func (StockRecordModel) TableName() string {
	return "inventory_records"
}

// ToDomain converts the persistence model to a domain StockRecord
func (m *StockRecordModel) ToDomain() *inventory.StockRecord {
	return &inventory.StockRecord{
		ID:          m.ID,
		WarehouseID: m.WarehouseID,
		SKU:         m.SKU,
		Quantity:    m.Quantity,
		Reserved:    m.Reserved,
		SafetyStock: m.SafetyStock,
		Version:     m.Version,
		UpdatedAt:   m.UpdatedAt,
	}
}

// StockRecordModelFromDomain creates a persistence model from a domain StockRecord
func StockRecordModelFromDomain(r *inventory.StockRecord) *StockRecordModel {
	m := &StockRecordModel{
		BaseModel:   BaseModel{ID: r.ID, UpdatedAt: r.UpdatedAt},
		WarehouseID: r.WarehouseID,
		SKU:         r.SKU,
		Quantity:    r.Quantity,
		Reserved:    r.Reserved,
		SafetyStock: r.SafetyStock,
		Version:     r.Version,
	}
	m.CreatedAt = r.UpdatedAt
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = time.Now()
		m.CreatedAt = m.UpdatedAt
	}
	return m
}

// DeductionSetModel groups the records of one order deduction.
// Postgres adds a partial unique index on order_key WHERE status = 'active'.
type DeductionSetModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key"`
	OrderKey     string    `gorm:"type:varchar(150);not null;index"`
	Status       string    `gorm:"type:varchar(20);not null"`
	CreatedAt    time.Time `gorm:"not null"`
	RolledBackAt *time.Time
	Records      []DeductionRecordModel `gorm:"foreignKey:SetID;references:ID"`
}

// TableName returns the table name for GORM
func (DeductionSetModel) TableName() string {
	return "inventory_deduction_sets"
}

// DeductionRecordModel is one SKU of a deduction set
type DeductionRecordModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	SetID       uuid.UUID `gorm:"type:uuid;not null;index"`
	OrderKey    string    `gorm:"type:varchar(150);not null;index"`
	SKU         string    `gorm:"column:sku;type:varchar(100);not null"`
	WarehouseID uuid.UUID `gorm:"type:uuid;not null"`
	Quantity    int       `gorm:"not null"`
	StockBefore int       `gorm:"not null"`
	StockAfter  int       `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DeductionRecordModel) TableName() string {
	return "inventory_deductions"
}

// ToDomain converts the persistence model to a domain DeductionSet
func (m *DeductionSetModel) ToDomain() inventory.DeductionSet {
	set := inventory.DeductionSet{
		ID:           m.ID,
		OrderKey:     m.OrderKey,
		Status:       inventory.DeductionStatus(m.Status),
		CreatedAt:    m.CreatedAt,
		RolledBackAt: m.RolledBackAt,
		Records:      make([]inventory.DeductionRecord, 0, len(m.Records)),
	}
	for _, r := range m.Records {
		set.Records = append(set.Records, inventory.DeductionRecord{
			ID:          r.ID,
			SetID:       r.SetID,
			OrderKey:    r.OrderKey,
			SKU:         r.SKU,
			WarehouseID: r.WarehouseID,
			Quantity:    r.Quantity,
			StockBefore: r.StockBefore,
			StockAfter:  r.StockAfter,
			CreatedAt:   r.CreatedAt,
		})
	}
	return set
}

// DeductionSetModelFromDomain creates a persistence model from a domain DeductionSet
func DeductionSetModelFromDomain(s *inventory.DeductionSet) *DeductionSetModel {
	m := &DeductionSetModel{
		ID:           s.ID,
		OrderKey:     s.OrderKey,
		Status:       string(s.Status),
		CreatedAt:    s.CreatedAt,
		RolledBackAt: s.RolledBackAt,
		Records:      make([]DeductionRecordModel, 0, len(s.Records)),
	}
	for _, r := range s.Records {
		m.Records = append(m.Records, DeductionRecordModel{
			ID:          r.ID,
			SetID:       s.ID,
			OrderKey:    r.OrderKey,
			SKU:         r.SKU,
			WarehouseID: r.WarehouseID,
			Quantity:    r.Quantity,
			StockBefore: r.StockBefore,
			StockAfter:  r.StockAfter,
			CreatedAt:   r.CreatedAt,
		})
	}
	return m
}

// InventoryHistoryModel is one append-only stock movement
type InventoryHistoryModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key"`
	WarehouseID    uuid.UUID `gorm:"type:uuid;not null;index:idx_inventory_history_wh_sku,priority:1"`
	SKU            string    `gorm:"column:sku;type:varchar(100);not null;index:idx_inventory_history_wh_sku,priority:2"`
	ChangeType     string    `gorm:"type:varchar(20);not null"`
	ChangeQuantity int       `gorm:"not null"`
	StockBefore    int       `gorm:"not null"`
	StockAfter     int       `gorm:"not null"`
	ReferenceType  string    `gorm:"type:varchar(30);not null"`
	ReferenceKey   string    `gorm:"type:varchar(150);not null;index"`
	Reason         string    `gorm:"type:varchar(200)"`
	CreatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InventoryHistoryModel) TableName() string {
	return "inventory_history"
}

// ToDomain converts the persistence model to a domain History entry
func (m *InventoryHistoryModel) ToDomain() inventory.History {
	return inventory.History{
		ID:             m.ID,
		WarehouseID:    m.WarehouseID,
		SKU:            m.SKU,
		ChangeType:     inventory.ChangeType(m.ChangeType),
		ChangeQuantity: m.ChangeQuantity,
		StockBefore:    m.StockBefore,
		StockAfter:     m.StockAfter,
		ReferenceType:  m.ReferenceType,
		ReferenceKey:   m.ReferenceKey,
		Reason:         m.Reason,
		CreatedAt:      m.CreatedAt,
	}
}

// InventoryHistoryModelFromDomain creates a persistence model from a domain History entry
func InventoryHistoryModelFromDomain(h inventory.History) InventoryHistoryModel {
	return InventoryHistoryModel{
		ID:             h.ID,
		WarehouseID:    h.WarehouseID,
		SKU:            h.SKU,
		ChangeType:     string(h.ChangeType),
		ChangeQuantity: h.ChangeQuantity,
		StockBefore:    h.StockBefore,
		StockAfter:     h.StockAfter,
		ReferenceType:  h.ReferenceType,
		ReferenceKey:   h.ReferenceKey,
		Reason:         h.Reason,
		CreatedAt:      h.CreatedAt,
	}
}
