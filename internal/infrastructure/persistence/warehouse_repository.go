package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/inventory"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/omnisync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormWarehouseRepository implements inventory.WarehouseRepository using GORM
type GormWarehouseRepository struct {
	db *gorm.DB
}

// NewGormWarehouseRepository creates a new GormWarehouseRepository
func NewGormWarehouseRepository(db *gorm.DB) *GormWarehouseRepository {
	return &GormWarehouseRepository{db: db}
}

// FindByID finds a warehouse by its ID
func (r *GormWarehouseRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Warehouse, error) {
	var model models.WarehouseModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActive returns every active warehouse, default first
func (r *GormWarehouseRepository) FindActive(ctx context.Context) ([]inventory.Warehouse, error) {
	var rows []models.WarehouseModel
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("is_default DESC, code ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]inventory.Warehouse, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

// FindDefault returns the active default warehouse
func (r *GormWarehouseRepository) FindDefault(ctx context.Context) (*inventory.Warehouse, error) {
	var model models.WarehouseModel
	if err := r.db.WithContext(ctx).
		Where("is_default = ? AND is_active = ?", true, true).
		Order("code ASC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Preferences returns the priority warehouse per SKU for the given SKUs
func (r *GormWarehouseRepository) Preferences(ctx context.Context, skus []string) (map[string]uuid.UUID, error) {
	out := make(map[string]uuid.UUID, len(skus))
	if len(skus) == 0 {
		return out, nil
	}
	var rows []models.WarehousePreferenceModel
	if err := r.db.WithContext(ctx).Where("sku IN ?", skus).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, p := range rows {
		out[p.SKU] = p.WarehouseID
	}
	return out, nil
}

// Save creates or updates a warehouse
func (r *GormWarehouseRepository) Save(ctx context.Context, w *inventory.Warehouse) error {
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now()
	}
	w.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(models.WarehouseModelFromDomain(w)).Error
}

// SavePreference sets the priority warehouse of a SKU
func (r *GormWarehouseRepository) SavePreference(ctx context.Context, p inventory.WarehousePreference) error {
	model := models.WarehousePreferenceModel{SKU: p.SKU, WarehouseID: p.WarehouseID, UpdatedAt: time.Now()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sku"}},
		DoUpdates: clause.AssignmentColumns([]string{"warehouse_id", "updated_at"}),
	}).Create(&model).Error
}

// Ensure GormWarehouseRepository implements inventory.WarehouseRepository
var _ inventory.WarehouseRepository = (*GormWarehouseRepository)(nil)
