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
)

// GormStockRepository implements inventory.StockRepository using GORM
type GormStockRepository struct {
	db *gorm.DB
}

// NewGormStockRepository creates a new GormStockRepository
func NewGormStockRepository(db *gorm.DB) *GormStockRepository {
	return &GormStockRepository{db: db}
}

// FindRecord finds the stock row of a SKU in a warehouse
func (r *GormStockRepository) FindRecord(ctx context.Context, warehouseID uuid.UUID, sku string) (*inventory.StockRecord, error) {
	var model models.StockRecordModel
	if err := r.db.WithContext(ctx).
		Where("warehouse_id = ? AND sku = ?", warehouseID, sku).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a stock record
func (r *GormStockRepository) Save(ctx context.Context, rec *inventory.StockRecord) error {
	rec.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(models.StockRecordModelFromDomain(rec)).Error
}

// DecrementIfAvailable is a compare-and-swap on the stock row: the update
// only matches while quantity - reserved >= n, so concurrent writers on the
// same SKU serialise on the row and never drive stock negative.
func (r *GormStockRepository) DecrementIfAvailable(ctx context.Context, recordID uuid.UUID, n int) (bool, error) {
	if n <= 0 {
		return false, nil
	}
	result := r.db.WithContext(ctx).Model(&models.StockRecordModel{}).
		Where("id = ? AND quantity - reserved >= ?", recordID, n).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity - ?", n),
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Increment adds n back to a warehouse's SKU row
func (r *GormStockRepository) Increment(ctx context.Context, warehouseID uuid.UUID, sku string, n int) (int, int, error) {
	db := r.db.WithContext(ctx)
	result := db.Model(&models.StockRecordModel{}).
		Where("warehouse_id = ? AND sku = ?", warehouseID, sku).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity + ?", n),
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return 0, 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, 0, shared.ErrNotFound.WithMessage("no stock row for SKU " + sku)
	}

	var model models.StockRecordModel
	if err := db.Select("quantity").
		Where("warehouse_id = ? AND sku = ?", warehouseID, sku).
		First(&model).Error; err != nil {
		return 0, 0, err
	}
	return model.Quantity - n, model.Quantity, nil
}

type skuSum struct {
	SKU       string `gorm:"column:sku"`
	Available int
}

// AvailableBySKU sums quantity - reserved across active warehouses. SKUs
// with no row in any active warehouse are absent from the result.
func (r *GormStockRepository) AvailableBySKU(ctx context.Context, skus []string) (map[string]int, error) {
	out := make(map[string]int, len(skus))
	if len(skus) == 0 {
		return out, nil
	}
	var rows []skuSum
	if err := r.db.WithContext(ctx).
		Table("inventory_records AS r").
		Select("r.sku AS sku, SUM(CASE WHEN r.quantity > r.reserved THEN r.quantity - r.reserved ELSE 0 END) AS available").
		Joins("JOIN warehouses w ON w.id = r.warehouse_id AND w.is_active = ?", true).
		Where("r.sku IN ?", skus).
		Group("r.sku").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.SKU] = row.Available
	}
	return out, nil
}

// Ensure GormStockRepository implements inventory.StockRepository
var _ inventory.StockRepository = (*GormStockRepository)(nil)
