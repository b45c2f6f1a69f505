package telemetry

import (
	"context"

	"gorm.io/gorm"
)

// GormStockMetricsProvider reads stock gauges straight from the database.
type GormStockMetricsProvider struct {
	db *gorm.DB
}

// NewGormStockMetricsProvider creates a new GormStockMetricsProvider.
func NewGormStockMetricsProvider(db *gorm.DB) *GormStockMetricsProvider {
	return &GormStockMetricsProvider{db: db}
}

// LowStockCount counts stock rows whose available quantity sits under the safety threshold.
func (p *GormStockMetricsProvider) LowStockCount(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("inventory_records").
		Where("safety_stock > 0 AND (quantity - reserved) < safety_stock").
		Count(&count).Error
	return count, err
}

// ActiveDeductionSets counts orders holding deducted stock.
func (p *GormStockMetricsProvider) ActiveDeductionSets(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("deduction_sets").
		Where("status = ?", "active").
		Count(&count).Error
	return count, err
}

var _ StockMetricsProvider = (*GormStockMetricsProvider)(nil)
