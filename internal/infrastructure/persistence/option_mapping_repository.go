package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/omnisync/backend/internal/domain/integration"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/omnisync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormOptionMappingRepository implements integration.OptionMappingRepository using GORM
type GormOptionMappingRepository struct {
	db *gorm.DB
}

// NewGormOptionMappingRepository creates a new GormOptionMappingRepository
func NewGormOptionMappingRepository(db *gorm.DB) *GormOptionMappingRepository {
	return &GormOptionMappingRepository{db: db}
}

// FindByChannel returns every mapping of a channel ordered by product and option
func (r *GormOptionMappingRepository) FindByChannel(ctx context.Context, ch channel.Channel) ([]integration.OptionMapping, error) {
	var rows []models.OptionMappingModel
	if err := r.db.WithContext(ctx).
		Where("channel = ?", string(ch)).
		Order("product_no ASC, option_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]integration.OptionMapping, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// Save creates or updates a mapping
func (r *GormOptionMappingRepository) Save(ctx context.Context, m *integration.OptionMapping) error {
	m.UpdatedAt = time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = m.UpdatedAt
	}
	return r.db.WithContext(ctx).Save(models.OptionMappingModelFromDomain(m)).Error
}

// UpdateChannelStock records the last pushed quantity of a mapping
func (r *GormOptionMappingRepository) UpdateChannelStock(ctx context.Context, id uuid.UUID, quantity int, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.OptionMappingModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"channel_stock": quantity,
			"last_sync_at":  at,
			"updated_at":    at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormOptionMappingRepository implements integration.OptionMappingRepository
var _ integration.OptionMappingRepository = (*GormOptionMappingRepository)(nil)
