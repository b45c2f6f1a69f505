package models

import (
	"time"

	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/omnisync/backend/internal/domain/integration"
)

// OptionMappingModel links a channel option to an internal SKU
type OptionMappingModel struct {
	BaseModel
	Channel      string `gorm:"type:varchar(20);not null;uniqueIndex:idx_option_mappings_option,priority:1"`
	ProductNo    string `gorm:"type:varchar(100);not null"`
	OptionID     string `gorm:"type:varchar(100);not null;uniqueIndex:idx_option_mappings_option,priority:2"`
	SKU          string `gorm:"column:sku;type:varchar(100);not null;index"`
	ChannelStock int    `gorm:"not null;default:0"`
	LastSyncAt   *time.Time
}

// TableName returns the table name for GORM
func (OptionMappingModel) TableName() string {
	return "channel_option_mappings"
}

// ToDomain converts the persistence model to a domain OptionMapping
func (m *OptionMappingModel) ToDomain() integration.OptionMapping {
	return integration.OptionMapping{
		ID:           m.ID,
		Channel:      channel.Channel(m.Channel),
		ProductNo:    m.ProductNo,
		OptionID:     m.OptionID,
		SKU:          m.SKU,
		ChannelStock: m.ChannelStock,
		LastSyncAt:   m.LastSyncAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// OptionMappingModelFromDomain creates a persistence model from a domain OptionMapping
func OptionMappingModelFromDomain(o *integration.OptionMapping) *OptionMappingModel {
	return &OptionMappingModel{
		BaseModel:    BaseModel{ID: o.ID, CreatedAt: o.CreatedAt, UpdatedAt: o.UpdatedAt},
		Channel:      string(o.Channel),
		ProductNo:    o.ProductNo,
		OptionID:     o.OptionID,
		SKU:          o.SKU,
		ChannelStock: o.ChannelStock,
		LastSyncAt:   o.LastSyncAt,
	}
}
