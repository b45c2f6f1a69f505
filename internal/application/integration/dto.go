package integration

import (
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/integration"
)

// OptionMappingRequest links a channel option to an internal SKU
type OptionMappingRequest struct {
	Channel   string `json:"channel" binding:"required"`
	ProductNo string `json:"productNo" binding:"required,max=100"`
	OptionID  string `json:"optionId" binding:"required,max=100"`
	SKU       string `json:"sku" binding:"required,max=100"`
}

// BatchOptionMappingRequest upserts several mappings at once
type BatchOptionMappingRequest struct {
	Mappings []OptionMappingRequest `json:"mappings" binding:"required,min=1,max=1000,dive"`
}

// OptionMappingResponse is the API view of a mapping
type OptionMappingResponse struct {
	ID           uuid.UUID  `json:"id"`
	Channel      string     `json:"channel"`
	ProductNo    string     `json:"productNo"`
	OptionID     string     `json:"optionId"`
	SKU          string     `json:"sku"`
	ChannelStock int        `json:"channelStock"`
	LastSyncAt   *time.Time `json:"lastSyncAt,omitempty"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// ToOptionMappingResponse converts a domain mapping
func ToOptionMappingResponse(m *integration.OptionMapping) OptionMappingResponse {
	return OptionMappingResponse{
		ID:           m.ID,
		Channel:      string(m.Channel),
		ProductNo:    m.ProductNo,
		OptionID:     m.OptionID,
		SKU:          m.SKU,
		ChannelStock: m.ChannelStock,
		LastSyncAt:   m.LastSyncAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
