package integration

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/channel"
)

// ---------------------------------------------------------------------------
// OptionMapping Entity
// ---------------------------------------------------------------------------

// OptionMapping links one sellable channel option to an internal SKU and
// remembers the stock the channel currently shows for it.
type OptionMapping struct {
	ID           uuid.UUID
	Channel      channel.Channel
	ProductNo    string
	OptionID     string
	SKU          string
	ChannelStock int
	LastSyncAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewOptionMapping creates a mapping
func NewOptionMapping(ch channel.Channel, productNo, optionID, sku string) (*OptionMapping, error) {
	if !ch.IsValid() {
		return nil, ErrMappingInvalidChannel
	}
	if strings.TrimSpace(productNo) == "" {
		return nil, ErrMappingInvalidProduct
	}
	if strings.TrimSpace(optionID) == "" {
		return nil, ErrMappingInvalidOption
	}
	if strings.TrimSpace(sku) == "" {
		return nil, ErrMappingInvalidSKU
	}
	now := time.Now()
	return &OptionMapping{
		ID:        uuid.New(),
		Channel:   ch,
		ProductNo: productNo,
		OptionID:  optionID,
		SKU:       sku,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// RecordPush stores the stock value the channel accepted
func (m *OptionMapping) RecordPush(quantity int, at time.Time) {
	m.ChannelStock = quantity
	m.LastSyncAt = &at
	m.UpdatedAt = at
}

// StockUpdate builds the push request for the given quantity
func (m *OptionMapping) StockUpdate(quantity int) StockUpdate {
	return StockUpdate{
		ProductNo: m.ProductNo,
		OptionID:  m.OptionID,
		SKU:       m.SKU,
		Quantity:  quantity,
	}
}

// OptionMappingRepository persists channel option mappings
type OptionMappingRepository interface {
	FindByChannel(ctx context.Context, ch channel.Channel) ([]OptionMapping, error)
	Save(ctx context.Context, m *OptionMapping) error
	// UpdateChannelStock records the last pushed quantity of a mapping
	UpdateChannelStock(ctx context.Context, id uuid.UUID, quantity int, at time.Time) error
}
