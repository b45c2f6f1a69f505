package order

import (
	"context"

	"github.com/omnisync/backend/internal/domain/channel"
)

// OrderRepository persists canonical orders
type OrderRepository interface {
	// FindByKey returns shared.ErrNotFound when the order does not exist
	FindByKey(ctx context.Context, key Key) (*UnifiedOrder, error)
	FindByKeys(ctx context.Context, keys []Key) (map[Key]*UnifiedOrder, error)
	// FindByOrderNo finds orders by channel order number across channels
	FindByOrderNo(ctx context.Context, orderNo string) ([]*UnifiedOrder, error)
	Query(ctx context.Context, filter Filter) ([]*UnifiedOrder, int64, error)
	Stats(ctx context.Context, filter *Filter) (Stats, error)

	// Upsert inserts or updates by key, replacing the items
	Upsert(ctx context.Context, o *UnifiedOrder) error
	UpdateInvoice(ctx context.Context, o *UnifiedOrder) error
	UpdateStatus(ctx context.Context, key Key, status Status) error
	Delete(ctx context.Context, key Key) error

	CountByChannel(ctx context.Context, ch channel.Channel) (int64, error)
}
