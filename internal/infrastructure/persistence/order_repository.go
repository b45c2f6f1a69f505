package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/omnisync/backend/internal/domain/order"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/omnisync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormOrderRepository implements order.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) withItems(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

// FindByKey finds an order by channel and order number
func (r *GormOrderRepository) FindByKey(ctx context.Context, key order.Key) (*order.UnifiedOrder, error) {
	var model models.OrderModel
	if err := r.withItems(ctx).
		Where("channel = ? AND order_no = ?", string(key.Channel), key.OrderNo).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByKeys loads the listed orders; missing keys are absent from the map
func (r *GormOrderRepository) FindByKeys(ctx context.Context, keys []order.Key) (map[order.Key]*order.UnifiedOrder, error) {
	out := make(map[order.Key]*order.UnifiedOrder, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	byChannel := make(map[channel.Channel][]string)
	for _, k := range keys {
		byChannel[k.Channel] = append(byChannel[k.Channel], k.OrderNo)
	}
	for ch, nos := range byChannel {
		var rows []models.OrderModel
		if err := r.withItems(ctx).
			Where("channel = ? AND order_no IN ?", string(ch), nos).
			Find(&rows).Error; err != nil {
			return nil, err
		}
		for i := range rows {
			o := rows[i].ToDomain()
			out[o.Key()] = o
		}
	}
	return out, nil
}

// FindByOrderNo finds orders by channel order number across channels
func (r *GormOrderRepository) FindByOrderNo(ctx context.Context, orderNo string) ([]*order.UnifiedOrder, error) {
	var rows []models.OrderModel
	if err := r.withItems(ctx).
		Where("order_no = ?", orderNo).
		Order("channel ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*order.UnifiedOrder, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// applyOrderFilter adds the WHERE clauses of a filter; nil means no filter
func applyOrderFilter(query *gorm.DB, f *order.Filter) *gorm.DB {
	if f == nil {
		return query
	}
	if f.Status != "" {
		query = query.Where("status = ?", string(f.Status))
	}
	if f.Channel != "" {
		query = query.Where("channel = ?", string(f.Channel))
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		like := "%" + q + "%"
		query = query.Where(
			"(LOWER(recipient_name) LIKE ? OR LOWER(order_no) LIKE ? OR recipient_phone LIKE ? OR recipient_mobile LIKE ? OR LOWER(tracking_no) LIKE ?)",
			like, like, like, like, like,
		)
	}
	if f.DateFrom != nil {
		query = query.Where("ordered_at >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		query = query.Where("ordered_at <= ?", *f.DateTo)
	}
	return query
}

// Query returns one page of matching orders and the total match count
func (r *GormOrderRepository) Query(ctx context.Context, filter order.Filter) ([]*order.UnifiedOrder, int64, error) {
	filter = filter.Normalize()

	var total int64
	if err := applyOrderFilter(r.db.WithContext(ctx).Model(&models.OrderModel{}), &filter).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.OrderModel
	if err := applyOrderFilter(r.withItems(ctx), &filter).
		Order(OrderSortClause(filter)).
		Offset(filter.Page.Offset()).
		Limit(filter.Page.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	out := make([]*order.UnifiedOrder, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, total, nil
}

type groupCount struct {
	Grp   string
	Count int64
}

// Stats counts orders by status and channel. A nil filter counts everything.
func (r *GormOrderRepository) Stats(ctx context.Context, filter *order.Filter) (order.Stats, error) {
	if filter != nil {
		f := filter.Normalize()
		filter = &f
	}
	stats := order.NewStats()

	var byStatus []groupCount
	if err := applyOrderFilter(r.db.WithContext(ctx).Model(&models.OrderModel{}), filter).
		Select("status AS grp, COUNT(*) AS count").
		Group("status").
		Scan(&byStatus).Error; err != nil {
		return stats, err
	}
	for _, g := range byStatus {
		stats.ByStatus[order.Status(g.Grp)] += g.Count
		stats.Total += g.Count
	}

	var byChannel []groupCount
	if err := applyOrderFilter(r.db.WithContext(ctx).Model(&models.OrderModel{}), filter).
		Select("channel AS grp, COUNT(*) AS count").
		Group("channel").
		Scan(&byChannel).Error; err != nil {
		return stats, err
	}
	for _, g := range byChannel {
		stats.ByChannel[channel.Channel(g.Grp)] += g.Count
	}
	return stats, nil
}

// Upsert inserts the order or updates it by key. Items are replaced.
func (r *GormOrderRepository) Upsert(ctx context.Context, o *order.UnifiedOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		var existing models.OrderModel
		err := tx.Where("channel = ? AND order_no = ?", string(o.Channel), o.OrderNo).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			model := &models.OrderModel{}
			model.EnsureID()
			model.CreatedAt = now
			model.UpdatedAt = now
			model.FromDomain(o)
			return tx.Create(model).Error
		case err != nil:
			return err
		}

		model := existing
		model.UpdatedAt = now
		// a pull never erases an invoice recorded here
		keepInvoice := existing.TrackingNo != "" && o.TrackingNo == ""
		model.FromDomain(o)
		if keepInvoice {
			model.TrackingNo = existing.TrackingNo
			model.Carrier = existing.Carrier
			model.CarrierLabel = existing.CarrierLabel
			model.InvoiceSentAt = existing.InvoiceSentAt
		}
		if err := tx.Where("order_id = ?", model.ID).Delete(&models.OrderItemModel{}).Error; err != nil {
			return err
		}
		items := model.Items
		model.Items = nil
		if err := tx.Save(&model).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}

// UpdateInvoice writes the tracking fields and status of an existing order
func (r *GormOrderRepository) UpdateInvoice(ctx context.Context, o *order.UnifiedOrder) error {
	result := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("channel = ? AND order_no = ?", string(o.Channel), o.OrderNo).
		Updates(map[string]any{
			"tracking_no":     o.TrackingNo,
			"carrier":         o.Carrier,
			"carrier_label":   o.CarrierLabel,
			"invoice_sent_at": o.InvoiceSentAt,
			"status":          string(o.Status),
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdateStatus sets the status of one order
func (r *GormOrderRepository) UpdateStatus(ctx context.Context, key order.Key, status order.Status) error {
	result := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("channel = ? AND order_no = ?", string(key.Channel), key.OrderNo).
		Updates(map[string]any{
			"status":     string(status),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete hard-deletes an order with its items
func (r *GormOrderRepository) Delete(ctx context.Context, key order.Key) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.OrderModel
		if err := tx.Select("id").
			Where("channel = ? AND order_no = ?", string(key.Channel), key.OrderNo).
			First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}
		if err := tx.Where("order_id = ?", model.ID).Delete(&models.OrderItemModel{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.OrderModel{}, "id = ?", model.ID).Error
	})
}

// CountByChannel counts the stored orders of a channel
func (r *GormOrderRepository) CountByChannel(ctx context.Context, ch channel.Channel) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("channel = ?", string(ch)).
		Count(&count).Error
	return count, err
}

// Ensure GormOrderRepository implements order.OrderRepository
var _ order.OrderRepository = (*GormOrderRepository)(nil)
