package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/omnisync/backend/internal/domain/order"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for the UnifiedOrder aggregate.
type OrderModel struct {
	BaseModel
	Channel           string     `gorm:"type:varchar(20);not null;uniqueIndex:idx_channel_orders_key,priority:1"`
	OrderNo           string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_channel_orders_key,priority:2;index"`
	Status            string     `gorm:"type:varchar(30);not null;index"`
	RawStatus         string     `gorm:"type:varchar(50)"`
	RecipientName     string     `gorm:"type:varchar(100)"`
	RecipientPhone    string     `gorm:"type:varchar(50)"`
	RecipientMobile   string     `gorm:"type:varchar(50)"`
	RecipientAddress1 string     `gorm:"type:varchar(500)"`
	RecipientAddress2 string     `gorm:"type:varchar(500)"`
	RecipientZipcode  string     `gorm:"type:varchar(20)"`
	DeliveryMemo      string     `gorm:"type:text"`
	OrderedAt         *time.Time `gorm:"index"`
	TrackingNo        string     `gorm:"type:varchar(50);index"`
	Carrier           string     `gorm:"type:varchar(30)"`
	CarrierLabel      string     `gorm:"type:varchar(50)"`
	InvoiceSentAt     *time.Time
	Currency          string           `gorm:"type:varchar(3);not null;default:'KRW'"`
	TotalAmount       decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0"`
	TotalQty          int              `gorm:"not null;default:0"`
	Items             []OrderItemModel `gorm:"foreignKey:OrderID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "channel_orders"
}

// OrderItemModel is one order line
type OrderItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position    int             `gorm:"not null"`
	LineID      string          `gorm:"type:varchar(100)"`
	SKU         string          `gorm:"column:sku;type:varchar(100);index"`
	ProductName string          `gorm:"type:varchar(300)"`
	OptionName  string          `gorm:"type:varchar(300)"`
	Quantity    int             `gorm:"not null;default:1"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "channel_order_items"
}

// ToDomain converts the persistence model to a domain UnifiedOrder
func (m *OrderModel) ToDomain() *order.UnifiedOrder {
	o := &order.UnifiedOrder{
		Channel:   channel.Channel(m.Channel),
		OrderNo:   m.OrderNo,
		Status:    order.Status(m.Status),
		RawStatus: m.RawStatus,
		Recipient: order.Recipient{
			Name:     m.RecipientName,
			Phone:    m.RecipientPhone,
			Mobile:   m.RecipientMobile,
			Address1: m.RecipientAddress1,
			Address2: m.RecipientAddress2,
			Zipcode:  m.RecipientZipcode,
			Memo:     m.DeliveryMemo,
		},
		TrackingNo:    m.TrackingNo,
		Carrier:       m.Carrier,
		CarrierLabel:  m.CarrierLabel,
		InvoiceSentAt: m.InvoiceSentAt,
		Currency:      m.Currency,
		TotalAmount:   m.TotalAmount,
		TotalQty:      m.TotalQty,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
		Items:         make([]order.Item, 0, len(m.Items)),
	}
	if m.OrderedAt != nil {
		o.OrderedAt = *m.OrderedAt
	}
	for _, it := range m.Items {
		o.Items = append(o.Items, order.Item{
			LineID:      it.LineID,
			SKU:         it.SKU,
			ProductName: it.ProductName,
			OptionName:  it.OptionName,
			Quantity:    it.Quantity,
			Amount:      it.Amount,
		})
	}
	return o
}

// FromDomain populates the model from a domain order. Items get fresh ids;
// the order id is left to the caller.
func (m *OrderModel) FromDomain(o *order.UnifiedOrder) {
	m.Channel = string(o.Channel)
	m.OrderNo = o.OrderNo
	m.Status = string(o.Status)
	m.RawStatus = o.RawStatus
	m.RecipientName = o.Recipient.Name
	m.RecipientPhone = o.Recipient.Phone
	m.RecipientMobile = o.Recipient.Mobile
	m.RecipientAddress1 = o.Recipient.Address1
	m.RecipientAddress2 = o.Recipient.Address2
	m.RecipientZipcode = o.Recipient.Zipcode
	m.DeliveryMemo = o.Recipient.Memo
	m.OrderedAt = nil
	if !o.OrderedAt.IsZero() {
		t := o.OrderedAt
		m.OrderedAt = &t
	}
	m.TrackingNo = o.TrackingNo
	m.Carrier = o.Carrier
	m.CarrierLabel = o.CarrierLabel
	m.InvoiceSentAt = o.InvoiceSentAt
	m.Currency = o.Currency
	if m.Currency == "" {
		m.Currency = "KRW"
	}
	m.TotalAmount = o.TotalAmount
	m.TotalQty = o.TotalQty
	m.Items = make([]OrderItemModel, 0, len(o.Items))
	for i, it := range o.Items {
		m.Items = append(m.Items, OrderItemModel{
			ID:          uuid.New(),
			OrderID:     m.ID,
			Position:    i,
			LineID:      it.LineID,
			SKU:         it.SKU,
			ProductName: it.ProductName,
			OptionName:  it.OptionName,
			Quantity:    it.Quantity,
			Amount:      it.Amount,
		})
	}
}
