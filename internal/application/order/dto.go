package order

import (
	"time"

	"github.com/omnisync/backend/internal/domain/order"
	"github.com/shopspring/decimal"
)

// ItemResponse is the API view of an order line
type ItemResponse struct {
	LineID      string          `json:"lineId"`
	SKU         string          `json:"sku"`
	ProductName string          `json:"productName"`
	OptionName  string          `json:"optionName"`
	Quantity    int             `json:"quantity"`
	Amount      decimal.Decimal `json:"amount"`
}

// OrderResponse is the API view of a canonical order
type OrderResponse struct {
	OrderKey      string          `json:"orderKey"`
	Channel       string          `json:"channel"`
	OrderNo       string          `json:"orderNo"`
	Status        string          `json:"status"`
	RawStatus     string          `json:"rawStatus,omitempty"`
	RecipientName string          `json:"recipientName"`
	Phone         string          `json:"phone"`
	Mobile        string          `json:"mobile"`
	Address1      string          `json:"address1"`
	Address2      string          `json:"address2"`
	Zipcode       string          `json:"zipcode"`
	DeliveryMemo  string          `json:"deliveryMemo"`
	OrderedAt     *time.Time      `json:"orderedAt,omitempty"`
	TrackingNo    string          `json:"trackingNo"`
	Carrier       string          `json:"carrier"`
	CarrierLabel  string          `json:"carrierLabel"`
	InvoiceSentAt *time.Time      `json:"invoiceSentAt,omitempty"`
	Currency      string          `json:"currency"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	TotalQty      int             `json:"totalQty"`
	Items         []ItemResponse  `json:"items"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// ToOrderResponse converts a domain order
func ToOrderResponse(o *order.UnifiedOrder) OrderResponse {
	items := make([]ItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ItemResponse{
			LineID:      it.LineID,
			SKU:         it.SKU,
			ProductName: it.ProductName,
			OptionName:  it.OptionName,
			Quantity:    it.Quantity,
			Amount:      it.Amount,
		})
	}
	var orderedAt *time.Time
	if !o.OrderedAt.IsZero() {
		t := o.OrderedAt
		orderedAt = &t
	}
	return OrderResponse{
		OrderKey:      o.Key().String(),
		Channel:       string(o.Channel),
		OrderNo:       o.OrderNo,
		Status:        string(o.Status),
		RawStatus:     o.RawStatus,
		RecipientName: o.Recipient.Name,
		Phone:         o.Recipient.Phone,
		Mobile:        o.Recipient.Mobile,
		Address1:      o.Recipient.Address1,
		Address2:      o.Recipient.Address2,
		Zipcode:       o.Recipient.Zipcode,
		DeliveryMemo:  o.Recipient.Memo,
		OrderedAt:     orderedAt,
		TrackingNo:    o.TrackingNo,
		Carrier:       o.Carrier,
		CarrierLabel:  o.CarrierLabel,
		InvoiceSentAt: o.InvoiceSentAt,
		Currency:      o.Currency,
		TotalAmount:   o.TotalAmount,
		TotalQty:      o.TotalQty,
		Items:         items,
		UpdatedAt:     o.UpdatedAt,
	}
}

// ToOrderResponses converts a slice of orders
func ToOrderResponses(orders []*order.UnifiedOrder) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, ToOrderResponse(o))
	}
	return out
}

// QueryResponse is one page of orders with the stats of the query
type QueryResponse struct {
	Orders []OrderResponse `json:"orders"`
	Stats  order.Stats     `json:"stats"`
}
