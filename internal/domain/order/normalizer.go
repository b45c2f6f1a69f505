package order

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/omnisync/backend/internal/domain/carrier"
	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ErrVariantMismatch is returned when a RawRow's payload does not match its channel tag
var ErrVariantMismatch = shared.NewDomainError("RAW_ROW_VARIANT", "raw row payload does not match its channel")

// orderTimeLayouts are tried in order; channels without an offset report KST
var orderTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.0Z0700",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Normalizer maps channel rows onto the canonical schema. It is a pure
// transform and holds no mutable state.
type Normalizer struct {
	carriers *carrier.Registry
}

// NewNormalizer creates a normalizer that resolves carrier codes with the registry
func NewNormalizer(carriers *carrier.Registry) *Normalizer {
	if carriers == nil {
		carriers = carrier.Default()
	}
	return &Normalizer{carriers: carriers}
}

// Normalize converts one raw row into a single-line order candidate
func (n *Normalizer) Normalize(row RawRow) (*UnifiedOrder, error) {
	var (
		o   *UnifiedOrder
		err error
	)
	switch {
	case row.Channel == channel.Cafe24 && row.Cafe24 != nil:
		o, err = n.fromCafe24(row.Cafe24)
	case row.Channel == channel.Naver && row.Naver != nil:
		o, err = n.fromNaver(row.Naver)
	case row.Channel == channel.Coupang && row.Coupang != nil:
		o, err = n.fromCoupang(row.Coupang)
	default:
		return nil, ErrVariantMismatch.WithMessage(fmt.Sprintf("raw row for channel %q has no matching payload", row.Channel))
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// NormalizeAll normalizes every row. Bad rows are reported and skipped;
// they never fail the batch.
func (n *Normalizer) NormalizeAll(rows []RawRow) ([]*UnifiedOrder, []error) {
	out := make([]*UnifiedOrder, 0, len(rows))
	var errs []error
	for i, row := range rows {
		o, err := n.Normalize(row)
		if err != nil {
			errs = append(errs, fmt.Errorf("row %d: %w", i, err))
			continue
		}
		out = append(out, o)
	}
	return out, errs
}

func (n *Normalizer) fromCafe24(r *Cafe24Row) (*UnifiedOrder, error) {
	if strings.TrimSpace(r.OrderID) == "" {
		return nil, ErrOrderNoEmpty
	}

	qty := atLeastOne(r.Quantity)
	amount := r.ProductPrice.Mul(decimal.NewFromInt(int64(qty)))
	if r.PaymentAmount != nil {
		amount = *r.PaymentAmount
	}
	sku := r.CustomVariantCode
	if sku == "" {
		sku = r.ProductCode
	}

	o := &UnifiedOrder{
		Channel:   channel.Cafe24,
		OrderNo:   strings.TrimSpace(r.OrderID),
		Status:    MapChannelStatus(channel.Cafe24, r.OrderStatus),
		RawStatus: r.OrderStatus,
		Recipient: Recipient{
			Name:     r.Receiver.Name,
			Phone:    r.Receiver.Phone,
			Mobile:   r.Receiver.Cellphone,
			Address1: r.Receiver.Address1,
			Address2: r.Receiver.Address2,
			Zipcode:  r.Receiver.Zipcode,
			Memo:     r.Receiver.ShippingMessage,
		},
		OrderedAt:  parseOrderTime(r.OrderDate),
		TrackingNo: r.TrackingNo,
		Currency:   currencyOr(r.Currency),
	}
	n.applyCarrier(o, channel.Cafe24, r.ShippingCompanyCode)
	o.AddItem(Item{
		LineID:      r.OrderItemCode,
		SKU:         sku,
		ProductName: r.ProductName,
		OptionName:  r.OptionValue,
		Quantity:    qty,
		Amount:      amount,
	})
	return o, nil
}

func (n *Normalizer) fromNaver(r *NaverRow) (*UnifiedOrder, error) {
	if strings.TrimSpace(r.OrderID) == "" {
		return nil, ErrOrderNoEmpty
	}

	qty := atLeastOne(r.Quantity)
	amount := r.TotalPaymentAmount
	if amount.IsZero() {
		amount = r.UnitPrice.Mul(decimal.NewFromInt(int64(qty)))
	}
	sku := r.SellerManagementCode
	if sku == "" {
		sku = r.OptionManageCode
	}
	if sku == "" {
		sku = r.ProductID
	}

	o := &UnifiedOrder{
		Channel:   channel.Naver,
		OrderNo:   strings.TrimSpace(r.OrderID),
		Status:    MapChannelStatus(channel.Naver, r.ProductOrderStatus),
		RawStatus: r.ProductOrderStatus,
		Recipient: Recipient{
			Name:     r.ReceiverName,
			Phone:    r.ReceiverTel,
			Mobile:   r.ReceiverTel2,
			Address1: r.ReceiverAddress,
			Address2: r.ReceiverDetailedAddress,
			Zipcode:  r.ReceiverZipCode,
			Memo:     r.DeliveryMemo,
		},
		OrderedAt:  parseOrderTime(r.OrderDate),
		TrackingNo: r.TrackingNumber,
		Currency:   "KRW",
	}
	n.applyCarrier(o, channel.Naver, r.DeliveryCompanyCode)
	o.AddItem(Item{
		LineID:      r.ProductOrderID,
		SKU:         sku,
		ProductName: r.ProductName,
		OptionName:  r.ProductOption,
		Quantity:    qty,
		Amount:      amount,
	})
	return o, nil
}

func (n *Normalizer) fromCoupang(r *CoupangRow) (*UnifiedOrder, error) {
	if r.OrderID == 0 {
		return nil, ErrOrderNoEmpty
	}

	qty := atLeastOne(r.SalesQuantity)
	vendorItem := strconv.FormatInt(r.VendorItemID, 10)
	sku := r.ExternalSKU
	if sku == "" {
		sku = vendorItem
	}

	var orderedAt time.Time
	if r.PaidAt > 0 {
		orderedAt = time.UnixMilli(r.PaidAt).In(shared.KST)
	}

	o := &UnifiedOrder{
		Channel:   channel.Coupang,
		OrderNo:   strconv.FormatInt(r.OrderID, 10),
		Status:    MapChannelStatus(channel.Coupang, ""),
		OrderedAt: orderedAt,
		Currency:  currencyOr(r.Currency),
	}
	o.AddItem(Item{
		LineID:      vendorItem,
		SKU:         sku,
		ProductName: r.ProductName,
		OptionName:  r.SellerProductItemName,
		Quantity:    qty,
		Amount:      r.UnitSalesPrice.Mul(decimal.NewFromInt(int64(qty))),
	})
	return o, nil
}

func (n *Normalizer) applyCarrier(o *UnifiedOrder, ch channel.Channel, code string) {
	if code == "" {
		return
	}
	if c, ok := n.carriers.ByChannelCode(ch, code); ok {
		o.Carrier = c.Value
		o.CarrierLabel = c.Label
	}
}

func parseOrderTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range orderTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, shared.KST); err == nil {
			return t
		}
	}
	return time.Time{}
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func currencyOr(c string) string {
	if c == "" {
		return "KRW"
	}
	return c
}
