// Package order holds the canonical multi-channel order model, the per-channel
// normalizers and the aggregator that folds line rows into orders.
package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/omnisync/backend/internal/domain/carrier"
	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyOrder   = shared.NewDomainError("EMPTY_ORDER", "order has no items")
	ErrInvalidKey   = shared.NewDomainError("INVALID_ORDER_KEY", "invalid order key")
	ErrOrderNoEmpty = shared.NewDomainError("ORDER_NO_REQUIRED", "order number is required")
)

// Key is the globally unique (channel, channel order number) pair
type Key struct {
	Channel channel.Channel
	OrderNo string
}

// NewKey creates a key
func NewKey(ch channel.Channel, orderNo string) Key {
	return Key{Channel: ch, OrderNo: orderNo}
}

// String renders the key as "<channel>_<orderNo>"
func (k Key) String() string {
	return string(k.Channel) + "_" + k.OrderNo
}

// ParseKey splits on the first underscore; the order number may contain more.
func ParseKey(s string) (Key, error) {
	idx := strings.IndexByte(s, '_')
	if idx <= 0 || idx == len(s)-1 {
		return Key{}, ErrInvalidKey.WithMessage(fmt.Sprintf("invalid order key %q", s))
	}
	ch, err := channel.Parse(s[:idx])
	if err != nil {
		return Key{}, ErrInvalidKey.WithMessage(fmt.Sprintf("invalid order key %q: %v", s, err))
	}
	return Key{Channel: ch, OrderNo: s[idx+1:]}, nil
}

// Recipient is the shipping destination
type Recipient struct {
	Name     string
	Phone    string
	Mobile   string
	Address1 string
	Address2 string
	Zipcode  string
	Memo     string
}

// Item is one purchased line; it has no lifecycle outside its order
type Item struct {
	LineID      string
	SKU         string
	ProductName string
	OptionName  string
	Quantity    int
	Amount      decimal.Decimal
}

// UnifiedOrder is the canonical order aggregate
type UnifiedOrder struct {
	Channel       channel.Channel
	OrderNo       string
	Status        Status
	RawStatus     string
	Recipient     Recipient
	OrderedAt     time.Time
	TrackingNo    string
	Carrier       string
	CarrierLabel  string
	InvoiceSentAt *time.Time
	Currency      string
	Items         []Item
	TotalAmount   decimal.Decimal
	TotalQty      int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Key returns the order key
func (o *UnifiedOrder) Key() Key {
	return NewKey(o.Channel, o.OrderNo)
}

// AddItem appends a line unless the same line is already present. Lines are
// matched by LineID; lines without one match on SKU, option and amount.
// Returns false for the duplicate case.
func (o *UnifiedOrder) AddItem(item Item) bool {
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	for _, existing := range o.Items {
		if existing.sameLine(item) {
			return false
		}
	}
	o.Items = append(o.Items, item)
	o.Recalculate()
	return true
}

func (i Item) sameLine(other Item) bool {
	if i.LineID != "" || other.LineID != "" {
		return i.LineID == other.LineID
	}
	return i.SKU == other.SKU && i.OptionName == other.OptionName && i.Amount.Equal(other.Amount)
}

// Recalculate recomputes totals from the current items
func (o *UnifiedOrder) Recalculate() {
	total := decimal.Zero
	qty := 0
	for _, item := range o.Items {
		total = total.Add(item.Amount)
		qty += item.Quantity
	}
	o.TotalAmount = total
	o.TotalQty = qty
}

// Validate checks the aggregate invariants
func (o *UnifiedOrder) Validate() error {
	if !o.Channel.IsValid() {
		return ErrInvalidKey.WithMessage(fmt.Sprintf("unknown channel %q", o.Channel))
	}
	if strings.TrimSpace(o.OrderNo) == "" {
		return ErrOrderNoEmpty
	}
	if len(o.Items) == 0 {
		return ErrEmptyOrder.WithMessage(fmt.Sprintf("order %s has no items", o.Key()))
	}
	return nil
}

// QuantityBySKU sums quantities per SKU across lines
func (o *UnifiedOrder) QuantityBySKU() map[string]int {
	out := make(map[string]int, len(o.Items))
	for _, item := range o.Items {
		qty := item.Quantity
		if qty < 1 {
			qty = 1
		}
		out[item.SKU] += qty
	}
	return out
}

// LineIDs returns the channel line identifiers in line order
func (o *UnifiedOrder) LineIDs() []string {
	ids := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		if item.LineID != "" {
			ids = append(ids, item.LineID)
		}
	}
	return ids
}

// AssignInvoice records carrier and tracking number; the order moves to shipped
func (o *UnifiedOrder) AssignInvoice(c carrier.Carrier, trackingNo string, at time.Time) {
	o.Carrier = c.Value
	o.CarrierLabel = c.Label
	o.TrackingNo = trackingNo
	sentAt := at
	o.InvoiceSentAt = &sentAt
	o.Status = StatusShipped
	o.UpdatedAt = at
}

// HasInvoice reports whether a tracking number is recorded
func (o *UnifiedOrder) HasInvoice() bool {
	return o.TrackingNo != ""
}
