package order

import "fmt"

// Aggregate folds single-line candidates into orders keyed by orderKey.
// Key order and line order follow first appearance; repeated lines (see
// AddItem) are dropped so re-aggregating the same rows is stable. Orders
// left without items are rejected with ErrEmptyOrder.
func Aggregate(candidates []*UnifiedOrder) ([]*UnifiedOrder, []error) {
	byKey := make(map[Key]*UnifiedOrder, len(candidates))
	keys := make([]Key, 0, len(candidates))

	for _, c := range candidates {
		if c == nil {
			continue
		}
		k := c.Key()
		merged, ok := byKey[k]
		if !ok {
			merged = cloneHeader(c)
			byKey[k] = merged
			keys = append(keys, k)
		} else {
			mergeHeader(merged, c)
		}
		for _, item := range c.Items {
			merged.AddItem(item)
		}
	}

	out := make([]*UnifiedOrder, 0, len(keys))
	var errs []error
	for _, k := range keys {
		o := byKey[k]
		if err := o.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", k, err))
			continue
		}
		o.Recalculate()
		out = append(out, o)
	}
	return out, errs
}

func cloneHeader(c *UnifiedOrder) *UnifiedOrder {
	o := *c
	o.Items = make([]Item, 0, len(c.Items))
	if c.InvoiceSentAt != nil {
		t := *c.InvoiceSentAt
		o.InvoiceSentAt = &t
	}
	return &o
}

// mergeHeader fills order-level fields the first row left empty
func mergeHeader(dst, src *UnifiedOrder) {
	if dst.TrackingNo == "" && src.TrackingNo != "" {
		dst.TrackingNo = src.TrackingNo
		dst.Carrier = src.Carrier
		dst.CarrierLabel = src.CarrierLabel
	}
	if dst.Recipient.Name == "" {
		dst.Recipient = src.Recipient
	}
	if dst.OrderedAt.IsZero() {
		dst.OrderedAt = src.OrderedAt
	}
	if dst.Status == StatusUnknown && src.Status != StatusUnknown {
		dst.Status = src.Status
		dst.RawStatus = src.RawStatus
	}
}
