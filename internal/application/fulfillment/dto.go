// Package fulfillment sends tracking numbers back to the sales channels.
// The dispatcher talks to the channel adapters; the saga wraps it with the
// per-order lock and the inventory deduction.
package fulfillment

import "strings"

// InvoiceEntry is one tracking number to record against an order.
// OrderKey may also be a bare channel order number.
type InvoiceEntry struct {
	OrderKey   string `json:"orderKey" binding:"required"`
	Carrier    string `json:"carrier" binding:"required"`
	TrackingNo string `json:"trackingNo" binding:"required"`
}

// Normalize trims the fields and drops whitespace inside the tracking number
func (e InvoiceEntry) Normalize() InvoiceEntry {
	e.OrderKey = strings.TrimSpace(e.OrderKey)
	e.Carrier = strings.TrimSpace(e.Carrier)
	e.TrackingNo = strings.Join(strings.Fields(e.TrackingNo), "")
	return e
}

// Result messages
const (
	MsgFulfilledByChannel = "fulfilled by channel"
	MsgOrderNotFound      = "order not found"
	MsgUnsupportedCarrier = "unsupported carrier for channel"
	MsgInvalidCarrier     = "invalid carrier"
	MsgCancelled          = "cancelled"
	MsgTrackingMissing    = "tracking number missing"
)
