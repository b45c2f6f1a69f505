package order

import (
	"strings"

	"github.com/omnisync/backend/internal/domain/channel"
)

// Status is the canonical order status shared by all channels
type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusPreparing      Status = "preparing"
	StatusShipped        Status = "shipped"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
	// StatusUnknown is assigned to channel statuses missing from the lookup tables
	StatusUnknown Status = "unknown"
)

// AllStatuses returns every status, unknown last
func AllStatuses() []Status {
	return []Status{
		StatusPendingPayment,
		StatusPreparing,
		StatusShipped,
		StatusDelivered,
		StatusCancelled,
		StatusUnknown,
	}
}

// IsValid returns true if the status is one of the canonical values
func (s Status) IsValid() bool {
	switch s {
	case StatusPendingPayment, StatusPreparing, StatusShipped,
		StatusDelivered, StatusCancelled, StatusUnknown:
		return true
	}
	return false
}

// String returns the string representation
func (s Status) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// Channel status vocabularies
// ---------------------------------------------------------------------------

var cafe24Statuses = map[string]Status{
	"N00": StatusPendingPayment,
	"N10": StatusPreparing,
	"N20": StatusPreparing,
	"N21": StatusPreparing,
	"N22": StatusPreparing,
	"N30": StatusShipped,
	"N40": StatusDelivered,
	"C00": StatusCancelled,
	"C10": StatusCancelled,
	"C34": StatusCancelled,
	"C36": StatusCancelled,
	"C40": StatusCancelled,
	"C47": StatusCancelled,
	"C48": StatusCancelled,
	"C49": StatusCancelled,
	"R00": StatusCancelled,
	"R10": StatusCancelled,
	"R12": StatusCancelled,
	"R13": StatusCancelled,
	"R30": StatusCancelled,
	"R34": StatusCancelled,
	"R36": StatusCancelled,
	"R40": StatusCancelled,
	"E00": StatusPreparing,
	"E10": StatusPreparing,
}

var naverStatuses = map[string]Status{
	"PAYMENT_WAITING":       StatusPendingPayment,
	"PAYED":                 StatusPreparing,
	"DELIVERING":            StatusShipped,
	"DELIVERED":             StatusDelivered,
	"PURCHASE_DECIDED":      StatusDelivered,
	"EXCHANGED":             StatusPreparing,
	"CANCELED":              StatusCancelled,
	"RETURNED":              StatusCancelled,
	"CANCELED_BY_NOPAYMENT": StatusCancelled,
	"CANCEL_REQUEST":        StatusPreparing,
	"RETURN_REQUEST":        StatusPreparing,
	"EXCHANGE_REQUEST":      StatusPreparing,
}

// MapChannelStatus translates a channel's raw status string. Coupang Rocket
// Growth only exposes paid orders, so every coupang row is preparing.
func MapChannelStatus(ch channel.Channel, raw string) Status {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	switch ch {
	case channel.Cafe24:
		if s, ok := cafe24Statuses[raw]; ok {
			return s
		}
	case channel.Naver:
		if s, ok := naverStatuses[raw]; ok {
			return s
		}
	case channel.Coupang:
		return StatusPreparing
	}
	return StatusUnknown
}
