package order

import (
	"time"

	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/omnisync/backend/internal/domain/shared"
)

// SortField is a sortable order column
type SortField string

const (
	SortByOrderedAt   SortField = "ord_time"
	SortByTotalAmount SortField = "total_amount"
	SortByRecipient   SortField = "to_name"
	SortByChannel     SortField = "channel"
	SortByOrderNo     SortField = "order_no"
)

// IsValid returns true if the field is sortable
func (f SortField) IsValid() bool {
	switch f {
	case SortByOrderedAt, SortByTotalAmount, SortByRecipient, SortByChannel, SortByOrderNo:
		return true
	}
	return false
}

// Filter describes an order query
type Filter struct {
	Status   Status
	Channel  channel.Channel // empty means every channel
	Search   string
	DateFrom *time.Time
	DateTo   *time.Time
	SortBy   SortField
	SortDesc bool
	Page     shared.Pagination
	// GlobalStats computes Stats over the whole corpus instead of the filtered set
	GlobalStats bool
}

// Normalize applies defaults: ord_time, page 1, 50 per page.
// DateFrom snaps to 00:00:00 and DateTo to 23:59:59 of their KST day.
func (f Filter) Normalize() Filter {
	if !f.SortBy.IsValid() {
		f.SortBy = SortByOrderedAt
	}
	f.Page = f.Page.Normalize()
	if f.DateFrom != nil {
		t := f.DateFrom.In(shared.KST)
		from := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, shared.KST)
		f.DateFrom = &from
	}
	if f.DateTo != nil {
		t := f.DateTo.In(shared.KST)
		to := time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, shared.KST)
		f.DateTo = &to
	}
	return f
}

// Stats are counts over a set of orders
type Stats struct {
	Total     int64                     `json:"total"`
	ByStatus  map[Status]int64          `json:"byStatus"`
	ByChannel map[channel.Channel]int64 `json:"byChannel"`
}

// NewStats creates stats with every status and channel present at zero
func NewStats() Stats {
	s := Stats{
		ByStatus:  make(map[Status]int64, len(AllStatuses())),
		ByChannel: make(map[channel.Channel]int64, len(channel.All())),
	}
	for _, st := range AllStatuses() {
		s.ByStatus[st] = 0
	}
	for _, ch := range channel.All() {
		s.ByChannel[ch] = 0
	}
	return s
}

// Page is one page of query results with its stats
type Page struct {
	Orders []*UnifiedOrder
	Total  int64
	Page   shared.Pagination
	Stats  Stats
}
