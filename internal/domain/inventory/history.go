package inventory

import (
	"time"

	"github.com/google/uuid"
)

// ChangeType classifies a stock movement
type ChangeType string

const (
	ChangeShipment ChangeType = "shipment"
	ChangeReturn   ChangeType = "return"
	ChangeAdjust   ChangeType = "adjust"
)

const (
	// ReferenceChannelOrder marks movements caused by a channel order
	ReferenceChannelOrder = "channel_order"
	// ReferenceStockCount marks manual stock counts; the reference key is the SKU
	ReferenceStockCount = "stock_count"
)

// History is one append-only stock movement. ChangeQuantity is negative for
// stock leaving the warehouse.
type History struct {
	ID             uuid.UUID
	WarehouseID    uuid.UUID
	SKU            string
	ChangeType     ChangeType
	ChangeQuantity int
	StockBefore    int
	StockAfter     int
	ReferenceType  string
	ReferenceKey   string
	Reason         string
	CreatedAt      time.Time
}

// ShipmentHistory journals a deduction record
func ShipmentHistory(r DeductionRecord) History {
	return History{
		ID:             uuid.New(),
		WarehouseID:    r.WarehouseID,
		SKU:            r.SKU,
		ChangeType:     ChangeShipment,
		ChangeQuantity: -r.Quantity,
		StockBefore:    r.StockBefore,
		StockAfter:     r.StockAfter,
		ReferenceType:  ReferenceChannelOrder,
		ReferenceKey:   r.OrderKey,
		Reason:         "order shipment",
		CreatedAt:      r.CreatedAt,
	}
}

// ReturnHistory journals the reversal of a deduction record
func ReturnHistory(r DeductionRecord, before, after int, at time.Time) History {
	return History{
		ID:             uuid.New(),
		WarehouseID:    r.WarehouseID,
		SKU:            r.SKU,
		ChangeType:     ChangeReturn,
		ChangeQuantity: r.Quantity,
		StockBefore:    before,
		StockAfter:     after,
		ReferenceType:  ReferenceChannelOrder,
		ReferenceKey:   r.OrderKey,
		Reason:         "invoice write rolled back",
		CreatedAt:      at,
	}
}

// AdjustmentHistory journals a manual stock count that moved quantity from before to r.Quantity
func AdjustmentHistory(r *StockRecord, before int, reason string, at time.Time) History {
	if reason == "" {
		reason = "stock count"
	}
	return History{
		ID:             uuid.New(),
		WarehouseID:    r.WarehouseID,
		SKU:            r.SKU,
		ChangeType:     ChangeAdjust,
		ChangeQuantity: r.Quantity - before,
		StockBefore:    before,
		StockAfter:     r.Quantity,
		ReferenceType:  ReferenceStockCount,
		ReferenceKey:   r.SKU,
		Reason:         reason,
		CreatedAt:      at,
	}
}
