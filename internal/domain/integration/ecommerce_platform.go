package integration

import (
	"context"
	"errors"
	"time"

	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/omnisync/backend/internal/domain/order"
)

// ---------------------------------------------------------------------------
// Channel Errors
// ---------------------------------------------------------------------------

var (
	ErrChannelNotConfigured    = errors.New("integration: channel not configured")
	ErrChannelNotEnabled       = errors.New("integration: channel not enabled")
	ErrPlatformRequestFailed   = errors.New("integration: platform request failed")
	ErrPlatformInvalidResponse = errors.New("integration: invalid platform response")
	ErrPlatformAuthFailed      = errors.New("integration: platform authentication failed")
	ErrPlatformRateLimited     = errors.New("integration: platform rate limited")
	ErrNotSupported            = errors.New("integration: operation not supported by channel")

	ErrMappingInvalidChannel = errors.New("integration: invalid channel")
	ErrMappingInvalidProduct = errors.New("integration: channel product number is required")
	ErrMappingInvalidOption  = errors.New("integration: channel option id is required")
	ErrMappingInvalidSKU     = errors.New("integration: internal SKU is required")
)

// ---------------------------------------------------------------------------
// Invoice dispatch
// ---------------------------------------------------------------------------

// Shipment is one order's tracking information in the channel's own vocabulary
type Shipment struct {
	OrderKey    order.Key
	LineIDs     []string
	CarrierCode string
	TrackingNo  string
	DispatchAt  time.Time
}

// ShipmentResult is the channel's verdict for one shipment
type ShipmentResult struct {
	OrderKey order.Key
	Success  bool
	Message  string
}

// InvoiceSink sends tracking numbers to a channel
type InvoiceSink interface {
	Channel() channel.Channel

	// SupportsBatch reports whether SendInvoiceBatch groups shipments into
	// fewer calls than one per order
	SupportsBatch() bool

	SendInvoice(ctx context.Context, s Shipment) (ShipmentResult, error)

	// SendInvoiceBatch returns one result per shipment, in input order.
	// A transport failure is reported on every affected shipment.
	SendInvoiceBatch(ctx context.Context, shipments []Shipment) ([]ShipmentResult, error)
}

// ---------------------------------------------------------------------------
// Stock push
// ---------------------------------------------------------------------------

// StockUpdate sets one channel option's sellable stock
type StockUpdate struct {
	ProductNo string
	OptionID  string
	SKU       string
	Quantity  int
}

// StockPushResult is the outcome of one StockUpdate
type StockPushResult struct {
	Update  StockUpdate
	Success bool
	Message string
}

// StockPusher pushes option stock to a channel
type StockPusher interface {
	Channel() channel.Channel
	PushStock(ctx context.Context, updates []StockUpdate) ([]StockPushResult, error)
}

// ---------------------------------------------------------------------------
// Order pull
// ---------------------------------------------------------------------------

// OrderSource pulls raw order rows from a channel for a time window
type OrderSource interface {
	Channel() channel.Channel
	FetchOrders(ctx context.Context, from, to time.Time) ([]order.RawRow, error)
}

// Registry gives access to the configured adapters by channel
type Registry interface {
	InvoiceSink(ch channel.Channel) (InvoiceSink, error)
	StockPusher(ch channel.Channel) (StockPusher, error)
	OrderSource(ch channel.Channel) (OrderSource, error)
	Channels() []channel.Channel
}
