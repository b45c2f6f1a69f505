package ecommerce

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/omnisync/backend/internal/domain/integration"
	"github.com/omnisync/backend/internal/domain/order"
	"github.com/omnisync/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Cafe24Config holds Cafe24 Admin API settings
type Cafe24Config struct {
	MallID      string
	AccessToken string
	APIVersion  string
	// BaseURL overrides https://{mall_id}.cafe24api.com/api/v2/admin
	BaseURL   string
	ShopNo    int
	RateLimit float64
	Timeout   time.Duration
	// PageSize is the orders page size; Cafe24 caps it at 1000
	PageSize int
}

// Errors for Cafe24 configuration
var (
	ErrCafe24ConfigMissingMall  = errors.New("cafe24: mall id or base url is required")
	ErrCafe24ConfigMissingToken = errors.New("cafe24: access token is required")
)

// Validate validates the configuration and fills defaults
func (c *Cafe24Config) Validate() error {
	if c.MallID == "" && c.BaseURL == "" {
		return ErrCafe24ConfigMissingMall
	}
	if c.AccessToken == "" {
		return ErrCafe24ConfigMissingToken
	}
	if c.BaseURL == "" {
		c.BaseURL = fmt.Sprintf("https://%s.cafe24api.com/api/v2/admin", c.MallID)
	}
	if c.APIVersion == "" {
		c.APIVersion = "2024-06-01"
	}
	if c.ShopNo <= 0 {
		c.ShopNo = 1
	}
	if c.PageSize <= 0 || c.PageSize > 1000 {
		c.PageSize = 500
	}
	return nil
}

// Cafe24Adapter talks to the Cafe24 Admin API. Shipments go one order per
// call; stock is set per variant.
type Cafe24Adapter struct {
	config *Cafe24Config
	client *apiClient
}

// NewCafe24Adapter creates a new Cafe24 adapter with the given configuration
func NewCafe24Adapter(config *Cafe24Config, logger *zap.Logger) (*Cafe24Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	client := newAPIClient(channel.Cafe24, config.BaseURL, config.Timeout, config.RateLimit, logger)
	client.authorize = func(req *http.Request) error {
		req.Header.Set("Authorization", "Bearer "+config.AccessToken)
		req.Header.Set("X-Cafe24-Api-Version", config.APIVersion)
		return nil
	}
	return &Cafe24Adapter{config: config, client: client}, nil
}

// Channel returns channel.Cafe24
func (a *Cafe24Adapter) Channel() channel.Channel {
	return channel.Cafe24
}

// SupportsBatch is false: the shipments endpoint takes a single order
func (a *Cafe24Adapter) SupportsBatch() bool {
	return false
}

// ---------------------------------------------------------------------------
// Invoices
// ---------------------------------------------------------------------------

// SendInvoice registers a shipment for the order's items
func (a *Cafe24Adapter) SendInvoice(ctx context.Context, s integration.Shipment) (integration.ShipmentResult, error) {
	body := cafe24ShipmentRequest{
		ShopNo: a.config.ShopNo,
		Request: cafe24ShipmentInput{
			TrackingNo:          s.TrackingNo,
			ShippingCompanyCode: s.CarrierCode,
			OrderItemCode:       s.LineIDs,
			Status:              "shipping",
		},
	}
	path := "/orders/" + url.PathEscape(s.OrderKey.OrderNo) + "/shipments"
	if err := a.client.do(ctx, http.MethodPost, path, nil, body, nil); err != nil {
		return integration.ShipmentResult{OrderKey: s.OrderKey, Message: err.Error()}, err
	}
	return integration.ShipmentResult{OrderKey: s.OrderKey, Success: true}, nil
}

// SendInvoiceBatch sends the shipments one by one
func (a *Cafe24Adapter) SendInvoiceBatch(ctx context.Context, shipments []integration.Shipment) ([]integration.ShipmentResult, error) {
	out := make([]integration.ShipmentResult, len(shipments))
	for i, s := range shipments {
		out[i], _ = a.SendInvoice(ctx, s)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Stock
// ---------------------------------------------------------------------------

// PushStock sets each variant's inventory quantity
func (a *Cafe24Adapter) PushStock(ctx context.Context, updates []integration.StockUpdate) ([]integration.StockPushResult, error) {
	out := make([]integration.StockPushResult, len(updates))
	for i, u := range updates {
		out[i] = integration.StockPushResult{Update: u}
		body := cafe24InventoryRequest{ShopNo: a.config.ShopNo, Request: cafe24InventoryInput{Quantity: u.Quantity}}
		path := "/products/" + url.PathEscape(u.ProductNo) + "/variants/" + url.PathEscape(u.OptionID) + "/inventories"
		if err := a.client.do(ctx, http.MethodPut, path, nil, body, nil); err != nil {
			out[i].Message = err.Error()
			continue
		}
		out[i].Success = true
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// FetchOrders pages through the orders placed in [from, to] (KST dates) and
// flattens every item into a raw row
func (a *Cafe24Adapter) FetchOrders(ctx context.Context, from, to time.Time) ([]order.RawRow, error) {
	var rows []order.RawRow
	for offset := 0; ; offset += a.config.PageSize {
		query := url.Values{}
		query.Set("shop_no", strconv.Itoa(a.config.ShopNo))
		query.Set("start_date", from.In(shared.KST).Format("2006-01-02"))
		query.Set("end_date", to.In(shared.KST).Format("2006-01-02"))
		query.Set("embed", "items,receivers")
		query.Set("limit", strconv.Itoa(a.config.PageSize))
		query.Set("offset", strconv.Itoa(offset))

		var resp cafe24OrdersResponse
		if err := a.client.do(ctx, http.MethodGet, "/orders", query, nil, &resp); err != nil {
			return nil, err
		}
		for _, o := range resp.Orders {
			rows = append(rows, cafe24Rows(o)...)
		}
		if len(resp.Orders) < a.config.PageSize {
			return rows, nil
		}
	}
}

func cafe24Rows(o cafe24Order) []order.RawRow {
	var recv cafe24Receiver
	if len(o.Receivers) > 0 {
		recv = o.Receivers[0]
	}
	rows := make([]order.RawRow, 0, len(o.Items))
	for _, it := range o.Items {
		rows = append(rows, order.Cafe24RawRow(order.Cafe24Row{
			OrderID:           o.OrderID,
			OrderItemCode:     it.OrderItemCode,
			ProductCode:       it.ProductCode,
			CustomVariantCode: it.CustomVariantCode,
			ProductName:       it.ProductName,
			OptionValue:       it.OptionValue,
			Quantity:          it.Quantity,
			ProductPrice:      it.ProductPrice,
			PaymentAmount:     it.PaymentAmount,
			OrderStatus:       it.OrderStatus,
			OrderDate:         o.OrderDate,
			Receiver: order.Cafe24Receiver{
				Name:            recv.Name,
				Phone:           recv.Phone,
				Cellphone:       recv.Cellphone,
				Address1:        recv.Address1,
				Address2:        recv.Address2,
				Zipcode:         recv.Zipcode,
				ShippingMessage: recv.ShippingMessage,
			},
			TrackingNo:          it.TrackingNo,
			ShippingCompanyCode: it.ShippingCompanyCode,
			Currency:            o.Currency,
		}))
	}
	return rows
}

// Ensure Cafe24Adapter implements the channel ports
var (
	_ integration.InvoiceSink = (*Cafe24Adapter)(nil)
	_ integration.StockPusher = (*Cafe24Adapter)(nil)
	_ integration.OrderSource = (*Cafe24Adapter)(nil)
)
