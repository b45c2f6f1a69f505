package ecommerce

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
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
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CoupangProductionAPIURL is the Coupang Open API gateway
const CoupangProductionAPIURL = "https://api-gateway.coupang.com"

// coupangMaxPages guards against a nextToken that never ends
const coupangMaxPages = 200

// CoupangConfig holds Coupang Open API settings
type CoupangConfig struct {
	VendorID  string
	AccessKey string
	SecretKey string
	BaseURL   string
	RateLimit float64
	Timeout   time.Duration
}

// Errors for Coupang configuration
var (
	ErrCoupangConfigMissingVendor = errors.New("coupang: vendor id is required")
	ErrCoupangConfigMissingKeys   = errors.New("coupang: access key and secret key are required")
)

// Validate validates the configuration and fills defaults
func (c *CoupangConfig) Validate() error {
	if c.VendorID == "" {
		return ErrCoupangConfigMissingVendor
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return ErrCoupangConfigMissingKeys
	}
	if c.BaseURL == "" {
		c.BaseURL = CoupangProductionAPIURL
	}
	return nil
}

// Sign builds the CEA HMAC-SHA256 authorization header for a request
func (c *CoupangConfig) Sign(method, path, rawQuery string, at time.Time) string {
	signedDate := at.UTC().Format("060102T150405Z")
	mac := hmac.New(sha256.New, []byte(c.SecretKey))
	mac.Write([]byte(signedDate + method + path + rawQuery))
	return fmt.Sprintf("CEA algorithm=HmacSHA256, access-key=%s, signed-date=%s, signature=%s",
		c.AccessKey, signedDate, hex.EncodeToString(mac.Sum(nil)))
}

// CoupangAdapter reads Rocket Growth orders. Coupang ships those orders
// from its own warehouses, so invoices need no call and stock cannot be set.
type CoupangAdapter struct {
	config *CoupangConfig
	client *apiClient
}

// NewCoupangAdapter creates a new Coupang adapter with the given configuration
func NewCoupangAdapter(config *CoupangConfig, logger *zap.Logger) (*CoupangAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	client := newAPIClient(channel.Coupang, config.BaseURL, config.Timeout, config.RateLimit, logger)
	client.authorize = func(req *http.Request) error {
		req.Header.Set("Authorization", config.Sign(req.Method, req.URL.Path, req.URL.RawQuery, time.Now()))
		req.Header.Set("X-Requested-By", config.VendorID)
		return nil
	}
	return &CoupangAdapter{config: config, client: client}, nil
}

// Channel returns channel.Coupang
func (a *CoupangAdapter) Channel() channel.Channel {
	return channel.Coupang
}

// SupportsBatch is true: every shipment is acknowledged locally
func (a *CoupangAdapter) SupportsBatch() bool {
	return true
}

// SendInvoice acknowledges the shipment without calling Coupang
func (a *CoupangAdapter) SendInvoice(_ context.Context, s integration.Shipment) (integration.ShipmentResult, error) {
	return integration.ShipmentResult{OrderKey: s.OrderKey, Success: true, Message: "fulfilled by coupang"}, nil
}

// SendInvoiceBatch acknowledges every shipment
func (a *CoupangAdapter) SendInvoiceBatch(ctx context.Context, shipments []integration.Shipment) ([]integration.ShipmentResult, error) {
	out := make([]integration.ShipmentResult, len(shipments))
	for i, s := range shipments {
		out[i], _ = a.SendInvoice(ctx, s)
	}
	return out, nil
}

// PushStock fails every update with ErrNotSupported
func (a *CoupangAdapter) PushStock(_ context.Context, updates []integration.StockUpdate) ([]integration.StockPushResult, error) {
	out := make([]integration.StockPushResult, len(updates))
	for i, u := range updates {
		out[i] = integration.StockPushResult{Update: u, Message: integration.ErrNotSupported.Error()}
	}
	return out, nil
}

type coupangOrdersResponse struct {
	Code      any            `json:"code"`
	Message   string         `json:"message"`
	Data      []coupangOrder `json:"data"`
	NextToken string         `json:"nextToken"`
}

type coupangOrder struct {
	OrderID    int64              `json:"orderId"`
	PaidAt     json.Number        `json:"paidAt"`
	OrderItems []coupangOrderItem `json:"orderItems"`
}

type coupangOrderItem struct {
	VendorItemID          int64           `json:"vendorItemId"`
	ExternalVendorSKU     string          `json:"externalVendorSku"`
	ProductName           string          `json:"productName"`
	SellerProductItemName string          `json:"sellerProductItemName"`
	SalesQuantity         int             `json:"salesQuantity"`
	UnitSalesPrice        decimal.Decimal `json:"unitSalesPrice"`
	Currency              string          `json:"currency"`
}

// FetchOrders pages through the Rocket Growth orders paid in [from, to]
// (KST dates, day granularity)
func (a *CoupangAdapter) FetchOrders(ctx context.Context, from, to time.Time) ([]order.RawRow, error) {
	path := "/v2/providers/rg_open_api/apis/api/v1/vendors/" + url.PathEscape(a.config.VendorID) + "/rg/orders"
	query := url.Values{}
	query.Set("paidDateFrom", from.In(shared.KST).Format("20060102"))
	query.Set("paidDateTo", to.In(shared.KST).Format("20060102"))

	var rows []order.RawRow
	for page := 0; page < coupangMaxPages; page++ {
		var resp coupangOrdersResponse
		if err := a.client.do(ctx, http.MethodGet, path, query, nil, &resp); err != nil {
			return nil, err
		}
		for _, o := range resp.Data {
			rows = append(rows, coupangRows(o)...)
		}
		if resp.NextToken == "" {
			return rows, nil
		}
		query.Set("nextToken", resp.NextToken)
	}
	return nil, fmt.Errorf("%w: coupang: more than %d order pages", integration.ErrPlatformInvalidResponse, coupangMaxPages)
}

func coupangRows(o coupangOrder) []order.RawRow {
	paidAt, _ := strconv.ParseInt(o.PaidAt.String(), 10, 64)
	rows := make([]order.RawRow, 0, len(o.OrderItems))
	for _, it := range o.OrderItems {
		rows = append(rows, order.CoupangRawRow(order.CoupangRow{
			OrderID:               o.OrderID,
			PaidAt:                paidAt,
			VendorItemID:          it.VendorItemID,
			ExternalSKU:           it.ExternalVendorSKU,
			ProductName:           it.ProductName,
			SellerProductItemName: it.SellerProductItemName,
			SalesQuantity:         it.SalesQuantity,
			UnitSalesPrice:        it.UnitSalesPrice,
			Currency:              it.Currency,
		}))
	}
	return rows
}

// Ensure CoupangAdapter implements the channel ports
var (
	_ integration.InvoiceSink = (*CoupangAdapter)(nil)
	_ integration.StockPusher = (*CoupangAdapter)(nil)
	_ integration.OrderSource = (*CoupangAdapter)(nil)
)
