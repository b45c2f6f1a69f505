package ecommerce

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/omnisync/backend/internal/domain/integration"
	"github.com/omnisync/backend/internal/domain/order"
	"github.com/omnisync/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const (
	// NaverProductionAPIURL is the Commerce API gateway
	NaverProductionAPIURL = "https://api.commerce.naver.com/external"

	naverTimeLayout = "2006-01-02T15:04:05.000-07:00"
	// naverMaxWindow is the widest last-changed window the API accepts
	naverMaxWindow = 24 * time.Hour
	// naverQueryChunk is the product order id limit of one query call
	naverQueryChunk = 300
)

// NaverConfig holds Naver Commerce API settings
type NaverConfig struct {
	AccessToken string
	BaseURL     string
	RateLimit   float64
	Timeout     time.Duration
}

// ErrNaverConfigMissingToken is returned when no access token is configured
var ErrNaverConfigMissingToken = errors.New("naver: access token is required")

// Validate validates the configuration and fills defaults
func (c *NaverConfig) Validate() error {
	if c.AccessToken == "" {
		return ErrNaverConfigMissingToken
	}
	if c.BaseURL == "" {
		c.BaseURL = NaverProductionAPIURL
	}
	return nil
}

// NaverAdapter talks to the Naver Commerce API. Dispatch accepts many product
// orders per call and reports per product order.
type NaverAdapter struct {
	config *NaverConfig
	client *apiClient
	now    func() time.Time
}

// NewNaverAdapter creates a new Naver adapter with the given configuration
func NewNaverAdapter(config *NaverConfig, logger *zap.Logger) (*NaverAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	client := newAPIClient(channel.Naver, config.BaseURL, config.Timeout, config.RateLimit, logger)
	client.authorize = func(req *http.Request) error {
		req.Header.Set("Authorization", "Bearer "+config.AccessToken)
		return nil
	}
	return &NaverAdapter{config: config, client: client, now: time.Now}, nil
}

// Channel returns channel.Naver
func (a *NaverAdapter) Channel() channel.Channel {
	return channel.Naver
}

// SupportsBatch is true
func (a *NaverAdapter) SupportsBatch() bool {
	return true
}

// ---------------------------------------------------------------------------
// Invoices
// ---------------------------------------------------------------------------

// SendInvoice dispatches a single order
func (a *NaverAdapter) SendInvoice(ctx context.Context, s integration.Shipment) (integration.ShipmentResult, error) {
	results, err := a.SendInvoiceBatch(ctx, []integration.Shipment{s})
	if len(results) == 0 {
		return integration.ShipmentResult{OrderKey: s.OrderKey}, err
	}
	return results[0], err
}

// SendInvoiceBatch dispatches every product order of the shipments in one
// call. An order succeeds only when all of its product orders succeed.
func (a *NaverAdapter) SendInvoiceBatch(ctx context.Context, shipments []integration.Shipment) ([]integration.ShipmentResult, error) {
	out := make([]integration.ShipmentResult, len(shipments))
	req := naverDispatchRequest{}
	for i, s := range shipments {
		out[i] = integration.ShipmentResult{OrderKey: s.OrderKey}
		dispatchAt := s.DispatchAt
		if dispatchAt.IsZero() {
			dispatchAt = a.now()
		}
		for _, line := range s.LineIDs {
			req.DispatchProductOrders = append(req.DispatchProductOrders, naverDispatchOrder{
				ProductOrderID:      line,
				DeliveryMethod:      "DELIVERY",
				DeliveryCompanyCode: s.CarrierCode,
				TrackingNumber:      s.TrackingNo,
				DispatchDate:        dispatchAt.In(shared.KST).Format(naverTimeLayout),
			})
		}
	}
	if len(req.DispatchProductOrders) == 0 {
		for i := range out {
			out[i].Message = "order has no product order ids"
		}
		return out, nil
	}

	var resp naverDispatchResponse
	if err := a.client.do(ctx, http.MethodPost, "/v1/pay-order/seller/product-orders/dispatch", nil, req, &resp); err != nil {
		for i := range out {
			out[i].Message = err.Error()
		}
		return out, err
	}

	succeeded := make(map[string]bool, len(resp.Data.SuccessProductOrderIDs))
	for _, id := range resp.Data.SuccessProductOrderIDs {
		succeeded[id] = true
	}
	failures := make(map[string]string, len(resp.Data.FailProductOrderInfos))
	for _, f := range resp.Data.FailProductOrderInfos {
		msg := f.Message
		if msg == "" {
			msg = f.Code
		}
		failures[f.ProductOrderID] = msg
	}

	for i, s := range shipments {
		var problems []string
		for _, line := range s.LineIDs {
			if succeeded[line] {
				continue
			}
			msg, ok := failures[line]
			if !ok {
				msg = "no result returned"
			}
			problems = append(problems, line+": "+msg)
		}
		if len(problems) == 0 && len(s.LineIDs) > 0 {
			out[i].Success = true
			continue
		}
		if len(s.LineIDs) == 0 {
			problems = append(problems, "order has no product order ids")
		}
		out[i].Message = strings.Join(problems, "; ")
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Stock
// ---------------------------------------------------------------------------

// PushStock sends one option-stock call per origin product, grouping its options
func (a *NaverAdapter) PushStock(ctx context.Context, updates []integration.StockUpdate) ([]integration.StockPushResult, error) {
	out := make([]integration.StockPushResult, len(updates))
	groups := make(map[string][]int)
	var products []string
	for i, u := range updates {
		out[i] = integration.StockPushResult{Update: u}
		if _, err := strconv.ParseInt(u.OptionID, 10, 64); err != nil {
			out[i].Message = fmt.Sprintf("invalid naver option id %q", u.OptionID)
			continue
		}
		if _, seen := groups[u.ProductNo]; !seen {
			products = append(products, u.ProductNo)
		}
		groups[u.ProductNo] = append(groups[u.ProductNo], i)
	}

	for _, productNo := range products {
		idx := groups[productNo]
		req := naverOptionStockRequest{OptionStockUpdateRequests: make([]naverOptionStock, 0, len(idx))}
		for _, i := range idx {
			id, _ := strconv.ParseInt(updates[i].OptionID, 10, 64)
			req.OptionStockUpdateRequests = append(req.OptionStockUpdateRequests, naverOptionStock{
				ID:            id,
				StockQuantity: updates[i].Quantity,
			})
		}
		path := "/v1/products/origin-products/" + url.PathEscape(productNo) + "/option-stock"
		err := a.client.do(ctx, http.MethodPut, path, nil, req, nil)
		for _, i := range idx {
			if err != nil {
				out[i].Message = err.Error()
				continue
			}
			out[i].Success = true
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// FetchOrders lists product orders changed in [from, to] in windows of at
// most 24 hours, then loads their details in chunks
func (a *NaverAdapter) FetchOrders(ctx context.Context, from, to time.Time) ([]order.RawRow, error) {
	ids, err := a.changedProductOrders(ctx, from, to)
	if err != nil {
		return nil, err
	}

	rows := make([]order.RawRow, 0, len(ids))
	for start := 0; start < len(ids); start += naverQueryChunk {
		end := min(start+naverQueryChunk, len(ids))
		var resp naverQueryResponse
		if err := a.client.do(ctx, http.MethodPost, "/v1/pay-order/seller/product-orders/query", nil,
			naverQueryRequest{ProductOrderIDs: ids[start:end]}, &resp); err != nil {
			return nil, err
		}
		for _, d := range resp.Data {
			rows = append(rows, naverRow(d))
		}
	}
	return rows, nil
}

func (a *NaverAdapter) changedProductOrders(ctx context.Context, from, to time.Time) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string
	for windowStart := from; windowStart.Before(to); windowStart = windowStart.Add(naverMaxWindow) {
		windowEnd := windowStart.Add(naverMaxWindow)
		if windowEnd.After(to) {
			windowEnd = to
		}

		query := url.Values{}
		query.Set("lastChangedFrom", windowStart.In(shared.KST).Format(naverTimeLayout))
		query.Set("lastChangedTo", windowEnd.In(shared.KST).Format(naverTimeLayout))
		for {
			var resp naverChangedStatusesResponse
			if err := a.client.do(ctx, http.MethodGet, "/v1/pay-order/seller/product-orders/last-changed-statuses", query, nil, &resp); err != nil {
				return nil, err
			}
			for _, s := range resp.Data.LastChangeStatuses {
				if s.ProductOrderID != "" && !seen[s.ProductOrderID] {
					seen[s.ProductOrderID] = true
					ids = append(ids, s.ProductOrderID)
				}
			}
			if resp.Data.More == nil || resp.Data.More.MoreFrom == "" {
				break
			}
			query.Set("lastChangedFrom", resp.Data.More.MoreFrom)
			query.Set("moreSequence", resp.Data.More.MoreSequence)
		}
	}
	return ids, nil
}

func naverRow(d naverProductOrderDetail) order.RawRow {
	po := d.ProductOrder
	return order.NaverRawRow(order.NaverRow{
		ProductOrderID:          po.ProductOrderID,
		OrderID:                 d.Order.OrderID,
		ProductOrderStatus:      po.ProductOrderStatus,
		OrderDate:               d.Order.OrderDate,
		ReceiverName:            po.ShippingAddress.Name,
		ReceiverTel:             po.ShippingAddress.Tel1,
		ReceiverTel2:            po.ShippingAddress.Tel2,
		ReceiverAddress:         po.ShippingAddress.BaseAddress,
		ReceiverDetailedAddress: po.ShippingAddress.DetailedAddress,
		ReceiverZipCode:         po.ShippingAddress.ZipCode,
		DeliveryMemo:            po.ShippingMemo,
		TrackingNumber:          d.Delivery.TrackingNumber,
		DeliveryCompanyCode:     d.Delivery.DeliveryCompany,
		ProductID:               po.ProductID,
		ProductName:             po.ProductName,
		ProductOption:           po.ProductOption,
		Quantity:                po.Quantity,
		UnitPrice:               po.UnitPrice,
		TotalPaymentAmount:      po.TotalPaymentAmount,
		SellerManagementCode:    po.SellerProductCode,
		OptionManageCode:        po.OptionManageCode,
	})
}

// Ensure NaverAdapter implements the channel ports
var (
	_ integration.InvoiceSink = (*NaverAdapter)(nil)
	_ integration.StockPusher = (*NaverAdapter)(nil)
	_ integration.OrderSource = (*NaverAdapter)(nil)
)
