package ecommerce

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/omnisync/backend/internal/domain/integration"
	"github.com/omnisync/backend/internal/domain/order"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCoupang(t *testing.T, handler http.HandlerFunc) *CoupangAdapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	a, err := NewCoupangAdapter(&CoupangConfig{BaseURL: server.URL, VendorID: "A0001", AccessKey: "ak", SecretKey: "sk"}, nil)
	require.NoError(t, err)
	return a
}

func TestCoupangConfig_Validate(t *testing.T) {
	assert.ErrorIs(t, (&CoupangConfig{AccessKey: "a", SecretKey: "s"}).Validate(), ErrCoupangConfigMissingVendor)
	assert.ErrorIs(t, (&CoupangConfig{VendorID: "v", AccessKey: "a"}).Validate(), ErrCoupangConfigMissingKeys)

	cfg := &CoupangConfig{VendorID: "v", AccessKey: "a", SecretKey: "s"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, CoupangProductionAPIURL, cfg.BaseURL)
}

func TestCoupangConfig_Sign(t *testing.T) {
	cfg := &CoupangConfig{VendorID: "v", AccessKey: "ak", SecretKey: "sk"}
	at := time.Date(2024, 3, 1, 1, 2, 3, 0, time.UTC)

	header := cfg.Sign("GET", "/v2/path", "a=1", at)
	assert.True(t, strings.HasPrefix(header, "CEA algorithm=HmacSHA256, access-key=ak, signed-date=240301T010203Z, signature="))
	assert.Equal(t, header, cfg.Sign("GET", "/v2/path", "a=1", at))
	assert.NotEqual(t, header, cfg.Sign("GET", "/v2/path", "a=2", at))
}

func TestCoupangAdapter_InvoiceIsLocalOnly(t *testing.T) {
	a := newCoupang(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	res, err := a.SendInvoiceBatch(context.Background(), []integration.Shipment{
		{OrderKey: order.NewKey(channel.Coupang, "1")},
		{OrderKey: order.NewKey(channel.Coupang, "2")},
	})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.True(t, res[0].Success)
	assert.True(t, res[1].Success)
}

func TestCoupangAdapter_PushStockNotSupported(t *testing.T) {
	a := newCoupang(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	res, err := a.PushStock(context.Background(), []integration.StockUpdate{{OptionID: "1"}, {OptionID: "2"}})
	require.NoError(t, err)
	require.Len(t, res, 2)
	for _, r := range res {
		assert.False(t, r.Success)
		assert.Equal(t, integration.ErrNotSupported.Error(), r.Message)
	}
}

func TestCoupangAdapter_FetchOrders(t *testing.T) {
	a := newCoupang(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/providers/rg_open_api/apis/api/v1/vendors/A0001/rg/orders", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "CEA algorithm=HmacSHA256"))
		assert.Equal(t, "A0001", r.Header.Get("X-Requested-By"))
		q := r.URL.Query()
		assert.Equal(t, "20240301", q.Get("paidDateFrom"))
		assert.Equal(t, "20240302", q.Get("paidDateTo"))
		if q.Get("nextToken") == "" {
			_, _ = w.Write([]byte(`{"code":200,"message":"OK","nextToken":"page2","data":[
				{"vendorId":"A0001","orderId":9001,"paidAt":"1709254800000","orderItems":[
					{"vendorItemId":77,"productName":"Sleep sack","salesQuantity":2,"unitSalesPrice":15000,"currency":"KRW"},
					{"vendorItemId":78,"externalVendorSku":"SKU-78","productName":"Pillow","salesQuantity":1,"unitSalesPrice":9000}]}]}`))
			return
		}
		assert.Equal(t, "page2", q.Get("nextToken"))
		_, _ = w.Write([]byte(`{"code":200,"data":[{"orderId":9002,"paidAt":1709254800000,"orderItems":[{"vendorItemId":79,"salesQuantity":1,"unitSalesPrice":1}]}]}`))
	})

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, shared.KST)
	rows, err := a.FetchOrders(context.Background(), from, from.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	first := rows[0].Coupang
	require.NotNil(t, first)
	assert.Equal(t, int64(9001), first.OrderID)
	assert.Equal(t, int64(1709254800000), first.PaidAt)
	assert.Equal(t, int64(77), first.VendorItemID)
	assert.True(t, first.UnitSalesPrice.Equal(decimal.NewFromInt(15000)))
	assert.Equal(t, "SKU-78", rows[1].Coupang.ExternalSKU)
	assert.Equal(t, int64(1709254800000), rows[2].Coupang.PaidAt)
}
