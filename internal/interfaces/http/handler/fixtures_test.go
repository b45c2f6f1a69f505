package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/omnisync/backend/internal/application/allocation"
	"github.com/omnisync/backend/internal/application/batch"
	"github.com/omnisync/backend/internal/application/fulfillment"
	appintegration "github.com/omnisync/backend/internal/application/integration"
	appinventory "github.com/omnisync/backend/internal/application/inventory"
	apporder "github.com/omnisync/backend/internal/application/order"
	"github.com/omnisync/backend/internal/domain/carrier"
	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/omnisync/backend/internal/domain/integration"
	"github.com/omnisync/backend/internal/domain/inventory"
	"github.com/omnisync/backend/internal/domain/order"
	"github.com/omnisync/backend/internal/infrastructure/cache"
	"github.com/omnisync/backend/internal/interfaces/http/dto"
	"github.com/omnisync/backend/internal/interfaces/http/middleware"
	"github.com/omnisync/backend/internal/interfaces/http/router"
	"github.com/omnisync/backend/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := middleware.SetupValidator(allocation.RegisterValidations); err != nil {
		panic(err)
	}
}

// fakeChannel accepts every shipment and stock update, and serves rows as
// its order feed
type fakeChannel struct {
	mu      sync.Mutex
	ch      channel.Channel
	rows    []order.RawRow
	fetch   error
	sent    []integration.Shipment
	pushed  []integration.StockUpdate
	windows [][2]time.Time
}

func (f *fakeChannel) Channel() channel.Channel { return f.ch }
func (f *fakeChannel) SupportsBatch() bool      { return true }

func (f *fakeChannel) SendInvoice(ctx context.Context, s integration.Shipment) (integration.ShipmentResult, error) {
	rs, err := f.SendInvoiceBatch(ctx, []integration.Shipment{s})
	if err != nil {
		return integration.ShipmentResult{OrderKey: s.OrderKey}, err
	}
	return rs[0], nil
}

func (f *fakeChannel) SendInvoiceBatch(_ context.Context, shipments []integration.Shipment) ([]integration.ShipmentResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, shipments...)
	out := make([]integration.ShipmentResult, len(shipments))
	for i, s := range shipments {
		out[i] = integration.ShipmentResult{OrderKey: s.OrderKey, Success: true}
	}
	return out, nil
}

func (f *fakeChannel) PushStock(_ context.Context, updates []integration.StockUpdate) ([]integration.StockPushResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed = append(f.pushed, updates...)
	out := make([]integration.StockPushResult, len(updates))
	for i, u := range updates {
		out[i] = integration.StockPushResult{Update: u, Success: true}
	}
	return out, nil
}

func (f *fakeChannel) FetchOrders(_ context.Context, from, to time.Time) ([]order.RawRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows = append(f.windows, [2]time.Time{from, to})
	return f.rows, f.fetch
}

func (f *fakeChannel) Sent() []integration.Shipment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]integration.Shipment(nil), f.sent...)
}

// fakeRegistry serves only the channels it holds
type fakeRegistry map[channel.Channel]*fakeChannel

func (r fakeRegistry) get(ch channel.Channel) (*fakeChannel, error) {
	f, ok := r[ch]
	if !ok {
		return nil, integration.ErrChannelNotConfigured
	}
	return f, nil
}

func (r fakeRegistry) InvoiceSink(ch channel.Channel) (integration.InvoiceSink, error) {
	f, err := r.get(ch)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r fakeRegistry) StockPusher(ch channel.Channel) (integration.StockPusher, error) {
	f, err := r.get(ch)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r fakeRegistry) OrderSource(ch channel.Channel) (integration.OrderSource, error) {
	f, err := r.get(ch)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r fakeRegistry) Channels() []channel.Channel {
	out := make([]channel.Channel, 0, len(r))
	for _, ch := range channel.All() {
		if _, ok := r[ch]; ok {
			out = append(out, ch)
		}
	}
	return out
}

type fixture struct {
	engine     *gin.Engine
	orders     *testutil.MemoryOrderRepository
	warehouses *testutil.MemoryWarehouseRepository
	stock      *testutil.MemoryStockRepository
	deductions *testutil.MemoryDeductionRepository
	mappings   *testutil.MemoryOptionMappingRepository
	warehouse  *inventory.Warehouse
	naver      *fakeChannel
	cafe24     *fakeChannel
	handlers   Handlers
}

func newFixture(t *testing.T, orders ...*order.UnifiedOrder) *fixture {
	t.Helper()
	main := inventory.NewWarehouse("MAIN", "Main warehouse", true)
	warehouses := testutil.NewMemoryWarehouseRepository(main)
	stock := testutil.NewMemoryStockRepository(warehouses,
		inventory.NewStockRecord(main.ID, "SKU-A", 10),
		inventory.NewStockRecord(main.ID, "SKU-B", 1),
	)
	deductions := testutil.NewMemoryDeductionRepository()
	orderRepo := testutil.NewMemoryOrderRepository(orders...)
	mappings := testutil.NewMemoryOptionMappingRepository()

	f := &fixture{
		orders:     orderRepo,
		warehouses: warehouses,
		stock:      stock,
		deductions: deductions,
		mappings:   mappings,
		warehouse:  main,
		naver:      &fakeChannel{ch: channel.Naver},
		cafe24:     &fakeChannel{ch: channel.Cafe24},
	}
	channels := fakeRegistry{channel.Naver: f.naver, channel.Cafe24: f.cafe24}
	carriers := carrier.Default()
	opts := batch.DefaultOptions()

	orderSvc := apporder.NewService(orderRepo, carriers, nil)
	dispatcher := fulfillment.NewDispatcher(orderRepo, carriers, channels, opts, nil)
	engine := appinventory.NewDeductionEngine(orderRepo, warehouses, stock, deductions, nil, opts, nil)
	saga := fulfillment.NewInvoiceSaga(cache.NewInMemoryKeyLocker(0), engine, dispatcher, opts, nil)
	importer := fulfillment.NewImporter(orderSvc, carriers, saga, nil, nil)
	stockSvc := appinventory.NewStockService(warehouses, stock, deductions, nil, nil)
	workflows := allocation.NewService(
		testutil.NewMemoryWorkflowRepository(),
		testutil.NewMemoryAllocationLogRepository(),
		mappings, stock, channels, opts, nil,
	)

	f.handlers = Handlers{
		Orders:    NewOrderHandler(orderSvc, channels),
		Invoices:  NewInvoiceHandler(saga, dispatcher, importer, carriers),
		Inventory: NewInventoryHandler(engine, stockSvc),
		Workflows: NewWorkflowHandler(workflows),
		Mappings:  NewMappingHandler(appintegration.NewOptionMappingService(mappings, nil)),
		System:    NewSystemHandler("test", nil),
	}

	f.engine = gin.New()
	f.engine.Use(middleware.RequestID())
	router.NewRouter(f.engine).Register(f.handlers.DomainGroups()...).Setup()
	return f
}

func newOrder(ch channel.Channel, no string, lines ...order.Item) *order.UnifiedOrder {
	o := &order.UnifiedOrder{
		Channel:   ch,
		OrderNo:   no,
		Status:    order.StatusPreparing,
		OrderedAt: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		Recipient: order.Recipient{Name: "Kim"},
	}
	for _, l := range lines {
		o.AddItem(l)
	}
	return o
}

func line(id, sku string, qty int) order.Item {
	return order.Item{LineID: id, SKU: sku, Quantity: qty, Amount: decimal.NewFromInt(1000)}
}

// envelope mirrors dto.Response with the payload left raw
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, "/api/v1"+path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	env := decode(t, w)
	require.True(t, env.Success, w.Body.String())
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	env := decode(t, w)
	require.NotNil(t, env.Error, w.Body.String())
	return env.Error.Code
}
