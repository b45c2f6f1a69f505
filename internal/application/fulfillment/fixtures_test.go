package fulfillment

import (
	"context"
	"sync"
	"testing"

	"github.com/omnisync/backend/internal/application/batch"
	appinventory "github.com/omnisync/backend/internal/application/inventory"
	"github.com/omnisync/backend/internal/domain/carrier"
	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/omnisync/backend/internal/domain/integration"
	"github.com/omnisync/backend/internal/domain/inventory"
	"github.com/omnisync/backend/internal/domain/order"
	"github.com/omnisync/backend/internal/infrastructure/cache"
	"github.com/omnisync/backend/tests/testutil"
	"github.com/shopspring/decimal"
)

// fakeSink records every call. Shipments whose tracking number is in reject
// are refused by the channel; failTimes refuses the next n attempts.
type fakeSink struct {
	mu        sync.Mutex
	ch        channel.Channel
	batch     bool
	message   string
	reject    map[string]string
	failTimes map[string]int
	transport error
	calls     [][]integration.Shipment
}

func newFakeSink(ch channel.Channel, batch bool) *fakeSink {
	return &fakeSink{ch: ch, batch: batch, reject: map[string]string{}, failTimes: map[string]int{}}
}

func (s *fakeSink) Channel() channel.Channel { return s.ch }
func (s *fakeSink) SupportsBatch() bool      { return s.batch }

func (s *fakeSink) SendInvoice(ctx context.Context, sh integration.Shipment) (integration.ShipmentResult, error) {
	rs, err := s.SendInvoiceBatch(ctx, []integration.Shipment{sh})
	if err != nil {
		return integration.ShipmentResult{OrderKey: sh.OrderKey}, err
	}
	return rs[0], nil
}

func (s *fakeSink) SendInvoiceBatch(_ context.Context, shipments []integration.Shipment) ([]integration.ShipmentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, shipments)
	if s.transport != nil {
		return nil, s.transport
	}
	out := make([]integration.ShipmentResult, len(shipments))
	for i, sh := range shipments {
		out[i] = integration.ShipmentResult{OrderKey: sh.OrderKey, Success: true, Message: s.message}
		if msg, ok := s.reject[sh.TrackingNo]; ok {
			out[i] = integration.ShipmentResult{OrderKey: sh.OrderKey, Message: msg}
		}
		if s.failTimes[sh.TrackingNo] > 0 {
			s.failTimes[sh.TrackingNo]--
			out[i] = integration.ShipmentResult{OrderKey: sh.OrderKey, Message: "temporarily unavailable"}
		}
	}
	return out, nil
}

func (s *fakeSink) Calls() [][]integration.Shipment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]integration.Shipment(nil), s.calls...)
}

type fakeRegistry map[channel.Channel]integration.InvoiceSink

func (r fakeRegistry) InvoiceSink(ch channel.Channel) (integration.InvoiceSink, error) {
	if s, ok := r[ch]; ok {
		return s, nil
	}
	return nil, integration.ErrChannelNotConfigured
}

func (r fakeRegistry) StockPusher(channel.Channel) (integration.StockPusher, error) {
	return nil, integration.ErrNotSupported
}

func (r fakeRegistry) OrderSource(channel.Channel) (integration.OrderSource, error) {
	return nil, integration.ErrNotSupported
}

func (r fakeRegistry) Channels() []channel.Channel {
	return channel.All()
}

func newOrder(ch channel.Channel, no string, lines ...order.Item) *order.UnifiedOrder {
	o := &order.UnifiedOrder{Channel: ch, OrderNo: no, Status: order.StatusPreparing}
	for _, l := range lines {
		o.AddItem(l)
	}
	return o
}

func line(id, sku string, qty int) order.Item {
	return order.Item{LineID: id, SKU: sku, Quantity: qty, Amount: decimal.NewFromInt(1000)}
}

type fixture struct {
	orders     *testutil.MemoryOrderRepository
	stock      *testutil.MemoryStockRepository
	deductions *testutil.MemoryDeductionRepository
	warehouse  *inventory.Warehouse
	cafe24     *fakeSink
	naver      *fakeSink
	coupang    *fakeSink
	dispatcher *Dispatcher
	engine     *appinventory.DeductionEngine
	saga       *InvoiceSaga
}

func newFixture(t *testing.T, orders ...*order.UnifiedOrder) *fixture {
	return newFixtureWithCarriers(t, carrier.Default(), orders...)
}

func newFixtureWithCarriers(t *testing.T, carriers *carrier.Registry, orders ...*order.UnifiedOrder) *fixture {
	t.Helper()
	main := inventory.NewWarehouse("MAIN", "Main warehouse", true)
	warehouses := testutil.NewMemoryWarehouseRepository(main)
	stock := testutil.NewMemoryStockRepository(warehouses,
		inventory.NewStockRecord(main.ID, "SKU-A", 10),
		inventory.NewStockRecord(main.ID, "SKU-B", 1),
	)
	deductions := testutil.NewMemoryDeductionRepository()
	orderRepo := testutil.NewMemoryOrderRepository(orders...)

	f := &fixture{
		orders:     orderRepo,
		stock:      stock,
		deductions: deductions,
		warehouse:  main,
		cafe24:     newFakeSink(channel.Cafe24, false),
		naver:      newFakeSink(channel.Naver, true),
		coupang:    newFakeSink(channel.Coupang, false),
	}
	f.coupang.message = MsgFulfilledByChannel

	sinks := fakeRegistry{channel.Cafe24: f.cafe24, channel.Naver: f.naver, channel.Coupang: f.coupang}
	opts := batch.DefaultOptions()
	f.dispatcher = NewDispatcher(orderRepo, carriers, sinks, opts, nil)
	f.engine = appinventory.NewDeductionEngine(orderRepo, warehouses, stock, deductions, nil, opts, nil)
	f.saga = NewInvoiceSaga(cache.NewInMemoryKeyLocker(0), f.engine, f.dispatcher, opts, nil)
	return f
}

func (f *fixture) order(t *testing.T, key string) *order.UnifiedOrder {
	t.Helper()
	k, err := order.ParseKey(key)
	if err != nil {
		t.Fatal(err)
	}
	o, err := f.orders.FindByKey(context.Background(), k)
	if err != nil {
		t.Fatal(err)
	}
	return o
}
