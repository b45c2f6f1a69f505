package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/omnisync/backend/internal/application/batch"
	"github.com/omnisync/backend/internal/application/fulfillment"
	appinventory "github.com/omnisync/backend/internal/application/inventory"
	"github.com/omnisync/backend/internal/domain/carrier"
	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/omnisync/backend/internal/domain/inventory"
	"github.com/omnisync/backend/internal/domain/order"
	"github.com/omnisync/backend/internal/infrastructure/cache"
	"github.com/omnisync/backend/internal/infrastructure/ecommerce"
	"github.com/omnisync/backend/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// naverStub answers dispatch calls, failing every product order whose
// tracking number is "REJECT"
type naverStub struct {
	mu         sync.Mutex
	dispatched []string
}

func (s *naverStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DispatchProductOrders []struct {
			ProductOrderID string `json:"productOrderId"`
			TrackingNumber string `json:"trackingNumber"`
		} `json:"dispatchProductOrders"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	type failure struct {
		ProductOrderID string `json:"productOrderId"`
		Message        string `json:"message"`
	}
	success := []string{}
	failed := []failure{}
	s.mu.Lock()
	for _, o := range req.DispatchProductOrders {
		if o.TrackingNumber == "REJECT" {
			failed = append(failed, failure{o.ProductOrderID, "invalid tracking number"})
			continue
		}
		success = append(success, o.ProductOrderID)
		s.dispatched = append(s.dispatched, o.ProductOrderID)
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": map[string]any{
			"successProductOrderIds": success,
			"failProductOrderInfos":  failed,
		},
	})
}

type flowSetup struct {
	db         *TestDB
	orders     *persistence.GormOrderRepository
	stock      *persistence.GormStockRepository
	deductions *persistence.GormDeductionRepository
	warehouse  *inventory.Warehouse
	engine     *appinventory.DeductionEngine
	saga       *fulfillment.InvoiceSaga
	naver      *naverStub
}

func newFlowSetup(t *testing.T, skuStock map[string]int) *flowSetup {
	t.Helper()
	tdb := NewTestDB(t)
	ctx := context.Background()

	orders := persistence.NewGormOrderRepository(tdb.DB)
	warehouses := persistence.NewGormWarehouseRepository(tdb.DB)
	stock := persistence.NewGormStockRepository(tdb.DB)
	deductions := persistence.NewGormDeductionRepository(tdb.DB)
	txScope := persistence.NewGormTransactionScope(tdb.DB)

	wh := inventory.NewWarehouse("MAIN", "Main warehouse", true)
	require.NoError(t, warehouses.Save(ctx, wh))
	for sku, qty := range skuStock {
		require.NoError(t, stock.Save(ctx, inventory.NewStockRecord(wh.ID, sku, qty)))
	}

	stub := &naverStub{}
	server := httptest.NewServer(stub)
	t.Cleanup(server.Close)
	adapter, err := ecommerce.NewNaverAdapter(&ecommerce.NaverConfig{BaseURL: server.URL, AccessToken: "token"}, nil)
	require.NoError(t, err)
	channels := ecommerce.NewRegistry()
	channels.Register(adapter)

	opts := batch.Options{Concurrency: 4, ItemTimeout: 10 * time.Second}
	carriers := carrier.Default()
	engine := appinventory.NewDeductionEngine(orders, warehouses, stock, deductions, txScope, opts, nil)
	dispatcher := fulfillment.NewDispatcher(orders, carriers, channels, opts, nil)
	saga := fulfillment.NewInvoiceSaga(cache.NewInMemoryKeyLocker(5*time.Second), engine, dispatcher, opts, nil)

	return &flowSetup{
		db:         tdb,
		orders:     orders,
		stock:      stock,
		deductions: deductions,
		warehouse:  wh,
		engine:     engine,
		saga:       saga,
		naver:      stub,
	}
}

func (s *flowSetup) addOrder(t *testing.T, no string, sku string, qty int) string {
	t.Helper()
	o := &order.UnifiedOrder{
		Channel:   channel.Naver,
		OrderNo:   no,
		Status:    order.StatusPreparing,
		OrderedAt: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		Recipient: order.Recipient{Name: "Kim"},
		Currency:  "KRW",
	}
	o.AddItem(order.Item{LineID: "PO-" + no, SKU: sku, Quantity: qty, Amount: decimal.NewFromInt(9900)})
	require.NoError(t, s.orders.Upsert(context.Background(), o))
	return o.Key().String()
}

func (s *flowSetup) quantity(t *testing.T, sku string) int {
	t.Helper()
	rec, err := s.stock.FindRecord(context.Background(), s.warehouse.ID, sku)
	require.NoError(t, err)
	return rec.Quantity
}

func TestDeduction_DeductAndRollback(t *testing.T) {
	s := newFlowSetup(t, map[string]int{"SKU-A": 10})
	ctx := context.Background()
	key := s.addOrder(t, "1001", "SKU-A", 3)

	out := s.engine.Deduct(ctx, []string{key})
	require.Equal(t, 1, out.SuccessCount, out.Errors)
	assert.Equal(t, 7, s.quantity(t, "SKU-A"))

	again := s.engine.Deduct(ctx, []string{key})
	require.Equal(t, 1, again.SuccessCount)
	assert.True(t, again.Results[0].AlreadyDeducted)
	assert.Equal(t, 7, s.quantity(t, "SKU-A"), "second deduction is a no-op")

	require.NoError(t, s.engine.Rollback(ctx, key))
	assert.Equal(t, 10, s.quantity(t, "SKU-A"))
	require.NoError(t, s.engine.Rollback(ctx, key), "rollback without an active set does nothing")
	assert.Equal(t, 10, s.quantity(t, "SKU-A"))

	history, err := s.engine.History(ctx, key)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, string(inventory.DeductionRolledBack), history[0].Status)
	assert.Equal(t, int64(2), s.db.Count("inventory_history", "reference_key = ?", key))
}

func TestDeduction_ConcurrentSameOrderDeductsOnce(t *testing.T) {
	s := newFlowSetup(t, map[string]int{"SKU-A": 10})
	key := s.addOrder(t, "1001", "SKU-A", 2)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := s.engine.Deduct(context.Background(), []string{key})
			assert.Equal(t, 1, out.SuccessCount, out.Errors)
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, s.quantity(t, "SKU-A"))
	assert.Equal(t, int64(1), s.db.Count("inventory_deduction_sets", "order_key = ? AND status = 'active'", key))
}

func TestDeduction_ConcurrentOrdersNeverOversell(t *testing.T) {
	s := newFlowSetup(t, map[string]int{"SKU-A": 5})
	keys := make([]string, 12)
	for i := range keys {
		keys[i] = s.addOrder(t, fmt.Sprintf("%d", 2000+i), "SKU-A", 1)
	}

	out := s.engine.Deduct(context.Background(), keys)

	assert.Equal(t, 5, out.SuccessCount)
	assert.Equal(t, 7, out.FailCount)
	assert.Equal(t, 0, s.quantity(t, "SKU-A"))
}

func TestInvoiceSaga_WriteAgainstPostgres(t *testing.T) {
	s := newFlowSetup(t, map[string]int{"SKU-A": 10})
	ctx := context.Background()
	shipped := s.addOrder(t, "3001", "SKU-A", 4)
	rejected := s.addOrder(t, "3002", "SKU-A", 3)

	res := s.saga.WriteBatch(ctx, []fulfillment.InvoiceEntry{
		{OrderKey: shipped, Carrier: "cj", TrackingNo: "600123456789"},
		{OrderKey: rejected, Carrier: "cj", TrackingNo: "REJECT"},
	})

	require.Len(t, res.Results, 2)
	assert.True(t, res.Results[0].Success, res.Results[0].Error)
	assert.False(t, res.Results[1].Success)
	assert.Contains(t, res.Results[1].Error, "invalid tracking number")
	assert.Equal(t, 6, s.quantity(t, "SKU-A"), "only the shipped order keeps its deduction")

	key, err := order.ParseKey(shipped)
	require.NoError(t, err)
	o, err := s.orders.FindByKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, order.StatusShipped, o.Status)
	assert.Equal(t, "600123456789", o.TrackingNo)

	active, err := s.engine.HasActiveDeduction(ctx, rejected)
	require.NoError(t, err)
	assert.False(t, active)
	assert.ElementsMatch(t, []string{"PO-3001"}, s.naver.dispatched)
}
