package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/allocation"
	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/omnisync/backend/internal/domain/integration"
	"github.com/omnisync/backend/internal/domain/inventory"
	"github.com/omnisync/backend/internal/domain/order"
	"github.com/omnisync/backend/internal/domain/shared"
)

// In-memory repositories for application-layer tests. They honour the same
// contracts as the GORM repositories (not-found errors, conditional updates)
// and are safe for concurrent use.

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// MemoryOrderRepository is an in-memory order.OrderRepository
type MemoryOrderRepository struct {
	mu     sync.Mutex
	orders map[order.Key]*order.UnifiedOrder
	// FailUpdateInvoice makes UpdateInvoice fail for the listed keys
	FailUpdateInvoice map[order.Key]error
}

// NewMemoryOrderRepository creates a repository holding copies of the given orders
func NewMemoryOrderRepository(orders ...*order.UnifiedOrder) *MemoryOrderRepository {
	r := &MemoryOrderRepository{
		orders:            make(map[order.Key]*order.UnifiedOrder),
		FailUpdateInvoice: make(map[order.Key]error),
	}
	for _, o := range orders {
		r.orders[o.Key()] = cloneOrder(o)
	}
	return r
}

func cloneOrder(o *order.UnifiedOrder) *order.UnifiedOrder {
	c := *o
	c.Items = append([]order.Item(nil), o.Items...)
	if o.InvoiceSentAt != nil {
		t := *o.InvoiceSentAt
		c.InvoiceSentAt = &t
	}
	return &c
}

func (r *MemoryOrderRepository) FindByKey(_ context.Context, key order.Key) (*order.UnifiedOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[key]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (r *MemoryOrderRepository) FindByKeys(_ context.Context, keys []order.Key) (map[order.Key]*order.UnifiedOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[order.Key]*order.UnifiedOrder, len(keys))
	for _, k := range keys {
		if o, ok := r.orders[k]; ok {
			out[k] = cloneOrder(o)
		}
	}
	return out, nil
}

func (r *MemoryOrderRepository) FindByOrderNo(_ context.Context, orderNo string) ([]*order.UnifiedOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*order.UnifiedOrder
	for _, o := range r.orders {
		if o.OrderNo == orderNo {
			out = append(out, cloneOrder(o))
		}
	}
	return out, nil
}

func (r *MemoryOrderRepository) matching(filter *order.Filter) []*order.UnifiedOrder {
	var out []*order.UnifiedOrder
	for _, o := range r.orders {
		if filter != nil {
			if filter.Status != "" && o.Status != filter.Status {
				continue
			}
			if filter.Channel != "" && o.Channel != filter.Channel {
				continue
			}
			if q := strings.ToLower(strings.TrimSpace(filter.Search)); q != "" &&
				!strings.Contains(strings.ToLower(o.Recipient.Name), q) &&
				!strings.Contains(strings.ToLower(o.OrderNo), q) &&
				!strings.Contains(o.Recipient.Phone, q) &&
				!strings.Contains(o.Recipient.Mobile, q) &&
				!strings.Contains(strings.ToLower(o.TrackingNo), q) {
				continue
			}
			if filter.DateFrom != nil && o.OrderedAt.Before(*filter.DateFrom) {
				continue
			}
			if filter.DateTo != nil && o.OrderedAt.After(*filter.DateTo) {
				continue
			}
		}
		out = append(out, cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key().String() < out[j].Key().String() })
	return out
}

func (r *MemoryOrderRepository) Query(_ context.Context, filter order.Filter) ([]*order.UnifiedOrder, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.matching(&filter)
	p := filter.Page.Normalize()
	start := p.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + p.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

func (r *MemoryOrderRepository) Stats(_ context.Context, filter *order.Filter) (order.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := order.NewStats()
	for _, o := range r.matching(filter) {
		s.Total++
		s.ByStatus[o.Status]++
		s.ByChannel[o.Channel]++
	}
	return s, nil
}

func (r *MemoryOrderRepository) Upsert(_ context.Context, o *order.UnifiedOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.Key()] = cloneOrder(o)
	return nil
}

func (r *MemoryOrderRepository) UpdateInvoice(_ context.Context, o *order.UnifiedOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.FailUpdateInvoice[o.Key()]; err != nil {
		return err
	}
	existing, ok := r.orders[o.Key()]
	if !ok {
		return shared.ErrNotFound
	}
	existing.TrackingNo = o.TrackingNo
	existing.Carrier = o.Carrier
	existing.CarrierLabel = o.CarrierLabel
	existing.InvoiceSentAt = o.InvoiceSentAt
	existing.Status = o.Status
	existing.UpdatedAt = o.UpdatedAt
	return nil
}

func (r *MemoryOrderRepository) UpdateStatus(_ context.Context, key order.Key, status order.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[key]
	if !ok {
		return shared.ErrNotFound
	}
	o.Status = status
	return nil
}

func (r *MemoryOrderRepository) Delete(_ context.Context, key order.Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[key]; !ok {
		return shared.ErrNotFound
	}
	delete(r.orders, key)
	return nil
}

func (r *MemoryOrderRepository) CountByChannel(_ context.Context, ch channel.Channel) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, o := range r.orders {
		if o.Channel == ch {
			n++
		}
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Warehouses and stock
// ---------------------------------------------------------------------------

// MemoryWarehouseRepository is an in-memory inventory.WarehouseRepository
type MemoryWarehouseRepository struct {
	mu          sync.Mutex
	warehouses  map[uuid.UUID]inventory.Warehouse
	preferences map[string]uuid.UUID
}

// NewMemoryWarehouseRepository creates a repository holding the given warehouses
func NewMemoryWarehouseRepository(ws ...*inventory.Warehouse) *MemoryWarehouseRepository {
	r := &MemoryWarehouseRepository{
		warehouses:  make(map[uuid.UUID]inventory.Warehouse),
		preferences: make(map[string]uuid.UUID),
	}
	for _, w := range ws {
		r.warehouses[w.ID] = *w
	}
	return r
}

func (r *MemoryWarehouseRepository) FindByID(_ context.Context, id uuid.UUID) (*inventory.Warehouse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.warehouses[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &w, nil
}

func (r *MemoryWarehouseRepository) FindActive(_ context.Context) ([]inventory.Warehouse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []inventory.Warehouse
	for _, w := range r.warehouses {
		if w.IsActive {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *MemoryWarehouseRepository) FindDefault(_ context.Context) (*inventory.Warehouse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.warehouses {
		if w.IsDefault && w.IsActive {
			return &w, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *MemoryWarehouseRepository) Preferences(_ context.Context, skus []string) (map[string]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]uuid.UUID)
	for _, sku := range skus {
		if id, ok := r.preferences[sku]; ok {
			out[sku] = id
		}
	}
	return out, nil
}

func (r *MemoryWarehouseRepository) Save(_ context.Context, w *inventory.Warehouse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warehouses[w.ID] = *w
	return nil
}

func (r *MemoryWarehouseRepository) SavePreference(_ context.Context, p inventory.WarehousePreference) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.preferences[p.SKU] = p.WarehouseID
	return nil
}

// MemoryStockRepository is an in-memory inventory.StockRepository
type MemoryStockRepository struct {
	mu         sync.Mutex
	records    map[uuid.UUID]*inventory.StockRecord
	warehouses *MemoryWarehouseRepository
}

// NewMemoryStockRepository creates a stock repository. The warehouse
// repository decides which rows count as active in AvailableBySKU.
func NewMemoryStockRepository(warehouses *MemoryWarehouseRepository, records ...*inventory.StockRecord) *MemoryStockRepository {
	r := &MemoryStockRepository{
		records:    make(map[uuid.UUID]*inventory.StockRecord),
		warehouses: warehouses,
	}
	for _, rec := range records {
		c := *rec
		r.records[rec.ID] = &c
	}
	return r
}

func (r *MemoryStockRepository) find(warehouseID uuid.UUID, sku string) *inventory.StockRecord {
	for _, rec := range r.records {
		if rec.WarehouseID == warehouseID && rec.SKU == sku {
			return rec
		}
	}
	return nil
}

func (r *MemoryStockRepository) FindRecord(_ context.Context, warehouseID uuid.UUID, sku string) (*inventory.StockRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.find(warehouseID, sku)
	if rec == nil {
		return nil, shared.ErrNotFound
	}
	c := *rec
	return &c, nil
}

func (r *MemoryStockRepository) Save(_ context.Context, rec *inventory.StockRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *rec
	r.records[rec.ID] = &c
	return nil
}

func (r *MemoryStockRepository) DecrementIfAvailable(_ context.Context, recordID uuid.UUID, n int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[recordID]
	if !ok || rec.Quantity-rec.Reserved < n {
		return false, nil
	}
	rec.Quantity -= n
	rec.Version++
	return true, nil
}

func (r *MemoryStockRepository) Increment(_ context.Context, warehouseID uuid.UUID, sku string, n int) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.find(warehouseID, sku)
	if rec == nil {
		rec = inventory.NewStockRecord(warehouseID, sku, 0)
		r.records[rec.ID] = rec
	}
	before := rec.Quantity
	rec.Quantity += n
	rec.Version++
	return before, rec.Quantity, nil
}

func (r *MemoryStockRepository) AvailableBySKU(ctx context.Context, skus []string) (map[string]int, error) {
	active := map[uuid.UUID]bool{}
	if r.warehouses != nil {
		ws, _ := r.warehouses.FindActive(ctx)
		for _, w := range ws {
			active[w.ID] = true
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	want := make(map[string]bool, len(skus))
	for _, s := range skus {
		want[s] = true
	}
	out := make(map[string]int)
	for _, rec := range r.records {
		if !want[rec.SKU] || (r.warehouses != nil && !active[rec.WarehouseID]) {
			continue
		}
		out[rec.SKU] += rec.Available()
	}
	return out, nil
}

// Quantity returns the on-hand quantity of a row, or -1 when missing
func (r *MemoryStockRepository) Quantity(warehouseID uuid.UUID, sku string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec := r.find(warehouseID, sku); rec != nil {
		return rec.Quantity
	}
	return -1
}

// ---------------------------------------------------------------------------
// Deductions
// ---------------------------------------------------------------------------

// MemoryDeductionRepository is an in-memory inventory.DeductionRepository
type MemoryDeductionRepository struct {
	mu      sync.Mutex
	sets    []*inventory.DeductionSet
	history []inventory.History
}

// NewMemoryDeductionRepository creates an empty repository
func NewMemoryDeductionRepository() *MemoryDeductionRepository {
	return &MemoryDeductionRepository{}
}

func cloneSet(s *inventory.DeductionSet) inventory.DeductionSet {
	c := *s
	c.Records = append([]inventory.DeductionRecord(nil), s.Records...)
	return c
}

func (r *MemoryDeductionRepository) FindActiveSet(_ context.Context, orderKey string) (*inventory.DeductionSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sets {
		if s.OrderKey == orderKey && s.IsActive() {
			c := cloneSet(s)
			return &c, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *MemoryDeductionRepository) FindSets(_ context.Context, orderKey string) ([]inventory.DeductionSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []inventory.DeductionSet
	for i := len(r.sets) - 1; i >= 0; i-- {
		if r.sets[i].OrderKey == orderKey {
			out = append(out, cloneSet(r.sets[i]))
		}
	}
	return out, nil
}

func (r *MemoryDeductionRepository) CreateSet(_ context.Context, set *inventory.DeductionSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sets {
		if s.OrderKey == set.OrderKey && s.IsActive() {
			return shared.ErrAlreadyExists
		}
	}
	c := cloneSet(set)
	r.sets = append(r.sets, &c)
	return nil
}

func (r *MemoryDeductionRepository) MarkRolledBack(_ context.Context, setID uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sets {
		if s.ID == setID && s.IsActive() {
			s.Status = inventory.DeductionRolledBack
			s.RolledBackAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryDeductionRepository) AppendHistory(_ context.Context, entries []inventory.History) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, entries...)
	return nil
}

func (r *MemoryDeductionRepository) FindHistory(_ context.Context, orderKey string) ([]inventory.History, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []inventory.History
	for _, h := range r.history {
		if h.ReferenceKey == orderKey {
			out = append(out, h)
		}
	}
	return out, nil
}

// ActiveSets counts active sets across all orders
func (r *MemoryDeductionRepository) ActiveSets() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sets {
		if s.IsActive() {
			n++
		}
	}
	return n
}

// ---------------------------------------------------------------------------
// Channel option mappings and allocation workflows
// ---------------------------------------------------------------------------

// MemoryOptionMappingRepository is an in-memory integration.OptionMappingRepository
type MemoryOptionMappingRepository struct {
	mu       sync.Mutex
	mappings []integration.OptionMapping
}

// NewMemoryOptionMappingRepository creates a repository holding the given mappings
func NewMemoryOptionMappingRepository(ms ...*integration.OptionMapping) *MemoryOptionMappingRepository {
	r := &MemoryOptionMappingRepository{}
	for _, m := range ms {
		r.mappings = append(r.mappings, *m)
	}
	return r
}

func (r *MemoryOptionMappingRepository) FindByChannel(_ context.Context, ch channel.Channel) ([]integration.OptionMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []integration.OptionMapping
	for _, m := range r.mappings {
		if m.Channel == ch {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *MemoryOptionMappingRepository) Save(_ context.Context, m *integration.OptionMapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.mappings {
		if r.mappings[i].ID == m.ID {
			r.mappings[i] = *m
			return nil
		}
	}
	r.mappings = append(r.mappings, *m)
	return nil
}

func (r *MemoryOptionMappingRepository) UpdateChannelStock(_ context.Context, id uuid.UUID, quantity int, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.mappings {
		if r.mappings[i].ID == id {
			r.mappings[i].RecordPush(quantity, at)
			return nil
		}
	}
	return shared.ErrNotFound
}

// MemoryWorkflowRepository is an in-memory allocation.WorkflowRepository
type MemoryWorkflowRepository struct {
	mu        sync.Mutex
	workflows map[uuid.UUID]allocation.Workflow
}

// NewMemoryWorkflowRepository creates an empty repository
func NewMemoryWorkflowRepository() *MemoryWorkflowRepository {
	return &MemoryWorkflowRepository{workflows: make(map[uuid.UUID]allocation.Workflow)}
}

func (r *MemoryWorkflowRepository) FindByID(_ context.Context, id uuid.UUID) (*allocation.Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workflows[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &w, nil
}

func (r *MemoryWorkflowRepository) FindAll(_ context.Context) ([]allocation.Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]allocation.Workflow, 0, len(r.workflows))
	for _, w := range r.workflows {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryWorkflowRepository) FindDue(_ context.Context, now time.Time) ([]allocation.Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []allocation.Workflow
	for _, w := range r.workflows {
		if w.IsDue(now) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (r *MemoryWorkflowRepository) Save(_ context.Context, w *allocation.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workflows[w.ID] = *w
	return nil
}

func (r *MemoryWorkflowRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.workflows[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.workflows, id)
	return nil
}

// MemoryAllocationLogRepository is an in-memory allocation.LogRepository
type MemoryAllocationLogRepository struct {
	mu   sync.Mutex
	logs []allocation.Log
}

// NewMemoryAllocationLogRepository creates an empty repository
func NewMemoryAllocationLogRepository() *MemoryAllocationLogRepository {
	return &MemoryAllocationLogRepository{}
}

func (r *MemoryAllocationLogRepository) Save(_ context.Context, l *allocation.Log) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.logs {
		if r.logs[i].ID == l.ID {
			r.logs[i] = *l
			return nil
		}
	}
	r.logs = append(r.logs, *l)
	return nil
}

func (r *MemoryAllocationLogRepository) FindByWorkflow(_ context.Context, workflowID uuid.UUID, limit int) ([]allocation.Log, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []allocation.Log
	for i := len(r.logs) - 1; i >= 0; i-- {
		if r.logs[i].WorkflowID == workflowID {
			out = append(out, r.logs[i])
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

var (
	_ order.OrderRepository               = (*MemoryOrderRepository)(nil)
	_ inventory.WarehouseRepository       = (*MemoryWarehouseRepository)(nil)
	_ inventory.StockRepository           = (*MemoryStockRepository)(nil)
	_ inventory.DeductionRepository       = (*MemoryDeductionRepository)(nil)
	_ integration.OptionMappingRepository = (*MemoryOptionMappingRepository)(nil)
	_ allocation.WorkflowRepository       = (*MemoryWorkflowRepository)(nil)
	_ allocation.LogRepository            = (*MemoryAllocationLogRepository)(nil)
)
