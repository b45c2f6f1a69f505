package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/inventory"
	"github.com/omnisync/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// StockService manages warehouses, stock counts and SKU routing. Order
// driven movements go through DeductionEngine instead.
type StockService struct {
	warehouses inventory.WarehouseRepository
	stock      inventory.StockRepository
	txScope    TransactionScope
	logger     *zap.Logger
	now        func() time.Time
}

// NewStockService creates a new StockService
func NewStockService(
	warehouses inventory.WarehouseRepository,
	stock inventory.StockRepository,
	deductions inventory.DeductionRepository,
	txScope TransactionScope,
	logger *zap.Logger,
) *StockService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if txScope == nil {
		txScope = NewNoOpTransactionScope(stock, deductions)
	}
	return &StockService{
		warehouses: warehouses,
		stock:      stock,
		txScope:    txScope,
		logger:     logger,
		now:        time.Now,
	}
}

// ListWarehouses returns the active warehouses, default first
func (s *StockService) ListWarehouses(ctx context.Context) ([]WarehouseResponse, error) {
	ws, err := s.warehouses.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]WarehouseResponse, 0, len(ws))
	for i := range ws {
		out = append(out, ToWarehouseResponse(&ws[i]))
	}
	return out, nil
}

// CreateWarehouse registers a warehouse. Only one warehouse can be the
// default; creating a new default demotes the previous one.
func (s *StockService) CreateWarehouse(ctx context.Context, req CreateWarehouseRequest) (*WarehouseResponse, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return nil, shared.ErrInvalidInput.WithMessage("warehouse code is required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = code
	}

	active, err := s.warehouses.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	for i := range active {
		if active[i].Code == code {
			return nil, shared.ErrAlreadyExists.WithMessage(fmt.Sprintf("warehouse %s already exists", code))
		}
	}

	if req.IsDefault {
		for i := range active {
			if !active[i].IsDefault {
				continue
			}
			active[i].IsDefault = false
			if err := s.warehouses.Save(ctx, &active[i]); err != nil {
				return nil, err
			}
		}
	}

	w := inventory.NewWarehouse(code, name, req.IsDefault)
	if err := s.warehouses.Save(ctx, w); err != nil {
		return nil, err
	}
	s.logger.Info("Warehouse created", zap.String("code", code), zap.Bool("default", w.IsDefault))
	resp := ToWarehouseResponse(w)
	return &resp, nil
}

// SetStock records a physical count: the row's quantity becomes req.Quantity
// and the difference is journaled as an adjustment.
func (s *StockService) SetStock(ctx context.Context, req SetStockRequest) (*StockRecordResponse, error) {
	sku := strings.TrimSpace(req.SKU)
	if sku == "" {
		return nil, shared.ErrInvalidInput.WithMessage("sku is required")
	}
	if req.Quantity < 0 {
		return nil, shared.ErrInvalidInput.WithMessage("quantity cannot be negative")
	}
	if _, err := s.warehouses.FindByID(ctx, req.WarehouseID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrNotFound.WithMessage("warehouse not found")
		}
		return nil, err
	}

	var saved *inventory.StockRecord
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		rec, err := repos.StockRepo().FindRecord(ctx, req.WarehouseID, sku)
		switch {
		case errors.Is(err, shared.ErrNotFound):
			rec = inventory.NewStockRecord(req.WarehouseID, sku, 0)
		case err != nil:
			return err
		}

		before := rec.Quantity
		rec.Quantity = req.Quantity
		if req.SafetyStock != nil {
			rec.SafetyStock = *req.SafetyStock
		}
		rec.Version++
		if err := repos.StockRepo().Save(ctx, rec); err != nil {
			return err
		}
		if before != rec.Quantity {
			entry := inventory.AdjustmentHistory(rec, before, req.Reason, s.now())
			if err := repos.DeductionRepo().AppendHistory(ctx, []inventory.History{entry}); err != nil {
				return err
			}
		}
		saved = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Stock counted",
		zap.String("sku", sku),
		zap.String("warehouse_id", req.WarehouseID.String()),
		zap.Int("quantity", saved.Quantity),
	)
	if saved.IsBelowSafetyStock() {
		s.logger.Warn("Stock below safety threshold",
			zap.String("sku", sku),
			zap.Int("available", saved.Available()),
			zap.Int("safety_stock", saved.SafetyStock),
		)
	}
	resp := ToStockRecordResponse(saved)
	return &resp, nil
}

// SetPreference routes a SKU's deductions to a warehouse first
func (s *StockService) SetPreference(ctx context.Context, sku string, warehouseID uuid.UUID) error {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return shared.ErrInvalidInput.WithMessage("sku is required")
	}
	w, err := s.warehouses.FindByID(ctx, warehouseID)
	if err != nil {
		return err
	}
	if !w.IsActive {
		return shared.ErrInvalidInput.WithMessage(fmt.Sprintf("warehouse %s is inactive", w.Code))
	}
	return s.warehouses.SavePreference(ctx, inventory.WarehousePreference{SKU: sku, WarehouseID: warehouseID})
}

// Available sums available stock per SKU across active warehouses. SKUs
// without stock rows report zero.
func (s *StockService) Available(ctx context.Context, skus []string) ([]AvailabilityResponse, error) {
	uniq := make([]string, 0, len(skus))
	seen := make(map[string]bool, len(skus))
	for _, sku := range skus {
		sku = strings.TrimSpace(sku)
		if sku == "" || seen[sku] {
			continue
		}
		seen[sku] = true
		uniq = append(uniq, sku)
	}
	if len(uniq) == 0 {
		return []AvailabilityResponse{}, nil
	}
	sort.Strings(uniq)

	avail, err := s.stock.AvailableBySKU(ctx, uniq)
	if err != nil {
		return nil, err
	}
	out := make([]AvailabilityResponse, 0, len(uniq))
	for _, sku := range uniq {
		out = append(out, AvailabilityResponse{SKU: sku, Available: avail[sku]})
	}
	return out, nil
}
