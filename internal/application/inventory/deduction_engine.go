package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/application/batch"
	"github.com/omnisync/backend/internal/domain/inventory"
	"github.com/omnisync/backend/internal/domain/order"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/omnisync/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// errRaceAlreadyDeducted aborts the transaction when a concurrent writer
// created the active set first
var errRaceAlreadyDeducted = errors.New("inventory: deducted concurrently")

// DeductionEngine deducts shared warehouse stock exactly once per order and
// reverses the deduction when the invoice write fails.
type DeductionEngine struct {
	orders     order.OrderRepository
	warehouses inventory.WarehouseRepository
	stock      inventory.StockRepository
	deductions inventory.DeductionRepository
	txScope    TransactionScope
	opts       batch.Options
	logger     *zap.Logger
	metrics    *telemetry.ReconcileMetrics
	now        func() time.Time
}

// NewDeductionEngine creates a new DeductionEngine
func NewDeductionEngine(
	orders order.OrderRepository,
	warehouses inventory.WarehouseRepository,
	stock inventory.StockRepository,
	deductions inventory.DeductionRepository,
	txScope TransactionScope,
	opts batch.Options,
	logger *zap.Logger,
) *DeductionEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if txScope == nil {
		txScope = NewNoOpTransactionScope(stock, deductions)
	}
	return &DeductionEngine{
		orders:     orders,
		warehouses: warehouses,
		stock:      stock,
		deductions: deductions,
		txScope:    txScope,
		opts:       opts.Normalize(),
		logger:     logger,
		now:        time.Now,
	}
}

// SetMetrics sets the reconciliation metrics recorder
func (e *DeductionEngine) SetMetrics(m *telemetry.ReconcileMetrics) {
	e.metrics = m
}

// ---------------------------------------------------------------------------
// Deduct
// ---------------------------------------------------------------------------

// Deduct deducts every listed order independently on the worker pool.
// An order that already holds an active deduction set succeeds as a no-op.
func (e *DeductionEngine) Deduct(ctx context.Context, orderKeys []string) *DeductionOutcome {
	ctx, span := telemetry.StartSpan(ctx, "inventory.deduct", telemetry.SpanAttrBatchSize, len(orderKeys))
	defer span.End()

	var outcomes []batch.Outcome[DeductionResult]
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("deduct", ""), func(ctx context.Context) {
		outcomes = batch.Run(ctx, orderKeys, e.opts, e.deductOne)
	})

	result := newDeductionOutcome(len(orderKeys))
	for i, o := range outcomes {
		r := o.Value
		r.OrderKey = orderKeys[i]
		if o.Err != nil {
			r.Success = false
			r.Error = reason(o.Err)
		}
		result.add(r)
		e.metrics.RecordDeduction(ctx, deductionOutcomeLabel(r, o.Err))
	}

	e.logger.Info("Inventory deduction finished",
		zap.Int("orders", len(orderKeys)),
		zap.Int("success", result.SuccessCount),
		zap.Int("failed", result.FailCount),
	)
	return result
}

func (e *DeductionEngine) deductOne(ctx context.Context, orderKey string) (DeductionResult, error) {
	res := DeductionResult{OrderKey: orderKey}
	key, err := order.ParseKey(orderKey)
	if err != nil {
		return res, err
	}

	if set, err := e.deductions.FindActiveSet(ctx, orderKey); err == nil {
		res.Success, res.AlreadyDeducted, res.SetID = true, true, &set.ID
		return res, nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return res, fmt.Errorf("find active deduction: %w", err)
	}

	o, err := e.orders.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return res, shared.ErrNotFound.WithMessage("order not found")
		}
		return res, err
	}
	if len(o.Items) == 0 {
		return res, order.ErrEmptyOrder
	}

	demand := o.QuantityBySKU()
	records, err := e.resolveRecords(ctx, demand)
	if err != nil {
		return res, err
	}
	lines, err := inventory.PlanDeduction(demand, records)
	if err != nil {
		return res, err
	}

	var set *inventory.DeductionSet
	err = e.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		for i := range lines {
			l := &lines[i]
			ok, err := repos.StockRepo().DecrementIfAvailable(ctx, l.RecordID, l.Quantity)
			if err != nil {
				return fmt.Errorf("decrement %s: %w", l.SKU, err)
			}
			current, err := repos.StockRepo().FindRecord(ctx, l.WarehouseID, l.SKU)
			if err != nil {
				return fmt.Errorf("reload %s: %w", l.SKU, err)
			}
			if !ok {
				return inventory.InsufficientStockError(l.SKU, l.Quantity, current.Available())
			}
			l.StockBefore = current.Quantity + l.Quantity
		}

		set = inventory.NewDeductionSet(orderKey, lines, e.now())
		if err := repos.DeductionRepo().CreateSet(ctx, set); err != nil {
			if errors.Is(err, shared.ErrAlreadyExists) {
				return errRaceAlreadyDeducted
			}
			return fmt.Errorf("create deduction set: %w", err)
		}

		history := make([]inventory.History, 0, len(set.Records))
		for _, r := range set.Records {
			history = append(history, inventory.ShipmentHistory(r))
		}
		return repos.DeductionRepo().AppendHistory(ctx, history)
	})
	if errors.Is(err, errRaceAlreadyDeducted) {
		res.Success, res.AlreadyDeducted = true, true
		return res, nil
	}
	if err != nil {
		return res, err
	}

	e.logger.Debug("Order stock deducted",
		zap.String("order_key", orderKey),
		zap.String("set_id", set.ID.String()),
		zap.Int("skus", len(set.Records)),
	)
	res.Success, res.SetID = true, &set.ID
	return res, nil
}

// resolveRecords picks the stock row per SKU: the active priority warehouse,
// else the active default warehouse. SKUs with neither are left out so the
// plan reports them.
func (e *DeductionEngine) resolveRecords(ctx context.Context, demand map[string]int) (map[string]*inventory.StockRecord, error) {
	skus := make([]string, 0, len(demand))
	for sku := range demand {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	prefs, err := e.warehouses.Preferences(ctx, skus)
	if err != nil {
		return nil, fmt.Errorf("load warehouse preferences: %w", err)
	}

	var defaultID *uuid.UUID
	if def, err := e.warehouses.FindDefault(ctx); err == nil && def.IsActive {
		defaultID = &def.ID
	} else if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("load default warehouse: %w", err)
	}

	active := make(map[uuid.UUID]bool)
	isActive := func(id uuid.UUID) (bool, error) {
		if v, ok := active[id]; ok {
			return v, nil
		}
		w, err := e.warehouses.FindByID(ctx, id)
		if errors.Is(err, shared.ErrNotFound) {
			active[id] = false
			return false, nil
		}
		if err != nil {
			return false, err
		}
		active[id] = w.IsActive
		return w.IsActive, nil
	}

	records := make(map[string]*inventory.StockRecord, len(skus))
	for _, sku := range skus {
		var warehouseID *uuid.UUID
		if id, ok := prefs[sku]; ok {
			ok, err := isActive(id)
			if err != nil {
				return nil, fmt.Errorf("load warehouse %s: %w", id, err)
			}
			if ok {
				warehouseID = &id
			}
		}
		if warehouseID == nil {
			warehouseID = defaultID
		}
		if warehouseID == nil {
			continue
		}

		rec, err := e.stock.FindRecord(ctx, *warehouseID, sku)
		if errors.Is(err, shared.ErrNotFound) {
			// no row yet: nothing available in the routed warehouse
			rec = &inventory.StockRecord{WarehouseID: *warehouseID, SKU: sku}
		} else if err != nil {
			return nil, fmt.Errorf("load stock for %s: %w", sku, err)
		}
		records[sku] = rec
	}
	return records, nil
}

// ---------------------------------------------------------------------------
// Rollback
// ---------------------------------------------------------------------------

// Rollback restores the stock of the order's active deduction set. Without
// an active set it does nothing. A concurrent second rollback is a no-op.
func (e *DeductionEngine) Rollback(ctx context.Context, orderKey string) error {
	ctx, span := telemetry.StartSpan(ctx, "inventory.rollback", telemetry.SpanAttrOrderKey, orderKey)
	defer span.End()

	set, err := e.deductions.FindActiveSet(ctx, orderKey)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("find active deduction: %w", err)
	}

	restored := false
	err = e.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		at := e.now()
		ok, err := repos.DeductionRepo().MarkRolledBack(ctx, set.ID, at)
		if err != nil {
			return fmt.Errorf("mark rolled back: %w", err)
		}
		if !ok {
			return nil
		}

		history := make([]inventory.History, 0, len(set.Records))
		for _, r := range set.Records {
			before, after, err := repos.StockRepo().Increment(ctx, r.WarehouseID, r.SKU, r.Quantity)
			if err != nil {
				return fmt.Errorf("restore %s: %w", r.SKU, err)
			}
			history = append(history, inventory.ReturnHistory(r, before, after, at))
		}
		if err := repos.DeductionRepo().AppendHistory(ctx, history); err != nil {
			return err
		}
		restored = true
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		e.metrics.RecordRollback(ctx, telemetry.OutcomeFailed)
		return err
	}
	if restored {
		e.metrics.RecordRollback(ctx, telemetry.OutcomeSuccess)
		e.logger.Info("Order deduction rolled back",
			zap.String("order_key", orderKey),
			zap.String("set_id", set.ID.String()),
		)
	}
	return nil
}

// BulkRollback rolls back every listed order independently
func (e *DeductionEngine) BulkRollback(ctx context.Context, orderKeys []string) *shared.BatchResult {
	outcomes := batch.Run(ctx, orderKeys, e.opts, func(ctx context.Context, key string) (struct{}, error) {
		return struct{}{}, e.Rollback(ctx, key)
	})
	res := shared.NewBatchResult(len(orderKeys))
	for i, o := range outcomes {
		if o.Err != nil {
			res.AddFailure(orderKeys[i], reason(o.Err))
			continue
		}
		res.AddSuccess(orderKeys[i], "")
	}
	return res
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// HasActiveDeduction reports whether the order currently holds deducted stock
func (e *DeductionEngine) HasActiveDeduction(ctx context.Context, orderKey string) (bool, error) {
	_, err := e.deductions.FindActiveSet(ctx, orderKey)
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// History returns every deduction set of the order, newest first, with records
func (e *DeductionEngine) History(ctx context.Context, orderKey string) ([]DeductionSetResponse, error) {
	if _, err := order.ParseKey(orderKey); err != nil {
		return nil, err
	}
	sets, err := e.deductions.FindSets(ctx, orderKey)
	if err != nil {
		return nil, err
	}
	out := make([]DeductionSetResponse, 0, len(sets))
	for _, s := range sets {
		out = append(out, ToDeductionSetResponse(s))
	}
	return out, nil
}

func reason(err error) string {
	if errors.Is(err, batch.ErrCancelled) {
		return "cancelled"
	}
	return err.Error()
}

func deductionOutcomeLabel(r DeductionResult, err error) string {
	switch {
	case r.AlreadyDeducted:
		return telemetry.OutcomeAlreadyDeducted
	case errors.Is(err, shared.ErrInsufficientStock):
		return telemetry.OutcomeInsufficient
	case r.Success:
		return telemetry.OutcomeSuccess
	}
	return telemetry.OutcomeFailed
}
