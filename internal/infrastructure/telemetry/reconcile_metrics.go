package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Outcome labels
const (
	OutcomeSuccess         = "success"
	OutcomeFailed          = "failed"
	OutcomeAlreadyDeducted = "already_deducted"
	OutcomeInsufficient    = "insufficient_stock"
	OutcomeSkipped         = "skipped"
)

// StockMetricsProvider supplies the periodically collected stock gauges
type StockMetricsProvider interface {
	LowStockCount(ctx context.Context) (int64, error)
	ActiveDeductionSets(ctx context.Context) (int64, error)
}

// ReconcileMetricsConfig holds configuration for reconciliation metrics.
type ReconcileMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	StockProvider   StockMetricsProvider
}

// ReconcileMetrics tracks ingest, deduction, dispatch and allocation activity.
// A nil *ReconcileMetrics is valid and records nothing.
type ReconcileMetrics struct {
	logger *zap.Logger

	ordersIngested      *Counter
	deductions          *Counter
	rollbacks           *Counter
	invoices            *Counter
	consistencyFailures *Counter
	stockPushes         *Counter
	allocationRuns      *Counter
	channelCallDuration *Histogram

	lowStockCount       *Gauge
	activeDeductionSets *Gauge

	provider    StockMetricsProvider
	interval    time.Duration
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once
}

// NewReconcileMetrics creates every instrument on the given meter.
func NewReconcileMetrics(cfg ReconcileMetricsConfig) (*ReconcileMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := cfg.CollectInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	m := &ReconcileMetrics{
		logger:   logger,
		provider: cfg.StockProvider,
		interval: interval,
		stopChan: make(chan struct{}),
	}

	counters := []struct {
		dst              **Counter
		name, desc, unit string
	}{
		{&m.ordersIngested, "omni_orders_ingested_total", "Orders upserted from channel pulls", "{orders}"},
		{&m.deductions, "omni_inventory_deduction_total", "Order deduction attempts by outcome", "{orders}"},
		{&m.rollbacks, "omni_inventory_rollback_total", "Deduction rollbacks by outcome", "{orders}"},
		{&m.invoices, "omni_invoice_dispatch_total", "Invoice dispatches by channel and outcome", "{invoices}"},
		{&m.consistencyFailures, "omni_consistency_violation_total", "Saga steps that found inconsistent state", "{violations}"},
		{&m.stockPushes, "omni_stock_push_total", "Channel option stock pushes by outcome", "{options}"},
		{&m.allocationRuns, "omni_allocation_run_total", "Allocation workflow runs by outcome", "{runs}"},
	}
	var err error
	for _, c := range counters {
		if *c.dst, err = NewCounter(cfg.Meter, c.name, c.desc, c.unit); err != nil {
			return nil, err
		}
	}

	if m.channelCallDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "omni_channel_call_duration_seconds",
		Description: "Outbound channel API call latency",
		Unit:        "s",
		Boundaries:  ChannelCallBuckets,
	}); err != nil {
		return nil, err
	}
	if m.lowStockCount, err = NewGauge(cfg.Meter, "omni_inventory_low_stock_count",
		"Stock rows below their safety threshold", "{rows}"); err != nil {
		return nil, err
	}
	if m.activeDeductionSets, err = NewGauge(cfg.Meter, "omni_active_deduction_sets",
		"Orders currently holding deducted stock", "{orders}"); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordOrdersIngested counts upserted orders of a channel pull
func (m *ReconcileMetrics) RecordOrdersIngested(ctx context.Context, channel string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ordersIngested.Add(ctx, int64(n), AttrChannel.String(channel))
}

// RecordDeduction counts one order deduction by outcome
func (m *ReconcileMetrics) RecordDeduction(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.deductions.Inc(ctx, AttrOutcome.String(outcome))
}

// RecordRollback counts one rollback by outcome
func (m *ReconcileMetrics) RecordRollback(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.rollbacks.Inc(ctx, AttrOutcome.String(outcome))
}

// RecordInvoice counts one invoice dispatch
func (m *ReconcileMetrics) RecordInvoice(ctx context.Context, channel string, success bool) {
	if m == nil {
		return
	}
	m.invoices.Inc(ctx, AttrChannel.String(channel), AttrOutcome.String(outcomeOf(success)))
}

// RecordConsistencyViolation counts a saga invariant breach
func (m *ReconcileMetrics) RecordConsistencyViolation(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.consistencyFailures.Inc(ctx, AttrOperation.String(operation))
}

// RecordStockPush counts one option push by outcome
func (m *ReconcileMetrics) RecordStockPush(ctx context.Context, channel, outcome string) {
	if m == nil {
		return
	}
	m.stockPushes.Inc(ctx, AttrChannel.String(channel), AttrOutcome.String(outcome))
}

// RecordAllocationRun counts a finished workflow run
func (m *ReconcileMetrics) RecordAllocationRun(ctx context.Context, success bool) {
	if m == nil {
		return
	}
	m.allocationRuns.Inc(ctx, AttrOutcome.String(outcomeOf(success)))
}

// RecordChannelCall records the latency of one outbound channel call
func (m *ReconcileMetrics) RecordChannelCall(ctx context.Context, channel, operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.channelCallDuration.RecordDuration(ctx, d, AttrChannel.String(channel), AttrOperation.String(operation))
}

func outcomeOf(success bool) string {
	if success {
		return OutcomeSuccess
	}
	return OutcomeFailed
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection samples the stock gauges every interval until
// Stop is called or ctx ends. It is non-blocking and runs at most once.
func (m *ReconcileMetrics) StartPeriodicCollection(ctx context.Context) {
	if m == nil || m.provider == nil {
		return
	}
	m.collectOnce.Do(func() {
		go m.runPeriodicCollection(ctx)
	})
}

func (m *ReconcileMetrics) runPeriodicCollection(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.collect(ctx)
	for {
		select {
		case <-m.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.collect(ctx)
		}
	}
}

func (m *ReconcileMetrics) collect(ctx context.Context) {
	if n, err := m.provider.LowStockCount(ctx); err != nil {
		m.logger.Warn("Failed to collect low stock count", zap.Error(err))
	} else {
		m.lowStockCount.Record(ctx, n)
	}
	if n, err := m.provider.ActiveDeductionSets(ctx); err != nil {
		m.logger.Warn("Failed to collect active deduction sets", zap.Error(err))
	} else {
		m.activeDeductionSets.Record(ctx, n)
	}
}

// Stop ends periodic collection.
func (m *ReconcileMetrics) Stop() {
	if m == nil {
		return
	}
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewReconcileMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
