package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/omnisync/backend/internal/application/batch"
	appinventory "github.com/omnisync/backend/internal/application/inventory"
	"github.com/omnisync/backend/internal/domain/order"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/omnisync/backend/internal/infrastructure/logger"
	"github.com/omnisync/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Deductor is the part of the deduction engine the saga drives
type Deductor interface {
	Deduct(ctx context.Context, orderKeys []string) *appinventory.DeductionOutcome
	Rollback(ctx context.Context, orderKey string) error
	HasActiveDeduction(ctx context.Context, orderKey string) (bool, error)
}

// Sender writes invoices to the channels and the local orders
type Sender interface {
	Resolve(ctx context.Context, ref string) (*order.UnifiedOrder, error)
	SendInvoices(ctx context.Context, entries []InvoiceEntry) *shared.BatchResult
	RecordLocal(ctx context.Context, e InvoiceEntry) shared.ItemResult
}

// InvoiceSaga writes an invoice as lock, deduct, verify, send; a failed
// send reverses the deduction it made. Each order is an independent saga.
type InvoiceSaga struct {
	locker   shared.KeyLocker
	deductor Deductor
	sender   Sender
	opts     batch.Options
	logger   *zap.Logger
	metrics  *telemetry.ReconcileMetrics
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewInvoiceSaga creates a new InvoiceSaga
func NewInvoiceSaga(locker shared.KeyLocker, deductor Deductor, sender Sender, opts batch.Options, logger *zap.Logger) *InvoiceSaga {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceSaga{
		locker:   locker,
		deductor: deductor,
		sender:   sender,
		opts:     opts.Normalize(),
		logger:   logger,
		sleep:    sleepCtx,
	}
}

// SetMetrics sets the reconciliation metrics recorder
func (s *InvoiceSaga) SetMetrics(m *telemetry.ReconcileMetrics) {
	s.metrics = m
}

// Write runs the saga for one entry and sends the invoice to the channel
func (s *InvoiceSaga) Write(ctx context.Context, e InvoiceEntry) shared.ItemResult {
	return s.run(ctx, e, s.sendOne)
}

// UpdateInvoice runs the saga for one entry but records the tracking number
// locally without contacting the channel
func (s *InvoiceSaga) UpdateInvoice(ctx context.Context, e InvoiceEntry) shared.ItemResult {
	return s.run(ctx, e, s.sender.RecordLocal)
}

// WriteBatch runs one saga per entry on the worker pool. Results are in input order.
func (s *InvoiceSaga) WriteBatch(ctx context.Context, entries []InvoiceEntry) *shared.BatchResult {
	ctx, span := telemetry.StartSpan(ctx, "invoice.write_batch", telemetry.SpanAttrBatchSize, len(entries))
	defer span.End()

	var outcomes []batch.Outcome[shared.ItemResult]
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("invoice_write", ""), func(ctx context.Context) {
		outcomes = batch.Run(ctx, entries, s.opts, func(ctx context.Context, e InvoiceEntry) (shared.ItemResult, error) {
			return s.Write(ctx, e), nil
		})
	})
	res := shared.NewBatchResult(len(entries))
	for i, o := range outcomes {
		if o.Err != nil {
			res.AddFailure(entries[i].Normalize().OrderKey, reasonOf(o.Err))
			continue
		}
		res.Add(o.Value)
	}
	return res
}

// RetryFailed writes the entries and retries only the failed ones, up to
// attempts runs in total, waiting baseDelay, 2*baseDelay, ... between runs.
// The result holds the last outcome of every entry in input order.
func (s *InvoiceSaga) RetryFailed(ctx context.Context, entries []InvoiceEntry, attempts int, baseDelay time.Duration) *shared.BatchResult {
	if attempts < 1 {
		attempts = 1
	}
	final := make([]shared.ItemResult, len(entries))
	pending := make([]int, len(entries))
	for i := range entries {
		pending[i] = i
	}

	delay := baseDelay
	for attempt := 1; attempt <= attempts && len(pending) > 0; attempt++ {
		if attempt > 1 {
			if err := s.sleep(ctx, delay); err != nil {
				break
			}
			delay *= 2
		}

		subset := make([]InvoiceEntry, len(pending))
		for j, idx := range pending {
			subset[j] = entries[idx]
		}
		res := s.WriteBatch(ctx, subset)

		var next []int
		for j, idx := range pending {
			final[idx] = res.Results[j]
			if !res.Results[j].Success {
				next = append(next, idx)
			}
		}
		if len(next) > 0 && attempt < attempts {
			s.logger.Info("Retrying failed invoice writes",
				zap.Int("failed", len(next)),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
			)
		}
		pending = next
	}

	out := shared.NewBatchResult(len(entries))
	for i, r := range final {
		if r.Key == "" && !r.Success && r.Error == "" {
			r = failed(entries[i].Normalize().OrderKey, MsgCancelled)
		}
		out.Add(r)
	}
	return out
}

func (s *InvoiceSaga) sendOne(ctx context.Context, e InvoiceEntry) shared.ItemResult {
	res := s.sender.SendInvoices(ctx, []InvoiceEntry{e})
	if len(res.Results) == 0 {
		return failed(e.OrderKey, "no dispatch result")
	}
	return res.Results[0]
}

func (s *InvoiceSaga) run(ctx context.Context, e InvoiceEntry, write func(context.Context, InvoiceEntry) shared.ItemResult) shared.ItemResult {
	e = e.Normalize()
	if e.OrderKey == "" {
		return failed(e.OrderKey, "order number missing")
	}

	o, err := s.sender.Resolve(ctx, e.OrderKey)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return failed(e.OrderKey, MsgOrderNotFound)
		}
		return failed(e.OrderKey, err.Error())
	}
	key := o.Key().String()
	e.OrderKey = key

	ctx, span := telemetry.StartSpan(ctx, "invoice.write", telemetry.SpanAttrOrderKey, key)
	defer span.End()
	ctx = logger.WithOrderKey(ctx, key)
	log := logger.WithLogger(ctx, s.logger)

	unlock, err := s.locker.Lock(ctx, "invoice:"+key)
	if err != nil {
		telemetry.RecordError(span, err)
		return failed(key, fmt.Sprintf("acquire lock: %v", err))
	}
	defer unlock()

	outcome := s.deductor.Deduct(ctx, []string{key})
	if !outcome.Succeeded(key) {
		return failed(key, "inventory deduction failed: "+outcome.Failure(key))
	}
	deducted := !alreadyDeducted(outcome, key)

	active, err := s.deductor.HasActiveDeduction(ctx, key)
	if err != nil {
		telemetry.RecordError(span, err)
		return failed(key, fmt.Sprintf("verify deduction: %v", err))
	}
	if !active {
		log.Error("Consistency violation: invoice write without an active deduction")
		s.metrics.RecordConsistencyViolation(ctx, "invoice_write")
		telemetry.RecordError(span, shared.ErrConsistency)
		return failed(key, shared.ErrConsistency.Error())
	}

	res := write(ctx, e)
	if res.Success {
		return res
	}
	if !deducted {
		return res
	}

	if rbErr := s.deductor.Rollback(ctx, key); rbErr != nil {
		log.Error("Consistency violation: rollback after failed invoice write failed",
			zap.String("write_error", res.Error),
			zap.Error(rbErr),
		)
		s.metrics.RecordConsistencyViolation(ctx, "invoice_rollback")
		telemetry.RecordError(span, rbErr)
		return failed(key, fmt.Sprintf("%s; rollback failed: %v", res.Error, rbErr))
	}
	log.Warn("Invoice write failed, deduction rolled back",
		zap.String("error", res.Error),
	)
	return res
}

func alreadyDeducted(outcome *appinventory.DeductionOutcome, key string) bool {
	for _, r := range outcome.Results {
		if r.OrderKey == key {
			return r.AlreadyDeducted
		}
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
