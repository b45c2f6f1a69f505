package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/omnisync/backend/internal/application/batch"
	"github.com/omnisync/backend/internal/domain/carrier"
	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/omnisync/backend/internal/domain/integration"
	"github.com/omnisync/backend/internal/domain/order"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/omnisync/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// MaxBatchLines caps the product orders sent in one batch dispatch call
const MaxBatchLines = 30

// Dispatcher sends tracking numbers to the channels and mirrors accepted
// ones onto the local orders. Entries are independent: one failure never
// aborts the batch.
type Dispatcher struct {
	orders   order.OrderRepository
	carriers *carrier.Registry
	channels integration.Registry
	opts     batch.Options
	logger   *zap.Logger
	metrics  *telemetry.ReconcileMetrics
	now      func() time.Time
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(
	orders order.OrderRepository,
	carriers *carrier.Registry,
	channels integration.Registry,
	opts batch.Options,
	logger *zap.Logger,
) *Dispatcher {
	if carriers == nil {
		carriers = carrier.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		orders:   orders,
		carriers: carriers,
		channels: channels,
		opts:     opts.Normalize(),
		logger:   logger,
		now:      time.Now,
	}
}

// SetMetrics sets the reconciliation metrics recorder
func (d *Dispatcher) SetMetrics(m *telemetry.ReconcileMetrics) {
	d.metrics = m
}

type preparedEntry struct {
	idx      int
	key      string
	order    *order.UnifiedOrder
	carrier  carrier.Carrier
	shipment integration.Shipment
}

type dispatchUnit struct {
	channel channel.Channel
	sink    integration.InvoiceSink
	items   []*preparedEntry
}

// SendInvoices dispatches every entry to its order's channel. Batch-capable
// channels get chunked calls, the others one call per order; units for
// different channels run concurrently. Once ctx ends no further unit starts
// and its entries report "cancelled". Results are in input order.
func (d *Dispatcher) SendInvoices(ctx context.Context, entries []InvoiceEntry) *shared.BatchResult {
	ctx, span := telemetry.StartSpan(ctx, "invoice.dispatch", telemetry.SpanAttrBatchSize, len(entries))
	defer span.End()

	results := make([]shared.ItemResult, len(entries))
	byChannel := make(map[channel.Channel][]*preparedEntry)
	var channels []channel.Channel

	for i, e := range entries {
		p, reason := d.prepare(ctx, i, e.Normalize())
		if reason != "" {
			results[i] = failed(keyOf(p, e), reason)
			continue
		}
		if _, seen := byChannel[p.order.Channel]; !seen {
			channels = append(channels, p.order.Channel)
		}
		byChannel[p.order.Channel] = append(byChannel[p.order.Channel], p)
	}

	var units []dispatchUnit
	for _, ch := range channels {
		items := byChannel[ch]
		sink, err := d.channels.InvoiceSink(ch)
		if err != nil {
			for _, p := range items {
				results[p.idx] = failed(p.key, err.Error())
			}
			continue
		}
		units = append(units, planUnits(ch, sink, items)...)
	}

	outcomes := batch.Run(ctx, units, d.opts, func(ctx context.Context, u dispatchUnit) (res []shared.ItemResult, err error) {
		telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("invoice_dispatch", u.channel.String()), func(ctx context.Context) {
			res, err = d.sendUnit(ctx, u)
		})
		return res, err
	})
	for j, o := range outcomes {
		u := units[j]
		for k, p := range u.items {
			if o.Err != nil {
				results[p.idx] = failed(p.key, reasonOf(o.Err))
				continue
			}
			results[p.idx] = o.Value[k]
		}
	}

	res := shared.NewBatchResult(len(entries))
	for i, r := range results {
		res.Add(r)
		ch := ""
		if k, err := order.ParseKey(r.Key); err == nil {
			ch = k.Channel.String()
		}
		d.metrics.RecordInvoice(ctx, ch, results[i].Success)
	}

	d.logger.Info("Invoices dispatched",
		zap.Int("entries", len(entries)),
		zap.Int("success", res.SuccessCount),
		zap.Int("failed", res.FailCount),
	)
	return res
}

// planUnits splits one channel's entries into calls. Batch sinks take up to
// MaxBatchLines product orders per call; an order is never split.
func planUnits(ch channel.Channel, sink integration.InvoiceSink, items []*preparedEntry) []dispatchUnit {
	if !sink.SupportsBatch() {
		units := make([]dispatchUnit, 0, len(items))
		for _, p := range items {
			units = append(units, dispatchUnit{channel: ch, sink: sink, items: []*preparedEntry{p}})
		}
		return units
	}

	var units []dispatchUnit
	var current []*preparedEntry
	lines := 0
	for _, p := range items {
		n := len(p.shipment.LineIDs)
		if len(current) > 0 && lines+n > MaxBatchLines {
			units = append(units, dispatchUnit{channel: ch, sink: sink, items: current})
			current, lines = nil, 0
		}
		current = append(current, p)
		lines += n
	}
	if len(current) > 0 {
		units = append(units, dispatchUnit{channel: ch, sink: sink, items: current})
	}
	return units
}

func (d *Dispatcher) sendUnit(ctx context.Context, u dispatchUnit) ([]shared.ItemResult, error) {
	shipments := make([]integration.Shipment, len(u.items))
	for i, p := range u.items {
		shipments[i] = p.shipment
	}

	start := time.Now()
	var (
		verdicts []integration.ShipmentResult
		err      error
	)
	if u.sink.SupportsBatch() {
		verdicts, err = u.sink.SendInvoiceBatch(ctx, shipments)
	} else {
		var v integration.ShipmentResult
		v, err = u.sink.SendInvoice(ctx, shipments[0])
		verdicts = []integration.ShipmentResult{v}
	}
	d.metrics.RecordChannelCall(ctx, u.channel.String(), "send_invoice", time.Since(start))

	out := make([]shared.ItemResult, len(u.items))
	for i, p := range u.items {
		if err != nil && (len(verdicts) != len(u.items) || verdicts[i].Message == "") {
			d.logger.Warn("Invoice dispatch failed",
				zap.String("channel", u.channel.String()),
				zap.String("order_key", p.key),
				zap.Error(err),
			)
			out[i] = failed(p.key, err.Error())
			continue
		}
		if i >= len(verdicts) {
			out[i] = failed(p.key, "missing channel response")
			continue
		}
		v := verdicts[i]
		if !v.Success {
			out[i] = failed(p.key, v.Message)
			continue
		}
		if err := d.recordLocal(ctx, p); err != nil {
			out[i] = failed(p.key, fmt.Sprintf("channel accepted the invoice but the local update failed: %v", err))
			continue
		}
		out[i] = shared.ItemResult{Key: p.key, Success: true, Message: v.Message}
	}
	return out, nil
}

// RecordLocal records the tracking number on the local order only, without
// contacting the channel
func (d *Dispatcher) RecordLocal(ctx context.Context, e InvoiceEntry) shared.ItemResult {
	e = e.Normalize()
	p, reason := d.prepareLocal(ctx, e)
	if reason != "" {
		return failed(keyOf(p, e), reason)
	}
	if err := d.recordLocal(ctx, p); err != nil {
		return failed(p.key, err.Error())
	}
	return shared.ItemResult{Key: p.key, Success: true}
}

func (d *Dispatcher) recordLocal(ctx context.Context, p *preparedEntry) error {
	p.order.AssignInvoice(p.carrier, p.shipment.TrackingNo, d.now())
	return d.orders.UpdateInvoice(ctx, p.order)
}

// ---------------------------------------------------------------------------
// Entry resolution
// ---------------------------------------------------------------------------

// Resolve finds the order an entry refers to: an order key, or a channel
// order number that exists on exactly one channel
func (d *Dispatcher) Resolve(ctx context.Context, ref string) (*order.UnifiedOrder, error) {
	if key, err := order.ParseKey(ref); err == nil {
		o, err := d.orders.FindByKey(ctx, key)
		if err == nil || !errors.Is(err, shared.ErrNotFound) {
			return o, err
		}
	}
	matches, err := d.orders.FindByOrderNo(ctx, ref)
	if err != nil {
		return nil, err
	}
	if len(matches) != 1 {
		return nil, shared.ErrNotFound.WithMessage(MsgOrderNotFound)
	}
	return matches[0], nil
}

func (d *Dispatcher) prepareLocal(ctx context.Context, e InvoiceEntry) (*preparedEntry, string) {
	if e.TrackingNo == "" {
		return nil, MsgTrackingMissing
	}
	o, err := d.Resolve(ctx, e.OrderKey)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, MsgOrderNotFound
		}
		return nil, err.Error()
	}
	p := &preparedEntry{key: o.Key().String(), order: o}
	c, ok := d.carriers.Resolve(e.Carrier)
	if !ok {
		return p, fmt.Sprintf("%s: %s", MsgInvalidCarrier, e.Carrier)
	}
	p.carrier = c
	p.shipment = integration.Shipment{
		OrderKey:   o.Key(),
		LineIDs:    o.LineIDs(),
		TrackingNo: e.TrackingNo,
		DispatchAt: d.now(),
	}
	return p, ""
}

func (d *Dispatcher) prepare(ctx context.Context, idx int, e InvoiceEntry) (*preparedEntry, string) {
	p, reason := d.prepareLocal(ctx, e)
	if reason != "" {
		return p, reason
	}
	p.idx = idx
	code, err := d.carriers.ChannelCode(p.carrier.Value, p.order.Channel)
	if err != nil {
		return p, MsgUnsupportedCarrier
	}
	p.shipment.CarrierCode = code
	return p, ""
}

func keyOf(p *preparedEntry, e InvoiceEntry) string {
	if p != nil && p.key != "" {
		return p.key
	}
	return e.OrderKey
}

func failed(key, reason string) shared.ItemResult {
	return shared.ItemResult{Key: key, Success: false, Error: reason}
}

func reasonOf(err error) string {
	if errors.Is(err, batch.ErrCancelled) {
		return MsgCancelled
	}
	return err.Error()
}
