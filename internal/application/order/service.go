// Package order provides the application service for canonical orders:
// ingest from channels, queries with stats, and bulk maintenance.
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/omnisync/backend/internal/domain/carrier"
	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/omnisync/backend/internal/domain/integration"
	"github.com/omnisync/backend/internal/domain/order"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/omnisync/backend/internal/infrastructure/logger"
	"github.com/omnisync/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DefaultSyncWindow is how far back Ingest looks when no window is given
const DefaultSyncWindow = 7 * 24 * time.Hour

// IngestResult reports one channel pull
type IngestResult struct {
	Channel    channel.Channel `json:"channel"`
	Fetched    int             `json:"fetched"`
	Orders     int             `json:"orders"`
	Upserted   int             `json:"upserted"`
	Errors     []string        `json:"errors"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt time.Time       `json:"finishedAt"`
}

// Service handles canonical order operations
type Service struct {
	repo       order.OrderRepository
	normalizer *order.Normalizer
	logger     *zap.Logger
	metrics    *telemetry.ReconcileMetrics
	now        func() time.Time
}

// NewService creates a new order service
func NewService(repo order.OrderRepository, carriers *carrier.Registry, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:       repo,
		normalizer: order.NewNormalizer(carriers),
		logger:     logger,
		now:        time.Now,
	}
}

// SetMetrics sets the reconciliation metrics recorder
func (s *Service) SetMetrics(m *telemetry.ReconcileMetrics) {
	s.metrics = m
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// Query returns one page of orders plus stats. Stats cover the filtered set
// unless the filter asks for global stats.
func (s *Service) Query(ctx context.Context, filter order.Filter) (*order.Page, error) {
	filter = filter.Normalize()

	orders, total, err := s.repo.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}

	statsFilter := &filter
	if filter.GlobalStats {
		statsFilter = nil
	}
	stats, err := s.repo.Stats(ctx, statsFilter)
	if err != nil {
		return nil, fmt.Errorf("order stats: %w", err)
	}

	return &order.Page{
		Orders: orders,
		Total:  total,
		Page:   filter.Page,
		Stats:  stats,
	}, nil
}

// Get returns one order by its key string
func (s *Service) Get(ctx context.Context, orderKey string) (*order.UnifiedOrder, error) {
	key, err := order.ParseKey(orderKey)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByKey(ctx, key)
}

// Resolve finds an order by orderKey or by a bare channel order number.
// A bare number that matches orders on several channels is ambiguous.
func (s *Service) Resolve(ctx context.Context, ref string) (*order.UnifiedOrder, error) {
	if key, err := order.ParseKey(ref); err == nil {
		o, err := s.repo.FindByKey(ctx, key)
		if err == nil || !errors.Is(err, shared.ErrNotFound) {
			return o, err
		}
	}
	matches, err := s.repo.FindByOrderNo(ctx, ref)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, shared.ErrNotFound.WithMessage("order not found")
	case 1:
		return matches[0], nil
	}
	return nil, shared.ErrInvalidInput.WithMessage(fmt.Sprintf("order number %s exists on %d channels", ref, len(matches)))
}

// ---------------------------------------------------------------------------
// Ingest
// ---------------------------------------------------------------------------

// Ingest pulls raw rows from the channel source for [from, to], normalizes
// and aggregates them and upserts every resulting order. Bad rows and failed
// upserts are reported without aborting the pull.
func (s *Service) Ingest(ctx context.Context, source integration.OrderSource, from, to time.Time) (*IngestResult, error) {
	if to.IsZero() {
		to = s.now()
	}
	if from.IsZero() {
		from = to.Add(-DefaultSyncWindow)
	}
	ctx = logger.WithChannel(ctx, string(source.Channel()))
	res := &IngestResult{Channel: source.Channel(), StartedAt: s.now(), Errors: []string{}}

	rows, err := source.FetchOrders(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch %s orders: %w", source.Channel(), err)
	}
	res.Fetched = len(rows)

	candidates, errs := s.normalizer.NormalizeAll(rows)
	orders, aggErrs := order.Aggregate(candidates)
	errs = append(errs, aggErrs...)
	res.Orders = len(orders)

	for _, o := range orders {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Key(), err))
			continue
		}
		if err := s.repo.Upsert(ctx, o); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Key(), err))
			continue
		}
		res.Upserted++
	}
	for _, e := range errs {
		res.Errors = append(res.Errors, e.Error())
	}
	res.FinishedAt = s.now()
	s.metrics.RecordOrdersIngested(ctx, string(res.Channel), res.Upserted)

	logger.WithLogger(ctx, s.logger).Info("Channel orders ingested",
		zap.Int("fetched", res.Fetched),
		zap.Int("orders", res.Orders),
		zap.Int("upserted", res.Upserted),
		zap.Int("errors", len(res.Errors)),
	)
	return res, nil
}

// ---------------------------------------------------------------------------
// Bulk maintenance
// ---------------------------------------------------------------------------

// BulkUpdateStatus sets the status of every listed order
func (s *Service) BulkUpdateStatus(ctx context.Context, orderKeys []string, status order.Status) (*shared.BatchResult, error) {
	if !status.IsValid() {
		return nil, shared.ErrInvalidInput.WithMessage(fmt.Sprintf("invalid status %q", status))
	}
	return s.each(ctx, orderKeys, func(key order.Key) error {
		return s.repo.UpdateStatus(ctx, key, status)
	}), nil
}

// BulkDelete hard-deletes every listed order with its items
func (s *Service) BulkDelete(ctx context.Context, orderKeys []string) *shared.BatchResult {
	res := s.each(ctx, orderKeys, func(key order.Key) error {
		return s.repo.Delete(ctx, key)
	})
	s.logger.Info("Orders deleted",
		zap.Int("success", res.SuccessCount),
		zap.Int("failed", res.FailCount),
	)
	return res
}

func (s *Service) each(ctx context.Context, orderKeys []string, fn func(order.Key) error) *shared.BatchResult {
	res := shared.NewBatchResult(len(orderKeys))
	for _, raw := range orderKeys {
		key, err := order.ParseKey(raw)
		if err != nil {
			res.AddFailure(raw, err.Error())
			continue
		}
		if ctx.Err() != nil {
			res.AddFailure(raw, "cancelled")
			continue
		}
		if err := fn(key); err != nil {
			res.AddFailure(raw, err.Error())
			continue
		}
		res.AddSuccess(raw, "")
	}
	return res
}
