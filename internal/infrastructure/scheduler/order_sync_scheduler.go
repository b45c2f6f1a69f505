package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	apporder "github.com/omnisync/backend/internal/application/order"
	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/omnisync/backend/internal/domain/integration"
	"go.uber.org/zap"
)

// OrderIngester pulls one channel's orders into the canonical store
type OrderIngester interface {
	Ingest(ctx context.Context, source integration.OrderSource, from, to time.Time) (*apporder.IngestResult, error)
}

// OrderSyncConfig holds configuration for the periodic order pull
type OrderSyncConfig struct {
	Interval time.Duration // 0 disables the scheduler
	Lookback time.Duration
	Timeout  time.Duration // per channel
}

// DefaultOrderSyncConfig returns default order sync configuration
func DefaultOrderSyncConfig() OrderSyncConfig {
	return OrderSyncConfig{
		Interval: 0,
		Lookback: 24 * time.Hour,
		Timeout:  5 * time.Minute,
	}
}

// OrderSyncScheduler periodically ingests the recent orders of every
// configured channel. Channels are pulled one after another; a failing
// channel is logged and does not stop the others.
type OrderSyncScheduler struct {
	config   OrderSyncConfig
	channels integration.Registry
	ingester OrderIngester
	logger   *zap.Logger
	now      func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	syncing   bool
}

// NewOrderSyncScheduler creates a new order sync scheduler
func NewOrderSyncScheduler(
	config OrderSyncConfig,
	channels integration.Registry,
	ingester OrderIngester,
	logger *zap.Logger,
) *OrderSyncScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultOrderSyncConfig()
	if config.Lookback <= 0 {
		config.Lookback = def.Lookback
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	return &OrderSyncScheduler{
		config:   config,
		channels: channels,
		ingester: ingester,
		logger:   logger,
		now:      time.Now,
	}
}

// Start starts the periodic pull. It is a no-op when the interval is zero.
func (s *OrderSyncScheduler) Start(ctx context.Context) error {
	if s.config.Interval <= 0 {
		s.logger.Info("Order sync scheduler disabled")
		return nil
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Order sync scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("lookback", s.config.Lookback),
	)
	return nil
}

// Stop stops the scheduler and waits for an in-progress pull to end
func (s *OrderSyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Order sync scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *OrderSyncScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SyncAll(ctx); err != nil && !errors.Is(err, ErrOrderSyncAlreadyInProgress) {
				s.logger.Warn("Order sync round failed", zap.Error(err))
			}
		}
	}
}

// SyncAll pulls the lookback window of every configured channel.
// Only one round runs at a time.
func (s *OrderSyncScheduler) SyncAll(ctx context.Context) ([]*apporder.IngestResult, error) {
	s.mu.Lock()
	if s.syncing {
		s.mu.Unlock()
		return nil, ErrOrderSyncAlreadyInProgress
	}
	s.syncing = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.syncing = false
		s.mu.Unlock()
	}()

	to := s.now()
	from := to.Add(-s.config.Lookback)

	var results []*apporder.IngestResult
	for _, ch := range s.channels.Channels() {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := s.syncChannel(ctx, ch, from, to)
		if err != nil {
			s.logger.Error("Order sync failed",
				zap.String("channel", string(ch)),
				zap.Error(err),
			)
			continue
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *OrderSyncScheduler) syncChannel(ctx context.Context, ch channel.Channel, from, to time.Time) (*apporder.IngestResult, error) {
	source, err := s.channels.OrderSource(ch)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()
	return s.ingester.Ingest(ctx, source, from, to)
}
