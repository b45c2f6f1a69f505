package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DueSource lists active workflows whose next run is at or before now
type DueSource interface {
	DueWorkflowIDs(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

// CronTriggerConfig holds configuration for the cron trigger
type CronTriggerConfig struct {
	// CheckInterval is how often due workflows are looked up
	CheckInterval time.Duration
}

// DefaultCronTriggerConfig returns default cron trigger configuration
func DefaultCronTriggerConfig() CronTriggerConfig {
	return CronTriggerConfig{
		CheckInterval: time.Minute,
	}
}

// CronTrigger submits due allocation workflows to the scheduler on every tick
type CronTrigger struct {
	config    CronTriggerConfig
	scheduler *Scheduler
	source    DueSource
	logger    *zap.Logger
	now       func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewCronTrigger creates a new cron trigger
func NewCronTrigger(
	config CronTriggerConfig,
	scheduler *Scheduler,
	source DueSource,
	logger *zap.Logger,
) *CronTrigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = DefaultCronTriggerConfig().CheckInterval
	}
	return &CronTrigger{
		config:    config,
		scheduler: scheduler,
		source:    source,
		logger:    logger,
		now:       time.Now,
	}
}

// Start starts the cron trigger
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Allocation cron trigger started",
		zap.Duration("check_interval", c.config.CheckInterval),
	)

	return nil
}

// Stop stops the cron trigger
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Allocation cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *CronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}

// Tick submits every due workflow once and returns how many were queued.
// Workflows still queued or running from an earlier tick are skipped.
func (c *CronTrigger) Tick(ctx context.Context) int {
	ids, err := c.source.DueWorkflowIDs(ctx, c.now())
	if err != nil {
		c.logger.Error("Failed to look up due workflows", zap.Error(err))
		return 0
	}

	submitted := 0
	for _, id := range ids {
		_, err := c.scheduler.Submit(id)
		switch {
		case err == nil:
			submitted++
		case errors.Is(err, ErrJobAlreadyScheduled):
			c.logger.Debug("Workflow still in flight, skipping",
				zap.String("workflow_id", id.String()),
			)
		default:
			c.logger.Warn("Failed to submit due workflow",
				zap.String("workflow_id", id.String()),
				zap.Error(err),
			)
		}
	}

	if len(ids) > 0 {
		c.logger.Info("Due workflows submitted",
			zap.Int("due", len(ids)),
			zap.Int("submitted", submitted),
		)
	}
	return submitted
}
