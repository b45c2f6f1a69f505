// Package allocation runs stock allocation workflows: a share of the
// warehouse stock of every mapped SKU is pushed to one channel's options.
package allocation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/application/batch"
	"github.com/omnisync/backend/internal/domain/allocation"
	"github.com/omnisync/backend/internal/domain/integration"
	"github.com/omnisync/backend/internal/domain/inventory"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/omnisync/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DefaultLogLimit is the number of run logs returned when no limit is given
const DefaultLogLimit = 20

// Service manages workflows and executes their runs
type Service struct {
	workflows allocation.WorkflowRepository
	logs      allocation.LogRepository
	mappings  integration.OptionMappingRepository
	stock     inventory.StockRepository
	channels  integration.Registry
	opts      batch.Options
	validate  *validator.Validate
	logger    *zap.Logger
	metrics   *telemetry.ReconcileMetrics
	now       func() time.Time

	running sync.Map // workflow id -> struct{}
}

// NewService creates a new allocation Service
func NewService(
	workflows allocation.WorkflowRepository,
	logs allocation.LogRepository,
	mappings integration.OptionMappingRepository,
	stock inventory.StockRepository,
	channels integration.Registry,
	opts batch.Options,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		workflows: workflows,
		logs:      logs,
		mappings:  mappings,
		stock:     stock,
		channels:  channels,
		opts:      opts.Normalize(),
		validate:  newValidator(),
		logger:    logger,
		now:       time.Now,
	}
}

// SetMetrics sets the reconciliation metrics recorder
func (s *Service) SetMetrics(m *telemetry.ReconcileMetrics) {
	s.metrics = m
}

// ---------------------------------------------------------------------------
// Workflow management
// ---------------------------------------------------------------------------

func (s *Service) checkRequest(req WorkflowRequest) (allocation.Definition, error) {
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return allocation.Definition{}, shared.ErrInvalidInput.WithMessage(
				fmt.Sprintf("%s failed on the '%s' rule", fe.Field(), fe.Tag()))
		}
		return allocation.Definition{}, shared.ErrInvalidInput.WithMessage(err.Error())
	}
	def := req.Definition()
	if err := def.Validate(); err != nil {
		return allocation.Definition{}, err
	}
	return def, nil
}

// Create stores a new active workflow
func (s *Service) Create(ctx context.Context, req WorkflowRequest) (*WorkflowResponse, error) {
	def, err := s.checkRequest(req)
	if err != nil {
		return nil, err
	}
	w, err := allocation.NewWorkflow(def, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.workflows.Save(ctx, w); err != nil {
		return nil, err
	}
	s.logger.Info("Allocation workflow created",
		zap.String("workflow_id", w.ID.String()),
		zap.String("channel", w.Channel.String()),
		zap.Int("percent", w.Percent),
	)
	resp := ToWorkflowResponse(w)
	return &resp, nil
}

// Update replaces a workflow's definition and reschedules it
func (s *Service) Update(ctx context.Context, id uuid.UUID, req WorkflowRequest) (*WorkflowResponse, error) {
	def, err := s.checkRequest(req)
	if err != nil {
		return nil, err
	}
	w, err := s.workflows.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := w.Update(def, s.now()); err != nil {
		return nil, err
	}
	if err := s.workflows.Save(ctx, w); err != nil {
		return nil, err
	}
	resp := ToWorkflowResponse(w)
	return &resp, nil
}

// Get returns one workflow
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*WorkflowResponse, error) {
	w, err := s.workflows.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToWorkflowResponse(w)
	return &resp, nil
}

// List returns every workflow
func (s *Service) List(ctx context.Context) ([]WorkflowResponse, error) {
	ws, err := s.workflows.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]WorkflowResponse, 0, len(ws))
	for i := range ws {
		out = append(out, ToWorkflowResponse(&ws[i]))
	}
	return out, nil
}

// Toggle flips the active flag. Activation recomputes the next run.
func (s *Service) Toggle(ctx context.Context, id uuid.UUID) (*WorkflowResponse, error) {
	w, err := s.workflows.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	w.SetActive(!w.IsActive, s.now())
	if err := s.workflows.Save(ctx, w); err != nil {
		return nil, err
	}
	resp := ToWorkflowResponse(w)
	return &resp, nil
}

// Delete removes a workflow
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.workflows.Delete(ctx, id)
}

// Logs returns the newest run logs of a workflow
func (s *Service) Logs(ctx context.Context, id uuid.UUID, limit int) ([]LogResponse, error) {
	if _, err := s.workflows.FindByID(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	logs, err := s.logs.FindByWorkflow(ctx, id, limit)
	if err != nil {
		return nil, err
	}
	out := make([]LogResponse, 0, len(logs))
	for i := range logs {
		out = append(out, ToLogResponse(&logs[i]))
	}
	return out, nil
}

// DueWorkflowIDs returns the active workflows whose next run has arrived
func (s *Service) DueWorkflowIDs(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	ws, err := s.workflows.FindDue(ctx, now)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(ws))
	for i := range ws {
		if ws[i].IsDue(now) {
			ids = append(ids, ws[i].ID)
		}
	}
	return ids, nil
}

// ---------------------------------------------------------------------------
// Runs
// ---------------------------------------------------------------------------

// RunNow runs a workflow immediately, whether or not it is due or active
func (s *Service) RunNow(ctx context.Context, id uuid.UUID) (*LogResponse, error) {
	w, err := s.workflows.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	l, err := s.Run(ctx, w)
	if err != nil {
		return nil, err
	}
	resp := ToLogResponse(l)
	return &resp, nil
}

// Execute runs a workflow picked up by the scheduler. A workflow that is no
// longer due (toggled off or rescheduled meanwhile) is skipped.
func (s *Service) Execute(ctx context.Context, id uuid.UUID) error {
	w, err := s.workflows.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !w.IsDue(s.now()) {
		s.logger.Debug("Workflow no longer due, skipping", zap.String("workflow_id", id.String()))
		return nil
	}
	l, err := s.Run(ctx, w)
	if err != nil {
		return err
	}
	if l.Status == allocation.RunFailed {
		return errors.New(l.ErrorMessage)
	}
	return nil
}

// Run pushes target stock for every mapped option of the workflow's channel.
// Options already showing the target are skipped. The log is stored and the
// workflow rescheduled whatever the outcome. A workflow already running
// returns ErrWorkflowRunning.
func (s *Service) Run(ctx context.Context, w *allocation.Workflow) (*allocation.Log, error) {
	if _, busy := s.running.LoadOrStore(w.ID, struct{}{}); busy {
		return nil, allocation.ErrWorkflowRunning
	}
	defer s.running.Delete(w.ID)

	ctx, span := telemetry.StartSpan(ctx, "allocation.run",
		telemetry.SpanAttrWorkflowID, w.ID.String(),
		telemetry.SpanAttrChannel, w.Channel.String(),
	)
	defer span.End()

	l := allocation.StartLog(w.ID, s.now())
	if err := s.logs.Save(ctx, l); err != nil {
		err = fmt.Errorf("open run log: %w", err)
		telemetry.RecordError(span, err)
		// reschedule anyway, or the cron trigger keeps firing a stale next_run_at
		w.RecordRun(allocation.RunFailed, err.Error(), s.now())
		s.saveWorkflow(ctx, w)
		s.metrics.RecordAllocationRun(ctx, false)
		return nil, err
	}

	outcomes, runErr := s.allocate(ctx, w)
	if runErr != nil {
		telemetry.RecordError(span, runErr)
	}

	at := s.now()
	l.Complete(outcomes, runErr, at)
	w.RecordRun(l.Status, l.Summary(), at)

	// a fresh context so a cancelled run is still recorded
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.logs.Save(saveCtx, l); err != nil {
		s.logger.Error("Failed to store allocation log", zap.String("workflow_id", w.ID.String()), zap.Error(err))
	}
	s.saveWorkflow(ctx, w)

	s.metrics.RecordAllocationRun(ctx, l.Status == allocation.RunSuccess)
	s.logger.Info("Allocation workflow finished",
		zap.String("workflow_id", w.ID.String()),
		zap.String("status", string(l.Status)),
		zap.Int("updated", l.OptionsUpdated),
		zap.Int("failed", l.OptionsFailed),
	)
	return l, nil
}

// saveWorkflow stores the run outcome and next_run_at on a context that
// survives cancellation of ctx.
func (s *Service) saveWorkflow(ctx context.Context, w *allocation.Workflow) {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.workflows.Save(saveCtx, w); err != nil {
		s.logger.Error("Failed to store workflow run", zap.String("workflow_id", w.ID.String()), zap.Error(err))
	}
}

type pushUnit struct {
	productNo string
	mappings  []integration.OptionMapping
	targets   []int
}

func (s *Service) allocate(ctx context.Context, w *allocation.Workflow) ([]allocation.OptionOutcome, error) {
	mappings, err := s.mappings.FindByChannel(ctx, w.Channel)
	if err != nil {
		return nil, fmt.Errorf("load option mappings: %w", err)
	}
	if len(mappings) == 0 {
		return nil, nil
	}

	skus := make([]string, 0, len(mappings))
	for _, m := range mappings {
		skus = append(skus, m.SKU)
	}
	available, err := s.stock.AvailableBySKU(ctx, skus)
	if err != nil {
		return nil, fmt.Errorf("load warehouse stock: %w", err)
	}

	pusher, err := s.channels.StockPusher(w.Channel)
	if err != nil {
		return nil, err
	}

	var outcomes []allocation.OptionOutcome
	byProduct := make(map[string]*pushUnit)
	for _, m := range mappings {
		stock, known := available[m.SKU]
		if !known {
			continue
		}
		target := allocation.TargetStock(stock, w.Percent)
		if m.ChannelStock == target {
			outcomes = append(outcomes, allocation.OptionOutcome{
				ProductNo: m.ProductNo, OptionID: m.OptionID, SKU: m.SKU,
				Previous: m.ChannelStock, Target: target, Status: allocation.OptionSkipped,
			})
			s.metrics.RecordStockPush(ctx, w.Channel.String(), telemetry.OutcomeSkipped)
			continue
		}
		u, ok := byProduct[m.ProductNo]
		if !ok {
			u = &pushUnit{productNo: m.ProductNo}
			byProduct[m.ProductNo] = u
		}
		u.mappings = append(u.mappings, m)
		u.targets = append(u.targets, target)
	}

	units := make([]*pushUnit, 0, len(byProduct))
	for _, u := range byProduct {
		units = append(units, u)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].productNo < units[j].productNo })

	results := batch.Run(ctx, units, s.opts, func(ctx context.Context, u *pushUnit) ([]allocation.OptionOutcome, error) {
		return s.push(ctx, w, pusher, u), nil
	})
	for i, r := range results {
		if r.Err != nil {
			for j, m := range units[i].mappings {
				outcomes = append(outcomes, allocation.OptionOutcome{
					ProductNo: m.ProductNo, OptionID: m.OptionID, SKU: m.SKU,
					Previous: m.ChannelStock, Target: units[i].targets[j],
					Status: allocation.OptionFailed, Message: r.Err.Error(),
				})
			}
			continue
		}
		outcomes = append(outcomes, r.Value...)
	}
	return outcomes, nil
}

func (s *Service) push(ctx context.Context, w *allocation.Workflow, pusher integration.StockPusher, u *pushUnit) []allocation.OptionOutcome {
	updates := make([]integration.StockUpdate, len(u.mappings))
	for i, m := range u.mappings {
		updates[i] = m.StockUpdate(u.targets[i])
	}

	start := time.Now()
	results, err := pusher.PushStock(ctx, updates)
	s.metrics.RecordChannelCall(ctx, w.Channel.String(), "push_stock", time.Since(start))

	out := make([]allocation.OptionOutcome, len(u.mappings))
	for i, m := range u.mappings {
		o := allocation.OptionOutcome{
			ProductNo: m.ProductNo, OptionID: m.OptionID, SKU: m.SKU,
			Previous: m.ChannelStock, Target: u.targets[i],
		}
		switch {
		case i < len(results) && results[i].Success:
			if uerr := s.mappings.UpdateChannelStock(ctx, m.ID, u.targets[i], s.now()); uerr != nil {
				o.Status = allocation.OptionFailed
				o.Message = fmt.Sprintf("pushed but not recorded: %v", uerr)
				break
			}
			o.Status = allocation.OptionUpdated
		case i < len(results) && results[i].Message != "":
			o.Status = allocation.OptionFailed
			o.Message = results[i].Message
		case err != nil:
			o.Status = allocation.OptionFailed
			o.Message = err.Error()
		default:
			o.Status = allocation.OptionFailed
			o.Message = "missing channel response"
		}
		outcome := telemetry.OutcomeSuccess
		if o.Status == allocation.OptionFailed {
			outcome = telemetry.OutcomeFailed
			s.logger.Warn("Stock push failed",
				zap.String("channel", w.Channel.String()),
				zap.String("product_no", m.ProductNo),
				zap.String("option_id", m.OptionID),
				zap.String("error", o.Message),
			)
		}
		s.metrics.RecordStockPush(ctx, w.Channel.String(), outcome)
		out[i] = o
	}
	return out
}
