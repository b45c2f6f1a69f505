package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/allocation"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/omnisync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormWorkflowRepository implements allocation.WorkflowRepository using GORM
type GormWorkflowRepository struct {
	db *gorm.DB
}

// NewGormWorkflowRepository creates a new GormWorkflowRepository
func NewGormWorkflowRepository(db *gorm.DB) *GormWorkflowRepository {
	return &GormWorkflowRepository{db: db}
}

// FindByID finds a workflow by its ID
func (r *GormWorkflowRepository) FindByID(ctx context.Context, id uuid.UUID) (*allocation.Workflow, error) {
	var model models.WorkflowModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	w := model.ToDomain()
	return &w, nil
}

// FindAll returns every workflow, newest first
func (r *GormWorkflowRepository) FindAll(ctx context.Context) ([]allocation.Workflow, error) {
	var rows []models.WorkflowModel
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return workflowsToDomain(rows), nil
}

// FindDue returns active workflows whose next run is at or before now
func (r *GormWorkflowRepository) FindDue(ctx context.Context, now time.Time) ([]allocation.Workflow, error) {
	var rows []models.WorkflowModel
	if err := r.db.WithContext(ctx).
		Where("is_active = ? AND next_run_at IS NOT NULL AND next_run_at <= ?", true, now).
		Order("next_run_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return workflowsToDomain(rows), nil
}

// Save creates or updates a workflow
func (r *GormWorkflowRepository) Save(ctx context.Context, w *allocation.Workflow) error {
	return r.db.WithContext(ctx).Save(models.WorkflowModelFromDomain(w)).Error
}

// Delete removes a workflow and its run logs
func (r *GormWorkflowRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.WorkflowModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return tx.Where("workflow_id = ?", id).Delete(&models.AllocationLogModel{}).Error
	})
}

func workflowsToDomain(rows []models.WorkflowModel) []allocation.Workflow {
	out := make([]allocation.Workflow, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out
}

// GormAllocationLogRepository implements allocation.LogRepository using GORM
type GormAllocationLogRepository struct {
	db *gorm.DB
}

// NewGormAllocationLogRepository creates a new GormAllocationLogRepository
func NewGormAllocationLogRepository(db *gorm.DB) *GormAllocationLogRepository {
	return &GormAllocationLogRepository{db: db}
}

// Save creates or updates a run log
func (r *GormAllocationLogRepository) Save(ctx context.Context, l *allocation.Log) error {
	return r.db.WithContext(ctx).Save(models.AllocationLogModelFromDomain(l)).Error
}

// FindByWorkflow returns the latest runs of a workflow, newest first
func (r *GormAllocationLogRepository) FindByWorkflow(ctx context.Context, workflowID uuid.UUID, limit int) ([]allocation.Log, error) {
	var rows []models.AllocationLogModel
	query := r.db.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]allocation.Log, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// Ensure the repositories implement their domain interfaces
var (
	_ allocation.WorkflowRepository = (*GormWorkflowRepository)(nil)
	_ allocation.LogRepository      = (*GormAllocationLogRepository)(nil)
)
