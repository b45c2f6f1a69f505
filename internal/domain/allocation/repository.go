package allocation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// WorkflowRepository persists workflows
type WorkflowRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Workflow, error)
	FindAll(ctx context.Context) ([]Workflow, error)
	// FindDue returns active workflows whose next run is at or before now
	FindDue(ctx context.Context, now time.Time) ([]Workflow, error)
	Save(ctx context.Context, w *Workflow) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// LogRepository persists run logs
type LogRepository interface {
	Save(ctx context.Context, l *Log) error
	FindByWorkflow(ctx context.Context, workflowID uuid.UUID, limit int) ([]Log, error)
}
