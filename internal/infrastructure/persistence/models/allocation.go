package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/allocation"
	"github.com/omnisync/backend/internal/domain/channel"
)

// WorkflowModel is the persistence model for an allocation workflow
type WorkflowModel struct {
	BaseModel
	Name           string `gorm:"type:varchar(100);not null"`
	Description    string `gorm:"type:text"`
	ScheduleType   string `gorm:"type:varchar(10);not null"`
	ScheduleTime   string `gorm:"type:varchar(5);not null"`
	ScheduleDays   []int  `gorm:"type:text;serializer:json"`
	Percent        int    `gorm:"column:allocation_percent;not null"`
	Channel        string `gorm:"column:target_channel;type:varchar(20);not null"`
	IsActive       bool   `gorm:"not null;index:idx_allocation_workflows_due,priority:1"`
	LastRunAt      *time.Time
	LastRunStatus  string     `gorm:"type:varchar(20)"`
	LastRunMessage string     `gorm:"type:text"`
	NextRunAt      *time.Time `gorm:"index:idx_allocation_workflows_due,priority:2"`
}

// TableName returns the table name for GORM
func (WorkflowModel) TableName() string {
	return "allocation_workflows"
}

// ToDomain converts the persistence model to a domain Workflow
func (m *WorkflowModel) ToDomain() allocation.Workflow {
	days := m.ScheduleDays
	if days == nil {
		days = []int{}
	}
	return allocation.Workflow{
		ID: m.ID,
		Definition: allocation.Definition{
			Name:         m.Name,
			Description:  m.Description,
			ScheduleType: allocation.ScheduleType(m.ScheduleType),
			ScheduleTime: m.ScheduleTime,
			ScheduleDays: days,
			Percent:      m.Percent,
			Channel:      channel.Channel(m.Channel),
		},
		IsActive:       m.IsActive,
		LastRunAt:      m.LastRunAt,
		LastRunStatus:  allocation.RunStatus(m.LastRunStatus),
		LastRunMessage: m.LastRunMessage,
		NextRunAt:      m.NextRunAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// WorkflowModelFromDomain creates a persistence model from a domain Workflow
func WorkflowModelFromDomain(w *allocation.Workflow) *WorkflowModel {
	return &WorkflowModel{
		BaseModel:      BaseModel{ID: w.ID, CreatedAt: w.CreatedAt, UpdatedAt: w.UpdatedAt},
		Name:           w.Name,
		Description:    w.Description,
		ScheduleType:   string(w.ScheduleType),
		ScheduleTime:   w.ScheduleTime,
		ScheduleDays:   w.ScheduleDays,
		Percent:        w.Percent,
		Channel:        string(w.Channel),
		IsActive:       w.IsActive,
		LastRunAt:      w.LastRunAt,
		LastRunStatus:  string(w.LastRunStatus),
		LastRunMessage: w.LastRunMessage,
		NextRunAt:      w.NextRunAt,
	}
}

// AllocationLogModel is one workflow run
type AllocationLogModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key"`
	WorkflowID     uuid.UUID `gorm:"type:uuid;not null;index:idx_allocation_logs_workflow,priority:1"`
	Status         string    `gorm:"type:varchar(20);not null"`
	StartedAt      time.Time `gorm:"not null;index:idx_allocation_logs_workflow,priority:2,sort:desc"`
	CompletedAt    *time.Time
	OptionsUpdated int                        `gorm:"not null;default:0"`
	OptionsFailed  int                        `gorm:"not null;default:0"`
	ErrorMessage   string                     `gorm:"type:text"`
	Details        []allocation.OptionOutcome `gorm:"type:text;serializer:json"`
}

// TableName returns the table name for GORM
func (AllocationLogModel) TableName() string {
	return "allocation_logs"
}

// ToDomain converts the persistence model to a domain Log
func (m *AllocationLogModel) ToDomain() allocation.Log {
	return allocation.Log{
		ID:             m.ID,
		WorkflowID:     m.WorkflowID,
		Status:         allocation.RunStatus(m.Status),
		StartedAt:      m.StartedAt,
		CompletedAt:    m.CompletedAt,
		OptionsUpdated: m.OptionsUpdated,
		OptionsFailed:  m.OptionsFailed,
		ErrorMessage:   m.ErrorMessage,
		Details:        m.Details,
	}
}

// AllocationLogModelFromDomain creates a persistence model from a domain Log
func AllocationLogModelFromDomain(l *allocation.Log) *AllocationLogModel {
	return &AllocationLogModel{
		ID:             l.ID,
		WorkflowID:     l.WorkflowID,
		Status:         string(l.Status),
		StartedAt:      l.StartedAt,
		CompletedAt:    l.CompletedAt,
		OptionsUpdated: l.OptionsUpdated,
		OptionsFailed:  l.OptionsFailed,
		ErrorMessage:   l.ErrorMessage,
		Details:        l.Details,
	}
}
