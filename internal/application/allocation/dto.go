package allocation

import (
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/allocation"
	"github.com/omnisync/backend/internal/domain/channel"
)

// WorkflowRequest is the body of create and update calls
type WorkflowRequest struct {
	Name         string `json:"name" binding:"required,max=100" validate:"required,max=100"`
	Description  string `json:"description" binding:"max=500" validate:"max=500"`
	ScheduleType string `json:"scheduleType" binding:"required,oneof=daily weekly" validate:"required,oneof=daily weekly"`
	ScheduleTime string `json:"scheduleTime" binding:"required,hhmm" validate:"required,hhmm"`
	ScheduleDays []int  `json:"scheduleDays" binding:"omitempty,dive,min=0,max=6" validate:"omitempty,dive,min=0,max=6"`
	Percent      int    `json:"percent" binding:"required,min=1,max=100" validate:"required,min=1,max=100"`
	Channel      string `json:"channel" binding:"required,oneof=cafe24 naver coupang" validate:"required,oneof=cafe24 naver coupang"`
}

// Definition converts the request to the domain definition
func (r WorkflowRequest) Definition() allocation.Definition {
	return allocation.Definition{
		Name:         r.Name,
		Description:  r.Description,
		ScheduleType: allocation.ScheduleType(r.ScheduleType),
		ScheduleTime: r.ScheduleTime,
		ScheduleDays: r.ScheduleDays,
		Percent:      r.Percent,
		Channel:      channel.Channel(r.Channel),
	}
}

// WorkflowResponse is the API view of a workflow
type WorkflowResponse struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	ScheduleType   string     `json:"scheduleType"`
	ScheduleTime   string     `json:"scheduleTime"`
	ScheduleDays   []int      `json:"scheduleDays"`
	Percent        int        `json:"percent"`
	Channel        string     `json:"channel"`
	IsActive       bool       `json:"isActive"`
	LastRunAt      *time.Time `json:"lastRunAt,omitempty"`
	LastRunStatus  string     `json:"lastRunStatus,omitempty"`
	LastRunMessage string     `json:"lastRunMessage,omitempty"`
	NextRunAt      *time.Time `json:"nextRunAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// ToWorkflowResponse converts a workflow
func ToWorkflowResponse(w *allocation.Workflow) WorkflowResponse {
	days := w.ScheduleDays
	if days == nil {
		days = []int{}
	}
	return WorkflowResponse{
		ID:             w.ID,
		Name:           w.Name,
		Description:    w.Description,
		ScheduleType:   string(w.ScheduleType),
		ScheduleTime:   w.ScheduleTime,
		ScheduleDays:   days,
		Percent:        w.Percent,
		Channel:        w.Channel.String(),
		IsActive:       w.IsActive,
		LastRunAt:      w.LastRunAt,
		LastRunStatus:  string(w.LastRunStatus),
		LastRunMessage: w.LastRunMessage,
		NextRunAt:      w.NextRunAt,
		CreatedAt:      w.CreatedAt,
		UpdatedAt:      w.UpdatedAt,
	}
}

// LogResponse is the API view of a run log
type LogResponse struct {
	ID             uuid.UUID                  `json:"id"`
	WorkflowID     uuid.UUID                  `json:"workflowId"`
	Status         string                     `json:"status"`
	StartedAt      time.Time                  `json:"startedAt"`
	CompletedAt    *time.Time                 `json:"completedAt,omitempty"`
	OptionsUpdated int                        `json:"optionsUpdated"`
	OptionsFailed  int                        `json:"optionsFailed"`
	ErrorMessage   string                     `json:"errorMessage,omitempty"`
	Details        []allocation.OptionOutcome `json:"details"`
}

// ToLogResponse converts a log
func ToLogResponse(l *allocation.Log) LogResponse {
	details := l.Details
	if details == nil {
		details = []allocation.OptionOutcome{}
	}
	return LogResponse{
		ID:             l.ID,
		WorkflowID:     l.WorkflowID,
		Status:         string(l.Status),
		StartedAt:      l.StartedAt,
		CompletedAt:    l.CompletedAt,
		OptionsUpdated: l.OptionsUpdated,
		OptionsFailed:  l.OptionsFailed,
		ErrorMessage:   l.ErrorMessage,
		Details:        details,
	}
}
