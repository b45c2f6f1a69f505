package allocation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OptionStatus is the outcome for one channel option in a run
type OptionStatus string

const (
	OptionUpdated OptionStatus = "updated"
	OptionFailed  OptionStatus = "failed"
	OptionSkipped OptionStatus = "skipped"
)

// OptionOutcome records what a run did to one channel option
type OptionOutcome struct {
	ProductNo string       `json:"productNo"`
	OptionID  string       `json:"optionId"`
	SKU       string       `json:"sku"`
	Previous  int          `json:"previous"`
	Target    int          `json:"target"`
	Status    OptionStatus `json:"status"`
	Message   string       `json:"message,omitempty"`
}

// Log is the audit record of one workflow run
type Log struct {
	ID             uuid.UUID
	WorkflowID     uuid.UUID
	Status         RunStatus
	StartedAt      time.Time
	CompletedAt    *time.Time
	OptionsUpdated int
	OptionsFailed  int
	ErrorMessage   string
	Details        []OptionOutcome
}

// StartLog opens a running log
func StartLog(workflowID uuid.UUID, at time.Time) *Log {
	return &Log{
		ID:         uuid.New(),
		WorkflowID: workflowID,
		Status:     RunRunning,
		StartedAt:  at,
	}
}

// Complete closes the log from the per-option outcomes. The run failed when
// any option failed or err is set.
func (l *Log) Complete(outcomes []OptionOutcome, err error, at time.Time) {
	l.Details = outcomes
	l.OptionsUpdated, l.OptionsFailed = 0, 0
	for _, o := range outcomes {
		switch o.Status {
		case OptionUpdated:
			l.OptionsUpdated++
		case OptionFailed:
			l.OptionsFailed++
		}
	}
	l.Status = RunSuccess
	if err != nil {
		l.Status = RunFailed
		l.ErrorMessage = err.Error()
	} else if l.OptionsFailed > 0 {
		l.Status = RunFailed
		l.ErrorMessage = fmt.Sprintf("%d options failed", l.OptionsFailed)
	}
	l.CompletedAt = &at
}

// Summary is the short message stored on the workflow
func (l *Log) Summary() string {
	if l.Status == RunFailed && l.OptionsUpdated == 0 && l.OptionsFailed == 0 {
		return l.ErrorMessage
	}
	return fmt.Sprintf("%d updated, %d failed", l.OptionsUpdated, l.OptionsFailed)
}
