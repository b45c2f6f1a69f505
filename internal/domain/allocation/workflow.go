// Package allocation models scheduled stock allocation workflows: a share of
// warehouse stock is periodically pushed to one channel's options.
package allocation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/omnisync/backend/internal/domain/shared"
)

// ScheduleType is how often a workflow runs
type ScheduleType string

const (
	ScheduleDaily  ScheduleType = "daily"
	ScheduleWeekly ScheduleType = "weekly"
)

// IsValid returns true if the schedule type is known
func (t ScheduleType) IsValid() bool {
	return t == ScheduleDaily || t == ScheduleWeekly
}

// RunStatus is the outcome of a workflow run
type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
)

var (
	ErrInvalidWorkflow = shared.NewDomainError("INVALID_WORKFLOW", "invalid allocation workflow")
	ErrWorkflowRunning = shared.NewDomainError("WORKFLOW_RUNNING", "workflow is already running")
)

// Definition is the user-editable part of a workflow
type Definition struct {
	Name         string
	Description  string
	ScheduleType ScheduleType
	ScheduleTime string // HH:MM in KST
	ScheduleDays []int  // 0 = Sunday; weekly only
	Percent      int
	Channel      channel.Channel
}

// Validate checks a definition before it is stored
func (d Definition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ErrInvalidWorkflow.WithMessage("workflow name is required")
	}
	if !d.ScheduleType.IsValid() {
		return ErrInvalidWorkflow.WithMessage(fmt.Sprintf("invalid schedule type %q", d.ScheduleType))
	}
	if _, _, ok := ParseClock(d.ScheduleTime); !ok {
		return ErrInvalidWorkflow.WithMessage(fmt.Sprintf("invalid schedule time %q, expected HH:MM", d.ScheduleTime))
	}
	if d.ScheduleType == ScheduleWeekly {
		if len(d.ScheduleDays) == 0 {
			return ErrInvalidWorkflow.WithMessage("weekly workflow needs at least one day")
		}
		for _, day := range d.ScheduleDays {
			if day < 0 || day > 6 {
				return ErrInvalidWorkflow.WithMessage(fmt.Sprintf("invalid schedule day %d", day))
			}
		}
	}
	if d.Percent < 1 || d.Percent > 100 {
		return ErrInvalidWorkflow.WithMessage("allocation percent must be between 1 and 100")
	}
	if !d.Channel.IsValid() {
		return ErrInvalidWorkflow.WithMessage(fmt.Sprintf("invalid target channel %q", d.Channel))
	}
	return nil
}

// Workflow is a scheduled allocation of warehouse stock to a channel
type Workflow struct {
	ID uuid.UUID
	Definition
	IsActive       bool
	LastRunAt      *time.Time
	LastRunStatus  RunStatus
	LastRunMessage string
	NextRunAt      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewWorkflow creates an active workflow scheduled from now
func NewWorkflow(def Definition, now time.Time) (*Workflow, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	w := &Workflow{
		ID:         uuid.New(),
		Definition: def,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	w.schedule(now)
	return w, nil
}

// Update replaces the definition and reschedules
func (w *Workflow) Update(def Definition, now time.Time) error {
	if err := def.Validate(); err != nil {
		return err
	}
	w.Definition = def
	w.UpdatedAt = now
	w.schedule(now)
	return nil
}

// SetActive toggles the workflow. Activation recomputes the next run.
func (w *Workflow) SetActive(active bool, now time.Time) {
	w.IsActive = active
	w.UpdatedAt = now
	if active {
		w.schedule(now)
	}
}

// IsDue reports whether an active workflow should run at now
func (w *Workflow) IsDue(now time.Time) bool {
	return w.IsActive && w.NextRunAt != nil && !now.Before(*w.NextRunAt)
}

// RecordRun stores a finished run and schedules the next one whatever the
// outcome. The next run is strictly after at, so a run finishing within its
// own scheduled minute is not picked up again.
func (w *Workflow) RecordRun(status RunStatus, message string, at time.Time) {
	w.LastRunAt = &at
	w.LastRunStatus = status
	w.LastRunMessage = message
	w.UpdatedAt = at
	next := NextRunAt(w.ScheduleType, w.ScheduleTime, w.ScheduleDays, at)
	if !next.After(at) {
		next = NextRunAt(w.ScheduleType, w.ScheduleTime, w.ScheduleDays, at.Add(time.Minute))
	}
	w.NextRunAt = &next
}

func (w *Workflow) schedule(now time.Time) {
	next := NextRunAt(w.ScheduleType, w.ScheduleTime, w.ScheduleDays, now)
	w.NextRunAt = &next
}

// ---------------------------------------------------------------------------
// Scheduling
// ---------------------------------------------------------------------------

// ParseClock parses "HH:MM"
func ParseClock(s string) (hour, minute int, ok bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

// NextRunAt computes the next run in KST. Daily runs today at HH:MM unless
// that moment has passed. Weekly runs on the first listed weekday, today
// included while the time is still ahead. Anything else runs tomorrow.
// An unparseable clock is treated as midnight.
func NextRunAt(st ScheduleType, clock string, days []int, now time.Time) time.Time {
	h, m, _ := ParseClock(clock)
	local := now.In(shared.KST)
	today := time.Date(local.Year(), local.Month(), local.Day(), h, m, 0, 0, shared.KST)

	switch {
	case st == ScheduleDaily:
		if local.After(today) {
			return today.AddDate(0, 0, 1)
		}
		return today
	case st == ScheduleWeekly && len(days) > 0:
		listed := make(map[int]bool, len(days))
		for _, d := range days {
			listed[d] = true
		}
		current := int(local.Weekday())
		if listed[current] && !local.After(today) {
			return today
		}
		for i := 1; i <= 7; i++ {
			if listed[(current+i)%7] {
				return today.AddDate(0, 0, i)
			}
		}
	}
	return today.AddDate(0, 0, 1)
}

// TargetStock is the share of warehouse stock a channel may sell
func TargetStock(stock, percent int) int {
	if stock <= 0 || percent <= 0 {
		return 0
	}
	return stock * percent / 100
}
