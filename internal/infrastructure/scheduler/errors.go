package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when trying to submit a job to a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrJobQueueFull is returned when the job queue is full
	ErrJobQueueFull = errors.New("job queue is full")

	// ErrJobAlreadyScheduled is returned when the workflow is already queued or running
	ErrJobAlreadyScheduled = errors.New("workflow already queued or running")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrOrderSyncAlreadyInProgress is returned when a sync is already running
	ErrOrderSyncAlreadyInProgress = errors.New("order sync already in progress")
)
