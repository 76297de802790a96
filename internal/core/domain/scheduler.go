package domain

import "time"

// TaskIDFilingRefresh is the monitor task that re-ingests the watchlist.
const TaskIDFilingRefresh = "filing-refresh"

// ScheduledTask represents a recurring background task.
type ScheduledTask struct {
	// ID is the unique identifier for the task.
	ID string

	// Interval defines how often the task should run.
	Interval time.Duration

	// LastRun is when the task last ran.
	LastRun time.Time

	// NextRun is when the task should run next.
	NextRun time.Time

	// LastError contains the last error message, if any.
	LastError string

	// LastSuccess is when the task last completed without failures.
	LastSuccess time.Time
}

// IsDue reports whether the task should run at now.
func (t *ScheduledTask) IsDue(now time.Time) bool {
	return t.NextRun.IsZero() || !t.NextRun.After(now)
}

// TaskResult represents the outcome of a task execution.
type TaskResult struct {
	// TaskID identifies which task was run.
	TaskID string

	// StartedAt is when the task started.
	StartedAt time.Time

	// EndedAt is when the task completed.
	EndedAt time.Time

	// ItemsProcessed counts refs that were ingested or found unchanged.
	ItemsProcessed int

	// ItemsFailed counts refs that failed.
	ItemsFailed int

	// Error summarises the failures, empty on success.
	Error string
}

// Success returns true if no item failed.
func (r *TaskResult) Success() bool {
	return r.ItemsFailed == 0 && r.Error == ""
}
