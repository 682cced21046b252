package scheduler

import "time"

// RunState is the lifecycle state of one configured recurring or one-shot
// download run.
type RunState string

const (
	RunStateScheduled RunState = "scheduled"
	RunStateMissed    RunState = "missed"
	RunStateRunning   RunState = "running"
	RunStateDone      RunState = "done"
)

// RunConfig is one configured orchestrator run: a name, the time it should
// next fire, and (for recurring runs) the cron expression governing
// subsequent firings. This is the scheduler's unit of work, in place of the
// teacher's download-queue Item.
type RunConfig struct {
	Name        string
	State       RunState
	ScheduledAt time.Time
	CronExpr    string
}

// ScheduleEvent represents a pending scheduled run in the scheduler heap.
// It is an in-memory only type. LoadSchedules builds ScheduleEvents from
// RunConfig fields; cmd/seismicd does not call it on daemon start.
type ScheduleEvent struct {
	// RunName is the unique identifier of the RunConfig to trigger when
	// TriggerAt is reached.
	RunName string
	// TriggerAt is the wall-clock time when this run should be enqueued.
	TriggerAt time.Time
	// CronExpr is the cron expression for recurring runs.
	// Empty string means one-shot — no re-scheduling after firing.
	CronExpr string
}
