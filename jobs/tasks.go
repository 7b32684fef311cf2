package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditPrune trims audit log entries past the retention horizon.
	TaskAuditPrune = "audit:prune"
	// TaskViewsSweep removes saved views whose owner no longer exists.
	TaskViewsSweep = "views:sweep"
)

// AuditPrunePayload carries the retention horizon for audit pruning.
type AuditPrunePayload struct {
	Retention time.Duration `json:"retention"`
}

// NewAuditPruneTask constructs an audit prune task.
func NewAuditPruneTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(AuditPrunePayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditPrune, data), nil
}

// NewViewsSweepTask constructs an orphaned-views sweep task.
func NewViewsSweepTask() (*asynq.Task, error) {
	return asynq.NewTask(TaskViewsSweep, nil), nil
}
