package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBaselineWarmup recomputes the full-history ledger so the cache
	// is hot before the dashboard opens.
	TaskBaselineWarmup = "cashflow:baseline_warmup"
)

// BaselineWarmupPayload parameterises a warmup run.
type BaselineWarmupPayload struct {
	// MonthsBack widens the warmed window that many months before the
	// current one. Zero means the default of six.
	MonthsBack int `json:"months_back"`
}

// NewBaselineWarmupTask constructs an Asynq task.
func NewBaselineWarmupTask(payload BaselineWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBaselineWarmup, data), nil
}
