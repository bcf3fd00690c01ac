package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskFXRefresh reloads the BCV exchange rate into the shared cache.
	TaskFXRefresh = "fx:refresh"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"

	DefaultIdempotencyRetentionDays = 7
)

// IdempotencyCleanupPayload configures the retention window of a cleanup run.
type IdempotencyCleanupPayload struct {
	RetentionDays int `json:"retention_days"`
}

func NewFXRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskFXRefresh, nil)
}

func NewIdempotencyCleanupTask(retentionDays int) (*asynq.Task, error) {
	if retentionDays <= 0 {
		retentionDays = DefaultIdempotencyRetentionDays
	}
	data, err := json.Marshal(IdempotencyCleanupPayload{RetentionDays: retentionDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}
