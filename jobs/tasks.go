package jobs

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBalanceWarmup recomputes participant balances into the cache.
	TaskBalanceWarmup = "ledger:balance_warmup"
)

// BalanceWarmupPayload lists the participants to warm. An empty list warms
// every participant.
type BalanceWarmupPayload struct {
	ParticipantIDs []uuid.UUID `json:"participant_ids,omitempty"`
}

// NewBalanceWarmupTask constructs an Asynq task.
func NewBalanceWarmupTask(ids []uuid.UUID) (*asynq.Task, error) {
	data, err := json.Marshal(BalanceWarmupPayload{ParticipantIDs: ids})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBalanceWarmup, data), nil
}
