package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task types
const (
	TaskTypeRetrainFeedback = "retrain:feedback"
)

// Retrain triggers
const (
	TriggerSchedule = "schedule"
	TriggerAPI      = "api"
)

// RetrainFeedbackPayload is the payload of a retrain:feedback task
type RetrainFeedbackPayload struct {
	Trigger     string    `json:"trigger"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewRetrainFeedbackTask builds a retrain:feedback task
func NewRetrainFeedbackTask(trigger string) (*asynq.Task, error) {
	payload, err := json.Marshal(RetrainFeedbackPayload{
		Trigger:     trigger,
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode retrain payload: %w", err)
	}
	return asynq.NewTask(TaskTypeRetrainFeedback, payload), nil
}

// ParseRetrainFeedbackPayload decodes a retrain:feedback payload. An empty
// payload is accepted.
func ParseRetrainFeedbackPayload(task *asynq.Task) (RetrainFeedbackPayload, error) {
	var payload RetrainFeedbackPayload
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("invalid %s payload: %w", TaskTypeRetrainFeedback, err)
	}
	return payload, nil
}

// RetrainTaskOptions are the enqueue options for retraining. Failed runs are
// not retried; the next scheduled run takes over.
func RetrainTaskOptions() []asynq.Option {
	return []asynq.Option{
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(0),
		asynq.Timeout(30 * time.Minute),
	}
}
