package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Task is the unit of work carried between the API process and the
// worker pool. Payload is opaque JSON owned by the handler registered
// under Name. Attempt starts at 0 and is bumped on each redelivery.
type Task struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Payload    json.RawMessage `json:"payload"`
	Attempt    int             `json:"attempt"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// NewTask builds a Task with a fresh id, marshalling payload to JSON.
func NewTask(name string, payload interface{}, attempt int) (*Task, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Task{
		ID:         uuid.NewString(),
		Name:       name,
		Payload:    raw,
		Attempt:    attempt,
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

// TaskQueue enqueues tasks for asynchronous execution. A zero countdown
// makes the task available immediately; a positive countdown delays
// delivery by that duration.
type TaskQueue interface {
	Enqueue(ctx context.Context, task *Task, countdown time.Duration) error
	// Dequeue blocks up to timeout for the next ready task. A nil task
	// with a nil error means the timeout elapsed with nothing ready.
	Dequeue(ctx context.Context, timeout time.Duration) (*Task, error)
	// PromoteDue moves delayed tasks whose countdown has elapsed onto
	// the ready queue and returns how many were promoted.
	PromoteDue(ctx context.Context) (int, error)
}
