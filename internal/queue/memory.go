package queue

import (
	"context"
	"sync"
	"time"
)

type delayedTask struct {
	task *Task
	due  time.Time
}

// MemoryQueue is an in-process TaskQueue for tests.
type MemoryQueue struct {
	mu      sync.Mutex
	ready   []*Task
	delayed []delayedTask
	now     func() time.Time
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{now: time.Now}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, task *Task, countdown time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if countdown <= 0 {
		q.ready = append(q.ready, task)
		return nil
	}
	q.delayed = append(q.delayed, delayedTask{task: task, due: q.now().Add(countdown)})
	return nil
}

func (q *MemoryQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.ready) == 0 {
		return nil, nil
	}
	task := q.ready[0]
	q.ready = q.ready[1:]
	return task, nil
}

func (q *MemoryQueue) PromoteDue(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	promoted := 0
	remaining := q.delayed[:0]
	for _, d := range q.delayed {
		if !d.due.After(now) {
			q.ready = append(q.ready, d.task)
			promoted++
		} else {
			remaining = append(remaining, d)
		}
	}
	q.delayed = remaining
	return promoted, nil
}

// SetClock overrides the queue's clock for tests.
func (q *MemoryQueue) SetClock(now func() time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.now = now
}

// Pending reports queued counts for test assertions.
func (q *MemoryQueue) Pending() (ready, delayed int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ready), len(q.delayed)
}
