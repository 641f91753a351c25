package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"comment-pilot/internal/metrics"
	"comment-pilot/internal/queue"
	"comment-pilot/internal/retry"
	"comment-pilot/internal/service"
)

// HandlerFunc executes one task delivery. Business outcomes come back
// as a Result; an error means infrastructure trouble and the delivery
// is rescheduled like a retry outcome.
type HandlerFunc func(ctx context.Context, task *queue.Task) (*service.Result, error)

const dequeueTimeout = 5 * time.Second

// Pool consumes the task queue with a fixed number of goroutines and
// reschedules retry outcomes as fresh deliveries with a bumped attempt
// counter.
type Pool struct {
	queue           queue.TaskQueue
	handlers        map[string]HandlerFunc
	concurrency     int
	promoteInterval time.Duration
	metrics         *metrics.Metrics
	logger          *zap.Logger
}

// NewPool creates a new worker pool. Handlers are registered with
// Register before Run is called.
func NewPool(q queue.TaskQueue, concurrency int, m *metrics.Metrics, logger *zap.Logger) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pool{
		queue:           q,
		handlers:        make(map[string]HandlerFunc),
		concurrency:     concurrency,
		promoteInterval: time.Second,
		metrics:         m,
		logger:          logger,
	}
}

// Register binds a task name to its handler. Not safe to call after Run.
func (p *Pool) Register(name string, handler HandlerFunc) {
	p.handlers[name] = handler
}

// Run blocks until ctx is cancelled and every worker goroutine has
// drained its current task.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.promoteLoop(ctx)
	}()

	for i := 0; i < p.concurrency; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			p.consumeLoop(ctx, worker)
		}(i)
	}

	wg.Wait()
	p.logger.Info("Worker pool stopped")
}

// promoteLoop moves due delayed tasks onto the ready list.
func (p *Pool) promoteLoop(ctx context.Context) {
	ticker := time.NewTicker(p.promoteInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.queue.PromoteDue(ctx); err != nil && ctx.Err() == nil {
				p.logger.Error("Failed to promote delayed tasks", zap.Error(err))
			}
		}
	}
}

func (p *Pool) consumeLoop(ctx context.Context, worker int) {
	for {
		if ctx.Err() != nil {
			return
		}
		task, err := p.queue.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error("Failed to dequeue task",
				zap.Int("worker", worker),
				zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if task == nil {
			continue
		}
		p.execute(ctx, task)
	}
}

// execute runs one delivery and turns its outcome into queue actions.
func (p *Pool) execute(ctx context.Context, task *queue.Task) {
	handler, ok := p.handlers[task.Name]
	if !ok {
		p.logger.Error("No handler registered for task",
			zap.String("task", task.Name),
			zap.String("task_id", task.ID))
		return
	}

	start := time.Now()
	result, err := handler(ctx, task)
	if err != nil {
		p.metrics.RecordTaskDuration(task.Name, "error", time.Since(start))
		p.logger.Error("Task handler failed",
			zap.String("task", task.Name),
			zap.String("task_id", task.ID),
			zap.Int("attempt", task.Attempt),
			zap.Error(err))
		p.reschedule(ctx, task, 0)
		return
	}

	p.metrics.RecordTaskDuration(task.Name, string(result.Outcome), time.Since(start))

	switch result.Outcome {
	case service.OutcomeRetry:
		p.reschedule(ctx, task, result.RetryAfter)
	case service.OutcomeFailed:
		p.logger.Warn("Task ended in terminal failure",
			zap.String("task", task.Name),
			zap.String("task_id", task.ID),
			zap.String("reason", result.Reason))
	case service.OutcomeSkipped:
		p.logger.Debug("Task skipped",
			zap.String("task", task.Name),
			zap.String("task_id", task.ID),
			zap.String("reason", result.Reason))
	}
}

// reschedule enqueues the next delivery of task. The backoff schedule
// sets the floor; a longer explicit delay (a platform Retry-After hint)
// wins over it.
func (p *Pool) reschedule(ctx context.Context, task *queue.Task, after time.Duration) {
	nextAttempt := task.Attempt + 1
	if nextAttempt > retry.MaxRetries {
		p.logger.Error("Dropping task past its retry budget",
			zap.String("task", task.Name),
			zap.String("task_id", task.ID),
			zap.Int("attempt", task.Attempt))
		return
	}

	countdown := retry.Delay(task.Attempt)
	if after > countdown {
		countdown = after
	}

	next := &queue.Task{
		ID:         task.ID,
		Name:       task.Name,
		Payload:    json.RawMessage(task.Payload),
		Attempt:    nextAttempt,
		EnqueuedAt: time.Now().UTC(),
	}
	if err := p.queue.Enqueue(ctx, next, countdown); err != nil {
		p.logger.Error("Failed to reschedule task",
			zap.String("task", task.Name),
			zap.String("task_id", task.ID),
			zap.Error(err))
		return
	}
	p.logger.Info("Task rescheduled",
		zap.String("task", task.Name),
		zap.String("task_id", task.ID),
		zap.Int("next_attempt", nextAttempt),
		zap.Duration("countdown", countdown))
}
