package job

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"comment-pilot/internal/config"
	"comment-pilot/internal/queue"
	"comment-pilot/internal/repository"
	"comment-pilot/internal/service"
)

// Scheduler runs the periodic pipeline maintenance jobs: a watchdog
// that rescues rows stuck in PROCESSING after a worker died mid-task,
// and a sweeper that redelivers RETRY rows whose queued task was lost.
type Scheduler struct {
	cron               *cron.Cron
	classificationRepo repository.ClassificationRepository
	answerRepo         repository.AnswerRepository
	taskQueue          queue.TaskQueue
	staleAfter         time.Duration
	logger             *zap.Logger
}

// NewScheduler creates a new maintenance Scheduler.
func NewScheduler(
	classificationRepo repository.ClassificationRepository,
	answerRepo repository.AnswerRepository,
	taskQueue queue.TaskQueue,
	staleAfter time.Duration,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		cron:               cron.New(),
		classificationRepo: classificationRepo,
		answerRepo:         answerRepo,
		taskQueue:          taskQueue,
		staleAfter:         staleAfter,
		logger:             logger,
	}
}

// Start registers the cron entries and begins running them.
func (s *Scheduler) Start(cfg config.WorkerConfig) error {
	if _, err := s.cron.AddFunc(cfg.WatchdogCron, func() {
		s.RescueStaleProcessing(context.Background())
	}); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(cfg.SweeperCron, func() {
		s.SweepStuckRetries(context.Background())
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("Maintenance scheduler started",
		zap.String("watchdog", cfg.WatchdogCron),
		zap.String("sweeper", cfg.SweeperCron))
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// RescueStaleProcessing moves rows that have sat in PROCESSING past the
// stale threshold back to RETRY and redelivers their tasks. A row gets
// stuck like this when a worker crashes between claim and completion.
func (s *Scheduler) RescueStaleProcessing(ctx context.Context) {
	cutoff := time.Now().Add(-s.staleAfter)

	classifications, err := s.classificationRepo.FindStaleProcessing(ctx, cutoff)
	if err != nil {
		s.logger.Error("Watchdog failed to list stale classifications", zap.Error(err))
	}
	for _, c := range classifications {
		if err := s.classificationRepo.MarkRetry(ctx, c.CommentID, c.RetryCount, "rescued from stale PROCESSING"); err != nil {
			s.logger.Error("Watchdog failed to rescue classification",
				zap.String("comment_id", c.CommentID),
				zap.Error(err))
			continue
		}
		s.enqueue(ctx, service.TaskClassifyComment, service.CommentTaskPayload{CommentID: c.CommentID}, c.RetryCount)
	}

	answers, err := s.answerRepo.FindStaleProcessing(ctx, cutoff)
	if err != nil {
		s.logger.Error("Watchdog failed to list stale answers", zap.Error(err))
	}
	for _, a := range answers {
		if err := s.answerRepo.MarkRetry(ctx, a.ID, a.RetryCount, "rescued from stale PROCESSING"); err != nil {
			s.logger.Error("Watchdog failed to rescue answer",
				zap.Uint("answer_id", a.ID),
				zap.Error(err))
			continue
		}
		s.enqueue(ctx, service.TaskGenerateAnswer, service.AnswerTaskPayload{AnswerID: a.ID, CommentID: a.CommentID}, a.RetryCount)
	}

	if len(classifications) > 0 || len(answers) > 0 {
		s.logger.Warn("Watchdog rescued stale rows",
			zap.Int("classifications", len(classifications)),
			zap.Int("answers", len(answers)))
	}
}

// SweepStuckRetries redelivers RETRY rows that have not been touched
// since before the stale threshold. Their scheduled redelivery was lost
// (queue flush, process crash between state write and enqueue).
func (s *Scheduler) SweepStuckRetries(ctx context.Context) {
	cutoff := time.Now().Add(-s.staleAfter)

	classifications, err := s.classificationRepo.FindStuckRetry(ctx, cutoff)
	if err != nil {
		s.logger.Error("Sweeper failed to list stuck classifications", zap.Error(err))
	}
	for _, c := range classifications {
		s.enqueue(ctx, service.TaskClassifyComment, service.CommentTaskPayload{CommentID: c.CommentID}, c.RetryCount)
	}

	answers, err := s.answerRepo.FindStuckRetry(ctx, cutoff)
	if err != nil {
		s.logger.Error("Sweeper failed to list stuck answers", zap.Error(err))
	}
	for _, a := range answers {
		s.enqueue(ctx, service.TaskGenerateAnswer, service.AnswerTaskPayload{AnswerID: a.ID, CommentID: a.CommentID}, a.RetryCount)
	}

	if len(classifications) > 0 || len(answers) > 0 {
		s.logger.Info("Sweeper redelivered stuck retries",
			zap.Int("classifications", len(classifications)),
			zap.Int("answers", len(answers)))
	}
}

func (s *Scheduler) enqueue(ctx context.Context, name string, payload interface{}, attempt int) {
	task, err := queue.NewTask(name, payload, attempt)
	if err == nil {
		err = s.taskQueue.Enqueue(ctx, task, 0)
	}
	if err != nil {
		s.logger.Error("Failed to enqueue maintenance redelivery",
			zap.String("task", name),
			zap.Error(err))
	}
}
