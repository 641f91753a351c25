package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"comment-pilot/internal/queue"
	"comment-pilot/internal/service"
)

// RegisterPipeline binds every pipeline task to its service method.
func RegisterPipeline(
	pool *Pool,
	classification service.ClassificationService,
	answer service.AnswerService,
	reply service.ReplyService,
	media service.MediaService,
	moderation service.ModerationService,
) {
	pool.Register(service.TaskClassifyComment, func(ctx context.Context, task *queue.Task) (*service.Result, error) {
		var payload service.CommentTaskPayload
		if err := decodePayload(task, &payload); err != nil {
			return nil, err
		}
		return classification.ProcessClassification(ctx, payload.CommentID, task.Attempt)
	})

	pool.Register(service.TaskGenerateAnswer, func(ctx context.Context, task *queue.Task) (*service.Result, error) {
		var payload service.AnswerTaskPayload
		if err := decodePayload(task, &payload); err != nil {
			return nil, err
		}
		return answer.ProcessAnswer(ctx, payload.AnswerID, task.Attempt)
	})

	pool.Register(service.TaskSendReply, func(ctx context.Context, task *queue.Task) (*service.Result, error) {
		var payload service.AnswerTaskPayload
		if err := decodePayload(task, &payload); err != nil {
			return nil, err
		}
		return reply.DispatchReply(ctx, payload.AnswerID, task.Attempt)
	})

	pool.Register(service.TaskAnalyzeMedia, func(ctx context.Context, task *queue.Task) (*service.Result, error) {
		var payload service.MediaTaskPayload
		if err := decodePayload(task, &payload); err != nil {
			return nil, err
		}
		return media.ProcessAnalysis(ctx, payload.MediaID, task.Attempt)
	})

	pool.Register(service.TaskDeleteComment, func(ctx context.Context, task *queue.Task) (*service.Result, error) {
		var payload service.CommentTaskPayload
		if err := decodePayload(task, &payload); err != nil {
			return nil, err
		}
		return moderation.ProcessDelete(ctx, payload.CommentID, task.Attempt)
	})
}

func decodePayload(task *queue.Task, into interface{}) error {
	if err := json.Unmarshal(task.Payload, into); err != nil {
		return fmt.Errorf("decode %s payload: %w", task.Name, err)
	}
	return nil
}
