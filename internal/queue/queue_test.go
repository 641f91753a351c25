package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type replyPayload struct {
	CommentID string `json:"comment_id"`
}

func TestNewTask(t *testing.T) {
	task, err := NewTask("send_reply", replyPayload{CommentID: "c1"}, 2)
	require.NoError(t, err)

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "send_reply", task.Name)
	assert.Equal(t, 2, task.Attempt)
	assert.JSONEq(t, `{"comment_id":"c1"}`, string(task.Payload))
	assert.False(t, task.EnqueuedAt.IsZero())
}

func TestMemoryQueue_FIFO(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	first, err := NewTask("classify_comment", replyPayload{CommentID: "a"}, 0)
	require.NoError(t, err)
	second, err := NewTask("classify_comment", replyPayload{CommentID: "b"}, 0)
	require.NoError(t, err)

	require.NoError(t, q.Enqueue(ctx, first, 0))
	require.NoError(t, q.Enqueue(ctx, second, 0))

	got, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.ID, got.ID)

	got, err = q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, second.ID, got.ID)
}

func TestMemoryQueue_EmptyDequeue(t *testing.T) {
	q := NewMemoryQueue()

	got, err := q.Dequeue(context.Background(), time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryQueue_CountdownDelaysDelivery(t *testing.T) {
	q := NewMemoryQueue()
	current := time.Now()
	q.now = func() time.Time { return current }
	ctx := context.Background()

	task, err := NewTask("send_reply", replyPayload{CommentID: "c1"}, 1)
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(ctx, task, 15*time.Second))

	// Not ready yet
	got, err := q.Dequeue(ctx, time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, got)

	promoted, err := q.PromoteDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, promoted)

	current = current.Add(16 * time.Second)

	promoted, err = q.PromoteDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, promoted)

	got, err = q.Dequeue(ctx, time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, 1, got.Attempt)
}

func TestMemoryQueue_PromotePreservesLaterTasks(t *testing.T) {
	q := NewMemoryQueue()
	current := time.Now()
	q.now = func() time.Time { return current }
	ctx := context.Background()

	soon, err := NewTask("send_reply", replyPayload{CommentID: "soon"}, 0)
	require.NoError(t, err)
	later, err := NewTask("send_reply", replyPayload{CommentID: "later"}, 0)
	require.NoError(t, err)

	require.NoError(t, q.Enqueue(ctx, soon, 10*time.Second))
	require.NoError(t, q.Enqueue(ctx, later, time.Hour))

	current = current.Add(time.Minute)

	promoted, err := q.PromoteDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, promoted)

	ready, delayed := q.Pending()
	assert.Equal(t, 1, ready)
	assert.Equal(t, 1, delayed)
}
