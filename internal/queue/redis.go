package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisQueue keeps ready tasks on a list and delayed tasks on a sorted
// set scored by their due time in unix milliseconds.
type RedisQueue struct {
	client     *redis.Client
	readyKey   string
	delayedKey string
}

func NewRedisQueue(client *redis.Client, prefix string) *RedisQueue {
	if prefix == "" {
		prefix = "tasks"
	}
	return &RedisQueue{
		client:     client,
		readyKey:   prefix + ":ready",
		delayedKey: prefix + ":delayed",
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, task *Task, countdown time.Duration) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	if countdown <= 0 {
		if err := q.client.LPush(ctx, q.readyKey, data).Err(); err != nil {
			return fmt.Errorf("push ready task: %w", err)
		}
		return nil
	}

	due := time.Now().Add(countdown)
	member := redis.Z{Score: float64(due.UnixMilli()), Member: data}
	if err := q.client.ZAdd(ctx, q.delayedKey, &member).Err(); err != nil {
		return fmt.Errorf("schedule delayed task: %w", err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Task, error) {
	result, err := q.client.BRPop(ctx, timeout, q.readyKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pop ready task: %w", err)
	}
	// BRPop returns [key, value]
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected brpop reply length %d", len(result))
	}

	var task Task
	if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}
	return &task, nil
}

// promoteScript atomically moves due members from the delayed zset to
// the ready list so two workers promoting at once never duplicate a task.
var promoteScript = redis.NewScript(`
local due = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1], "LIMIT", 0, ARGV[2])
for _, member in ipairs(due) do
    redis.call("ZREM", KEYS[1], member)
    redis.call("LPUSH", KEYS[2], member)
end
return #due
`)

const promoteBatchSize = 100

func (q *RedisQueue) PromoteDue(ctx context.Context) (int, error) {
	now := time.Now().UnixMilli()
	res, err := promoteScript.Run(ctx, q.client,
		[]string{q.delayedKey, q.readyKey},
		now, promoteBatchSize,
	).Int()
	if err != nil {
		return 0, fmt.Errorf("promote delayed tasks: %w", err)
	}
	return res, nil
}
