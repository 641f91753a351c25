package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// RateLimiter grants slots in a sliding window shared by all workers.
// Denial is never an error: callers treat the returned delay as a minimum
// backoff before redelivery.
type RateLimiter interface {
	Acquire(ctx context.Context) (allowed bool, delay time.Duration, err error)
}

// Sliding-window acquisition as a single server-side script: evict entries
// older than the window, grant if below the limit, otherwise report the
// delay until the oldest entry leaves the window.
const acquireScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, now)
    redis.call('PEXPIRE', key, window)
    return {1, 0}
else
    local earliest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
    if earliest == nil or #earliest == 0 then
        return {0, window}
    end
    local delay = (tonumber(earliest[2]) + window) - now
    if delay < 0 then
        delay = 0
    end
    return {0, delay}
end
`

// SlidingWindowLimiter is the Redis implementation of RateLimiter
type SlidingWindowLimiter struct {
	client *redis.Client
	key    string
	limit  int
	window time.Duration
}

// NewSlidingWindowLimiter creates a Redis-backed sliding-window limiter
func NewSlidingWindowLimiter(client *redis.Client, key string, limit int, window time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		client: client,
		key:    key,
		limit:  limit,
		window: window,
	}
}

// Acquire attempts to take a slot in the current window
func (l *SlidingWindowLimiter) Acquire(ctx context.Context) (bool, time.Duration, error) {
	nowMs := time.Now().UnixMilli()
	windowMs := l.window.Milliseconds()

	result, err := l.client.Eval(ctx, acquireScript, []string{l.key}, nowMs, windowMs, l.limit).Result()
	if err != nil {
		// Some managed services and test doubles reject Lua scripting;
		// fall back to an optimistic WATCH transaction.
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "unknown command") || strings.Contains(msg, "noscript") {
			return l.acquireWithWatch(ctx, nowMs, windowMs)
		}
		return false, 0, fmt.Errorf("rate limiter eval: %w", err)
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 2 {
		return false, 0, fmt.Errorf("rate limiter eval: unexpected reply %v", result)
	}
	allowed, _ := values[0].(int64)
	delayMs, _ := values[1].(int64)

	return allowed == 1, time.Duration(delayMs) * time.Millisecond, nil
}

// acquireWithWatch is the compare-and-swap fallback when scripting is
// unavailable. The WATCH aborts the transaction if another worker touched
// the window between read and write, in which case we retry.
func (l *SlidingWindowLimiter) acquireWithWatch(ctx context.Context, nowMs, windowMs int64) (bool, time.Duration, error) {
	var allowed bool
	var delay time.Duration

	for {
		err := l.client.Watch(ctx, func(tx *redis.Tx) error {
			if err := tx.ZRemRangeByScore(ctx, l.key, "0", fmt.Sprintf("%d", nowMs-windowMs)).Err(); err != nil {
				return err
			}
			count, err := tx.ZCard(ctx, l.key).Result()
			if err != nil {
				return err
			}

			if count < int64(l.limit) {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.ZAdd(ctx, l.key, &redis.Z{Score: float64(nowMs), Member: nowMs})
					pipe.PExpire(ctx, l.key, time.Duration(windowMs)*time.Millisecond)
					return nil
				})
				if err != nil {
					return err
				}
				allowed = true
				delay = 0
				return nil
			}

			earliest, err := tx.ZRangeWithScores(ctx, l.key, 0, 0).Result()
			if err != nil {
				return err
			}
			allowed = false
			if len(earliest) == 0 {
				delay = time.Duration(windowMs) * time.Millisecond
				return nil
			}
			delayMs := int64(earliest[0].Score) + windowMs - nowMs
			if delayMs < 0 {
				delayMs = 0
			}
			delay = time.Duration(delayMs) * time.Millisecond
			return nil
		}, l.key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return false, 0, fmt.Errorf("rate limiter watch: %w", err)
		}
		return allowed, delay, nil
	}
}
