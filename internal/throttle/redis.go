package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisScheduler keeps last-accepted times in Redis so multiple plugin
// instances share one throttle state. Admission uses a Lua script for an
// atomic check-and-set; a plain read-then-write would let two messages of
// the same type through inside one interval window.
//
// On Redis errors the scheduler fails open: the record is admitted and the
// error is returned for logging. A broken throttle backend must not stall
// ingestion.
type RedisScheduler struct {
	client   *redis.Client
	interval time.Duration
}

// admitScript atomically checks the last-accepted timestamp and records
// the new one. ARGV: now (unix ms), interval (ms), key TTL (ms).
var admitScript = redis.NewScript(`
	local last = redis.call('GET', KEYS[1])
	if last and (tonumber(ARGV[1]) - tonumber(last)) < tonumber(ARGV[2]) then
		return 0
	end
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
	return 1
`)

// NewRedisScheduler connects to Redis and verifies the connection.
func NewRedisScheduler(redisURL string, interval time.Duration) (*RedisScheduler, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisScheduler{
		client:   client,
		interval: interval,
	}, nil
}

// Admit implements Scheduler.
func (s *RedisScheduler) Admit(ctx context.Context, typeTag string, now time.Time, force bool) (bool, error) {
	key := "throttle:" + typeTag
	nowMs := now.UnixMilli()
	ttlMs := (2 * s.interval).Milliseconds()

	if force {
		// Forced admissions skip the check but still record the timestamp.
		if err := s.client.Set(ctx, key, nowMs, 2*s.interval).Err(); err != nil {
			return true, fmt.Errorf("throttle force set failed: %w", err)
		}
		return true, nil
	}

	result, err := admitScript.Run(ctx, s.client, []string{key},
		nowMs, s.interval.Milliseconds(), ttlMs).Int()
	if err != nil {
		// Fail open
		return true, fmt.Errorf("throttle check failed: %w", err)
	}

	return result == 1, nil
}

// Close implements Scheduler.
func (s *RedisScheduler) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
