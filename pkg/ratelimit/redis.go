package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// takeScript trims the window, counts it, and conditionally records the
// new attempt in one atomic unit, so concurrent callers on any instance
// cannot both observe count < limit and both get admitted. Scores are
// unix milliseconds; the reply is {allowed, count, oldest score or 0}.
var takeScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]
local ttl = tonumber(ARGV[5])

redis.call("ZREMRANGEBYSCORE", key, "-inf", now - window)
local count = redis.call("ZCARD", key)
local allowed = 0
if count < limit then
	redis.call("ZADD", key, now, member)
	redis.call("PEXPIRE", key, ttl)
	allowed = 1
	count = count + 1
end

local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
local oldestScore = 0
if oldest[2] then
	oldestScore = tonumber(oldest[2])
end

return {allowed, count, oldestScore}
`)

// RedisStore keeps every admission timestamp in a sorted set per
// (identity, policy), so all instances sharing the Redis see one window.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "ratelimit"
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisStore) Take(ctx context.Context, identity string, policy Policy, now time.Time) (Result, error) {
	key := fmt.Sprintf("%s:%s:%s", s.keyPrefix, policy.Name, identity)

	reply, err := takeScript.Run(ctx, s.client, []string{key},
		now.UnixMilli(),
		policy.Window.Milliseconds(),
		policy.Limit,
		windowMember(now),
		(policy.Window + time.Minute).Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("redis window take: %w", err)
	}
	if len(reply) != 3 {
		return Result{}, fmt.Errorf("redis window take: unexpected reply length %d", len(reply))
	}

	return windowResult(policy, now, reply[0] == 1, reply[1], reply[2]), nil
}

// windowMember builds a set member that stays unique even when two
// admissions land on the same nanosecond; a duplicate member would turn
// the ZADD into an update and undercount the window.
func windowMember(now time.Time) string {
	return strconv.FormatInt(now.UnixNano(), 10) + ":" + uuid.NewString()
}

// windowResult maps the script reply onto a Result. count already
// includes the caller's own admission when allowed is true.
func windowResult(policy Policy, now time.Time, allowed bool, count, oldestMs int64) Result {
	result := Result{
		Policy:  policy.Name,
		Limit:   policy.Limit,
		Allowed: allowed,
		ResetAt: now.Add(policy.Window),
	}
	if oldestMs > 0 {
		result.ResetAt = time.UnixMilli(oldestMs).Add(policy.Window)
	}

	if !allowed {
		result.Remaining = 0
		result.RetryAfter = result.ResetAt.Sub(now)
		if result.RetryAfter <= 0 {
			result.RetryAfter = time.Second
		}
		return result
	}

	result.Remaining = policy.Limit - int(count)
	if result.Remaining < 0 {
		result.Remaining = 0
	}
	return result
}

// Stop is a no-op; the Redis client lifecycle belongs to the caller.
func (s *RedisStore) Stop() {}
