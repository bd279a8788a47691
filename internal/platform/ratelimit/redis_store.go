package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisStore implements Store using Redis INCR/PEXPIRE and PTTL.
type redisStore struct{ rc redis.UniversalClient }

// NewRedisStore creates a Store backed by an existing Redis client.
func NewRedisStore(rc redis.UniversalClient) Store {
	return &redisStore{rc: rc}
}

var luaFixedWindow = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then redis.call('PEXPIRE', KEYS[1], ARGV[1]) end
local ttl = redis.call('PTTL', KEYS[1])
return {current, ttl}
`)

func (s *redisStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	res, err := luaFixedWindow.Run(ctx, s.rc, []string{"rl:" + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return false, 0, err
	}
	if len(res) != 2 {
		return true, 0, nil
	}
	if res[0] <= int64(limit) {
		return true, 0, nil
	}
	if res[1] <= 0 {
		return false, 0, nil
	}
	return false, time.Duration(res[1]) * time.Millisecond, nil
}
