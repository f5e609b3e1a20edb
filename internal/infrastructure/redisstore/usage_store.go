// Package redisstore backs the usage ledger with redis for deployments where
// the quota must be shared across replicas.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scoutlabs/mailscout/internal/usage"
)

// consumeScript increments the per-key counter, starting a fresh rolling
// period on first touch, and rolls the increment back when it would exceed
// the limit. Running as a Lua script makes check-and-increment atomic across
// all clients.
var consumeScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
local limit = tonumber(ARGV[1])
if limit > 0 and count > limit then
	redis.call('DECR', KEYS[1])
	return {0, count - 1, redis.call('PTTL', KEYS[1])}
end
return {1, count, redis.call('PTTL', KEYS[1])}
`)

type UsageStore struct {
	rdb    *redis.Client
	prefix string
}

func NewUsageStore(rdb *redis.Client) *UsageStore {
	return &UsageStore{rdb: rdb, prefix: "mailscout:usage:"}
}

func (s *UsageStore) Consume(ctx context.Context, keyID string, limit int, period time.Duration) (usage.Decision, error) {
	res, err := consumeScript.Run(ctx, s.rdb,
		[]string{s.prefix + keyID},
		limit, period.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return usage.Decision{}, fmt.Errorf("redis consume: %w", err)
	}
	if len(res) != 3 {
		return usage.Decision{}, fmt.Errorf("redis consume: unexpected reply %v", res)
	}

	return decision(res[0] == 1, limit, int(res[1]), res[2], period), nil
}

func (s *UsageStore) Inspect(ctx context.Context, keyID string, limit int, period time.Duration) (usage.Decision, error) {
	pipe := s.rdb.Pipeline()
	getCmd := pipe.Get(ctx, s.prefix+keyID)
	ttlCmd := pipe.PTTL(ctx, s.prefix+keyID)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return usage.Decision{}, fmt.Errorf("redis inspect: %w", err)
	}

	used, err := getCmd.Int()
	if err == redis.Nil {
		return decision(true, limit, 0, period.Milliseconds(), period), nil
	}
	if err != nil {
		return usage.Decision{}, fmt.Errorf("redis inspect: %w", err)
	}

	ttl := ttlCmd.Val().Milliseconds()
	return decision(limit <= 0 || used < limit, limit, used, ttl, period), nil
}

func decision(allowed bool, limit, used int, resetMillis int64, period time.Duration) usage.Decision {
	resetIn := time.Duration(resetMillis) * time.Millisecond
	if resetMillis < 0 {
		resetIn = period
	}

	d := usage.Decision{
		Allowed:   allowed,
		Limit:     limit,
		Used:      used,
		Remaining: -1,
		ResetIn:   resetIn,
	}
	if limit > 0 {
		d.Remaining = max(limit-used, 0)
	}
	return d
}
