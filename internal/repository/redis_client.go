package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "homebot:"

// casScript writes data and bumps the version only if the stored version
// still equals ARGV[1]. A missing hash counts as version 0.
const casScript = `
local v = redis.call('HGET', KEYS[1], 'version')
if (v or '0') ~= ARGV[1] then
  return 0
end
redis.call('HSET', KEYS[1], 'data', ARGV[2], 'version', ARGV[3])
if tonumber(ARGV[4]) > 0 then
  redis.call('EXPIRE', KEYS[1], ARGV[4])
end
return 1
`

// redisAPI is the subset of redis.Cmdable used by RedisClient.
type redisAPI interface {
	HMGet(ctx context.Context, key string, fields ...string) *redis.SliceCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisClient stores state records as Redis hashes with a data and a version field.
type RedisClient struct {
	api redisAPI
	ttl time.Duration
}

// NewRedisClient creates a RedisClient. A zero ttl keeps records forever.
func NewRedisClient(api redisAPI, ttl time.Duration) (*RedisClient, error) {
	if api == nil {
		return nil, errors.New("repository: redis client must not be nil")
	}
	if ttl < 0 {
		return nil, errors.New("repository: redis ttl must not be negative")
	}
	return &RedisClient{api: api, ttl: ttl}, nil
}

func redisKey(scope Scope, key string) string {
	return redisKeyPrefix + string(scope) + ":" + key
}

func (c *RedisClient) Get(ctx context.Context, scope Scope, key string) (Item, error) {
	if !validScope(scope) {
		return Item{}, fmt.Errorf("repository: Get: unknown scope %q", scope)
	}
	vals, err := c.api.HMGet(ctx, redisKey(scope, key), "data", "version").Result()
	if err != nil {
		return Item{}, fmt.Errorf("repository: Get hmget: %w", err)
	}
	if len(vals) != 2 || vals[0] == nil {
		return Item{}, nil
	}

	data, ok := vals[0].(string)
	if !ok {
		return Item{}, fmt.Errorf("repository: Get: data field has type %T", vals[0])
	}
	rawVersion, _ := vals[1].(string)
	version, err := strconv.ParseInt(rawVersion, 10, 64)
	if err != nil {
		return Item{}, fmt.Errorf("repository: Get decode version: %w", err)
	}
	return Item{Data: []byte(data), Version: version}, nil
}

func (c *RedisClient) Put(ctx context.Context, scope Scope, key string, data []byte, expectedVersion int64) (int64, error) {
	if !validScope(scope) {
		return 0, fmt.Errorf("repository: Put: unknown scope %q", scope)
	}
	next := expectedVersion + 1
	k := redisKey(scope, key)

	ok, err := c.api.Eval(ctx, casScript, []string{k},
		strconv.FormatInt(expectedVersion, 10),
		string(data),
		strconv.FormatInt(next, 10),
		int64(c.ttl/time.Second),
	).Int()
	if err != nil {
		return 0, fmt.Errorf("repository: Put eval: %w", err)
	}
	if ok != 1 {
		return 0, fmt.Errorf("repository: Put %s: %w", k, ErrVersionConflict)
	}
	return next, nil
}
