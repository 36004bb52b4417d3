package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPresence keeps presence in Redis:
//   - <prefix>:online:<user>  connection count, expires with the ttl
//   - <prefix>:typing:<conv>  sorted set of user ids scored by expiry (unix ms)
type RedisPresence struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisPresence(rdb *redis.Client, prefix string) *RedisPresence {
	return &RedisPresence{rdb: rdb, prefix: prefix}
}

func (r *RedisPresence) onlineKey(userID string) string {
	return fmt.Sprintf("%s:online:%s", r.prefix, userID)
}

func (r *RedisPresence) typingKey(convID string) string {
	return fmt.Sprintf("%s:typing:%s", r.prefix, convID)
}

const luaIncrExpire = `
local current = redis.call("incr", KEYS[1])
redis.call("pexpire", KEYS[1], ARGV[1])
return current
`

const luaDecrOrDelete = `
local current = redis.call("decr", KEYS[1])
if current <= 0 then
  redis.call("del", KEYS[1])
end
return current
`

func (r *RedisPresence) MarkOnline(ctx context.Context, userID string, ttl time.Duration) error {
	return r.rdb.Eval(ctx, luaIncrExpire, []string{r.onlineKey(userID)}, ttl.Milliseconds()).Err()
}

func (r *RedisPresence) Touch(ctx context.Context, userID string, ttl time.Duration) error {
	return r.rdb.PExpire(ctx, r.onlineKey(userID), ttl).Err()
}

func (r *RedisPresence) MarkOffline(ctx context.Context, userID string) error {
	return r.rdb.Eval(ctx, luaDecrOrDelete, []string{r.onlineKey(userID)}).Err()
}

func (r *RedisPresence) IsOnline(ctx context.Context, userID string) (bool, error) {
	val, err := r.rdb.Get(ctx, r.onlineKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *RedisPresence) SetTyping(ctx context.Context, conversationID, userID string, ttl time.Duration) error {
	key := r.typingKey(conversationID)
	exp := time.Now().Add(ttl)
	pipe := r.rdb.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(exp.UnixMilli()), Member: userID})
	pipe.PExpire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisPresence) ClearTyping(ctx context.Context, conversationID, userID string) error {
	return r.rdb.ZRem(ctx, r.typingKey(conversationID), userID).Err()
}

func (r *RedisPresence) TypingUsers(ctx context.Context, conversationID string) ([]string, error) {
	key := r.typingKey(conversationID)
	nowMs := strconv.FormatInt(time.Now().UnixMilli(), 10)
	if err := r.rdb.ZRemRangeByScore(ctx, key, "-inf", "("+nowMs).Err(); err != nil {
		return nil, err
	}
	return r.rdb.ZRange(ctx, key, 0, -1).Result()
}
