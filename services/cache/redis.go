package cachesvc

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/examhall/core"
	"github.com/trezcool/examhall/core/exam"
)

// NewRedisClient connects to Redis and checks the connection.
func NewRedisClient(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

// RedisStatsCache stores question stats as JSON with a TTL.
type RedisStatsCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

var _ exam.StatsCache = (*RedisStatsCache)(nil)

func NewRedisStatsCache(client redis.Cmdable, conf *core.Config) *RedisStatsCache {
	return &RedisStatsCache{
		client: client,
		prefix: core.CleanString(conf.AppName, true /* lower */) + ":stats:",
		ttl:    conf.Redis.StatsTTL,
	}
}

func (c *RedisStatsCache) key(questionID string) string {
	return c.prefix + questionID
}

func (c *RedisStatsCache) genKey(questionID string) string {
	return c.prefix + "gen:" + questionID
}

func (c *RedisStatsCache) Get(ctx context.Context, questionID string) (exam.Stats, int64, bool, error) {
	vals, err := c.client.MGet(ctx, c.key(questionID), c.genKey(questionID)).Result()
	if err != nil {
		return exam.Stats{}, 0, false, errors.Wrap(err, "getting cached stats")
	}

	var gen int64
	if raw, ok := vals[1].(string); ok {
		if gen, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return exam.Stats{}, 0, false, errors.Wrap(err, "decoding stats generation")
		}
	}
	raw, ok := vals[0].(string)
	if !ok {
		return exam.Stats{}, gen, false, nil
	}

	var stats exam.Stats
	if err = json.Unmarshal([]byte(raw), &stats); err != nil {
		return exam.Stats{}, gen, false, errors.Wrap(err, "decoding cached stats")
	}
	return stats, gen, true, nil
}

// setIfGeneration stores ARGV[2] at KEYS[2] (PX ARGV[3] when positive) only if KEYS[1] still holds ARGV[1].
const setIfGeneration = `
if (redis.call('GET', KEYS[1]) or '0') ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[2], ARGV[2])
end
return 1`

func (c *RedisStatsCache) Set(ctx context.Context, stats exam.Stats, generation int64) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return errors.Wrap(err, "encoding stats")
	}
	keys := []string{c.genKey(stats.QuestionID), c.key(stats.QuestionID)}
	err = c.client.Eval(ctx, setIfGeneration, keys, strconv.FormatInt(generation, 10), data, c.ttl.Milliseconds()).Err()
	return errors.Wrap(err, "caching stats")
}

func (c *RedisStatsCache) Invalidate(ctx context.Context, questionID string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, c.genKey(questionID))
		pipe.Del(ctx, c.key(questionID))
		return nil
	})
	return errors.Wrap(err, "invalidating stats")
}
