package cachesvc_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/examhall/core"
	"github.com/trezcool/examhall/core/exam"
	"github.com/trezcool/examhall/services/cache"
)

func TestRedisStatsCache(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDRESS")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDRESS not set")
	}
	ctx := context.Background()
	conf := &core.Config{AppName: "Examhall-Test", Redis: core.RedisConfig{Address: addr, StatsTTL: time.Minute}}

	client, err := cachesvc.NewRedisClient(ctx, conf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	cache := cachesvc.NewRedisStatsCache(client, conf)

	qid := "q-" + time.Now().Format("150405.000000")
	_, gen, found, err := cache.Get(ctx, qid)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, gen)

	stats := exam.NewStats(qid)
	stats.Total = 3
	stats.Counts[core.OptionB] = 3
	require.NoError(t, cache.Set(ctx, stats, gen))

	ttl, err := client.TTL(ctx, "examhall-test:stats:"+qid).Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0 && ttl <= time.Minute)

	got, gen, found, err := cache.Get(ctx, qid)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, stats, got)

	require.NoError(t, cache.Invalidate(ctx, qid))
	_, _, found, err = cache.Get(ctx, qid)
	require.NoError(t, err)
	assert.False(t, found)

	// stats counted before the invalidation are dropped
	require.NoError(t, cache.Set(ctx, stats, gen))
	_, newGen, found, err := cache.Get(ctx, qid)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, gen+1, newGen)

	require.NoError(t, cache.Set(ctx, stats, newGen))
	_, _, found, err = cache.Get(ctx, qid)
	require.NoError(t, err)
	assert.True(t, found)

	t.Cleanup(func() { client.Del(ctx, "examhall-test:stats:"+qid, "examhall-test:stats:gen:"+qid) })
}

func TestNoopStatsCache(t *testing.T) {
	ctx := context.Background()
	var cache cachesvc.NoopStatsCache
	require.NoError(t, cache.Set(ctx, exam.NewStats("q"), 0))
	_, _, found, err := cache.Get(ctx, "q")
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, cache.Invalidate(ctx, "q"))
}
