package cachesvc

import (
	"context"

	"github.com/trezcool/examhall/core/exam"
)

// NoopStatsCache never caches; used when Redis is not configured.
type NoopStatsCache struct{}

var _ exam.StatsCache = NoopStatsCache{}

func (NoopStatsCache) Get(context.Context, string) (exam.Stats, int64, bool, error) {
	return exam.Stats{}, 0, false, nil
}

func (NoopStatsCache) Set(context.Context, exam.Stats, int64) error { return nil }

func (NoopStatsCache) Invalidate(context.Context, string) error { return nil }
