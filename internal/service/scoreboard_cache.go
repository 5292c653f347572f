package service

import (
	"context"
	"emath_backend/pkg/logger"
	"emath_backend/pkg/monitoring"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ScoreboardCache 缓存完整排行榜，参赛成绩变化时失效
type ScoreboardCache interface {
	Get(ctx context.Context, contestID uint) ([]RankingRow, bool)
	Set(ctx context.Context, contestID uint, rows []RankingRow)
	Invalidate(ctx context.Context, contestID uint)
}

type RedisScoreboardCache struct {
	Redis *redis.Client
	mu    sync.RWMutex
	ttl   time.Duration
}

func NewRedisScoreboardCache(rdb *redis.Client, ttl time.Duration) *RedisScoreboardCache {
	return &RedisScoreboardCache{Redis: rdb, ttl: ttl}
}

func scoreboardKey(contestID uint) string {
	return fmt.Sprintf("scoreboard:%d", contestID)
}

// SetTTL 配置热更新时调用
func (c *RedisScoreboardCache) SetTTL(ttl time.Duration) {
	c.mu.Lock()
	c.ttl = ttl
	c.mu.Unlock()
}

func (c *RedisScoreboardCache) TTL() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ttl
}

func (c *RedisScoreboardCache) Get(ctx context.Context, contestID uint) ([]RankingRow, bool) {
	data, err := c.Redis.Get(ctx, scoreboardKey(contestID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Log.Warn("Scoreboard cache read failed", zap.Uint("contestID", contestID), zap.Error(err))
		}
		monitoring.ScoreboardCache.WithLabelValues("miss").Inc()
		return nil, false
	}

	var rows []RankingRow
	if err := json.Unmarshal(data, &rows); err != nil {
		monitoring.ScoreboardCache.WithLabelValues("miss").Inc()
		return nil, false
	}
	monitoring.ScoreboardCache.WithLabelValues("hit").Inc()
	return rows, true
}

func (c *RedisScoreboardCache) Set(ctx context.Context, contestID uint, rows []RankingRow) {
	ttl := c.TTL()
	if ttl <= 0 {
		return
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return
	}
	if err := c.Redis.Set(ctx, scoreboardKey(contestID), data, ttl).Err(); err != nil {
		logger.Log.Warn("Scoreboard cache write failed", zap.Uint("contestID", contestID), zap.Error(err))
	}
}

func (c *RedisScoreboardCache) Invalidate(ctx context.Context, contestID uint) {
	if err := c.Redis.Del(ctx, scoreboardKey(contestID)).Err(); err != nil {
		logger.Log.Warn("Scoreboard cache invalidate failed", zap.Uint("contestID", contestID), zap.Error(err))
	}
}

// NoopScoreboardCache 未配置 Redis 时使用
type NoopScoreboardCache struct{}

func (NoopScoreboardCache) Get(context.Context, uint) ([]RankingRow, bool) { return nil, false }
func (NoopScoreboardCache) Set(context.Context, uint, []RankingRow)        {}
func (NoopScoreboardCache) Invalidate(context.Context, uint)               {}
