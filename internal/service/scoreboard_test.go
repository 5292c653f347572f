package service

import (
	"context"
	"emath_backend/pkg/logger"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestRedisScoreboardCache(t *testing.T) {
	logger.InitNop()
	ctx := context.Background()
	cache := NewRedisScoreboardCache(newMiniRedis(t), time.Minute)

	_, ok := cache.Get(ctx, 1)
	assert.False(t, ok)

	rows := []RankingRow{{Rank: "1", UserID: 3, Username: "an", Score: 75}}
	cache.Set(ctx, 1, rows)
	got, ok := cache.Get(ctx, 1)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "an", got[0].Username)
	assert.Equal(t, 75.0, got[0].Score)

	cache.Invalidate(ctx, 1)
	_, ok = cache.Get(ctx, 1)
	assert.False(t, ok)

	// ttl 为 0 时不缓存
	cache.SetTTL(0)
	cache.Set(ctx, 2, rows)
	_, ok = cache.Get(ctx, 2)
	assert.False(t, ok)
}

func newTestClient(hub *ScoreboardHub, contestID uint) *Client {
	return &Client{Hub: hub, Send: make(chan []byte, 4), ContestID: contestID}
}

func receive(t *testing.T, c *Client) WSMessage {
	t.Helper()
	select {
	case data := <-c.Send:
		var msg WSMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no scoreboard message")
	}
	return WSMessage{}
}

func TestScoreboardHubLocal(t *testing.T) {
	logger.InitNop()
	hub := NewScoreboardHub(nil)
	require.NoError(t, hub.Start())
	defer hub.Stop()

	watcher := newTestClient(hub, 7)
	otherContest := newTestClient(hub, 8)
	require.True(t, hub.Register(watcher))
	require.True(t, hub.Register(otherContest))
	// register 为无缓冲通道，再注册一个哨兵保证前两个已处理
	sentinel := newTestClient(hub, 9)
	require.True(t, hub.Register(sentinel))

	hub.NotifyRankingChanged(7, "spring")
	msg := receive(t, watcher)
	assert.Equal(t, MessageRankingUpdated, msg.Type)
	assert.Len(t, otherContest.Send, 0)
}

func TestScoreboardHubRedisFanout(t *testing.T) {
	logger.InitNop()
	hub := NewScoreboardHub(newMiniRedis(t))
	require.NoError(t, hub.Start())
	defer hub.Stop()

	watcher := newTestClient(hub, 3)
	require.True(t, hub.Register(watcher))
	require.True(t, hub.Register(newTestClient(hub, 4)))

	hub.NotifyRankingChanged(3, "autumn")
	msg := receive(t, watcher)
	assert.Equal(t, MessageRankingUpdated, msg.Type)
	data, ok := msg.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "autumn", data["contest"])
}

func TestScoreboardHubStopped(t *testing.T) {
	logger.InitNop()
	hub := NewScoreboardHub(nil)
	require.NoError(t, hub.Start())

	watcher := newTestClient(hub, 5)
	require.True(t, hub.Register(watcher))
	hub.Stop()

	// 停止时已关闭现有连接
	_, open := <-watcher.Send
	assert.False(t, open)

	// 停止后的注册与注销立即返回
	done := make(chan bool, 1)
	go func() {
		late := newTestClient(hub, 5)
		ok := hub.Register(late)
		hub.Unregister(late)
		hub.Unregister(watcher)
		done <- ok
	}()
	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("register blocked after stop")
	}
}
