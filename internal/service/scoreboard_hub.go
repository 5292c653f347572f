package service

import (
	"context"
	"emath_backend/pkg/logger"
	"emath_backend/pkg/monitoring"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	shardCount     = 32

	scoreboardChannel = "scoreboard_channel"

	MessageRankingUpdated = "RANKING_UPDATED"
	MessagePong           = "PONG"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Client 订阅某个比赛排行榜的 websocket 连接
type Client struct {
	Hub       *ScoreboardHub
	Conn      *websocket.Conn
	Send      chan []byte
	ContestID uint
	UserID    uint
	Limiter   *rate.Limiter
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Error("WebSocket unexpected close", zap.Error(err), zap.Uint("contestID", c.ContestID))
			}
			break
		}

		// 客户端只会发送心跳，超出频率直接丢弃
		if !c.Limiter.Allow() {
			continue
		}
		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil || msg.Type != "PING" {
			continue
		}
		pong, _ := json.Marshal(WSMessage{Type: MessagePong})
		select {
		case c.Send <- pong:
		default:
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type shard struct {
	clients map[uint]map[*Client]struct{}
	mu      sync.RWMutex
}

// ScoreboardHub 排行榜变更通知，多实例之间通过 Redis 频道扇出
type ScoreboardHub struct {
	shards     [shardCount]*shard
	register   chan *Client
	unregister chan *Client
	Redis      *redis.Client
	pubsub     *redis.PubSub
	ctx        context.Context
	cancel     context.CancelFunc
	stopOnce   sync.Once
}

func NewScoreboardHub(rdb *redis.Client) *ScoreboardHub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &ScoreboardHub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		Redis:      rdb,
		ctx:        ctx,
		cancel:     cancel,
	}
	for i := 0; i < shardCount; i++ {
		h.shards[i] = &shard{clients: make(map[uint]map[*Client]struct{})}
	}
	return h
}

func (h *ScoreboardHub) getShard(contestID uint) *shard {
	return h.shards[contestID%shardCount]
}

type PubSubMessage struct {
	ContestID uint            `json:"contestId"`
	Payload   json.RawMessage `json:"payload"`
}

// Start 订阅 Redis 频道并启动注册循环，订阅确认后才返回
func (h *ScoreboardHub) Start() error {
	if h.Redis != nil {
		pubsub := h.Redis.Subscribe(h.ctx, scoreboardChannel)
		if _, err := pubsub.Receive(h.ctx); err != nil {
			pubsub.Close()
			return err
		}
		h.pubsub = pubsub
		go h.consume(pubsub)
	}
	go h.run()
	return nil
}

func (h *ScoreboardHub) consume(pubsub *redis.PubSub) {
	for msg := range pubsub.Channel() {
		var psMsg PubSubMessage
		if err := json.Unmarshal([]byte(msg.Payload), &psMsg); err != nil {
			logger.Log.Error("PubSub unmarshal error", zap.Error(err))
			continue
		}
		h.pushToLocal(psMsg.ContestID, psMsg.Payload)
	}
}

func (h *ScoreboardHub) run() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case client := <-h.register:
			s := h.getShard(client.ContestID)
			s.mu.Lock()
			// Stop 先取消 ctx 再清理分片，持锁检查保证不会留下未关闭的连接
			if h.ctx.Err() != nil {
				s.mu.Unlock()
				close(client.Send)
				continue
			}
			if s.clients[client.ContestID] == nil {
				s.clients[client.ContestID] = make(map[*Client]struct{})
			}
			s.clients[client.ContestID][client] = struct{}{}
			s.mu.Unlock()
			monitoring.ScoreboardWatchers.Inc()
		case client := <-h.unregister:
			s := h.getShard(client.ContestID)
			s.mu.Lock()
			if set, ok := s.clients[client.ContestID]; ok {
				if _, ok := set[client]; ok {
					delete(set, client)
					close(client.Send)
					monitoring.ScoreboardWatchers.Dec()
				}
				if len(set) == 0 {
					delete(s.clients, client.ContestID)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Register 加入订阅，hub 已停止时返回 false
func (h *ScoreboardHub) Register(c *Client) bool {
	if h.ctx.Err() != nil {
		return false
	}
	select {
	case h.register <- c:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// Unregister 取消订阅，hub 已停止时直接返回
func (h *ScoreboardHub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}

// NotifyRankingChanged 通知所有订阅该比赛的客户端重新拉取排行榜
func (h *ScoreboardHub) NotifyRankingChanged(contestID uint, contestKey string) {
	msgBytes, _ := json.Marshal(WSMessage{
		Type: MessageRankingUpdated,
		Data: map[string]interface{}{"contestId": contestID, "contest": contestKey},
	})

	if h.Redis == nil {
		h.pushToLocal(contestID, msgBytes)
		return
	}
	payload, _ := json.Marshal(PubSubMessage{ContestID: contestID, Payload: msgBytes})
	if err := h.Redis.Publish(h.ctx, scoreboardChannel, payload).Err(); err != nil {
		logger.Log.Warn("Scoreboard publish failed, pushing locally", zap.Uint("contestID", contestID), zap.Error(err))
		h.pushToLocal(contestID, msgBytes)
	}
}

func (h *ScoreboardHub) pushToLocal(contestID uint, payload []byte) {
	s := h.getShard(contestID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.clients[contestID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

// Stop 关闭所有连接
func (h *ScoreboardHub) Stop() {
	h.stopOnce.Do(func() {
		h.cancel()
		if h.pubsub != nil {
			h.pubsub.Close()
		}

		closed := 0
		for i := 0; i < shardCount; i++ {
			s := h.shards[i]
			s.mu.Lock()
			for contestID, set := range s.clients {
				for client := range set {
					close(client.Send)
					closed++
				}
				delete(s.clients, contestID)
			}
			s.mu.Unlock()
		}
		monitoring.ScoreboardWatchers.Set(0)
		logger.Log.Info("ScoreboardHub stopped", zap.Int("closedConnections", closed))
	})
}

func ServeScoreboardWs(hub *ScoreboardHub, w http.ResponseWriter, r *http.Request, contestID, userID uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed", zap.Error(err), zap.Uint("contestID", contestID))
		return
	}
	client := &Client{
		Hub:       hub,
		Conn:      conn,
		Send:      make(chan []byte, 16),
		ContestID: contestID,
		UserID:    userID,
		Limiter:   rate.NewLimiter(rate.Limit(1), 5),
	}
	if !hub.Register(client) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
