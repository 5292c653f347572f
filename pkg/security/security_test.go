package security

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimitedRouter(t *testing.T, l *RateLimiter) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(l.Middleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestNewRateLimiterRejectsInvalidLimits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := NewRateLimiter(ctx, 0, time.Minute)
	assert.Error(t, err)
	_, err = NewRateLimiter(ctx, 10, 0)
	assert.Error(t, err)

	l, err := NewRateLimiter(ctx, 10, time.Minute)
	require.NoError(t, err)
	assert.Error(t, l.Update(-1, time.Minute))
}

func TestRateLimiterMiddleware(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l, err := NewRateLimiter(ctx, 2, time.Hour)
	require.NoError(t, err)
	r := newLimitedRouter(t, l)

	assert.Equal(t, http.StatusOK, get(r, "/ping").Code)
	assert.Equal(t, http.StatusOK, get(r, "/ping").Code)

	w := get(r, "/ping")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	var body struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, http.StatusTooManyRequests, body.Code)
	assert.Equal(t, "too many requests", body.Message)

	// 调整限额同步到已有访客
	require.NoError(t, l.Update(5, time.Hour))
	l.mu.Lock()
	defer l.mu.Unlock()
	require.Len(t, l.visitors, 1)
	for _, v := range l.visitors {
		assert.Equal(t, 5, v.limiter.Burst())
	}
}

func TestRateLimiterEvict(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l, err := NewRateLimiter(ctx, 10, time.Minute)
	require.NoError(t, err)

	start := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return start }
	assert.True(t, l.Allow("10.0.0.1"))
	l.now = func() time.Time { return start.Add(2 * time.Minute) }
	assert.True(t, l.Allow("10.0.0.2"))

	assert.Equal(t, 1, l.evict(start.Add(3*time.Minute+time.Second)))
	_, ok := l.visitors["10.0.0.2"]
	assert.True(t, ok)
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"https://emath.vn/"}))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.OPTIONS("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://emath.vn")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://emath.vn", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
