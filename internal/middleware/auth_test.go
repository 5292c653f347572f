package middleware

import (
	"emath_backend/internal/model"
	"emath_backend/internal/util"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-test-secret"

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/private", AuthMiddleware(testSecret), func(c *gin.Context) {
		util.Success(c, util.GetUserFromContext(c).Username)
	})
	r.GET("/public", TryAuthMiddleware(testSecret), func(c *gin.Context) {
		util.Success(c, util.GetUserFromContext(c) != nil)
	})
	r.GET("/setter", AuthMiddleware(testSecret), RoleMiddleware(model.RankSetter), func(c *gin.Context) {
		util.Success(c, nil)
	})
	return r
}

func token(t *testing.T, rank model.DisplayRank) string {
	t.Helper()
	u := &model.User{Username: "alice", DisplayRank: rank}
	u.ID = 7
	tok, err := util.GenerateJWT(u, testSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

func do(r *gin.Engine, path, tok string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter()

	assert.Equal(t, http.StatusUnauthorized, do(r, "/private", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/private", "garbage").Code)

	w := do(r, "/private", token(t, model.RankUser))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice")
}

func TestTryAuthMiddlewareAllowsAnonymous(t *testing.T) {
	r := newRouter()

	w := do(r, "/public", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "false")

	w = do(r, "/public", token(t, model.RankUser))
	assert.Contains(t, w.Body.String(), "true")
}

func TestRoleMiddleware(t *testing.T) {
	r := newRouter()

	assert.Equal(t, http.StatusForbidden, do(r, "/setter", token(t, model.RankUser)).Code)
	assert.Equal(t, http.StatusOK, do(r, "/setter", token(t, model.RankSetter)).Code)
	assert.Equal(t, http.StatusOK, do(r, "/setter", token(t, model.RankAdmin)).Code)
}
