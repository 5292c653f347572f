package controller

import (
	"bytes"
	"emath_backend/internal/config"
	"emath_backend/internal/middleware"
	"emath_backend/internal/model"
	"emath_backend/internal/repository"
	"emath_backend/internal/service"
	"emath_backend/internal/testutil"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "controller-test-secret"

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)

	userRepo := repository.NewUserRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)
	problemRepo := repository.NewProblemRepository(db)
	contestRepo := repository.NewContestRepository(db)
	participationRepo := repository.NewParticipationRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	practiceRepo := repository.NewPracticeRepository(db)

	authService := service.NewAuthService(userRepo, config.JWTConfig{Secret: testSecret, ExpireTime: time.Hour})
	userService := service.NewUserService(userRepo, participationRepo)
	judge := service.NewJudgeService(submissionRepo, contestRepo, practiceRepo)
	scoring := service.NewScoringService(contestRepo, participationRepo, submissionRepo, judge, nil, nil)
	contestService := service.NewContestService(db, contestRepo, participationRepo, userRepo, problemRepo, orgRepo, submissionRepo, scoring,
		config.ContestConfig{DefaultPointsPrecision: 3, MaxVirtualJoinRetries: 5})
	submissionService := service.NewSubmissionService(db, submissionRepo, contestRepo, practiceRepo, userRepo, contestService, judge)

	auth := NewAuthController(authService, userService)
	contests := NewContestController(contestService, submissionService, userService, nil)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	public := r.Group("/api", middleware.TryAuthMiddleware(testSecret))
	public.POST("/register", auth.Register)
	public.POST("/login", auth.Login)
	public.GET("/contests", contests.ListContests)
	public.GET("/contests/:key", contests.GetContest)
	public.GET("/contests/:key/ranking", contests.Ranking)

	private := r.Group("/api", middleware.AuthMiddleware(testSecret))
	private.GET("/profile", auth.GetProfile)
	private.POST("/contests/:key/join", contests.Join)
	private.POST("/contests/:key/leave", contests.Leave)
	return r, db
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) (int, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func registerAndLogin(t *testing.T, r *gin.Engine, username string) string {
	t.Helper()
	code, _ := doJSON(t, r, http.MethodPost, "/api/register", "", service.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret123",
	})
	require.Equal(t, http.StatusCreated, code)

	code, resp := doJSON(t, r, http.MethodPost, "/api/login", "", service.LoginRequest{Username: username, Password: "secret123"})
	require.Equal(t, http.StatusOK, code)
	var login service.LoginResponse
	require.NoError(t, json.Unmarshal(resp.Data, &login))
	require.NotEmpty(t, login.Token)
	return login.Token
}

func TestRegisterConflict(t *testing.T) {
	r, _ := newTestRouter(t)
	registerAndLogin(t, r, "anh")

	code, _ := doJSON(t, r, http.MethodPost, "/api/register", "", service.RegisterRequest{
		Username: "anh",
		Email:    "other@example.com",
		Password: "secret123",
	})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = doJSON(t, r, http.MethodPost, "/api/login", "", service.LoginRequest{Username: "anh", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestContestJoinOverHTTP(t *testing.T) {
	r, db := newTestRouter(t)
	token := registerAndLogin(t, r, "binh")
	now := time.Now()
	testutil.CreateContest(t, db, "live", now.Add(-time.Hour), now.Add(time.Hour))

	code, _ := doJSON(t, r, http.MethodPost, "/api/contests/live/join", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, resp := doJSON(t, r, http.MethodPost, "/api/contests/live/join", token, nil)
	require.Equal(t, http.StatusOK, code, resp.Message)
	var p model.ContestParticipation
	require.NoError(t, json.Unmarshal(resp.Data, &p))
	assert.Equal(t, model.ParticipationLive, p.Virtual)

	code, resp = doJSON(t, r, http.MethodGet, "/api/contests/live", token, nil)
	require.Equal(t, http.StatusOK, code)
	var detail struct {
		InContest bool `json:"inContest"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &detail))
	assert.True(t, detail.InContest)

	code, _ = doJSON(t, r, http.MethodGet, "/api/contests/live/ranking", "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = doJSON(t, r, http.MethodPost, "/api/contests/live/leave", token, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = doJSON(t, r, http.MethodPost, "/api/contests/live/leave", token, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestPrivateContestOverHTTP(t *testing.T) {
	r, db := newTestRouter(t)
	token := registerAndLogin(t, r, "chi")
	now := time.Now()
	testutil.CreateContest(t, db, "secret", now.Add(-time.Hour), now.Add(time.Hour), func(c *model.Contest) { c.IsPrivate = true })
	testutil.CreateContest(t, db, "hidden", now.Add(-time.Hour), now.Add(time.Hour), func(c *model.Contest) { c.IsVisible = false })

	code, resp := doJSON(t, r, http.MethodGet, "/api/contests/secret", token, nil)
	assert.Equal(t, http.StatusForbidden, code)
	var private struct {
		IsPrivate bool `json:"isPrivate"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &private))
	assert.True(t, private.IsPrivate)

	code, _ = doJSON(t, r, http.MethodGet, "/api/contests/hidden", token, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = doJSON(t, r, http.MethodGet, "/api/contests/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, resp = doJSON(t, r, http.MethodGet, "/api/contests", token, nil)
	require.Equal(t, http.StatusOK, code)
	var list service.ContestList
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Empty(t, list.Present)
}
