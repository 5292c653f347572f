package app

import (
	"emath_backend/docs"
	"emath_backend/internal/config"
	"emath_backend/internal/middleware"
	"emath_backend/internal/model"
	"emath_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由，登录用户可看到更多内容
	public := router.Group("/api")
	public.Use(middleware.TryAuthMiddleware(cfg.JWT.Secret))
	a.registerPublicRoutes(public, c)

	// 2. 需要登录的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg.JWT.Secret), middleware.ActivityMiddleware(repos.user))
	a.registerUserRoutes(authGroup, c)

	// 3. 出题人与管理员
	setterGroup := router.Group("/api")
	setterGroup.Use(
		middleware.AuthMiddleware(cfg.JWT.Secret),
		middleware.RoleMiddleware(model.RankSetter),
	)
	a.registerSetterRoutes(setterGroup, c)

	// 4. 管理员
	adminGroup := router.Group("/api/admin")
	adminGroup.Use(
		middleware.AuthMiddleware(cfg.JWT.Secret),
		middleware.RoleMiddleware(model.RankAdmin),
	)
	adminGroup.PUT("/users/:username", c.user.AdminUpdateUser)
}

func (a *App) registerPublicRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/health", c.health.HealthCheck)
	rg.POST("/register", c.auth.Register)
	rg.POST("/login", c.auth.Login)

	rg.GET("/users", c.user.ListUsers)
	rg.GET("/users/:username", c.user.GetUser)

	rg.GET("/organizations", c.organization.ListOrganizations)
	rg.GET("/organizations/:slug", c.organization.GetOrganization)
	rg.GET("/organizations/:slug/members", c.organization.ListMembers)

	rg.GET("/problems", c.problem.ListProblems)
	rg.GET("/problems/:code", c.problem.GetProblem)
	rg.GET("/problem-groups", c.problem.ListGroups)
	rg.GET("/levels", c.problem.ListLevels)

	rg.GET("/contests", c.contest.ListContests)
	rg.GET("/contest-formats", c.contest.ListFormats)
	rg.GET("/contests/:key", c.contest.GetContest)
	rg.GET("/contests/:key/ranking", c.contest.Ranking)
	rg.GET("/contests/:key/editorial", c.contest.GetEditorial)
	rg.GET("/contests/:key/ws", c.contest.ScoreboardWS)

	rg.GET("/submissions", c.submission.ListSubmissions)
	rg.GET("/submissions/:id", c.submission.GetSubmission)

	rg.GET("/blog", c.blog.ListPosts)
	rg.GET("/blog/:id", c.blog.GetPost)
}

func (a *App) registerUserRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.auth.GetProfile)
	rg.PUT("/profile", c.user.UpdateProfile)
	rg.PUT("/profile/password", c.user.ChangePassword)

	// 组织
	rg.POST("/organizations/:slug/join", c.organization.Join)
	rg.POST("/organizations/:slug/leave", c.organization.Leave)
	rg.PUT("/organizations/:slug", c.organization.UpdateOrganization)
	rg.POST("/organizations/:slug/logo", c.organization.UploadLogo)
	rg.GET("/organizations/:slug/requests", c.organization.ListRequests)
	rg.PUT("/organizations/:slug/requests/:id", c.organization.ReviewRequest)

	// 比赛
	rg.POST("/contests/:key/join", c.contest.Join)
	rg.POST("/contests/:key/leave", c.contest.Leave)
	rg.GET("/contests/:key/tasks", c.contest.StartTask)
	rg.POST("/contests/:key/submit", c.contest.SubmitTask)

	// 比赛管理，权限由比赛作者/协管员关系决定
	rg.PUT("/contests/:key", c.contest.UpdateContest)
	rg.PUT("/contests/:key/editorial", c.contest.SaveEditorial)
	rg.POST("/contests/:key/participations/:id/disqualify", c.contest.Disqualify)
	rg.POST("/contests/:key/rejudge", c.contest.Rejudge)

	// 题目作者可以修改自己的题目
	rg.PUT("/problems/:code", c.problem.UpdateProblem)

	// 练习
	rg.GET("/practice", c.practice.ListPractices)
	rg.POST("/practice", c.practice.CreatePractice)
	rg.GET("/practice/:id", c.practice.GetPractice)
	rg.GET("/practice/:id/tasks", c.practice.StartTask)
	rg.POST("/practice/:id/submit", c.practice.SubmitTask)

	// 博客
	rg.PUT("/blog/:id", c.blog.UpdatePost)
	rg.DELETE("/blog/:id", c.blog.DeletePost)
}

func (a *App) registerSetterRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.POST("/organizations", c.organization.CreateOrganization)
	rg.POST("/problems", c.problem.CreateProblem)
	rg.POST("/problem-groups", c.problem.CreateGroup)
	rg.POST("/levels", c.problem.CreateLevel)
	rg.POST("/contests", c.contest.CreateContest)
	rg.POST("/blog", c.blog.CreatePost)
}
