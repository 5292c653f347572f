package app

import (
	"context"
	"emath_backend/internal/config"
	"emath_backend/internal/controller"
	"emath_backend/internal/repository"
	"emath_backend/internal/service"
	"emath_backend/pkg/configwatcher"
	"emath_backend/pkg/database"
	"emath_backend/pkg/logger"
	"emath_backend/pkg/monitoring"
	"emath_backend/pkg/security"
	"emath_backend/pkg/tracing"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	ConfigDir       string
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)

	// 后台任务与限流清理的生命周期，Run 退出时取消
	ctx    context.Context
	cancel context.CancelFunc
}

type repositories struct {
	user          *repository.UserRepository
	organization  *repository.OrganizationRepository
	problem       *repository.ProblemRepository
	contest       *repository.ContestRepository
	participation *repository.ParticipationRepository
	submission    *repository.SubmissionRepository
	practice      *repository.PracticeRepository
	blog          *repository.BlogRepository
}

type services struct {
	auth         *service.AuthService
	user         *service.UserService
	storage      *service.StorageService
	organization *service.OrganizationService
	problem      *service.ProblemService
	judge        *service.JudgeService
	scoring      *service.ScoringService
	contest      *service.ContestService
	submission   *service.SubmissionService
	practice     *service.PracticeService
	blog         *service.BlogService
	cache        service.ScoreboardCache
	hub          *service.ScoreboardHub
}

type controllers struct {
	auth         *controller.AuthController
	user         *controller.UserController
	organization *controller.OrganizationController
	problem      *controller.ProblemController
	contest      *controller.ContestController
	submission   *controller.SubmissionController
	practice     *controller.PracticeController
	blog         *controller.BlogController
	health       *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:          repository.NewUserRepository(db),
		organization:  repository.NewOrganizationRepository(db),
		problem:       repository.NewProblemRepository(db),
		contest:       repository.NewContestRepository(db),
		participation: repository.NewParticipationRepository(db),
		submission:    repository.NewSubmissionRepository(db),
		practice:      repository.NewPracticeRepository(db),
		blog:          repository.NewBlogRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(&cfg.Storage)
	s.auth = service.NewAuthService(repos.user, cfg.JWT)
	s.user = service.NewUserService(repos.user, repos.participation)
	s.organization = service.NewOrganizationService(db, repos.organization, repos.user, s.storage)
	s.problem = service.NewProblemService(repos.problem, repos.user, repos.organization)
	s.practice = service.NewPracticeService(repos.practice, repos.problem)
	s.blog = service.NewBlogService(repos.blog)

	s.hub = service.NewScoreboardHub(rdb)
	if err := s.hub.Start(); err != nil {
		logger.Log.Fatal("Failed to start scoreboard hub", zap.Error(err))
	}

	s.cache = service.NoopScoreboardCache{}
	if rdb != nil {
		s.cache = service.NewRedisScoreboardCache(rdb, cfg.Contest.ScoreboardCacheTTL())
	}

	s.judge = service.NewJudgeService(repos.submission, repos.contest, repos.practice)
	s.scoring = service.NewScoringService(
		repos.contest,
		repos.participation,
		repos.submission,
		s.judge,
		s.cache,
		s.hub,
	)
	s.contest = service.NewContestService(
		db,
		repos.contest,
		repos.participation,
		repos.user,
		repos.problem,
		repos.organization,
		repos.submission,
		s.scoring,
		cfg.Contest,
	)
	s.submission = service.NewSubmissionService(
		db,
		repos.submission,
		repos.contest,
		repos.practice,
		repos.user,
		s.contest,
		s.judge,
	)

	// 比赛参数与排行榜缓存时间支持热更新
	a.RegisterConfigCallback(func(newCfg *config.Config) {
		s.contest.ApplyConfig(newCfg.Contest)
		if rc, ok := s.cache.(*service.RedisScoreboardCache); ok {
			rc.SetTTL(newCfg.Contest.ScoreboardCacheTTL())
		}
	})

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:         controller.NewAuthController(s.auth, s.user),
		user:         controller.NewUserController(s.user),
		organization: controller.NewOrganizationController(s.organization, s.user),
		problem:      controller.NewProblemController(s.problem, s.user),
		contest:      controller.NewContestController(s.contest, s.submission, s.user, s.hub),
		submission:   controller.NewSubmissionController(s.submission, s.user),
		practice:     controller.NewPracticeController(s.practice, s.submission, s.user),
		blog:         controller.NewBlogController(s.blog, s.user),
		health:       controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	limiter, err := security.NewRateLimiter(a.ctx, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window())
	if err != nil {
		logger.Log.Fatal("Invalid rate limit settings", zap.Error(err))
	}
	router.Use(limiter.Middleware())
	a.RegisterConfigCallback(func(newCfg *config.Config) {
		if err := limiter.Update(newCfg.RateLimit.MaxRequests, newCfg.RateLimit.Window()); err != nil {
			logger.Log.Warn("Rate limit not updated", zap.Error(err))
		}
	})

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// initRedis 未配置 Redis 时排行榜缓存与推送只在本实例内生效
func initRedis(cfg *config.RedisConfig) *redis.Client {
	if cfg.Host == "" {
		logger.Log.Info("Redis not configured, scoreboard cache disabled")
		return nil
	}
	rdb, err := database.InitRedis(cfg)
	if err != nil {
		logger.Log.Warn("Redis unavailable, scoreboard cache disabled", zap.Error(err))
		return nil
	}
	return rdb
}

func NewApp(cfg *config.Config, configDir string) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if cfg.Server.Mode != "release" || cfg.ForceMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
		logger.Log.Info("Database migrated")
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config:    cfg,
		ConfigDir: configDir,
		DB:        db,
		ctx:       ctx,
		cancel:    cancel,
	}
	if cfg.MigrateOnly {
		return app
	}
	app.Redis = initRedis(&cfg.Redis)

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, db, app.Redis)
	app.services = services
	controllers := app.initControllers(services, db)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("emath-platform", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

func (a *App) startBackgroundTasks(ctx context.Context) {
	go a.services.contest.RunSweeper(ctx)

	configFile := filepath.Join(a.ConfigDir, "config.yaml")
	go func() {
		err := configwatcher.WatchConfig(ctx, configFile, func(newCfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(newCfg)
			}
		})
		if err != nil {
			logger.Log.Warn("Config watcher stopped", zap.String("file", configFile), zap.Error(err))
		}
	}()
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	defer a.cancel()
	a.startBackgroundTasks(a.ctx)

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	a.cancel()
	a.services.hub.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	logger.Log.Info("Server exiting")
}
