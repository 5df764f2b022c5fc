package app

import (
	"context"
	"edu_network_backend/internal/config"
	"edu_network_backend/internal/controller"
	"edu_network_backend/internal/repository"
	"edu_network_backend/internal/service"
	"edu_network_backend/pkg/configwatcher"
	"edu_network_backend/pkg/database"
	"edu_network_backend/pkg/lock"
	"edu_network_backend/pkg/logger"
	"edu_network_backend/pkg/monitoring"
	"edu_network_backend/pkg/security"
	"edu_network_backend/pkg/tracing"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const configDir = "configs"

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	configCallbacks []func(*config.Config)

	cron           *cron.Cron
	tracerProvider *sdktrace.TracerProvider
	stopWatcher    context.CancelFunc
}

type repositories struct {
	content      *repository.ContentRepository
	node         *repository.NodeRepository
	localContent *repository.LocalContentRepository
	job          *repository.DistributionJobRepository
	translation  *repository.TranslationRepository
	subscription *repository.SubscriptionRepository
}

type services struct {
	storage      *service.StorageService
	content      *service.ContentService
	version      *service.VersionService
	node         *service.NodeService
	distribution *service.DistributionService
	localization *service.LocalizationService
	translation  *service.TranslationService
	access       *service.AccessService
}

type controllers struct {
	content      *controller.ContentController
	distribution *controller.DistributionController
	node         *controller.NodeController
	translation  *controller.TranslationController
	access       *controller.AccessController
	health       *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		content:      repository.NewContentRepository(db),
		node:         repository.NewNodeRepository(db),
		localContent: repository.NewLocalContentRepository(db),
		job:          repository.NewDistributionJobRepository(db),
		translation:  repository.NewTranslationRepository(db),
		subscription: repository.NewSubscriptionRepository(db),
	}
}

// newLocker 多实例部署时用 Redis 锁，单实例用进程内锁
func (a *App) newLocker(cfg *config.Config) lock.Locker {
	if cfg.Distribution.LockBackend == "redis" && a.Redis != nil {
		return lock.NewRedisLocker(a.Redis, cfg.Distribution.LockTTL())
	}
	return lock.NewLocalLocker()
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB) *services {
	s := &services{}
	locker := a.newLocker(cfg)

	s.storage = service.NewStorageService(cfg)
	s.content = service.NewContentService(repos.content)
	s.version = service.NewVersionService(db, repos.content, service.NewSchemaValidator(), s.storage)
	s.node = service.NewNodeService(repos.node)
	s.distribution = service.NewDistributionService(
		repos.content,
		repos.node,
		repos.job,
		repos.localContent,
		locker,
		cfg.Distribution,
	)
	s.localization = service.NewLocalizationService(db, repos.content, repos.node, repos.localContent, locker)
	s.translation = service.NewTranslationService(db, repos.translation, repos.localContent)
	s.access = service.NewAccessService(repos.node, repos.subscription)

	// 配置热更新：分发并发度与超时
	a.RegisterConfigCallback(func(newCfg *config.Config) {
		s.distribution.ApplyConfig(newCfg.Distribution)
	})

	return s
}

func (a *App) initControllers(s *services, cfg *config.Config) *controllers {
	return &controllers{
		content:      controller.NewContentController(s.content, s.version),
		distribution: controller.NewDistributionController(s.distribution),
		node:         controller.NewNodeController(s.node, s.localization),
		translation:  controller.NewTranslationController(s.translation, cfg.Distribution.ReviewAlertAfter()),
		access:       controller.NewAccessController(s.access),
		health:       controller.NewHealthController(a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 定时执行到期的分发任务，并刷新待审核翻译的积压指标
func (a *App) startBackgroundTasks(s *services, cfg *config.Config) {
	c := cron.New()

	_, err := c.AddFunc(cfg.Distribution.ScheduleSpec, func() {
		n, err := s.distribution.RunDueJobs(context.Background())
		if err != nil {
			logger.Log.Error("scheduled distribution error", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Log.Info("scheduled distribution jobs executed", zap.Int("count", n))
		}
	})
	if err != nil {
		logger.Log.Fatal("Invalid distribution schedule", zap.String("spec", cfg.Distribution.ScheduleSpec), zap.Error(err))
	}

	reviewAlertAfter := cfg.Distribution.ReviewAlertAfter()
	_, err = c.AddFunc("@every 10m", func() {
		if err := s.translation.RefreshStaleGauge(context.Background(), reviewAlertAfter); err != nil {
			logger.Log.Error("stale review check error", zap.Error(err))
		}
	})
	if err != nil {
		logger.Log.Fatal("Failed to schedule stale review check", zap.Error(err))
	}

	c.Start()
	a.cron = c
}

func (a *App) startConfigWatcher() {
	ctx, cancel := context.WithCancel(context.Background())
	a.stopWatcher = cancel

	go func() {
		err := configwatcher.WatchConfig(ctx, filepath.Join(configDir, "config.yaml"), func(newCfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(newCfg)
			}
		})
		if err != nil {
			logger.Log.Warn("Config watcher stopped", zap.Error(err))
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.ForceMigrate || cfg.Server.Mode != gin.ReleaseMode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}

	if cfg.MigrateOnly {
		return app
	}

	// 仅 Redis 锁需要连接 Redis
	if cfg.Distribution.LockBackend == "redis" {
		rdb, err := database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
			log.Fatalf("Failed to initialize redis: %v", err)
		}
		app.Redis = rdb
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, db)
	app.services = services
	controllers := app.initControllers(services, cfg)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracerProvider = tp
	}

	app.registerRoutes(router, controllers, cfg)

	app.startBackgroundTasks(services, cfg)
	app.startConfigWatcher()

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	if a.stopWatcher != nil {
		a.stopWatcher()
	}
	// 等待正在执行的定时任务结束
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	log.Println("Server exiting")
}
