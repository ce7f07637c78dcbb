package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"peekify_backend/internal/config"
	"peekify_backend/internal/controller"
	"peekify_backend/internal/repository"
	"peekify_backend/internal/service"
	"peekify_backend/pkg/database"
	"peekify_backend/pkg/logger"
	"peekify_backend/pkg/monitoring"
	"peekify_backend/pkg/security"
	"peekify_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user       *repository.UserRepository
	token      *repository.TokenRepository
	feed       *repository.FeedRepository
	comment    *repository.CommentRepository
	reaction   *repository.ReactionRepository
	friendship *repository.FriendshipRepository
	history    *repository.HistoryRepository
	push       *repository.PushRepository
}

type services struct {
	storage      *service.StorageService
	spotify      *service.SpotifyClient
	auth         *service.AuthService
	user         *service.UserService
	feed         *service.FeedService
	comment      *service.CommentService
	reaction     *service.ReactionService
	friendship   *service.FriendshipService
	history      *service.HistoryService
	notification *service.NotificationService
	hub          *service.EventHub
}

type controllers struct {
	auth         *controller.AuthController
	user         *controller.UserController
	feed         *controller.FeedController
	comment      *controller.CommentController
	reaction     *controller.ReactionController
	friend       *controller.FriendController
	history      *controller.HistoryController
	spotify      *controller.SpotifyController
	notification *controller.NotificationController
	realtime     *controller.RealtimeController
	health       *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ApplyConfig 热更新配置：中间件持有的是 *config.Config，原地覆盖即可生效
func (a *App) ApplyConfig(newCfg *config.Config) {
	newCfg.ForceMigrate = a.Config.ForceMigrate
	newCfg.MigrateOnly = a.Config.MigrateOnly
	*a.Config = *newCfg
	for _, cb := range a.configCallbacks {
		cb(a.Config)
	}
	logger.Log.Info("Config reloaded")
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	return &repositories{
		user:       repository.NewUserRepository(db),
		token:      repository.NewTokenRepository(db),
		feed:       repository.NewFeedRepository(db),
		comment:    repository.NewCommentRepository(db),
		reaction:   repository.NewReactionRepository(db),
		friendship: repository.NewFriendshipRepository(db, rdb),
		history:    repository.NewHistoryRepository(db),
		push:       repository.NewPushRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.spotify = service.NewSpotifyClient(cfg, repos.token)
	s.auth = service.NewAuthService(repos.user, repos.token, s.spotify, rdb, cfg)
	s.user = service.NewUserService(repos.user, repos.friendship, s.storage)
	s.notification = service.NewNotificationService(repos.push, cfg)

	s.hub = service.NewEventHub(rdb, repos.friendship)
	go s.hub.Run()

	s.feed = service.NewFeedService(repos.feed, repos.user, repos.friendship, s.hub)
	s.comment = service.NewCommentService(repos.comment, repos.feed, s.hub, s.notification)
	s.reaction = service.NewReactionService(repos.reaction, repos.feed, s.hub, s.notification)
	s.friendship = service.NewFriendshipService(repos.friendship, repos.user, s.hub, s.notification)
	s.history = service.NewHistoryService(repos.history, repos.user, repos.feed, s.spotify, s.feed, s.notification)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:         controller.NewAuthController(s.auth, a.Config),
		user:         controller.NewUserController(s.user),
		feed:         controller.NewFeedController(s.feed),
		comment:      controller.NewCommentController(s.comment),
		reaction:     controller.NewReactionController(s.reaction),
		friend:       controller.NewFriendController(s.friendship),
		history:      controller.NewHistoryController(s.history),
		spotify:      controller.NewSpotifyController(s.spotify),
		notification: controller.NewNotificationController(s.notification),
		realtime:     controller.NewRealtimeController(s.hub),
		health:       controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 1000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 每分钟扫一次，到点的用户发布每日单曲
func (a *App) startBackgroundTasks(s *services) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		for range ticker.C {
			s.history.ProcessDailyReveals(time.Now())
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if cfg.ForceMigrate || cfg.MigrateOnly {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
			log.Fatalf("Failed to migrate database: %v", err)
		}
		if cfg.MigrateOnly {
			logger.Log.Info("Migration finished, exiting")
			os.Exit(0)
		}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db, rdb)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	gin.SetMode(cfg.Server.Mode)
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("peekify-backend", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.startBackgroundTasks(services)

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

	// 清理 WebSocket 连接和 Redis 在线状态，推送队列排空后退出
	if a.services != nil {
		if a.services.hub != nil {
			a.services.hub.Stop()
		}
		if a.services.notification != nil {
			a.services.notification.Stop()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
