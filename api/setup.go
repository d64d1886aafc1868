package api

import (
	"os"
	"strings"
	"time"

	_ "backend/api/docs"
	approvalHandlers "backend/api/handlers/approvals"
	assetHandlers "backend/api/handlers/assets"
	commentHandlers "backend/api/handlers/comments"
	notificationHandlers "backend/api/handlers/notifications"
	projectHandlers "backend/api/handlers/projects"
	settingsHandlers "backend/api/handlers/settings"
	workflowHandlers "backend/api/handlers/workflows"

	"backend/internal/approval"
	"backend/internal/asset"
	"backend/internal/auth"
	"backend/internal/comment"
	"backend/internal/config"
	"backend/internal/infra"
	"backend/internal/infra/queue"
	"backend/internal/logger"
	"backend/internal/metrics"
	middlewarepkg "backend/internal/middleware"
	"backend/internal/notification"
	"backend/internal/project"
	"backend/internal/settings"
	"backend/internal/worker"
	"backend/internal/workflow"
	workflowTpl "backend/internal/workflow/template"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AppContainer 汇集路由层需要的共享组件
type AppContainer struct {
	JWTService  *auth.JWTService
	QueueClient queue.Client
	Hub         *notification.WebSocketHub
	RateLimiter *middlewarepkg.RateLimiter
}

// Handlers 汇集所有 HTTP Handler
type Handlers struct {
	Workflow  *workflowHandlers.WorkflowHandler
	Template  *workflowHandlers.TemplateHandler
	Project   *projectHandlers.ProjectHandler
	Reviewer  *projectHandlers.ReviewerHandler
	Folder    *assetHandlers.FolderHandler
	Asset     *assetHandlers.AssetHandler
	Approval  *approvalHandlers.ApprovalHandler
	Comment   *commentHandlers.CommentHandler
	Settings  *settingsHandlers.SettingsHandler
	WebSocket *notificationHandlers.WebSocketHandler
}

// SetupRouter 设置并返回 Gin 路由和 Worker 服务器
func SetupRouter(db *gorm.DB, cfg *config.Config) (*gin.Engine, *worker.Server) {
	router := gin.New()

	// 统一归一化 Redis 配置，优先使用 cfg.Redis，再回退到环境变量
	redisCfg := normalizeRedisConfig(cfg.Redis)
	cfg.Redis = redisCfg

	// 初始化队列客户端
	queueClient := queue.NewClient(redisCfg)

	// 初始化 Redis 客户端（令牌黑名单、离线消息、用户设置）
	redisClient, err := infra.InitRedis(&redisCfg)
	if err != nil {
		logger.Warn("Redis 不可用，离线消息与用户设置将退回内存实现", zap.Error(err))
		redisClient = nil
	}

	// 初始化认证服务
	jwtService := newJWTService(cfg, redisClient)

	// WebSocket 推送中心，带离线消息回放
	offlineLimit := cfg.Notify.OfflineLimit
	if offlineLimit <= 0 {
		offlineLimit = 50
	}
	offlineTTL := parseDurationOr(cfg.Notify.OfflineTTL, 72*time.Hour)
	var offlineStore notification.OfflineStore
	if redisClient != nil {
		offlineStore = notification.NewRedisOfflineStore(redisClient, offlineLimit, offlineTTL)
	} else {
		offlineStore = notification.NewMemoryOfflineStore(offlineLimit)
	}
	hub := notification.NewWebSocketHub(
		notification.WithOfflineStore(offlineStore),
		notification.WithHubLogger(logger.Get()),
	)

	// 通知通道与审批事件分发器
	notifier := notification.NewMultiNotifier(nil, &notification.WebhookConfig{
		DefaultURL: cfg.Notify.WebhookURL,
		Timeout:    10 * time.Second,
	}, hub)
	dispatcher := notification.NewApprovalDispatcher(db, notifier, cfg.Notify.WebhookURL)

	// Worker 服务器（asynq 消费审批通知队列）
	workerServer := worker.NewServer(redisCfg, dispatcher, logger.Get())

	// 业务服务
	workflowSvc := workflow.NewWorkflowService(db)
	projectSvc := project.NewProjectService(db, workflowSvc)
	assetSvc := asset.NewAssetService(db, projectSvc)
	publisher := queue.NewApprovalPublisher(queueClient)
	approvalSvc := approval.NewService(db, publisher)
	commentSvc := comment.NewCommentService(db)

	// 用户设置仓库：优先 Redis
	var settingsRepo settings.Repository
	if redisClient != nil {
		settingsRepo = settings.NewRedisRepository(redisClient, parseDurationOr(cfg.Settings.TTL, 0))
	} else {
		settingsRepo = settings.NewMemoryRepository()
	}

	// 阶段模板
	templateLoader := workflowTpl.NewTemplateLoader()
	templatePath := cfg.Workflow.TemplatePath
	if templatePath == "" {
		templatePath = "config/stage_templates.yaml"
	}
	if err := templateLoader.LoadFromFile(templatePath); err != nil {
		logger.Warn("加载阶段模板失败，模板列表为空", zap.String("path", templatePath), zap.Error(err))
	}

	// 系统指标收集
	if sqlDB, err := db.DB(); err == nil {
		metrics.NewSystemCollector(sqlDB)
	}

	container := &AppContainer{
		JWTService:  jwtService,
		QueueClient: queueClient,
		Hub:         hub,
		RateLimiter: middlewarepkg.NewRateLimiter(middlewarepkg.DefaultRateLimiterConfig()),
	}

	handlers := &Handlers{
		Workflow:  workflowHandlers.NewWorkflowHandler(workflowSvc),
		Template:  workflowHandlers.NewTemplateHandler(templateLoader),
		Project:   projectHandlers.NewProjectHandler(projectSvc),
		Reviewer:  projectHandlers.NewReviewerHandler(approvalSvc),
		Folder:    assetHandlers.NewFolderHandler(assetSvc),
		Asset:     assetHandlers.NewAssetHandler(assetSvc, approvalSvc),
		Approval:  approvalHandlers.NewApprovalHandler(approvalSvc),
		Comment:   commentHandlers.NewCommentHandler(commentSvc),
		Settings:  settingsHandlers.NewSettingsHandler(settingsRepo),
		WebSocket: notificationHandlers.NewWebSocketHandler(hub),
	}

	// 全局中间件
	router.Use(gin.Recovery())
	router.Use(middlewarepkg.RequestIDMiddleware())
	router.Use(RequestLogger())
	router.Use(CORS())
	router.Use(metrics.PrometheusMiddleware())

	// 系统端点
	router.GET("/health", HealthCheck(db))
	router.GET("/ready", ReadinessCheck(db))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	RegisterRoutes(router, container, handlers)

	return router, workerServer
}

// newJWTService 依据配置与环境变量初始化 JWT 服务
func newJWTService(cfg *config.Config, redisClient redis.UniversalClient) *auth.JWTService {
	secret := strings.TrimSpace(cfg.JWT.Secret)
	if secret == "" {
		secret = strings.TrimSpace(os.Getenv("JWT_SECRET_KEY"))
	}
	if secret == "" {
		// 生产模式必须显式配置密钥，防止使用弱默认值
		appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
		if strings.EqualFold(cfg.Server.Mode, "release") || strings.EqualFold(appEnv, "prod") || strings.EqualFold(appEnv, "production") {
			logger.Fatal("JWT 密钥未配置，生产环境禁止使用默认密钥")
		}
		secret = "default_jwt_secret_key_change_in_production"
		logger.Warn("JWT 密钥未配置，已回退为开发默认值，请在生产环境设置强随机密钥")
	}

	issuer := cfg.JWT.Issuer
	if issuer == "" {
		issuer = "AssetStudio"
	}

	return auth.NewJWTService(secret, issuer, redisClient)
}

// parseDurationOr 解析时长字符串，失败时返回默认值
func parseDurationOr(raw string, def time.Duration) time.Duration {
	if strings.TrimSpace(raw) == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
