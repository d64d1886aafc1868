package api

import (
	"backend/internal/auth"
	"backend/internal/logger"
	middlewarepkg "backend/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册所有 API 路由
func RegisterRoutes(router *gin.Engine, container *AppContainer, handlers *Handlers) {
	// 主 API 组（向后兼容）
	api := router.Group("/api")
	api.Use(
		auth.AuthMiddleware(container.JWTService),
		middlewarepkg.GinTenantContextMiddleware(logger.Get()),
		middlewarepkg.RateLimitByTenant(container.RateLimiter),
	)
	registerAPIRoutes(api, container, handlers)

	// 版本化 API 组
	apiV1 := router.Group("/api/v1")
	apiV1.Use(
		auth.AuthMiddleware(container.JWTService),
		middlewarepkg.GinTenantContextMiddleware(logger.Get()),
		middlewarepkg.RateLimitByTenant(container.RateLimiter),
	)
	registerAPIRoutes(apiV1, container, handlers)
}

// registerAPIRoutes 注册需要认证的 API 路由
func registerAPIRoutes(apiGroup *gin.RouterGroup, container *AppContainer, h *Handlers) {
	// WebSocket 实时通知，按用户限流防止重连风暴
	apiGroup.GET("/ws/notifications",
		middlewarepkg.RateLimitMiddleware(container.RateLimiter),
		h.WebSocket.Connect)

	registerWorkflowRoutes(apiGroup, h)
	registerProjectRoutes(apiGroup, h)
	registerAssetRoutes(apiGroup, container, h)
	registerCommentRoutes(apiGroup, h)
	registerSettingsRoutes(apiGroup, h)
}

func registerWorkflowRoutes(apiGroup *gin.RouterGroup, h *Handlers) {
	workflows := apiGroup.Group("/workflows")
	{
		// 模板路由在参数路由之前注册，避免被 :id 吞掉
		workflows.GET("/templates", h.Template.ListTemplates)
		workflows.GET("/templates/:key", h.Template.GetTemplate)

		workflows.GET("", h.Workflow.ListWorkflows)
		workflows.POST("", h.Workflow.CreateWorkflow)
		workflows.GET("/:id", h.Workflow.GetWorkflow)
		workflows.PUT("/:id", h.Workflow.UpdateWorkflow)
		workflows.DELETE("/:id", h.Workflow.DeleteWorkflow)
		workflows.PUT("/:id/default", h.Workflow.SetDefaultWorkflow)
		workflows.POST("/:id/archive", h.Workflow.ArchiveWorkflow)
	}
}

func registerProjectRoutes(apiGroup *gin.RouterGroup, h *Handlers) {
	projects := apiGroup.Group("/projects")
	{
		projects.GET("", h.Project.ListProjects)
		projects.POST("", h.Project.CreateProject)
		projects.GET("/:id", h.Project.GetProject)
		projects.PUT("/:id", h.Project.UpdateProject)
		projects.DELETE("/:id", h.Project.DeleteProject)
		projects.GET("/:id/workflow", h.Project.GetProjectWorkflow)

		// 阶段评审人分配
		projects.GET("/:id/reviewers", h.Reviewer.ListReviewers)
		projects.POST("/:id/reviewers", h.Reviewer.AssignReviewer)
		projects.DELETE("/:id/reviewers/:assignmentId", h.Reviewer.UnassignReviewer)
	}
}

func registerAssetRoutes(apiGroup *gin.RouterGroup, container *AppContainer, h *Handlers) {
	folders := apiGroup.Group("/folders")
	{
		folders.GET("", h.Folder.ListFolders)
		folders.POST("", h.Folder.CreateFolder)
		folders.GET("/:id", h.Folder.GetFolder)
		folders.PUT("/:id", h.Folder.RenameFolder)
		folders.DELETE("/:id", h.Folder.DeleteFolder)
	}

	assets := apiGroup.Group("/assets")
	{
		assets.GET("", h.Asset.ListAssets)
		assets.POST("", h.Asset.CreateAsset)
		assets.GET("/:assetId", h.Asset.GetAsset)
		assets.PUT("/:assetId", h.Asset.UpdateAsset)
		assets.DELETE("/:assetId", h.Asset.DeleteAsset)
		assets.GET("/:assetId/status", h.Asset.GetAssetStatus)

		// 审批流
		assets.GET("/:assetId/approval", h.Approval.GetSummary)
		assets.POST("/:assetId/approval/submit", h.Approval.SubmitForReview)
		assets.POST("/:assetId/approval/final",
			middlewarepkg.RateLimitByEndpoint(container.RateLimiter),
			h.Approval.RecordFinalApproval)
		assets.POST("/:assetId/approval/recompute", h.Approval.RecomputeProgress)
		assets.PUT("/:assetId/approval/records/:recordId", h.Approval.SetReviewerStatus)

		// 素材评论
		assets.GET("/:assetId/comments", h.Comment.ListComments)
		assets.POST("/:assetId/comments", h.Comment.CreateComment)
	}
}

func registerCommentRoutes(apiGroup *gin.RouterGroup, h *Handlers) {
	comments := apiGroup.Group("/comments")
	{
		comments.PUT("/:id", h.Comment.UpdateComment)
		comments.PUT("/:id/resolve", h.Comment.ResolveComment)
		comments.DELETE("/:id", h.Comment.DeleteComment)
	}
}

func registerSettingsRoutes(apiGroup *gin.RouterGroup, h *Handlers) {
	settings := apiGroup.Group("/settings")
	{
		settings.GET("", h.Settings.GetSettings)
		settings.PUT("", h.Settings.UpdateSettings)
		settings.POST("/recent-searches", h.Settings.PushRecentSearch)
	}
}
