package app

import (
	"edu_network_backend/internal/config"
	"edu_network_backend/internal/middleware"
	"edu_network_backend/internal/model"
	"edu_network_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		// 学习者/通用 只读接口
		a.registerReaderRoutes(authGroup, c)

		// 翻译与审核
		a.registerTranslationRoutes(authGroup, c)
	}

	// 3. 节点运营相关接口
	a.registerNodeOperatorRoutes(router, c, cfg)

	// 4. 编辑与管理员相关接口
	a.registerAdminRoutes(router, c, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}
}

func (a *App) registerReaderRoutes(group *gin.RouterGroup, c *controllers) {
	group.GET("/contents", c.content.ListContents)
	group.GET("/contents/:id", c.content.GetContent)
	group.GET("/contents/:id/versions", c.content.ListVersions)
	group.GET("/contents/:id/versions/:versionId", c.content.GetVersion)

	group.GET("/nodes/:nodeId", c.node.GetNode)
	group.GET("/nodes/:nodeId/contents", c.node.ListLocalContent)
	group.GET("/nodes/:nodeId/access", c.access.CheckAccess)
	group.GET("/local-contents/:id", c.node.GetLocalContent)

	group.GET("/translations/:id", c.translation.GetRequest)
}

func (a *App) registerTranslationRoutes(group *gin.RouterGroup, c *controllers) {
	group.POST("/translations/:id/submit", middleware.RoleMiddleware(model.Translator), c.translation.SubmitTranslation)
	group.POST("/translations/:id/approve", middleware.RoleMiddleware(model.Reviewer), c.translation.ApproveTranslation)
}

func (a *App) registerNodeOperatorRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	node := router.Group("/api/node")
	node.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.NodeOperator))
	{
		node.POST("/nodes/:nodeId/localize", c.node.Localize)
		node.POST("/translations", c.translation.CreateRequest)
	}
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg))
	{
		// 1. 内容与分发：允许编辑和管理员访问
		editor := admin.Group("/")
		editor.Use(middleware.RoleMiddleware(model.Editor))
		{
			editor.POST("/contents", c.content.CreateContent)
			editor.PATCH("/contents/:id/publish", c.content.SetPublished)
			editor.POST("/contents/:id/versions", c.content.CreateVersion)
			editor.POST("/contents/:id/versions/:versionId/promote", c.content.PromoteVersion)
			editor.POST("/contents/:id/distribute", c.distribution.Distribute)

			editor.GET("/distribution-jobs", c.distribution.ListJobs)
			editor.GET("/distribution-jobs/:id", c.distribution.GetJob)
			editor.POST("/distribution-jobs/:id/retry", c.distribution.RetryFailed)
		}

		// 2. 节点、订阅与审核积压：仅限管理员访问
		adminOnly := admin.Group("/")
		adminOnly.Use(middleware.RoleMiddleware(model.Admin))
		{
			adminOnly.POST("/nodes", c.node.RegisterNode)
			adminOnly.GET("/nodes", c.node.ListNodes)
			adminOnly.PATCH("/nodes/:nodeId/status", c.node.SetNodeStatus)

			adminOnly.POST("/subscriptions", c.access.CreateSubscription)
			adminOnly.GET("/translations/stale", c.translation.StaleReviews)
		}
	}
}
