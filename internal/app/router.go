package app

import (
	"flowbook_backend/docs"
	"flowbook_backend/internal/config"
	"flowbook_backend/internal/middleware"
	"flowbook_backend/internal/model"

	"flowbook_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		a.registerReaderRoutes(authGroup, c)
		a.registerPlayerRoutes(authGroup, c)
	}

	// 3. 教师/管理员相关接口
	a.registerAdminRoutes(router, c, repos, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

// 翻书器、共享音频通道与媒体网关
func (a *App) registerReaderRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.auth.GetProfile)

	rg.GET("/books", c.book.ListBooks)
	rg.GET("/books/:id", c.book.GetBook)

	viewer := rg.Group("/viewer")
	{
		viewer.POST("/open", c.viewer.Open)
		viewer.GET("/:sessionId", c.viewer.GetState)
		viewer.POST("/:sessionId/goto", c.viewer.GoToPage)
		viewer.POST("/:sessionId/view-mode", c.viewer.SetViewMode)
		viewer.POST("/:sessionId/page-size", c.viewer.SetPageSize)
		viewer.POST("/:sessionId/zoom", c.viewer.SetZoomPan)
		viewer.GET("/:sessionId/overlays", c.viewer.GetOverlays)
		viewer.POST("/:sessionId/close", c.viewer.Close)

		playback := viewer.Group("/:sessionId/playback")
		{
			playback.GET("", c.playback.GetState)
			playback.POST("/play", c.playback.Play)
			playback.POST("/pause", c.playback.Pause)
			playback.POST("/stop", c.playback.Stop)
			playback.POST("/volume", c.playback.SetVolume)
			playback.POST("/mute", c.playback.ToggleMute)
			playback.POST("/rate", c.playback.CycleRate)
		}
	}

	media := rg.Group("/media")
	{
		media.POST("/resolve", c.media.Resolve)
		media.POST("/release", c.media.Release)
	}
}

// 多活动作业会话
func (a *App) registerPlayerRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/assignments/:id", c.assignment.GetAssignment)
	rg.POST("/assignments/:id/start", c.player.Start)

	player := rg.Group("/player")
	{
		player.GET("/:sessionId", c.player.GetState)
		player.POST("/:sessionId/navigate", c.player.Navigate)
		player.POST("/:sessionId/activities/:activityId/result", c.player.SubmitActivityResult)
		player.POST("/:sessionId/submit", c.player.Submit)
		player.POST("/:sessionId/exit", c.player.Exit)
	}
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(
		middleware.AuthMiddleware(cfg),
		middleware.ActivityMiddleware(repos.user),
		middleware.RoleMiddleware(model.Teacher, model.Admin),
	)
	{
		admin.POST("/books", c.book.CreateBook)
		admin.POST("/books/:id/pages/:pageId/media", c.book.UploadPageMedia)
		admin.POST("/assignments", c.assignment.CreateAssignment)
		admin.GET("/assignments", c.assignment.ListMyAssignments)
	}
}
