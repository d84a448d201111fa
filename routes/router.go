package routes

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dongnelab/dongbo/config"
	"github.com/dongnelab/dongbo/controllers"
	"github.com/dongnelab/dongbo/middleware"
	"github.com/dongnelab/dongbo/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Request logging and recovery go through zap instead of gin's console
	// logger.
	gl, err := utils.NewRollingFileLogger(cfg.GinLogPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	// Uploaded images are served straight from the local store.
	r.Static(strings.TrimRight(cfg.UploadBaseURL, "/"), cfg.UploadDir)

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	postController := controllers.NewPostController(db)
	commentController := controllers.NewCommentController(db)
	empathyController := controllers.NewEmpathyController(db)
	notificationController := controllers.NewNotificationController(db)
	profileController := controllers.NewProfileController(db)
	adminController := controllers.NewAdminController(db)
	storageController := controllers.NewStorageController(db)
	configController := controllers.NewConfigController()

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimit(cfg.RateLimitPerMinute))
	authGroup.GET("/oauth/:provider/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", authController.OAuthCallback)
	authGroup.GET("/me", middleware.AuthOptional(db), authController.Me)
	authGroup.POST("/logout", authController.Logout)

	// Public reads
	api.GET("/config/public", configController.Public)
	api.GET("/posts", postController.List)
	api.GET("/posts/bounds", postController.GetByBounds)
	api.GET("/posts/search", postController.Search)
	api.GET("/posts/:id", postController.GetPost)
	api.GET("/posts/:id/comments", commentController.List)
	api.GET("/posts/:id/empathy/count", empathyController.GetCount)

	// Authenticated surface
	protected := api.Group("")
	protected.Use(middleware.AuthRequired(db), middleware.RateLimit(cfg.RateLimitPerMinute))

	protected.POST("/posts", postController.Create)
	protected.GET("/users/me/posts", postController.ListMyPosts)
	protected.GET("/users/me/empathized", postController.ListMyEmpathized)

	protected.POST("/posts/:id/comments", commentController.Create)
	protected.DELETE("/comments/:id", commentController.Delete)

	protected.POST("/posts/:id/empathy", empathyController.Add)
	protected.DELETE("/posts/:id/empathy", empathyController.Remove)
	protected.GET("/posts/:id/empathy", empathyController.HasEmpathized)

	protected.GET("/notifications", notificationController.List)
	protected.PATCH("/notifications/read-all", notificationController.MarkAllRead)
	protected.PATCH("/notifications/:id/read", notificationController.MarkRead)

	protected.GET("/profile", profileController.GetMe)
	protected.PATCH("/profile", profileController.Update)
	protected.GET("/profile/stats", profileController.GetStats)

	protected.POST("/storage/images", storageController.UploadImage)

	// Role check happens inside the handler, after authentication and
	// before any mutation.
	protected.PATCH("/admin/posts/:id/status", adminController.UpdatePostStatus)

	return r
}
