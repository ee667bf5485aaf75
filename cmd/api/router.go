package main

import (
	"net/http"
	"time"

	"immobile-portal/internal/cleanup"
	"immobile-portal/internal/config"
	"immobile-portal/internal/handlers"
	"immobile-portal/internal/metrics"
	"immobile-portal/internal/middleware"
	"immobile-portal/internal/models"
	"immobile-portal/internal/ratelimit"
	"immobile-portal/internal/repository"
	"immobile-portal/internal/scheduler"
	"immobile-portal/internal/storage"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type routerDeps struct {
	db          *gorm.DB
	images      repository.ImageRepository
	store       storage.Storage
	rateLimiter *ratelimit.RateLimiter
	cleanup     *cleanup.Service
	scheduler   *scheduler.Scheduler
}

func newRouter(cfg *config.Config, zlog *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(ginzap.Ginzap(zlog, time.RFC3339, true))
	r.Use(ginzap.CustomRecoveryWithZap(zlog, true, middleware.HandlePanics()))

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	r.Use(metrics.Middleware())
	r.Use(middleware.ErrorHandler(zlog))

	imageHandler := handlers.NewImageHandler(deps.images, zlog)
	adminHandler := handlers.NewAdminHandler(deps.db, deps.scheduler, deps.cleanup, zlog)
	auth := middleware.Auth(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	// Routes
	r.GET("/health", healthCheck)
	r.GET("/metrics", metrics.Handler())

	r.GET("/images", imageHandler.GetAllImages)
	r.GET("/images/:id", imageHandler.GetImageByID)
	r.POST("/images",
		auth,
		middleware.RateLimit(deps.rateLimiter),
		middleware.Upload(deps.store, zlog, cfg.Server.MaxUploadBytes(), cfg.Storage.KeyPrefix),
		imageHandler.CreateImage,
	)

	// Rate limiter stats endpoint
	r.GET("/api/ratelimit/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, deps.rateLimiter.GetStats())
	})

	admin := r.Group("/api/admin", auth, middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/stats", adminHandler.GetStats)
		admin.POST("/cleanup/run", adminHandler.RunCleanup)
		admin.GET("/cleanup/logs", adminHandler.GetDeleteLogs)
		admin.GET("/cleanup/schedule", adminHandler.GetCleanupSchedule)
	}

	return r
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now(),
	})
}
