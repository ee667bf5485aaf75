package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"immobile-portal/internal/apierror"
	"immobile-portal/internal/cleanup"
	"immobile-portal/internal/middleware"
	"immobile-portal/internal/models"
	"immobile-portal/internal/scheduler"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxDeleteLogLimit = 1000

// AdminHandler handles admin-related requests
type AdminHandler struct {
	db             *gorm.DB
	scheduler      *scheduler.Scheduler
	cleanupService *cleanup.Service
	logger         *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(db *gorm.DB, sched *scheduler.Scheduler, cleanupService *cleanup.Service, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		db:             db,
		scheduler:      sched,
		cleanupService: cleanupService,
		logger:         logger,
	}
}

// GetStats returns image statistics
func (h *AdminHandler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()
	db := h.db.WithContext(ctx)
	stats := make(map[string]interface{})

	var imageCount int64
	if err := db.Model(&models.Image{}).Count(&imageCount).Error; err != nil {
		_ = c.Error(apierror.Internal(err))
		return
	}

	var activeCount, removedCount int64
	if err := db.Model(&models.Immobile{}).Where("status = ?", models.ImmobileStatusActive).Count(&activeCount).Error; err != nil {
		_ = c.Error(apierror.Internal(err))
		return
	}
	if err := db.Model(&models.Immobile{}).Where("status = ?", models.ImmobileStatusRemoved).Count(&removedCount).Error; err != nil {
		_ = c.Error(apierror.Internal(err))
		return
	}

	type ImmobileStat struct {
		ImmobileID int64 `json:"immobileId"`
		Count      int64 `json:"count"`
	}
	top := make([]ImmobileStat, 0)
	err := db.Model(&models.Image{}).
		Select("immobile_id, count(*) as count").
		Group("immobile_id").
		Order("count DESC").
		Limit(20).
		Scan(&top).Error
	if err != nil {
		_ = c.Error(apierror.Internal(err))
		return
	}

	stats["images"] = map[string]interface{}{
		"total":        imageCount,
		"per_immobile": top,
	}
	stats["immobiles"] = map[string]interface{}{
		"active":  activeCount,
		"removed": removedCount,
	}

	// Delete logs statistics
	deleteStats, err := h.cleanupService.GetDeleteStats(ctx)
	if err != nil {
		h.logger.Warn("failed to get delete stats", zap.Error(err))
	} else {
		stats["deletions"] = deleteStats
	}

	c.JSON(http.StatusOK, stats)
}

// RunCleanup executes physical deletion of images of removed properties
func (h *AdminHandler) RunCleanup(c *gin.Context) {
	var req struct {
		RetentionDays    int   `json:"retention_days"`     // Days to keep (default: 90)
		MaxDeletionCount int   `json:"max_deletion_count"` // Safety limit (default: 10000)
		DryRun           *bool `json:"dry_run"`            // Dry run mode (default: true)
	}

	// an empty body runs with the defaults
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		_ = c.Error(apierror.Validation("Corpo da requisição inválido"))
		return
	}

	config := cleanup.DefaultCleanupConfig()
	if req.RetentionDays > 0 {
		config.RetentionDays = req.RetentionDays
	}
	if req.MaxDeletionCount > 0 {
		config.MaxDeletionCount = req.MaxDeletionCount
	}
	config.DryRun = req.DryRun == nil || *req.DryRun

	user, _ := middleware.CurrentUser(c)
	userID := ""
	if user != nil {
		userID = user.ID
	}
	h.logger.Info("admin: running cleanup",
		zap.String("user_id", userID),
		zap.Int("retention_days", config.RetentionDays),
		zap.Int("max_deletion_count", config.MaxDeletionCount),
		zap.Bool("dry_run", config.DryRun),
	)

	result, err := h.scheduler.Run(c.Request.Context(), config)
	if err != nil {
		_ = c.Error(apierror.Internal(err))
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetDeleteLogs returns recent delete log entries
func (h *AdminHandler) GetDeleteLogs(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}
	if limit > maxDeleteLogLimit {
		limit = maxDeleteLogLimit
	}

	logs, err := h.cleanupService.GetRecentDeleteLogs(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(apierror.Internal(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"count": len(logs),
	})
}

// GetCleanupSchedule returns the cleanup schedule state
func (h *AdminHandler) GetCleanupSchedule(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Agendador indisponível"})
		return
	}

	c.JSON(http.StatusOK, h.scheduler.Status())
}
