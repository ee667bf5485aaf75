package cleanup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"immobile-portal/internal/metrics"
	"immobile-portal/internal/models"
	"immobile-portal/internal/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// errImageGone means another run removed the row after it was selected
var errImageGone = errors.New("image already deleted")

// Service physically deletes images of properties removed long ago
type Service struct {
	db     *gorm.DB
	store  storage.Storage
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new cleanup service
func NewService(db *gorm.DB, store storage.Storage, logger *zap.Logger) *Service {
	return &Service{db: db, store: store, logger: logger, now: time.Now}
}

// CleanupConfig holds configuration for cleanup operations
type CleanupConfig struct {
	RetentionDays    int  // Days a removed property keeps its images (default: 90)
	MaxDeletionCount int  // Safety limit per run
	DryRun           bool // Only report what would be deleted
}

// DefaultCleanupConfig returns default configuration
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		RetentionDays:    90,
		MaxDeletionCount: 10000,
		DryRun:           false,
	}
}

// CleanupResult holds the result of a cleanup operation
type CleanupResult struct {
	TargetCount   int       `json:"target_count"`
	DeletedCount  int       `json:"deleted_count"`
	ErrorCount    int       `json:"error_count"`
	DryRun        bool      `json:"dry_run"`
	ExecutedAt    time.Time `json:"executed_at"`
	DeletedImages []int64   `json:"deleted_images"`
	Errors        []string  `json:"errors,omitempty"`
}

// ExpiredImage is an image whose property was removed before the retention cutoff
type ExpiredImage struct {
	models.Image
	RemovedAt time.Time
}

// FindExpiredImages finds images eligible for physical deletion.
// The owning property must have status 'removed' and removed_at older than retentionDays.
func (s *Service) FindExpiredImages(ctx context.Context, retentionDays int) ([]ExpiredImage, error) {
	cutoff := s.now().AddDate(0, 0, -retentionDays)

	var immobiles []models.Immobile
	err := s.db.WithContext(ctx).
		Where("status = ? AND removed_at < ?", models.ImmobileStatusRemoved, cutoff).
		Find(&immobiles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find removed immobiles: %w", err)
	}
	if len(immobiles) == 0 {
		return nil, nil
	}

	removedAt := make(map[int64]time.Time, len(immobiles))
	ids := make([]int64, 0, len(immobiles))
	for _, im := range immobiles {
		ids = append(ids, im.ID)
		if im.RemovedAt != nil {
			removedAt[im.ID] = *im.RemovedAt
		}
	}

	var images []models.Image
	if err := s.db.WithContext(ctx).Where("immobile_id IN ?", ids).Order("id ASC").Find(&images).Error; err != nil {
		return nil, fmt.Errorf("failed to find images of removed immobiles: %w", err)
	}

	expired := make([]ExpiredImage, 0, len(images))
	for _, img := range images {
		expired = append(expired, ExpiredImage{Image: img, RemovedAt: removedAt[img.ImmobileID]})
	}

	s.logger.Info("found expired images",
		zap.Int("count", len(expired)),
		zap.String("cutoff", cutoff.Format("2006-01-02")),
	)
	return expired, nil
}

// PhysicallyDelete deletes expired images from the database and object storage.
// Each image is handled in its own transaction; the row survives when the object cannot be removed.
func (s *Service) PhysicallyDelete(ctx context.Context, config CleanupConfig) (*CleanupResult, error) {
	result := &CleanupResult{
		DryRun:        config.DryRun,
		ExecutedAt:    s.now(),
		DeletedImages: []int64{},
	}

	expired, err := s.FindExpiredImages(ctx, config.RetentionDays)
	if err != nil {
		return nil, err
	}

	result.TargetCount = len(expired)
	if result.TargetCount == 0 {
		return result, nil
	}

	if result.TargetCount > config.MaxDeletionCount {
		return nil, fmt.Errorf("safety check failed: %d images exceed max deletion limit of %d",
			result.TargetCount, config.MaxDeletionCount)
	}

	s.logger.Info("starting image cleanup",
		zap.Int("targets", result.TargetCount),
		zap.Int("retention_days", config.RetentionDays),
		zap.Bool("dry_run", config.DryRun),
	)

	for _, img := range expired {
		if config.DryRun {
			s.logger.Info("[DRY-RUN] would delete image", zap.Int64("image_id", img.ID), zap.String("url", img.URL))
			result.DeletedImages = append(result.DeletedImages, img.ID)
			result.DeletedCount++
			continue
		}

		err := s.deleteImage(ctx, img)
		if errors.Is(err, errImageGone) {
			s.logger.Info("image already deleted", zap.Int64("image_id", img.ID))
			continue
		}
		if err != nil {
			errMsg := fmt.Sprintf("failed to delete image %d: %v", img.ID, err)
			s.logger.Error("image cleanup failed", zap.Int64("image_id", img.ID), zap.Error(err))
			result.Errors = append(result.Errors, errMsg)
			result.ErrorCount++
			continue
		}

		metrics.ImagesCleaned.Inc()
		result.DeletedImages = append(result.DeletedImages, img.ID)
		result.DeletedCount++
	}

	s.logger.Info("image cleanup completed",
		zap.Int("deleted", result.DeletedCount),
		zap.Int("targets", result.TargetCount),
		zap.Int("errors", result.ErrorCount),
		zap.Bool("dry_run", config.DryRun),
	)
	return result, nil
}

func (s *Service) deleteImage(ctx context.Context, img ExpiredImage) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Image{}, img.ID)
		if res.Error != nil {
			return fmt.Errorf("delete row: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errImageGone
		}

		deleteLog := models.ImageDeleteLog{
			ImageID:    img.ID,
			ImmobileID: img.ImmobileID,
			URL:        img.URL,
			RemovedAt:  img.RemovedAt,
			Reason:     models.DeleteReasonImmobileRemoved,
		}
		if err := tx.Create(&deleteLog).Error; err != nil {
			return fmt.Errorf("create delete log: %w", err)
		}

		// objects outside our bucket are left alone
		key, ok := s.store.KeyFromURL(img.URL)
		if !ok {
			return nil
		}
		if err := s.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete object %s: %w", key, err)
		}
		return nil
	})
}

// GetDeleteStats returns statistics about deleted images
func (s *Service) GetDeleteStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})
	db := s.db.WithContext(ctx)

	var totalDeleted int64
	if err := db.Model(&models.ImageDeleteLog{}).Count(&totalDeleted).Error; err != nil {
		return nil, err
	}
	stats["total_deleted"] = totalDeleted

	var reasonCounts []struct {
		Reason string
		Count  int64
	}
	if err := db.Model(&models.ImageDeleteLog{}).
		Select("reason, count(*) as count").
		Group("reason").
		Scan(&reasonCounts).Error; err != nil {
		return nil, err
	}

	reasonMap := make(map[string]int64)
	for _, rc := range reasonCounts {
		reasonMap[rc.Reason] = rc.Count
	}
	stats["by_reason"] = reasonMap

	var recentDeleted int64
	thirtyDaysAgo := s.now().AddDate(0, 0, -30)
	if err := db.Model(&models.ImageDeleteLog{}).
		Where("deleted_at >= ?", thirtyDaysAgo).
		Count(&recentDeleted).Error; err != nil {
		return nil, err
	}
	stats["deleted_last_30_days"] = recentDeleted

	return stats, nil
}

// GetRecentDeleteLogs returns recent delete log entries
func (s *Service) GetRecentDeleteLogs(ctx context.Context, limit int) ([]models.ImageDeleteLog, error) {
	logs := make([]models.ImageDeleteLog, 0)
	err := s.db.WithContext(ctx).Order("deleted_at DESC").Order("id DESC").Limit(limit).Find(&logs).Error
	return logs, err
}
