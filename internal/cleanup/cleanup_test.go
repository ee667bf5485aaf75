package cleanup

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"immobile-portal/internal/models"
	"immobile-portal/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixture struct {
	db    *gorm.DB
	store *storage.MemoryStorage
	svc   *Service
	now   time.Time
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.Immobile{}, &models.Image{}, &models.ImageDeleteLog{}))

	f := &fixture{
		db:    db,
		store: storage.NewMemoryStorage("https://cdn.example.com"),
		now:   time.Now(),
	}
	f.svc = NewService(db, f.store, zaptest.NewLogger(t))
	f.svc.now = func() time.Time { return f.now }
	return f
}

// seed creates a property removed daysAgo days ago (active when daysAgo < 0) with n stored images
func (f *fixture) seed(t *testing.T, title string, daysAgo, n int) models.Immobile {
	t.Helper()
	im := models.Immobile{Title: title, Status: models.ImmobileStatusActive}
	if daysAgo >= 0 {
		removedAt := f.now.AddDate(0, 0, -daysAgo)
		im.Status = models.ImmobileStatusRemoved
		im.RemovedAt = &removedAt
	}
	require.NoError(t, f.db.Create(&im).Error)

	for i := 0; i < n; i++ {
		key := "images/" + strings.ReplaceAll(title, " ", "-") + "-" + string(rune('a'+i)) + ".jpg"
		url, err := f.store.Upload(context.Background(), key, strings.NewReader("jpeg"), 4, "image/jpeg")
		require.NoError(t, err)
		require.NoError(t, f.db.Create(&models.Image{URL: url, ImmobileID: im.ID}).Error)
	}
	return im
}

func (f *fixture) imageCount(t *testing.T) int64 {
	var n int64
	require.NoError(t, f.db.Model(&models.Image{}).Count(&n).Error)
	return n
}

func TestFindExpiredImages(t *testing.T) {
	f := setup(t)
	old := f.seed(t, "old listing", 120, 2)
	f.seed(t, "recent listing", 10, 1)
	f.seed(t, "active listing", -1, 3)

	expired, err := f.svc.FindExpiredImages(context.Background(), 90)
	require.NoError(t, err)
	require.Len(t, expired, 2)
	for _, img := range expired {
		assert.Equal(t, old.ID, img.ImmobileID)
		assert.False(t, img.RemovedAt.IsZero())
	}
}

func TestPhysicallyDelete(t *testing.T) {
	f := setup(t)
	f.seed(t, "old listing", 120, 2)
	f.seed(t, "active listing", -1, 1)
	ctx := context.Background()

	result, err := f.svc.PhysicallyDelete(ctx, DefaultCleanupConfig())
	require.NoError(t, err)

	assert.Equal(t, 2, result.TargetCount)
	assert.Equal(t, 2, result.DeletedCount)
	assert.Zero(t, result.ErrorCount)
	assert.Len(t, result.DeletedImages, 2)
	assert.Equal(t, int64(1), f.imageCount(t))
	assert.Equal(t, 1, f.store.Len())

	logs, err := f.svc.GetRecentDeleteLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	for _, l := range logs {
		assert.Equal(t, models.DeleteReasonImmobileRemoved, l.Reason)
		assert.Contains(t, l.URL, "old-listing")
	}

	stats, err := f.svc.GetDeleteStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats["total_deleted"])
	assert.Equal(t, map[string]int64{models.DeleteReasonImmobileRemoved: 2}, stats["by_reason"])
}

func TestPhysicallyDelete_DryRun(t *testing.T) {
	f := setup(t)
	f.seed(t, "old listing", 120, 2)

	cfg := DefaultCleanupConfig()
	cfg.DryRun = true
	result, err := f.svc.PhysicallyDelete(context.Background(), cfg)
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Equal(t, 2, result.DeletedCount)
	assert.Equal(t, int64(2), f.imageCount(t))
	assert.Equal(t, 2, f.store.Len())
}

func TestPhysicallyDelete_NothingToDo(t *testing.T) {
	f := setup(t)
	f.seed(t, "active listing", -1, 1)

	result, err := f.svc.PhysicallyDelete(context.Background(), DefaultCleanupConfig())
	require.NoError(t, err)
	assert.Zero(t, result.TargetCount)
	assert.Empty(t, result.DeletedImages)
}

func TestPhysicallyDelete_SafetyLimit(t *testing.T) {
	f := setup(t)
	f.seed(t, "old listing", 120, 3)

	cfg := DefaultCleanupConfig()
	cfg.MaxDeletionCount = 2
	_, err := f.svc.PhysicallyDelete(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "safety check failed")
	assert.Equal(t, int64(3), f.imageCount(t))
}

type brokenStorage struct {
	*storage.MemoryStorage
}

func (brokenStorage) Delete(ctx context.Context, key string) error {
	return errors.New("storage offline")
}

func TestPhysicallyDelete_StorageFailureKeepsRow(t *testing.T) {
	f := setup(t)
	f.seed(t, "old listing", 120, 1)
	f.svc.store = brokenStorage{f.store}

	result, err := f.svc.PhysicallyDelete(context.Background(), DefaultCleanupConfig())
	require.NoError(t, err)

	assert.Equal(t, 1, result.ErrorCount)
	assert.Zero(t, result.DeletedCount)
	assert.Equal(t, int64(1), f.imageCount(t))

	var logs int64
	require.NoError(t, f.db.Model(&models.ImageDeleteLog{}).Count(&logs).Error)
	assert.Zero(t, logs)
}

func TestDeleteImage_RowAlreadyGone(t *testing.T) {
	f := setup(t)
	f.seed(t, "old listing", 120, 1)
	ctx := context.Background()

	expired, err := f.svc.FindExpiredImages(ctx, 90)
	require.NoError(t, err)
	require.Len(t, expired, 1)

	// another run got there first
	require.NoError(t, f.db.Delete(&models.Image{}, expired[0].ID).Error)

	err = f.svc.deleteImage(ctx, expired[0])
	assert.ErrorIs(t, err, errImageGone)

	var logs int64
	require.NoError(t, f.db.Model(&models.ImageDeleteLog{}).Count(&logs).Error)
	assert.Zero(t, logs)
	assert.Equal(t, 1, f.store.Len())
}
