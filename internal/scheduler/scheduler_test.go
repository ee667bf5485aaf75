package scheduler

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"immobile-portal/internal/cleanup"
	"immobile-portal/internal/config"
	"immobile-portal/internal/models"
	"immobile-portal/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newCleanupService(t *testing.T) *cleanup.Service {
	t.Helper()
	svc, _ := newCleanupFixture(t)
	return svc
}

func newCleanupFixture(t *testing.T) (*cleanup.Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.Immobile{}, &models.Image{}, &models.ImageDeleteLog{}))

	return cleanup.NewService(db, storage.NewMemoryStorage("https://cdn.example.com"), zaptest.NewLogger(t)), db
}

func TestScheduler_Disabled(t *testing.T) {
	s := NewScheduler(newCleanupService(t), config.CleanupConfig{Enabled: false, Schedule: "0 3 * * *"}, zaptest.NewLogger(t))

	require.NoError(t, s.Start())
	st := s.Status()
	assert.False(t, st.Enabled)
	assert.False(t, st.Running)
	assert.Nil(t, st.NextRun)
	s.Stop()
}

func TestScheduler_StartAndStatus(t *testing.T) {
	s := NewScheduler(newCleanupService(t), config.CleanupConfig{Enabled: true, Schedule: "0 3 * * *"}, zaptest.NewLogger(t))

	require.NoError(t, s.Start())
	defer s.Stop()

	st := s.Status()
	assert.True(t, st.Running)
	require.NotNil(t, st.NextRun)
	assert.Equal(t, 3, st.NextRun.Hour())
	assert.Equal(t, 0, st.NextRun.Minute())
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	s := NewScheduler(newCleanupService(t), config.CleanupConfig{Enabled: true, Schedule: "every day"}, zaptest.NewLogger(t))

	assert.Error(t, s.Start())
}

func TestScheduler_RunNow(t *testing.T) {
	s := NewScheduler(newCleanupService(t), config.CleanupConfig{RetentionDays: 90, MaxDeletionCount: 10, DryRun: true}, zaptest.NewLogger(t))

	result, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Zero(t, result.TargetCount)
}

func TestScheduler_ConcurrentRunsDeleteOnce(t *testing.T) {
	svc, db := newCleanupFixture(t)
	removedAt := time.Now().AddDate(0, 0, -120)
	im := models.Immobile{Title: "Apartamento", Status: models.ImmobileStatusRemoved, RemovedAt: &removedAt}
	require.NoError(t, db.Create(&im).Error)
	for i := 0; i < 5; i++ {
		url := "https://cdn.example.com/images/" + strconv.Itoa(i) + ".jpg"
		require.NoError(t, db.Create(&models.Image{URL: url, ImmobileID: im.ID}).Error)
	}

	s := NewScheduler(svc, config.CleanupConfig{RetentionDays: 90, MaxDeletionCount: 100}, zaptest.NewLogger(t))
	cfg := cleanup.CleanupConfig{RetentionDays: 90, MaxDeletionCount: 100}

	var wg sync.WaitGroup
	results := make([]*cleanup.CleanupResult, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := s.Run(context.Background(), cfg)
			if assert.NoError(t, err) {
				results[i] = result
			}
		}(i)
	}
	wg.Wait()

	require.NotNil(t, results[0])
	require.NotNil(t, results[1])
	assert.Equal(t, 5, results[0].DeletedCount+results[1].DeletedCount)

	var logs []models.ImageDeleteLog
	require.NoError(t, db.Find(&logs).Error)
	assert.Len(t, logs, 5)
	for _, l := range logs {
		assert.True(t, strings.HasPrefix(l.URL, "https://cdn.example.com/images/"))
	}
}
