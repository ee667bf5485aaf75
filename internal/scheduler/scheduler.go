package scheduler

import (
	"context"
	"sync"
	"time"

	"immobile-portal/internal/cleanup"
	"immobile-portal/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs the image cleanup on a cron schedule
type Scheduler struct {
	cron      *cron.Cron
	cleanup   *cleanup.Service
	config    config.CleanupConfig
	logger    *zap.Logger
	entryID   cron.EntryID
	isRunning bool

	// guards against overlapping runs
	runMu sync.Mutex
}

// NewScheduler creates a new scheduler
func NewScheduler(svc *cleanup.Service, cfg config.CleanupConfig, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		cleanup: svc,
		config:  cfg,
		logger:  logger,
	}
}

// Start registers the cleanup job and starts the cron loop
func (s *Scheduler) Start() error {
	if !s.config.Enabled {
		s.logger.Info("scheduler: image cleanup is disabled in configuration")
		return nil
	}

	id, err := s.cron.AddFunc(s.config.Schedule, func() {
		if _, err := s.RunNow(context.Background()); err != nil {
			s.logger.Error("scheduler: image cleanup failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	s.entryID = id
	s.cron.Start()
	s.isRunning = true
	s.logger.Info("scheduler: started", zap.String("schedule", s.config.Schedule))
	return nil
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	if s.isRunning {
		<-s.cron.Stop().Done()
		s.isRunning = false
		s.logger.Info("scheduler: stopped")
	}
}

// RunNow executes the cleanup immediately with the configured settings
func (s *Scheduler) RunNow(ctx context.Context) (*cleanup.CleanupResult, error) {
	return s.Run(ctx, cleanup.CleanupConfig{
		RetentionDays:    s.config.RetentionDays,
		MaxDeletionCount: s.config.MaxDeletionCount,
		DryRun:           s.config.DryRun,
	})
}

// Run executes the cleanup with cfg. Runs are serialized with the cron job.
func (s *Scheduler) Run(ctx context.Context, cfg cleanup.CleanupConfig) (*cleanup.CleanupResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	s.logger.Info("scheduler: starting image cleanup", zap.Bool("dry_run", cfg.DryRun))
	return s.cleanup.PhysicallyDelete(ctx, cfg)
}

// Status describes the schedule for the admin API
type Status struct {
	Enabled  bool       `json:"enabled"`
	Schedule string     `json:"schedule"`
	Running  bool       `json:"running"`
	NextRun  *time.Time `json:"next_run,omitempty"`
}

// Status returns the configured schedule and the next planned run
func (s *Scheduler) Status() Status {
	st := Status{
		Enabled:  s.config.Enabled,
		Schedule: s.config.Schedule,
		Running:  s.isRunning,
	}
	if s.isRunning {
		next := s.cron.Entry(s.entryID).Next
		if !next.IsZero() {
			st.NextRun = &next
		}
	}
	return st
}
