package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	JobCacheRollover = "maintenance.cache_rollover"
	JobOrphanCleanup = "maintenance.orphan_cleanup"
)

type orphanCleaner interface {
	CleanupOrphans(ctx context.Context) (int, error)
}

// MaintenanceConfig holds the cron schedules, evaluated in Location.
type MaintenanceConfig struct {
	Location          *time.Location
	CacheRolloverCron string
	OrphanCleanupCron string
	Timeout           time.Duration
}

// MaintenanceService runs recurring housekeeping: dropping cached feed views
// when the campus day rolls over and removing unreferenced uploads.
type MaintenanceService struct {
	cache   feedInvalidator
	assets  orphanCleaner
	metrics *MetricsService
	logger  *zap.Logger
	cfg     MaintenanceConfig

	mu        sync.Mutex
	scheduler *cron.Cron
}

// NewMaintenanceService constructs the service. Empty schedules disable the
// corresponding task.
func NewMaintenanceService(cache feedInvalidator, assets orphanCleaner, metrics *MetricsService, logger *zap.Logger, cfg MaintenanceConfig) *MaintenanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &MaintenanceService{cache: cache, assets: assets, metrics: metrics, logger: logger, cfg: cfg}
}

// Start registers the schedules and starts the scheduler.
func (s *MaintenanceService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scheduler != nil {
		return nil
	}

	scheduler := cron.New(cron.WithLocation(s.cfg.Location))
	if s.cfg.CacheRolloverCron != "" && s.cache != nil {
		if _, err := scheduler.AddFunc(s.cfg.CacheRolloverCron, s.scheduled(JobCacheRollover, s.RolloverCache)); err != nil {
			return fmt.Errorf("cache rollover schedule %q: %w", s.cfg.CacheRolloverCron, err)
		}
	}
	if s.cfg.OrphanCleanupCron != "" && s.assets != nil {
		if _, err := scheduler.AddFunc(s.cfg.OrphanCleanupCron, s.scheduled(JobOrphanCleanup, s.CleanupOrphans)); err != nil {
			return fmt.Errorf("orphan cleanup schedule %q: %w", s.cfg.OrphanCleanupCron, err)
		}
	}

	scheduler.Start()
	s.scheduler = scheduler
	s.logger.Info("maintenance scheduler started",
		zap.Int("entries", len(scheduler.Entries())),
		zap.String("timezone", s.cfg.Location.String()),
	)
	return nil
}

// Stop halts the scheduler and waits for running tasks to return.
func (s *MaintenanceService) Stop() {
	s.mu.Lock()
	scheduler := s.scheduler
	s.scheduler = nil
	s.mu.Unlock()
	if scheduler == nil {
		return
	}
	<-scheduler.Stop().Done()
	s.logger.Info("maintenance scheduler stopped")
}

// RolloverCache drops every cached feed view. Cached views are keyed by the
// campus date, so this only reclaims memory early.
func (s *MaintenanceService) RolloverCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.InvalidateFeed(ctx, "")
}

// CleanupOrphans removes uploads that no record references.
func (s *MaintenanceService) CleanupOrphans(ctx context.Context) error {
	if s.assets == nil {
		return nil
	}
	removed, err := s.assets.CleanupOrphans(ctx)
	if removed > 0 {
		s.logger.Info("orphaned assets removed", zap.Int("count", removed))
	}
	return err
}

func (s *MaintenanceService) scheduled(name string, task func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
		defer cancel()

		started := time.Now()
		err := task(ctx)
		s.metrics.RecordJob(name, err)
		if err != nil {
			s.logger.Error("maintenance task failed", zap.String("task", name), zap.Error(err))
			return
		}
		s.logger.Debug("maintenance task finished", zap.String("task", name), zap.Duration("duration", time.Since(started)))
	}
}
