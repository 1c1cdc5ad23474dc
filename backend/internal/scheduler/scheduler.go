package scheduler

import (
	"eventpulse/backend/internal/config"
	"eventpulse/backend/internal/dedup"
	"eventpulse/backend/internal/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler runs periodic engine maintenance. Currently the only job is a
// cache clear, which bounds matcher memory on long-running instances.
type Scheduler struct {
	cron *cron.Cron
	orch *dedup.Orchestrator
	cfg  config.SchedulerConfig
}

func NewScheduler(orch *dedup.Orchestrator, cfg config.SchedulerConfig) *Scheduler {
	// Cron with second precision
	c := cron.New(cron.WithSeconds())

	return &Scheduler{
		cron: c,
		orch: orch,
		cfg:  cfg,
	}
}

func (s *Scheduler) Start() error {
	logger.Info().Str("cache_clear_spec", s.cfg.CacheClearSpec).Msg("starting maintenance scheduler")

	_, err := s.cron.AddFunc(s.cfg.CacheClearSpec, func() {
		stats := s.orch.CacheStats()
		s.orch.ClearCaches()
		logger.Info().
			Int("fingerprints_dropped", stats.Fingerprints).
			Int("similarities_dropped", stats.Similarities).
			Msg("scheduled cache clear")
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logger.Info().Msg("maintenance scheduler started")

	return nil
}

func (s *Scheduler) Stop() {
	logger.Info().Msg("stopping maintenance scheduler")
	s.cron.Stop()
	logger.Info().Msg("maintenance scheduler stopped")
}

// RunCacheClearNow triggers the cache clear job immediately.
// This is useful for testing or manual triggering.
func (s *Scheduler) RunCacheClearNow() {
	s.orch.ClearCaches()
}

// GetScheduledJobs returns information about scheduled jobs
func (s *Scheduler) GetScheduledJobs() []cron.Entry {
	return s.cron.Entries()
}
