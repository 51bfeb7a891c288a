package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Sweeper is anything holding expirable entries, e.g. *cache.TTL.
type Sweeper interface {
	Sweep() int
}

// Scheduler periodically drops expired cache entries so keyed caches do not
// grow without bound between reads.
type Scheduler struct {
	scheduler *gocron.Scheduler
	sweepers  map[string]Sweeper
	interval  time.Duration
	logger    *zap.Logger
}

// New creates a new Scheduler.
func New(interval time.Duration, sweepers map[string]Sweeper, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		sweepers:  sweepers,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the sweep job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.sweepers) == 0 {
		s.logger.Info("scheduler: no caches registered; nothing to schedule")
		return nil
	}

	interval := s.interval
	if interval <= 0 {
		interval = time.Minute
	}

	_, err := s.scheduler.Every(interval).WaitForSchedule().Do(s.SweepAll)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// SweepAll runs one pass over every registered cache.
func (s *Scheduler) SweepAll() {
	for name, sw := range s.sweepers {
		if n := sw.Sweep(); n > 0 {
			s.logger.Info("scheduler: swept expired cache entries",
				zap.String("cache", name), zap.Int("removed", n))
		}
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
