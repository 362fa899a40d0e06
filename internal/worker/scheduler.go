package worker

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-monitor/internal/observability"
	"github.com/spec-kit/sla-monitor/internal/service"
)

// ErrSweepInProgress reports that a pass could not start because another
// one holds the run lock.
var ErrSweepInProgress = errors.New("sla sweep already in progress")

// Scheduler drives the periodic SLA sweep. Each tick takes the run lock,
// executes one pass and releases; a tick that finds the lock held is
// skipped and counted, never queued.
type Scheduler struct {
	monitor    *service.MonitorService
	lock       RunLock
	metrics    *observability.Metrics
	logger     *zap.Logger
	interval   time.Duration
	runOnStart bool
	cron       *cron.Cron
}

// SchedulerDependencies bundles collaborators for the scheduler.
type SchedulerDependencies struct {
	Monitor    *service.MonitorService
	Lock       RunLock
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Interval   time.Duration
	RunOnStart bool
}

// NewScheduler constructs the scheduler.
func NewScheduler(deps SchedulerDependencies) *Scheduler {
	return &Scheduler{
		monitor:    deps.Monitor,
		lock:       deps.Lock,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		interval:   deps.Interval,
		runOnStart: deps.RunOnStart,
	}
}

// Start registers the sweep on the cron runner and begins ticking.
func (s *Scheduler) Start() error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc("@every "+s.interval.String(), s.tick)
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("sla scheduler started", zap.Duration("interval", s.interval))

	if s.runOnStart {
		go s.tick()
	}
	return nil
}

// Stop halts ticking and waits for a running pass to finish, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out with a pass still running")
	}
}

// RunNow executes one pass immediately, for the operational API.
func (s *Scheduler) RunNow(ctx context.Context) (service.PassResult, error) {
	return s.runGuarded(ctx)
}

func (s *Scheduler) tick() {
	// A pass is bounded by the interval so a stuck sweep cannot pile up
	// behind the lock forever.
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	if _, err := s.runGuarded(ctx); err != nil {
		if errors.Is(err, ErrSweepInProgress) {
			return
		}
		s.logger.Error("sla sweep failed", zap.Error(err))
	}
}

func (s *Scheduler) runGuarded(ctx context.Context) (service.PassResult, error) {
	acquired, err := s.lock.Acquire(ctx)
	if err != nil {
		return service.PassResult{}, err
	}
	if !acquired {
		s.metrics.RecordSkippedRun()
		s.logger.Debug("sweep skipped, run lock held")
		return service.PassResult{}, ErrSweepInProgress
	}
	defer s.lock.Release(ctx)

	return s.monitor.RunPass(ctx)
}
