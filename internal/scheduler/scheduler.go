// Package scheduler runs the periodic billing jobs on cron triggers and
// serializes them across instances with the shared job lock.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/smallbiznis/overflight/internal/clock"
	"github.com/smallbiznis/overflight/internal/config"
	consolidationdomain "github.com/smallbiznis/overflight/internal/consolidation/domain"
	"github.com/smallbiznis/overflight/internal/joblock"
	"github.com/smallbiznis/overflight/internal/observability/metrics"
	"github.com/smallbiznis/overflight/internal/overdue"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Lock identifiers. One per job, stable across releases: changing one lets
// two versions of the same job run concurrently during a rolling deploy.
const (
	LockOverdueMarking = "overflight:overdue_marking"
	LockConsolidation  = "overflight:consolidation"
)

const (
	jobOverdueMarking = "overdue_marking"
	jobConsolidation  = "consolidation"
)

type Params struct {
	fx.In

	Lifecycle     fx.Lifecycle
	Log           *zap.Logger
	Clock         clock.Clock
	Schedule      *config.ScheduleConfigHolder
	Locker        *joblock.Locker
	Overdue       *overdue.Service
	Consolidation consolidationdomain.Service
}

type Scheduler struct {
	cron          *cron.Cron
	log           *zap.Logger
	clock         clock.Clock
	schedule      *config.ScheduleConfigHolder
	locker        *joblock.Locker
	overdue       *overdue.Service
	consolidation consolidationdomain.Service
}

func New(p Params) (*Scheduler, error) {
	s := &Scheduler{
		cron:          cron.New(cron.WithLocation(time.UTC)),
		log:           p.Log.Named("scheduler"),
		clock:         p.Clock,
		schedule:      p.Schedule,
		locker:        p.Locker,
		overdue:       p.Overdue,
		consolidation: p.Consolidation,
	}

	cfg := p.Schedule.Get()
	if _, err := s.cron.AddFunc(cfg.OverdueCron, func() {
		s.runJob(jobOverdueMarking, LockOverdueMarking, s.runOverdueMarking)
	}); err != nil {
		return nil, err
	}
	if _, err := s.cron.AddFunc(cfg.ConsolidationCron, func() {
		s.runJob(jobConsolidation, LockConsolidation, s.runConsolidation)
	}); err != nil {
		return nil, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.log.Info("scheduler starting",
				zap.String("overdue_cron", cfg.OverdueCron),
				zap.String("consolidation_cron", cfg.ConsolidationCron),
			)
			s.cron.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopped := s.cron.Stop()
			select {
			case <-stopped.Done():
			case <-ctx.Done():
				return ctx.Err()
			}
			s.log.Info("scheduler stopped")
			return nil
		},
	})

	return s, nil
}

// runJob wraps one trigger firing: lock, metrics, panic recovery. A lost
// lock race is a skip, never an error.
func (s *Scheduler) runJob(name, lockID string, fn func(ctx context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.JobMetrics().IncError(name)
			s.log.Error("job panicked", zap.String("job", name), zap.Any("panic", r))
		}
	}()

	metrics.JobMetrics().IncRun(name)
	started := time.Now()
	defer func() {
		metrics.JobMetrics().ObserveDuration(name, time.Since(started))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	lockTimeout := s.schedule.Get().LockTimeout
	outcome := s.locker.WithLock(ctx, lockID, lockTimeout, fn)
	metrics.JobMetrics().ObserveLockWait(name, outcome.Waited)

	switch {
	case outcome.Err != nil:
		metrics.JobMetrics().IncError(name)
		s.log.Error("job failed", zap.String("job", name), zap.Error(outcome.Err))
	case !outcome.Acquired:
		metrics.JobMetrics().IncSkip(name, metrics.SkipReasonLockNotAcquired)
	}
}

func (s *Scheduler) runOverdueMarking(ctx context.Context) error {
	_, err := s.overdue.MarkOverdue(ctx)
	return err
}

func (s *Scheduler) runConsolidation(ctx context.Context) error {
	m := s.consolidation.GenerateForAll(ctx, s.clock.Now())
	if len(m.Errors) > 0 {
		s.log.Warn("consolidation sweep had per-operator failures",
			zap.Strings("errors", m.Errors),
		)
	}
	return nil
}

var Module = fx.Module("scheduler",
	fx.Invoke(New),
)
