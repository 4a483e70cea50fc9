package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"quietly-stated/internal/domain"
	"quietly-stated/internal/infra/logger"
	"quietly-stated/internal/usecase"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

const (
	defaultLockTTL    = 30 * time.Minute
	defaultRunTimeout = 20 * time.Minute
	defaultDays       = 7
)

// RunReport collects the results of one pipeline run.
type RunReport struct {
	RunID     string                   `json:"run_id"`
	Ingest    *domain.IngestResult     `json:"ingest,omitempty"`
	Enrich    *domain.EnrichResult     `json:"enrich,omitempty"`
	Aggregate *usecase.AggregateResult `json:"aggregate,omitempty"`
}

type SchedulerDeps struct {
	Ingest        usecase.IngestUsecase
	Enrich        usecase.EnrichSignalsUsecase
	Aggregate     usecase.AggregateInsightsUsecase
	Lock          domain.RunLock
	Schedule      string
	LockTTL       time.Duration
	EnrichDays    int
	AggregateDays int
	Logger        *slog.Logger
}

// PipelineScheduler runs ingest, enrich and aggregate on a cron schedule.
// Runs that find the run lock held are skipped.
type PipelineScheduler struct {
	deps SchedulerDeps
	log  *logger.ContextLogger

	mu   sync.Mutex
	cron *cron.Cron
}

func NewPipelineScheduler(deps SchedulerDeps) *PipelineScheduler {
	if deps.LockTTL <= 0 {
		deps.LockTTL = defaultLockTTL
	}
	if deps.EnrichDays <= 0 {
		deps.EnrichDays = defaultDays
	}
	if deps.AggregateDays <= 0 {
		deps.AggregateDays = defaultDays
	}
	return &PipelineScheduler{
		deps: deps,
		log:  logger.NewContextLogger(deps.Logger),
	}
}

// Start registers the pipeline on the schedule and starts the cron runner.
func (s *PipelineScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return errors.New("scheduler already started")
	}

	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(s.deps.Schedule, s.runScheduled); err != nil {
		return fmt.Errorf("invalid pipeline schedule %q: %w", s.deps.Schedule, err)
	}
	c.Start()
	s.cron = c
	s.deps.Logger.Info("Starting PipelineScheduler", "schedule", s.deps.Schedule)
	return nil
}

// Stop halts the cron runner and waits for a running pipeline to finish.
func (s *PipelineScheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	s.deps.Logger.Info("Stopping PipelineScheduler")
	<-c.Stop().Done()
}

func (s *PipelineScheduler) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	report, err := s.RunOnce(ctx)
	switch {
	case errors.Is(err, domain.ErrLockHeld):
		s.deps.Logger.Info("Pipeline run skipped, lock held elsewhere")
	case err != nil:
		s.deps.Logger.Error("Pipeline run failed", "error", err)
	default:
		s.deps.Logger.Info("Pipeline run completed", "run_id", report.RunID)
	}
}

// RunOnce runs the pipeline now under the run lock. It returns
// domain.ErrLockHeld when another run owns the lock.
func (s *PipelineScheduler) RunOnce(ctx context.Context) (*RunReport, error) {
	unlock, err := s.deps.Lock.TryLock(ctx, domain.PipelineLockName, s.deps.LockTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			s.deps.Logger.Warn("Failed to release pipeline lock", "error", err)
		}
	}()

	report := &RunReport{RunID: uuid.NewString()}
	ctx = logger.WithRunID(ctx, report.RunID)
	log := s.log.WithContext(ctx)

	// 1. Ingest. A failed ingest still lets stored documents be enriched.
	if s.deps.Ingest != nil {
		ingested, err := s.deps.Ingest.IngestFeeds(ctx)
		if err != nil {
			log.Warn("ingest step failed", "error", err)
		} else {
			report.Ingest = ingested
		}
	}

	// 2. Enrich
	enriched, err := s.deps.Enrich.Execute(ctx, s.deps.EnrichDays)
	if err != nil {
		return report, fmt.Errorf("failed to enrich signals: %w", err)
	}
	report.Enrich = enriched

	// 3. Aggregate
	aggregated, err := s.deps.Aggregate.Execute(ctx, s.deps.AggregateDays)
	if err != nil {
		return report, fmt.Errorf("failed to aggregate insights: %w", err)
	}
	report.Aggregate = aggregated

	log.Info("pipeline run finished",
		"signals_saved", enriched.Saved,
		"insights_saved", aggregated.Saved)
	return report, nil
}
