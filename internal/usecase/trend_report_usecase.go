package usecase

import (
	"context"
	"fmt"
	"time"

	"quietly-stated/internal/domain"

	"golang.org/x/sync/errgroup"
)

// TrendReportUsecase computes read-only rankings over comparison windows.
type TrendReportUsecase interface {
	TopTerms(ctx context.Context, windows domain.ReportWindows, limit int) (*domain.TopTermsReport, error)
	TopTopics(ctx context.Context, windows domain.ReportWindows, limit int) (*domain.TopTopicsReport, error)
	// NotableStats never returns more than domain.MaxNotableStats entries.
	NotableStats(ctx context.Context, current domain.Window, threshold float64) ([]domain.NotableStat, error)
	// WeeklyReport compares the seven days before now with the seven days before that.
	WeeklyReport(ctx context.Context, now time.Time) (*domain.WeeklyReport, error)
}

type trendReportUsecase struct {
	trends           domain.TrendRepository
	signals          domain.SignalRepository
	notableThreshold float64
}

func NewTrendReportUsecase(trends domain.TrendRepository, signals domain.SignalRepository, notableThreshold float64) TrendReportUsecase {
	if notableThreshold <= 0 {
		notableThreshold = domain.DefaultNotableThreshold
	}
	return &trendReportUsecase{trends: trends, signals: signals, notableThreshold: notableThreshold}
}

func (u *trendReportUsecase) TopTerms(ctx context.Context, windows domain.ReportWindows, limit int) (*domain.TopTermsReport, error) {
	if err := validateWindows(windows); err != nil {
		return nil, err
	}
	current, err := u.trends.ListPulledBetween(ctx, windows.Current)
	if err != nil {
		return nil, fmt.Errorf("failed to load current trends: %w", err)
	}
	previous, err := u.trends.ListPulledBetween(ctx, windows.Previous)
	if err != nil {
		return nil, fmt.Errorf("failed to load previous trends: %w", err)
	}
	report := domain.RankTerms(current, previous, reportLimit(limit))
	return &report, nil
}

func (u *trendReportUsecase) TopTopics(ctx context.Context, windows domain.ReportWindows, limit int) (*domain.TopTopicsReport, error) {
	if err := validateWindows(windows); err != nil {
		return nil, err
	}
	current, err := u.signals.ListCreatedBetween(ctx, windows.Current)
	if err != nil {
		return nil, fmt.Errorf("failed to load current signals: %w", err)
	}
	previous, err := u.signals.ListCreatedBetween(ctx, windows.Previous)
	if err != nil {
		return nil, fmt.Errorf("failed to load previous signals: %w", err)
	}
	report := domain.RankTopics(current, previous, reportLimit(limit))
	return &report, nil
}

func (u *trendReportUsecase) NotableStats(ctx context.Context, current domain.Window, threshold float64) ([]domain.NotableStat, error) {
	if err := current.Validate(); err != nil {
		return nil, err
	}
	signals, err := u.signals.ListCreatedBetween(ctx, current)
	if err != nil {
		return nil, fmt.Errorf("failed to load signals: %w", err)
	}
	return domain.SelectNotable(signals, threshold), nil
}

func (u *trendReportUsecase) WeeklyReport(ctx context.Context, now time.Time) (*domain.WeeklyReport, error) {
	ctx, span := tracer.Start(ctx, "TrendReport.WeeklyReport")
	defer span.End()

	windows := domain.WeeklyWindows(now)
	report := &domain.WeeklyReport{Windows: windows}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		terms, err := u.TopTerms(gctx, windows, domain.DefaultReportLimit)
		if err != nil {
			return err
		}
		report.Terms = *terms
		return nil
	})
	g.Go(func() error {
		topics, err := u.TopTopics(gctx, windows, domain.DefaultReportLimit)
		if err != nil {
			return err
		}
		report.Topics = *topics
		return nil
	})
	g.Go(func() error {
		notable, err := u.NotableStats(gctx, windows.Current, u.notableThreshold)
		if err != nil {
			return err
		}
		report.Notable = notable
		return nil
	})
	if err := g.Wait(); err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to build weekly report: %w", err)
	}
	return report, nil
}

func validateWindows(w domain.ReportWindows) error {
	if err := w.Current.Validate(); err != nil {
		return fmt.Errorf("current window: %w", err)
	}
	if err := w.Previous.Validate(); err != nil {
		return fmt.Errorf("previous window: %w", err)
	}
	return nil
}

func reportLimit(limit int) int {
	if limit <= 0 {
		return domain.DefaultReportLimit
	}
	return limit
}
