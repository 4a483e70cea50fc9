package usecase_test

import (
	"context"
	"testing"
	"time"

	"quietly-stated/internal/domain"
	"quietly-stated/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportFixture(now time.Time) (*stubTrends, *stubSignals) {
	trends := &stubTrends{items: []domain.RawTrend{
		{Term: "cold brew", WeeklyInterest: 60, PulledAt: now.Add(-24 * time.Hour)},
		{Term: "cold brew", WeeklyInterest: 40, PulledAt: now.Add(-48 * time.Hour)},
		{Term: "matcha", WeeklyInterest: 30, PulledAt: now.Add(-24 * time.Hour)},
		{Term: "cold brew", WeeklyInterest: 25, PulledAt: now.AddDate(0, 0, -10)},
		{Term: "matcha", WeeklyInterest: 10, PulledAt: now.AddDate(0, 0, -10)},
	}}
	signals := &stubSignals{items: []domain.ProcessedSignal{
		signalAt("retention", 12, now.Add(-time.Hour)),
		signalAt("retention", 2, now.Add(-2*time.Hour)),
		signalAt("pricing", -8, now.Add(-3*time.Hour)),
		signalAt("pricing", 50, now.AddDate(0, 0, -9)),
	}}
	return trends, signals
}

func TestTrendReport_TopTerms(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	trends, signals := reportFixture(now)
	uc := usecase.NewTrendReportUsecase(trends, signals, 0)

	report, err := uc.TopTerms(context.Background(), domain.WeeklyWindows(now), 0)
	require.NoError(t, err)

	require.Len(t, report.TopByAvg, 2)
	assert.Equal(t, "cold brew", report.TopByAvg[0].Term)
	assert.Equal(t, 50.0, report.TopByAvg[0].AvgCurrent)
	assert.Equal(t, 25.0, report.TopByAvg[0].AvgPrevious)
	assert.Equal(t, "matcha", report.TopByGrowth[0].Term)
	assert.Equal(t, 200.0, report.TopByGrowth[0].GrowthPct)
}

func TestTrendReport_TopTopicsAndNotable(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	trends, signals := reportFixture(now)
	uc := usecase.NewTrendReportUsecase(trends, signals, 5)
	windows := domain.WeeklyWindows(now)

	topics, err := uc.TopTopics(context.Background(), windows, 1)
	require.NoError(t, err)
	require.Len(t, topics.TopByCount, 1)
	assert.Equal(t, "retention", topics.TopByCount[0].Topic)

	notable, err := uc.NotableStats(context.Background(), windows.Current, 5)
	require.NoError(t, err)
	require.Len(t, notable, 2)
	assert.Equal(t, 12.0, notable[0].Value)
	assert.Equal(t, -8.0, notable[1].Value)
}

func TestTrendReport_WeeklyReport(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	trends, signals := reportFixture(now)
	uc := usecase.NewTrendReportUsecase(trends, signals, 10)

	report, err := uc.WeeklyReport(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, domain.WeeklyWindows(now), report.Windows)
	assert.Len(t, report.Terms.TopByAvg, 2)
	assert.Len(t, report.Topics.TopByCount, 2)
	require.Len(t, report.Notable, 1)
	assert.Equal(t, 12.0, report.Notable[0].Value)
}

func TestTrendReport_InvalidWindow(t *testing.T) {
	uc := usecase.NewTrendReportUsecase(&stubTrends{}, &stubSignals{}, 0)
	now := time.Now()
	bad := domain.ReportWindows{
		Current:  domain.Window{Start: now, End: now.Add(-time.Hour)},
		Previous: domain.Window{Start: now.Add(-2 * time.Hour), End: now.Add(-time.Hour)},
	}

	_, err := uc.TopTerms(context.Background(), bad, 10)
	assert.ErrorIs(t, err, domain.ErrInvalidWindow)
	_, err = uc.TopTopics(context.Background(), bad, 10)
	assert.ErrorIs(t, err, domain.ErrInvalidWindow)
	_, err = uc.NotableStats(context.Background(), bad.Current, 5)
	assert.ErrorIs(t, err, domain.ErrInvalidWindow)
}

type countingReport struct {
	usecase.TrendReportUsecase
	weekly int
	terms  int
}

func (c *countingReport) WeeklyReport(ctx context.Context, now time.Time) (*domain.WeeklyReport, error) {
	c.weekly++
	return c.TrendReportUsecase.WeeklyReport(ctx, now)
}

func (c *countingReport) TopTerms(ctx context.Context, w domain.ReportWindows, limit int) (*domain.TopTermsReport, error) {
	c.terms++
	return c.TrendReportUsecase.TopTerms(ctx, w, limit)
}

func TestCachedTrendReport(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	trends, signals := reportFixture(now)
	inner := &countingReport{TrendReportUsecase: usecase.NewTrendReportUsecase(trends, signals, 5)}
	cached := usecase.NewCachedTrendReport(inner, 8, time.Minute)

	first, err := cached.WeeklyReport(context.Background(), now)
	require.NoError(t, err)
	second, err := cached.WeeklyReport(context.Background(), now)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, inner.weekly)

	_, err = cached.WeeklyReport(context.Background(), now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, inner.weekly)

	windows := domain.WeeklyWindows(now)
	_, err = cached.TopTerms(context.Background(), windows, 5)
	require.NoError(t, err)
	_, err = cached.TopTerms(context.Background(), windows, 5)
	require.NoError(t, err)
	_, err = cached.TopTerms(context.Background(), windows, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.terms)
}

func TestCachedTrendReport_DisabledReturnsInner(t *testing.T) {
	inner := usecase.NewTrendReportUsecase(&stubTrends{}, &stubSignals{}, 5)
	assert.Equal(t, inner, usecase.NewCachedTrendReport(inner, 0, time.Minute))
}
