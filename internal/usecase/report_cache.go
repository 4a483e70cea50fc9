package usecase

import (
	"context"
	"fmt"
	"time"

	"quietly-stated/internal/domain"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// cachedTrendReport memoizes report results by their exact arguments.
// Callers get stable keys by truncating "now" before building windows.
type cachedTrendReport struct {
	inner TrendReportUsecase
	cache *expirable.LRU[string, any]
}

// NewCachedTrendReport wraps inner with an expiring LRU. A non-positive
// size disables caching.
func NewCachedTrendReport(inner TrendReportUsecase, size int, ttl time.Duration) TrendReportUsecase {
	if size <= 0 {
		return inner
	}
	return &cachedTrendReport{
		inner: inner,
		cache: expirable.NewLRU[string, any](size, nil, ttl),
	}
}

func windowsKey(w domain.ReportWindows) string {
	return fmt.Sprintf("%d:%d:%d:%d",
		w.Current.Start.UnixNano(), w.Current.End.UnixNano(),
		w.Previous.Start.UnixNano(), w.Previous.End.UnixNano())
}

func (c *cachedTrendReport) TopTerms(ctx context.Context, windows domain.ReportWindows, limit int) (*domain.TopTermsReport, error) {
	key := fmt.Sprintf("terms|%s|%d", windowsKey(windows), limit)
	if v, ok := c.cache.Get(key); ok {
		return v.(*domain.TopTermsReport), nil
	}
	report, err := c.inner.TopTerms(ctx, windows, limit)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, report)
	return report, nil
}

func (c *cachedTrendReport) TopTopics(ctx context.Context, windows domain.ReportWindows, limit int) (*domain.TopTopicsReport, error) {
	key := fmt.Sprintf("topics|%s|%d", windowsKey(windows), limit)
	if v, ok := c.cache.Get(key); ok {
		return v.(*domain.TopTopicsReport), nil
	}
	report, err := c.inner.TopTopics(ctx, windows, limit)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, report)
	return report, nil
}

func (c *cachedTrendReport) NotableStats(ctx context.Context, current domain.Window, threshold float64) ([]domain.NotableStat, error) {
	key := fmt.Sprintf("notable|%d:%d|%g", current.Start.UnixNano(), current.End.UnixNano(), threshold)
	if v, ok := c.cache.Get(key); ok {
		return v.([]domain.NotableStat), nil
	}
	stats, err := c.inner.NotableStats(ctx, current, threshold)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, stats)
	return stats, nil
}

func (c *cachedTrendReport) WeeklyReport(ctx context.Context, now time.Time) (*domain.WeeklyReport, error) {
	key := fmt.Sprintf("weekly|%d", now.UnixNano())
	if v, ok := c.cache.Get(key); ok {
		return v.(*domain.WeeklyReport), nil
	}
	report, err := c.inner.WeeklyReport(ctx, now)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, report)
	return report, nil
}
