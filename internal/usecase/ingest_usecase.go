package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"quietly-stated/internal/domain"
	"quietly-stated/internal/infra/logger"
	"quietly-stated/internal/infra/metrics"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const (
	feedTypeRSS   = "rss"
	maxDataPoints = 5
)

// FeedLister supplies the configured feeds.
type FeedLister interface {
	Feeds(ctx context.Context) ([]domain.FeedConfig, error)
}

type IngestUsecase interface {
	// IngestFeeds reads every enabled RSS feed and stores alerts and articles.
	IngestFeeds(ctx context.Context) (*domain.IngestResult, error)
	// ImportTrends upserts trend samples and returns how many were stored.
	ImportTrends(ctx context.Context, trends []domain.RawTrend) (int, error)
}

type ingestUsecase struct {
	feeds       FeedLister
	fetcher     domain.FeedFetcher
	articles    domain.ArticleRepository
	alerts      domain.AlertRepository
	trends      domain.TrendRepository
	extractor   *domain.StatExtractor
	bias        *domain.BiasFilter
	concurrency int
	log         *logger.ContextLogger
}

type IngestDeps struct {
	Feeds       FeedLister
	Fetcher     domain.FeedFetcher
	Articles    domain.ArticleRepository
	Alerts      domain.AlertRepository
	Trends      domain.TrendRepository
	Bias        *domain.BiasFilter
	Concurrency int
	Logger      *slog.Logger
}

func NewIngestUsecase(deps IngestDeps) IngestUsecase {
	bias := deps.Bias
	if bias == nil {
		bias = domain.NewBiasFilter(nil)
	}
	concurrency := deps.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &ingestUsecase{
		feeds:       deps.Feeds,
		fetcher:     deps.Fetcher,
		articles:    deps.Articles,
		alerts:      deps.Alerts,
		trends:      deps.Trends,
		extractor:   domain.NewStatExtractor(),
		bias:        bias,
		concurrency: concurrency,
		log:         logger.NewContextLogger(deps.Logger),
	}
}

func (u *ingestUsecase) IngestFeeds(ctx context.Context) (*domain.IngestResult, error) {
	defer metrics.ObserveJob("ingest", time.Now())
	ctx, span := tracer.Start(ctx, "Ingest.IngestFeeds")
	defer span.End()
	ctx = logger.WithStage(ctx, "ingest")

	// 1. Select enabled RSS feeds
	configured, err := u.feeds.Feeds(ctx)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to load feeds: %w", err)
	}
	feeds := make([]domain.FeedConfig, 0, len(configured))
	for _, f := range configured {
		if f.Type == feedTypeRSS && f.IsEnabled() {
			feeds = append(feeds, f)
		}
	}

	// 2. Fetch feeds concurrently, merging per feed counts
	result := &domain.IngestResult{Feeds: len(feeds)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)
	for _, feed := range feeds {
		g.Go(func() error {
			counts := u.ingestFeed(logger.WithSource(gctx, feed.Source), feed)
			mu.Lock()
			result.AlertsSaved += counts.AlertsSaved
			result.ArticlesSaved += counts.ArticlesSaved
			result.SkippedNoData += counts.SkippedNoData
			result.SkippedBiased += counts.SkippedBiased
			result.Failed += counts.Failed
			mu.Unlock()
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		recordSpanError(span, err)
		return result, err
	}

	metrics.RecordIngested(domain.SourceTypeAlert, result.AlertsSaved)
	metrics.RecordIngested(domain.SourceTypeArticle, result.ArticlesSaved)
	span.SetAttributes(
		attribute.Int("quietly.ingest.feeds", result.Feeds),
		attribute.Int("quietly.ingest.alerts_saved", result.AlertsSaved),
		attribute.Int("quietly.ingest.articles_saved", result.ArticlesSaved),
	)
	u.log.WithContext(ctx).Info("feed ingestion finished",
		"feeds", result.Feeds,
		"alerts_saved", result.AlertsSaved,
		"articles_saved", result.ArticlesSaved,
		"skipped_no_data", result.SkippedNoData,
		"skipped_biased", result.SkippedBiased,
		"failed", result.Failed)
	return result, nil
}

// ingestFeed never fails the run; feed and item errors count as Failed.
func (u *ingestUsecase) ingestFeed(ctx context.Context, feed domain.FeedConfig) domain.IngestResult {
	log := u.log.WithContext(ctx)
	var counts domain.IngestResult

	items, err := u.fetcher.Fetch(ctx, feed.URL)
	if err != nil {
		counts.Failed++
		log.Warn("failed to fetch feed", "url", feed.URL, "error", err)
		return counts
	}

	for _, item := range items {
		if ctx.Err() != nil {
			return counts
		}
		if feed.IsAlertFeed() {
			err = u.storeAlert(ctx, feed, item)
			if err == nil {
				counts.AlertsSaved++
			}
		} else {
			var outcome articleOutcome
			outcome, err = u.storeArticle(ctx, feed, item)
			switch outcome {
			case articleSaved:
				counts.ArticlesSaved++
			case articleNoData:
				counts.SkippedNoData++
			case articleBiased:
				counts.SkippedBiased++
			}
		}
		if err != nil {
			counts.Failed++
			log.Warn("failed to store feed item", "link", item.Link, "error", err)
		}
	}

	log.Debug("feed ingested",
		"entries", len(items),
		"alerts_saved", counts.AlertsSaved,
		"articles_saved", counts.ArticlesSaved,
		"skipped_no_data", counts.SkippedNoData,
		"skipped_biased", counts.SkippedBiased)
	return counts
}

func (u *ingestUsecase) storeAlert(ctx context.Context, feed domain.FeedConfig, item domain.FeedItem) error {
	alert := &domain.RawAlert{
		ID:           uuid.New(),
		SourceOrigin: feed.Source,
		SourceURL:    feed.URL,
		Keyword:      feed.Keyword,
		Title:        item.Title,
		Snippet:      item.Summary,
		URL:          item.Link,
		PublishedAt:  item.PublishedAt.UTC(),
		FetchedAt:    time.Now().UTC(),
	}
	if _, err := u.alerts.Upsert(ctx, alert); err != nil {
		return fmt.Errorf("failed to upsert alert: %w", err)
	}
	return nil
}

type articleOutcome int

const (
	articleFailed articleOutcome = iota
	articleSaved
	articleNoData
	articleBiased
)

func (u *ingestUsecase) storeArticle(ctx context.Context, feed domain.FeedConfig, item domain.FeedItem) (articleOutcome, error) {
	rssContent := item.Content
	if rssContent == "" {
		rssContent = item.Summary
	}
	text, err := u.fetcher.ArticleText(ctx, item.Link, rssContent)
	if err != nil {
		return articleFailed, fmt.Errorf("failed to read article text: %w", err)
	}

	// Only articles with quantifiable statements are kept
	candidates := u.extractor.Extract(text)
	if len(candidates) == 0 {
		return articleNoData, nil
	}
	if u.bias.IsBiased(feed.Source, "", text) {
		return articleBiased, nil
	}

	dataPoints := make([]string, 0, maxDataPoints)
	for _, c := range candidates {
		if len(dataPoints) == maxDataPoints {
			break
		}
		dataPoints = append(dataPoints, c.Sentence)
	}

	var author *string
	if item.Author != "" {
		author = &item.Author
	}
	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}

	article := &domain.RawArticle{
		ID:           uuid.New(),
		SourceOrigin: feed.Source,
		SourceURL:    feed.URL,
		Title:        item.Title,
		URL:          item.Link,
		PublishedAt:  item.PublishedAt.UTC(),
		FetchedAt:    time.Now().UTC(),
		Author:       author,
		Text:         text,
		Tags:         tags,
		DataPoints:   dataPoints,
	}
	if _, err := u.articles.Upsert(ctx, article); err != nil {
		return articleFailed, fmt.Errorf("failed to upsert article: %w", err)
	}
	return articleSaved, nil
}

func (u *ingestUsecase) ImportTrends(ctx context.Context, trends []domain.RawTrend) (int, error) {
	defer metrics.ObserveJob("import_trends", time.Now())
	log := u.log.WithContext(logger.WithStage(ctx, "import_trends"))

	stored := 0
	for i := range trends {
		t := &trends[i]
		if t.Term == "" {
			log.Warn("skipping trend without term", "index", i)
			continue
		}
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		if t.PulledAt.IsZero() {
			t.PulledAt = time.Now().UTC()
		}
		if err := u.trends.Upsert(ctx, t); err != nil {
			return stored, fmt.Errorf("failed to upsert trend %q: %w", t.Term, err)
		}
		stored++
	}

	metrics.RecordIngested(domain.SourceTypeTrend, stored)
	log.Info("trends imported", "received", len(trends), "stored", stored)
	return stored, nil
}
