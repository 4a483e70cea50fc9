package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"quietly-stated/internal/domain"
	"quietly-stated/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type ingestFixture struct {
	fetcher  *MockFeedFetcher
	articles *stubArticles
	alerts   *stubAlerts
	trends   *stubTrends
}

func newIngest(fx *ingestFixture, feeds []domain.FeedConfig) usecase.IngestUsecase {
	return usecase.NewIngestUsecase(usecase.IngestDeps{
		Feeds:    staticFeeds(feeds),
		Fetcher:  fx.fetcher,
		Articles: fx.articles,
		Alerts:   fx.alerts,
		Trends:   fx.trends,
		Bias: domain.NewBiasFilter([]domain.BiasRule{
			{Source: "acme_blog", ExcludeKeywords: []string{"subscription"}},
		}),
		Concurrency: 2,
		Logger:      testLogger(),
	})
}

func newIngestFixture() *ingestFixture {
	return &ingestFixture{
		fetcher:  new(MockFeedFetcher),
		articles: &stubArticles{},
		alerts:   &stubAlerts{},
		trends:   &stubTrends{},
	}
}

func TestIngestFeeds(t *testing.T) {
	fx := newIngestFixture()
	published := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	fx.fetcher.On("Fetch", mock.Anything, "https://alerts.example/coffee").Return([]domain.FeedItem{
		{Title: "Coffee prices", Summary: "Coffee prices rose 8%", Link: "https://news.example/1", PublishedAt: published},
	}, nil)
	fx.fetcher.On("Fetch", mock.Anything, "https://acme.example/feed").Return([]domain.FeedItem{
		{Title: "Numbers", Link: "https://acme.example/numbers", Content: "<p>Sales rose 12% this year</p>", Author: "Dana", Tags: []string{"sales"}, PublishedAt: published},
		{Title: "Story", Link: "https://acme.example/story", Summary: "no figures here", PublishedAt: published},
		{Title: "Promo", Link: "https://acme.example/promo", Summary: "sub", PublishedAt: published},
	}, nil)
	fx.fetcher.On("Fetch", mock.Anything, "https://broken.example/feed").Return(nil, errors.New("timeout"))

	fx.fetcher.On("ArticleText", mock.Anything, "https://acme.example/numbers", "<p>Sales rose 12% this year</p>").Return("Sales rose 12% this year", nil)
	fx.fetcher.On("ArticleText", mock.Anything, "https://acme.example/story", "no figures here").Return("no figures here", nil)
	fx.fetcher.On("ArticleText", mock.Anything, "https://acme.example/promo", "sub").Return("Subscription boxes grew 30%", nil)

	uc := newIngest(fx, []domain.FeedConfig{
		{Source: "google_alerts_coffee", URL: "https://alerts.example/coffee", Type: "rss", Keyword: "coffee"},
		{Source: "acme_blog", URL: "https://acme.example/feed", Type: "rss"},
		{Source: "broken", URL: "https://broken.example/feed", Type: "rss"},
		{Source: "disabled", URL: "https://disabled.example/feed", Type: "rss", Enabled: boolPtr(false)},
		{Source: "atom_only", URL: "https://atom.example/feed", Type: "atom"},
	})

	result, err := uc.IngestFeeds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.IngestResult{Feeds: 3, AlertsSaved: 1, ArticlesSaved: 1, SkippedNoData: 1, SkippedBiased: 1, Failed: 1}, *result)

	require.Len(t, fx.alerts.items, 1)
	alert := fx.alerts.items[0]
	assert.Equal(t, "coffee", alert.Keyword)
	assert.Equal(t, "Coffee prices rose 8%", alert.Snippet)
	assert.Equal(t, "https://alerts.example/coffee", alert.SourceURL)
	assert.Equal(t, published, alert.PublishedAt)

	require.Len(t, fx.articles.items, 1)
	article := fx.articles.items[0]
	assert.Equal(t, "acme_blog", article.SourceOrigin)
	assert.Equal(t, "https://acme.example/feed", article.SourceURL)
	assert.Equal(t, "https://acme.example/numbers", article.URL)
	assert.Equal(t, []string{"Sales rose 12% this year"}, article.DataPoints)
	require.NotNil(t, article.Author)
	assert.Equal(t, "Dana", *article.Author)
	assert.Equal(t, []string{"sales"}, article.Tags)

	fx.fetcher.AssertNotCalled(t, "Fetch", mock.Anything, "https://disabled.example/feed")
	fx.fetcher.AssertNotCalled(t, "Fetch", mock.Anything, "https://atom.example/feed")
}

func TestIngestFeeds_UpsertIsIdempotent(t *testing.T) {
	fx := newIngestFixture()
	published := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	fx.fetcher.On("Fetch", mock.Anything, "https://alerts.example/coffee").Return([]domain.FeedItem{
		{Title: "Coffee", Summary: "up 3%", Link: "https://news.example/1", PublishedAt: published},
	}, nil)
	uc := newIngest(fx, []domain.FeedConfig{{Source: "google_alerts_coffee", URL: "https://alerts.example/coffee", Type: "rss"}})

	for i := 0; i < 2; i++ {
		_, err := uc.IngestFeeds(context.Background())
		require.NoError(t, err)
	}
	assert.Len(t, fx.alerts.items, 1)
}

func TestIngestFeeds_DataPointsCappedAtFive(t *testing.T) {
	fx := newIngestFixture()
	text := "A 1%. B 2%. C 3%. D 4%. E 5%. F 6%. G 7%"
	fx.fetcher.On("Fetch", mock.Anything, "https://stats.example/feed").Return([]domain.FeedItem{
		{Title: "Stats", Link: "https://stats.example/1", Content: "c"},
	}, nil)
	fx.fetcher.On("ArticleText", mock.Anything, "https://stats.example/1", "c").Return(text, nil)
	uc := newIngest(fx, []domain.FeedConfig{{Source: "stats", URL: "https://stats.example/feed", Type: "rss"}})

	_, err := uc.IngestFeeds(context.Background())
	require.NoError(t, err)
	require.Len(t, fx.articles.items, 1)
	assert.Len(t, fx.articles.items[0].DataPoints, 5)
}

func TestImportTrends(t *testing.T) {
	fx := newIngestFixture()
	uc := newIngest(fx, nil)

	n, err := uc.ImportTrends(context.Background(), []domain.RawTrend{
		{Term: "cold brew", WeeklyInterest: 40},
		{Term: ""},
		{Term: "matcha", WeeklyInterest: 20, PulledAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, fx.trends.items, 2)
	assert.NotEqual(t, uuid.Nil, fx.trends.items[0].ID)
	assert.False(t, fx.trends.items[0].PulledAt.IsZero())
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), fx.trends.items[1].PulledAt)
}

func TestImportTrends_StoreError(t *testing.T) {
	fx := newIngestFixture()
	fx.trends.upsertErr = errors.New("read only")
	uc := newIngest(fx, nil)

	n, err := uc.ImportTrends(context.Background(), []domain.RawTrend{{Term: "x"}})
	assert.Error(t, err)
	assert.Equal(t, 0, n)
}
