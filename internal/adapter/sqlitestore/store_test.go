package sqlitestore_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"quietly-stated/internal/adapter/sqlitestore"
	"quietly-stated/internal/domain"
	"quietly-stated/internal/infra"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *sqlitestore.Store {
	t.Helper()
	ctx := context.Background()
	db, err := infra.NewSQLiteDB(ctx, infra.MemoryDSN)
	require.NoError(t, err)

	store := sqlitestore.New(db, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(ctx))
	return store
}

var base = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestMigrate_Idempotent(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, store.Ping(context.Background()))
}

func TestArticles_UpsertAndQuery(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	repo := store.Articles()
	author := "Dana"

	article := &domain.RawArticle{
		ID:           uuid.New(),
		SourceOrigin: "acme_blog",
		SourceURL:    "https://acme.example/feed",
		Title:        "Coffee Report",
		URL:          "https://acme.example/coffee",
		PublishedAt:  base,
		FetchedAt:    base.Add(time.Hour),
		Author:       &author,
		Text:         "Coffee sales rose 5%",
		Tags:         []string{"coffee"},
		DataPoints:   []string{"Coffee sales rose 5%"},
	}
	inserted, err := repo.Upsert(ctx, article)
	require.NoError(t, err)
	assert.True(t, inserted)

	updated := *article
	updated.ID = uuid.New()
	updated.Title = "Coffee Report (updated)"
	inserted, err = repo.Upsert(ctx, &updated)
	require.NoError(t, err)
	assert.False(t, inserted)

	other := &domain.RawArticle{
		ID:           uuid.New(),
		SourceOrigin: "tea_blog",
		SourceURL:    "https://tea.example/feed",
		Title:        "Tea",
		URL:          "https://tea.example/1",
		PublishedAt:  base.Add(24 * time.Hour),
		FetchedAt:    base.AddDate(0, 0, -20),
		Text:         "Matcha demand is flat",
	}
	_, err = repo.Upsert(ctx, other)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, article.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Coffee Report (updated)", got.Title)
	assert.Equal(t, base, got.PublishedAt)
	require.NotNil(t, got.Author)
	assert.Equal(t, "Dana", *got.Author)
	assert.Equal(t, []string{"coffee"}, got.Tags)
	assert.Equal(t, []string{}, mustList(t, repo, other.ID).Tags)

	missing, err := repo.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	recent, err := repo.ListFetchedBetween(ctx, domain.LastDays(base.Add(2*time.Hour), 7))
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, article.ID, recent[0].ID)

	all, err := repo.List(ctx, domain.ArticleFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Tea", all[0].Title)

	byKeyword, err := repo.List(ctx, domain.ArticleFilter{Keyword: "MATCHA", Limit: 10})
	require.NoError(t, err)
	require.Len(t, byKeyword, 1)
	assert.Equal(t, other.ID, byKeyword[0].ID)

	bySource, err := repo.List(ctx, domain.ArticleFilter{Source: "acme_blog", Keyword: "coffee", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, bySource, 1)
}

func mustList(t *testing.T, repo domain.ArticleRepository, id uuid.UUID) *domain.RawArticle {
	t.Helper()
	a, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, a)
	return a
}

func TestAlerts_Upsert(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	repo := store.Alerts()

	alert := &domain.RawAlert{
		ID:           uuid.New(),
		SourceOrigin: "google_alerts_coffee",
		SourceURL:    "https://alerts.example/coffee",
		Keyword:      "coffee",
		Title:        "Coffee",
		Snippet:      "prices up 4%",
		URL:          "https://news.example/1",
		PublishedAt:  base,
		FetchedAt:    base,
	}
	inserted, err := repo.Upsert(ctx, alert)
	require.NoError(t, err)
	assert.True(t, inserted)

	alert.Snippet = "prices up 6%"
	inserted, err = repo.Upsert(ctx, alert)
	require.NoError(t, err)
	assert.False(t, inserted)

	alerts, err := repo.ListFetchedBetween(ctx, domain.Window{Start: base.Add(-time.Hour), End: base.Add(time.Hour)})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "prices up 6%", alerts[0].Snippet)
	assert.Equal(t, base, alerts[0].FetchedAt)
}

func TestTrends_UpsertAndList(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	repo := store.Trends()

	trend := &domain.RawTrend{
		ID:             uuid.New(),
		SourceOrigin:   "trends",
		Group:          "beverages",
		Term:           "cold brew",
		Geo:            "US",
		Timeframe:      "now 7-d",
		PulledAt:       base,
		WeeklyInterest: 40,
		RelatedQueries: domain.RelatedQueries{Rising: []domain.RelatedQuery{{Query: "nitro", Value: 250, IsBreakout: true}}},
	}
	require.NoError(t, repo.Upsert(ctx, trend))
	trend.WeeklyInterest = 55
	require.NoError(t, repo.Upsert(ctx, trend))

	trends, err := repo.ListPulledBetween(ctx, domain.Window{Start: base, End: base})
	require.NoError(t, err)
	require.Len(t, trends, 1)
	assert.Equal(t, 55.0, trends[0].WeeklyInterest)
	require.Len(t, trends[0].RelatedQueries.Rising, 1)
	assert.True(t, trends[0].RelatedQueries.Rising[0].IsBreakout)
}

func newSignal(topic, sentence string, createdAt time.Time) *domain.ProcessedSignal {
	return &domain.ProcessedSignal{
		ID:              uuid.New(),
		SourceType:      domain.SourceTypeArticle,
		SourceOrigin:    "acme_blog",
		SourceURL:       "https://acme.example/feed",
		Topic:           topic,
		Entity:          "Acme",
		Metric:          "sales",
		ValueNow:        5,
		Unit:            "percent",
		TimeRef:         "recent",
		ContextSentence: sentence,
		ModelUsed:       "stub",
		Confidence:      0.5,
		CreatedAt:       createdAt,
	}
}

func TestSignals_InsertIfAbsentAndQueries(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	repo := store.Signals()

	first := newSignal("retention", "Churn fell 3%", base)
	before := 2.5
	first.ValueBefore = &before
	inserted, err := repo.InsertIfAbsent(ctx, first)
	require.NoError(t, err)
	assert.True(t, inserted)

	dup := newSignal("retention", "Churn fell 3%", base.Add(time.Hour))
	inserted, err = repo.InsertIfAbsent(ctx, dup)
	require.NoError(t, err)
	assert.False(t, inserted)

	second := newSignal("pricing", "Discounts grew 9%", base.Add(2*time.Hour))
	second.SourceURL = "https://other.example/feed"
	_, err = repo.InsertIfAbsent(ctx, second)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.ValueBefore)
	assert.Equal(t, 2.5, *got.ValueBefore)
	assert.Equal(t, domain.SourceTypeArticle, got.SourceType)
	assert.Equal(t, base, got.CreatedAt)

	missing, err := repo.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	listed, err := repo.List(ctx, domain.SignalFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, second.ID, listed[0].ID)

	since := base.Add(time.Hour)
	recent, err := repo.List(ctx, domain.SignalFilter{Since: &since, Limit: 10})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Nil(t, recent[0].ValueBefore)

	byTopic, err := repo.List(ctx, domain.SignalFilter{Topic: "retention", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, byTopic, 1)

	windowed, err := repo.ListCreatedBetween(ctx, domain.Window{Start: base, End: base.Add(time.Hour)})
	require.NoError(t, err)
	assert.Len(t, windowed, 1)

	bySource, err := repo.ListBySource(ctx, "acme_blog", "https://acme.example/feed")
	require.NoError(t, err)
	require.Len(t, bySource, 1)
	assert.Equal(t, first.ID, bySource[0].ID)
}

func TestInsights_InsertAndReferencing(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	repo := store.Insights()
	signalA, signalB := uuid.New(), uuid.New()

	insight := &domain.Insight{
		ID:             uuid.New(),
		Topic:          "retention",
		Title:          "Retention: 2 signals detected",
		Summary:        "s",
		Implication:    "i",
		TargetAudience: "ecom manager",
		SignalIDs:      []uuid.UUID{signalA, signalB},
		WindowStart:    base,
		WindowEnd:      base.Add(time.Hour),
		CreatedAt:      base.Add(2 * time.Hour),
	}
	inserted, err := repo.InsertIfAbsent(ctx, insight)
	require.NoError(t, err)
	assert.True(t, inserted)

	again := *insight
	again.ID = uuid.New()
	again.CreatedAt = base.Add(5 * time.Hour)
	inserted, err = repo.InsertIfAbsent(ctx, &again)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, insight.ID, again.ID)
	assert.Equal(t, insight.CreatedAt, again.CreatedAt)

	got, err := repo.GetByID(ctx, insight.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []uuid.UUID{signalA, signalB}, got.SignalIDs)
	assert.Equal(t, base.Add(time.Hour), got.WindowEnd)

	referencing, err := repo.ListReferencing(ctx, []uuid.UUID{uuid.New(), signalB})
	require.NoError(t, err)
	require.Len(t, referencing, 1)

	none, err := repo.ListReferencing(ctx, []uuid.UUID{uuid.New()})
	require.NoError(t, err)
	assert.Empty(t, none)

	empty, err := repo.ListReferencing(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	listed, err := repo.List(ctx, domain.InsightFilter{Topic: "retention", Limit: 5})
	require.NoError(t, err)
	assert.Len(t, listed, 1)
	listed, err = repo.List(ctx, domain.InsightFilter{Topic: "pricing", Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestConfigs_UpsertAndGetActive(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	repo := store.Configs()

	missing, err := repo.GetActive(ctx, domain.ConfigFeeds)
	require.NoError(t, err)
	assert.Nil(t, missing)

	payload, _ := json.Marshal([]domain.FeedConfig{{Source: "a", URL: "u", Type: "rss"}})
	doc := &domain.ConfigDocument{Type: domain.ConfigFeeds, Version: 1, Payload: payload, Active: true, UpdatedAt: base, UpdatedBy: "seed"}
	require.NoError(t, repo.Upsert(ctx, doc))
	doc.Version = 2
	require.NoError(t, repo.Upsert(ctx, doc))

	got, err := repo.GetActive(ctx, domain.ConfigFeeds)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.Version)
	assert.True(t, got.Active)
	assert.Equal(t, base, got.UpdatedAt)
	assert.JSONEq(t, string(payload), string(got.Payload))
}

func TestRunInTx(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.RunInTx(ctx, func(ctx context.Context) error {
		_, err := store.Signals().InsertIfAbsent(ctx, newSignal("a", "rolled back 1%", base))
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = store.RunInTx(ctx, func(ctx context.Context) error {
		return store.RunInTx(ctx, func(ctx context.Context) error {
			_, err := store.Signals().InsertIfAbsent(ctx, newSignal("a", "committed 2%", base))
			return err
		})
	})
	require.NoError(t, err)

	signals, err := store.Signals().List(ctx, domain.SignalFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, "committed 2%", signals[0].ContextSentence)
}
