package usecase_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"quietly-stated/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// --- In-memory repositories ---

type stubArticles struct {
	mu      sync.Mutex
	items   []domain.RawArticle
	listErr error
	upserts int
}

func (s *stubArticles) Upsert(_ context.Context, a *domain.RawArticle) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	for i := range s.items {
		if s.items[i].URL == a.URL && s.items[i].PublishedAt.Equal(a.PublishedAt) {
			a.ID = s.items[i].ID
			s.items[i] = *a
			return false, nil
		}
	}
	s.items = append(s.items, *a)
	return true, nil
}

func (s *stubArticles) ListFetchedBetween(_ context.Context, w domain.Window) ([]domain.RawArticle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.RawArticle
	for _, a := range s.items {
		if w.Contains(a.FetchedAt) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubArticles) GetByID(_ context.Context, id uuid.UUID) (*domain.RawArticle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.items {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, nil
}

func (s *stubArticles) List(_ context.Context, f domain.ArticleFilter) ([]domain.RawArticle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.RawArticle
	for _, a := range s.items {
		if f.Source != "" && a.SourceOrigin != f.Source {
			continue
		}
		if f.Keyword != "" && !strings.Contains(strings.ToLower(a.Title+" "+a.Text), strings.ToLower(f.Keyword)) {
			continue
		}
		out = append(out, a)
	}
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

type stubAlerts struct {
	mu    sync.Mutex
	items []domain.RawAlert
}

func (s *stubAlerts) Upsert(_ context.Context, a *domain.RawAlert) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].URL == a.URL && s.items[i].PublishedAt.Equal(a.PublishedAt) {
			s.items[i] = *a
			return false, nil
		}
	}
	s.items = append(s.items, *a)
	return true, nil
}

func (s *stubAlerts) ListFetchedBetween(_ context.Context, w domain.Window) ([]domain.RawAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.RawAlert
	for _, a := range s.items {
		if w.Contains(a.FetchedAt) {
			out = append(out, a)
		}
	}
	return out, nil
}

type stubTrends struct {
	mu        sync.Mutex
	items     []domain.RawTrend
	upsertErr error
}

func (s *stubTrends) Upsert(_ context.Context, t *domain.RawTrend) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.items = append(s.items, *t)
	return nil
}

func (s *stubTrends) ListPulledBetween(_ context.Context, w domain.Window) ([]domain.RawTrend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.RawTrend
	for _, t := range s.items {
		if w.Contains(t.PulledAt) {
			out = append(out, t)
		}
	}
	return out, nil
}

type stubSignals struct {
	mu        sync.Mutex
	items     []domain.ProcessedSignal
	insertErr error
}

func (s *stubSignals) InsertIfAbsent(_ context.Context, sig *domain.ProcessedSignal) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return false, s.insertErr
	}
	for _, existing := range s.items {
		if existing.Key() == sig.Key() {
			return false, nil
		}
	}
	s.items = append(s.items, *sig)
	return true, nil
}

func (s *stubSignals) ListCreatedBetween(_ context.Context, w domain.Window) ([]domain.ProcessedSignal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ProcessedSignal
	for _, sig := range s.items {
		if w.Contains(sig.CreatedAt) {
			out = append(out, sig)
		}
	}
	return out, nil
}

func (s *stubSignals) List(_ context.Context, f domain.SignalFilter) ([]domain.ProcessedSignal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ProcessedSignal
	for _, sig := range s.items {
		if f.Topic != "" && sig.Topic != f.Topic {
			continue
		}
		if f.Since != nil && sig.CreatedAt.Before(*f.Since) {
			continue
		}
		out = append(out, sig)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *stubSignals) GetByID(_ context.Context, id uuid.UUID) (*domain.ProcessedSignal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sig := range s.items {
		if sig.ID == id {
			return &sig, nil
		}
	}
	return nil, nil
}

func (s *stubSignals) ListBySource(_ context.Context, origin, url string) ([]domain.ProcessedSignal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ProcessedSignal
	for _, sig := range s.items {
		if sig.SourceOrigin == origin && sig.SourceURL == url {
			out = append(out, sig)
		}
	}
	return out, nil
}

type stubInsights struct {
	mu    sync.Mutex
	items []domain.Insight
}

func (s *stubInsights) InsertIfAbsent(_ context.Context, in *domain.Insight) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.items {
		if existing.Topic == in.Topic && existing.WindowStart.Equal(in.WindowStart) && existing.WindowEnd.Equal(in.WindowEnd) {
			in.ID = existing.ID
			in.CreatedAt = existing.CreatedAt
			return false, nil
		}
	}
	s.items = append(s.items, *in)
	return true, nil
}

func (s *stubInsights) List(_ context.Context, f domain.InsightFilter) ([]domain.Insight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Insight
	for _, in := range s.items {
		if f.Topic == "" || in.Topic == f.Topic {
			out = append(out, in)
		}
	}
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *stubInsights) GetByID(_ context.Context, id uuid.UUID) (*domain.Insight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, in := range s.items {
		if in.ID == id {
			return &in, nil
		}
	}
	return nil, nil
}

func (s *stubInsights) ListReferencing(_ context.Context, ids []uuid.UUID) ([]domain.Insight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []domain.Insight
	for _, in := range s.items {
		for _, id := range in.SignalIDs {
			if want[id] {
				out = append(out, in)
				break
			}
		}
	}
	return out, nil
}

type stubConfigs struct {
	mu   sync.Mutex
	docs map[domain.ConfigType]domain.ConfigDocument
	gets int
}

func newStubConfigs() *stubConfigs {
	return &stubConfigs{docs: make(map[domain.ConfigType]domain.ConfigDocument)}
}

func (s *stubConfigs) GetActive(_ context.Context, t domain.ConfigType) (*domain.ConfigDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	doc, ok := s.docs[t]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

func (s *stubConfigs) Upsert(_ context.Context, doc *domain.ConfigDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.Type] = *doc
	return nil
}

func (s *stubConfigs) put(t domain.ConfigType, payload any) {
	data, _ := json.Marshal(payload)
	s.docs[t] = domain.ConfigDocument{Type: t, Version: 1, Payload: data, Active: true, UpdatedBy: "seed"}
}

type inlineTx struct{}

func (inlineTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// --- Mocks ---

type MockTextAnalyzer struct {
	mock.Mock
}

func (m *MockTextAnalyzer) Name() string { return "mock" }

func (m *MockTextAnalyzer) ExtractSignals(ctx context.Context, text string, prov domain.Provenance, topic string) ([]domain.ProcessedSignal, error) {
	args := m.Called(ctx, text, prov, topic)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ProcessedSignal), args.Error(1)
}

func (m *MockTextAnalyzer) SynthesizeInsight(ctx context.Context, topic string, signals []domain.ProcessedSignal) (*domain.Insight, error) {
	args := m.Called(ctx, topic, signals)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Insight), args.Error(1)
}

type MockFeedFetcher struct {
	mock.Mock
}

func (m *MockFeedFetcher) Fetch(ctx context.Context, url string) ([]domain.FeedItem, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FeedItem), args.Error(1)
}

func (m *MockFeedFetcher) ArticleText(ctx context.Context, url, rssContent string) (string, error) {
	args := m.Called(ctx, url, rssContent)
	return args.String(0), args.Error(1)
}

type MockRulesSource struct {
	mock.Mock
}

func (m *MockRulesSource) LoadTopics() (domain.TopicConfig, bool, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(domain.TopicConfig), args.Bool(1), args.Error(2)
}

func (m *MockRulesSource) LoadBiasRules() ([]domain.BiasRule, bool, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]domain.BiasRule), args.Bool(1), args.Error(2)
}

func (m *MockRulesSource) LoadFeeds() ([]domain.FeedConfig, bool, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]domain.FeedConfig), args.Bool(1), args.Error(2)
}

type staticFeeds []domain.FeedConfig

func (f staticFeeds) Feeds(context.Context) ([]domain.FeedConfig, error) { return f, nil }
