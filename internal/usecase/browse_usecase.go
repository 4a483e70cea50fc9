package usecase

import (
	"context"
	"fmt"

	"quietly-stated/internal/domain"

	"github.com/google/uuid"
)

const (
	DefaultSignalLimit  = 50
	MaxSignalLimit      = 200
	DefaultInsightLimit = 20
	MaxInsightLimit     = 100
	DefaultArticleLimit = 20
	MaxArticleLimit     = 100
)

// ArticleDetail is an article with the signals extracted from its source
// and the insights built from them. Article fields encode at the top level.
type ArticleDetail struct {
	domain.RawArticle
	Signals  []domain.ProcessedSignal `json:"signals"`
	Insights []domain.Insight         `json:"insights"`
}

// BrowseUsecase serves read-only lookups over stored records.
type BrowseUsecase interface {
	ListSignals(ctx context.Context, filter domain.SignalFilter) ([]domain.ProcessedSignal, error)
	GetSignal(ctx context.Context, id uuid.UUID) (*domain.ProcessedSignal, error)
	ListInsights(ctx context.Context, filter domain.InsightFilter) ([]domain.Insight, error)
	GetInsight(ctx context.Context, id uuid.UUID) (*domain.Insight, error)
	ListArticles(ctx context.Context, filter domain.ArticleFilter) ([]domain.RawArticle, error)
	GetArticle(ctx context.Context, id uuid.UUID) (*ArticleDetail, error)
}

type browseUsecase struct {
	articles domain.ArticleRepository
	signals  domain.SignalRepository
	insights domain.InsightRepository
}

func NewBrowseUsecase(articles domain.ArticleRepository, signals domain.SignalRepository, insights domain.InsightRepository) BrowseUsecase {
	return &browseUsecase{articles: articles, signals: signals, insights: insights}
}

// ClampLimit maps a non-positive limit to def and caps it at max.
func ClampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

func (u *browseUsecase) ListSignals(ctx context.Context, filter domain.SignalFilter) ([]domain.ProcessedSignal, error) {
	filter.Limit = ClampLimit(filter.Limit, DefaultSignalLimit, MaxSignalLimit)
	signals, err := u.signals.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list signals: %w", err)
	}
	return signals, nil
}

func (u *browseUsecase) GetSignal(ctx context.Context, id uuid.UUID) (*domain.ProcessedSignal, error) {
	signal, err := u.signals.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get signal: %w", err)
	}
	if signal == nil {
		return nil, fmt.Errorf("signal %s: %w", id, domain.ErrNotFound)
	}
	return signal, nil
}

func (u *browseUsecase) ListInsights(ctx context.Context, filter domain.InsightFilter) ([]domain.Insight, error) {
	filter.Limit = ClampLimit(filter.Limit, DefaultInsightLimit, MaxInsightLimit)
	insights, err := u.insights.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list insights: %w", err)
	}
	return insights, nil
}

func (u *browseUsecase) GetInsight(ctx context.Context, id uuid.UUID) (*domain.Insight, error) {
	insight, err := u.insights.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get insight: %w", err)
	}
	if insight == nil {
		return nil, fmt.Errorf("insight %s: %w", id, domain.ErrNotFound)
	}
	return insight, nil
}

func (u *browseUsecase) ListArticles(ctx context.Context, filter domain.ArticleFilter) ([]domain.RawArticle, error) {
	filter.Limit = ClampLimit(filter.Limit, DefaultArticleLimit, MaxArticleLimit)
	articles, err := u.articles.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	return articles, nil
}

func (u *browseUsecase) GetArticle(ctx context.Context, id uuid.UUID) (*ArticleDetail, error) {
	// 1. Article
	article, err := u.articles.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	if article == nil {
		return nil, fmt.Errorf("article %s: %w", id, domain.ErrNotFound)
	}

	// 2. Signals sharing its provenance
	signals, err := u.signals.ListBySource(ctx, article.SourceOrigin, article.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to list article signals: %w", err)
	}

	// 3. Insights built from those signals
	insights := []domain.Insight{}
	if len(signals) > 0 {
		ids := make([]uuid.UUID, 0, len(signals))
		for _, s := range signals {
			ids = append(ids, s.ID)
		}
		insights, err = u.insights.ListReferencing(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to list article insights: %w", err)
		}
	}

	if signals == nil {
		signals = []domain.ProcessedSignal{}
	}
	if insights == nil {
		insights = []domain.Insight{}
	}
	return &ArticleDetail{RawArticle: *article, Signals: signals, Insights: insights}, nil
}
