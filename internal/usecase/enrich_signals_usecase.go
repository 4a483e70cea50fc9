package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"quietly-stated/internal/domain"
	"quietly-stated/internal/infra/logger"
	"quietly-stated/internal/infra/metrics"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

type EnrichSignalsUsecase interface {
	// Execute turns documents fetched in the last daysBack days into stored
	// signals. Re-running over the same documents stores nothing new.
	Execute(ctx context.Context, daysBack int) (*domain.EnrichResult, error)
}

type enrichSignalsUsecase struct {
	articles domain.ArticleRepository
	alerts   domain.AlertRepository
	signals  domain.SignalRepository
	analyzer domain.TextAnalyzer
	topics   domain.TopicConfig
	bias     *domain.BiasFilter
	log      *logger.ContextLogger
}

func NewEnrichSignalsUsecase(
	articles domain.ArticleRepository,
	alerts domain.AlertRepository,
	signals domain.SignalRepository,
	analyzer domain.TextAnalyzer,
	topics domain.TopicConfig,
	bias *domain.BiasFilter,
	log *slog.Logger,
) EnrichSignalsUsecase {
	if bias == nil {
		bias = domain.NewBiasFilter(nil)
	}
	return &enrichSignalsUsecase{
		articles: articles,
		alerts:   alerts,
		signals:  signals,
		analyzer: analyzer,
		topics:   topics,
		bias:     bias,
		log:      logger.NewContextLogger(log),
	}
}

func (u *enrichSignalsUsecase) Execute(ctx context.Context, daysBack int) (*domain.EnrichResult, error) {
	defer metrics.ObserveJob("enrich", time.Now())
	ctx, span := tracer.Start(ctx, "EnrichSignals.Execute")
	defer span.End()
	ctx = logger.WithStage(ctx, "enrich")
	log := u.log.WithContext(ctx)

	// 1. Resolve the window
	if daysBack < 0 {
		err := fmt.Errorf("days back must not be negative, got %d: %w", daysBack, domain.ErrInvalidWindow)
		recordSpanError(span, err)
		return nil, err
	}
	window := domain.LastDays(time.Now().UTC(), daysBack)

	// 2. Load documents, articles before alerts
	articles, err := u.articles.ListFetchedBetween(ctx, window)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to load articles: %w", err)
	}
	alerts, err := u.alerts.ListFetchedBetween(ctx, window)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to load alerts: %w", err)
	}

	docs := make([]domain.RawDocument, 0, len(articles)+len(alerts))
	for i := range articles {
		docs = append(docs, &articles[i])
	}
	for i := range alerts {
		docs = append(docs, &alerts[i])
	}

	// 3. Tag, extract, filter and store per document
	result := &domain.EnrichResult{Documents: len(docs)}
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := u.processDocument(ctx, doc, result); err != nil {
			result.Failed++
			prov := doc.Provenance()
			metrics.RecordDocumentFailure(prov.SourceType)
			log.Warn("failed to process document",
				"document_id", doc.DocumentID(),
				"source_type", prov.SourceType,
				"source", prov.SourceOrigin,
				"error", err)
		}
	}

	metrics.RecordEnrich(result)
	span.SetAttributes(
		attribute.Int("quietly.enrich.documents", result.Documents),
		attribute.Int("quietly.enrich.total", result.Total),
		attribute.Int("quietly.enrich.biased", result.Biased),
		attribute.Int("quietly.enrich.saved", result.Saved),
	)
	log.Info("signal enrichment finished",
		"days_back", daysBack,
		"documents", result.Documents,
		"total", result.Total,
		"biased", result.Biased,
		"saved", result.Saved,
		"duplicates", result.Duplicates,
		"failed", result.Failed)
	return result, nil
}

func (u *enrichSignalsUsecase) processDocument(ctx context.Context, doc domain.RawDocument, result *domain.EnrichResult) error {
	text := doc.Content()
	prov := doc.Provenance()
	topic := domain.DominantTopic(domain.TagTopics(text, u.topics))

	signals, err := u.analyzer.ExtractSignals(ctx, text, prov, topic)
	if err != nil {
		return fmt.Errorf("failed to extract signals: %w", err)
	}

	for i := range signals {
		s := &signals[i]
		result.Total++

		if u.bias.IsBiased(prov.SourceOrigin, s.Topic, s.ContextSentence) {
			result.Biased++
			continue
		}

		s.ID = uuid.New()
		s.CreatedAt = time.Now().UTC()
		inserted, err := u.signals.InsertIfAbsent(ctx, s)
		if err != nil {
			return fmt.Errorf("failed to store signal: %w", err)
		}
		if inserted {
			result.Saved++
		} else {
			result.Duplicates++
		}
	}
	return nil
}
