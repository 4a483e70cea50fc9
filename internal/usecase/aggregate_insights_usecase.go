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

// AggregateResult lists the insights synthesized by one run.
// Saved counts the ones that were not already stored.
type AggregateResult struct {
	Insights []domain.Insight `json:"insights"`
	Groups   int              `json:"groups"`
	Saved    int              `json:"saved"`
	Failed   int              `json:"failed"`
}

type AggregateInsightsUsecase interface {
	// Execute groups signals created in the last days by topic and stores
	// one insight per group of at least the minimum size.
	Execute(ctx context.Context, days int) (*AggregateResult, error)
}

type aggregateInsightsUsecase struct {
	signals    domain.SignalRepository
	insights   domain.InsightRepository
	analyzer   domain.TextAnalyzer
	minSignals int
	log        *logger.ContextLogger
}

func NewAggregateInsightsUsecase(
	signals domain.SignalRepository,
	insights domain.InsightRepository,
	analyzer domain.TextAnalyzer,
	minSignals int,
	log *slog.Logger,
) AggregateInsightsUsecase {
	if minSignals < 1 {
		minSignals = domain.DefaultMinSignals
	}
	return &aggregateInsightsUsecase{
		signals:    signals,
		insights:   insights,
		analyzer:   analyzer,
		minSignals: minSignals,
		log:        logger.NewContextLogger(log),
	}
}

func (u *aggregateInsightsUsecase) Execute(ctx context.Context, days int) (*AggregateResult, error) {
	defer metrics.ObserveJob("aggregate", time.Now())
	ctx, span := tracer.Start(ctx, "AggregateInsights.Execute")
	defer span.End()
	ctx = logger.WithStage(ctx, "aggregate")
	log := u.log.WithContext(ctx)

	if days < 0 {
		err := fmt.Errorf("days must not be negative, got %d: %w", days, domain.ErrInvalidWindow)
		recordSpanError(span, err)
		return nil, err
	}
	window := domain.LastDays(time.Now().UTC(), days)

	// 1. Load signals in the window
	signals, err := u.signals.ListCreatedBetween(ctx, window)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to load signals: %w", err)
	}

	// 2. Group by topic, skipping groups below the threshold
	topics, groups := domain.GroupByTopic(signals)
	result := &AggregateResult{Insights: []domain.Insight{}}

	for _, topic := range topics {
		group := groups[topic]
		if len(group) < u.minSignals {
			continue
		}
		result.Groups++

		// 3. Synthesize and store; a failing group does not stop the others
		insight, err := u.analyzer.SynthesizeInsight(ctx, topic, group)
		if err != nil {
			result.Failed++
			log.Warn("failed to synthesize insight", "topic", topic, "signals", len(group), "error", err)
			continue
		}
		insight.ID = uuid.New()
		insight.CreatedAt = time.Now().UTC()

		inserted, err := u.insights.InsertIfAbsent(ctx, insight)
		if err != nil {
			result.Failed++
			log.Warn("failed to store insight", "topic", topic, "error", err)
			continue
		}
		if inserted {
			result.Saved++
		}
		result.Insights = append(result.Insights, *insight)
	}

	metrics.RecordInsightsSaved(result.Saved)
	span.SetAttributes(
		attribute.Int("quietly.aggregate.signals", len(signals)),
		attribute.Int("quietly.aggregate.groups", result.Groups),
		attribute.Int("quietly.aggregate.saved", result.Saved),
	)
	log.Info("insight aggregation finished",
		"days", days,
		"signals", len(signals),
		"groups", result.Groups,
		"saved", result.Saved,
		"failed", result.Failed)
	return result, nil
}
