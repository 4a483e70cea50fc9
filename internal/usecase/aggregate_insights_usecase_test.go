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

func signalAt(topic string, value float64, createdAt time.Time) domain.ProcessedSignal {
	return domain.ProcessedSignal{
		ID:              uuid.New(),
		SourceOrigin:    "src",
		SourceURL:       "https://src.example/feed",
		Topic:           topic,
		Entity:          "Acme",
		Metric:          "sales",
		ValueNow:        value,
		ContextSentence: uuid.NewString(),
		CreatedAt:       createdAt,
	}
}

func TestAggregateInsights_Execute(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	signals := &stubSignals{items: []domain.ProcessedSignal{
		signalAt("retention", 10, now.Add(-3*time.Hour)),
		signalAt("pricing", 5, now.Add(-2*time.Hour)),
		signalAt("retention", 20, now.Add(-time.Hour)),
		signalAt("retention", 30, now.AddDate(0, 0, -20)),
	}}
	insights := &stubInsights{}

	uc := usecase.NewAggregateInsightsUsecase(signals, insights, domain.NewHeuristicAnalyzer(nil), 2, testLogger())
	result, err := uc.Execute(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Groups)
	assert.Equal(t, 1, result.Saved)
	require.Len(t, result.Insights, 1)

	insight := result.Insights[0]
	assert.Equal(t, "retention", insight.Topic)
	assert.Equal(t, "Retention: 2 signals detected", insight.Title)
	assert.Equal(t, now.Add(-3*time.Hour), insight.WindowStart)
	assert.Equal(t, now.Add(-time.Hour), insight.WindowEnd)
	assert.Len(t, insight.SignalIDs, 2)
	assert.NotEqual(t, uuid.Nil, insight.ID)
	assert.Len(t, insights.items, 1)
}

func TestAggregateInsights_RerunDoesNotDuplicate(t *testing.T) {
	now := time.Now().UTC()
	signals := &stubSignals{items: []domain.ProcessedSignal{
		signalAt("retention", 10, now.Add(-2*time.Hour)),
		signalAt("retention", 20, now.Add(-time.Hour)),
	}}
	insights := &stubInsights{}
	uc := usecase.NewAggregateInsightsUsecase(signals, insights, domain.NewHeuristicAnalyzer(nil), 2, testLogger())

	first, err := uc.Execute(context.Background(), 7)
	require.NoError(t, err)
	again, err := uc.Execute(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, 0, again.Saved)
	require.Len(t, again.Insights, 1)
	assert.Len(t, insights.items, 1)
	assert.Equal(t, first.Insights[0].ID, again.Insights[0].ID)
	for _, in := range again.Insights {
		stored, err := insights.GetByID(context.Background(), in.ID)
		require.NoError(t, err)
		assert.NotNil(t, stored, "returned insight %s is stored", in.ID)
	}
}

func TestAggregateInsights_MinSignalsOneKeepsSingletons(t *testing.T) {
	now := time.Now().UTC()
	signals := &stubSignals{items: []domain.ProcessedSignal{
		signalAt("retention", 10, now.Add(-2*time.Hour)),
		signalAt("pricing", 20, now.Add(-time.Hour)),
	}}
	uc := usecase.NewAggregateInsightsUsecase(signals, &stubInsights{}, domain.NewHeuristicAnalyzer(nil), 1, testLogger())

	result, err := uc.Execute(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, result.Insights, 2)
	assert.Equal(t, "pricing", result.Insights[0].Topic)
	assert.Equal(t, "retention", result.Insights[1].Topic)
}

func TestAggregateInsights_NoSignals(t *testing.T) {
	uc := usecase.NewAggregateInsightsUsecase(&stubSignals{}, &stubInsights{}, domain.NewHeuristicAnalyzer(nil), 2, testLogger())

	result, err := uc.Execute(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, result.Insights)
	assert.Equal(t, 0, result.Groups)
}

func TestAggregateInsights_GroupFailureIsIsolated(t *testing.T) {
	now := time.Now().UTC()
	signals := &stubSignals{items: []domain.ProcessedSignal{
		signalAt("alpha", 1, now.Add(-4*time.Hour)),
		signalAt("alpha", 2, now.Add(-3*time.Hour)),
		signalAt("beta", 3, now.Add(-2*time.Hour)),
		signalAt("beta", 4, now.Add(-time.Hour)),
	}}
	analyzer := new(MockTextAnalyzer)
	analyzer.On("SynthesizeInsight", mock.Anything, "alpha", mock.Anything).Return(nil, errors.New("model timeout"))
	analyzer.On("SynthesizeInsight", mock.Anything, "beta", mock.Anything).
		Return(&domain.Insight{Topic: "beta", WindowStart: now.Add(-2 * time.Hour), WindowEnd: now.Add(-time.Hour)}, nil)

	uc := usecase.NewAggregateInsightsUsecase(signals, &stubInsights{}, analyzer, 2, testLogger())
	result, err := uc.Execute(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Groups)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Insights, 1)
	assert.Equal(t, "beta", result.Insights[0].Topic)
	analyzer.AssertExpectations(t)
}

func TestAggregateInsights_NegativeDays(t *testing.T) {
	uc := usecase.NewAggregateInsightsUsecase(&stubSignals{}, &stubInsights{}, domain.NewHeuristicAnalyzer(nil), 0, testLogger())
	_, err := uc.Execute(context.Background(), -3)
	assert.ErrorIs(t, err, domain.ErrInvalidWindow)
}
