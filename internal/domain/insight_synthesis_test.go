package domain_test

import (
	"context"
	"testing"
	"time"

	"quietly-stated/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeSignal(topic, entity, metric string, value float64, createdAt time.Time) domain.ProcessedSignal {
	return domain.ProcessedSignal{
		ID:        uuid.New(),
		Topic:     topic,
		Entity:    entity,
		Metric:    metric,
		ValueNow:  value,
		Unit:      "percent",
		CreatedAt: createdAt,
	}
}

func TestHeuristicAnalyzer_SynthesizeInsight(t *testing.T) {
	analyzer := domain.NewHeuristicAnalyzer(nil)
	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	signals := []domain.ProcessedSignal{
		makeSignal("sales_growth", "Acme", "sales", 10, base.Add(2*time.Hour)),
		makeSignal("sales_growth", "Beta", "revenue", 20, base),
		makeSignal("sales_growth", "Acme", "sales", -4, base.Add(5*time.Hour)),
		makeSignal("sales_growth", "Cora", "growth", 0, base.Add(time.Hour)),
	}

	insight, err := analyzer.SynthesizeInsight(context.Background(), "sales_growth", signals)
	require.NoError(t, err)

	assert.Equal(t, "sales_growth", insight.Topic)
	assert.Equal(t, "Sales Growth: 4 signals detected", insight.Title)
	assert.Equal(t, "Found 4 signals related to sales_growth. Average value change: 6.5%.", insight.Summary)
	assert.Equal(t, "Monitor sales, revenue, growth for Acme, Beta.", insight.Implication)
	assert.Equal(t, "ecom manager", insight.TargetAudience)
	assert.Equal(t, base, insight.WindowStart)
	assert.Equal(t, base.Add(5*time.Hour), insight.WindowEnd)
	require.Len(t, insight.SignalIDs, 4)
	for i, s := range signals {
		assert.Equal(t, s.ID, insight.SignalIDs[i])
	}
}

func TestHeuristicAnalyzer_SynthesizeInsight_Empty(t *testing.T) {
	analyzer := domain.NewHeuristicAnalyzer(nil)

	insight, err := analyzer.SynthesizeInsight(context.Background(), "sales_growth", nil)
	assert.ErrorIs(t, err, domain.ErrEmptySignals)
	assert.Nil(t, insight)
}

func TestGroupByTopic(t *testing.T) {
	now := time.Now()
	signals := []domain.ProcessedSignal{
		makeSignal("retention", "A", "sales", 1, now),
		makeSignal("acquisition", "B", "sales", 2, now),
		makeSignal("retention", "C", "sales", 3, now),
	}

	topics, groups := domain.GroupByTopic(signals)
	assert.Equal(t, []string{"acquisition", "retention"}, topics)
	require.Len(t, groups["retention"], 2)
	assert.Equal(t, "A", groups["retention"][0].Entity)
	assert.Equal(t, "C", groups["retention"][1].Entity)
}

func TestTitleCase(t *testing.T) {
	tests := map[string]string{
		"sales growth":   "Sales Growth",
		"e-commerce b2b": "E-Commerce B2B",
		"ALREADY UPPER":  "Already Upper",
		"":               "",
	}
	for in, want := range tests {
		assert.Equal(t, want, domain.TitleCase(in), in)
	}
}
