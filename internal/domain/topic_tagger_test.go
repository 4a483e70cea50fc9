package domain_test

import (
	"testing"

	"quietly-stated/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestTagTopics(t *testing.T) {
	topics := domain.TopicConfig{
		"sales_growth": {"sales"},
		"retention":    {"churn", "repeat purchase"},
		"logistics":    {"shipping"},
	}

	t.Run("counts phrases case insensitively", func(t *testing.T) {
		counts := domain.TagTopics("Sales rose by 12.5% in Q2, from 100 to 113 orders.", topics)
		assert.Equal(t, map[string]int{"sales_growth": 1}, counts)
	})

	t.Run("sums phrases of one topic", func(t *testing.T) {
		counts := domain.TagTopics("CHURN fell while repeat purchase rates and churn alerts grew", topics)
		assert.Equal(t, map[string]int{"retention": 3}, counts)
	})

	t.Run("omits topics without hits", func(t *testing.T) {
		assert.Empty(t, domain.TagTopics("nothing relevant", topics))
	})

	t.Run("tolerates empty config and phrases", func(t *testing.T) {
		assert.Empty(t, domain.TagTopics("sales", nil))
		assert.Empty(t, domain.TagTopics("sales", domain.TopicConfig{"blank": {""}}))
	})
}

func TestDominantTopic(t *testing.T) {
	tests := []struct {
		name   string
		counts map[string]int
		want   string
	}{
		{name: "empty falls back to general", counts: map[string]int{}, want: "general"},
		{name: "nil falls back to general", counts: nil, want: "general"},
		{name: "highest count wins", counts: map[string]int{"a": 1, "b": 4, "c": 2}, want: "b"},
		{name: "ties go to the first name", counts: map[string]int{"zeta": 3, "alpha": 3}, want: "alpha"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.DominantTopic(tt.counts))
		})
	}
}
