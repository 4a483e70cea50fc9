package domain_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"quietly-stated/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatExtractor_Extract(t *testing.T) {
	extractor := domain.NewStatExtractor()

	t.Run("percentage and range from one sentence", func(t *testing.T) {
		text := "Sales rose by 12.5% in Q2, from 100 to 113 orders."
		candidates := extractor.Extract(text)

		require.Len(t, candidates, 2)
		assert.Equal(t, "Sales rose by 12.5% in Q2, from 100 to 113 orders", candidates[0].Sentence)
		assert.Equal(t, "12.5%", candidates[0].RawValueStr)
		// the decimal point of 12.5 counts as a sentence boundary
		assert.Equal(t, "5% in Q2, from 100 to 113 orders", candidates[1].Sentence)
		assert.Equal(t, "100 to 113", candidates[1].RawValueStr)
	})

	t.Run("decimal points truncate sentences", func(t *testing.T) {
		text := "Churn fell. Conversion rose 3.5% while basket size grew 2.1% this quarter."
		candidates := extractor.Extract(text)

		require.Len(t, candidates, 2)
		assert.Equal(t, domain.StatCandidate{Sentence: "Conversion rose 3.5% while basket size grew 2", RawValueStr: "3.5%"}, candidates[0])
		assert.Equal(t, domain.StatCandidate{Sentence: "5% while basket size grew 2.1% this quarter", RawValueStr: "2.1%"}, candidates[1])
	})

	t.Run("dollar amount ends at the period", func(t *testing.T) {
		candidates := extractor.Extract("Average order value was $1,250.50. Shoppers bought 3 items.")

		require.Len(t, candidates, 1)
		assert.Equal(t, "Average order value was $1,250.50", candidates[0].Sentence)
		assert.Equal(t, "$1,250.50", candidates[0].RawValueStr)
	})

	t.Run("magnitude with unit word", func(t *testing.T) {
		candidates := extractor.Extract("Revenue hit $5.2 billion this year")

		require.Len(t, candidates, 1)
		assert.Equal(t, "Revenue hit $5.2 billion this year", candidates[0].Sentence)
		assert.Equal(t, "$5.2 billion", candidates[0].RawValueStr)
	})

	t.Run("comma grouped counts", func(t *testing.T) {
		candidates := extractor.Extract("The store shipped 12,000 orders")

		require.Len(t, candidates, 1)
		assert.Equal(t, "12,000 orders", candidates[0].RawValueStr)
	})

	t.Run("change verbs are case insensitive", func(t *testing.T) {
		candidates := extractor.Extract("Margins DROPPED by 4 points")

		require.Len(t, candidates, 1)
		// the unit suffix only binds when attached to the number
		assert.Equal(t, "4", candidates[0].RawValueStr)
		assert.Equal(t, "Margins DROPPED by 4 points", candidates[0].Sentence)
	})

	t.Run("window bounds without periods", func(t *testing.T) {
		text := strings.Repeat("x", 150) + " grew 7% " + strings.Repeat("y", 150)
		candidates := extractor.Extract(text)

		require.Len(t, candidates, 2)
		assert.Equal(t, strings.Repeat("x", 94)+" grew 7% "+strings.Repeat("y", 99), candidates[0].Sentence)
		assert.Equal(t, "7%", candidates[0].RawValueStr)
		assert.Equal(t, strings.Repeat("x", 99)+" grew 7% "+strings.Repeat("y", 99), candidates[1].Sentence)
		for _, c := range candidates {
			assert.LessOrEqual(t, utf8.RuneCountInString(c.Sentence), 100+len("grew 7%")+100)
		}
	})

	t.Run("window counts runes not bytes", func(t *testing.T) {
		text := strings.Repeat("é", 120) + " 9% " + strings.Repeat("ü", 120)
		candidates := extractor.Extract(text)

		require.Len(t, candidates, 1)
		assert.Equal(t, strings.Repeat("é", 99)+" 9% "+strings.Repeat("ü", 99), candidates[0].Sentence)
	})

	t.Run("no numbers", func(t *testing.T) {
		assert.Empty(t, extractor.Extract("Nothing quantitative here."))
		assert.Empty(t, extractor.Extract(""))
	})
}

func TestStatExtractor_DeterministicAndUnique(t *testing.T) {
	extractor := domain.NewStatExtractor()
	text := "Subscriptions grew 20% year over year. Churn dropped 3%. " +
		"Revenue increased by 15 percent, from 2.1 to 2.4 million dollars. " +
		"Mobile traffic was up 40% and 1,500 customers joined. Ad spend fell 8%."

	first := extractor.Extract(text)
	second := extractor.Extract(text)
	assert.Equal(t, first, second)
	require.NotEmpty(t, first)

	seen := make(map[string]bool)
	for _, c := range first {
		assert.False(t, seen[c.Sentence], "duplicate sentence %q", c.Sentence)
		seen[c.Sentence] = true
		assert.NotEmpty(t, c.RawValueStr)
	}
}
