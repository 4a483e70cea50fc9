package domain

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"
)

// TextAnalyzer turns text into signals and signal groups into insights.
// The heuristic implementation stands in for a model-backed one.
type TextAnalyzer interface {
	// Name is recorded as model_used on every signal.
	Name() string
	ExtractSignals(ctx context.Context, text string, prov Provenance, topic string) ([]ProcessedSignal, error)
	SynthesizeInsight(ctx context.Context, topic string, signals []ProcessedSignal) (*Insight, error)
}

const (
	heuristicModelName  = "stub"
	heuristicConfidence = 0.5
	heuristicUnit       = "percent"
	heuristicTimeRef    = "recent"
	unknownMetric       = "unknown"
	unknownEntity       = "unknown entity"
	maxEntityRunes      = 50
	insightAudience     = "ecom manager"
)

// metricKeywords are checked in order; the first one present wins.
var metricKeywords = []string{"consumption", "sales", "revenue", "growth", "decline", "increase", "decrease"}

// HeuristicAnalyzer builds signals from regex candidates and summarizes
// groups with fixed templates.
type HeuristicAnalyzer struct {
	extractor *StatExtractor
}

func NewHeuristicAnalyzer(extractor *StatExtractor) *HeuristicAnalyzer {
	if extractor == nil {
		extractor = NewStatExtractor()
	}
	return &HeuristicAnalyzer{extractor: extractor}
}

func (a *HeuristicAnalyzer) Name() string { return heuristicModelName }

// ExtractSignals keeps only candidates whose raw value parses as a plain
// number once '%' is removed. Ranges and magnitudes are dropped silently.
func (a *HeuristicAnalyzer) ExtractSignals(_ context.Context, text string, prov Provenance, topic string) ([]ProcessedSignal, error) {
	var signals []ProcessedSignal
	for _, c := range a.extractor.Extract(text) {
		value, ok := ParsePercentage(c.RawValueStr)
		if !ok {
			continue
		}
		entity, metric := EntityAndMetric(c.Sentence)
		signals = append(signals, ProcessedSignal{
			SourceType:      prov.SourceType,
			SourceOrigin:    prov.SourceOrigin,
			SourceURL:       prov.SourceURL,
			Topic:           topic,
			Entity:          entity,
			Metric:          metric,
			ValueNow:        value,
			Unit:            heuristicUnit,
			TimeRef:         heuristicTimeRef,
			ContextSentence: c.Sentence,
			ModelUsed:       heuristicModelName,
			Confidence:      heuristicConfidence,
		})
	}
	return signals, nil
}

// ParsePercentage strips '%' and surrounding space and parses the rest.
func ParsePercentage(raw string) (float64, bool) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(raw, "%", ""))
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// EntityAndMetric picks the first metric keyword found in the sentence and
// takes the trimmed text before it, cut to 50 runes, as the entity.
func EntityAndMetric(sentence string) (entity, metric string) {
	lower := strings.ToLower(sentence)
	metric = unknownMetric
	for _, kw := range metricKeywords {
		if strings.Contains(lower, kw) {
			metric = kw
			break
		}
	}

	entity = unknownEntity
	if metric == unknownMetric {
		return entity, metric
	}
	idx := indexASCIIFold(sentence, metric)
	if idx > 0 {
		entity = truncateRunes(strings.TrimSpace(sentence[:idx]), maxEntityRunes)
	}
	return entity, metric
}

// indexASCIIFold finds an ASCII lowercase keyword in s ignoring ASCII case.
func indexASCIIFold(s, keyword string) int {
	n := len(keyword)
	for i := 0; i+n <= len(s); i++ {
		match := true
		for j := 0; j < n; j++ {
			c := s[i+j]
			if 'A' <= c && c <= 'Z' {
				c += 'a' - 'A'
			}
			if c != keyword[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
