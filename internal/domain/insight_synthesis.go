package domain

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// DefaultMinSignals is the smallest topic group that yields an insight.
const DefaultMinSignals = 2

// SynthesizeInsight fills the insight templates for one topic group.
// ID and CreatedAt are left for the caller to stamp.
func (a *HeuristicAnalyzer) SynthesizeInsight(_ context.Context, topic string, signals []ProcessedSignal) (*Insight, error) {
	if len(signals) == 0 {
		return nil, ErrEmptySignals
	}

	var sum float64
	entities := newOrderedSet()
	metrics := newOrderedSet()
	ids := make([]uuid.UUID, 0, len(signals))
	windowStart, windowEnd := signals[0].CreatedAt, signals[0].CreatedAt

	for _, s := range signals {
		sum += s.ValueNow
		entities.add(s.Entity)
		metrics.add(s.Metric)
		ids = append(ids, s.ID)
		if s.CreatedAt.Before(windowStart) {
			windowStart = s.CreatedAt
		}
		if s.CreatedAt.After(windowEnd) {
			windowEnd = s.CreatedAt
		}
	}
	avg := sum / float64(len(signals))

	return &Insight{
		Topic:          topic,
		Title:          fmt.Sprintf("%s: %d signals detected", TitleCase(strings.ReplaceAll(topic, "_", " ")), len(signals)),
		Summary:        fmt.Sprintf("Found %d signals related to %s. Average value change: %.1f%%.", len(signals), topic, avg),
		Implication:    fmt.Sprintf("Monitor %s for %s.", strings.Join(metrics.first(3), ", "), strings.Join(entities.first(2), ", ")),
		TargetAudience: insightAudience,
		SignalIDs:      ids,
		WindowStart:    windowStart,
		WindowEnd:      windowEnd,
	}, nil
}

// GroupByTopic buckets signals by topic, keeping input order inside each
// bucket. Topics are returned sorted.
func GroupByTopic(signals []ProcessedSignal) ([]string, map[string][]ProcessedSignal) {
	groups := make(map[string][]ProcessedSignal)
	for _, s := range signals {
		groups[s.Topic] = append(groups[s.Topic], s)
	}
	topics := make([]string, 0, len(groups))
	for t := range groups {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics, groups
}

// TitleCase upper-cases every letter that follows a non-letter and
// lower-cases the rest, so "e-commerce b2b" becomes "E-Commerce B2B".
func TitleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToTitle(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}

type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (s *orderedSet) add(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

func (s *orderedSet) first(n int) []string {
	if len(s.items) < n {
		return s.items
	}
	return s.items[:n]
}
