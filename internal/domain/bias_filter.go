package domain

import "strings"

// BiasFilter drops signals from sources with a known editorial slant.
// Rules are normalized to lowercase at construction and never change.
type BiasFilter struct {
	rules map[string]BiasRule
}

// NewBiasFilter indexes rules by source. A later rule for the same source
// replaces an earlier one, and rules without a source are ignored.
func NewBiasFilter(rules []BiasRule) *BiasFilter {
	f := &BiasFilter{rules: make(map[string]BiasRule, len(rules))}
	for _, r := range rules {
		if r.Source == "" {
			continue
		}
		f.rules[r.Source] = BiasRule{
			Source:          r.Source,
			Reason:          r.Reason,
			ExcludeTopics:   lowerAll(r.ExcludeTopics),
			ExcludeKeywords: lowerAll(r.ExcludeKeywords),
		}
	}
	return f
}

// IsBiased reports whether the source excludes topic or has an excluded
// keyword in text. Empty topic or text skip their check.
func (f *BiasFilter) IsBiased(sourceOrigin, topic, text string) bool {
	rule, ok := f.rules[sourceOrigin]
	if !ok {
		return false
	}

	if topic != "" {
		t := strings.ToLower(topic)
		for _, excluded := range rule.ExcludeTopics {
			if t == excluded {
				return true
			}
		}
	}

	if text != "" {
		lower := strings.ToLower(text)
		for _, keyword := range rule.ExcludeKeywords {
			if strings.Contains(lower, keyword) {
				return true
			}
		}
	}
	return false
}

func (f *BiasFilter) HasRules(sourceOrigin string) bool {
	_, ok := f.rules[sourceOrigin]
	return ok
}

// RuleInfo returns the normalized rule for a source.
func (f *BiasFilter) RuleInfo(sourceOrigin string) (BiasRule, bool) {
	rule, ok := f.rules[sourceOrigin]
	return rule, ok
}

// Len is the number of sources with rules.
func (f *BiasFilter) Len() int { return len(f.rules) }

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.ToLower(v))
	}
	return out
}
