package domain

import (
	"sort"
	"strings"
)

// DefaultTopic is assigned when no configured phrase occurs in the text.
const DefaultTopic = "general"

// TagTopics counts case-insensitive, non-overlapping occurrences of each
// topic's phrases in text. Topics with a zero count are omitted.
func TagTopics(text string, topics TopicConfig) map[string]int {
	lower := strings.ToLower(text)
	counts := make(map[string]int)

	for topic, phrases := range topics {
		count := 0
		for _, phrase := range phrases {
			if phrase == "" {
				continue
			}
			count += strings.Count(lower, strings.ToLower(phrase))
		}
		if count > 0 {
			counts[topic] = count
		}
	}
	return counts
}

// DominantTopic returns the topic with the highest count. Ties go to the
// lexically smallest topic name. An empty mapping yields DefaultTopic.
func DominantTopic(counts map[string]int) string {
	if len(counts) == 0 {
		return DefaultTopic
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	best := names[0]
	for _, name := range names[1:] {
		if counts[name] > counts[best] {
			best = name
		}
	}
	return best
}
