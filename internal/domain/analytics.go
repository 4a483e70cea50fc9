package domain

import (
	"math"
	"sort"
	"time"
)

const (
	DefaultNotableThreshold = 5.0
	MaxNotableStats         = 20
	DefaultReportLimit      = 10
	reportPeriod            = 7 * 24 * time.Hour
)

type TermStat struct {
	Term        string  `json:"term"`
	AvgCurrent  float64 `json:"avg_current"`
	AvgPrevious float64 `json:"avg_previous"`
	GrowthPct   float64 `json:"growth_pct"`
}

type TopTermsReport struct {
	TopByAvg    []TermStat `json:"top_by_avg"`
	TopByGrowth []TermStat `json:"top_by_growth"`
}

type TopicStat struct {
	Topic         string  `json:"topic"`
	CountCurrent  int     `json:"count_current"`
	CountPrevious int     `json:"count_previous"`
	GrowthPct     float64 `json:"growth_pct"`
}

type TopTopicsReport struct {
	TopByCount  []TopicStat `json:"top_by_count"`
	TopByGrowth []TopicStat `json:"top_by_growth"`
}

// NotableStat is a single signal with a large absolute value.
type NotableStat struct {
	Topic     string    `json:"topic"`
	Entity    string    `json:"entity"`
	Metric    string    `json:"metric"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit"`
	Context   string    `json:"context"`
	CreatedAt time.Time `json:"created_at"`
}

// ReportWindows is a pair of comparison windows.
type ReportWindows struct {
	Current  Window
	Previous Window
}

// WeeklyWindows returns the last seven days and the seven days before.
// The previous window ends where the current one starts.
func WeeklyWindows(now time.Time) ReportWindows {
	currentStart := now.Add(-reportPeriod)
	return ReportWindows{
		Current:  Window{Start: currentStart, End: now},
		Previous: Window{Start: currentStart.Add(-reportPeriod), End: currentStart},
	}
}

// WeeklyReport bundles the three rankings over the same windows.
type WeeklyReport struct {
	Windows ReportWindows   `json:"-"`
	Terms   TopTermsReport  `json:"terms"`
	Topics  TopTopicsReport `json:"topics"`
	Notable []NotableStat   `json:"notable"`
}

// GrowthPct is the relative change from previous to current in percent.
// A zero or negative previous yields 100 when current is positive, else 0.
func GrowthPct(current, previous float64) float64 {
	if previous > 0 {
		return (current - previous) / previous * 100
	}
	if current > 0 {
		return 100.0
	}
	return 0.0
}

// RankTerms averages weekly interest per term in each window and ranks the
// union of terms by current average and by growth.
func RankTerms(current, previous []RawTrend, limit int) TopTermsReport {
	cur := averageByTerm(current)
	prev := averageByTerm(previous)

	names := unionKeys(cur, prev)
	stats := make([]TermStat, 0, len(names))
	for _, term := range names {
		stats = append(stats, TermStat{
			Term:        term,
			AvgCurrent:  cur[term],
			AvgPrevious: prev[term],
			GrowthPct:   GrowthPct(cur[term], prev[term]),
		})
	}

	byAvg := append([]TermStat(nil), stats...)
	sort.SliceStable(byAvg, func(i, j int) bool { return byAvg[i].AvgCurrent > byAvg[j].AvgCurrent })
	byGrowth := append([]TermStat(nil), stats...)
	sort.SliceStable(byGrowth, func(i, j int) bool { return byGrowth[i].GrowthPct > byGrowth[j].GrowthPct })

	return TopTermsReport{TopByAvg: head(byAvg, limit), TopByGrowth: head(byGrowth, limit)}
}

// RankTopics counts signals per topic in each window and ranks the union of
// topics by current count and by growth.
func RankTopics(current, previous []ProcessedSignal, limit int) TopTopicsReport {
	cur := countByTopic(current)
	prev := countByTopic(previous)

	names := unionKeys(cur, prev)
	stats := make([]TopicStat, 0, len(names))
	for _, topic := range names {
		stats = append(stats, TopicStat{
			Topic:         topic,
			CountCurrent:  cur[topic],
			CountPrevious: prev[topic],
			GrowthPct:     GrowthPct(float64(cur[topic]), float64(prev[topic])),
		})
	}

	byCount := append([]TopicStat(nil), stats...)
	sort.SliceStable(byCount, func(i, j int) bool { return byCount[i].CountCurrent > byCount[j].CountCurrent })
	byGrowth := append([]TopicStat(nil), stats...)
	sort.SliceStable(byGrowth, func(i, j int) bool { return byGrowth[i].GrowthPct > byGrowth[j].GrowthPct })

	return TopTopicsReport{TopByCount: head(byCount, limit), TopByGrowth: head(byGrowth, limit)}
}

// SelectNotable keeps signals with |value| >= threshold, largest absolute
// value first, and never returns more than MaxNotableStats entries.
func SelectNotable(signals []ProcessedSignal, threshold float64) []NotableStat {
	notable := make([]NotableStat, 0)
	for _, s := range signals {
		if math.Abs(s.ValueNow) < threshold {
			continue
		}
		notable = append(notable, NotableStat{
			Topic:     s.Topic,
			Entity:    s.Entity,
			Metric:    s.Metric,
			Value:     s.ValueNow,
			Unit:      s.Unit,
			Context:   s.ContextSentence,
			CreatedAt: s.CreatedAt,
		})
	}
	sort.SliceStable(notable, func(i, j int) bool {
		return math.Abs(notable[i].Value) > math.Abs(notable[j].Value)
	})
	return head(notable, MaxNotableStats)
}

func averageByTerm(trends []RawTrend) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, t := range trends {
		sums[t.Term] += t.WeeklyInterest
		counts[t.Term]++
	}
	avg := make(map[string]float64, len(sums))
	for term, sum := range sums {
		avg[term] = sum / float64(counts[term])
	}
	return avg
}

func countByTopic(signals []ProcessedSignal) map[string]int {
	counts := make(map[string]int)
	for _, s := range signals {
		counts[s.Topic]++
	}
	return counts
}

// unionKeys returns the keys of both maps sorted, which fixes the order of
// ties in the stable sorts above.
func unionKeys[V any](a, b map[string]V) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func head[T any](items []T, n int) []T {
	if n < 0 {
		n = 0
	}
	if len(items) > n {
		return items[:n]
	}
	return items
}
