package signals_mcp

import (
	"fmt"
	"strconv"
	"strings"

	"quietly-stated/internal/domain"
)

const (
	signalContextRunes  = 150
	notableContextRunes = 120
	dataPointRunes      = 100
)

func formatInsights(insights []domain.Insight, topic string, days int) string {
	if len(insights) == 0 {
		return fmt.Sprintf("No insights found in the last %d days", days) + topicSuffix(topic)
	}
	lines := []string{fmt.Sprintf("📊 Found %d insights:\n", len(insights))}
	for i, in := range insights {
		lines = append(lines,
			fmt.Sprintf("\n%d. **%s**", i+1, orDefault(in.Title, "Untitled")),
			"   Topic: "+orDefault(in.Topic, "N/A"),
			"   Summary: "+orDefault(in.Summary, "N/A"),
			"   Implication: "+orDefault(in.Implication, "N/A"),
		)
		if in.TargetAudience != "" {
			lines = append(lines, "   For: "+in.TargetAudience)
		}
	}
	return strings.Join(lines, "\n")
}

func formatSignals(signals []domain.ProcessedSignal, topic string, days int) string {
	if len(signals) == 0 {
		return fmt.Sprintf("No signals found in the last %d days", days) + topicSuffix(topic)
	}
	lines := []string{fmt.Sprintf("📈 Found %d signals:\n", len(signals))}
	for i, s := range signals {
		lines = append(lines, fmt.Sprintf("\n%d. [%s] %s: %s = %s%s",
			i+1, orDefault(s.Topic, "N/A"), orDefault(s.Entity, "Unknown"), orDefault(s.Metric, "metric"), number(s.ValueNow), s.Unit))
		if s.ContextSentence != "" {
			lines = append(lines, "   Context: "+clip(s.ContextSentence, signalContextRunes)+"...")
		}
	}
	return strings.Join(lines, "\n")
}

func formatWeeklyReport(report *domain.WeeklyReport) string {
	const layout = "2006-01-02"
	w := report.Windows
	lines := []string{
		"📊 **WEEKLY REPORT**\n",
		fmt.Sprintf("Current Week: %s to %s", w.Current.Start.Format(layout), w.Current.End.Format(layout)),
		fmt.Sprintf("Previous Week: %s to %s\n", w.Previous.Start.Format(layout), w.Previous.End.Format(layout)),
		"\n🔥 **TOP TERMS BY INTEREST:**",
	}
	for i, t := range firstN(report.Terms.TopByAvg, 5) {
		lines = append(lines, fmt.Sprintf("%d. %s: %.1f avg interest", i+1, t.Term, t.AvgCurrent))
	}
	lines = append(lines, "\n📈 **FASTEST GROWING TERMS:**")
	for i, t := range firstN(report.Terms.TopByGrowth, 5) {
		lines = append(lines, fmt.Sprintf("%d. %s: %+.1f%% growth", i+1, t.Term, t.GrowthPct))
	}
	lines = append(lines, "\n🏷️  **TOP TOPICS:**")
	for i, t := range firstN(report.Topics.TopByCount, 5) {
		lines = append(lines, fmt.Sprintf("%d. %s: %d mentions", i+1, t.Topic, t.CountCurrent))
	}
	lines = append(lines, "\n💡 **NOTABLE STATS:**")
	for i, s := range firstN(report.Notable, 5) {
		lines = append(lines, fmt.Sprintf("%d. %s: %s = %s%s", i+1, s.Entity, s.Metric, number(s.Value), s.Unit))
	}
	return strings.Join(lines, "\n")
}

func formatTopTerms(report *domain.TopTermsReport, limit int) string {
	lines := []string{fmt.Sprintf("🔍 **TOP %d SEARCH TERMS**\n", limit), "**By Interest:**"}
	for i, t := range firstN(report.TopByAvg, limit) {
		lines = append(lines, fmt.Sprintf("%d. %s: %.1f avg interest", i+1, t.Term, t.AvgCurrent))
	}
	lines = append(lines, "\n**By Growth:**")
	for i, t := range firstN(report.TopByGrowth, limit) {
		lines = append(lines, fmt.Sprintf("%d. %s: %+.1f%% growth", i+1, t.Term, t.GrowthPct))
	}
	return strings.Join(lines, "\n")
}

func formatTopTopics(report *domain.TopTopicsReport, limit int) string {
	lines := []string{fmt.Sprintf("🏷️  **TOP %d TOPICS**\n", limit), "**By Count:**"}
	for i, t := range firstN(report.TopByCount, limit) {
		lines = append(lines, fmt.Sprintf("%d. %s: %d mentions", i+1, t.Topic, t.CountCurrent))
	}
	lines = append(lines, "\n**By Growth:**")
	for i, t := range firstN(report.TopByGrowth, limit) {
		lines = append(lines, fmt.Sprintf("%d. %s: %+.1f%% growth", i+1, t.Topic, t.GrowthPct))
	}
	return strings.Join(lines, "\n")
}

func formatNotable(stats []domain.NotableStat, threshold float64) string {
	if len(stats) == 0 {
		return "No notable stats found with threshold >= " + number(threshold)
	}
	lines := []string{fmt.Sprintf("💡 **NOTABLE STATS** (threshold: %s)\n", number(threshold))}
	for i, s := range stats {
		lines = append(lines,
			fmt.Sprintf("\n%d. **%s**", i+1, s.Entity),
			fmt.Sprintf("   %s: %s%s", s.Metric, number(s.Value), s.Unit),
		)
		if s.Context != "" {
			lines = append(lines, "   Context: "+clip(s.Context, notableContextRunes)+"...")
		}
	}
	return strings.Join(lines, "\n")
}

func formatArticles(articles []domain.RawArticle, keyword, source string) string {
	if len(articles) == 0 {
		var filters []string
		if keyword != "" {
			filters = append(filters, fmt.Sprintf("keyword '%s'", keyword))
		}
		if source != "" {
			filters = append(filters, fmt.Sprintf("source '%s'", source))
		}
		criteria := "any criteria"
		if len(filters) > 0 {
			criteria = strings.Join(filters, " and ")
		}
		return "No articles found matching " + criteria
	}
	lines := []string{fmt.Sprintf("📰 **FOUND %d ARTICLES**\n", len(articles))}
	for i, a := range articles {
		date := "Unknown date"
		if !a.PublishedAt.IsZero() {
			date = a.PublishedAt.Format("2006-01-02")
		}
		lines = append(lines,
			fmt.Sprintf("\n%d. **%s**", i+1, orDefault(a.Title, "Untitled")),
			fmt.Sprintf("   Source: %s | Date: %s", orDefault(a.SourceOrigin, "Unknown"), date),
			"   URL: "+a.URL,
		)
		if len(a.DataPoints) > 0 {
			lines = append(lines, "   Key Data:")
			for _, dp := range firstN(a.DataPoints, 2) {
				lines = append(lines, "   • "+clip(dp, dataPointRunes)+"...")
			}
		}
	}
	return strings.Join(lines, "\n")
}

func topicSuffix(topic string) string {
	if topic == "" {
		return ""
	}
	return fmt.Sprintf(" for topic '%s'", topic)
}

// number prints whole floats with a trailing ".0", the way report readers
// expect values such as "12.0" and "-4.0".
func number(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func firstN[T any](items []T, n int) []T {
	if n < 0 {
		n = 0
	}
	if len(items) > n {
		return items[:n]
	}
	return items
}
