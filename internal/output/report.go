package output

import (
	"fmt"
	"strconv"

	"quietly-stated/internal/domain"
)

const reportRows = 5

// WeeklyReport renders the three rankings as headed tables.
func (p *Printer) WeeklyReport(report *domain.WeeklyReport) error {
	const layout = "2006-01-02"
	w := report.Windows

	p.Banner("QUIETLYSTATED WEEKLY REPORT")
	p.Print("Current:  %s to %s", w.Current.Start.Format(layout), w.Current.End.Format(layout))
	p.Print("Previous: %s to %s", w.Previous.Start.Format(layout), w.Previous.End.Format(layout))

	p.Header("📈 TOP SEARCH TERMS")
	p.Print("Top by Average Interest:")
	byAvg := p.NewTable("#", "Term", "Avg", "Was")
	for i, t := range limitRows(report.Terms.TopByAvg, reportRows) {
		byAvg.AddRow(strconv.Itoa(i+1), t.Term, fmt.Sprintf("%.1f", t.AvgCurrent), fmt.Sprintf("%.1f", t.AvgPrevious))
	}
	if err := p.renderOrEmpty(byAvg); err != nil {
		return err
	}
	p.Print("\nTop by Growth:")
	byGrowth := p.NewTable("#", "Term", "Growth")
	for i, t := range limitRows(report.Terms.TopByGrowth, reportRows) {
		byGrowth.AddRow(strconv.Itoa(i+1), t.Term, p.Growth(t.GrowthPct))
	}
	if err := p.renderOrEmpty(byGrowth); err != nil {
		return err
	}

	p.Header("🏷️  TOP TOPICS")
	p.Print("Top by Signal Count:")
	byCount := p.NewTable("#", "Topic", "Signals", "Was")
	for i, t := range limitRows(report.Topics.TopByCount, reportRows) {
		byCount.AddRow(strconv.Itoa(i+1), t.Topic, strconv.Itoa(t.CountCurrent), strconv.Itoa(t.CountPrevious))
	}
	if err := p.renderOrEmpty(byCount); err != nil {
		return err
	}
	p.Print("\nTop by Growth:")
	topicGrowth := p.NewTable("#", "Topic", "Growth")
	for i, t := range limitRows(report.Topics.TopByGrowth, reportRows) {
		topicGrowth.AddRow(strconv.Itoa(i+1), t.Topic, p.Growth(t.GrowthPct))
	}
	if err := p.renderOrEmpty(topicGrowth); err != nil {
		return err
	}

	p.Header("📊 NOTABLE STATISTICS")
	if len(report.Notable) == 0 {
		p.Print("%s", p.Dim("  none"))
	}
	for i, s := range limitRows(report.Notable, reportRows) {
		p.Print("\n  %d. %s - %s", i+1, p.Bold(s.Topic), s.Metric)
		p.Print("     %s - %s", p.Growth(s.Value), s.Entity)
		p.Print("     %s...", clipRunes(s.Context, 100))
	}
	p.Print("\n%s\n", "============================================================")
	return nil
}

// ConfigStats renders effective configuration counts.
func (p *Printer) ConfigStats(stats *domain.ConfigStats) error {
	t := p.NewTable("Config", "Total", "Detail")
	t.AddRow("feeds", strconv.Itoa(stats.Feeds.Total), fmt.Sprintf("%d enabled", stats.Feeds.Enabled))
	t.AddRow("topics", strconv.Itoa(stats.Topics.Total), fmt.Sprintf("%d phrases", stats.Topics.Phrases))
	t.AddRow("bias_rules", strconv.Itoa(stats.BiasRules.Total), "")
	return t.Render()
}

// EnrichResult prints the enrichment funnel.
func (p *Printer) EnrichResult(r *domain.EnrichResult) {
	p.Success("Processed %d documents: %d signals found, %d biased, %d saved, %d duplicates, %d failed",
		r.Documents, r.Total, r.Biased, r.Saved, r.Duplicates, r.Failed)
}

// IngestResult prints feed ingestion counts.
func (p *Printer) IngestResult(r *domain.IngestResult) {
	p.Success("Read %d feeds: %d alerts and %d articles saved, %d without data, %d biased, %d failed",
		r.Feeds, r.AlertsSaved, r.ArticlesSaved, r.SkippedNoData, r.SkippedBiased, r.Failed)
}

func (p *Printer) renderOrEmpty(t *Table) error {
	if t.Len() == 0 {
		p.Print("%s", p.Dim("  none"))
		return nil
	}
	return t.Render()
}

func limitRows[T any](rows []T, n int) []T {
	if len(rows) > n {
		return rows[:n]
	}
	return rows
}

func clipRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
