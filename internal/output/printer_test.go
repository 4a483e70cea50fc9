package output

import (
	"bytes"
	"testing"
	"time"

	"quietly-stated/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plainPrinter(quiet bool) (*Printer, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	p := NewPrinter(PrinterOptions{Out: &stdout, Err: &stderr, ColorMode: ColorNever, Quiet: quiet})
	return p, &stdout, &stderr
}

func TestParseColorMode(t *testing.T) {
	for in, want := range map[string]ColorMode{"auto": ColorAuto, "": ColorAuto, "always": ColorAlways, "never": ColorNever} {
		got, err := ParseColorMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseColorMode("sometimes")
	assert.Error(t, err)
}

func TestResolveColors(t *testing.T) {
	assert.True(t, ResolveColors(ColorAlways))
	assert.False(t, ResolveColors(ColorNever))

	t.Setenv("NO_COLOR", "1")
	assert.False(t, ResolveColors(ColorAuto))
}

func TestPrinter_Messages(t *testing.T) {
	p, stdout, stderr := plainPrinter(false)

	p.Success("saved %d", 3)
	p.Warning("slow feed %s", "acme")
	p.Error("boom")
	p.Header("Title")

	assert.Contains(t, stdout.String(), "[OK] saved 3\n")
	assert.Contains(t, stdout.String(), "\nTitle\n-----\n")
	assert.Contains(t, stderr.String(), "[WARN] slow feed acme\n")
	assert.Contains(t, stderr.String(), "[ERROR] boom\n")
}

func TestPrinter_Quiet(t *testing.T) {
	p, stdout, stderr := plainPrinter(true)

	p.Info("hidden")
	p.Success("hidden")
	p.Error("shown")

	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "shown")
}

func TestPrinter_Growth(t *testing.T) {
	p, _, _ := plainPrinter(false)
	assert.Equal(t, "+12.5%", p.Growth(12.5))
	assert.Equal(t, "-4.0%", p.Growth(-4))
	assert.Equal(t, "+0.0%", p.Growth(0))
}

func TestFormatError(t *testing.T) {
	p, _, stderr := plainPrinter(false)

	p.FormatError(&CLIError{Summary: "store unreachable", Suggestion: "check database.host", ExitCode: ExitStoreError})

	out := stderr.String()
	assert.Contains(t, out, "[ERROR] store unreachable")
	assert.NotContains(t, out, "Cause:")
	assert.Contains(t, out, "Suggestion: check database.host")
	assert.Equal(t, "store unreachable", (&CLIError{Summary: "store unreachable"}).Error())
}

func TestWeeklyReport(t *testing.T) {
	p, stdout, _ := plainPrinter(false)
	now := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)

	err := p.WeeklyReport(&domain.WeeklyReport{
		Windows: domain.WeeklyWindows(now),
		Terms: domain.TopTermsReport{
			TopByAvg:    []domain.TermStat{{Term: "coffee", AvgCurrent: 40, AvgPrevious: 20, GrowthPct: 100}},
			TopByGrowth: []domain.TermStat{{Term: "coffee", AvgCurrent: 40, AvgPrevious: 20, GrowthPct: 100}},
		},
		Notable: []domain.NotableStat{{Topic: "beverages", Entity: "Coffee", Metric: "consumption", Value: -4, Context: "Coffee consumption changed -4% last month"}},
	})
	require.NoError(t, err)

	out := stdout.String()
	assert.Contains(t, out, "QUIETLYSTATED WEEKLY REPORT")
	assert.Contains(t, out, "Current:  2026-03-08 to 2026-03-15")
	assert.Contains(t, out, "coffee")
	assert.Contains(t, out, "40.0")
	assert.Contains(t, out, "+100.0%")
	assert.Contains(t, out, "1. beverages - consumption")
	assert.Contains(t, out, "-4.0% - Coffee")
	assert.Contains(t, out, "none")
}

func TestConfigStats(t *testing.T) {
	p, stdout, _ := plainPrinter(false)
	stats := &domain.ConfigStats{}
	stats.Feeds.Total = 3
	stats.Feeds.Enabled = 2
	stats.Topics.Total = 4
	stats.Topics.Phrases = 11

	require.NoError(t, p.ConfigStats(stats))
	out := stdout.String()
	assert.Contains(t, out, "2 enabled")
	assert.Contains(t, out, "11 phrases")
	assert.Contains(t, out, "bias_rules")
}

func TestTable_EmptyRendersNothing(t *testing.T) {
	var buf bytes.Buffer
	table := NewTableWithWriter(&buf, []string{"A"})
	require.NoError(t, table.Render())
	assert.Empty(t, buf.String())
}
