// Package signals_mcp exposes reports and browsing as MCP tools over stdio.
package signals_mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"quietly-stated/internal/domain"
	"quietly-stated/internal/usecase"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverName = "quietlystated"

var objectSchema = map[string]any{"type": "object"}

type Server struct {
	browse  usecase.BrowseUsecase
	reports usecase.TrendReportUsecase
	now     func() time.Time
	log     *slog.Logger
	mcp     *mcp.Server
}

func NewServer(browse usecase.BrowseUsecase, reports usecase.TrendReportUsecase, version string, log *slog.Logger) *Server {
	s := &Server{
		browse:  browse,
		reports: reports,
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Minute) },
		log:     log,
		mcp:     mcp.NewServer(&mcp.Implementation{Name: serverName, Version: version}, nil),
	}
	s.register("get_weekly_report", "Get weekly trend report comparing this week vs last week", s.weeklyReport)
	s.register("get_insights", "Get recent insights. Optional params: topic (string), limit (number), days (number)", s.insights)
	s.register("get_signals", "Get processed signals. Optional params: topic (string), limit (number), days (number)", s.signals)
	s.register("get_top_terms", "Get top search terms. Optional param: limit (number)", s.topTerms)
	s.register("get_top_topics", "Get top topics. Optional param: limit (number)", s.topTopics)
	s.register("get_notable_stats", "Get notable statistics. Optional param: threshold (number, default 5.0)", s.notableStats)
	s.register("search_articles", "Search articles. Optional params: keyword (string), source (string), limit (number)", s.searchArticles)
	return s
}

// MCP returns the underlying server, e.g. to connect another transport.
func (s *Server) MCP() *mcp.Server { return s.mcp }

// Run serves on stdin/stdout until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("mcp server listening on stdio", "name", serverName)
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

type toolFunc func(ctx context.Context, args toolArgs) (string, error)

func (s *Server) register(name, description string, fn toolFunc) {
	s.mcp.AddTool(&mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: objectSchema,
	}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := fn(ctx, parseArgs(req.Params.Arguments))
		if err != nil {
			s.log.ErrorContext(ctx, "tool call failed", "tool", name, "error", err)
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
			}, nil
		}
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}, nil
	})
}

func (s *Server) weeklyReport(ctx context.Context, _ toolArgs) (string, error) {
	report, err := s.reports.WeeklyReport(ctx, s.now())
	if err != nil {
		return "", err
	}
	return formatWeeklyReport(report), nil
}

func (s *Server) insights(ctx context.Context, args toolArgs) (string, error) {
	topic := args.str("topic")
	limit := args.positiveInt("limit", 10)
	days := args.nonNegativeInt("days", 7)
	since := s.now().AddDate(0, 0, -days)

	insights, err := s.browse.ListInsights(ctx, domain.InsightFilter{Topic: topic, Since: &since, Limit: limit})
	if err != nil {
		return "", err
	}
	return formatInsights(insights, topic, days), nil
}

func (s *Server) signals(ctx context.Context, args toolArgs) (string, error) {
	topic := args.str("topic")
	limit := args.positiveInt("limit", 20)
	days := args.nonNegativeInt("days", 7)
	since := s.now().AddDate(0, 0, -days)

	signals, err := s.browse.ListSignals(ctx, domain.SignalFilter{Topic: topic, Since: &since, Limit: limit})
	if err != nil {
		return "", err
	}
	return formatSignals(signals, topic, days), nil
}

func (s *Server) topTerms(ctx context.Context, args toolArgs) (string, error) {
	limit := args.positiveInt("limit", 10)
	report, err := s.reports.TopTerms(ctx, domain.WeeklyWindows(s.now()), limit)
	if err != nil {
		return "", err
	}
	return formatTopTerms(report, limit), nil
}

func (s *Server) topTopics(ctx context.Context, args toolArgs) (string, error) {
	limit := args.positiveInt("limit", 10)
	report, err := s.reports.TopTopics(ctx, domain.WeeklyWindows(s.now()), limit)
	if err != nil {
		return "", err
	}
	return formatTopTopics(report, limit), nil
}

func (s *Server) notableStats(ctx context.Context, args toolArgs) (string, error) {
	threshold := args.decimal("threshold", domain.DefaultNotableThreshold)
	stats, err := s.reports.NotableStats(ctx, domain.WeeklyWindows(s.now()).Current, threshold)
	if err != nil {
		return "", err
	}
	return formatNotable(stats, threshold), nil
}

func (s *Server) searchArticles(ctx context.Context, args toolArgs) (string, error) {
	keyword := args.str("keyword")
	source := args.str("source")
	limit := args.positiveInt("limit", 10)

	articles, err := s.browse.ListArticles(ctx, domain.ArticleFilter{Source: source, Keyword: keyword, Limit: limit})
	if err != nil {
		return "", err
	}
	return formatArticles(articles, keyword, source), nil
}

// toolArgs is a lenient view over call arguments. Missing or malformed
// values fall back to the caller's default.
type toolArgs map[string]any

func parseArgs(raw json.RawMessage) toolArgs {
	args := toolArgs{}
	if len(raw) == 0 {
		return args
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return toolArgs{}
	}
	return args
}

func (a toolArgs) str(name string) string {
	v, _ := a[name].(string)
	return v
}

func (a toolArgs) decimal(name string, def float64) float64 {
	switch v := a[name].(type) {
	case float64:
		return v
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func (a toolArgs) integer(name string, def int) int {
	switch v := a[name].(type) {
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func (a toolArgs) positiveInt(name string, def int) int {
	if n := a.integer(name, def); n > 0 {
		return n
	}
	return def
}

func (a toolArgs) nonNegativeInt(name string, def int) int {
	if n := a.integer(name, def); n >= 0 {
		return n
	}
	return def
}
