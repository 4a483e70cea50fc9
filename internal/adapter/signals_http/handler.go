package signals_http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"quietly-stated/internal/domain"
	"quietly-stated/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tunes request defaults.
type Options struct {
	Version          string
	DefaultDays      int
	NotableThreshold float64
	// Now is the report clock. Defaults to UTC now truncated to the minute.
	Now func() time.Time
	// RunLock, when set, is taken around job runs.
	RunLock domain.RunLock
	LockTTL time.Duration
}

type Handler struct {
	browse    usecase.BrowseUsecase
	reports   usecase.TrendReportUsecase
	enrich    usecase.EnrichSignalsUsecase
	aggregate usecase.AggregateInsightsUsecase
	db        Pinger
	opts      Options
}

func NewHandler(
	browse usecase.BrowseUsecase,
	reports usecase.TrendReportUsecase,
	enrich usecase.EnrichSignalsUsecase,
	aggregate usecase.AggregateInsightsUsecase,
	db Pinger,
	opts Options,
) *Handler {
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}
	if opts.DefaultDays <= 0 {
		opts.DefaultDays = 7
	}
	if opts.NotableThreshold <= 0 {
		opts.NotableThreshold = domain.DefaultNotableThreshold
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC().Truncate(time.Minute) }
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Minute
	}
	return &Handler{
		browse:    browse,
		reports:   reports,
		enrich:    enrich,
		aggregate: aggregate,
		db:        db,
		opts:      opts,
	}
}

type windowResponse struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type weeklyReportResponse struct {
	CurrentWindow  windowResponse `json:"current_window"`
	PreviousWindow windowResponse `json:"previous_window"`
	*domain.WeeklyReport
}

// Root identifies the service
// (GET /)
func (h *Handler) Root(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"message": "QuietlyStated API", "version": h.opts.Version})
}

// (GET /healthz)
func (h *Handler) Healthz(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// (GET /readyz)
func (h *Handler) Readyz(ctx echo.Context) error {
	if err := h.db.Ping(ctx.Request().Context()); err != nil {
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"status": "db down", "error": err.Error()})
	}
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

// List signals newest first
// (GET /v1/signals)
func (h *Handler) ListSignals(ctx echo.Context) error {
	filter := domain.SignalFilter{
		Topic: ctx.QueryParam("topic"),
		Since: parseSince(ctx.QueryParam("since")),
		Limit: queryInt(ctx, "limit", 0),
	}
	signals, err := h.browse.ListSignals(ctx.Request().Context(), filter)
	if err != nil {
		return errorJSON(ctx, err, "")
	}
	return ctx.JSON(http.StatusOK, orEmpty(signals))
}

// (GET /v1/signals/:id)
func (h *Handler) GetSignal(ctx echo.Context) error {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid signal ID"})
	}
	signal, err := h.browse.GetSignal(ctx.Request().Context(), id)
	if err != nil {
		return errorJSON(ctx, err, "Signal not found")
	}
	return ctx.JSON(http.StatusOK, signal)
}

// List insights newest first
// (GET /v1/insights)
func (h *Handler) ListInsights(ctx echo.Context) error {
	filter := domain.InsightFilter{
		Topic: ctx.QueryParam("topic"),
		Since: parseSince(ctx.QueryParam("since")),
		Limit: queryInt(ctx, "limit", 0),
	}
	insights, err := h.browse.ListInsights(ctx.Request().Context(), filter)
	if err != nil {
		return errorJSON(ctx, err, "")
	}
	return ctx.JSON(http.StatusOK, orEmpty(insights))
}

// (GET /v1/insights/:id)
func (h *Handler) GetInsight(ctx echo.Context) error {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid insight ID"})
	}
	insight, err := h.browse.GetInsight(ctx.Request().Context(), id)
	if err != nil {
		return errorJSON(ctx, err, "Insight not found")
	}
	return ctx.JSON(http.StatusOK, insight)
}

// List articles, newest published first
// (GET /v1/sources/articles)
func (h *Handler) ListArticles(ctx echo.Context) error {
	filter := domain.ArticleFilter{
		Source:  ctx.QueryParam("source"),
		Keyword: ctx.QueryParam("keyword"),
		Limit:   queryInt(ctx, "limit", 0),
	}
	articles, err := h.browse.ListArticles(ctx.Request().Context(), filter)
	if err != nil {
		return errorJSON(ctx, err, "")
	}
	return ctx.JSON(http.StatusOK, orEmpty(articles))
}

// Article with its signals and the insights built from them
// (GET /v1/sources/articles/:id)
func (h *Handler) GetArticle(ctx echo.Context) error {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid article ID"})
	}
	detail, err := h.browse.GetArticle(ctx.Request().Context(), id)
	if err != nil {
		return errorJSON(ctx, err, "Article not found")
	}
	return ctx.JSON(http.StatusOK, detail)
}

// (GET /v1/reports/weekly)
func (h *Handler) WeeklyReport(ctx echo.Context) error {
	report, err := h.reports.WeeklyReport(ctx.Request().Context(), h.opts.Now())
	if err != nil {
		return errorJSON(ctx, err, "")
	}
	return ctx.JSON(http.StatusOK, weeklyReportResponse{
		CurrentWindow:  windowResponse{Start: report.Windows.Current.Start, End: report.Windows.Current.End},
		PreviousWindow: windowResponse{Start: report.Windows.Previous.Start, End: report.Windows.Previous.End},
		WeeklyReport:   report,
	})
}

// (GET /v1/reports/top-terms)
func (h *Handler) TopTerms(ctx echo.Context) error {
	report, err := h.reports.TopTerms(ctx.Request().Context(), domain.WeeklyWindows(h.opts.Now()), queryInt(ctx, "limit", 0))
	if err != nil {
		return errorJSON(ctx, err, "")
	}
	return ctx.JSON(http.StatusOK, report)
}

// (GET /v1/reports/top-topics)
func (h *Handler) TopTopics(ctx echo.Context) error {
	report, err := h.reports.TopTopics(ctx.Request().Context(), domain.WeeklyWindows(h.opts.Now()), queryInt(ctx, "limit", 0))
	if err != nil {
		return errorJSON(ctx, err, "")
	}
	return ctx.JSON(http.StatusOK, report)
}

// (GET /v1/reports/notable)
func (h *Handler) NotableStats(ctx echo.Context) error {
	threshold := h.opts.NotableThreshold
	if raw := ctx.QueryParam("threshold"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v >= 0 {
			threshold = v
		}
	}
	stats, err := h.reports.NotableStats(ctx.Request().Context(), domain.WeeklyWindows(h.opts.Now()).Current, threshold)
	if err != nil {
		return errorJSON(ctx, err, "")
	}
	return ctx.JSON(http.StatusOK, orEmpty(stats))
}

// Run signal enrichment over the last days
// (POST /v1/jobs/enrich)
func (h *Handler) RunEnrich(ctx echo.Context) error {
	days, ok := h.queryDays(ctx)
	if !ok {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid days"})
	}
	var result *domain.EnrichResult
	err := h.withRunLock(ctx.Request().Context(), func(c context.Context) (err error) {
		result, err = h.enrich.Execute(c, days)
		return err
	})
	if err != nil {
		return errorJSON(ctx, err, "")
	}
	return ctx.JSON(http.StatusOK, result)
}

// Run insight aggregation over the last days
// (POST /v1/jobs/aggregate)
func (h *Handler) RunAggregate(ctx echo.Context) error {
	days, ok := h.queryDays(ctx)
	if !ok {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid days"})
	}
	var result *usecase.AggregateResult
	err := h.withRunLock(ctx.Request().Context(), func(c context.Context) (err error) {
		result, err = h.aggregate.Execute(c, days)
		return err
	})
	if err != nil {
		return errorJSON(ctx, err, "")
	}
	return ctx.JSON(http.StatusOK, result)
}

func (h *Handler) withRunLock(ctx context.Context, fn func(context.Context) error) error {
	if h.opts.RunLock == nil {
		return fn(ctx)
	}
	unlock, err := h.opts.RunLock.TryLock(ctx, domain.PipelineLockName, h.opts.LockTTL)
	if err != nil {
		return err
	}
	defer func() { _ = unlock(context.WithoutCancel(ctx)) }()
	return fn(ctx)
}

func (h *Handler) queryDays(ctx echo.Context) (int, bool) {
	raw := ctx.QueryParam("days")
	if raw == "" {
		return h.opts.DefaultDays, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 0 {
		return 0, false
	}
	return days, true
}

// errorJSON maps usecase errors to status codes. notFound replaces the
// message of ErrNotFound responses when set.
func errorJSON(ctx echo.Context, err error, notFound string) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		msg := notFound
		if msg == "" {
			msg = err.Error()
		}
		return ctx.JSON(http.StatusNotFound, map[string]string{"error": msg})
	case errors.Is(err, domain.ErrInvalidWindow):
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrLockHeld):
		return ctx.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

// queryInt returns def when the parameter is absent or not an integer.
func queryInt(ctx echo.Context, name string, def int) int {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

var sinceLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// parseSince accepts ISO 8601 timestamps. Anything else disables the filter.
func parseSince(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range sinceLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
