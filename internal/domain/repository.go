package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ArticleFilter narrows article listings. Zero values mean no filter.
type ArticleFilter struct {
	Source  string
	Keyword string
	Limit   int
}

// SignalFilter narrows signal listings. Zero values mean no filter.
type SignalFilter struct {
	Topic string
	Since *time.Time
	Limit int
}

// InsightFilter narrows insight listings. Zero values mean no filter.
type InsightFilter struct {
	Topic string
	Since *time.Time
	Limit int
}

// ArticleRepository stores ingested articles.
type ArticleRepository interface {
	// Upsert inserts the article or updates the row with the same
	// (url, published_at). It reports whether a new row was created.
	Upsert(ctx context.Context, article *RawArticle) (bool, error)
	// ListFetchedBetween returns articles whose fetched_at lies in the window.
	ListFetchedBetween(ctx context.Context, window Window) ([]RawArticle, error)
	// GetByID returns nil, nil if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*RawArticle, error)
	// List returns articles newest published_at first.
	List(ctx context.Context, filter ArticleFilter) ([]RawArticle, error)
}

// AlertRepository stores ingested alerts.
type AlertRepository interface {
	Upsert(ctx context.Context, alert *RawAlert) (bool, error)
	ListFetchedBetween(ctx context.Context, window Window) ([]RawAlert, error)
}

// TrendRepository stores search-interest samples.
type TrendRepository interface {
	// Upsert is keyed by (term, geo, timeframe, pulled_at).
	Upsert(ctx context.Context, trend *RawTrend) error
	ListPulledBetween(ctx context.Context, window Window) ([]RawTrend, error)
}

// SignalRepository stores processed signals.
type SignalRepository interface {
	// InsertIfAbsent inserts the signal unless one with the same Key exists.
	// It reports whether the row was written.
	InsertIfAbsent(ctx context.Context, signal *ProcessedSignal) (bool, error)
	ListCreatedBetween(ctx context.Context, window Window) ([]ProcessedSignal, error)
	// List returns signals newest first.
	List(ctx context.Context, filter SignalFilter) ([]ProcessedSignal, error)
	// GetByID returns nil, nil if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*ProcessedSignal, error)
	ListBySource(ctx context.Context, sourceOrigin, sourceURL string) ([]ProcessedSignal, error)
}

// InsightRepository stores synthesized insights.
type InsightRepository interface {
	// InsertIfAbsent inserts the insight unless one with the same
	// (topic, window_start, window_end) exists. On a duplicate, insight.ID
	// and insight.CreatedAt are replaced with the stored row's values.
	InsertIfAbsent(ctx context.Context, insight *Insight) (bool, error)
	List(ctx context.Context, filter InsightFilter) ([]Insight, error)
	// GetByID returns nil, nil if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*Insight, error)
	// ListReferencing returns insights whose signal_ids overlap ids.
	ListReferencing(ctx context.Context, ids []uuid.UUID) ([]Insight, error)
}

// ConfigRepository stores configuration documents, one active per type.
type ConfigRepository interface {
	// GetActive returns nil, nil if no active document exists.
	GetActive(ctx context.Context, configType ConfigType) (*ConfigDocument, error)
	Upsert(ctx context.Context, doc *ConfigDocument) error
}

// TransactionManager runs fn in a transaction carried by ctx.
// Repositories obtained from the same Store join it.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store bundles the repositories of one storage engine.
type Store interface {
	TransactionManager
	Articles() ArticleRepository
	Alerts() AlertRepository
	Trends() TrendRepository
	Signals() SignalRepository
	Insights() InsightRepository
	Configs() ConfigRepository
	// Migrate creates or upgrades the schema.
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// PipelineLockName is the run lock shared by scheduled, manual and API runs.
const PipelineLockName = "pipeline"

// RunLock guards a pipeline run across processes.
type RunLock interface {
	// TryLock returns ErrLockHeld when another holder owns name.
	TryLock(ctx context.Context, name string, ttl time.Duration) (unlock func(context.Context) error, err error)
}
