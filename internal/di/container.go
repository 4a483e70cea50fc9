package di

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"quietly-stated/internal/adapter/feedsource"
	"quietly-stated/internal/adapter/repository"
	"quietly-stated/internal/adapter/runlock"
	"quietly-stated/internal/adapter/sqlitestore"
	"quietly-stated/internal/domain"
	"quietly-stated/internal/infra"
	"quietly-stated/internal/infra/config"
	"quietly-stated/internal/usecase"
)

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	Store domain.Store

	// Rules
	Rules     usecase.RulesUsecase
	Topics    domain.TopicConfig
	BiasRules []domain.BiasRule

	// Usecases
	Enrich    usecase.EnrichSignalsUsecase
	Aggregate usecase.AggregateInsightsUsecase
	Reports   usecase.TrendReportUsecase
	Browse    usecase.BrowseUsecase
	Ingest    usecase.IngestUsecase

	RunLock domain.RunLock

	closers []func() error
}

// OpenStore connects the storage engine selected by database.driver.
// The embedded engine is migrated on open.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (domain.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := infra.NewSQLiteDB(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		store := sqlitestore.New(db, log)
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to migrate sqlite: %w", err)
		}
		return store, nil
	case "postgres":
		pool, err := infra.NewPostgresDB(ctx, cfg.DSN(), infra.PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
		if err != nil {
			return nil, err
		}
		return repository.NewPostgresStore(pool, log), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

// NewApplicationComponents wires usecases over store. Topics and bias rules
// are resolved once here and shared by enrichment and ingestion.
func NewApplicationComponents(ctx context.Context, cfg *config.Config, store domain.Store, log *slog.Logger) (*ApplicationComponents, error) {
	rules := usecase.NewRulesUsecase(store.Configs(), store, config.NewRulesFiles(cfg.Rules.Dir), log)

	topics, err := rules.Topics(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load topics: %w", err)
	}
	biasRules, err := rules.BiasRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load bias rules: %w", err)
	}
	bias := domain.NewBiasFilter(biasRules)
	analyzer := domain.NewHeuristicAnalyzer(nil)

	c := &ApplicationComponents{
		Store:     store,
		Rules:     rules,
		Topics:    topics,
		BiasRules: biasRules,
	}

	c.Enrich = usecase.NewEnrichSignalsUsecase(
		store.Articles(), store.Alerts(), store.Signals(), analyzer, topics, bias, log,
	)
	c.Aggregate = usecase.NewAggregateInsightsUsecase(
		store.Signals(), store.Insights(), analyzer, cfg.Pipeline.MinSignals, log,
	)
	c.Reports = usecase.NewCachedTrendReport(
		usecase.NewTrendReportUsecase(store.Trends(), store.Signals(), cfg.Pipeline.NotableThreshold),
		cfg.Pipeline.ReportCacheSize,
		cfg.Pipeline.ReportCacheTTL,
	)
	c.Browse = usecase.NewBrowseUsecase(store.Articles(), store.Signals(), store.Insights())

	fetcher := feedsource.New(feedsource.Options{
		Timeout:   cfg.Ingest.RequestTimeout,
		UserAgent: cfg.Ingest.UserAgent,
	}, log)
	c.Ingest = usecase.NewIngestUsecase(usecase.IngestDeps{
		Feeds:       rules,
		Fetcher:     fetcher,
		Articles:    store.Articles(),
		Alerts:      store.Alerts(),
		Trends:      store.Trends(),
		Bias:        bias,
		Concurrency: cfg.Ingest.Concurrency,
		Logger:      log,
	})

	if cfg.Redis.URL != "" {
		lock, err := runlock.NewRedisLockWithURL(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect run lock: %w", err)
		}
		c.RunLock = lock
		c.closers = append(c.closers, lock.Close)
	} else {
		c.RunLock = runlock.NewLocalLock()
	}

	log.Info("application components wired",
		"driver", cfg.Database.Driver,
		"topics", len(topics),
		"bias_rules", len(biasRules),
		"redis_lock", cfg.Redis.URL != "")
	return c, nil
}

// Close releases the run lock client and the store.
func (c *ApplicationComponents) Close() error {
	var errs []error
	for _, closeFn := range c.closers {
		errs = append(errs, closeFn())
	}
	errs = append(errs, c.Store.Close())
	return errors.Join(errs...)
}
