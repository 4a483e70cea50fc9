package repository

import (
	"context"
	"log/slog"

	"quietly-stated/internal/domain"
)

// PostgresStore implements domain.Store over a pgx pool.
type PostgresStore struct {
	pool   Pool
	logger *slog.Logger

	articles *ArticleRepository
	alerts   *AlertRepository
	trends   *TrendRepository
	signals  *SignalRepository
	insights *InsightRepository
	configs  *ConfigRepository
}

var _ domain.Store = (*PostgresStore)(nil)

func NewPostgresStore(pool Pool, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{
		pool:     pool,
		logger:   logger,
		articles: &ArticleRepository{pool: pool},
		alerts:   &AlertRepository{pool: pool},
		trends:   &TrendRepository{pool: pool, logger: logger},
		signals:  &SignalRepository{pool: pool},
		insights: &InsightRepository{pool: pool},
		configs:  &ConfigRepository{pool: pool},
	}
}

func (s *PostgresStore) Articles() domain.ArticleRepository { return s.articles }
func (s *PostgresStore) Alerts() domain.AlertRepository     { return s.alerts }
func (s *PostgresStore) Trends() domain.TrendRepository     { return s.trends }
func (s *PostgresStore) Signals() domain.SignalRepository   { return s.signals }
func (s *PostgresStore) Insights() domain.InsightRepository { return s.insights }
func (s *PostgresStore) Configs() domain.ConfigRepository   { return s.configs }

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
