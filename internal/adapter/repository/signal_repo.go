package repository

import (
	"context"
	"errors"
	"fmt"

	"quietly-stated/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const signalColumns = `id, source_type, source_origin, source_url, topic, entity, metric, value_now, value_before, unit, time_ref, context_sentence, model_used, confidence, created_at`

type SignalRepository struct {
	pool Pool
}

// InsertIfAbsent relies on the unique (source_origin, source_url, context_sentence) constraint.
func (r *SignalRepository) InsertIfAbsent(ctx context.Context, s *domain.ProcessedSignal) (bool, error) {
	query := `
		INSERT INTO processed_signals (` + signalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (source_origin, source_url, context_sentence) DO NOTHING
	`
	tag, err := conn(ctx, r.pool).Exec(ctx, query,
		s.ID,
		string(s.SourceType),
		s.SourceOrigin,
		s.SourceURL,
		s.Topic,
		s.Entity,
		s.Metric,
		s.ValueNow,
		s.ValueBefore,
		s.Unit,
		s.TimeRef,
		s.ContextSentence,
		s.ModelUsed,
		s.Confidence,
		s.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert signal: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *SignalRepository) ListCreatedBetween(ctx context.Context, window domain.Window) ([]domain.ProcessedSignal, error) {
	query := `SELECT ` + signalColumns + ` FROM processed_signals WHERE created_at >= $1 AND created_at <= $2 ORDER BY created_at ASC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("failed to list signals: %w", err)
	}
	return collectSignals(rows)
}

func (r *SignalRepository) List(ctx context.Context, filter domain.SignalFilter) ([]domain.ProcessedSignal, error) {
	var w whereBuilder
	if filter.Topic != "" {
		w.add("topic = ?", filter.Topic)
	}
	if filter.Since != nil {
		w.add("created_at >= ?", *filter.Since)
	}
	query := `SELECT ` + signalColumns + ` FROM processed_signals` + w.clause() + ` ORDER BY created_at DESC`
	query += w.limit(filter.Limit)

	rows, err := conn(ctx, r.pool).Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list signals: %w", err)
	}
	return collectSignals(rows)
}

func (r *SignalRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ProcessedSignal, error) {
	query := `SELECT ` + signalColumns + ` FROM processed_signals WHERE id = $1`
	s, err := scanSignal(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get signal: %w", err)
	}
	return s, nil
}

func (r *SignalRepository) ListBySource(ctx context.Context, sourceOrigin, sourceURL string) ([]domain.ProcessedSignal, error) {
	query := `SELECT ` + signalColumns + ` FROM processed_signals WHERE source_origin = $1 AND source_url = $2 ORDER BY created_at DESC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, sourceOrigin, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to list signals by source: %w", err)
	}
	return collectSignals(rows)
}

func scanSignal(row pgx.Row) (*domain.ProcessedSignal, error) {
	var s domain.ProcessedSignal
	var sourceType string
	err := row.Scan(
		&s.ID,
		&sourceType,
		&s.SourceOrigin,
		&s.SourceURL,
		&s.Topic,
		&s.Entity,
		&s.Metric,
		&s.ValueNow,
		&s.ValueBefore,
		&s.Unit,
		&s.TimeRef,
		&s.ContextSentence,
		&s.ModelUsed,
		&s.Confidence,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.SourceType = domain.SourceType(sourceType)
	return &s, nil
}

func collectSignals(rows pgx.Rows) ([]domain.ProcessedSignal, error) {
	defer rows.Close()
	var out []domain.ProcessedSignal
	for rows.Next() {
		s, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate signals: %w", err)
	}
	return out, nil
}
