package repository

import (
	"context"
	"errors"
	"fmt"

	"quietly-stated/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const insightColumns = `id, topic, title, summary, implication, target_audience, signal_ids, window_start, window_end, created_at`

type InsightRepository struct {
	pool Pool
}

// InsertIfAbsent relies on the unique (topic, window_start, window_end) constraint.
func (r *InsightRepository) InsertIfAbsent(ctx context.Context, in *domain.Insight) (bool, error) {
	query := `
		INSERT INTO insights (` + insightColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (topic, window_start, window_end) DO NOTHING
	`
	ids := in.SignalIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	tag, err := conn(ctx, r.pool).Exec(ctx, query,
		in.ID,
		in.Topic,
		in.Title,
		in.Summary,
		in.Implication,
		in.TargetAudience,
		ids,
		in.WindowStart,
		in.WindowEnd,
		in.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert insight: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	existing := `SELECT id, created_at FROM insights WHERE topic = $1 AND window_start = $2 AND window_end = $3`
	if err := conn(ctx, r.pool).QueryRow(ctx, existing, in.Topic, in.WindowStart, in.WindowEnd).Scan(&in.ID, &in.CreatedAt); err != nil {
		return false, fmt.Errorf("failed to load existing insight: %w", err)
	}
	return false, nil
}

func (r *InsightRepository) List(ctx context.Context, filter domain.InsightFilter) ([]domain.Insight, error) {
	var w whereBuilder
	if filter.Topic != "" {
		w.add("topic = ?", filter.Topic)
	}
	if filter.Since != nil {
		w.add("created_at >= ?", *filter.Since)
	}
	query := `SELECT ` + insightColumns + ` FROM insights` + w.clause() + ` ORDER BY created_at DESC`
	query += w.limit(filter.Limit)

	rows, err := conn(ctx, r.pool).Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list insights: %w", err)
	}
	return collectInsights(rows)
}

func (r *InsightRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Insight, error) {
	query := `SELECT ` + insightColumns + ` FROM insights WHERE id = $1`
	in, err := scanInsight(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get insight: %w", err)
	}
	return in, nil
}

func (r *InsightRepository) ListReferencing(ctx context.Context, ids []uuid.UUID) ([]domain.Insight, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + insightColumns + ` FROM insights WHERE signal_ids && $1::uuid[] ORDER BY created_at DESC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list referencing insights: %w", err)
	}
	return collectInsights(rows)
}

func scanInsight(row pgx.Row) (*domain.Insight, error) {
	var in domain.Insight
	err := row.Scan(
		&in.ID,
		&in.Topic,
		&in.Title,
		&in.Summary,
		&in.Implication,
		&in.TargetAudience,
		&in.SignalIDs,
		&in.WindowStart,
		&in.WindowEnd,
		&in.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &in, nil
}

func collectInsights(rows pgx.Rows) ([]domain.Insight, error) {
	defer rows.Close()
	var out []domain.Insight
	for rows.Next() {
		in, err := scanInsight(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan insight: %w", err)
		}
		out = append(out, *in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate insights: %w", err)
	}
	return out, nil
}
