package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"quietly-stated/internal/domain"
)

type TrendRepository struct {
	pool   Pool
	logger *slog.Logger
}

func (r *TrendRepository) Upsert(ctx context.Context, t *domain.RawTrend) error {
	related, err := json.Marshal(t.RelatedQueries)
	if err != nil {
		return fmt.Errorf("failed to marshal related queries: %w", err)
	}

	query := `
		INSERT INTO raw_trends (id, source_origin, source_url, term_group, term, geo, timeframe, pulled_at, weekly_interest, related_queries)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (term, geo, timeframe, pulled_at) DO UPDATE SET
			source_origin = EXCLUDED.source_origin,
			source_url = EXCLUDED.source_url,
			term_group = EXCLUDED.term_group,
			weekly_interest = EXCLUDED.weekly_interest,
			related_queries = EXCLUDED.related_queries
	`
	_, err = conn(ctx, r.pool).Exec(ctx, query,
		t.ID,
		t.SourceOrigin,
		t.SourceURL,
		t.Group,
		t.Term,
		t.Geo,
		t.Timeframe,
		t.PulledAt,
		t.WeeklyInterest,
		related,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert trend: %w", err)
	}
	return nil
}

// ListPulledBetween skips rows whose related_queries column does not decode.
func (r *TrendRepository) ListPulledBetween(ctx context.Context, window domain.Window) ([]domain.RawTrend, error) {
	query := `
		SELECT id, source_origin, source_url, term_group, term, geo, timeframe, pulled_at, weekly_interest, related_queries
		FROM raw_trends
		WHERE pulled_at >= $1 AND pulled_at <= $2
		ORDER BY pulled_at ASC
	`
	rows, err := conn(ctx, r.pool).Query(ctx, query, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("failed to list trends: %w", err)
	}
	defer rows.Close()

	var out []domain.RawTrend
	for rows.Next() {
		var t domain.RawTrend
		var related []byte
		if err := rows.Scan(
			&t.ID,
			&t.SourceOrigin,
			&t.SourceURL,
			&t.Group,
			&t.Term,
			&t.Geo,
			&t.Timeframe,
			&t.PulledAt,
			&t.WeeklyInterest,
			&related,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trend: %w", err)
		}
		if len(related) > 0 {
			if err := json.Unmarshal(related, &t.RelatedQueries); err != nil {
				r.logger.WarnContext(ctx, "skipping trend with malformed related queries", "id", t.ID, "error", err)
				continue
			}
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trends: %w", err)
	}
	return out, nil
}
