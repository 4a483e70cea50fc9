package repository

import (
	"context"
	"fmt"

	"quietly-stated/internal/domain"
)

const alertColumns = `id, source_origin, source_url, keyword, title, snippet, url, published_at, fetched_at`

type AlertRepository struct {
	pool Pool
}

func (r *AlertRepository) Upsert(ctx context.Context, a *domain.RawAlert) (bool, error) {
	query := `
		INSERT INTO raw_alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (url, published_at) DO UPDATE SET
			source_origin = EXCLUDED.source_origin,
			source_url = EXCLUDED.source_url,
			keyword = EXCLUDED.keyword,
			title = EXCLUDED.title,
			snippet = EXCLUDED.snippet,
			fetched_at = EXCLUDED.fetched_at
		RETURNING (xmax = 0) AS inserted
	`
	var inserted bool
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		a.ID,
		a.SourceOrigin,
		a.SourceURL,
		a.Keyword,
		a.Title,
		a.Snippet,
		a.URL,
		a.PublishedAt,
		a.FetchedAt,
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("failed to upsert alert: %w", err)
	}
	return inserted, nil
}

func (r *AlertRepository) ListFetchedBetween(ctx context.Context, window domain.Window) ([]domain.RawAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM raw_alerts WHERE fetched_at >= $1 AND fetched_at <= $2 ORDER BY fetched_at ASC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var out []domain.RawAlert
	for rows.Next() {
		var a domain.RawAlert
		if err := rows.Scan(
			&a.ID,
			&a.SourceOrigin,
			&a.SourceURL,
			&a.Keyword,
			&a.Title,
			&a.Snippet,
			&a.URL,
			&a.PublishedAt,
			&a.FetchedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}
	return out, nil
}
