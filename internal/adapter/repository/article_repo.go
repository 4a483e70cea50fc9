package repository

import (
	"context"
	"errors"
	"fmt"

	"quietly-stated/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const articleColumns = `id, source_origin, source_url, title, url, published_at, fetched_at, author, text, tags, data_points`

type ArticleRepository struct {
	pool Pool
}

func (r *ArticleRepository) Upsert(ctx context.Context, a *domain.RawArticle) (bool, error) {
	query := `
		INSERT INTO raw_articles (` + articleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (url, published_at) DO UPDATE SET
			source_origin = EXCLUDED.source_origin,
			source_url = EXCLUDED.source_url,
			title = EXCLUDED.title,
			fetched_at = EXCLUDED.fetched_at,
			author = EXCLUDED.author,
			text = EXCLUDED.text,
			tags = EXCLUDED.tags,
			data_points = EXCLUDED.data_points
		RETURNING (xmax = 0) AS inserted
	`
	var inserted bool
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		a.ID,
		a.SourceOrigin,
		a.SourceURL,
		a.Title,
		a.URL,
		a.PublishedAt,
		a.FetchedAt,
		a.Author,
		a.Text,
		nonNil(a.Tags),
		nonNil(a.DataPoints),
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("failed to upsert article: %w", err)
	}
	return inserted, nil
}

func (r *ArticleRepository) ListFetchedBetween(ctx context.Context, window domain.Window) ([]domain.RawArticle, error) {
	query := `SELECT ` + articleColumns + ` FROM raw_articles WHERE fetched_at >= $1 AND fetched_at <= $2 ORDER BY fetched_at ASC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	return collectArticles(rows)
}

func (r *ArticleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RawArticle, error) {
	query := `SELECT ` + articleColumns + ` FROM raw_articles WHERE id = $1`
	a, err := scanArticle(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	return a, nil
}

func (r *ArticleRepository) List(ctx context.Context, filter domain.ArticleFilter) ([]domain.RawArticle, error) {
	var w whereBuilder
	if filter.Source != "" {
		w.add("source_origin = ?", filter.Source)
	}
	if filter.Keyword != "" {
		w.add("(title ILIKE '%' || ? || '%' OR text ILIKE '%' || ? || '%')", filter.Keyword)
	}
	query := `SELECT ` + articleColumns + ` FROM raw_articles` + w.clause() + ` ORDER BY published_at DESC`
	query += w.limit(filter.Limit)

	rows, err := conn(ctx, r.pool).Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	return collectArticles(rows)
}

func scanArticle(row pgx.Row) (*domain.RawArticle, error) {
	var a domain.RawArticle
	err := row.Scan(
		&a.ID,
		&a.SourceOrigin,
		&a.SourceURL,
		&a.Title,
		&a.URL,
		&a.PublishedAt,
		&a.FetchedAt,
		&a.Author,
		&a.Text,
		&a.Tags,
		&a.DataPoints,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func collectArticles(rows pgx.Rows) ([]domain.RawArticle, error) {
	defer rows.Close()
	var out []domain.RawArticle
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate articles: %w", err)
	}
	return out, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
