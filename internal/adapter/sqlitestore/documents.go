package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"quietly-stated/internal/domain"

	"github.com/google/uuid"
)

const articleColumns = `id, source_origin, source_url, title, url, published_at, fetched_at, author, text, tags, data_points`

type articleRepo struct{ s *Store }

func (r *articleRepo) Upsert(ctx context.Context, a *domain.RawArticle) (bool, error) {
	tags, err := encodeJSON(nonNil(a.Tags))
	if err != nil {
		return false, fmt.Errorf("failed to encode tags: %w", err)
	}
	points, err := encodeJSON(nonNil(a.DataPoints))
	if err != nil {
		return false, fmt.Errorf("failed to encode data points: %w", err)
	}

	inserted := false
	err = r.s.RunInTx(ctx, func(ctx context.Context) error {
		q := r.s.conn(ctx)
		res, err := q.ExecContext(ctx, `
			INSERT INTO raw_articles (`+articleColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (url, published_at) DO NOTHING`,
			a.ID.String(), a.SourceOrigin, a.SourceURL, a.Title, a.URL,
			toNanos(a.PublishedAt), toNanos(a.FetchedAt), a.Author, a.Text, tags, points)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 1 {
			inserted = true
			return nil
		}
		_, err = q.ExecContext(ctx, `
			UPDATE raw_articles SET source_origin = ?, source_url = ?, title = ?, fetched_at = ?,
				author = ?, text = ?, tags = ?, data_points = ?
			WHERE url = ? AND published_at = ?`,
			a.SourceOrigin, a.SourceURL, a.Title, toNanos(a.FetchedAt), a.Author, a.Text, tags, points,
			a.URL, toNanos(a.PublishedAt))
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to upsert article: %w", err)
	}
	return inserted, nil
}

func (r *articleRepo) ListFetchedBetween(ctx context.Context, window domain.Window) ([]domain.RawArticle, error) {
	rows, err := r.s.conn(ctx).QueryContext(ctx,
		`SELECT `+articleColumns+` FROM raw_articles WHERE fetched_at >= ? AND fetched_at <= ? ORDER BY fetched_at ASC`,
		toNanos(window.Start), toNanos(window.End))
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	return r.collect(ctx, rows)
}

func (r *articleRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.RawArticle, error) {
	rows, err := r.s.conn(ctx).QueryContext(ctx, `SELECT `+articleColumns+` FROM raw_articles WHERE id = ?`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	articles, err := r.collect(ctx, rows)
	if err != nil || len(articles) == 0 {
		return nil, err
	}
	return &articles[0], nil
}

func (r *articleRepo) List(ctx context.Context, filter domain.ArticleFilter) ([]domain.RawArticle, error) {
	var conds []string
	var args []any
	if filter.Source != "" {
		conds = append(conds, "source_origin = ?")
		args = append(args, filter.Source)
	}
	if filter.Keyword != "" {
		conds = append(conds, "(instr(lower(title), lower(?)) > 0 OR instr(lower(text), lower(?)) > 0)")
		args = append(args, filter.Keyword, filter.Keyword)
	}
	query := `SELECT ` + articleColumns + ` FROM raw_articles` + where(conds) + ` ORDER BY published_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	return r.collect(ctx, rows)
}

func (r *articleRepo) collect(ctx context.Context, rows *sql.Rows) ([]domain.RawArticle, error) {
	defer rows.Close()
	var out []domain.RawArticle
	for rows.Next() {
		var a domain.RawArticle
		var id, tags, points string
		var published, fetched int64
		var author sql.NullString
		if err := rows.Scan(&id, &a.SourceOrigin, &a.SourceURL, &a.Title, &a.URL,
			&published, &fetched, &author, &a.Text, &tags, &points); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		parsed, err := uuid.Parse(id)
		if err == nil {
			err = errors.Join(json.Unmarshal([]byte(tags), &a.Tags), json.Unmarshal([]byte(points), &a.DataPoints))
		}
		if err != nil {
			r.s.logger.WarnContext(ctx, "skipping undecodable article row", "id", id, "error", err)
			continue
		}
		a.ID = parsed
		a.PublishedAt = fromNanos(published)
		a.FetchedAt = fromNanos(fetched)
		if author.Valid {
			a.Author = &author.String
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate articles: %w", err)
	}
	return out, nil
}

const alertColumns = `id, source_origin, source_url, keyword, title, snippet, url, published_at, fetched_at`

type alertRepo struct{ s *Store }

func (r *alertRepo) Upsert(ctx context.Context, a *domain.RawAlert) (bool, error) {
	inserted := false
	err := r.s.RunInTx(ctx, func(ctx context.Context) error {
		q := r.s.conn(ctx)
		res, err := q.ExecContext(ctx, `
			INSERT INTO raw_alerts (`+alertColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (url, published_at) DO NOTHING`,
			a.ID.String(), a.SourceOrigin, a.SourceURL, a.Keyword, a.Title, a.Snippet, a.URL,
			toNanos(a.PublishedAt), toNanos(a.FetchedAt))
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 1 {
			inserted = true
			return nil
		}
		_, err = q.ExecContext(ctx, `
			UPDATE raw_alerts SET source_origin = ?, source_url = ?, keyword = ?, title = ?, snippet = ?, fetched_at = ?
			WHERE url = ? AND published_at = ?`,
			a.SourceOrigin, a.SourceURL, a.Keyword, a.Title, a.Snippet, toNanos(a.FetchedAt),
			a.URL, toNanos(a.PublishedAt))
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to upsert alert: %w", err)
	}
	return inserted, nil
}

func (r *alertRepo) ListFetchedBetween(ctx context.Context, window domain.Window) ([]domain.RawAlert, error) {
	rows, err := r.s.conn(ctx).QueryContext(ctx,
		`SELECT `+alertColumns+` FROM raw_alerts WHERE fetched_at >= ? AND fetched_at <= ? ORDER BY fetched_at ASC`,
		toNanos(window.Start), toNanos(window.End))
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var out []domain.RawAlert
	for rows.Next() {
		var a domain.RawAlert
		var id string
		var published, fetched int64
		if err := rows.Scan(&id, &a.SourceOrigin, &a.SourceURL, &a.Keyword, &a.Title, &a.Snippet, &a.URL,
			&published, &fetched); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			r.s.logger.WarnContext(ctx, "skipping undecodable alert row", "id", id, "error", err)
			continue
		}
		a.ID = parsed
		a.PublishedAt = fromNanos(published)
		a.FetchedAt = fromNanos(fetched)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}
	return out, nil
}

const trendColumns = `id, source_origin, source_url, term_group, term, geo, timeframe, pulled_at, weekly_interest, related_queries`

type trendRepo struct{ s *Store }

func (r *trendRepo) Upsert(ctx context.Context, t *domain.RawTrend) error {
	related, err := encodeJSON(t.RelatedQueries)
	if err != nil {
		return fmt.Errorf("failed to encode related queries: %w", err)
	}
	_, err = r.s.conn(ctx).ExecContext(ctx, `
		INSERT INTO raw_trends (`+trendColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (term, geo, timeframe, pulled_at) DO UPDATE SET
			source_origin = excluded.source_origin,
			source_url = excluded.source_url,
			term_group = excluded.term_group,
			weekly_interest = excluded.weekly_interest,
			related_queries = excluded.related_queries`,
		t.ID.String(), t.SourceOrigin, t.SourceURL, t.Group, t.Term, t.Geo, t.Timeframe,
		toNanos(t.PulledAt), t.WeeklyInterest, related)
	if err != nil {
		return fmt.Errorf("failed to upsert trend: %w", err)
	}
	return nil
}

func (r *trendRepo) ListPulledBetween(ctx context.Context, window domain.Window) ([]domain.RawTrend, error) {
	rows, err := r.s.conn(ctx).QueryContext(ctx,
		`SELECT `+trendColumns+` FROM raw_trends WHERE pulled_at >= ? AND pulled_at <= ? ORDER BY pulled_at ASC`,
		toNanos(window.Start), toNanos(window.End))
	if err != nil {
		return nil, fmt.Errorf("failed to list trends: %w", err)
	}
	defer rows.Close()

	var out []domain.RawTrend
	for rows.Next() {
		var t domain.RawTrend
		var id, related string
		var pulled int64
		if err := rows.Scan(&id, &t.SourceOrigin, &t.SourceURL, &t.Group, &t.Term, &t.Geo, &t.Timeframe,
			&pulled, &t.WeeklyInterest, &related); err != nil {
			return nil, fmt.Errorf("failed to scan trend: %w", err)
		}
		parsed, err := uuid.Parse(id)
		if err == nil {
			err = json.Unmarshal([]byte(related), &t.RelatedQueries)
		}
		if err != nil {
			r.s.logger.WarnContext(ctx, "skipping undecodable trend row", "id", id, "error", err)
			continue
		}
		t.ID = parsed
		t.PulledAt = fromNanos(pulled)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trends: %w", err)
	}
	return out, nil
}

func where(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
