package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"quietly-stated/internal/domain"

	"github.com/google/uuid"
)

const signalColumns = `id, source_type, source_origin, source_url, topic, entity, metric, value_now, value_before, unit, time_ref, context_sentence, model_used, confidence, created_at`

type signalRepo struct{ s *Store }

func (r *signalRepo) InsertIfAbsent(ctx context.Context, sig *domain.ProcessedSignal) (bool, error) {
	res, err := r.s.conn(ctx).ExecContext(ctx, `
		INSERT INTO processed_signals (`+signalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_origin, source_url, context_sentence) DO NOTHING`,
		sig.ID.String(), string(sig.SourceType), sig.SourceOrigin, sig.SourceURL, sig.Topic, sig.Entity, sig.Metric,
		sig.ValueNow, sig.ValueBefore, sig.Unit, sig.TimeRef, sig.ContextSentence, sig.ModelUsed, sig.Confidence,
		toNanos(sig.CreatedAt))
	if err != nil {
		return false, fmt.Errorf("failed to insert signal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *signalRepo) ListCreatedBetween(ctx context.Context, window domain.Window) ([]domain.ProcessedSignal, error) {
	return r.query(ctx,
		`SELECT `+signalColumns+` FROM processed_signals WHERE created_at >= ? AND created_at <= ? ORDER BY created_at ASC`,
		toNanos(window.Start), toNanos(window.End))
}

func (r *signalRepo) List(ctx context.Context, filter domain.SignalFilter) ([]domain.ProcessedSignal, error) {
	var conds []string
	var args []any
	if filter.Topic != "" {
		conds = append(conds, "topic = ?")
		args = append(args, filter.Topic)
	}
	if filter.Since != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, toNanos(*filter.Since))
	}
	query := `SELECT ` + signalColumns + ` FROM processed_signals` + where(conds) + ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	return r.query(ctx, query, args...)
}

func (r *signalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ProcessedSignal, error) {
	signals, err := r.query(ctx, `SELECT `+signalColumns+` FROM processed_signals WHERE id = ?`, id.String())
	if err != nil || len(signals) == 0 {
		return nil, err
	}
	return &signals[0], nil
}

func (r *signalRepo) ListBySource(ctx context.Context, sourceOrigin, sourceURL string) ([]domain.ProcessedSignal, error) {
	return r.query(ctx,
		`SELECT `+signalColumns+` FROM processed_signals WHERE source_origin = ? AND source_url = ? ORDER BY created_at DESC`,
		sourceOrigin, sourceURL)
}

func (r *signalRepo) query(ctx context.Context, query string, args ...any) ([]domain.ProcessedSignal, error) {
	rows, err := r.s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	var out []domain.ProcessedSignal
	for rows.Next() {
		var sig domain.ProcessedSignal
		var id, sourceType string
		var before sql.NullFloat64
		var created int64
		if err := rows.Scan(&id, &sourceType, &sig.SourceOrigin, &sig.SourceURL, &sig.Topic, &sig.Entity, &sig.Metric,
			&sig.ValueNow, &before, &sig.Unit, &sig.TimeRef, &sig.ContextSentence, &sig.ModelUsed, &sig.Confidence,
			&created); err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			r.s.logger.WarnContext(ctx, "skipping undecodable signal row", "id", id, "error", err)
			continue
		}
		sig.ID = parsed
		sig.SourceType = domain.SourceType(sourceType)
		sig.CreatedAt = fromNanos(created)
		if before.Valid {
			v := before.Float64
			sig.ValueBefore = &v
		}
		out = append(out, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate signals: %w", err)
	}
	return out, nil
}

const insightColumns = `id, topic, title, summary, implication, target_audience, signal_ids, window_start, window_end, created_at`

type insightRepo struct{ s *Store }

func (r *insightRepo) InsertIfAbsent(ctx context.Context, in *domain.Insight) (bool, error) {
	ids := make([]string, 0, len(in.SignalIDs))
	for _, id := range in.SignalIDs {
		ids = append(ids, id.String())
	}
	encoded, err := encodeJSON(ids)
	if err != nil {
		return false, fmt.Errorf("failed to encode signal ids: %w", err)
	}

	res, err := r.s.conn(ctx).ExecContext(ctx, `
		INSERT INTO insights (`+insightColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (topic, window_start, window_end) DO NOTHING`,
		in.ID.String(), in.Topic, in.Title, in.Summary, in.Implication, in.TargetAudience, encoded,
		toNanos(in.WindowStart), toNanos(in.WindowEnd), toNanos(in.CreatedAt))
	if err != nil {
		return false, fmt.Errorf("failed to insert insight: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 1 {
		return true, nil
	}

	var (
		id      string
		created int64
	)
	err = r.s.conn(ctx).QueryRowContext(ctx,
		`SELECT id, created_at FROM insights WHERE topic = ? AND window_start = ? AND window_end = ?`,
		in.Topic, toNanos(in.WindowStart), toNanos(in.WindowEnd)).Scan(&id, &created)
	if err != nil {
		return false, fmt.Errorf("failed to load existing insight: %w", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return false, fmt.Errorf("failed to parse insight id %q: %w", id, err)
	}
	in.ID = parsed
	in.CreatedAt = fromNanos(created)
	return false, nil
}

func (r *insightRepo) List(ctx context.Context, filter domain.InsightFilter) ([]domain.Insight, error) {
	var conds []string
	var args []any
	if filter.Topic != "" {
		conds = append(conds, "topic = ?")
		args = append(args, filter.Topic)
	}
	if filter.Since != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, toNanos(*filter.Since))
	}
	query := `SELECT ` + insightColumns + ` FROM insights` + where(conds) + ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	return r.query(ctx, query, args...)
}

func (r *insightRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Insight, error) {
	insights, err := r.query(ctx, `SELECT `+insightColumns+` FROM insights WHERE id = ?`, id.String())
	if err != nil || len(insights) == 0 {
		return nil, err
	}
	return &insights[0], nil
}

func (r *insightRepo) ListReferencing(ctx context.Context, ids []uuid.UUID) ([]domain.Insight, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id.String())
	}
	query := `SELECT ` + insightColumns + ` FROM insights
		WHERE EXISTS (SELECT 1 FROM json_each(insights.signal_ids) WHERE json_each.value IN (` + placeholders + `))
		ORDER BY created_at DESC`
	return r.query(ctx, query, args...)
}

func (r *insightRepo) query(ctx context.Context, query string, args ...any) ([]domain.Insight, error) {
	rows, err := r.s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query insights: %w", err)
	}
	defer rows.Close()

	var out []domain.Insight
	for rows.Next() {
		var in domain.Insight
		var id, encoded string
		var start, end, created int64
		if err := rows.Scan(&id, &in.Topic, &in.Title, &in.Summary, &in.Implication, &in.TargetAudience,
			&encoded, &start, &end, &created); err != nil {
			return nil, fmt.Errorf("failed to scan insight: %w", err)
		}
		parsed, err := uuid.Parse(id)
		if err == nil {
			err = json.Unmarshal([]byte(encoded), &in.SignalIDs)
		}
		if err != nil {
			r.s.logger.WarnContext(ctx, "skipping undecodable insight row", "id", id, "error", err)
			continue
		}
		in.ID = parsed
		in.WindowStart = fromNanos(start)
		in.WindowEnd = fromNanos(end)
		in.CreatedAt = fromNanos(created)
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate insights: %w", err)
	}
	return out, nil
}

type configRepo struct{ s *Store }

func (r *configRepo) GetActive(ctx context.Context, configType domain.ConfigType) (*domain.ConfigDocument, error) {
	rows, err := r.s.conn(ctx).QueryContext(ctx, `
		SELECT config_type, version, payload, active, updated_at, updated_by
		FROM config_documents WHERE config_type = ? AND active = 1`, string(configType))
	if err != nil {
		return nil, fmt.Errorf("failed to get config document: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to get config document: %w", err)
		}
		return nil, nil
	}
	var doc domain.ConfigDocument
	var typ, payload string
	var updated int64
	if err := rows.Scan(&typ, &doc.Version, &payload, &doc.Active, &updated, &doc.UpdatedBy); err != nil {
		return nil, fmt.Errorf("failed to scan config document: %w", err)
	}
	doc.Type = domain.ConfigType(typ)
	doc.Payload = json.RawMessage(payload)
	doc.UpdatedAt = fromNanos(updated)
	return &doc, nil
}

func (r *configRepo) Upsert(ctx context.Context, doc *domain.ConfigDocument) error {
	_, err := r.s.conn(ctx).ExecContext(ctx, `
		INSERT INTO config_documents (config_type, version, payload, active, updated_at, updated_by)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (config_type) DO UPDATE SET
			version = excluded.version,
			payload = excluded.payload,
			active = excluded.active,
			updated_at = excluded.updated_at,
			updated_by = excluded.updated_by`,
		string(doc.Type), doc.Version, string(doc.Payload), doc.Active, toNanos(doc.UpdatedAt), doc.UpdatedBy)
	if err != nil {
		return fmt.Errorf("failed to upsert config document: %w", err)
	}
	return nil
}
