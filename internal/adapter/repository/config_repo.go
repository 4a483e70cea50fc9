package repository

import (
	"context"
	"errors"
	"fmt"

	"quietly-stated/internal/domain"

	"github.com/jackc/pgx/v5"
)

type ConfigRepository struct {
	pool Pool
}

func (r *ConfigRepository) GetActive(ctx context.Context, configType domain.ConfigType) (*domain.ConfigDocument, error) {
	query := `
		SELECT config_type, version, payload, active, updated_at, updated_by
		FROM config_documents
		WHERE config_type = $1 AND active
	`
	var doc domain.ConfigDocument
	var typ string
	var payload []byte
	err := conn(ctx, r.pool).QueryRow(ctx, query, string(configType)).Scan(
		&typ,
		&doc.Version,
		&payload,
		&doc.Active,
		&doc.UpdatedAt,
		&doc.UpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get config document: %w", err)
	}
	doc.Type = domain.ConfigType(typ)
	doc.Payload = payload
	return &doc, nil
}

func (r *ConfigRepository) Upsert(ctx context.Context, doc *domain.ConfigDocument) error {
	query := `
		INSERT INTO config_documents (config_type, version, payload, active, updated_at, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (config_type) DO UPDATE SET
			version = EXCLUDED.version,
			payload = EXCLUDED.payload,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at,
			updated_by = EXCLUDED.updated_by
	`
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		string(doc.Type),
		doc.Version,
		[]byte(doc.Payload),
		doc.Active,
		doc.UpdatedAt,
		doc.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert config document: %w", err)
	}
	return nil
}
