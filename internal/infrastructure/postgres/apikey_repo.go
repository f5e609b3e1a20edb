package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scoutlabs/mailscout/internal/domain"
)

type APIKeyRepository struct {
	pool *pgxpool.Pool
}

func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

func (r *APIKeyRepository) FindByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	query := `
		SELECT id, name, key_hash, plan, active, created_at
		FROM api_keys
		WHERE key_hash = $1 AND active`

	row := r.pool.QueryRow(ctx, query, keyHash)

	var k domain.APIKey
	err := row.Scan(&k.ID, &k.Name, &k.KeyHash, &k.Plan, &k.Active, &k.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("scan api key: %w", err)
	}
	return &k, nil
}

func (r *APIKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO api_keys (id, name, key_hash, plan, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key_hash) DO NOTHING`,
		key.ID, key.Name, key.KeyHash, key.Plan, key.Active,
	)
	if err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}
