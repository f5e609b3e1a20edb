package repository

import (
	"context"

	"github.com/scoutlabs/mailscout/internal/domain"
)

// APIKeyRepository resolves an X-API-Key credential (by SHA-256 hash) to its
// stored record. The middleware depends on this interface, not on postgres,
// so tests can pass a fake.
type APIKeyRepository interface {
	FindByHash(ctx context.Context, keyHash string) (*domain.APIKey, error)
	Create(ctx context.Context, key *domain.APIKey) error
}
