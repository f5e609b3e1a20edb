// seed creates the schema and one demo API key per plan tier in the local
// dev database, printing the raw keys once. Run: go run ./cmd/seed
package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/scoutlabs/mailscout/internal/domain"
	"github.com/scoutlabs/mailscout/internal/infrastructure/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS api_keys (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL,
	key_hash   TEXT NOT NULL UNIQUE,
	plan       TEXT NOT NULL,
	active     BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS usage_records (
	key_id       TEXT PRIMARY KEY,
	period_start TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	call_count   INTEGER NOT NULL DEFAULT 0
);`

var plans = []domain.PlanTier{
	domain.PlanFree,
	domain.PlanStarter,
	domain.PlanPro,
	domain.PlanEnterprise,
}

func main() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, schema); err != nil {
		log.Fatalf("create schema: %v", err)
	}

	repo := postgres.NewAPIKeyRepository(pool)

	for _, plan := range plans {
		rawKey, err := newRawKey()
		if err != nil {
			log.Fatalf("generate key: %v", err)
		}
		hash := sha256.Sum256([]byte(rawKey))

		err = repo.Create(ctx, &domain.APIKey{
			ID:      uuid.NewString(),
			Name:    fmt.Sprintf("demo-%s", plan),
			KeyHash: hex.EncodeToString(hash[:]),
			Plan:    plan,
			Active:  true,
		})
		if err != nil {
			log.Fatalf("insert %s key: %v", plan, err)
		}

		fmt.Printf("%-11s %s\n", plan, rawKey)
	}
}

func newRawKey() (string, error) {
	raw := make([]byte, 24)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", err
	}
	return "ms_" + hex.EncodeToString(raw), nil
}
