// Package usage meters API calls per key against the caller's plan quota
// over a rolling period. The check-and-increment is atomic in every store:
// concurrent requests can never jointly overshoot a quota.
package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/scoutlabs/mailscout/internal/domain"
)

// Decision is the outcome of a quota check. Limit 0 means the plan is
// unmetered, in which case Remaining is -1.
type Decision struct {
	Allowed   bool
	Limit     int
	Used      int
	Remaining int
	ResetIn   time.Duration
}

// Store is the injected persistence behind the ledger. Consume must be
// atomic: under concurrent calls for one key with limit Q, at most Q calls
// may return Allowed. Inspect reads without charging.
type Store interface {
	Consume(ctx context.Context, keyID string, limit int, period time.Duration) (Decision, error)
	Inspect(ctx context.Context, keyID string, limit int, period time.Duration) (Decision, error)
}

type Ledger struct {
	store  Store
	quotas domain.Quotas
	period time.Duration
}

func NewLedger(store Store, quotas domain.Quotas, period time.Duration) *Ledger {
	if period <= 0 {
		period = 24 * time.Hour
	}
	return &Ledger{store: store, quotas: quotas, period: period}
}

func (l *Ledger) Period() time.Duration { return l.period }

// Consume charges one call against key's plan quota. A denied decision is
// not an error; the request must be rejected before any downstream work.
func (l *Ledger) Consume(ctx context.Context, key domain.KeyContext) (Decision, error) {
	d, err := l.store.Consume(ctx, key.KeyID, l.quotas.Limit(key.Plan), l.period)
	if err != nil {
		return Decision{}, fmt.Errorf("consume quota for key %s: %w", key.KeyID, err)
	}
	return d, nil
}

// Inspect reports current usage without consuming quota.
func (l *Ledger) Inspect(ctx context.Context, key domain.KeyContext) (Decision, error) {
	d, err := l.store.Inspect(ctx, key.KeyID, l.quotas.Limit(key.Plan), l.period)
	if err != nil {
		return Decision{}, fmt.Errorf("inspect quota for key %s: %w", key.KeyID, err)
	}
	return d, nil
}
