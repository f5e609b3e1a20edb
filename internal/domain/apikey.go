package domain

import "time"

type PlanTier string

const (
	PlanFree       PlanTier = "free"
	PlanStarter    PlanTier = "starter"
	PlanPro        PlanTier = "pro"
	PlanEnterprise PlanTier = "enterprise"
)

// APIKey is the stored record behind an X-API-Key credential. The raw key is
// never persisted, only its SHA-256 hash.
type APIKey struct {
	ID        string
	Name      string
	KeyHash   string
	Plan      PlanTier
	Active    bool
	CreatedAt time.Time
}

// KeyContext is the authenticated caller identity handed to the core by the
// auth middleware. The core treats it as opaque input.
type KeyContext struct {
	KeyID string
	Plan  PlanTier
}

// Quotas maps plan tier to daily request allowance. A limit of 0 means
// unlimited.
type Quotas map[PlanTier]int

// Limit returns the allowance for a tier, treating unknown tiers as free.
func (q Quotas) Limit(tier PlanTier) int {
	if n, ok := q[tier]; ok {
		return n
	}
	return q[PlanFree]
}

// UsageRecord is one live counter per key per rolling period. Owned by the
// usage ledger; mutated only through its atomic consume operation.
type UsageRecord struct {
	KeyID       string
	PeriodStart time.Time
	CallCount   int
}
