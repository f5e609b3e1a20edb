package usage

import (
	"context"
	"sync"
	"time"

	"github.com/scoutlabs/mailscout/internal/domain"
)

// MemoryStore keeps usage records in a mutex-guarded map. Suitable for a
// single-process deployment and for tests; swap in the postgres or redis
// store when the ledger must be shared across replicas.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*domain.UsageRecord
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*domain.UsageRecord),
		now:     time.Now,
	}
}

func (s *MemoryStore) Consume(_ context.Context, keyID string, limit int, period time.Duration) (Decision, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[keyID]
	if !ok {
		rec = &domain.UsageRecord{KeyID: keyID, PeriodStart: now}
		s.records[keyID] = rec
	}
	if now.Sub(rec.PeriodStart) >= period {
		rec.PeriodStart = now
		rec.CallCount = 0
	}

	d := Decision{Limit: limit, ResetIn: period - now.Sub(rec.PeriodStart)}
	if limit > 0 && rec.CallCount >= limit {
		d.Used = rec.CallCount
		d.Remaining = 0
		return d, nil
	}

	rec.CallCount++
	d.Allowed = true
	d.Used = rec.CallCount
	if limit > 0 {
		d.Remaining = limit - rec.CallCount
	} else {
		d.Remaining = -1
	}
	return d, nil
}

func (s *MemoryStore) Inspect(_ context.Context, keyID string, limit int, period time.Duration) (Decision, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	d := Decision{Allowed: true, Limit: limit, Remaining: -1, ResetIn: period}

	rec, ok := s.records[keyID]
	if !ok || now.Sub(rec.PeriodStart) >= period {
		if limit > 0 {
			d.Remaining = limit
		}
		return d, nil
	}

	d.Used = rec.CallCount
	d.ResetIn = period - now.Sub(rec.PeriodStart)
	if limit > 0 {
		d.Remaining = max(limit-rec.CallCount, 0)
		d.Allowed = rec.CallCount < limit
	}
	return d, nil
}

// PurgeStale drops records whose period ended more than period ago. Run
// periodically; Consume rotates stale records on touch, so this only bounds
// memory for keys that stopped calling.
func (s *MemoryStore) PurgeStale(period time.Duration) int {
	cutoff := s.now().Add(-2 * period)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for keyID, rec := range s.records {
		if rec.PeriodStart.Before(cutoff) {
			delete(s.records, keyID)
			removed++
		}
	}
	return removed
}
