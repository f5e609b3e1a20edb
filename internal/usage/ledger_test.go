package usage

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/scoutlabs/mailscout/internal/domain"
)

var testQuotas = domain.Quotas{
	domain.PlanFree:       10,
	domain.PlanStarter:    500,
	domain.PlanPro:        5000,
	domain.PlanEnterprise: 0,
}

func freeKey() domain.KeyContext {
	return domain.KeyContext{KeyID: "key-free", Plan: domain.PlanFree}
}

func TestConsume_AllowsUpToQuotaThenDenies(t *testing.T) {
	ledger := NewLedger(NewMemoryStore(), testQuotas, 24*time.Hour)
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		d, err := ledger.Consume(ctx, freeKey())
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
		if !d.Allowed {
			t.Fatalf("call %d denied within quota", i)
		}
		if d.Remaining != 10-i {
			t.Errorf("call %d: remaining = %d, want %d", i, d.Remaining, 10-i)
		}
	}

	// 11th call on the free plan.
	d, err := ledger.Consume(ctx, freeKey())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed {
		t.Error("11th call allowed past a quota of 10")
	}
	if d.Remaining != 0 {
		t.Errorf("denied decision remaining = %d, want 0", d.Remaining)
	}
	if d.Used != 10 {
		t.Errorf("denied call incremented the counter: used = %d", d.Used)
	}
}

func TestConsume_ConcurrentCallersNeverOvershoot(t *testing.T) {
	const quota = 10
	const callers = 100

	ledger := NewLedger(NewMemoryStore(), domain.Quotas{domain.PlanFree: quota}, 24*time.Hour)

	var wg sync.WaitGroup
	var allowed atomic.Int32
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := ledger.Consume(context.Background(), freeKey())
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if d.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != quota {
		t.Errorf("%d calls allowed under quota %d", got, quota)
	}
}

func TestConsume_RotatesElapsedPeriod(t *testing.T) {
	store := NewMemoryStore()
	current := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	ledger := NewLedger(store, domain.Quotas{domain.PlanFree: 2}, 24*time.Hour)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if d, _ := ledger.Consume(ctx, freeKey()); !d.Allowed {
			t.Fatalf("call %d denied within quota", i+1)
		}
	}
	if d, _ := ledger.Consume(ctx, freeKey()); d.Allowed {
		t.Fatal("call allowed past quota")
	}

	// A day later the record rotates and the key is fresh again.
	current = current.Add(24 * time.Hour)
	d, err := ledger.Consume(ctx, freeKey())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed {
		t.Error("call denied after period rollover")
	}
	if d.Used != 1 {
		t.Errorf("used = %d after rotation, want 1", d.Used)
	}
	if d.ResetIn != 24*time.Hour {
		t.Errorf("resetIn = %v after rotation, want a full period", d.ResetIn)
	}
}

func TestConsume_UnlimitedPlanNeverDenied(t *testing.T) {
	ledger := NewLedger(NewMemoryStore(), testQuotas, 24*time.Hour)
	key := domain.KeyContext{KeyID: "key-ent", Plan: domain.PlanEnterprise}

	for i := 0; i < 50; i++ {
		d, err := ledger.Consume(context.Background(), key)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !d.Allowed {
			t.Fatalf("unmetered plan denied on call %d", i+1)
		}
		if d.Remaining != -1 {
			t.Errorf("remaining = %d for unmetered plan, want -1", d.Remaining)
		}
	}
}

func TestConsume_UnknownPlanFallsBackToFreeQuota(t *testing.T) {
	ledger := NewLedger(NewMemoryStore(), testQuotas, 24*time.Hour)
	key := domain.KeyContext{KeyID: "key-x", Plan: domain.PlanTier("trial")}

	d, err := ledger.Consume(context.Background(), key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Limit != testQuotas[domain.PlanFree] {
		t.Errorf("limit = %d, want free-tier %d", d.Limit, testQuotas[domain.PlanFree])
	}
}

func TestInspect_DoesNotConsume(t *testing.T) {
	ledger := NewLedger(NewMemoryStore(), testQuotas, 24*time.Hour)
	ctx := context.Background()

	if _, err := ledger.Consume(ctx, freeKey()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 5; i++ {
		d, err := ledger.Inspect(ctx, freeKey())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.Used != 1 {
			t.Errorf("inspect changed used to %d", d.Used)
		}
		if d.Remaining != 9 {
			t.Errorf("remaining = %d, want 9", d.Remaining)
		}
	}
}

func TestInspect_FreshKeyReportsFullAllowance(t *testing.T) {
	ledger := NewLedger(NewMemoryStore(), testQuotas, 24*time.Hour)

	d, err := ledger.Inspect(context.Background(), freeKey())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Used != 0 || d.Remaining != 10 || !d.Allowed {
		t.Errorf("fresh key decision = %+v", d)
	}
}

func TestPurgeStale_KeepsLiveRecords(t *testing.T) {
	store := NewMemoryStore()
	current := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	ctx := context.Background()
	_, _ = store.Consume(ctx, "idle-key", 10, 24*time.Hour)
	current = current.Add(72 * time.Hour)
	_, _ = store.Consume(ctx, "live-key", 10, 24*time.Hour)

	if removed := store.PurgeStale(24 * time.Hour); removed != 1 {
		t.Errorf("purged %d records, want 1", removed)
	}
	if _, ok := store.records["live-key"]; !ok {
		t.Error("live record purged")
	}
}
