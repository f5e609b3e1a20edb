package middleware_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scoutlabs/mailscout/internal/domain"
	"github.com/scoutlabs/mailscout/internal/transport/http/middleware"
	"github.com/scoutlabs/mailscout/internal/usage"
)

func newQuotaRouter(ledger *usage.Ledger) (*gin.Engine, *int) {
	gin.SetMode(gin.TestMode)
	handled := 0

	r := gin.New()
	inject := func(c *gin.Context) {
		c.Set("keyContext", domain.KeyContext{KeyID: "key-1", Plan: domain.PlanFree})
		c.Next()
	}
	r.GET("/probe", inject, middleware.Quota(ledger, slog.Default()), func(c *gin.Context) {
		handled++
		c.Status(http.StatusOK)
	})
	return r, &handled
}

func probe(r *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/probe", nil))
	return w
}

func TestQuota_AllowsAndSetsHeaders(t *testing.T) {
	ledger := usage.NewLedger(usage.NewMemoryStore(), domain.Quotas{domain.PlanFree: 10}, 24*time.Hour)
	r, handled := newQuotaRouter(ledger)

	w := probe(r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if *handled != 1 {
		t.Error("handler did not run for allowed request")
	}
	if got := w.Header().Get("X-RateLimit-Limit"); got != "10" {
		t.Errorf("X-RateLimit-Limit = %q, want 10", got)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "9" {
		t.Errorf("X-RateLimit-Remaining = %q, want 9", got)
	}
	if w.Header().Get("X-RateLimit-Reset") == "" {
		t.Error("X-RateLimit-Reset missing")
	}
}

func TestQuota_ExhaustedKeyGets429BeforeHandler(t *testing.T) {
	ledger := usage.NewLedger(usage.NewMemoryStore(), domain.Quotas{domain.PlanFree: 2}, 24*time.Hour)
	r, handled := newQuotaRouter(ledger)

	probe(r)
	probe(r)
	w := probe(r)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if *handled != 2 {
		t.Errorf("handler ran %d times, want 2 (denied request must not reach it)", *handled)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", got)
	}
}

func TestQuota_MissingKeyContextIs401(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ledger := usage.NewLedger(usage.NewMemoryStore(), domain.Quotas{}, 24*time.Hour)

	r := gin.New()
	r.GET("/probe", middleware.Quota(ledger, slog.Default()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/probe", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestQuota_LedgerErrorIs500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ledger := usage.NewLedger(failingStore{}, domain.Quotas{domain.PlanFree: 10}, 24*time.Hour)
	r, handled := newQuotaRouter(ledger)

	w := probe(r)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if *handled != 0 {
		t.Error("handler ran despite ledger failure")
	}
}

type failingStore struct{}

func (failingStore) Consume(_ context.Context, _ string, _ int, _ time.Duration) (usage.Decision, error) {
	return usage.Decision{}, context.DeadlineExceeded
}

func (failingStore) Inspect(_ context.Context, _ string, _ int, _ time.Duration) (usage.Decision, error) {
	return usage.Decision{}, context.DeadlineExceeded
}
