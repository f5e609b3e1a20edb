package middleware_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/scoutlabs/mailscout/internal/domain"
	"github.com/scoutlabs/mailscout/internal/transport/http/middleware"
)

type fakeKeyRepo struct {
	findByHash func(ctx context.Context, keyHash string) (*domain.APIKey, error)
}

func (r *fakeKeyRepo) FindByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	return r.findByHash(ctx, keyHash)
}

func (r *fakeKeyRepo) Create(_ context.Context, _ *domain.APIKey) error { return nil }

func newAuthRouter(repo *fakeKeyRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/probe", middleware.APIKeyAuth(repo, slog.Default()), func(c *gin.Context) {
		key, ok := middleware.KeyFromContext(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"key_id": key.KeyID, "plan": key.Plan})
	})
	return r
}

func TestAPIKeyAuth_MissingHeader(t *testing.T) {
	repo := &fakeKeyRepo{findByHash: func(_ context.Context, _ string) (*domain.APIKey, error) {
		t.Fatal("lookup should not happen without a header")
		return nil, nil
	}}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	newAuthRouter(repo).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAPIKeyAuth_UnknownKey(t *testing.T) {
	repo := &fakeKeyRepo{findByHash: func(_ context.Context, _ string) (*domain.APIKey, error) {
		return nil, domain.ErrAPIKeyNotFound
	}}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("X-API-Key", "bogus")
	newAuthRouter(repo).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAPIKeyAuth_ValidKeySetsContext(t *testing.T) {
	const rawKey = "ms_testkey"
	sum := sha256.Sum256([]byte(rawKey))
	wantHash := hex.EncodeToString(sum[:])

	repo := &fakeKeyRepo{findByHash: func(_ context.Context, keyHash string) (*domain.APIKey, error) {
		if keyHash != wantHash {
			t.Errorf("looked up hash %q, want SHA-256 of raw key", keyHash)
		}
		return &domain.APIKey{ID: "key-1", Plan: domain.PlanPro, Active: true}, nil
	}}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("X-API-Key", rawKey)
	newAuthRouter(repo).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}
}

func TestAPIKeyAuth_RepoErrorIs500(t *testing.T) {
	repo := &fakeKeyRepo{findByHash: func(_ context.Context, _ string) (*domain.APIKey, error) {
		return nil, errors.New("db down")
	}}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("X-API-Key", "anything")
	newAuthRouter(repo).ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
