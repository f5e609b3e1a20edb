package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scoutlabs/mailscout/internal/domain"
	"github.com/scoutlabs/mailscout/internal/transport/http/middleware"
	"github.com/scoutlabs/mailscout/internal/usage"
)

type usageInspector interface {
	Inspect(ctx context.Context, key domain.KeyContext) (usage.Decision, error)
	Period() time.Duration
}

type UsageHandler struct {
	ledger usageInspector
	logger *slog.Logger
}

func NewUsageHandler(ledger usageInspector, logger *slog.Logger) *UsageHandler {
	return &UsageHandler{ledger: ledger, logger: logger.With("component", "usage_handler")}
}

// GET /api/usage
// Reads the caller's current usage without consuming quota.
func (h *UsageHandler) Get(c *gin.Context) {
	key, ok := middleware.KeyFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Missing API key"})
		return
	}

	d, err := h.ledger.Inspect(c.Request.Context(), key)
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "usage inspect", "key_id", key.KeyID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": errInternalServer})
		return
	}

	middleware.SetRateLimitHeaders(c, d)

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"total_calls": d.Used,
		"plan_tier":   key.Plan,
		"rate_limit":  d.Limit,
		"remaining":   d.Remaining,
		"period_days": h.ledger.Period().Hours() / 24,
	})
}
