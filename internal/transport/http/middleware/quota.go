package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/scoutlabs/mailscout/internal/domain"
	"github.com/scoutlabs/mailscout/internal/metrics"
	"github.com/scoutlabs/mailscout/internal/usage"
)

// quotaLedger is the subset of the usage ledger the middleware needs.
type quotaLedger interface {
	Consume(ctx context.Context, key domain.KeyContext) (usage.Decision, error)
}

// Quota atomically charges one call against the caller's daily allowance
// before any handler work runs, so exhausted keys never trigger MX lookups
// or pattern generation. Rate-limit headers go on every response.
func Quota(ledger quotaLedger, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, ok := KeyFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Missing API key",
			})
			return
		}

		d, err := ledger.Consume(c.Request.Context(), key)
		if err != nil {
			logger.ErrorContext(c.Request.Context(), "quota consume", "key_id", key.KeyID, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Internal server error",
			})
			return
		}

		SetRateLimitHeaders(c, d)

		if !d.Allowed {
			metrics.QuotaRejectionsTotal.WithLabelValues(string(key.Plan)).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "Rate limit exceeded. Upgrade your plan for more requests.",
			})
			return
		}

		c.Next()
	}
}

// SetRateLimitHeaders writes the standard quota headers from a decision.
// Limit 0 / Remaining -1 indicate an unmetered plan.
func SetRateLimitHeaders(c *gin.Context, d usage.Decision) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	c.Header("X-RateLimit-Reset", strconv.Itoa(int(d.ResetIn.Seconds())))
}
