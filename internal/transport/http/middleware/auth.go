package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scoutlabs/mailscout/internal/domain"
	"github.com/scoutlabs/mailscout/internal/repository"
)

const keyContextKey = "keyContext"

// APIKeyAuth validates the X-API-Key header against stored key hashes and
// puts the caller's KeyContext into the gin context. Raw keys are compared by
// SHA-256 hash only.
func APIKeyAuth(keys repository.APIKeyRepository, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawKey := c.GetHeader("X-API-Key")
		if rawKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Missing API key",
			})
			return
		}

		hash := sha256.Sum256([]byte(rawKey))
		key, err := keys.FindByHash(c.Request.Context(), hex.EncodeToString(hash[:]))
		if err != nil {
			if errors.Is(err, domain.ErrAPIKeyNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"success": false,
					"message": "Invalid API key",
				})
				return
			}
			logger.ErrorContext(c.Request.Context(), "api key lookup", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Internal server error",
			})
			return
		}

		c.Set(keyContextKey, domain.KeyContext{KeyID: key.ID, Plan: key.Plan})
		c.Next()
	}
}

// KeyFromContext returns the authenticated caller identity set by APIKeyAuth.
func KeyFromContext(c *gin.Context) (domain.KeyContext, bool) {
	v, ok := c.Get(keyContextKey)
	if !ok {
		return domain.KeyContext{}, false
	}
	key, ok := v.(domain.KeyContext)
	return key, ok
}
