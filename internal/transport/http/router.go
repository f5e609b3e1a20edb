package httptransport

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"

	"github.com/scoutlabs/mailscout/internal/repository"
	"github.com/scoutlabs/mailscout/internal/transport/http/handler"
	"github.com/scoutlabs/mailscout/internal/transport/http/middleware"
	"github.com/scoutlabs/mailscout/internal/usage"
)

func NewRouter(
	logger *slog.Logger,
	finderHandler *handler.FinderHandler,
	usageHandler *handler.UsageHandler,
	keyRepo repository.APIKeyRepository,
	ledger *usage.Ledger,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	// Every /api route requires a valid X-API-Key; metered routes also pass
	// the quota gate before any resolver or generator work happens.
	api := r.Group("/api", middleware.APIKeyAuth(keyRepo, logger))
	quota := middleware.Quota(ledger, logger)

	api.POST("/find-email", quota, finderHandler.FindEmail)
	api.POST("/verify-domain", quota, finderHandler.VerifyDomain)
	api.POST("/bulk-find", quota, finderHandler.BulkFind)
	api.GET("/patterns/:domain", quota, finderHandler.ListPatterns)

	// Usage is a read-only view; it reports quota state without consuming it.
	api.GET("/usage", usageHandler.Get)

	return r
}
