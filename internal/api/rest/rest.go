package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/tokenhaus/marketd/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Minting (requires authentication; admin only, enforced downstream)
		v1.POST("/assets", middleware.Auth(authCfg), handler.Mint)

		// Asset lookup (public read access)
		v1.GET("/assets/:id", handler.GetAsset)

		// Price visibility is an authorization question, so the caller
		// must be authenticated
		v1.GET("/assets/:id/price", middleware.Auth(authCfg), handler.GetPrice)

		// Purchase eligibility check (public read access)
		v1.GET("/assets/:id/can-buy", handler.GetCanBuy)

		// Listing management (requires authentication; owner only)
		v1.POST("/assets/:id/listings", middleware.Auth(authCfg), handler.PutListing)
		v1.DELETE("/assets/:id/listings", middleware.Auth(authCfg), handler.CancelListing)

		// Purchase (requires authentication)
		v1.POST("/assets/:id/purchase", middleware.Auth(authCfg), handler.Purchase)

		// Identity views (public read access)
		v1.GET("/identities/:address/assets/count", handler.GetOwnedCount)
		v1.GET("/identities/:address/escrow", handler.GetEscrowBalance)

		// Escrow (withdrawal requires authentication; totals are public)
		v1.POST("/escrow/withdrawals", middleware.Auth(authCfg), handler.Withdraw)
		v1.GET("/escrow/total", handler.GetTotalEscrow)

		// Audit journal (public read access)
		v1.GET("/ledger/entries", handler.GetLedgerEntries)
	}
}
