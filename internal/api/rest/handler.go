package rest

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tokenhaus/marketd/internal/api/middleware"
	"github.com/tokenhaus/marketd/internal/domain"
	"github.com/tokenhaus/marketd/internal/market"
	"github.com/tokenhaus/marketd/internal/store"
)

// Handler defines the interface for REST API handlers
// This interface allows for easy mocking and testing
type Handler interface {
	// Mint creates a new asset (requires authentication; admin only)
	// POST /api/v1/assets
	Mint(c *gin.Context)

	// GetAsset retrieves a single asset by its identifier
	// GET /api/v1/assets/:id
	GetAsset(c *gin.Context)

	// GetPrice retrieves the listed price of an asset (requires authentication;
	// visible to the owner and eligible buyers only)
	// GET /api/v1/assets/:id/price
	GetPrice(c *gin.Context)

	// GetCanBuy reports whether a candidate could buy the asset right now
	// GET /api/v1/assets/:id/can-buy?candidate=<address>
	GetCanBuy(c *gin.Context)

	// PutListing lists the asset for sale, replacing any active listing
	// (requires authentication; owner only)
	// POST /api/v1/assets/:id/listings
	PutListing(c *gin.Context)

	// CancelListing removes the asset's listing (requires authentication;
	// owner only; succeeds quietly when no listing exists)
	// DELETE /api/v1/assets/:id/listings
	CancelListing(c *gin.Context)

	// Purchase buys the asset for the submitted payment (requires authentication)
	// POST /api/v1/assets/:id/purchase
	Purchase(c *gin.Context)

	// GetOwnedCount returns the number of assets an identity owns
	// GET /api/v1/identities/:address/assets/count
	GetOwnedCount(c *gin.Context)

	// GetEscrowBalance returns the escrow balance owed to an identity
	// GET /api/v1/identities/:address/escrow
	GetEscrowBalance(c *gin.Context)

	// Withdraw releases the caller's full escrow balance (requires authentication)
	// POST /api/v1/escrow/withdrawals
	Withdraw(c *gin.Context)

	// GetTotalEscrow returns the sum of all escrow balances
	// GET /api/v1/escrow/total
	GetTotalEscrow(c *gin.Context)

	// GetLedgerEntries retrieves audit journal entries
	// GET /api/v1/ledger/entries?asset_id=<id>&identity=<address>&limit=<limit>&offset=<offset>
	GetLedgerEntries(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	engine market.Engine
}

// NewHandler creates a new REST API handler backed by the market engine
func NewHandler(engine market.Engine) Handler {
	return &handler{
		engine: engine,
	}
}

// pathAssetID parses the :id path parameter. It responds with 400 and
// returns ok=false when the parameter is not a valid asset identifier.
func pathAssetID(c *gin.Context) (domain.AssetID, bool) {
	id, err := domain.ParseAssetID(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid asset id", err.Error())
		return 0, false
	}
	return id, true
}

// pathIdentity parses the :address path parameter
func pathIdentity(c *gin.Context) (domain.Identity, bool) {
	identity, err := domain.NormalizeIdentity(c.Param("address"))
	if err != nil {
		respondBadRequest(c, "Invalid identity", err.Error())
		return "", false
	}
	return identity, true
}

// caller resolves the authenticated identity stored by the auth middleware
func caller(c *gin.Context) (domain.Identity, bool) {
	identity, ok := middleware.CallerIdentity(c)
	if !ok {
		respondWithError(c, http.StatusUnauthorized, errCodeUnauthorized, "Authentication required")
		return "", false
	}
	return identity, true
}

// Mint creates a new asset owned by the requested identity
func (h *handler) Mint(c *gin.Context) {
	actor, ok := caller(c)
	if !ok {
		return
	}

	var req MintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	to, err := domain.NormalizeIdentity(req.To)
	if err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid recipient: %v", err))
		return
	}

	id, err := h.engine.Mint(c.Request.Context(), actor, to)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	uri, err := h.engine.URIOf(c.Request.Context(), id)
	if err != nil {
		respondInternalError(c, err, "Failed to resolve asset URI")
		return
	}

	c.JSON(http.StatusCreated, toAssetResponse(id, to, uri))
}

// GetAsset retrieves a single asset by its identifier
func (h *handler) GetAsset(c *gin.Context) {
	id, ok := pathAssetID(c)
	if !ok {
		return
	}

	owner, err := h.engine.OwnerOf(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	uri, err := h.engine.URIOf(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, toAssetResponse(id, owner, uri))
}

// GetPrice retrieves the listed price of an asset
func (h *handler) GetPrice(c *gin.Context) {
	actor, ok := caller(c)
	if !ok {
		return
	}

	id, ok := pathAssetID(c)
	if !ok {
		return
	}

	price, err := h.engine.PriceOf(c.Request.Context(), actor, id)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, PriceResponse{
		AssetID: uint64(id),
		Price:   price,
	})
}

// GetCanBuy reports whether a candidate could buy the asset right now
func (h *handler) GetCanBuy(c *gin.Context) {
	id, ok := pathAssetID(c)
	if !ok {
		return
	}

	candidate, err := domain.NormalizeIdentity(c.Query("candidate"))
	if err != nil {
		respondBadRequest(c, "Invalid candidate", err.Error())
		return
	}

	canBuy, err := h.engine.CanBuy(c.Request.Context(), candidate, id)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, CanBuyResponse{
		AssetID:   uint64(id),
		Candidate: candidate.String(),
		CanBuy:    canBuy,
	})
}

// PutListing lists the asset for sale
func (h *handler) PutListing(c *gin.Context) {
	actor, ok := caller(c)
	if !ok {
		return
	}

	id, ok := pathAssetID(c)
	if !ok {
		return
	}

	var req ListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if req.Buyer != nil {
		buyer, err := domain.NormalizeIdentity(*req.Buyer)
		if err != nil {
			respondValidationError(c, fmt.Sprintf("Invalid buyer: %v", err))
			return
		}
		if err := h.engine.ListForBuyer(c.Request.Context(), actor, id, req.Price, buyer); err != nil {
			respondDomainError(c, err)
			return
		}
		buyerStr := buyer.String()
		c.JSON(http.StatusOK, gin.H{
			"asset_id": uint64(id),
			"price":    req.Price,
			"buyer":    buyerStr,
		})
		return
	}

	if err := h.engine.ListForAll(c.Request.Context(), actor, id, req.Price); err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"asset_id": uint64(id),
		"price":    req.Price,
	})
}

// CancelListing removes the asset's listing
func (h *handler) CancelListing(c *gin.Context) {
	actor, ok := caller(c)
	if !ok {
		return
	}

	id, ok := pathAssetID(c)
	if !ok {
		return
	}

	if err := h.engine.CancelSale(c.Request.Context(), actor, id); err != nil {
		respondDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Purchase buys the asset for the submitted payment
func (h *handler) Purchase(c *gin.Context) {
	actor, ok := caller(c)
	if !ok {
		return
	}

	id, ok := pathAssetID(c)
	if !ok {
		return
	}

	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	result, err := h.engine.Buy(c.Request.Context(), actor, id, req.Payment)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, PurchaseResponse{
		AssetID:       uint64(id),
		Buyer:         actor.String(),
		Seller:        result.Seller.String(),
		Price:         result.Price,
		Payment:       req.Payment,
		SellerAmount:  result.SellerAmount,
		RoyaltyAmount: result.RoyaltyAmount,
	})
}

// GetOwnedCount returns the number of assets an identity owns
func (h *handler) GetOwnedCount(c *gin.Context) {
	identity, ok := pathIdentity(c)
	if !ok {
		return
	}

	count, err := h.engine.BalanceOf(c.Request.Context(), identity)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, CountResponse{
		Identity: identity.String(),
		Count:    count,
	})
}

// GetEscrowBalance returns the escrow balance owed to an identity
func (h *handler) GetEscrowBalance(c *gin.Context) {
	identity, ok := pathIdentity(c)
	if !ok {
		return
	}

	balance, err := h.engine.GoodsOf(c.Request.Context(), identity)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, EscrowResponse{
		Identity: identity.String(),
		Balance:  balance,
	})
}

// Withdraw releases the caller's full escrow balance
func (h *handler) Withdraw(c *gin.Context) {
	actor, ok := caller(c)
	if !ok {
		return
	}

	amount, err := h.engine.Withdraw(c.Request.Context(), actor)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, WithdrawalResponse{
		Identity: actor.String(),
		Amount:   amount,
	})
}

// GetTotalEscrow returns the sum of all escrow balances
func (h *handler) GetTotalEscrow(c *gin.Context) {
	total, err := h.engine.TotalEscrowHeld(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, TotalEscrowResponse{
		Total: total,
	})
}

// GetLedgerEntries retrieves audit journal entries with optional filters
func (h *handler) GetLedgerEntries(c *gin.Context) {
	var filter store.LedgerEntryFilter

	if raw := c.Query("asset_id"); raw != "" {
		id, err := domain.ParseAssetID(raw)
		if err != nil {
			respondValidationError(c, fmt.Sprintf("Invalid asset_id: %v", err))
			return
		}
		filter.AssetID = &id
	}

	if raw := c.Query("identity"); raw != "" {
		identity, err := domain.NormalizeIdentity(raw)
		if err != nil {
			respondValidationError(c, fmt.Sprintf("Invalid identity: %v", err))
			return
		}
		filter.Identity = &identity
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respondValidationError(c, "Invalid limit")
			return
		}
		filter.Limit = limit
	}

	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			respondValidationError(c, "Invalid offset")
			return
		}
		filter.Offset = offset
	}

	entries, err := h.engine.LedgerEntries(c.Request.Context(), filter)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	response := LedgerEntriesResponse{
		Entries: make([]LedgerEntryResponse, 0, len(entries)),
	}
	for _, entry := range entries {
		response.Entries = append(response.Entries, toLedgerEntryResponse(entry))
	}

	c.JSON(http.StatusOK, response)
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "ok",
		"service": "marketd-api",
	})
}
