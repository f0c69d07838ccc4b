package rest

import (
	"encoding/json"
	"time"

	"github.com/tokenhaus/marketd/internal/domain"
	"github.com/tokenhaus/marketd/internal/store/schema"
)

// MintRequest is the body for minting a new asset
type MintRequest struct {
	// To is the identity that will own the minted asset
	To string `json:"to" binding:"required"`
}

// ListingRequest is the body for listing an asset for sale
type ListingRequest struct {
	Price uint64 `json:"price"`
	// Buyer restricts the listing to a single identity when set
	Buyer *string `json:"buyer,omitempty"`
}

// PurchaseRequest is the body for buying a listed asset
type PurchaseRequest struct {
	// Payment is the full submitted amount; it must cover the listed price
	Payment uint64 `json:"payment"`
}

// AssetResponse describes one asset
type AssetResponse struct {
	ID    uint64 `json:"id"`
	Owner string `json:"owner"`
	URI   string `json:"uri"`
}

// PriceResponse carries the listed price of an asset
type PriceResponse struct {
	AssetID uint64 `json:"asset_id"`
	Price   uint64 `json:"price"`
}

// CanBuyResponse reports purchase eligibility for a candidate
type CanBuyResponse struct {
	AssetID   uint64 `json:"asset_id"`
	Candidate string `json:"candidate"`
	CanBuy    bool   `json:"can_buy"`
}

// PurchaseResponse describes a settled sale
type PurchaseResponse struct {
	AssetID       uint64 `json:"asset_id"`
	Buyer         string `json:"buyer"`
	Seller        string `json:"seller"`
	Price         uint64 `json:"price"`
	Payment       uint64 `json:"payment"`
	SellerAmount  uint64 `json:"seller_amount"`
	RoyaltyAmount uint64 `json:"royalty_amount"`
}

// WithdrawalResponse describes a completed escrow withdrawal
type WithdrawalResponse struct {
	Identity string `json:"identity"`
	Amount   uint64 `json:"amount"`
}

// EscrowResponse carries one identity's escrow balance
type EscrowResponse struct {
	Identity string `json:"identity"`
	Balance  uint64 `json:"balance"`
}

// CountResponse carries an asset count for one identity
type CountResponse struct {
	Identity string `json:"identity"`
	Count    int64  `json:"count"`
}

// TotalEscrowResponse carries the sum of all escrow balances
type TotalEscrowResponse struct {
	Total uint64 `json:"total"`
}

// LedgerEntryResponse is one audit journal entry
type LedgerEntryResponse struct {
	ID           int64           `json:"id"`
	EntryType    string          `json:"entry_type"`
	AssetID      *uint64         `json:"asset_id,omitempty"`
	Actor        string          `json:"actor"`
	Counterparty *string         `json:"counterparty,omitempty"`
	Amount       *uint64         `json:"amount,omitempty"`
	Meta         json.RawMessage `json:"meta,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// LedgerEntriesResponse is a page of journal entries
type LedgerEntriesResponse struct {
	Entries []LedgerEntryResponse `json:"entries"`
}

func toAssetResponse(id domain.AssetID, owner domain.Identity, uri string) AssetResponse {
	return AssetResponse{
		ID:    uint64(id),
		Owner: owner.String(),
		URI:   uri,
	}
}

func toLedgerEntryResponse(entry schema.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:           entry.ID,
		EntryType:    string(entry.EntryType),
		AssetID:      entry.AssetID,
		Actor:        entry.Actor,
		Counterparty: entry.Counterparty,
		Amount:       entry.Amount,
		Meta:         json.RawMessage(entry.Meta),
		CreatedAt:    entry.CreatedAt,
	}
}
