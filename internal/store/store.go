package store

import (
	"context"

	"github.com/tokenhaus/marketd/internal/domain"
	"github.com/tokenhaus/marketd/internal/store/schema"
)

// SettleSaleInput carries everything needed to settle a purchase
type SettleSaleInput struct {
	AssetID domain.AssetID
	// Buyer is the authenticated caller submitting the payment
	Buyer domain.Identity
	// Payment is the full submitted amount; overpayment is accepted and
	// split like any other proceeds
	Payment uint64
	// RoyaltyRecipient receives the royalty cut (the administrative identity)
	RoyaltyRecipient domain.Identity
}

// SettleSaleResult describes a completed settlement
type SettleSaleResult struct {
	Seller        domain.Identity
	Price         uint64
	SellerAmount  uint64
	RoyaltyAmount uint64
}

// LedgerEntryFilter selects journal entries. Zero-value fields are ignored.
type LedgerEntryFilter struct {
	// AssetID restricts entries to one asset
	AssetID *domain.AssetID
	// Identity restricts entries to those where the identity is the actor
	// or the counterparty
	Identity *domain.Identity
	Limit    int
	Offset   int
}

// Store defines the persistence interface for the registry, listing, and
// escrow state. Every method is atomic: multi-step operations either apply
// completely or leave no trace.
type Store interface {
	// CreateAsset appends a new asset with the next sequential identifier
	CreateAsset(ctx context.Context, to domain.Identity, minter domain.Identity) (domain.AssetID, error)
	// GetAssetOwner returns the current owner; domain.ErrNotFound for ids
	// that were never minted
	GetAssetOwner(ctx context.Context, id domain.AssetID) (domain.Identity, error)
	// CountAssetsOwnedBy returns the number of assets currently owned by the
	// identity; zero for unknown identities
	CountAssetsOwnedBy(ctx context.Context, owner domain.Identity) (int64, error)

	// GetListing returns the active listing, or nil when the asset is
	// unlisted or unknown
	GetListing(ctx context.Context, id domain.AssetID) (*domain.Listing, error)
	// PutListing creates or unconditionally replaces the asset's listing.
	// The seller must be the current recorded owner; the store re-asserts
	// this and fails with domain.ErrInvariantViolation otherwise.
	PutListing(ctx context.Context, listing domain.Listing, seller domain.Identity) error
	// DeleteListing drops the asset's listing if one exists. Idempotent;
	// reports whether a listing was removed.
	DeleteListing(ctx context.Context, id domain.AssetID, actor domain.Identity) (bool, error)

	// GetEscrowBalance returns the amount owed to the identity; zero for
	// unknown identities
	GetEscrowBalance(ctx context.Context, identity domain.Identity) (uint64, error)
	// TotalEscrowHeld returns the sum of all escrow balances
	TotalEscrowHeld(ctx context.Context) (uint64, error)

	// SettleSale executes the full purchase sequence in one atomic step:
	// validate the listing and buyer, split the payment, transfer ownership,
	// drop the listing, and credit the seller and royalty recipient.
	SettleSale(ctx context.Context, input SettleSaleInput) (*SettleSaleResult, error)
	// WithdrawEscrow zeroes the identity's balance and returns the released
	// amount; domain.ErrNothingToWithdraw when the balance is zero
	WithdrawEscrow(ctx context.Context, identity domain.Identity) (uint64, error)

	// ListLedgerEntries returns journal entries in ascending id order
	ListLedgerEntries(ctx context.Context, filter LedgerEntryFilter) ([]schema.LedgerEntry, error)
}
