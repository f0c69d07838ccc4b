package market

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tokenhaus/marketd/internal/domain"
	"github.com/tokenhaus/marketd/internal/logger"
	"github.com/tokenhaus/marketd/internal/messaging"
	"github.com/tokenhaus/marketd/internal/store"
	"github.com/tokenhaus/marketd/internal/store/schema"
)

// Config holds the configuration for the marketplace engine
type Config struct {
	// Admin is the administrative identity: the only identity allowed to
	// mint, and the recipient of the royalty cut on every sale
	Admin domain.Identity
	// URIScheme is the scheme used for deterministic asset URIs.
	// Defaults to domain.DefaultURIScheme.
	URIScheme string
}

// Engine is the marketplace service: the ownership registry, listing
// registry, sale settlement, and escrow accounting behind the API.
// Callers are authenticated identities; authorization happens here,
// state transitions happen atomically in the store.
type Engine interface {
	// Mint creates a new asset owned by to. Admin only.
	Mint(ctx context.Context, caller, to domain.Identity) (domain.AssetID, error)
	// OwnerOf returns the current owner of the asset
	OwnerOf(ctx context.Context, id domain.AssetID) (domain.Identity, error)
	// BalanceOf returns the number of assets the identity currently owns
	BalanceOf(ctx context.Context, identity domain.Identity) (int64, error)
	// URIOf returns the deterministic URI of the asset
	URIOf(ctx context.Context, id domain.AssetID) (string, error)

	// ListForAll offers the asset to any buyer at the given price
	ListForAll(ctx context.Context, caller domain.Identity, id domain.AssetID, price uint64) error
	// ListForBuyer offers the asset to a single buyer at the given price
	ListForBuyer(ctx context.Context, caller domain.Identity, id domain.AssetID, price uint64, buyer domain.Identity) error
	// CancelSale removes the asset's listing. Owner only; succeeds quietly
	// when no listing exists.
	CancelSale(ctx context.Context, caller domain.Identity, id domain.AssetID) error
	// PriceOf returns the listed price. Visible only to the current owner
	// and to identities eligible to buy; everyone else gets
	// domain.ErrUnauthorized regardless of whether a listing exists.
	PriceOf(ctx context.Context, caller domain.Identity, id domain.AssetID) (uint64, error)
	// CanBuy reports whether the candidate could purchase the asset right
	// now. Never fails on domain grounds: unknown assets, missing listings,
	// restrictions, and owner self-purchase all report false.
	CanBuy(ctx context.Context, candidate domain.Identity, id domain.AssetID) (bool, error)
	// Buy purchases the asset for the submitted payment
	Buy(ctx context.Context, caller domain.Identity, id domain.AssetID, payment uint64) (*store.SettleSaleResult, error)

	// GoodsOf returns the identity's escrow balance. Public.
	GoodsOf(ctx context.Context, identity domain.Identity) (uint64, error)
	// Withdraw releases the caller's full escrow balance
	Withdraw(ctx context.Context, caller domain.Identity) (uint64, error)
	// TotalEscrowHeld returns the sum of all escrow balances
	TotalEscrowHeld(ctx context.Context) (uint64, error)

	// LedgerEntries returns audit journal entries
	LedgerEntries(ctx context.Context, filter store.LedgerEntryFilter) ([]schema.LedgerEntry, error)

	// Admin returns the administrative identity
	Admin() domain.Identity
}

type engine struct {
	store     store.Store
	publisher messaging.Publisher
	config    Config
}

// NewEngine creates a new marketplace engine
func NewEngine(st store.Store, pub messaging.Publisher, cfg Config) Engine {
	if cfg.URIScheme == "" {
		cfg.URIScheme = domain.DefaultURIScheme
	}
	if pub == nil {
		pub = messaging.NoopPublisher{}
	}
	return &engine{
		store:     st,
		publisher: pub,
		config:    cfg,
	}
}

func (e *engine) Admin() domain.Identity {
	return e.config.Admin
}

// publish sends the event best-effort. A broker outage must not fail an
// operation that already committed.
func (e *engine) publish(ctx context.Context, event *domain.MarketEvent) {
	if err := e.publisher.PublishEvent(ctx, event); err != nil {
		logger.Warn("failed to publish market event",
			zap.String("event_id", event.EventID),
			zap.String("event_type", string(event.EventType)),
			zap.Error(err))
	}
}

func (e *engine) Mint(ctx context.Context, caller, to domain.Identity) (domain.AssetID, error) {
	if err := e.requireAdmin(caller); err != nil {
		return 0, err
	}
	if !to.Valid() {
		return 0, fmt.Errorf("invalid mint recipient %q", to)
	}

	id, err := e.store.CreateAsset(ctx, to, caller)
	if err != nil {
		return 0, fmt.Errorf("failed to create asset: %w", err)
	}

	event := domain.NewMarketEvent(domain.EventTypeMinted, caller)
	event.AssetID = &id
	event.Owner = &to
	e.publish(ctx, event)

	return id, nil
}

func (e *engine) OwnerOf(ctx context.Context, id domain.AssetID) (domain.Identity, error) {
	return e.store.GetAssetOwner(ctx, id)
}

func (e *engine) BalanceOf(ctx context.Context, identity domain.Identity) (int64, error) {
	return e.store.CountAssetsOwnedBy(ctx, identity)
}

func (e *engine) URIOf(ctx context.Context, id domain.AssetID) (string, error) {
	// The URI is derived, but only minted assets have one
	if _, err := e.store.GetAssetOwner(ctx, id); err != nil {
		return "", err
	}
	return domain.AssetURI(e.config.URIScheme, id), nil
}

func (e *engine) ListForAll(ctx context.Context, caller domain.Identity, id domain.AssetID, price uint64) error {
	return e.list(ctx, caller, domain.Listing{AssetID: id, Price: price})
}

func (e *engine) ListForBuyer(ctx context.Context, caller domain.Identity, id domain.AssetID, price uint64, buyer domain.Identity) error {
	if !buyer.Valid() {
		return fmt.Errorf("invalid restricted buyer %q", buyer)
	}
	return e.list(ctx, caller, domain.Listing{AssetID: id, Price: price, Buyer: &buyer})
}

// list replaces any prior listing unconditionally
func (e *engine) list(ctx context.Context, caller domain.Identity, listing domain.Listing) error {
	if err := e.requireOwner(ctx, caller, listing.AssetID); err != nil {
		return err
	}

	if err := e.store.PutListing(ctx, listing, caller); err != nil {
		return fmt.Errorf("failed to store listing: %w", err)
	}

	event := domain.NewMarketEvent(domain.EventTypeListed, caller)
	event.AssetID = &listing.AssetID
	event.Price = &listing.Price
	event.Buyer = listing.Buyer
	e.publish(ctx, event)

	return nil
}

func (e *engine) CancelSale(ctx context.Context, caller domain.Identity, id domain.AssetID) error {
	if err := e.requireOwner(ctx, caller, id); err != nil {
		return err
	}

	removed, err := e.store.DeleteListing(ctx, id, caller)
	if err != nil {
		return fmt.Errorf("failed to delete listing: %w", err)
	}
	if !removed {
		// Cancelling an unlisted asset is a no-op
		return nil
	}

	event := domain.NewMarketEvent(domain.EventTypeListingCancelled, caller)
	event.AssetID = &id
	e.publish(ctx, event)

	return nil
}

func (e *engine) PriceOf(ctx context.Context, caller domain.Identity, id domain.AssetID) (uint64, error) {
	owner, err := e.store.GetAssetOwner(ctx, id)
	if err != nil {
		return 0, err
	}

	listing, err := e.store.GetListing(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("failed to load listing: %w", err)
	}

	if caller == owner {
		if listing == nil {
			return 0, domain.ErrNotForSale
		}
		return listing.Price, nil
	}

	// Non-owners only ever learn the price when they could act on it. An
	// ineligible caller gets the same answer whether or not a listing
	// exists.
	if listing != nil && listing.Eligible(caller) {
		return listing.Price, nil
	}
	return 0, domain.ErrUnauthorized
}

func (e *engine) CanBuy(ctx context.Context, candidate domain.Identity, id domain.AssetID) (bool, error) {
	owner, err := e.store.GetAssetOwner(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if candidate == owner {
		return false, nil
	}

	listing, err := e.store.GetListing(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to load listing: %w", err)
	}
	if listing == nil {
		return false, nil
	}
	return listing.Eligible(candidate), nil
}

func (e *engine) Buy(ctx context.Context, caller domain.Identity, id domain.AssetID, payment uint64) (*store.SettleSaleResult, error) {
	result, err := e.store.SettleSale(ctx, store.SettleSaleInput{
		AssetID:          id,
		Buyer:            caller,
		Payment:          payment,
		RoyaltyRecipient: e.config.Admin,
	})
	if err != nil {
		return nil, err
	}

	event := domain.NewMarketEvent(domain.EventTypeSold, caller)
	event.AssetID = &id
	event.Owner = &caller
	event.Seller = &result.Seller
	event.Price = &result.Price
	event.Payment = &payment
	event.SellerAmount = &result.SellerAmount
	event.RoyaltyAmount = &result.RoyaltyAmount
	e.publish(ctx, event)

	return result, nil
}

func (e *engine) GoodsOf(ctx context.Context, identity domain.Identity) (uint64, error) {
	return e.store.GetEscrowBalance(ctx, identity)
}

func (e *engine) Withdraw(ctx context.Context, caller domain.Identity) (uint64, error) {
	amount, err := e.store.WithdrawEscrow(ctx, caller)
	if err != nil {
		return 0, err
	}

	event := domain.NewMarketEvent(domain.EventTypeWithdrawn, caller)
	event.Amount = &amount
	e.publish(ctx, event)

	return amount, nil
}

func (e *engine) TotalEscrowHeld(ctx context.Context) (uint64, error) {
	return e.store.TotalEscrowHeld(ctx)
}

func (e *engine) LedgerEntries(ctx context.Context, filter store.LedgerEntryFilter) ([]schema.LedgerEntry, error) {
	return e.store.ListLedgerEntries(ctx, filter)
}
