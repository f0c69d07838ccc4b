package domain

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType represents the type of market event
type EventType string

const (
	EventTypeMinted           EventType = "asset.minted"
	EventTypeListed           EventType = "asset.listed"
	EventTypeListingCancelled EventType = "asset.listing_cancelled"
	EventTypeSold             EventType = "asset.sold"
	EventTypeWithdrawn        EventType = "escrow.withdrawn"
)

// MarketEvent is the normalized event emitted after every successful
// state-changing operation. This is the format published to NATS and
// delivered to webhook clients.
type MarketEvent struct {
	// EventID is a ULID, unique and time-sortable
	EventID   string    `json:"event_id"`
	EventType EventType `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`

	// Actor is the authenticated caller that triggered the operation
	Actor Identity `json:"actor"`

	// AssetID is set for all asset-scoped events (nil for withdrawals)
	AssetID *AssetID `json:"asset_id,omitempty"`

	// Owner is the asset owner after the operation (mint recipient, buyer)
	Owner *Identity `json:"owner,omitempty"`

	// Listing details (asset.listed)
	Price *uint64   `json:"price,omitempty"`
	Buyer *Identity `json:"buyer,omitempty"`

	// Sale settlement details (asset.sold)
	Seller        *Identity `json:"seller,omitempty"`
	Payment       *uint64   `json:"payment,omitempty"`
	SellerAmount  *uint64   `json:"seller_amount,omitempty"`
	RoyaltyAmount *uint64   `json:"royalty_amount,omitempty"`

	// Amount released to the actor (escrow.withdrawn)
	Amount *uint64 `json:"amount,omitempty"`
}

// NewMarketEvent creates a market event with a fresh ULID and timestamp
func NewMarketEvent(eventType EventType, actor Identity) *MarketEvent {
	return &MarketEvent{
		EventID:   ulid.Make().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Actor:     actor,
	}
}
