package store

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/tokenhaus/marketd/internal/domain"
	"github.com/tokenhaus/marketd/internal/store/schema"
)

// defaultJournalLimit bounds ListLedgerEntries when no limit is given
const defaultJournalLimit = 100

// saleMeta is the journal detail recorded for settled sales
type saleMeta struct {
	Price         uint64 `json:"price"`
	Payment       uint64 `json:"payment"`
	SellerAmount  uint64 `json:"seller_amount"`
	RoyaltyAmount uint64 `json:"royalty_amount"`
}

// listingMeta is the journal detail recorded for new or replaced listings
type listingMeta struct {
	Price uint64  `json:"price"`
	Buyer *string `json:"buyer,omitempty"`
}

func marshalMeta(meta interface{}) (datatypes.JSON, error) {
	if meta == nil {
		return nil, nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal journal meta: %w", err)
	}
	return datatypes.JSON(data), nil
}

func mintEntry(id domain.AssetID, minter, to domain.Identity) (schema.LedgerEntry, error) {
	assetID := uint64(id)
	recipient := to.String()
	return schema.LedgerEntry{
		EntryType:    schema.EntryTypeMint,
		AssetID:      &assetID,
		Actor:        minter.String(),
		Counterparty: &recipient,
	}, nil
}

func listedEntry(listing domain.Listing, seller domain.Identity) (schema.LedgerEntry, error) {
	assetID := uint64(listing.AssetID)
	var buyer *string
	if listing.Buyer != nil {
		b := listing.Buyer.String()
		buyer = &b
	}
	meta, err := marshalMeta(listingMeta{Price: listing.Price, Buyer: buyer})
	if err != nil {
		return schema.LedgerEntry{}, err
	}
	price := listing.Price
	return schema.LedgerEntry{
		EntryType:    schema.EntryTypeListed,
		AssetID:      &assetID,
		Actor:        seller.String(),
		Counterparty: buyer,
		Amount:       &price,
		Meta:         meta,
	}, nil
}

func cancelEntry(id domain.AssetID, actor domain.Identity) (schema.LedgerEntry, error) {
	assetID := uint64(id)
	return schema.LedgerEntry{
		EntryType: schema.EntryTypeListingCancelled,
		AssetID:   &assetID,
		Actor:     actor.String(),
	}, nil
}

func saleEntry(input SettleSaleInput, result SettleSaleResult) (schema.LedgerEntry, error) {
	assetID := uint64(input.AssetID)
	seller := result.Seller.String()
	payment := input.Payment
	meta, err := marshalMeta(saleMeta{
		Price:         result.Price,
		Payment:       input.Payment,
		SellerAmount:  result.SellerAmount,
		RoyaltyAmount: result.RoyaltyAmount,
	})
	if err != nil {
		return schema.LedgerEntry{}, err
	}
	return schema.LedgerEntry{
		EntryType:    schema.EntryTypeSale,
		AssetID:      &assetID,
		Actor:        input.Buyer.String(),
		Counterparty: &seller,
		Amount:       &payment,
		Meta:         meta,
	}, nil
}

func withdrawalEntry(identity domain.Identity, amount uint64) (schema.LedgerEntry, error) {
	released := amount
	return schema.LedgerEntry{
		EntryType: schema.EntryTypeWithdrawal,
		Actor:     identity.String(),
		Amount:    &released,
	}, nil
}
