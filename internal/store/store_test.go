package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenhaus/marketd/internal/domain"
	"github.com/tokenhaus/marketd/internal/store/schema"
)

// StoreTestSuite runs the behavioral contract of the Store interface against
// any implementation. Both the memory store and the PostgreSQL store must
// pass the same suite.
type StoreTestSuite struct {
	// NewStore returns a fresh, empty store for each test
	NewStore func(t *testing.T) Store
}

const (
	adminAddr = "0x90F79bf6EB2c4f870365E785982E1f101E93b906"
	aliceAddr = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	bobAddr   = "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"
	eveAddr   = "0x15d34AAf54267DB7D7c367839AAf71A00a2C6A65"
)

var (
	admin = domain.Identity(adminAddr)
	alice = domain.Identity(aliceAddr)
	bob   = domain.Identity(bobAddr)
	eve   = domain.Identity(eveAddr)
)

// Run executes the full suite
func (s *StoreTestSuite) Run(t *testing.T) {
	t.Run("CreateAsset", s.testCreateAsset)
	t.Run("Listings", s.testListings)
	t.Run("SettleSale", s.testSettleSale)
	t.Run("SettleSaleFailuresLeaveNoTrace", s.testSettleSaleFailures)
	t.Run("SellerIsRoyaltyRecipient", s.testSellerIsRoyaltyRecipient)
	t.Run("WithdrawEscrow", s.testWithdrawEscrow)
	t.Run("LedgerJournal", s.testLedgerJournal)
}

func (s *StoreTestSuite) testCreateAsset(t *testing.T) {
	ctx := context.Background()
	st := s.NewStore(t)

	// Ids are sequential from 0
	id0, err := st.CreateAsset(ctx, alice, admin)
	require.NoError(t, err)
	assert.Equal(t, domain.AssetID(0), id0)

	id1, err := st.CreateAsset(ctx, alice, admin)
	require.NoError(t, err)
	assert.Equal(t, domain.AssetID(1), id1)

	id2, err := st.CreateAsset(ctx, bob, admin)
	require.NoError(t, err)
	assert.Equal(t, domain.AssetID(2), id2)

	owner, err := st.GetAssetOwner(ctx, id0)
	require.NoError(t, err)
	assert.Equal(t, alice, owner)

	_, err = st.GetAssetOwner(ctx, domain.AssetID(99))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	count, err := st.CountAssetsOwnedBy(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = st.CountAssetsOwnedBy(ctx, eve)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func (s *StoreTestSuite) testListings(t *testing.T) {
	ctx := context.Background()
	st := s.NewStore(t)

	id, err := st.CreateAsset(ctx, alice, admin)
	require.NoError(t, err)

	// No listing yet
	listing, err := st.GetListing(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, listing)

	// Unknown asset cannot be listed
	err = st.PutListing(ctx, domain.Listing{AssetID: 99, Price: 10}, alice)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Only the recorded owner may hold a listing (defensive re-assertion)
	err = st.PutListing(ctx, domain.Listing{AssetID: id, Price: 10}, eve)
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)

	// Restricted listing roundtrip
	err = st.PutListing(ctx, domain.Listing{AssetID: id, Price: 500, Buyer: &bob}, alice)
	require.NoError(t, err)

	listing, err = st.GetListing(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, listing)
	assert.Equal(t, uint64(500), listing.Price)
	require.NotNil(t, listing.Buyer)
	assert.Equal(t, bob, *listing.Buyer)

	// Re-listing replaces unconditionally
	err = st.PutListing(ctx, domain.Listing{AssetID: id, Price: 900}, alice)
	require.NoError(t, err)

	listing, err = st.GetListing(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, listing)
	assert.Equal(t, uint64(900), listing.Price)
	assert.Nil(t, listing.Buyer)

	// Delete is idempotent
	deleted, err := st.DeleteListing(ctx, id, alice)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = st.DeleteListing(ctx, id, alice)
	require.NoError(t, err)
	assert.False(t, deleted)

	listing, err = st.GetListing(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, listing)
}

func (s *StoreTestSuite) testSettleSale(t *testing.T) {
	ctx := context.Background()
	st := s.NewStore(t)

	id, err := st.CreateAsset(ctx, alice, admin)
	require.NoError(t, err)

	err = st.PutListing(ctx, domain.Listing{AssetID: id, Price: 1_000_000}, alice)
	require.NoError(t, err)

	result, err := st.SettleSale(ctx, SettleSaleInput{
		AssetID:          id,
		Buyer:            bob,
		Payment:          1_000_000,
		RoyaltyRecipient: admin,
	})
	require.NoError(t, err)
	assert.Equal(t, alice, result.Seller)
	assert.Equal(t, uint64(1_000_000), result.Price)
	assert.Equal(t, uint64(990_000), result.SellerAmount)
	assert.Equal(t, uint64(10_000), result.RoyaltyAmount)

	// Ownership transferred, listing gone
	owner, err := st.GetAssetOwner(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, bob, owner)

	listing, err := st.GetListing(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, listing)

	// Escrow credited on both sides
	balance, err := st.GetEscrowBalance(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(990_000), balance)

	balance, err = st.GetEscrowBalance(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), balance)

	total, err := st.TotalEscrowHeld(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), total)

	// The listing was one-shot
	_, err = st.SettleSale(ctx, SettleSaleInput{
		AssetID:          id,
		Buyer:            eve,
		Payment:          1_000_000,
		RoyaltyRecipient: admin,
	})
	assert.ErrorIs(t, err, domain.ErrNotForSale)
}

func (s *StoreTestSuite) testSettleSaleFailures(t *testing.T) {
	ctx := context.Background()
	st := s.NewStore(t)

	id, err := st.CreateAsset(ctx, alice, admin)
	require.NoError(t, err)

	// Unlisted asset
	_, err = st.SettleSale(ctx, SettleSaleInput{AssetID: id, Buyer: bob, Payment: 100, RoyaltyRecipient: admin})
	assert.ErrorIs(t, err, domain.ErrNotForSale)

	// Unknown asset behaves like an unlisted one
	_, err = st.SettleSale(ctx, SettleSaleInput{AssetID: 42, Buyer: bob, Payment: 100, RoyaltyRecipient: admin})
	assert.ErrorIs(t, err, domain.ErrNotForSale)

	err = st.PutListing(ctx, domain.Listing{AssetID: id, Price: 1_000, Buyer: &bob}, alice)
	require.NoError(t, err)

	// Wrong buyer on a restricted listing
	_, err = st.SettleSale(ctx, SettleSaleInput{AssetID: id, Buyer: eve, Payment: 1_000, RoyaltyRecipient: admin})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	// The owner cannot buy their own asset
	_, err = st.SettleSale(ctx, SettleSaleInput{AssetID: id, Buyer: alice, Payment: 1_000, RoyaltyRecipient: admin})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	// Underpayment
	_, err = st.SettleSale(ctx, SettleSaleInput{AssetID: id, Buyer: bob, Payment: 999, RoyaltyRecipient: admin})
	assert.ErrorIs(t, err, domain.ErrInsufficientPayment)

	// None of the failures changed any state
	owner, err := st.GetAssetOwner(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, alice, owner)

	listing, err := st.GetListing(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, listing)
	assert.Equal(t, uint64(1_000), listing.Price)

	total, err := st.TotalEscrowHeld(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func (s *StoreTestSuite) testSellerIsRoyaltyRecipient(t *testing.T) {
	ctx := context.Background()
	st := s.NewStore(t)

	// The admin sells an asset of its own: both halves of the split land in
	// the same balance
	id, err := st.CreateAsset(ctx, admin, admin)
	require.NoError(t, err)

	err = st.PutListing(ctx, domain.Listing{AssetID: id, Price: 200}, admin)
	require.NoError(t, err)

	_, err = st.SettleSale(ctx, SettleSaleInput{
		AssetID:          id,
		Buyer:            bob,
		Payment:          200,
		RoyaltyRecipient: admin,
	})
	require.NoError(t, err)

	balance, err := st.GetEscrowBalance(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), balance)

	total, err := st.TotalEscrowHeld(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), total)
}

func (s *StoreTestSuite) testWithdrawEscrow(t *testing.T) {
	ctx := context.Background()
	st := s.NewStore(t)

	// Nothing to withdraw for a fresh identity
	_, err := st.WithdrawEscrow(ctx, eve)
	assert.ErrorIs(t, err, domain.ErrNothingToWithdraw)

	id, err := st.CreateAsset(ctx, alice, admin)
	require.NoError(t, err)
	err = st.PutListing(ctx, domain.Listing{AssetID: id, Price: 1_000_000}, alice)
	require.NoError(t, err)
	_, err = st.SettleSale(ctx, SettleSaleInput{
		AssetID:          id,
		Buyer:            bob,
		Payment:          1_000_000,
		RoyaltyRecipient: admin,
	})
	require.NoError(t, err)

	// Full amount released, balance zeroed
	released, err := st.WithdrawEscrow(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(990_000), released)

	balance, err := st.GetEscrowBalance(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, balance)

	// A second immediate withdrawal fails
	_, err = st.WithdrawEscrow(ctx, alice)
	assert.ErrorIs(t, err, domain.ErrNothingToWithdraw)

	released, err = st.WithdrawEscrow(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), released)

	// The engine holds exactly what it owes: nothing
	total, err := st.TotalEscrowHeld(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func (s *StoreTestSuite) testLedgerJournal(t *testing.T) {
	ctx := context.Background()
	st := s.NewStore(t)

	id, err := st.CreateAsset(ctx, alice, admin)
	require.NoError(t, err)
	err = st.PutListing(ctx, domain.Listing{AssetID: id, Price: 300}, alice)
	require.NoError(t, err)
	_, err = st.DeleteListing(ctx, id, alice)
	require.NoError(t, err)
	err = st.PutListing(ctx, domain.Listing{AssetID: id, Price: 400}, alice)
	require.NoError(t, err)
	_, err = st.SettleSale(ctx, SettleSaleInput{AssetID: id, Buyer: bob, Payment: 400, RoyaltyRecipient: admin})
	require.NoError(t, err)
	_, err = st.WithdrawEscrow(ctx, alice)
	require.NoError(t, err)

	entries, err := st.ListLedgerEntries(ctx, LedgerEntryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 6)

	types := make([]schema.EntryType, len(entries))
	for i, entry := range entries {
		types[i] = entry.EntryType
	}
	assert.Equal(t, []schema.EntryType{
		schema.EntryTypeMint,
		schema.EntryTypeListed,
		schema.EntryTypeListingCancelled,
		schema.EntryTypeListed,
		schema.EntryTypeSale,
		schema.EntryTypeWithdrawal,
	}, types)

	// The sale entry carries the settlement breakdown
	sale := entries[4]
	assert.Equal(t, bob.String(), sale.Actor)
	require.NotNil(t, sale.Counterparty)
	assert.Equal(t, alice.String(), *sale.Counterparty)
	require.NotNil(t, sale.Amount)
	assert.Equal(t, uint64(400), *sale.Amount)
	assert.JSONEq(t,
		`{"price":400,"payment":400,"seller_amount":396,"royalty_amount":4}`,
		string(sale.Meta))

	// Filter by asset drops the withdrawal
	entries, err = st.ListLedgerEntries(ctx, LedgerEntryFilter{AssetID: &id})
	require.NoError(t, err)
	assert.Len(t, entries, 5)

	// Filter by identity matches actor and counterparty
	entries, err = st.ListLedgerEntries(ctx, LedgerEntryFilter{Identity: &bob})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, schema.EntryTypeSale, entries[0].EntryType)

	// Pagination
	entries, err = st.ListLedgerEntries(ctx, LedgerEntryFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, schema.EntryTypeListed, entries[0].EntryType)
	assert.Equal(t, schema.EntryTypeListingCancelled, entries[1].EntryType)
}
