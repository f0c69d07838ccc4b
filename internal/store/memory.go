package store

import (
	"context"
	"sync"
	"time"

	"github.com/tokenhaus/marketd/internal/domain"
	"github.com/tokenhaus/marketd/internal/store/schema"
)

// memoryStore keeps all state in process memory. This is the engine's
// default store: state persists for the lifetime of the hosting process and
// a single mutex serializes every state-mutating call, which is the
// serialization model the engine assumes.
type memoryStore struct {
	mu       sync.Mutex
	nextID   uint64
	owners   map[domain.AssetID]domain.Identity
	listings map[domain.AssetID]domain.Listing
	escrow   map[domain.Identity]uint64
	journal  []schema.LedgerEntry
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() Store {
	return &memoryStore{
		owners:   make(map[domain.AssetID]domain.Identity),
		listings: make(map[domain.AssetID]domain.Listing),
		escrow:   make(map[domain.Identity]uint64),
	}
}

func (s *memoryStore) CreateAsset(ctx context.Context, to domain.Identity, minter domain.Identity) (domain.AssetID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := domain.AssetID(s.nextID)
	entry, err := mintEntry(id, minter, to)
	if err != nil {
		return 0, err
	}

	s.nextID++
	s.owners[id] = to
	s.appendEntry(entry)
	return id, nil
}

func (s *memoryStore) GetAssetOwner(ctx context.Context, id domain.AssetID) (domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.owners[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	return owner, nil
}

func (s *memoryStore) CountAssetsOwnedBy(ctx context.Context, owner domain.Identity) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, o := range s.owners {
		if o == owner {
			count++
		}
	}
	return count, nil
}

func (s *memoryStore) GetListing(ctx context.Context, id domain.AssetID) (*domain.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	listing, ok := s.listings[id]
	if !ok {
		return nil, nil
	}
	return &listing, nil
}

func (s *memoryStore) PutListing(ctx context.Context, listing domain.Listing, seller domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.owners[listing.AssetID]
	if !ok {
		return domain.ErrNotFound
	}
	if owner != seller {
		return domain.ErrInvariantViolation
	}

	entry, err := listedEntry(listing, seller)
	if err != nil {
		return err
	}

	s.listings[listing.AssetID] = listing
	s.appendEntry(entry)
	return nil
}

func (s *memoryStore) DeleteListing(ctx context.Context, id domain.AssetID, actor domain.Identity) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.listings[id]; !ok {
		return false, nil
	}

	entry, err := cancelEntry(id, actor)
	if err != nil {
		return false, err
	}

	delete(s.listings, id)
	s.appendEntry(entry)
	return true, nil
}

func (s *memoryStore) GetEscrowBalance(ctx context.Context, identity domain.Identity) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.escrow[identity], nil
}

func (s *memoryStore) TotalEscrowHeld(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total uint64
	for _, amount := range s.escrow {
		total += amount
	}
	return total, nil
}

func (s *memoryStore) SettleSale(ctx context.Context, input SettleSaleInput) (*SettleSaleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	listing, ok := s.listings[input.AssetID]
	if !ok {
		return nil, domain.ErrNotForSale
	}

	seller, ok := s.owners[input.AssetID]
	if !ok {
		// A listing without a backing asset means the state is corrupt.
		return nil, domain.ErrInvariantViolation
	}
	if input.Buyer == seller || !listing.Eligible(input.Buyer) {
		return nil, domain.ErrUnauthorized
	}
	if input.Payment < listing.Price {
		return nil, domain.ErrInsufficientPayment
	}

	sellerAmount, royaltyAmount := domain.RoyaltySplit(input.Payment)
	result := SettleSaleResult{
		Seller:        seller,
		Price:         listing.Price,
		SellerAmount:  sellerAmount,
		RoyaltyAmount: royaltyAmount,
	}

	entry, err := saleEntry(input, result)
	if err != nil {
		return nil, err
	}

	s.owners[input.AssetID] = input.Buyer
	delete(s.listings, input.AssetID)
	s.escrow[seller] += sellerAmount
	s.escrow[input.RoyaltyRecipient] += royaltyAmount
	s.appendEntry(entry)

	return &result, nil
}

func (s *memoryStore) WithdrawEscrow(ctx context.Context, identity domain.Identity) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	amount := s.escrow[identity]
	if amount == 0 {
		return 0, domain.ErrNothingToWithdraw
	}

	entry, err := withdrawalEntry(identity, amount)
	if err != nil {
		return 0, err
	}

	// Zero the balance before the caller moves funds anywhere: a re-entrant
	// withdrawal sees an empty balance.
	delete(s.escrow, identity)
	s.appendEntry(entry)
	return amount, nil
}

func (s *memoryStore) ListLedgerEntries(ctx context.Context, filter LedgerEntryFilter) ([]schema.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultJournalLimit
	}

	matched := make([]schema.LedgerEntry, 0)
	skipped := 0
	for _, entry := range s.journal {
		if !matchesFilter(entry, filter) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		matched = append(matched, entry)
		if len(matched) == limit {
			break
		}
	}
	return matched, nil
}

func matchesFilter(entry schema.LedgerEntry, filter LedgerEntryFilter) bool {
	if filter.AssetID != nil {
		if entry.AssetID == nil || *entry.AssetID != uint64(*filter.AssetID) {
			return false
		}
	}
	if filter.Identity != nil {
		identity := filter.Identity.String()
		if entry.Actor != identity &&
			(entry.Counterparty == nil || *entry.Counterparty != identity) {
			return false
		}
	}
	return true
}

// appendEntry assigns the next journal sequence number. Callers hold s.mu.
func (s *memoryStore) appendEntry(entry schema.LedgerEntry) {
	entry.ID = int64(len(s.journal)) + 1
	entry.CreatedAt = time.Now().UTC()
	s.journal = append(s.journal, entry)
}
