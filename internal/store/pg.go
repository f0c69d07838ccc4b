package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tokenhaus/marketd/internal/domain"
	"github.com/tokenhaus/marketd/internal/store/schema"
)

// nextAssetIDKey is the key_value_store key holding the next sequential
// asset identifier
const nextAssetIDKey = "next_asset_id"

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// AutoMigrate creates or updates the engine's tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&schema.Asset{},
		&schema.Listing{},
		&schema.EscrowBalance{},
		&schema.LedgerEntry{},
		&schema.KeyValueStore{},
	)
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection. Zero values fall back to defaults (20 open, 5 idle,
// 5m lifetime, 10m idle time).
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

func (s *pgStore) CreateAsset(ctx context.Context, to domain.Identity, minter domain.Identity) (domain.AssetID, error) {
	var assigned domain.AssetID

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the counter row so concurrent mints get distinct ids
		var kv schema.KeyValueStore
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("key = ?", nextAssetIDKey).First(&kv).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			kv = schema.KeyValueStore{Key: nextAssetIDKey, Value: "0"}
			if err := tx.Create(&kv).Error; err != nil {
				return fmt.Errorf("failed to initialize asset id counter: %w", err)
			}
		} else if err != nil {
			return fmt.Errorf("failed to read asset id counter: %w", err)
		}

		next, err := strconv.ParseUint(kv.Value, 10, 64)
		if err != nil {
			return fmt.Errorf("corrupt asset id counter %q: %w", kv.Value, domain.ErrInvariantViolation)
		}

		asset := schema.Asset{ID: next, Owner: to.String()}
		if err := tx.Create(&asset).Error; err != nil {
			return fmt.Errorf("failed to create asset: %w", err)
		}

		kv.Value = strconv.FormatUint(next+1, 10)
		if err := tx.Save(&kv).Error; err != nil {
			return fmt.Errorf("failed to advance asset id counter: %w", err)
		}

		entry, err := mintEntry(domain.AssetID(next), minter, to)
		if err != nil {
			return err
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to journal mint: %w", err)
		}

		assigned = domain.AssetID(next)
		return nil
	})
	if err != nil {
		return 0, err
	}

	return assigned, nil
}

func (s *pgStore) GetAssetOwner(ctx context.Context, id domain.AssetID) (domain.Identity, error) {
	var asset schema.Asset
	err := s.db.WithContext(ctx).Where("id = ?", uint64(id)).First(&asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get asset owner: %w", err)
	}

	return domain.Identity(asset.Owner), nil
}

func (s *pgStore) CountAssetsOwnedBy(ctx context.Context, owner domain.Identity) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&schema.Asset{}).
		Where("owner = ?", owner.String()).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count assets: %w", err)
	}

	return count, nil
}

func (s *pgStore) GetListing(ctx context.Context, id domain.AssetID) (*domain.Listing, error) {
	var listing schema.Listing
	err := s.db.WithContext(ctx).Where("asset_id = ?", uint64(id)).First(&listing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}

	return listingFromSchema(&listing), nil
}

func (s *pgStore) PutListing(ctx context.Context, listing domain.Listing, seller domain.Identity) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var asset schema.Asset
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", uint64(listing.AssetID)).First(&asset).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load asset: %w", err)
		}
		// Callers have already verified ownership; re-assert it here
		if asset.Owner != seller.String() {
			return domain.ErrInvariantViolation
		}

		row := schema.Listing{
			AssetID: uint64(listing.AssetID),
			Price:   listing.Price,
		}
		if listing.Buyer != nil {
			buyer := listing.Buyer.String()
			row.Buyer = &buyer
		}

		// Replace any existing listing unconditionally
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "asset_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"price", "buyer", "updated_at"}),
		}).Create(&row).Error; err != nil {
			return fmt.Errorf("failed to upsert listing: %w", err)
		}

		entry, err := listedEntry(listing, seller)
		if err != nil {
			return err
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to journal listing: %w", err)
		}

		return nil
	})
}

func (s *pgStore) DeleteListing(ctx context.Context, id domain.AssetID, actor domain.Identity) (bool, error) {
	var deleted bool

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("asset_id = ?", uint64(id)).Delete(&schema.Listing{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete listing: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil
		}

		entry, err := cancelEntry(id, actor)
		if err != nil {
			return err
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to journal cancellation: %w", err)
		}

		deleted = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return deleted, nil
}

func (s *pgStore) GetEscrowBalance(ctx context.Context, identity domain.Identity) (uint64, error) {
	var balance schema.EscrowBalance
	err := s.db.WithContext(ctx).Where("identity = ?", identity.String()).First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get escrow balance: %w", err)
	}

	return balance.Amount, nil
}

func (s *pgStore) TotalEscrowHeld(ctx context.Context) (uint64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&schema.EscrowBalance{}).
		Select("COALESCE(SUM(amount), 0)::bigint").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum escrow balances: %w", err)
	}

	return uint64(total), nil
}

func (s *pgStore) SettleSale(ctx context.Context, input SettleSaleInput) (*SettleSaleResult, error) {
	var result SettleSaleResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the listing and the asset for the whole settlement
		var listing schema.Listing
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("asset_id = ?", uint64(input.AssetID)).First(&listing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotForSale
		}
		if err != nil {
			return fmt.Errorf("failed to load listing: %w", err)
		}

		var asset schema.Asset
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", uint64(input.AssetID)).First(&asset).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// A listing without a backing asset means the state is corrupt.
			return domain.ErrInvariantViolation
		}
		if err != nil {
			return fmt.Errorf("failed to load asset: %w", err)
		}

		seller := domain.Identity(asset.Owner)
		dl := listingFromSchema(&listing)
		if input.Buyer == seller || !dl.Eligible(input.Buyer) {
			return domain.ErrUnauthorized
		}
		if input.Payment < listing.Price {
			return domain.ErrInsufficientPayment
		}

		sellerAmount, royaltyAmount := domain.RoyaltySplit(input.Payment)
		result = SettleSaleResult{
			Seller:        seller,
			Price:         listing.Price,
			SellerAmount:  sellerAmount,
			RoyaltyAmount: royaltyAmount,
		}

		if err := tx.Model(&schema.Asset{}).
			Where("id = ?", asset.ID).
			Update("owner", input.Buyer.String()).Error; err != nil {
			return fmt.Errorf("failed to transfer ownership: %w", err)
		}

		if err := tx.Where("asset_id = ?", asset.ID).Delete(&schema.Listing{}).Error; err != nil {
			return fmt.Errorf("failed to drop listing: %w", err)
		}

		// The seller may also be the royalty recipient; credit once in that
		// case so the upsert arithmetic stays correct
		if seller == input.RoyaltyRecipient {
			if err := creditEscrow(tx, seller, input.Payment); err != nil {
				return err
			}
		} else {
			if err := creditEscrow(tx, seller, sellerAmount); err != nil {
				return err
			}
			if err := creditEscrow(tx, input.RoyaltyRecipient, royaltyAmount); err != nil {
				return err
			}
		}

		entry, err := saleEntry(input, result)
		if err != nil {
			return err
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to journal sale: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (s *pgStore) WithdrawEscrow(ctx context.Context, identity domain.Identity) (uint64, error) {
	var released uint64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var balance schema.EscrowBalance
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("identity = ?", identity.String()).First(&balance).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNothingToWithdraw
		}
		if err != nil {
			return fmt.Errorf("failed to load escrow balance: %w", err)
		}
		if balance.Amount == 0 {
			return domain.ErrNothingToWithdraw
		}

		// Zero the balance before anything moves funds out of the engine
		if err := tx.Model(&schema.EscrowBalance{}).
			Where("identity = ?", identity.String()).
			Update("amount", 0).Error; err != nil {
			return fmt.Errorf("failed to zero escrow balance: %w", err)
		}

		entry, err := withdrawalEntry(identity, balance.Amount)
		if err != nil {
			return err
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to journal withdrawal: %w", err)
		}

		released = balance.Amount
		return nil
	})
	if err != nil {
		return 0, err
	}

	return released, nil
}

func (s *pgStore) ListLedgerEntries(ctx context.Context, filter LedgerEntryFilter) ([]schema.LedgerEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultJournalLimit
	}

	query := s.db.WithContext(ctx).Model(&schema.LedgerEntry{})
	if filter.AssetID != nil {
		query = query.Where("asset_id = ?", uint64(*filter.AssetID))
	}
	if filter.Identity != nil {
		identity := filter.Identity.String()
		query = query.Where("actor = ? OR counterparty = ?", identity, identity)
	}

	var entries []schema.LedgerEntry
	err := query.Order("id ASC").Limit(limit).Offset(filter.Offset).Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}

	return entries, nil
}

// creditEscrow adds amount to the identity's balance, creating the row on
// first credit
func creditEscrow(tx *gorm.DB, identity domain.Identity, amount uint64) error {
	balance := schema.EscrowBalance{
		Identity: identity.String(),
		Amount:   amount,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "identity"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"amount":     gorm.Expr("escrow_balances.amount + ?", amount),
			"updated_at": gorm.Expr("now()"),
		}),
	}).Create(&balance).Error
	if err != nil {
		return fmt.Errorf("failed to credit escrow for %s: %w", identity, err)
	}

	return nil
}

func listingFromSchema(row *schema.Listing) *domain.Listing {
	listing := domain.Listing{
		AssetID: domain.AssetID(row.AssetID),
		Price:   row.Price,
	}
	if row.Buyer != nil {
		buyer := domain.Identity(*row.Buyer)
		listing.Buyer = &buyer
	}
	return &listing
}
