package schema

import (
	"time"

	"gorm.io/datatypes"
)

// EntryType identifies the kind of ledger journal entry
type EntryType string

const (
	// EntryTypeMint records the creation of a new asset
	EntryTypeMint EntryType = "mint"
	// EntryTypeListed records a new or replaced listing
	EntryTypeListed EntryType = "listed"
	// EntryTypeListingCancelled records an owner cancelling a listing
	EntryTypeListingCancelled EntryType = "listing_cancelled"
	// EntryTypeSale records a settled sale (transfer + escrow credits)
	EntryTypeSale EntryType = "sale"
	// EntryTypeWithdrawal records a full escrow withdrawal
	EntryTypeWithdrawal EntryType = "withdrawal"
)

// LedgerEntry represents the ledger_journal table - an append-only audit log
// of every state-changing operation, written in the same transaction as the
// change itself.
type LedgerEntry struct {
	// ID is an auto-incrementing sequence number for ordering and pagination
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// EntryType identifies the operation (mint, listed, listing_cancelled, sale, withdrawal)
	EntryType EntryType `gorm:"column:entry_type;not null;type:text"`
	// AssetID is the affected asset (nil for withdrawals)
	AssetID *uint64 `gorm:"column:asset_id;index:idx_ledger_journal_asset"`
	// Actor is the authenticated caller that performed the operation
	Actor string `gorm:"column:actor;not null;type:text;index:idx_ledger_journal_actor"`
	// Counterparty is the other identity involved, when there is one
	// (mint recipient, restricted buyer, seller)
	Counterparty *string `gorm:"column:counterparty;type:text"`
	// Amount is the payment or withdrawal amount, when there is one
	Amount *uint64 `gorm:"column:amount;type:bigint"`
	// Meta contains operation-specific details as JSON (e.g., royalty split)
	Meta datatypes.JSON `gorm:"column:meta;type:jsonb"`
	// CreatedAt is the timestamp when the operation was recorded
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the LedgerEntry model
func (LedgerEntry) TableName() string {
	return "ledger_journal"
}
