package schema

import (
	"time"
)

// EscrowBalance represents the escrow_balances table - funds owed to an
// identity, held by the engine until explicitly withdrawn. Increased only by
// sale settlement, zeroed only by a full withdrawal.
type EscrowBalance struct {
	// Identity is the address the balance is owed to
	Identity string `gorm:"column:identity;primaryKey;type:text"`
	// Amount is the accumulated amount in the smallest payment unit
	Amount uint64 `gorm:"column:amount;not null;default:0;type:bigint"`
	// UpdatedAt is the timestamp when this balance was last changed
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the EscrowBalance model
func (EscrowBalance) TableName() string {
	return "escrow_balances"
}
