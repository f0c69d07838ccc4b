package schema

import (
	"time"
)

// Asset represents the assets table - the registry of uniquely numbered
// items, each with exactly one owner. Ids are assigned sequentially from 0
// by the store and never reused; assets are never destroyed.
type Asset struct {
	// ID is the sequential asset identifier (assigned by the store, not the database)
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement:false"`
	// Owner is the current owner's address
	Owner string `gorm:"column:owner;not null;type:text;index:idx_assets_owner"`
	// CreatedAt is the timestamp when the asset was minted
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Asset model
func (Asset) TableName() string {
	return "assets"
}
