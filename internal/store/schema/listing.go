package schema

import (
	"time"
)

// Listing represents the listings table - at most one active offer per
// asset. A listing only exists while the current owner has an active offer;
// it is removed on cancel, on a completed sale, and on any ownership change.
type Listing struct {
	// AssetID references the asset being offered (one listing per asset)
	AssetID uint64 `gorm:"column:asset_id;primaryKey;autoIncrement:false"`
	// Price is the asking price in the smallest payment unit
	Price uint64 `gorm:"column:price;not null;type:bigint"`
	// Buyer is the restricted buyer's address (nil for open listings)
	Buyer *string `gorm:"column:buyer;type:text"`
	// CreatedAt is the timestamp when this listing was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when this listing was last replaced
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`

	// Associations
	Asset Asset `gorm:"foreignKey:AssetID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Listing model
func (Listing) TableName() string {
	return "listings"
}
