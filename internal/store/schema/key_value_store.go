package schema

// KeyValueStore represents the key_value_store table for storing internal
// counters (e.g., the next asset id)
type KeyValueStore struct {
	Key   string `gorm:"column:key;primaryKey;type:text"`
	Value string `gorm:"column:value;not null;type:text"`
}

// TableName specifies the table name for the KeyValueStore model
func (KeyValueStore) TableName() string {
	return "key_value_store"
}
