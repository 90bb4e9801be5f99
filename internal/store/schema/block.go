package schema

import (
	"time"
)

// Block represents the blocks table - block timestamps inherited by the
// transactions within. Immutable once written.
type Block struct {
	// Number is the block number, primary key
	Number uint64 `gorm:"column:number;primaryKey;type:bigint"`
	// Time is the block timestamp
	Time time.Time `gorm:"column:time;not null;type:timestamptz"`
}

// TableName specifies the table name for the Block model
func (Block) TableName() string {
	return "blocks"
}

// Transaction represents the transactions table - provenance records keyed
// by (block_number, index). Immutable once written; used purely as an
// ordering and audit key for events.
type Transaction struct {
	// BlockNumber is the block the transaction was included in
	BlockNumber uint64 `gorm:"column:block_number;primaryKey;type:bigint"`
	// Index is the position of the transaction within its block
	Index uint64 `gorm:"column:index;primaryKey;type:bigint"`
	// Hash is the transaction hash
	Hash string `gorm:"column:hash;not null;type:text;index:idx_transactions_hash"`
	// From is the transaction sender
	From string `gorm:"column:from_address;not null;type:text"`
	// To is the transaction recipient (nil for contract creations)
	To *string `gorm:"column:to_address;type:text"`
}

// TableName specifies the table name for the Transaction model
func (Transaction) TableName() string {
	return "transactions"
}
