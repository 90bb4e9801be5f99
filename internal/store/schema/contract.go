package schema

import (
	"time"

	"gorm.io/datatypes"
)

// Standard represents the token standard implemented by a contract
type Standard string

const (
	// StandardERC721 represents non-fungible tokens with a single owner per token
	StandardERC721 Standard = "erc721"
	// StandardERC1155 represents semi-fungible tokens tracked via per-owner balances
	StandardERC1155 Standard = "erc1155"
)

// Contract represents the contracts table - one row per token contract,
// created on the first-seen creation event or the first metadata request
// and never deleted. Creation provenance is a one-time fact: later creation
// events never overwrite it.
type Contract struct {
	// Address is the contract address (lowercase hex), primary key
	Address string `gorm:"column:address;primaryKey;type:text"`
	// Name is the contract name, populated asynchronously by the metadata resolver
	Name *string `gorm:"column:name;type:text"`
	// Symbol is the contract symbol, populated asynchronously by the metadata resolver
	Symbol *string `gorm:"column:symbol;type:text"`
	// Decimals is set for fungible contracts only
	Decimals *uint8 `gorm:"column:decimals;type:smallint"`
	// BaseURI is the token URI template for non-fungible collections
	BaseURI *string `gorm:"column:base_uri;type:text"`
	// CreatedBlock is the block the contract was first seen in
	CreatedBlock uint64 `gorm:"column:created_block;not null;type:bigint"`
	// CreatedTxIndex is the transaction index of the first-seen event
	CreatedTxIndex uint64 `gorm:"column:created_tx_index;not null;type:bigint"`
	// ABI is the verified contract ABI as fetched from the external lookup
	ABI datatypes.JSON `gorm:"column:abi;type:jsonb"`
	// ABIFingerprint references the metadata record holding the canonical ABI document
	ABIFingerprint *string `gorm:"column:abi_fingerprint;type:text"`
	// CreatedAt is the timestamp when this row was first indexed
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when this row was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Contract model
func (Contract) TableName() string {
	return "contracts"
}
