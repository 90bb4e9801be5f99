package schema

import (
	"time"

	"github.com/tokengrid/evm-indexer/internal/domain"
)

// Token represents the tokens table - the current state of a single token.
// ERC-721 rows carry the owner directly; ERC-1155 ownership lives in the
// balances table and Owner stays nil. Burned tokens are retained with their
// historical fields for audit, never deleted.
type Token struct {
	// ContractAddress is the token contract address (lowercase hex)
	ContractAddress string `gorm:"column:contract_address;primaryKey;type:text"`
	// TokenID is the 256-bit token identifier as a decimal string
	TokenID string `gorm:"column:token_id;primaryKey;type:numeric(78,0)"`
	// Standard identifies the contract type this token belongs to
	Standard Standard `gorm:"column:standard;not null;type:text"`
	// Owner is the current owner for ERC-721 tokens (nil for ERC-1155)
	Owner *string `gorm:"column:owner;type:text;index:idx_tokens_owner"`
	// Minter is the sender of the transaction that minted the token
	Minter string `gorm:"column:minter;not null;type:text;index:idx_tokens_minter"`
	// TokenURI is the metadata URI announced on-chain, when known
	TokenURI *string `gorm:"column:token_uri;type:text"`
	// Approved is the single-token approved spender (ERC-721), cleared on transfer
	Approved *string `gorm:"column:approved;type:text"`
	// MetadataFingerprint references the deduplicated metadata record for this token
	MetadataFingerprint *string `gorm:"column:metadata_fingerprint;type:text"`
	// TotalSupply is the sum of all balances for ERC-1155 tokens
	TotalSupply *string `gorm:"column:total_supply;type:numeric(78,0)"`

	// MintBlock is the block of the first transfer from the zero address
	MintBlock uint64 `gorm:"column:mint_block;not null;type:bigint"`
	// MintTxIndex is the transaction index of the mint
	MintTxIndex uint64 `gorm:"column:mint_tx_index;not null;type:bigint"`
	// BurnBlock is set when the token is transferred to the zero address
	BurnBlock *uint64 `gorm:"column:burn_block;type:bigint"`
	// BurnTxIndex is the transaction index of the burn
	BurnTxIndex *uint64 `gorm:"column:burn_tx_index;type:bigint"`
	// LastTransferBlock is the block of the most recent ownership change
	LastTransferBlock *uint64 `gorm:"column:last_transfer_block;type:bigint"`
	// LastTransferTxIndex is the transaction index of the most recent ownership change
	LastTransferTxIndex *uint64 `gorm:"column:last_transfer_tx_index;type:bigint"`

	// LastUpdateBlock, LastUpdateTxIndex and LastUpdateLogIndex record the
	// provenance of the newest event applied to this row. Mutations with
	// older-or-equal (block, log index) provenance are no-ops.
	LastUpdateBlock    uint64 `gorm:"column:last_update_block;not null;type:bigint"`
	LastUpdateTxIndex  uint64 `gorm:"column:last_update_tx_index;not null;type:bigint"`
	LastUpdateLogIndex uint64 `gorm:"column:last_update_log_index;not null;type:bigint"`

	// CreatedAt is the timestamp when this row was first indexed
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when this row was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Token model
func (Token) TableName() string {
	return "tokens"
}

// Burned reports whether the token has been transferred to the zero address
func (t *Token) Burned() bool {
	return t.BurnBlock != nil
}

// Provenance returns the provenance of the newest event applied to this row
func (t *Token) Provenance() domain.Provenance {
	return domain.Provenance{
		BlockNumber: t.LastUpdateBlock,
		TxIndex:     t.LastUpdateTxIndex,
		LogIndex:    t.LastUpdateLogIndex,
	}
}

// SetProvenance records p as the newest applied event
func (t *Token) SetProvenance(p domain.Provenance) {
	t.LastUpdateBlock = p.BlockNumber
	t.LastUpdateTxIndex = p.TxIndex
	t.LastUpdateLogIndex = p.LogIndex
}

// EventApplied reports whether an event with provenance p has already been
// folded into this row (stale replay detection)
func (t *Token) EventApplied(p domain.Provenance) bool {
	return !p.NewerThan(t.Provenance())
}
