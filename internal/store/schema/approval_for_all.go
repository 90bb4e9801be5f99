package schema

import (
	"time"

	"github.com/tokengrid/evm-indexer/internal/domain"
)

// ApprovalForAll represents the approvals_for_all table - operator approvals
// keyed by (contract, owner, operator). Upserted with last-writer-by-
// provenance-order semantics.
type ApprovalForAll struct {
	// ContractAddress is the token contract address (lowercase hex)
	ContractAddress string `gorm:"column:contract_address;primaryKey;type:text"`
	// Owner is the address granting or revoking the approval
	Owner string `gorm:"column:owner;primaryKey;type:text"`
	// Operator is the address the approval applies to
	Operator string `gorm:"column:operator;primaryKey;type:text"`
	// Approved is the current approval state
	Approved bool `gorm:"column:approved;not null"`
	// LastUpdateBlock is the block of the newest applied approval event
	LastUpdateBlock uint64 `gorm:"column:last_update_block;not null;type:bigint"`
	// LastUpdateLogIndex is the log index of the newest applied approval event
	LastUpdateLogIndex uint64 `gorm:"column:last_update_log_index;not null;type:bigint"`
	// CreatedAt is the timestamp when this row was first indexed
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when this row was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the ApprovalForAll model
func (ApprovalForAll) TableName() string {
	return "approvals_for_all"
}

// EventApplied reports whether an event with provenance p has already been
// folded into this row
func (a *ApprovalForAll) EventApplied(p domain.Provenance) bool {
	return !p.NewerThan(domain.Provenance{
		BlockNumber: a.LastUpdateBlock,
		LogIndex:    a.LastUpdateLogIndex,
	})
}
