package schema

import (
	"time"
)

// Balance represents the balances table - per-owner quantities for ERC-1155
// tokens. Rows are created on first credit and deleted when the balance
// reaches zero. Quantities are never negative.
type Balance struct {
	// ContractAddress is the token contract address (lowercase hex)
	ContractAddress string `gorm:"column:contract_address;primaryKey;type:text"`
	// TokenID is the token identifier within the contract
	TokenID string `gorm:"column:token_id;primaryKey;type:numeric(78,0)"`
	// Owner is the balance holder's address
	Owner string `gorm:"column:owner;primaryKey;type:text;index:idx_balances_owner"`
	// Quantity is the number of units held (decimal string, up to 78 digits)
	Quantity string `gorm:"column:quantity;not null;type:numeric(78,0)"`
	// CreatedAt is the timestamp when this balance was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when this balance was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Balance model
func (Balance) TableName() string {
	return "balances"
}
