package store

import (
	"context"

	"gorm.io/datatypes"

	"github.com/tokengrid/evm-indexer/internal/store/schema"
)

// ContractFacts are the asynchronously resolved contract-level fields.
// Nil fields leave the stored value untouched; non-nil fields only fill
// columns that are still empty (facts are written once, never clobbered).
type ContractFacts struct {
	Name           *string
	Symbol         *string
	Decimals       *uint8
	BaseURI        *string
	ABI            datatypes.JSON
	ABIFingerprint *string
}

// Store defines the interface for database operations.
//
// All writes are idempotent: token and approval upserts are guarded by the
// provenance columns (an update conditioned on the stored provenance being
// older), creations use insert-if-absent. Concurrent writers to the same
// key race safely to the newest-provenance outcome.
type Store interface {
	// GetToken retrieves a token by its (contract, token id) key
	GetToken(ctx context.Context, contract, tokenID string) (*schema.Token, error)
	// GetContract retrieves a contract by address
	GetContract(ctx context.Context, address string) (*schema.Contract, error)
	// GetBalance retrieves an owner's balance for an ERC-1155 token
	GetBalance(ctx context.Context, contract, tokenID, owner string) (*schema.Balance, error)
	// GetBalances retrieves all balances for a token
	GetBalances(ctx context.Context, contract, tokenID string) ([]schema.Balance, error)
	// GetApprovalForAll retrieves an operator approval row
	GetApprovalForAll(ctx context.Context, contract, owner, operator string) (*schema.ApprovalForAll, error)
	// GetMetadataRecord retrieves a metadata record by fingerprint
	GetMetadataRecord(ctx context.Context, fp string) (*schema.MetadataRecord, error)

	// SaveToken upserts a token row, guarded by provenance ordering.
	// Returns domain.ErrStaleEvent when the stored row already carries
	// newer-or-equal provenance.
	SaveToken(ctx context.Context, token *schema.Token) error
	// SaveTokenWithBalances atomically applies a token upsert and the final
	// balance values computed for an ERC-1155 transfer. Zero-quantity
	// balances are deleted. Rolls back entirely on a stale token row.
	SaveTokenWithBalances(ctx context.Context, token *schema.Token, balances []schema.Balance) error
	// SaveApprovalForAll upserts an operator approval with the same
	// provenance-ordering rule
	SaveApprovalForAll(ctx context.Context, approval *schema.ApprovalForAll) error
	// CreateContract inserts a contract row if absent; existing rows are
	// never modified (creation is a one-time fact)
	CreateContract(ctx context.Context, contract *schema.Contract) error
	// SaveBlock records a block, ignoring duplicates
	SaveBlock(ctx context.Context, block *schema.Block) error
	// SaveTransaction records a transaction, ignoring duplicates
	SaveTransaction(ctx context.Context, tx *schema.Transaction) error

	// UpsertMetadataRecord stores a metadata document keyed by its content
	// fingerprint. Inserting an already-present fingerprint is a no-op:
	// content is immutable under a correct fingerprinter, so concurrent
	// upserts of the same fingerprint converge to one row.
	UpsertMetadataRecord(ctx context.Context, record *schema.MetadataRecord) error
	// LinkTokenMetadata points a token row at a metadata record and
	// optionally records the URI the document was fetched from
	LinkTokenMetadata(ctx context.Context, contract, tokenID, fp string, tokenURI *string) error
	// SetContractFacts fills the resolved contract-level fields that are
	// still empty
	SetContractFacts(ctx context.Context, address string, facts ContractFacts) error
}
