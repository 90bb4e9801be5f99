package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tokengrid/evm-indexer/internal/domain"
	"github.com/tokengrid/evm-indexer/internal/store/schema"
)

// tokenProvenanceGuard is the DO UPDATE condition making token upserts
// last-writer-by-provenance: the stored row only changes when the incoming
// event is strictly newer on (block number, log index).
const tokenProvenanceGuard = "(tokens.last_update_block, tokens.last_update_log_index) < (excluded.last_update_block, excluded.last_update_log_index)"

const approvalProvenanceGuard = "(approvals_for_all.last_update_block, approvals_for_all.last_update_log_index) < (excluded.last_update_block, excluded.last_update_log_index)"

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// ConfigureConnectionPool configures the connection pool settings of the
// underlying *sql.DB, applying defaults for zero values:
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// GetToken retrieves a token by its (contract, token id) key
func (s *pgStore) GetToken(ctx context.Context, contract, tokenID string) (*schema.Token, error) {
	var token schema.Token
	err := s.db.WithContext(ctx).
		Where("contract_address = ? AND token_id = ?", contract, tokenID).
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, domain.NewStorageError("get token", err)
	}
	return &token, nil
}

// GetContract retrieves a contract by address
func (s *pgStore) GetContract(ctx context.Context, address string) (*schema.Contract, error) {
	var contract schema.Contract
	err := s.db.WithContext(ctx).Where("address = ?", address).First(&contract).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, domain.NewStorageError("get contract", err)
	}
	return &contract, nil
}

// GetBalance retrieves an owner's balance for an ERC-1155 token
func (s *pgStore) GetBalance(ctx context.Context, contract, tokenID, owner string) (*schema.Balance, error) {
	var balance schema.Balance
	err := s.db.WithContext(ctx).
		Where("contract_address = ? AND token_id = ? AND owner = ?", contract, tokenID, owner).
		First(&balance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, domain.NewStorageError("get balance", err)
	}
	return &balance, nil
}

// GetBalances retrieves all balances for a token
func (s *pgStore) GetBalances(ctx context.Context, contract, tokenID string) ([]schema.Balance, error) {
	var balances []schema.Balance
	err := s.db.WithContext(ctx).
		Where("contract_address = ? AND token_id = ?", contract, tokenID).
		Order("owner").
		Find(&balances).Error
	if err != nil {
		return nil, domain.NewStorageError("get balances", err)
	}
	return balances, nil
}

// GetApprovalForAll retrieves an operator approval row
func (s *pgStore) GetApprovalForAll(ctx context.Context, contract, owner, operator string) (*schema.ApprovalForAll, error) {
	var approval schema.ApprovalForAll
	err := s.db.WithContext(ctx).
		Where("contract_address = ? AND owner = ? AND operator = ?", contract, owner, operator).
		First(&approval).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, domain.NewStorageError("get approval_for_all", err)
	}
	return &approval, nil
}

// GetMetadataRecord retrieves a metadata record by fingerprint
func (s *pgStore) GetMetadataRecord(ctx context.Context, fp string) (*schema.MetadataRecord, error) {
	var record schema.MetadataRecord
	err := s.db.WithContext(ctx).Where("fingerprint = ?", fp).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, domain.NewStorageError("get metadata record", err)
	}
	return &record, nil
}

// tokenAssignmentColumns are the columns a guarded token upsert may rewrite.
// Mint provenance and minter are creation facts and stay untouched on
// conflict.
var tokenAssignmentColumns = []string{
	"owner", "token_uri", "approved", "total_supply",
	"burn_block", "burn_tx_index",
	"last_transfer_block", "last_transfer_tx_index",
	"last_update_block", "last_update_tx_index", "last_update_log_index",
	"updated_at",
}

func upsertToken(tx *gorm.DB, token *schema.Token) error {
	token.UpdatedAt = time.Now().UTC()
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "contract_address"}, {Name: "token_id"}},
		DoUpdates: clause.AssignmentColumns(tokenAssignmentColumns),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: tokenProvenanceGuard},
		}},
	}).Create(token)
	if res.Error != nil {
		return domain.NewStorageError("save token", res.Error)
	}
	// Zero rows means the guard rejected the write: a concurrent writer got
	// there first with newer-or-equal provenance.
	if res.RowsAffected == 0 {
		return domain.ErrStaleEvent
	}
	return nil
}

// SaveToken upserts a token row, guarded by provenance ordering
func (s *pgStore) SaveToken(ctx context.Context, token *schema.Token) error {
	return upsertToken(s.db.WithContext(ctx), token)
}

// SaveTokenWithBalances atomically applies a token upsert and the final
// balance values computed for an ERC-1155 transfer
func (s *pgStore) SaveTokenWithBalances(ctx context.Context, token *schema.Token, balances []schema.Balance) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertToken(tx, token); err != nil {
			// ErrStaleEvent rolls the balance writes back with the token
			return err
		}

		for i := range balances {
			balance := balances[i]
			if balance.Quantity == "0" {
				err := tx.Where(
					"contract_address = ? AND token_id = ? AND owner = ?",
					balance.ContractAddress, balance.TokenID, balance.Owner,
				).Delete(&schema.Balance{}).Error
				if err != nil {
					return domain.NewStorageError("delete balance", err)
				}
				continue
			}

			balance.UpdatedAt = time.Now().UTC()
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "contract_address"}, {Name: "token_id"}, {Name: "owner"}},
				DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
			}).Create(&balance).Error
			if err != nil {
				return domain.NewStorageError("upsert balance", err)
			}
		}

		return nil
	})
}

// SaveApprovalForAll upserts an operator approval, guarded by provenance
// ordering
func (s *pgStore) SaveApprovalForAll(ctx context.Context, approval *schema.ApprovalForAll) error {
	approval.UpdatedAt = time.Now().UTC()
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "contract_address"}, {Name: "owner"}, {Name: "operator"}},
		DoUpdates: clause.AssignmentColumns([]string{"approved", "last_update_block", "last_update_log_index", "updated_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: approvalProvenanceGuard},
		}},
	}).Create(approval)
	if res.Error != nil {
		return domain.NewStorageError("save approval_for_all", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrStaleEvent
	}
	return nil
}

// CreateContract inserts a contract row if absent
func (s *pgStore) CreateContract(ctx context.Context, contract *schema.Contract) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoNothing: true,
	}).Create(contract).Error
	if err != nil {
		return domain.NewStorageError("create contract", err)
	}
	return nil
}

// SaveBlock records a block, ignoring duplicates
func (s *pgStore) SaveBlock(ctx context.Context, block *schema.Block) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "number"}},
		DoNothing: true,
	}).Create(block).Error
	if err != nil {
		return domain.NewStorageError("save block", err)
	}
	return nil
}

// SaveTransaction records a transaction, ignoring duplicates
func (s *pgStore) SaveTransaction(ctx context.Context, tx *schema.Transaction) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "block_number"}, {Name: "index"}},
		DoNothing: true,
	}).Create(tx).Error
	if err != nil {
		return domain.NewStorageError("save transaction", err)
	}
	return nil
}

// UpsertMetadataRecord stores a metadata document keyed by its content
// fingerprint. An atomic insert-if-absent, not a read-then-write: concurrent
// upserts of the same fingerprint both succeed and converge to one row.
func (s *pgStore) UpsertMetadataRecord(ctx context.Context, record *schema.MetadataRecord) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "fingerprint"}},
		DoNothing: true,
	}).Create(record).Error
	if err != nil {
		return domain.NewStorageError("upsert metadata record", err)
	}
	return nil
}

// LinkTokenMetadata points a token row at a metadata record
func (s *pgStore) LinkTokenMetadata(ctx context.Context, contract, tokenID, fp string, tokenURI *string) error {
	updates := map[string]interface{}{
		"metadata_fingerprint": fp,
		"updated_at":           time.Now().UTC(),
	}
	if tokenURI != nil {
		updates["token_uri"] = *tokenURI
	}

	err := s.db.WithContext(ctx).Model(&schema.Token{}).
		Where("contract_address = ? AND token_id = ?", contract, tokenID).
		Updates(updates).Error
	if err != nil {
		return domain.NewStorageError("link token metadata", err)
	}
	return nil
}

// SetContractFacts fills the resolved contract-level fields that are still
// empty. Already-populated columns win: facts are written once.
func (s *pgStore) SetContractFacts(ctx context.Context, address string, facts ContractFacts) error {
	updates := map[string]interface{}{
		"updated_at": time.Now().UTC(),
	}
	if facts.Name != nil {
		updates["name"] = gorm.Expr("COALESCE(contracts.name, ?)", *facts.Name)
	}
	if facts.Symbol != nil {
		updates["symbol"] = gorm.Expr("COALESCE(contracts.symbol, ?)", *facts.Symbol)
	}
	if facts.Decimals != nil {
		updates["decimals"] = gorm.Expr("COALESCE(contracts.decimals, ?)", *facts.Decimals)
	}
	if facts.BaseURI != nil {
		updates["base_uri"] = gorm.Expr("COALESCE(contracts.base_uri, ?)", *facts.BaseURI)
	}
	if facts.ABI != nil {
		updates["abi"] = gorm.Expr("COALESCE(contracts.abi, ?)", facts.ABI)
	}
	if facts.ABIFingerprint != nil {
		updates["abi_fingerprint"] = gorm.Expr("COALESCE(contracts.abi_fingerprint, ?)", *facts.ABIFingerprint)
	}

	err := s.db.WithContext(ctx).Model(&schema.Contract{}).
		Where("address = ?", address).
		Updates(updates).Error
	if err != nil {
		return domain.NewStorageError("set contract facts", err)
	}
	return nil
}
