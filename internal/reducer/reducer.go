// Package reducer folds decoded on-chain events into entity state.
//
// The transport delivers events at-least-once and in no particular order, so
// every mutation is guarded by provenance comparison: an event whose
// (block number, log index) is not strictly newer than the provenance stored
// for the same entity key is dropped without effect. Combined with the
// store's conditional upserts this gives exactly-once effective semantics.
package reducer

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/tokengrid/evm-indexer/internal/domain"
	"github.com/tokengrid/evm-indexer/internal/logger"
	"github.com/tokengrid/evm-indexer/internal/store"
	"github.com/tokengrid/evm-indexer/internal/store/schema"
)

// Reducer applies single decoded events to the entity store
type Reducer struct {
	store store.Store
}

// New creates a reducer backed by the given store
func New(st store.Store) *Reducer {
	return &Reducer{store: st}
}

// Apply routes a decoded event to its state-transition function.
//
// Stale replays return nil (silently dropped). Data-integrity anomalies are
// logged as warnings and do not fail the event. Storage errors are returned
// to the caller for retry and are never swallowed here.
func (r *Reducer) Apply(ctx context.Context, event *domain.ChainEvent) error {
	if err := r.recordProvenance(ctx, event); err != nil {
		return err
	}

	var err error
	switch event.Kind {
	case domain.EventKindTransfer:
		err = r.applyTransfer(ctx, event)
	case domain.EventKindApproval:
		err = r.applyApproval(ctx, event)
	case domain.EventKindApprovalForAll:
		err = r.applyApprovalForAll(ctx, event)
	case domain.EventKindURI:
		err = r.applyURI(ctx, event)
	case domain.EventKindContractCreated:
		err = r.applyContractCreated(ctx, event)
	default:
		return domain.NewDecodeError("unknown event kind %q", event.Kind)
	}

	if errors.Is(err, domain.ErrStaleEvent) {
		logger.DebugCtx(ctx, "dropping stale event",
			zap.String("kind", string(event.Kind)),
			zap.String("key", event.Key().String()),
			zap.String("provenance", event.Prov.String()))
		return nil
	}
	return err
}

// recordProvenance stores the block and transaction rows for the event.
// Both writes ignore duplicates, so redelivery is free.
func (r *Reducer) recordProvenance(ctx context.Context, event *domain.ChainEvent) error {
	if err := r.store.SaveBlock(ctx, &schema.Block{
		Number: event.Block.Number,
		Time:   event.Block.Time,
	}); err != nil {
		return err
	}

	tx := &schema.Transaction{
		BlockNumber: event.Prov.BlockNumber,
		Index:       event.Prov.TxIndex,
		Hash:        event.Tx.Hash,
		From:        event.Tx.From.String(),
	}
	if event.Tx.To != nil {
		to := event.Tx.To.String()
		tx.To = &to
	}
	return r.store.SaveTransaction(ctx, tx)
}

// ensureContract creates the contract row on first sight. The first event
// seen for a contract defines its creation provenance; existing rows are
// never touched.
func (r *Reducer) ensureContract(ctx context.Context, event *domain.ChainEvent) error {
	return r.store.CreateContract(ctx, &schema.Contract{
		Address:        event.Contract.String(),
		CreatedBlock:   event.Prov.BlockNumber,
		CreatedTxIndex: event.Prov.TxIndex,
	})
}

func (r *Reducer) applyTransfer(ctx context.Context, event *domain.ChainEvent) error {
	if event.TokenID == nil || event.From == nil || event.To == nil {
		return domain.NewDecodeError("transfer event missing token_id/from/to")
	}
	if event.Amount != nil {
		return r.applyTransferUnits(ctx, event)
	}
	return r.applyTransferNFT(ctx, event)
}

// applyTransferNFT handles ERC-721 transfers, including the zero-address
// mint and burn special cases
func (r *Reducer) applyTransferNFT(ctx context.Context, event *domain.ChainEvent) error {
	if err := r.ensureContract(ctx, event); err != nil {
		return err
	}

	key := event.Key()
	token, err := r.store.GetToken(ctx, key.Contract.String(), key.TokenID.String())
	if err != nil {
		return err
	}

	isMint := event.From.IsZero()
	if token != nil {
		if token.EventApplied(event.Prov) {
			return domain.ErrStaleEvent
		}
		if isMint {
			if !token.Burned() {
				return fmt.Errorf("%w: token %s already minted at block %d",
					domain.ErrDuplicateMint, key, token.MintBlock)
			}
			// Re-mint of a burned token starts a fresh lifecycle: the burn
			// provenance is cleared and the mint facts move to this event
			token.BurnBlock = nil
			token.BurnTxIndex = nil
			token.Minter = event.Tx.From.String()
			token.MintBlock = event.Prov.BlockNumber
			token.MintTxIndex = event.Prov.TxIndex
		}
	} else {
		if !isMint {
			// A transfer for a token we never saw minted. The upstream
			// stream may have started mid-history; initialize the row so
			// state converges, using this event as mint provenance.
			logger.WarnCtx(ctx, "transfer for unknown token, initializing",
				zap.String("key", key.String()),
				zap.String("provenance", event.Prov.String()))
		}
		token = newToken(event, schema.StandardERC721)
	}

	if event.To.IsZero() {
		// Burn: record burn provenance, keep the final owner for audit
		token.BurnBlock = &event.Prov.BlockNumber
		token.BurnTxIndex = &event.Prov.TxIndex
	} else {
		owner := event.To.String()
		token.Owner = &owner
	}

	// A transfer invalidates any single-token approval
	token.Approved = nil
	token.LastTransferBlock = &event.Prov.BlockNumber
	token.LastTransferTxIndex = &event.Prov.TxIndex
	token.SetProvenance(event.Prov)

	return r.store.SaveToken(ctx, token)
}

// applyTransferUnits handles ERC-1155 transfers: supply tracking on the
// token row and per-owner balance movements
func (r *Reducer) applyTransferUnits(ctx context.Context, event *domain.ChainEvent) error {
	amount, ok := new(big.Int).SetString(*event.Amount, 10)
	if !ok || amount.Sign() < 0 {
		return domain.NewDecodeError("invalid transfer amount %q", *event.Amount)
	}

	if err := r.ensureContract(ctx, event); err != nil {
		return err
	}

	key := event.Key()
	token, err := r.store.GetToken(ctx, key.Contract.String(), key.TokenID.String())
	if err != nil {
		return err
	}
	if token != nil {
		if token.EventApplied(event.Prov) {
			return domain.ErrStaleEvent
		}
	} else {
		token = newToken(event, schema.StandardERC1155)
		supply := "0"
		token.TotalSupply = &supply
	}

	// Supply moves on the zero-address edges
	supply := parseQuantity(token.TotalSupply)
	if event.From.IsZero() {
		supply.Add(supply, amount)
	}
	if event.To.IsZero() {
		supply.Sub(supply, amount)
		if supply.Sign() < 0 {
			logger.WarnCtx(ctx, "burn exceeds recorded supply, clamping",
				zap.String("key", key.String()),
				zap.String("amount", amount.String()))
			supply.SetInt64(0)
		}
	}
	supplyStr := supply.String()
	token.TotalSupply = &supplyStr
	token.SetProvenance(event.Prov)

	var balances []schema.Balance
	if !event.From.IsZero() {
		debited, err := r.debitBalance(ctx, key, *event.From, amount)
		if err != nil {
			return err
		}
		balances = append(balances, *debited)
	}
	if !event.To.IsZero() {
		credited, err := r.creditBalance(ctx, key, *event.To, amount)
		if err != nil {
			return err
		}
		balances = append(balances, *credited)
	}

	return r.store.SaveTokenWithBalances(ctx, token, balances)
}

// debitBalance subtracts amount from the sender's balance, clamping at zero.
// An insufficient balance means the event stream implied an impossible prior
// state; it is reported as a warning and processing continues.
func (r *Reducer) debitBalance(ctx context.Context, key domain.TokenKey, owner domain.Address, amount *big.Int) (*schema.Balance, error) {
	balance, err := r.store.GetBalance(ctx, key.Contract.String(), key.TokenID.String(), owner.String())
	if err != nil {
		return nil, err
	}
	if balance == nil {
		balance = &schema.Balance{
			ContractAddress: key.Contract.String(),
			TokenID:         key.TokenID.String(),
			Owner:           owner.String(),
			Quantity:        "0",
		}
	}

	held, _ := new(big.Int).SetString(balance.Quantity, 10)
	if held == nil {
		held = new(big.Int)
	}
	next := new(big.Int).Sub(held, amount)
	if next.Sign() < 0 {
		logger.WarnCtx(ctx, "debit exceeds held balance, clamping to zero",
			zap.String("key", key.String()),
			zap.String("owner", owner.String()),
			zap.String("held", held.String()),
			zap.String("amount", amount.String()),
			zap.Error(domain.ErrInsufficientBalance))
		next.SetInt64(0)
	}

	balance.Quantity = next.String()
	return balance, nil
}

// creditBalance adds amount to the recipient's balance, creating the row on
// first credit
func (r *Reducer) creditBalance(ctx context.Context, key domain.TokenKey, owner domain.Address, amount *big.Int) (*schema.Balance, error) {
	balance, err := r.store.GetBalance(ctx, key.Contract.String(), key.TokenID.String(), owner.String())
	if err != nil {
		return nil, err
	}
	if balance == nil {
		balance = &schema.Balance{
			ContractAddress: key.Contract.String(),
			TokenID:         key.TokenID.String(),
			Owner:           owner.String(),
			Quantity:        "0",
		}
	}

	held, _ := new(big.Int).SetString(balance.Quantity, 10)
	if held == nil {
		held = new(big.Int)
	}
	balance.Quantity = new(big.Int).Add(held, amount).String()
	return balance, nil
}

func (r *Reducer) applyApproval(ctx context.Context, event *domain.ChainEvent) error {
	if event.TokenID == nil || event.Approved == nil {
		return domain.NewDecodeError("approval event missing token_id/approved")
	}

	if err := r.ensureContract(ctx, event); err != nil {
		return err
	}

	key := event.Key()
	token, err := r.store.GetToken(ctx, key.Contract.String(), key.TokenID.String())
	if err != nil {
		return err
	}
	if token != nil {
		if token.EventApplied(event.Prov) {
			return domain.ErrStaleEvent
		}
	} else {
		token = newToken(event, schema.StandardERC721)
	}

	if event.Approved.IsZero() {
		token.Approved = nil
	} else {
		approved := event.Approved.String()
		token.Approved = &approved
	}
	token.SetProvenance(event.Prov)

	return r.store.SaveToken(ctx, token)
}

func (r *Reducer) applyApprovalForAll(ctx context.Context, event *domain.ChainEvent) error {
	if event.Owner == nil || event.Operator == nil || event.ApprovedAll == nil {
		return domain.NewDecodeError("approval_for_all event missing owner/operator/approved")
	}

	if err := r.ensureContract(ctx, event); err != nil {
		return err
	}

	existing, err := r.store.GetApprovalForAll(ctx,
		event.Contract.String(), event.Owner.String(), event.Operator.String())
	if err != nil {
		return err
	}
	if existing != nil && existing.EventApplied(event.Prov) {
		return domain.ErrStaleEvent
	}

	return r.store.SaveApprovalForAll(ctx, &schema.ApprovalForAll{
		ContractAddress:    event.Contract.String(),
		Owner:              event.Owner.String(),
		Operator:           event.Operator.String(),
		Approved:           *event.ApprovedAll,
		LastUpdateBlock:    event.Prov.BlockNumber,
		LastUpdateLogIndex: event.Prov.LogIndex,
	})
}

// applyURI records an announced token_uri change (ERC-1155 URI event)
func (r *Reducer) applyURI(ctx context.Context, event *domain.ChainEvent) error {
	if event.TokenID == nil || event.URI == nil {
		return domain.NewDecodeError("uri event missing token_id/uri")
	}

	if err := r.ensureContract(ctx, event); err != nil {
		return err
	}

	key := event.Key()
	token, err := r.store.GetToken(ctx, key.Contract.String(), key.TokenID.String())
	if err != nil {
		return err
	}
	if token != nil {
		if token.EventApplied(event.Prov) {
			return domain.ErrStaleEvent
		}
	} else {
		token = newToken(event, schema.StandardERC1155)
		supply := "0"
		token.TotalSupply = &supply
	}

	token.TokenURI = event.URI
	token.SetProvenance(event.Prov)

	return r.store.SaveToken(ctx, token)
}

func (r *Reducer) applyContractCreated(ctx context.Context, event *domain.ChainEvent) error {
	contract := &schema.Contract{
		Address:        event.Contract.String(),
		Name:           event.Name,
		Symbol:         event.Symbol,
		Decimals:       event.Decimals,
		CreatedBlock:   event.Prov.BlockNumber,
		CreatedTxIndex: event.Prov.TxIndex,
	}
	return r.store.CreateContract(ctx, contract)
}

// newToken initializes a token row from the first event seen for its key
func newToken(event *domain.ChainEvent, standard schema.Standard) *schema.Token {
	token := &schema.Token{
		ContractAddress: event.Contract.String(),
		TokenID:         event.TokenID.String(),
		Standard:        standard,
		Minter:          event.Tx.From.String(),
		MintBlock:       event.Prov.BlockNumber,
		MintTxIndex:     event.Prov.TxIndex,
	}
	return token
}

// parseQuantity parses a nullable decimal column, defaulting to zero
func parseQuantity(s *string) *big.Int {
	if s == nil {
		return new(big.Int)
	}
	n, ok := new(big.Int).SetString(*s, 10)
	if !ok {
		return new(big.Int)
	}
	return n
}
