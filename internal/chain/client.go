// Package chain reads contract facts directly from an EVM node. It is the
// fallback source for token URIs and the only source for name/symbol on
// contracts without a verified ABI.
package chain

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/tokengrid/evm-indexer/internal/adapter"
	"github.com/tokengrid/evm-indexer/internal/domain"
	"github.com/tokengrid/evm-indexer/internal/store/schema"
)

// The minimal read-only ABI fragments the reader calls. Parsed once; a parse
// failure here is a programming error.
var (
	tokenURIABI = mustParseABI(`[{"constant":true,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"tokenURI","outputs":[{"name":"","type":"string"}],"payable":false,"stateMutability":"view","type":"function"}]`)
	uriABI      = mustParseABI(`[{"constant":true,"inputs":[{"name":"id","type":"uint256"}],"name":"uri","outputs":[{"name":"","type":"string"}],"payable":false,"stateMutability":"view","type":"function"}]`)
	baseURIABI  = mustParseABI(`[{"constant":true,"inputs":[],"name":"baseURI","outputs":[{"name":"","type":"string"}],"payable":false,"stateMutability":"view","type":"function"}]`)
	nameABI     = mustParseABI(`[{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"payable":false,"stateMutability":"view","type":"function"}]`)
	symbolABI   = mustParseABI(`[{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"payable":false,"stateMutability":"view","type":"function"}]`)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// Reader performs read-only contract calls against an EVM node
//
//go:generate mockgen -source=client.go -destination=../mocks/chain.go -package=mocks -mock_names=Reader=MockChainReader
type Reader interface {
	// TokenURI returns the metadata URI for a token, calling tokenURI for
	// ERC-721 contracts and uri for ERC-1155
	TokenURI(ctx context.Context, contract domain.Address, tokenID domain.TokenID, standard schema.Standard) (string, error)

	// ContractBaseURI calls the optional baseURI getter
	ContractBaseURI(ctx context.Context, contract domain.Address) (string, error)

	// ContractName calls the optional name getter
	ContractName(ctx context.Context, contract domain.Address) (string, error)

	// ContractSymbol calls the optional symbol getter
	ContractSymbol(ctx context.Context, contract domain.Address) (string, error)

	// Close closes the underlying connection
	Close()
}

type reader struct {
	client adapter.EthClient
}

// NewReader creates a Reader over a dialed node connection
func NewReader(client adapter.EthClient) Reader {
	return &reader{client: client}
}

// callString packs a call against parsed, executes it and unpacks a single
// string return value
func (r *reader) callString(ctx context.Context, contract domain.Address, parsed abi.ABI, method string, args ...interface{}) (string, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return "", fmt.Errorf("failed to pack data: %w", err)
	}

	to := contract.Common()
	result, err := r.client.CallContract(ctx, ethereum.CallMsg{
		To:   &to,
		Data: data,
	}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to call contract: %w", err)
	}

	var out string
	if err := parsed.UnpackIntoInterface(&out, method, result); err != nil {
		return "", fmt.Errorf("failed to unpack result: %w", err)
	}
	return out, nil
}

func (r *reader) TokenURI(ctx context.Context, contract domain.Address, tokenID domain.TokenID, standard schema.Standard) (string, error) {
	id := tokenID.BigInt()
	if id == nil {
		return "", fmt.Errorf("invalid token id: %s", tokenID)
	}

	if standard == schema.StandardERC1155 {
		return r.callString(ctx, contract, uriABI, "uri", id)
	}
	return r.callString(ctx, contract, tokenURIABI, "tokenURI", id)
}

func (r *reader) ContractBaseURI(ctx context.Context, contract domain.Address) (string, error) {
	return r.callString(ctx, contract, baseURIABI, "baseURI")
}

func (r *reader) ContractName(ctx context.Context, contract domain.Address) (string, error) {
	return r.callString(ctx, contract, nameABI, "name")
}

func (r *reader) ContractSymbol(ctx context.Context, contract domain.Address) (string, error) {
	return r.callString(ctx, contract, symbolABI, "symbol")
}

func (r *reader) Close() {
	r.client.Close()
}
