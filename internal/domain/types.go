package domain

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ZeroAddress is the Ethereum zero address, used to mark mints and burns
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// Address is a lowercase hex-encoded 20-byte Ethereum address
type Address string

// NewAddress normalizes an address string to its lowercase hex form
func NewAddress(s string) (Address, error) {
	if !common.IsHexAddress(s) {
		return "", fmt.Errorf("invalid address: %q", s)
	}
	return Address(strings.ToLower(common.HexToAddress(s).Hex())), nil
}

// MustAddress normalizes an address and panics on invalid input.
// Intended for constants and tests.
func MustAddress(s string) Address {
	addr, err := NewAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// IsZero reports whether the address is the zero address
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Common returns the go-ethereum representation of the address
func (a Address) Common() common.Address {
	return common.HexToAddress(string(a))
}

func (a Address) String() string {
	return string(a)
}

// TokenID is a 256-bit unsigned token identifier, kept as a decimal string
// so it round-trips through JSON and numeric(78,0) columns without loss
type TokenID string

// NewTokenID validates a decimal token ID string
func NewTokenID(s string) (TokenID, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		return "", fmt.Errorf("invalid token id: %q", s)
	}
	return TokenID(n.String()), nil
}

// BigInt returns the token ID as a big integer
func (t TokenID) BigInt() *big.Int {
	n, _ := new(big.Int).SetString(string(t), 10)
	return n
}

func (t TokenID) String() string {
	return string(t)
}

// TokenKey identifies a single token within a contract
type TokenKey struct {
	Contract Address
	TokenID  TokenID
}

func (k TokenKey) String() string {
	return fmt.Sprintf("%s/%s", k.Contract, k.TokenID)
}

// Provenance identifies when an event was emitted on-chain. It is the
// logical timestamp used for conflict resolution: ordering is lexicographic
// on (block number, log index). The transaction index is informational and
// never participates in ordering.
type Provenance struct {
	BlockNumber uint64 `json:"block_number"`
	TxIndex     uint64 `json:"tx_index"`
	LogIndex    uint64 `json:"log_index"`
}

// NewerThan reports whether p is strictly newer than other
func (p Provenance) NewerThan(other Provenance) bool {
	if p.BlockNumber != other.BlockNumber {
		return p.BlockNumber > other.BlockNumber
	}
	return p.LogIndex > other.LogIndex
}

func (p Provenance) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p.BlockNumber, p.TxIndex, p.LogIndex)
}

// TxDetails carries the provenance facts of the transaction an event was
// emitted in
type TxDetails struct {
	Hash string  `json:"hash"`
	From Address `json:"from"`
	To   *Address `json:"to,omitempty"`
}

// BlockData carries the block-level facts inherited by its transactions
type BlockData struct {
	Number uint64    `json:"number"`
	Time   time.Time `json:"time"`
}
