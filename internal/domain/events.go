package domain

// EventKind identifies the type of a decoded on-chain log event
type EventKind string

const (
	// EventKindTransfer covers ERC-721 Transfer and ERC-1155 TransferSingle.
	// Amount is nil for ERC-721.
	EventKindTransfer EventKind = "transfer"
	// EventKindApproval is the ERC-721 single-token Approval event
	EventKindApproval EventKind = "approval"
	// EventKindApprovalForAll is the operator approval event shared by both standards
	EventKindApprovalForAll EventKind = "approval_for_all"
	// EventKindURI is the ERC-1155 URI event announcing a token_uri change
	EventKindURI EventKind = "uri"
	// EventKindContractCreated marks the first-seen creation of a token contract
	EventKindContractCreated EventKind = "contract_created"
)

// ChainEvent is a decoded on-chain log event as delivered by the upstream
// indexer. The transport guarantees neither ordering nor exactly-once
// delivery; the reducer resolves conflicts with the Provenance field.
type ChainEvent struct {
	Kind     EventKind  `json:"kind"`
	Contract Address    `json:"contract"`
	Prov     Provenance `json:"provenance"`
	Tx       TxDetails  `json:"tx"`
	Block    BlockData  `json:"block"`

	// Transfer / Approval / URI fields
	TokenID *TokenID `json:"token_id,omitempty"`
	From    *Address `json:"from,omitempty"`
	To      *Address `json:"to,omitempty"`
	// Amount is the transferred quantity for ERC-1155 transfers, decimal
	// string. nil means an ERC-721 single-token transfer.
	Amount *string `json:"amount,omitempty"`

	// Approval fields
	Approved *Address `json:"approved,omitempty"`

	// ApprovalForAll fields
	Owner       *Address `json:"owner,omitempty"`
	Operator    *Address `json:"operator,omitempty"`
	ApprovedAll *bool    `json:"approved_all,omitempty"`

	// URI event payload
	URI *string `json:"uri,omitempty"`

	// ContractCreated fields
	Name     *string `json:"name,omitempty"`
	Symbol   *string `json:"symbol,omitempty"`
	Decimals *uint8  `json:"decimals,omitempty"`
}

// Key returns the token key for token-scoped events
func (e *ChainEvent) Key() TokenKey {
	var id TokenID
	if e.TokenID != nil {
		id = *e.TokenID
	}
	return TokenKey{Contract: e.Contract, TokenID: id}
}
