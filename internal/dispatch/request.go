// Package dispatch decodes inbound metadata requests and fans them out to
// the resolver, and consumes the on-chain event stream into the reducer.
package dispatch

import (
	"bytes"
	"encoding/json"

	"github.com/tokengrid/evm-indexer/internal/domain"
)

// ContractRequest asks for the facts of a single contract to be resolved
type ContractRequest struct {
	Address string `json:"address"`
}

// TokenRequest asks for the metadata of a single token to be resolved.
// TokenURI is optional; when present it overrides the stored URI.
type TokenRequest struct {
	Address  string  `json:"address"`
	TokenID  string  `json:"token_id"`
	TokenURI *string `json:"token_uri,omitempty"`
}

// Request is the tagged union carried by the callback payload: exactly one
// of Contract or Token is set
type Request struct {
	Contract *ContractRequest `json:"contract,omitempty"`
	Token    *TokenRequest    `json:"token,omitempty"`
}

// Validate checks the union shape and the embedded identifiers
func (r *Request) Validate() error {
	switch {
	case r.Contract != nil && r.Token != nil:
		return domain.NewDecodeError("request carries both contract and token")
	case r.Contract != nil:
		if _, err := domain.NewAddress(r.Contract.Address); err != nil {
			return domain.NewDecodeError("invalid contract address: %v", err)
		}
		return nil
	case r.Token != nil:
		if _, err := domain.NewAddress(r.Token.Address); err != nil {
			return domain.NewDecodeError("invalid token contract address: %v", err)
		}
		if _, err := domain.NewTokenID(r.Token.TokenID); err != nil {
			return domain.NewDecodeError("invalid token id: %v", err)
		}
		return nil
	default:
		return domain.NewDecodeError("request carries neither contract nor token")
	}
}

// DecodeRequests parses a callback payload holding either a single request
// object or an array of them. A payload that fails to parse as either shape
// is a DecodeError; per-item validation happens later so one bad item does
// not reject its batch.
func DecodeRequests(payload []byte) ([]Request, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, domain.NewDecodeError("empty payload")
	}

	if trimmed[0] == '[' {
		var requests []Request
		if err := json.Unmarshal(trimmed, &requests); err != nil {
			return nil, domain.NewDecodeError("invalid request array: %v", err)
		}
		if len(requests) == 0 {
			return nil, domain.NewDecodeError("empty request array")
		}
		return requests, nil
	}

	var request Request
	if err := json.Unmarshal(trimmed, &request); err != nil {
		return nil, domain.NewDecodeError("invalid request: %v", err)
	}
	return []Request{request}, nil
}
