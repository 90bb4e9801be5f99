package dispatch

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/tokengrid/evm-indexer/internal/domain"
	"github.com/tokengrid/evm-indexer/internal/logger"
	"github.com/tokengrid/evm-indexer/internal/resolver"
)

// Status classifies the outcome of one request in a batch
type Status string

const (
	// StatusResolved means the metadata was fetched and stored
	StatusResolved Status = "resolved"
	// StatusInvalid means the request item failed validation; nothing was done
	StatusInvalid Status = "invalid"
	// StatusMalformed means the announced URI can never be fetched
	StatusMalformed Status = "malformed_uri"
	// StatusNotVerified means the contract has no published source
	StatusNotVerified Status = "not_verified"
	// StatusFailed means external fetches exhausted their retry budget;
	// the request may be re-sent later
	StatusFailed Status = "failed"
)

// Outcome reports what happened to one request of a batch
type Outcome struct {
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Dispatcher routes decoded requests to the metadata resolver and collects
// per-item outcomes. Items are independent: a failing item never aborts the
// rest of its batch.
type Dispatcher struct {
	resolver resolver.Resolver
}

// NewDispatcher creates a dispatcher backed by the given resolver
func NewDispatcher(r resolver.Resolver) *Dispatcher {
	return &Dispatcher{resolver: r}
}

// Dispatch processes every request and returns one outcome per request, in
// order
func (d *Dispatcher) Dispatch(ctx context.Context, requests []Request) []Outcome {
	outcomes := make([]Outcome, len(requests))
	for i := range requests {
		outcomes[i] = d.dispatchOne(ctx, &requests[i])
	}
	return outcomes
}

func (d *Dispatcher) dispatchOne(ctx context.Context, request *Request) Outcome {
	if err := request.Validate(); err != nil {
		return Outcome{Status: StatusInvalid, Error: err.Error()}
	}

	var err error
	if request.Contract != nil {
		contract := domain.MustAddress(request.Contract.Address)
		err = d.resolver.ResolveContract(ctx, contract)
	} else {
		contract := domain.MustAddress(request.Token.Address)
		tokenID, _ := domain.NewTokenID(request.Token.TokenID)
		err = d.resolver.ResolveToken(ctx, contract, tokenID, request.Token.TokenURI)
	}

	return classify(ctx, err)
}

// classify maps a resolver error to the outcome reported to the caller
func classify(ctx context.Context, err error) Outcome {
	switch {
	case err == nil:
		return Outcome{Status: StatusResolved}
	case errors.Is(err, domain.ErrMalformedURI):
		return Outcome{Status: StatusMalformed, Error: err.Error()}
	case errors.Is(err, domain.ErrContractNotVerified):
		return Outcome{Status: StatusNotVerified, Error: err.Error()}
	default:
		logger.WarnCtx(ctx, "metadata request failed", zap.Error(err))
		return Outcome{Status: StatusFailed, Error: err.Error()}
	}
}
