// Package resolver fetches, deduplicates and stores metadata documents for
// tokens and contracts. Fetches run on a bounded worker pool, duplicate
// in-flight requests for the same entity are coalesced, and transient
// failures are retried with capped exponential backoff. Every stored
// document is keyed by its content fingerprint, so identical payloads
// resolve to a single row no matter how many entities reference them.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"

	"github.com/tokengrid/evm-indexer/internal/adapter"
	"github.com/tokengrid/evm-indexer/internal/chain"
	"github.com/tokengrid/evm-indexer/internal/domain"
	"github.com/tokengrid/evm-indexer/internal/etherscan"
	"github.com/tokengrid/evm-indexer/internal/fingerprint"
	"github.com/tokengrid/evm-indexer/internal/logger"
	"github.com/tokengrid/evm-indexer/internal/store"
	"github.com/tokengrid/evm-indexer/internal/store/schema"
	"github.com/tokengrid/evm-indexer/internal/uri"
)

// ensBaseRegistrar is the ENS .eth registrar. Its tokens carry no on-chain
// URI; metadata is served by the ENS metadata service instead.
const ensBaseRegistrar = "0x57f1887a8bf19b14fc0df6fd9b2acc9af147ea85"

// ensMetadataService is the URL template of the ENS metadata service
const ensMetadataService = "https://metadata.ens.domains/mainnet/%s/%s"

// Config tunes the resolver's concurrency and retry budget
type Config struct {
	// MaxWorkers bounds the number of concurrent resolutions
	MaxWorkers int
	// RetryInitialInterval is the first backoff delay for transient fetch failures
	RetryInitialInterval time.Duration
	// RetryMaxElapsedTime caps the total time spent retrying one fetch
	RetryMaxElapsedTime time.Duration
}

// DefaultConfig returns the production retry and concurrency settings
func DefaultConfig() Config {
	return Config{
		MaxWorkers:           10,
		RetryInitialInterval: 1 * time.Second,
		RetryMaxElapsedTime:  30 * time.Second,
	}
}

// Resolver resolves metadata for tokens and contracts
//
//go:generate mockgen -source=resolver.go -destination=../mocks/resolver.go -package=mocks -mock_names=Resolver=MockResolver
type Resolver interface {
	// ResolveToken fetches and stores the metadata document for a token.
	// When tokenURI is nil the URI is taken from the stored token row, or
	// read from the contract as a last resort.
	ResolveToken(ctx context.Context, contract domain.Address, tokenID domain.TokenID, tokenURI *string) error

	// ResolveContract fetches the verified ABI and the name/symbol getters
	// for a contract and stores the results
	ResolveContract(ctx context.Context, contract domain.Address) error

	// Stop drains the worker pool
	Stop()
}

type resolver struct {
	store  store.Store
	uris   uri.Resolver
	http   adapter.HTTPClient
	chain  chain.Reader
	scan   etherscan.Client
	pool   pond.Pool
	flight singleflight.Group
	clock  adapter.Clock
	cfg    Config
}

// New creates a resolver with a bounded worker pool
func New(st store.Store, uris uri.Resolver, httpClient adapter.HTTPClient, chainReader chain.Reader, scan etherscan.Client, cfg Config) Resolver {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultConfig().MaxWorkers
	}
	return &resolver{
		store: st,
		uris:  uris,
		http:  httpClient,
		chain: chainReader,
		scan:  scan,
		pool:  pond.NewPool(cfg.MaxWorkers),
		clock: adapter.NewClock(),
		cfg:   cfg,
	}
}

func (r *resolver) Stop() {
	r.pool.StopAndWait()
}

// ResolveToken coalesces concurrent requests for the same token and runs the
// winning fetch on the worker pool
func (r *resolver) ResolveToken(ctx context.Context, contract domain.Address, tokenID domain.TokenID, tokenURI *string) error {
	key := "token/" + contract.String() + "/" + tokenID.String()
	_, err, _ := r.flight.Do(key, func() (interface{}, error) {
		return nil, r.pool.SubmitErr(func() error {
			return r.resolveToken(ctx, contract, tokenID, tokenURI)
		}).Wait()
	})
	return err
}

// ResolveContract coalesces concurrent requests for the same contract
func (r *resolver) ResolveContract(ctx context.Context, contract domain.Address) error {
	key := "contract/" + contract.String()
	_, err, _ := r.flight.Do(key, func() (interface{}, error) {
		return nil, r.pool.SubmitErr(func() error {
			return r.resolveContract(ctx, contract)
		}).Wait()
	})
	return err
}

func (r *resolver) resolveToken(ctx context.Context, contract domain.Address, tokenID domain.TokenID, tokenURI *string) error {
	token, err := r.store.GetToken(ctx, contract.String(), tokenID.String())
	if err != nil {
		return err
	}

	rawURI, err := r.tokenURI(ctx, contract, tokenID, tokenURI, token)
	if err != nil {
		return err
	}

	raw, err := r.fetchDocument(ctx, rawURI, tokenID)
	if err != nil {
		return err
	}

	fp := fingerprint.New(raw)
	record := &schema.MetadataRecord{
		Fingerprint: fp.String(),
		Raw:         raw,
	}
	if json.Valid(raw) {
		record.Parsed = datatypes.JSON(raw)
	}

	if err := r.store.UpsertMetadataRecord(ctx, record); err != nil {
		return err
	}
	if err := r.store.LinkTokenMetadata(ctx, contract.String(), tokenID.String(), fp.String(), &rawURI); err != nil {
		return err
	}

	logger.InfoCtx(ctx, "resolved token metadata",
		zap.String("contract", contract.String()),
		zap.String("token_id", tokenID.String()),
		zap.String("fingerprint", fp.String()))
	return nil
}

// tokenURI picks the metadata URI for a token: the explicit request value
// wins, then the stored row, then the contract's base URI template, then a
// direct contract read
func (r *resolver) tokenURI(ctx context.Context, contract domain.Address, tokenID domain.TokenID, requested *string, token *schema.Token) (string, error) {
	if contract.String() == ensBaseRegistrar {
		return fmt.Sprintf(ensMetadataService, contract, tokenID), nil
	}

	if requested != nil && *requested != "" {
		return *requested, nil
	}
	if token != nil && token.TokenURI != nil && *token.TokenURI != "" {
		return *token.TokenURI, nil
	}

	contractRow, err := r.store.GetContract(ctx, contract.String())
	if err != nil {
		return "", err
	}
	if contractRow != nil && contractRow.BaseURI != nil && *contractRow.BaseURI != "" {
		return baseTokenURI(*contractRow.BaseURI, tokenID), nil
	}

	standard := schema.StandardERC721
	if token != nil {
		standard = token.Standard
	}
	fetched, err := r.chain.TokenURI(ctx, contract, tokenID, standard)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read token uri: %v", domain.ErrResolutionFailed, err)
	}
	if fetched == "" {
		return "", fmt.Errorf("%w: contract reports no uri", domain.ErrMalformedURI)
	}
	return fetched, nil
}

// baseTokenURI builds a token URI from a contract-level base URI. Templates
// carrying the {id} placeholder pass through unchanged (the placeholder is
// expanded at fetch time); anything else gets the decimal token id appended,
// the ERC-721 convention.
func baseTokenURI(base string, tokenID domain.TokenID) string {
	if strings.Contains(base, "{id}") {
		return base
	}
	return base + tokenID.String()
}

// fetchDocument normalizes rawURI and retrieves the document bytes. Inline
// data URIs are decoded locally; everything else is fetched with retries.
func (r *resolver) fetchDocument(ctx context.Context, rawURI string, tokenID domain.TokenID) ([]byte, error) {
	expanded := uri.ExpandID(rawURI, tokenID)

	resolved, err := r.uris.Resolve(ctx, expanded)
	if err != nil {
		if errors.Is(err, domain.ErrMalformedURI) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrResolutionFailed, err)
	}

	if strings.HasPrefix(resolved, "data:") {
		return uri.DecodeData(resolved)
	}

	return r.fetchWithRetry(ctx, resolved)
}

// fetchWithRetry fetches url, retrying server errors and network failures
// with exponential backoff until the elapsed-time budget runs out. Client
// errors other than 429 are permanent.
func (r *resolver) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	operation := func() error {
		result, err := r.http.Fetch(ctx, url)
		if err != nil {
			return fmt.Errorf("failed to fetch document: %w", err)
		}

		switch {
		case result.OK():
			body = result.Body
			return nil
		case result.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("rate limited (429), retrying")
		case result.StatusCode >= 500:
			return fmt.Errorf("server error %d", result.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("unexpected status code %d", result.StatusCode))
		}
	}

	b := backoff.NewExponentialBackOff()
	b.Clock = r.clock
	if r.cfg.RetryInitialInterval > 0 {
		b.InitialInterval = r.cfg.RetryInitialInterval
	}
	b.MaxElapsedTime = r.cfg.RetryMaxElapsedTime

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrResolutionFailed, url, err)
	}
	return body, nil
}

func (r *resolver) resolveContract(ctx context.Context, contract domain.Address) error {
	// The first metadata request for an unseen contract materializes its row
	if err := r.store.CreateContract(ctx, &schema.Contract{Address: contract.String()}); err != nil {
		return err
	}

	var facts store.ContractFacts

	abiDoc, err := r.scan.ContractABI(ctx, contract)
	switch {
	case err == nil:
		fp, canonical, err := fingerprint.FromJSON(abiDoc)
		if err != nil {
			return fmt.Errorf("failed to fingerprint abi: %w", err)
		}
		if err := r.store.UpsertMetadataRecord(ctx, &schema.MetadataRecord{
			Fingerprint: fp.String(),
			Raw:         canonical,
			Parsed:      datatypes.JSON(canonical),
		}); err != nil {
			return err
		}
		fpStr := fp.String()
		facts.ABI = datatypes.JSON(canonical)
		facts.ABIFingerprint = &fpStr

	case errors.Is(err, domain.ErrContractNotVerified):
		// Terminal: the lookup will keep answering the same, so it is not
		// retried. Name and symbol can still come from the node.
		logger.InfoCtx(ctx, "contract source not verified",
			zap.String("contract", contract.String()))

	default:
		return fmt.Errorf("%w: abi lookup: %v", domain.ErrResolutionFailed, err)
	}

	if base, err := r.chain.ContractBaseURI(ctx, contract); err == nil && base != "" {
		facts.BaseURI = &base
	} else if err != nil {
		logger.DebugCtx(ctx, "base uri getter unavailable",
			zap.String("contract", contract.String()), zap.Error(err))
	}

	if name, err := r.chain.ContractName(ctx, contract); err == nil && name != "" {
		facts.Name = &name
	} else if err != nil {
		logger.DebugCtx(ctx, "name getter unavailable",
			zap.String("contract", contract.String()), zap.Error(err))
	}

	if symbol, err := r.chain.ContractSymbol(ctx, contract); err == nil && symbol != "" {
		facts.Symbol = &symbol
	} else if err != nil {
		logger.DebugCtx(ctx, "symbol getter unavailable",
			zap.String("contract", contract.String()), zap.Error(err))
	}

	if err := r.store.SetContractFacts(ctx, contract.String(), facts); err != nil {
		return err
	}

	logger.InfoCtx(ctx, "resolved contract facts",
		zap.String("contract", contract.String()),
		zap.Bool("verified", facts.ABIFingerprint != nil))
	return nil
}
