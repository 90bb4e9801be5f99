// Package uri normalizes the token URIs announced on-chain into fetchable
// URLs. Content-addressed schemes (ipfs://, ar://) are rewritten through
// configured gateways, inline data: URIs are decoded locally, and the
// ERC-1155 {id} placeholder is substituted before any rewriting.
package uri

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/tokengrid/evm-indexer/internal/adapter"
	"github.com/tokengrid/evm-indexer/internal/domain"
	"github.com/tokengrid/evm-indexer/internal/logger"
)

// Config holds the gateway lists used for content-addressed schemes
type Config struct {
	// IPFSGateways is the list of IPFS gateways to try
	IPFSGateways []string
	// ArweaveGateways is the list of Arweave gateways to try
	ArweaveGateways []string
}

// Resolver rewrites token URIs to canonical fetchable URLs
//
//go:generate mockgen -source=resolver.go -destination=../mocks/uri_resolver.go -package=mocks -mock_names=Resolver=MockURIResolver
type Resolver interface {
	// Resolve rewrites uri to a canonical URL. Content-addressed schemes are
	// probed against the configured gateways with HEAD requests and the
	// first reachable gateway wins. URIs with no usable scheme fail with
	// domain.ErrMalformedURI, which is terminal.
	Resolve(ctx context.Context, uri string) (string, error)
}

type resolver struct {
	httpClient adapter.HTTPClient
	config     *Config
}

// NewResolver creates a gateway-backed URI resolver
func NewResolver(httpClient adapter.HTTPClient, config *Config) Resolver {
	return &resolver{
		httpClient: httpClient,
		config:     config,
	}
}

func (r *resolver) Resolve(ctx context.Context, uri string) (string, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return "", fmt.Errorf("%w: empty uri", domain.ErrMalformedURI)
	}

	// Inline documents need no fetching; returned unchanged for the caller
	// to decode
	if strings.HasPrefix(uri, "data:") {
		return uri, nil
	}

	if cid, ok := strings.CutPrefix(uri, "ipfs://"); ok {
		cid = strings.TrimPrefix(cid, "ipfs/")
		return r.race(ctx, r.config.IPFSGateways, "ipfs/"+cid, "ipfs")
	}

	if txID, ok := strings.CutPrefix(uri, "ar://"); ok {
		return r.race(ctx, r.config.ArweaveGateways, txID, "arweave")
	}

	// Gateway-form IPFS URLs are re-raced so a dead pinned gateway does not
	// take the document with it
	if parts := strings.SplitN(uri, "/ipfs/", 2); len(parts) == 2 && parts[1] != "" {
		return r.race(ctx, r.config.IPFSGateways, "ipfs/"+parts[1], "ipfs")
	}

	parsed, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMalformedURI, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", domain.ErrMalformedURI, parsed.Scheme)
	}

	return uri, nil
}

// race probes path against every gateway in parallel with HEAD requests and
// returns the URL of the first gateway that answers 200
func (r *resolver) race(ctx context.Context, gateways []string, path, kind string) (string, error) {
	if len(gateways) == 0 {
		return "", fmt.Errorf("no %s gateways configured", kind)
	}

	type result struct {
		url string
		err error
	}

	resultCh := make(chan result, len(gateways))
	var wg sync.WaitGroup

	for _, gateway := range gateways {
		wg.Add(1)
		go func(gw string) {
			defer wg.Done()

			probeURL := fmt.Sprintf("%s/%s", strings.TrimSuffix(gw, "/"), path)
			resp, err := r.httpClient.Head(ctx, probeURL)
			if err != nil {
				resultCh <- result{err: err}
				return
			}
			if err := resp.Body.Close(); err != nil {
				logger.WarnCtx(ctx, "failed to close response body", zap.Error(err), zap.String("url", probeURL))
			}

			if resp.StatusCode == http.StatusOK {
				resultCh <- result{url: probeURL}
			} else {
				resultCh <- result{err: fmt.Errorf("gateway returned status %d", resp.StatusCode)}
			}
		}(gateway)
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for res := range resultCh {
		if res.err == nil {
			logger.DebugCtx(ctx, "found working gateway",
				zap.String("kind", kind), zap.String("url", res.url))
			return res.url, nil
		}
	}

	return "", fmt.Errorf("no working %s gateway for %s", kind, path)
}

// ExpandID substitutes the ERC-1155 {id} placeholder with the token ID as
// 64 lowercase hex digits. URIs without the placeholder pass through
// unchanged.
func ExpandID(uri string, tokenID domain.TokenID) string {
	if !strings.Contains(uri, "{id}") {
		return uri
	}
	n := tokenID.BigInt()
	if n == nil {
		return uri
	}
	return strings.ReplaceAll(uri, "{id}", fmt.Sprintf("%064x", n))
}

// DecodeData extracts the payload of a data: URI. Base64 payloads are
// decoded; everything else is treated as percent-encoded text.
func DecodeData(uri string) ([]byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, fmt.Errorf("%w: not a data uri", domain.ErrMalformedURI)
	}

	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return nil, fmt.Errorf("%w: data uri missing payload", domain.ErrMalformedURI)
	}

	if strings.HasSuffix(meta, ";base64") {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid base64 payload: %v", domain.ErrMalformedURI, err)
		}
		return decoded, nil
	}

	decoded, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid payload encoding: %v", domain.ErrMalformedURI, err)
	}
	return []byte(decoded), nil
}
