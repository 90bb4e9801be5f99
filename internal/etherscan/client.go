// Package etherscan looks up verified contract ABIs from the Etherscan API
package etherscan

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/tokengrid/evm-indexer/internal/adapter"
	"github.com/tokengrid/evm-indexer/internal/domain"
)

// DefaultBaseURL is the Etherscan mainnet API endpoint
const DefaultBaseURL = "https://api.etherscan.io/api"

// notVerifiedResult is the result string Etherscan returns for contracts
// without published source code
const notVerifiedResult = "Contract source code not verified"

// Client fetches contract facts from the Etherscan contract API
//
//go:generate mockgen -source=client.go -destination=../mocks/etherscan.go -package=mocks -mock_names=Client=MockEtherscanClient
type Client interface {
	// ContractABI returns the verified ABI document for a contract.
	// Unverified contracts fail with domain.ErrContractNotVerified, which is
	// terminal and must not be retried.
	ContractABI(ctx context.Context, address domain.Address) (json.RawMessage, error)
}

// apiResponse is the Etherscan envelope. Status is "1" on success and "0"
// on failure, with the detail in Result.
type apiResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

type client struct {
	http    adapter.HTTPClient
	baseURL string
	apiKey  string
}

// New creates an Etherscan client. An empty baseURL selects the mainnet
// endpoint.
func New(httpClient adapter.HTTPClient, baseURL, apiKey string) Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &client{
		http:    httpClient,
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

func (c *client) ContractABI(ctx context.Context, address domain.Address) (json.RawMessage, error) {
	query := url.Values{}
	query.Set("module", "contract")
	query.Set("action", "getabi")
	query.Set("address", address.String())
	if c.apiKey != "" {
		query.Set("apikey", c.apiKey)
	}

	var resp apiResponse
	if err := c.http.Get(ctx, c.baseURL+"?"+query.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("failed to query etherscan: %w", err)
	}

	if resp.Status != "1" {
		if strings.Contains(resp.Result, notVerifiedResult) {
			return nil, fmt.Errorf("%w: %s", domain.ErrContractNotVerified, address)
		}
		return nil, fmt.Errorf("etherscan lookup failed: %s: %s", resp.Message, resp.Result)
	}

	abi := json.RawMessage(resp.Result)
	if !json.Valid(abi) {
		return nil, fmt.Errorf("etherscan returned invalid ABI for %s", address)
	}
	return abi, nil
}
