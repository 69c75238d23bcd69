package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// StatusResponse is the tracking endpoint's view of a swap: an overall
// raw status, the output amount once known, and optional ordered legs.
type StatusResponse struct {
	Status    string           `json:"status"`
	AmountOut *decimal.Decimal `json:"amountOut"`
	Legs      []Leg            `json:"legs"`
}

// Client queries the external swap-tracking HTTP endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds a tracking client. A nil httpClient falls back to a
// default with a 30s timeout; callers can pass an instrumented client.
func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// Status fetches the current tracking state for the given request.
func (c *Client) Status(ctx context.Context, treq Request) (*StatusResponse, error) {
	params := url.Values{}
	params.Set("family", string(treq.Family))
	if treq.TxHash != "" {
		params.Set("hash", treq.TxHash)
	}
	if treq.DepositAddress != "" {
		params.Set("depositAddress", treq.DepositAddress)
	}
	if treq.ProviderSwapID != "" {
		params.Set("swapId", treq.ProviderSwapID)
	}
	if treq.SourceAddress != "" {
		params.Set("sourceAddress", treq.SourceAddress)
	}
	if treq.ChainID != "" {
		params.Set("chainId", treq.ChainID)
	}
	if treq.FromAsset != "" {
		params.Set("fromAsset", treq.FromAsset)
	}
	if treq.ToAsset != "" {
		params.Set("toAsset", treq.ToAsset)
	}

	reqURL := fmt.Sprintf("%s/status?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting swap status: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading status response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tracking status: %s: %s", resp.Status, body)
	}

	var result StatusResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parsing status response: %w", err)
	}

	return &result, nil
}
