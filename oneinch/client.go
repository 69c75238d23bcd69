// Package oneinch quotes same-chain swaps through the 1inch
// aggregation router. The swap API returns ready-to-sign calldata, so
// executing is a single local broadcast.
package oneinch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	// NativeToken is the placeholder address for the chain's native gas token.
	NativeToken = "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"

	defaultBaseURL = "https://api.1inch.dev/swap/v6.0"
)

// SupportedChains maps blockchain ids to 1inch chain ids.
var SupportedChains = map[string]int64{
	"ETH":     1,
	"BSC":     56,
	"POLYGON": 137,
	"BASE":    8453,
	"ARB":     42161,
	"AVAX":    43114,
	"OP":      10,
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds a 1inch API client. A nil httpClient gets a
// 30s-timeout default.
func NewClient(apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// QuoteResult is the response from /quote.
type QuoteResult struct {
	DstAmount string `json:"dstAmount"`
	Gas       int64  `json:"gas"`
}

// SwapResult is the response from /swap, carrying the router calldata.
type SwapResult struct {
	DstAmount string `json:"dstAmount"`
	Tx        struct {
		From     string `json:"from"`
		To       string `json:"to"`
		Data     string `json:"data"`
		Value    string `json:"value"`
		Gas      int64  `json:"gas"`
		GasPrice string `json:"gasPrice"`
	} `json:"tx"`
}

// Quote asks for the expected output without building calldata.
func (c *Client) Quote(ctx context.Context, chainID int64, src, dst, amount string) (*QuoteResult, error) {
	params := url.Values{}
	params.Set("src", src)
	params.Set("dst", dst)
	params.Set("amount", amount)

	var result QuoteResult
	if err := c.get(ctx, fmt.Sprintf("%s/%d/quote?%s", c.baseURL, chainID, params.Encode()), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Swap builds router calldata for the swap.
func (c *Client) Swap(ctx context.Context, chainID int64, src, dst, amount, from, slippage string) (*SwapResult, error) {
	params := url.Values{}
	params.Set("src", src)
	params.Set("dst", dst)
	params.Set("amount", amount)
	params.Set("from", from)
	params.Set("origin", from)
	params.Set("slippage", slippage)

	var result SwapResult
	if err := c.get(ctx, fmt.Sprintf("%s/%d/swap?%s", c.baseURL, chainID, params.Encode()), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) get(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("1inch API returned %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding 1inch response: %w", err)
	}
	return nil
}
