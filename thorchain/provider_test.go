package thorchain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/RaghavSood/multiswap/sendtx"
	"github.com/RaghavSood/multiswap/swaps"
)

var (
	tokenETH  = swaps.TokenRef{Blockchain: "ETH", Symbol: "ETH", Decimals: 18}
	tokenBTC  = swaps.TokenRef{Blockchain: "BTC", Symbol: "BTC", Decimals: 8}
	tokenSOL  = swaps.TokenRef{Blockchain: "SOL", Symbol: "SOL", Decimals: 9}
	tokenUSDC = swaps.TokenRef{Blockchain: "ETH", Symbol: "USDC", Contract: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", Decimals: 6}
)

type staticBook struct{}

func (staticBook) ReceiveAddress(ctx context.Context, token swaps.TokenRef) (string, error) {
	return "bc1qreceive", nil
}

func (staticBook) SendingAddress(ctx context.Context, token swaps.TokenRef) (string, error) {
	return "0xsender", nil
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	client := NewClient(nil)
	client.baseURL = ts.URL
	return NewProvider(client, staticBook{})
}

func TestSupports(t *testing.T) {
	p := NewProvider(NewClient(nil), staticBook{})

	require.True(t, p.Supports(tokenETH, tokenBTC))
	require.False(t, p.Supports(tokenBTC, tokenETH), "non-EVM source cannot deposit via router")
	require.False(t, p.Supports(tokenETH, tokenSOL), "unrouted destination chain")
	require.False(t, p.Supports(tokenUSDC, tokenBTC), "token deposits need approval, not offered")
	require.False(t, p.Supports(tokenETH, tokenETH))
}

func TestFetchQuoteConvertsAmounts(t *testing.T) {
	var gotQuery map[string]string
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"from_asset":  r.URL.Query().Get("from_asset"),
			"to_asset":    r.URL.Query().Get("to_asset"),
			"amount":      r.URL.Query().Get("amount"),
			"destination": r.URL.Query().Get("destination"),
		}
		json.NewEncoder(w).Encode(map[string]any{
			"expected_amount_out":      "6250000", // 0.0625 BTC in 1e8
			"outbound_delay_seconds":   600,
			"fees":                     map[string]any{"liquidity": "12000", "outbound": "30000"},
			"inbound_address":          "0xvault",
			"router":                   "0xrouter",
			"memo":                     "=:BTC.BTC:bc1qreceive",
			"expiry":                   0,
		})
	})

	quote, err := p.FetchQuote(context.Background(), tokenETH, tokenBTC, decimal.RequireFromString("1.5"), swaps.Settings{})
	require.NoError(t, err)

	require.Equal(t, "ETH.ETH", gotQuery["from_asset"])
	require.Equal(t, "BTC.BTC", gotQuery["to_asset"])
	require.Equal(t, "150000000", gotQuery["amount"], "1.5 ETH in 1e8 notation")
	require.Equal(t, "bc1qreceive", gotQuery["destination"])

	require.True(t, quote.AmountOut.Equal(decimal.RequireFromString("0.0625")))
	require.Equal(t, int64(600), quote.EstimatedSeconds)
}

func TestFetchFinalQuoteBuildsRouterDeposit(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"expected_amount_out":    "6250000",
			"outbound_delay_seconds": 600,
			"inbound_address":        "0x1c99C2961a7C6ae8Bff532FEe6611AB5a66a26d3",
			"router":                 "0xD37BbE5744D730a1d98d8DC97c42F0Ca46aD7146",
			"memo":                   "=:BTC.BTC:bc1qreceive",
			"expiry":                 0,
		})
	})

	ranked := swaps.NewRankedQuote(p, swaps.Quote{
		TokenIn:   tokenETH,
		TokenOut:  tokenBTC,
		AmountIn:  decimal.RequireFromString("1.5"),
		AmountOut: decimal.RequireFromString("0.0625"),
	})

	fq, err := p.FetchFinalQuote(context.Background(), ranked, swaps.Settings{Slippage: decimal.NewFromInt(1)})
	require.NoError(t, err)

	payload, ok := fq.Payload.(*sendtx.EvmPayload)
	require.True(t, ok)
	require.Equal(t, "0xD37BbE5744D730a1d98d8DC97c42F0Ca46aD7146", payload.To.Hex())
	require.Equal(t, "1500000000000000000", payload.Value.String())
	require.NotEmpty(t, payload.Data)
	require.Equal(t, int64(1), payload.ChainID.Int64())

	require.Equal(t, "0x1c99C2961a7C6ae8Bff532FEe6611AB5a66a26d3", fq.DepositAddress)
	require.True(t, fq.AmountOutMin.Equal(decimal.RequireFromString("0.061875")), "1% slippage off 0.0625")
}

func TestFetchFinalQuoteRejectsMissingRouting(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"expected_amount_out": "6250000",
		})
	})

	ranked := swaps.NewRankedQuote(p, swaps.Quote{
		TokenIn:  tokenETH,
		TokenOut: tokenBTC,
		AmountIn: decimal.NewFromInt(1),
	})

	_, err := p.FetchFinalQuote(context.Background(), ranked, swaps.Settings{})
	require.Error(t, err)
}
