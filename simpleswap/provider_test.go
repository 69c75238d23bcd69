package simpleswap

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
	tokenETH = swaps.TokenRef{Blockchain: "ETH", Symbol: "ETH", Decimals: 18}
	tokenBTC = swaps.TokenRef{Blockchain: "BTC", Symbol: "BTC", Decimals: 8}
)

type staticBook struct{}

func (staticBook) ReceiveAddress(ctx context.Context, token swaps.TokenRef) (string, error) {
	return "bc1qreceive", nil
}

func (staticBook) SendingAddress(ctx context.Context, token swaps.TokenRef) (string, error) {
	return "0x1111111111111111111111111111111111111111", nil
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	client := NewClient("test-key", nil)
	client.baseURL = ts.URL
	return NewProvider(client, staticBook{})
}

func TestSymbolLookup(t *testing.T) {
	sym, ok := Symbol(tokenBTC)
	require.True(t, ok)
	require.Equal(t, "btc", sym)

	sym, ok = Symbol(swaps.TokenRef{
		Blockchain: "ETH",
		Symbol:     "USDC",
		Contract:   "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		Decimals:   6,
	})
	require.True(t, ok, "contract lookup is case insensitive")
	require.Equal(t, "usdc", sym)

	_, ok = Symbol(swaps.TokenRef{Blockchain: "DOT", Symbol: "DOT", Decimals: 10})
	require.False(t, ok)
}

func TestFetchQuoteParsesEstimate(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "eth", r.URL.Query().Get("currency_from"))
		require.Equal(t, "btc", r.URL.Query().Get("currency_to"))
		require.Equal(t, "2", r.URL.Query().Get("amount"))
		json.NewEncoder(w).Encode("0.0833")
	})

	quote, err := p.FetchQuote(context.Background(), tokenETH, tokenBTC, decimal.NewFromInt(2), swaps.Settings{})
	require.NoError(t, err)
	require.True(t, quote.AmountOut.Equal(decimal.RequireFromString("0.0833")))
}

func TestFetchFinalQuoteCreatesExchange(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "bc1qreceive", body["address_to"])
		require.Equal(t, "0x1111111111111111111111111111111111111111", body["user_refund_address"])

		json.NewEncoder(w).Encode(Exchange{
			ID:          "order-42",
			Status:      "waiting",
			AddressFrom: "0x2222222222222222222222222222222222222222",
			AddressTo:   "bc1qreceive",
			AmountTo:    "0.0831",
		})
	})

	ranked := swaps.NewRankedQuote(p, swaps.Quote{
		TokenIn:   tokenETH,
		TokenOut:  tokenBTC,
		AmountIn:  decimal.NewFromInt(2),
		AmountOut: decimal.RequireFromString("0.0833"),
	})

	fq, err := p.FetchFinalQuote(context.Background(), ranked, swaps.Settings{})
	require.NoError(t, err)

	require.Equal(t, "order-42", fq.ProviderSwapID)
	require.Equal(t, "0x2222222222222222222222222222222222222222", fq.DepositAddress)
	require.True(t, fq.AmountOut.Equal(decimal.RequireFromString("0.0831")))

	payload, ok := fq.Payload.(*sendtx.EvmPayload)
	require.True(t, ok)
	require.Equal(t, "2000000000000000000", payload.Value.String(), "native ETH moves as tx value")
	require.Empty(t, payload.Data)
}

func TestFetchFinalQuoteRejectsBareExchange(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Exchange{Status: "waiting"})
	})

	ranked := swaps.NewRankedQuote(p, swaps.Quote{
		TokenIn:  tokenETH,
		TokenOut: tokenBTC,
		AmountIn: decimal.NewFromInt(1),
	})

	_, err := p.FetchFinalQuote(context.Background(), ranked, swaps.Settings{})
	require.Error(t, err)
}
