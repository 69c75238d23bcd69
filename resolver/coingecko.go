// Package resolver turns token references into fiat rates via the
// CoinGecko API, with aggressive caching so the quote loop never waits
// on a rate lookup twice.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/RaghavSood/multiswap/swaps"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "resolver").Logger()
}

const coingeckoBase = "https://api.coingecko.com/api/v3"

type cgSearchResult struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	MarketCapRank *int   `json:"market_cap_rank"`
}

type cgSearchResponse struct {
	Coins []cgSearchResult `json:"coins"`
}

// Rates resolves token fiat rates. Coin id lookups are cached for an
// hour, prices for a minute.
type Rates struct {
	apiKey     string
	httpClient *http.Client

	searchCache *Cache[[]cgSearchResult]
	priceCache  *Cache[decimal.Decimal]
}

// NewRates builds a rate source. A nil httpClient gets a 15s-timeout
// default.
func NewRates(apiKey string, httpClient *http.Client) *Rates {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Rates{
		apiKey:      apiKey,
		httpClient:  httpClient,
		searchCache: NewCache[[]cgSearchResult](1 * time.Hour),
		priceCache:  NewCache[decimal.Decimal](1 * time.Minute),
	}
}

// Rate returns the token's rate in the given fiat currency. The boolean
// is false when the token cannot be resolved; rate lookups must never
// fail a quote, so errors degrade to "no rate".
func (r *Rates) Rate(ctx context.Context, token swaps.TokenRef, currency string) (decimal.Decimal, bool) {
	key := strings.ToLower(token.Symbol + "/" + currency)
	price, err := r.priceCache.GetOrFetch(key, func() (decimal.Decimal, error) {
		coinID, err := r.coinID(ctx, token.Symbol)
		if err != nil {
			return decimal.Zero, err
		}
		return r.price(ctx, coinID, currency)
	})
	if err != nil {
		log.Debug().Err(err).Str("token", token.String()).Msg("rate lookup failed")
		return decimal.Zero, false
	}
	return price, true
}

// coinID finds the CoinGecko coin id for a symbol, preferring the
// highest market cap rank among exact symbol matches.
func (r *Rates) coinID(ctx context.Context, symbol string) (string, error) {
	coins, err := r.search(ctx, symbol)
	if err != nil {
		return "", err
	}

	best := bestMatch(coins, symbol)
	if best == nil {
		return "", fmt.Errorf("no coin found for symbol %q", symbol)
	}
	return best.ID, nil
}

func (r *Rates) search(ctx context.Context, symbol string) ([]cgSearchResult, error) {
	key := strings.ToLower(symbol)
	return r.searchCache.GetOrFetch(key, func() ([]cgSearchResult, error) {
		u := fmt.Sprintf("%s/search?query=%s&x_cg_demo_api_key=%s",
			coingeckoBase, url.QueryEscape(symbol), url.QueryEscape(r.apiKey))

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}

		resp, err := r.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("coingecko search: HTTP %d", resp.StatusCode)
		}

		var result cgSearchResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("coingecko search decode: %w", err)
		}

		return result.Coins, nil
	})
}

// price fetches the simple price for a coin id in one fiat currency.
func (r *Rates) price(ctx context.Context, coinID, currency string) (decimal.Decimal, error) {
	u := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=%s&x_cg_demo_api_key=%s",
		coingeckoBase, url.QueryEscape(coinID), url.QueryEscape(currency), url.QueryEscape(r.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, err
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("coingecko price: HTTP %d", resp.StatusCode)
	}

	var raw map[string]map[string]json.Number
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return decimal.Zero, fmt.Errorf("coingecko price decode: %w", err)
	}

	entry, ok := raw[coinID]
	if !ok {
		return decimal.Zero, fmt.Errorf("no price for coin %q", coinID)
	}
	value, ok := entry[strings.ToLower(currency)]
	if !ok {
		return decimal.Zero, fmt.Errorf("no %s price for coin %q", currency, coinID)
	}

	return decimal.NewFromString(value.String())
}

// bestMatch picks the coin with the best (lowest) market cap rank whose symbol matches.
func bestMatch(coins []cgSearchResult, symbol string) *cgSearchResult {
	var best *cgSearchResult
	for i := range coins {
		coin := &coins[i]
		if !strings.EqualFold(coin.Symbol, symbol) {
			continue
		}
		if coin.MarketCapRank == nil || *coin.MarketCapRank == 0 {
			if best == nil {
				best = coin
			}
			continue
		}
		if best == nil || best.MarketCapRank == nil || *coin.MarketCapRank < *best.MarketCapRank {
			best = coin
		}
	}
	return best
}
