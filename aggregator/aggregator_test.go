package aggregator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/RaghavSood/multiswap/swaps"
)

var (
	tokenBTC  = swaps.TokenRef{Blockchain: "BTC", Symbol: "BTC", Decimals: 8}
	tokenETH  = swaps.TokenRef{Blockchain: "ETH", Symbol: "ETH", Decimals: 18}
	tokenUSDC = swaps.TokenRef{Blockchain: "ETH", Symbol: "USDC", Contract: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", Decimals: 6}
)

type stubProvider struct {
	id       string
	priority int
	supports bool

	mu        sync.Mutex
	amountOut decimal.Decimal
	err       error
	calls     int
}

func newStubProvider(id string, priority int, amountOut string) *stubProvider {
	return &stubProvider{
		id:        id,
		priority:  priority,
		supports:  true,
		amountOut: decimal.RequireFromString(amountOut),
	}
}

func (p *stubProvider) ID() string    { return p.id }
func (p *stubProvider) Title() string { return p.id }
func (p *stubProvider) Priority() int { return p.priority }

func (p *stubProvider) Supports(tokenIn, tokenOut swaps.TokenRef) bool { return p.supports }

func (p *stubProvider) FetchQuote(ctx context.Context, tokenIn, tokenOut swaps.TokenRef, amountIn decimal.Decimal, settings swaps.Settings) (*swaps.Quote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &swaps.Quote{
		TokenIn:   tokenIn,
		TokenOut:  tokenOut,
		AmountIn:  amountIn,
		AmountOut: p.amountOut,
	}, nil
}

func (p *stubProvider) FetchFinalQuote(ctx context.Context, quote swaps.RankedQuote, settings swaps.Settings) (*swaps.FinalQuote, error) {
	return nil, errors.New("not implemented")
}

func (p *stubProvider) TrackingFamily() swaps.TrackingFamily { return swaps.FamilyNone }

func (p *stubProvider) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *stubProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func settle(t *testing.T, s *Service) State {
	t.Helper()

	require.Eventually(t, func() bool {
		return !s.State().Quoting
	}, 2*time.Second, 5*time.Millisecond)
	return s.State()
}

func startQuoting(s *Service) {
	s.SetTokenIn(tokenBTC)
	s.SetTokenOut(tokenETH)
	s.SetAmountIn(decimal.NewFromInt(1))
}

func TestBestQuoteWins(t *testing.T) {
	a := newStubProvider("alpha", 1, "98")
	b := newStubProvider("beta", 2, "101")
	c := newStubProvider("gamma", 3, "99")
	s := New([]swaps.Provider{a, b, c})
	defer s.Close()

	startQuoting(s)
	state := settle(t, s)

	require.NoError(t, state.Err)
	require.Len(t, state.Quotes, 3)
	require.Equal(t, "beta", state.Quotes[0].Provider.ID())
	require.Equal(t, "gamma", state.Quotes[1].Provider.ID())
	require.Equal(t, "alpha", state.Quotes[2].Provider.ID())

	require.NotNil(t, state.Selected)
	require.Equal(t, "beta", state.Selected.Provider.ID())
	require.True(t, state.Selected.Quote.AmountOut.Equal(decimal.NewFromInt(101)))
}

func TestEqualQuotesResolveByPriority(t *testing.T) {
	low := newStubProvider("low-priority", 5, "100")
	high := newStubProvider("high-priority", 1, "100")
	s := New([]swaps.Provider{low, high})
	defer s.Close()

	startQuoting(s)
	state := settle(t, s)

	require.NotNil(t, state.Selected)
	require.Equal(t, "high-priority", state.Selected.Provider.ID())
}

func TestFailedProviderExcludedOthersSurvive(t *testing.T) {
	good := newStubProvider("good", 1, "50")
	bad := newStubProvider("bad", 2, "60")
	bad.setErr(errors.New("venue exploded"))
	s := New([]swaps.Provider{good, bad})
	defer s.Close()

	startQuoting(s)
	state := settle(t, s)

	require.NoError(t, state.Err)
	require.Len(t, state.Quotes, 1)
	require.Equal(t, "good", state.Quotes[0].Provider.ID())
}

func TestNoSupportedProvider(t *testing.T) {
	p := newStubProvider("alpha", 1, "100")
	p.supports = false
	s := New([]swaps.Provider{p})
	defer s.Close()

	startQuoting(s)
	state := settle(t, s)

	require.ErrorIs(t, state.Err, swaps.ErrNoSupportedProvider)
	require.Empty(t, state.Quotes)
	require.Zero(t, p.callCount())
}

func TestUnsupportedPairReportedBeforeAmount(t *testing.T) {
	p := newStubProvider("alpha", 1, "100")
	p.supports = false
	s := New([]swaps.Provider{p})
	defer s.Close()

	s.SetTokenIn(tokenBTC)
	s.SetTokenOut(tokenETH)

	state := settle(t, s)

	require.ErrorIs(t, state.Err, swaps.ErrNoSupportedProvider)
	require.Zero(t, p.callCount())
}

func TestAllProvidersFailRouteNotFound(t *testing.T) {
	a := newStubProvider("alpha", 1, "100")
	a.setErr(errors.New("pair disabled"))
	b := newStubProvider("beta", 2, "100")
	b.setErr(errors.New("below minimum"))
	s := New([]swaps.Provider{a, b})
	defer s.Close()

	startQuoting(s)
	state := settle(t, s)

	require.ErrorIs(t, state.Err, swaps.ErrRouteNotFound)
}

func TestNetworkFailureThenRecovery(t *testing.T) {
	p := newStubProvider("alpha", 1, "100")
	p.setErr(&swaps.NetworkError{Cause: errors.New("connection refused")})
	s := New([]swaps.Provider{p})
	defer s.Close()

	startQuoting(s)
	state := settle(t, s)
	require.True(t, swaps.IsNetworkError(state.Err))

	p.setErr(nil)
	s.OnNetworkAvailable()
	state = settle(t, s)

	require.NoError(t, state.Err)
	require.Len(t, state.Quotes, 1)
}

func TestOnNetworkAvailableIgnoresOtherErrors(t *testing.T) {
	p := newStubProvider("alpha", 1, "100")
	p.setErr(errors.New("pair disabled"))
	s := New([]swaps.Provider{p})
	defer s.Close()

	startQuoting(s)
	settle(t, s)
	calls := p.callCount()

	s.OnNetworkAvailable()
	settle(t, s)

	require.Equal(t, calls, p.callCount())
}

func TestSelectQuoteSticksAcrossRequote(t *testing.T) {
	a := newStubProvider("alpha", 1, "98")
	b := newStubProvider("beta", 2, "101")
	s := New([]swaps.Provider{a, b})
	defer s.Close()

	startQuoting(s)
	settle(t, s)

	s.SelectQuote("alpha")
	state := s.State()
	require.Equal(t, "alpha", state.Selected.Provider.ID())

	s.ReQuote()
	state = settle(t, s)

	require.Equal(t, "alpha", state.Selected.Provider.ID())
}

func TestPreferredProviderClearedWhenGone(t *testing.T) {
	a := newStubProvider("alpha", 1, "98")
	b := newStubProvider("beta", 2, "101")
	s := New([]swaps.Provider{a, b})
	defer s.Close()

	startQuoting(s)
	settle(t, s)
	s.SelectQuote("alpha")

	a.setErr(errors.New("maintenance"))
	s.ReQuote()
	state := settle(t, s)

	require.Equal(t, "beta", state.Selected.Provider.ID())
	require.Empty(t, state.PreferredProvider)
}

func TestSwitchPairsCarriesAmountOut(t *testing.T) {
	p := newStubProvider("alpha", 1, "17.5")
	s := New([]swaps.Provider{p})
	defer s.Close()

	startQuoting(s)
	settle(t, s)

	s.SwitchPairs()
	state := settle(t, s)

	require.True(t, state.TokenIn.Equal(tokenETH))
	require.True(t, state.TokenOut.Equal(tokenBTC))
	require.True(t, state.AmountIn.Equal(decimal.RequireFromString("17.5")))
}

func TestSameTokenOnBothSidesClearsOpposite(t *testing.T) {
	p := newStubProvider("alpha", 1, "100")
	s := New([]swaps.Provider{p})
	defer s.Close()

	s.SetTokenIn(tokenBTC)
	s.SetTokenOut(tokenETH)
	s.SetTokenIn(tokenETH)

	state := settle(t, s)
	require.True(t, state.TokenIn.Equal(tokenETH))
	require.Nil(t, state.TokenOut)
	require.Empty(t, state.Quotes)
}

type stubRates struct {
	rates map[string]decimal.Decimal
}

func (r *stubRates) Rate(ctx context.Context, token swaps.TokenRef, currency string) (decimal.Decimal, bool) {
	rate, ok := r.rates[token.Symbol]
	return rate, ok
}

func TestFiatFiguresAndPriceImpact(t *testing.T) {
	p := newStubProvider("alpha", 1, "10")
	rates := &stubRates{rates: map[string]decimal.Decimal{
		"BTC": decimal.NewFromInt(100),
		"ETH": decimal.NewFromInt(9),
	}}
	s := New([]swaps.Provider{p}, WithRateSource(rates, "usd"))
	defer s.Close()

	startQuoting(s)
	settle(t, s)

	// Fiat figures land asynchronously after the round settles.
	require.Eventually(t, func() bool {
		st := s.State()
		return st.FiatAmountIn != nil && st.FiatAmountOut != nil && st.PriceImpact != nil
	}, 2*time.Second, 5*time.Millisecond)
	state := s.State()

	// 1 BTC in at 100 = 100 fiat; 10 ETH out at 9 = 90 fiat, 10% impact.
	require.NotNil(t, state.FiatAmountIn)
	require.True(t, state.FiatAmountIn.Equal(decimal.NewFromInt(100)))
	require.NotNil(t, state.FiatAmountOut)
	require.True(t, state.FiatAmountOut.Equal(decimal.NewFromInt(90)))
	require.NotNil(t, state.PriceImpact)
	require.True(t, state.PriceImpact.Percent.Equal(decimal.NewFromInt(-10)))
}

type blockingRates struct {
	release chan struct{}
}

func (r *blockingRates) Rate(ctx context.Context, token swaps.TokenRef, currency string) (decimal.Decimal, bool) {
	select {
	case <-r.release:
		return decimal.NewFromInt(1), true
	case <-ctx.Done():
		return decimal.Zero, false
	}
}

func TestSlowRateLookupDoesNotBlockQuoting(t *testing.T) {
	p := newStubProvider("alpha", 1, "10")
	rates := &blockingRates{release: make(chan struct{})}
	s := New([]swaps.Provider{p}, WithRateSource(rates, "usd"))
	defer s.Close()

	startQuoting(s)
	state := settle(t, s)

	require.Len(t, state.Quotes, 1)
	require.Nil(t, state.FiatAmountIn, "fiat stays empty until the rate lookup answers")

	close(rates.release)
	require.Eventually(t, func() bool {
		st := s.State()
		return st.FiatAmountIn != nil && st.FiatAmountOut != nil
	}, 2*time.Second, 5*time.Millisecond)
}

type stubBalances struct {
	available decimal.Decimal
	err       error
}

func (b *stubBalances) AvailableBalance(ctx context.Context, token swaps.TokenRef) (decimal.Decimal, error) {
	return b.available, b.err
}

func TestInsufficientBalanceFlagged(t *testing.T) {
	p := newStubProvider("alpha", 1, "100")
	s := New([]swaps.Provider{p}, WithBalanceSource(&stubBalances{available: decimal.RequireFromString("0.5")}))
	defer s.Close()

	startQuoting(s)
	state := settle(t, s)

	require.NoError(t, state.Err)
	require.ErrorIs(t, state.BalanceErr, swaps.ErrInsufficientBalance)
}

func TestWalletSyncingFlagged(t *testing.T) {
	p := newStubProvider("alpha", 1, "100")
	s := New([]swaps.Provider{p}, WithBalanceSource(&stubBalances{err: swaps.ErrWalletSyncing}))
	defer s.Close()

	startQuoting(s)
	state := settle(t, s)

	require.NoError(t, state.Err)
	require.ErrorIs(t, state.BalanceErr, swaps.ErrWalletSyncing)
}

func TestSubscribeSeesFinalState(t *testing.T) {
	p := newStubProvider("alpha", 1, "100")
	s := New([]swaps.Provider{p})
	defer s.Close()

	ch := s.Subscribe()
	startQuoting(s)
	settle(t, s)

	var last State
	deadline := time.After(2 * time.Second)
	for {
		select {
		case state, ok := <-ch:
			if !ok {
				t.Fatal("channel closed early")
			}
			last = state
			if !last.Quoting && len(last.Quotes) > 0 {
				require.Equal(t, "alpha", last.Selected.Provider.ID())
				return
			}
		case <-deadline:
			t.Fatalf("never saw settled state, last: %+v", last)
		}
	}
}
