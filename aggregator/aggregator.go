package aggregator

import (
	"context"
	"errors"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/RaghavSood/multiswap/priceimpact"
	"github.com/RaghavSood/multiswap/swaps"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "aggregator").Logger()
}

const providerTimeout = 5 * time.Second

// RateSource resolves a token's fiat rate. The boolean is false when no
// rate is known; the aggregator then simply omits fiat figures.
type RateSource interface {
	Rate(ctx context.Context, token swaps.TokenRef, currency string) (decimal.Decimal, bool)
}

// BalanceSource reports the spendable balance for a token. Optional;
// without one the aggregator never raises a balance error.
type BalanceSource interface {
	AvailableBalance(ctx context.Context, token swaps.TokenRef) (decimal.Decimal, error)
}

// State is the full quoting state published to subscribers. Every
// mutation publishes a fresh snapshot; the slices and pointers inside
// are never mutated after publication.
type State struct {
	TokenIn  *swaps.TokenRef
	TokenOut *swaps.TokenRef
	AmountIn decimal.Decimal

	Quoting           bool
	Quotes            []swaps.RankedQuote
	PreferredProvider string
	Selected          *swaps.RankedQuote

	Err        error
	BalanceErr error

	FiatAmountIn  *decimal.Decimal
	FiatAmountOut *decimal.Decimal
	PriceImpact   *priceimpact.Result
}

// Service fans a quote request out to every supporting provider,
// ranks the answers, and keeps the best one selected. All methods are
// safe for concurrent use.
type Service struct {
	providers []swaps.Provider
	rates     RateSource
	balances  BalanceSource
	currency  string
	timeout   time.Duration

	mu        sync.Mutex
	state     State
	settings  swaps.Settings
	runID     uint64
	runCancel context.CancelFunc
	derivedID uint64
	subs      []chan State
	closed    bool
}

// Option adjusts service construction.
type Option func(*Service)

// WithRateSource attaches a fiat rate source.
func WithRateSource(r RateSource, currency string) Option {
	return func(s *Service) {
		s.rates = r
		s.currency = currency
	}
}

// WithBalanceSource attaches a spendable-balance check.
func WithBalanceSource(b BalanceSource) Option {
	return func(s *Service) { s.balances = b }
}

// WithProviderTimeout overrides the per-provider quote deadline.
func WithProviderTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// New builds an aggregator over the given providers. Provider order is
// normalized by Priority so quote ties resolve deterministically.
func New(providers []swaps.Provider, opts ...Option) *Service {
	ordered := make([]swaps.Provider, len(providers))
	copy(ordered, providers)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() < ordered[j].Priority()
	})

	s := &Service{
		providers: ordered,
		currency:  "usd",
		timeout:   providerTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe returns a channel carrying state snapshots. Delivery is
// coalescing: a slow reader sees the latest state, not every
// intermediate one. The channel closes when the service closes.
func (s *Service) Subscribe() <-chan State {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan State, 1)
	if !s.closed {
		ch <- s.state
		s.subs = append(s.subs, ch)
	} else {
		close(ch)
	}
	return ch
}

// State returns the current snapshot.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetTokenIn sets the token being sold. Choosing the current token-out
// clears token-out instead of allowing a same-token pair.
func (s *Service) SetTokenIn(token swaps.TokenRef) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.TokenIn != nil && s.state.TokenIn.Equal(token) {
		return
	}
	if s.state.TokenOut != nil && s.state.TokenOut.Equal(token) {
		s.state.TokenOut = nil
	}
	t := token
	s.state.TokenIn = &t
	s.state.PreferredProvider = ""
	s.requoteLocked()
}

// SetTokenOut sets the token being bought, clearing token-in if the
// pair would collapse into the same token.
func (s *Service) SetTokenOut(token swaps.TokenRef) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.TokenOut != nil && s.state.TokenOut.Equal(token) {
		return
	}
	if s.state.TokenIn != nil && s.state.TokenIn.Equal(token) {
		s.state.TokenIn = nil
	}
	t := token
	s.state.TokenOut = &t
	s.state.PreferredProvider = ""
	s.requoteLocked()
}

// SetAmountIn sets the sell amount and re-quotes.
func (s *Service) SetAmountIn(amount decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.AmountIn.Equal(amount) {
		return
	}
	s.state.AmountIn = amount
	s.requoteLocked()
}

// SwitchPairs swaps the token pair. The new sell amount is the
// previously quoted buy amount, so the user flips direction at the
// price they were just shown.
func (s *Service) SwitchPairs() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.TokenIn, s.state.TokenOut = s.state.TokenOut, s.state.TokenIn
	if s.state.Selected != nil {
		s.state.AmountIn = s.state.Selected.Quote.AmountOut
	}
	s.state.PreferredProvider = ""
	s.requoteLocked()
}

// SelectQuote pins a provider's quote as the selection. The preference
// survives re-quotes as long as that provider keeps answering.
func (s *Service) SelectQuote(providerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.Quotes {
		if s.state.Quotes[i].Provider.ID() == providerID {
			q := s.state.Quotes[i]
			s.state.Selected = &q
			s.state.PreferredProvider = providerID
			s.refreshDerivedLocked()
			s.publishLocked()
			return
		}
	}
}

// SetSettings replaces the swap settings and re-quotes.
func (s *Service) SetSettings(settings swaps.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings = settings
	s.requoteLocked()
}

// Settings returns the current swap settings.
func (s *Service) Settings() swaps.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// ReQuote discards the current quotes and fetches fresh ones.
func (s *Service) ReQuote() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requoteLocked()
}

// OnNetworkAvailable re-quotes if the last round failed on
// connectivity. Any other state is left alone.
func (s *Service) OnNetworkAvailable() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if swaps.IsNetworkError(s.state.Err) {
		s.requoteLocked()
	}
}

// Close cancels any in-flight round and closes all subscriber
// channels.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	if s.runCancel != nil {
		s.runCancel()
		s.runCancel = nil
	}
	for _, ch := range s.subs {
		close(ch)
	}
	s.subs = nil
}

// requoteLocked starts a fresh quoting round, canceling whichever one
// is still running. Callers hold s.mu.
func (s *Service) requoteLocked() {
	if s.runCancel != nil {
		s.runCancel()
		s.runCancel = nil
	}

	s.state.Quotes = nil
	s.state.Selected = nil
	s.state.Err = nil
	s.state.BalanceErr = nil
	s.refreshDerivedLocked()

	if s.closed || s.state.TokenIn == nil || s.state.TokenOut == nil {
		s.state.Quoting = false
		s.publishLocked()
		return
	}

	tokenIn := *s.state.TokenIn
	tokenOut := *s.state.TokenOut

	// Pair support is reported even before an amount is entered.
	supporting := make([]swaps.Provider, 0, len(s.providers))
	for _, p := range s.providers {
		if p.Supports(tokenIn, tokenOut) {
			supporting = append(supporting, p)
		}
	}
	if len(supporting) == 0 {
		s.state.Quoting = false
		s.state.Err = swaps.ErrNoSupportedProvider
		s.publishLocked()
		return
	}

	if !s.state.AmountIn.IsPositive() {
		s.state.Quoting = false
		s.publishLocked()
		return
	}

	s.runID++
	runID := s.runID
	ctx, cancel := context.WithCancel(context.Background())
	s.runCancel = cancel

	amountIn := s.state.AmountIn
	settings := s.settings
	s.state.Quoting = true
	s.publishLocked()

	go s.quoteRound(ctx, runID, supporting, tokenIn, tokenOut, amountIn, settings)
}

// quoteRound fans the request out and applies the result unless a
// newer round started meanwhile.
func (s *Service) quoteRound(ctx context.Context, runID uint64, providers []swaps.Provider, tokenIn, tokenOut swaps.TokenRef, amountIn decimal.Decimal, settings swaps.Settings) {
	results := make([]*swaps.RankedQuote, len(providers))
	errs := make([]error, len(providers))

	var wg sync.WaitGroup
	for i, p := range providers {
		wg.Add(1)
		go func(i int, p swaps.Provider) {
			defer wg.Done()

			pctx, pcancel := context.WithTimeout(ctx, s.timeout)
			defer pcancel()

			quote, err := p.FetchQuote(pctx, tokenIn, tokenOut, amountIn, settings)
			if err != nil {
				log.Debug().Err(err).Str("provider", p.ID()).Msg("quote failed")
				errs[i] = err
				return
			}
			rq := swaps.NewRankedQuote(p, *quote)
			results[i] = &rq
		}(i, p)
	}
	wg.Wait()

	// Providers already came in priority order; a stable sort keeps
	// that order among equal amounts.
	quotes := make([]swaps.RankedQuote, 0, len(providers))
	for _, r := range results {
		if r != nil {
			quotes = append(quotes, *r)
		}
	}
	sort.SliceStable(quotes, func(i, j int) bool {
		return quotes[i].Quote.AmountOut.GreaterThan(quotes[j].Quote.AmountOut)
	})

	var roundErr error
	if len(quotes) == 0 {
		roundErr = swaps.ErrRouteNotFound
		var networkCause error
		allNetwork := true
		for _, err := range errs {
			if err == nil {
				continue
			}
			if !swaps.IsNetworkError(err) {
				allNetwork = false
				break
			}
			if networkCause == nil {
				networkCause = err
			}
		}
		if allNetwork && networkCause != nil {
			roundErr = &swaps.NetworkError{Cause: networkCause}
		}
	}

	var balanceErr error
	if s.balances != nil && len(quotes) > 0 {
		available, err := s.balances.AvailableBalance(ctx, tokenIn)
		switch {
		case errors.Is(err, swaps.ErrWalletSyncing) || errors.Is(err, swaps.ErrWalletNotSynced):
			balanceErr = err
		case err == nil && available.LessThan(amountIn):
			balanceErr = swaps.ErrInsufficientBalance
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if runID != s.runID || s.closed {
		// A newer round superseded this one.
		return
	}
	s.runCancel = nil

	s.state.Quoting = false
	s.state.Quotes = quotes
	s.state.Err = roundErr
	s.state.BalanceErr = balanceErr
	s.state.Selected = s.pickLocked(quotes)
	s.refreshDerivedLocked()
	s.publishLocked()
}

// pickLocked returns the quote to select: the preferred provider's if
// it answered, otherwise the best one. A vanished preference is
// cleared.
func (s *Service) pickLocked(quotes []swaps.RankedQuote) *swaps.RankedQuote {
	if len(quotes) == 0 {
		return nil
	}
	if s.state.PreferredProvider != "" {
		for i := range quotes {
			if quotes[i].Provider.ID() == s.state.PreferredProvider {
				q := quotes[i]
				return &q
			}
		}
		s.state.PreferredProvider = ""
	}
	q := quotes[0]
	return &q
}

// refreshDerivedLocked clears the fiat figures and starts recomputing
// them off the lock; rate lookups can hit the network on a cold cache.
// The result lands as an extra snapshot unless a newer refresh started.
func (s *Service) refreshDerivedLocked() {
	s.state.FiatAmountIn = nil
	s.state.FiatAmountOut = nil
	s.state.PriceImpact = nil

	if s.rates == nil {
		return
	}

	s.derivedID++
	id := s.derivedID

	var tokenIn, tokenOut *swaps.TokenRef
	var amountIn, amountOut decimal.Decimal
	if s.state.TokenIn != nil && s.state.AmountIn.IsPositive() {
		in := *s.state.TokenIn
		tokenIn = &in
		amountIn = s.state.AmountIn
	}
	if s.state.TokenOut != nil && s.state.Selected != nil {
		out := *s.state.TokenOut
		tokenOut = &out
		amountOut = s.state.Selected.Quote.AmountOut
	}
	if tokenIn == nil && tokenOut == nil {
		return
	}

	go s.deriveFiat(id, tokenIn, amountIn, tokenOut, amountOut)
}

// deriveFiat fetches rates without holding s.mu and applies the fiat
// figures and price impact, unless they have gone stale meanwhile.
func (s *Service) deriveFiat(id uint64, tokenIn *swaps.TokenRef, amountIn decimal.Decimal, tokenOut *swaps.TokenRef, amountOut decimal.Decimal) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var fiatIn, fiatOut *decimal.Decimal
	if tokenIn != nil {
		if rate, ok := s.rates.Rate(ctx, *tokenIn, s.currency); ok {
			fiat := amountIn.Mul(rate)
			fiatIn = &fiat
		}
	}
	if tokenOut != nil {
		if rate, ok := s.rates.Rate(ctx, *tokenOut, s.currency); ok {
			fiat := amountOut.Mul(rate)
			fiatOut = &fiat
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id != s.derivedID || s.closed {
		return
	}
	s.state.FiatAmountIn = fiatIn
	s.state.FiatAmountOut = fiatOut
	s.state.PriceImpact = priceimpact.Compute(fiatOut, fiatIn)
	s.publishLocked()
}

// publishLocked pushes the current state to every subscriber,
// replacing any undelivered snapshot.
func (s *Service) publishLocked() {
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s.state
	}
}
