// Package confirm drives the final leg of a swap: fetching the firm
// quote from the chosen provider, expiring it when the venue's pricing
// window lapses, and handing the payload to a submitter for broadcast.
package confirm

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/RaghavSood/multiswap/sendtx"
	"github.com/RaghavSood/multiswap/swaps"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "confirm").Logger()
}

const quoteLifetime = 20 * time.Second

// State is the confirmation snapshot published to subscribers.
type State struct {
	FinalQuote *swaps.FinalQuote
	Loading    bool
	Expired    bool
	Err        error

	Sendable     bool
	FeePrimary   *decimal.Decimal
	FeeSecondary *decimal.Decimal
	Fields       []swaps.Field
}

// Coordinator owns one confirmation attempt for one ranked quote. It is
// created when the user commits to a provider and stopped when the swap
// is sent or abandoned.
type Coordinator struct {
	quote     swaps.RankedQuote
	submitter sendtx.Submitter
	lifetime  time.Duration

	mu        sync.Mutex
	settings  swaps.Settings
	state     State
	fetchID   uint64
	fetchStop context.CancelFunc
	expiry    *time.Timer
	subs      []chan State
	stopped   bool

	// Serializes submitter preparation across fetch generations, so a
	// superseded fetch can never leave its payload armed after the
	// current one prepared.
	prepareMu sync.Mutex
}

// Option adjusts coordinator construction.
type Option func(*Coordinator)

// WithQuoteLifetime overrides the firm-quote pricing window.
func WithQuoteLifetime(d time.Duration) Option {
	return func(c *Coordinator) { c.lifetime = d }
}

// New starts a coordinator for the given quote and kicks off the first
// firm-quote fetch immediately.
func New(quote swaps.RankedQuote, submitter sendtx.Submitter, settings swaps.Settings, opts ...Option) *Coordinator {
	c := &Coordinator{
		quote:     quote,
		submitter: submitter,
		settings:  settings,
		lifetime:  quoteLifetime,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.mu.Lock()
	c.fetchLocked()
	c.mu.Unlock()
	return c
}

// Subscribe returns a coalescing channel of state snapshots. The
// channel closes when the coordinator stops.
func (c *Coordinator) Subscribe() <-chan State {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan State, 1)
	if !c.stopped {
		ch <- c.state
		c.subs = append(c.subs, ch)
	} else {
		close(ch)
	}
	return ch
}

// State returns the current snapshot.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Refresh discards the current firm quote and fetches a new one. Called
// when the quote expires or the user asks for fresh pricing.
func (c *Coordinator) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetchLocked()
}

// SetSettings replaces the swap settings and refetches, since the firm
// quote depends on slippage and recipient.
func (c *Coordinator) SetSettings(settings swaps.Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.settings = settings
	c.fetchLocked()
}

// Submit broadcasts the prepared transaction. The firm quote must be
// current and sendable.
func (c *Coordinator) Submit(ctx context.Context) (*sendtx.Result, error) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil, errors.New("confirmation stopped")
	}
	if c.state.Expired {
		c.mu.Unlock()
		return nil, errors.New("quote expired, refresh first")
	}
	if !c.state.Sendable {
		c.mu.Unlock()
		return nil, errors.New("transaction not ready to send")
	}
	c.stopExpiryLocked()
	c.mu.Unlock()

	return c.submitter.Send(ctx)
}

// BuildRecord assembles the persistent swap record for a broadcast
// transaction, carrying every correlation field tracking will need.
func (c *Coordinator) BuildRecord(txHash, sourceAddress string) swaps.SwapRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec := swaps.SwapRecord{
		ProviderID:       c.quote.Provider.ID(),
		ProviderName:     c.quote.Provider.Title(),
		TokenIn:          c.quote.Quote.TokenIn,
		TokenOut:         c.quote.Quote.TokenOut,
		AmountIn:         c.quote.Quote.AmountIn,
		RecipientAddress: c.settings.Recipient,
		SourceAddress:    sourceAddress,
		TxHash:           txHash,
		FromAsset:        c.quote.Quote.TokenIn.String(),
		ToAsset:          c.quote.Quote.TokenOut.String(),
		Status:           swaps.StatusDepositing,
	}
	if fq := c.state.FinalQuote; fq != nil {
		out := fq.AmountOut
		rec.AmountOut = &out
		rec.ProviderSwapID = fq.ProviderSwapID
		rec.DepositAddress = fq.DepositAddress
	}
	return rec
}

// Stop cancels any in-flight fetch and closes subscriber channels.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}
	c.stopped = true
	if c.fetchStop != nil {
		c.fetchStop()
		c.fetchStop = nil
	}
	c.stopExpiryLocked()
	for _, ch := range c.subs {
		close(ch)
	}
	c.subs = nil
}

// fetchLocked starts a firm-quote fetch, superseding any running one.
// Callers hold c.mu.
func (c *Coordinator) fetchLocked() {
	if c.stopped {
		return
	}
	if c.fetchStop != nil {
		c.fetchStop()
		c.fetchStop = nil
	}
	c.stopExpiryLocked()

	c.state = State{Loading: true}
	c.publishLocked()

	c.fetchID++
	fetchID := c.fetchID
	ctx, cancel := context.WithCancel(context.Background())
	c.fetchStop = cancel
	settings := c.settings

	go c.fetch(ctx, fetchID, settings)
}

func (c *Coordinator) fetch(ctx context.Context, fetchID uint64, settings swaps.Settings) {
	fq, err := c.quote.Provider.FetchFinalQuote(ctx, c.quote, settings)

	var subState sendtx.State
	if err == nil {
		subState, err = c.prepare(ctx, fetchID, fq.Payload)
		if errors.Is(err, errFetchSuperseded) {
			return
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if fetchID != c.fetchID || c.stopped {
		return
	}
	c.fetchStop = nil

	if err != nil {
		if swaps.IsQuoteNotReady(err) {
			// The venue has not finalized pricing yet. Stay in the
			// loading state; the caller retries via Refresh.
			log.Debug().Err(err).Str("provider", c.quote.Provider.ID()).Msg("quote not ready")
			return
		}
		c.state = State{Err: err}
		c.publishLocked()
		return
	}

	c.state = State{
		FinalQuote:   fq,
		Sendable:     subState.Sendable,
		FeePrimary:   subState.FeePrimary,
		FeeSecondary: subState.FeeSecondary,
		Fields:       append(fq.Fields, subState.Fields...),
	}
	if subState.Sendable {
		c.startExpiryLocked()
	}
	c.publishLocked()
}

var errFetchSuperseded = errors.New("fetch superseded")

// prepare hands the payload to the submitter unless a newer fetch has
// started. The generation check and the SetPayload call sit inside one
// critical section per generation: a stale fetch that lost the race
// bails out before touching the submitter, and one that won is
// overwritten by the current generation waiting right behind it.
func (c *Coordinator) prepare(ctx context.Context, fetchID uint64, payload swaps.TxPayload) (sendtx.State, error) {
	c.prepareMu.Lock()
	defer c.prepareMu.Unlock()

	c.mu.Lock()
	current := fetchID == c.fetchID && !c.stopped
	c.mu.Unlock()
	if !current {
		return sendtx.State{}, errFetchSuperseded
	}

	return c.submitter.SetPayload(ctx, payload)
}

// startExpiryLocked arms the pricing-window timer. Firing marks the
// quote expired; it never auto-refreshes, the user decides.
func (c *Coordinator) startExpiryLocked() {
	c.stopExpiryLocked()
	c.expiry = time.AfterFunc(c.lifetime, func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.stopped || c.state.FinalQuote == nil {
			return
		}
		c.state.Expired = true
		c.state.Sendable = false
		c.publishLocked()
	})
}

func (c *Coordinator) stopExpiryLocked() {
	if c.expiry != nil {
		c.expiry.Stop()
		c.expiry = nil
	}
}

func (c *Coordinator) publishLocked() {
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- c.state
	}
}
