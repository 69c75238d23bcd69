package tracker

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/RaghavSood/multiswap/swaps"
	"github.com/RaghavSood/multiswap/tracking"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "tracker").Logger()
}

const defaultInterval = 30 * time.Second

// Store is the subset of the record store the tracker needs.
type Store interface {
	GetPendingSwapRecords(ctx context.Context) ([]swaps.SwapRecord, error)
	UpdateSwapStatus(ctx context.Context, id string, status swaps.SwapStatus) error
	UpdateSwapStatusAndAmountOut(ctx context.Context, id string, status swaps.SwapStatus, amountOut decimal.Decimal) error
}

// Notifier is told when a tracked swap reaches a terminal status.
type Notifier interface {
	SwapSettled(rec swaps.SwapRecord)
}

// Tracker reconciles pending swap records against the external tracking
// endpoint until each reaches a terminal state. One tracker runs for the
// lifetime of the process.
type Tracker struct {
	store    Store
	client   *tracking.Client
	families map[string]swaps.TrackingFamily // provider id -> family
	notifier Notifier
	interval time.Duration
}

// Option adjusts tracker construction.
type Option func(*Tracker)

// WithInterval overrides the polling interval.
func WithInterval(d time.Duration) Option {
	return func(t *Tracker) { t.interval = d }
}

// WithNotifier attaches a terminal-status notification sink.
func WithNotifier(n Notifier) Option {
	return func(t *Tracker) { t.notifier = n }
}

// New builds a tracker over the given providers; each provider declares
// its own tracking family, FamilyNone meaning fire-and-forget.
func New(store Store, client *tracking.Client, providers []swaps.Provider, opts ...Option) *Tracker {
	families := make(map[string]swaps.TrackingFamily, len(providers))
	for _, p := range providers {
		families[p.ID()] = p.TrackingFamily()
	}

	t := &Tracker{
		store:    store,
		client:   client,
		families: families,
		interval: defaultInterval,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run polls until ctx is canceled. The first poll happens immediately.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.Poll(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("tracker stopped")
			return
		case <-ticker.C:
			t.Poll(ctx)
		}
	}
}

// Poll runs one reconciliation pass over all pending records. A failure
// on one record never affects the others.
func (t *Tracker) Poll(ctx context.Context) {
	pending, err := t.store.GetPendingSwapRecords(ctx)
	if err != nil {
		log.Error().Err(err).Msg("listing pending swaps")
		return
	}

	if len(pending) == 0 {
		return
	}

	log.Debug().Int("count", len(pending)).Msg("checking pending swaps")

	for _, rec := range pending {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := t.track(ctx, rec); err != nil {
			log.Warn().Err(err).Str("swap", rec.ID).Str("provider", rec.ProviderID).Msg("tracking swap")
		}
	}
}

func (t *Tracker) track(ctx context.Context, rec swaps.SwapRecord) error {
	family := t.families[rec.ProviderID]

	req, err := tracking.BuildRequest(rec, family)
	if err != nil {
		if errors.Is(err, tracking.ErrUnsupportedTracking) {
			log.Debug().Str("swap", rec.ID).Str("provider", rec.ProviderID).Msg("not trackable, skipping")
			return nil
		}
		return err
	}

	resp, err := t.client.Status(ctx, req)
	if err != nil {
		return err
	}

	mapped := tracking.MapStatus(resp.Status, resp.Legs, tracking.Route{
		DestAsset:   rec.ToAsset,
		DestAddress: rec.RecipientAddress,
	})
	if mapped == nil {
		log.Debug().Str("swap", rec.ID).Str("raw", resp.Status).Msg("ambiguous status, leaving unchanged")
		return nil
	}

	if !rec.Status.CanTransition(*mapped) {
		// Unchanged, or a stale response trying to move backwards.
		return nil
	}

	if resp.AmountOut != nil && rec.AmountOut == nil {
		if err := t.store.UpdateSwapStatusAndAmountOut(ctx, rec.ID, *mapped, *resp.AmountOut); err != nil {
			return err
		}
	} else {
		if err := t.store.UpdateSwapStatus(ctx, rec.ID, *mapped); err != nil {
			return err
		}
	}

	log.Info().Str("swap", rec.ID).
		Str("from", string(rec.Status)).
		Str("to", string(*mapped)).
		Msg("swap status updated")

	if mapped.Terminal() && t.notifier != nil {
		updated := rec
		updated.Status = *mapped
		if resp.AmountOut != nil && updated.AmountOut == nil {
			updated.AmountOut = resp.AmountOut
		}
		t.notifier.SwapSettled(updated)
	}

	return nil
}
