package swaps

import (
	"context"

	"github.com/shopspring/decimal"
)

// TrackingFamily determines how a settlement-tracking request is shaped
// for swaps executed through a provider. FamilyNone marks a venue as
// fire-and-forget: its records are never polled.
type TrackingFamily string

const (
	FamilyNone          TrackingFamily = ""
	FamilyBridge        TrackingFamily = "bridge"   // keyed on tx hash or deposit address + asset identifiers
	FamilyDexAggregator TrackingFamily = "dex"      // keyed on tx hash + chain id
	FamilyExchange      TrackingFamily = "exchange" // keyed on provider swap id + source address
)

// Provider is the interface that swap venues must implement.
type Provider interface {
	// ID returns the stable provider identifier (e.g. "thorchain").
	ID() string

	// Title returns the display name.
	Title() string

	// Priority orders providers for tie-breaking; lower wins.
	Priority() int

	// Supports reports whether the provider can quote the given pair.
	Supports(tokenIn, tokenOut TokenRef) bool

	// FetchQuote returns an indicative quote for ranking.
	FetchQuote(ctx context.Context, tokenIn, tokenOut TokenRef, amountIn decimal.Decimal, settings Settings) (*Quote, error)

	// FetchFinalQuote returns a firm, transaction-ready quote for a
	// previously ranked quote.
	FetchFinalQuote(ctx context.Context, quote RankedQuote, settings Settings) (*FinalQuote, error)

	// TrackingFamily returns how this venue's swaps are tracked.
	TrackingFamily() TrackingFamily
}

// AddressBook resolves the wallet's own addresses per chain. Providers
// need a receive address for the destination leg and, for some venues, a
// source/refund address.
type AddressBook interface {
	ReceiveAddress(ctx context.Context, token TokenRef) (string, error)
	SendingAddress(ctx context.Context, token TokenRef) (string, error)
}
