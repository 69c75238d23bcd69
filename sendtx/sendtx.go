// Package sendtx turns a confirmed quote's transaction payload into a
// broadcast transaction. Each chain kind gets its own Submitter; the
// confirmation flow only sees the interface.
package sendtx

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/RaghavSood/multiswap/swaps"
)

// State describes whether the prepared transaction can be sent and what
// it will cost. Fee figures are nil until preparation finishes.
type State struct {
	Sendable bool
	Loading  bool

	FeePrimary   *decimal.Decimal
	FeeSecondary *decimal.Decimal
	Fields       []swaps.Field
}

// Result is the outcome of a broadcast.
type Result struct {
	TxHash string
}

// Submitter prepares and broadcasts one swap transaction. A submitter
// handles exactly one payload at a time; SetPayload replaces any
// previous one.
type Submitter interface {
	// SetPayload prepares the payload for sending: validates it,
	// checks funds, estimates fees. The returned state says whether
	// Send may be called.
	SetPayload(ctx context.Context, payload swaps.TxPayload) (State, error)

	// Send broadcasts the prepared transaction. Returns once the
	// transaction is accepted by the node; settlement is observed
	// separately.
	Send(ctx context.Context) (*Result, error)
}
