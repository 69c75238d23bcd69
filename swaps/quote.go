package swaps

import (
	"time"

	"github.com/shopspring/decimal"
)

// Field is a human-readable key/value shown alongside a quote
// (slippage, recipient, allowance and similar).
type Field struct {
	Name  string
	Value string
}

// Action is a provider-required precondition (e.g. an ERC-20 approval)
// that must complete before a final quote can be fetched.
type Action struct {
	Title string
}

// Settings carries the user-adjustable swap parameters passed through to
// providers. A zero Slippage means the provider default applies.
type Settings struct {
	Recipient string
	Slippage  decimal.Decimal
}

// Quote is an indicative quote from a provider, used only for ranking.
// Immutable value.
type Quote struct {
	TokenIn          TokenRef
	TokenOut         TokenRef
	AmountIn         decimal.Decimal
	AmountOut        decimal.Decimal
	PriceImpact      *decimal.Decimal
	ActionRequired   *Action
	Fields           []Field
	EstimatedSeconds int64 // 0 = unknown
}

// RankedQuote wraps a Quote with provenance and creation time. CreatedAt
// never changes after construction; the confirm-stage expiry timer is
// always computed relative to it.
type RankedQuote struct {
	Provider  Provider
	Quote     Quote
	CreatedAt int64 // unix milliseconds
}

// NewRankedQuote stamps the quote with the current time.
func NewRankedQuote(p Provider, q Quote) RankedQuote {
	return RankedQuote{
		Provider:  p,
		Quote:     q,
		CreatedAt: time.Now().UnixMilli(),
	}
}

// TxPayload is an opaque, provider-built transaction payload. The swap
// core never inspects it; it is handed unmodified to the submission
// collaborator, which asserts its own concrete type.
type TxPayload any

// FinalQuote is a firm, transaction-ready quote.
type FinalQuote struct {
	AmountOut        decimal.Decimal
	AmountOutMin     decimal.Decimal
	Payload          TxPayload
	PriceImpact      *decimal.Decimal
	Fields           []Field
	EstimatedSeconds int64
	Slippage         decimal.Decimal
	ProviderSwapID   string // provider-issued correlation id, if any
	DepositAddress   string // for deposit-address venues
}
