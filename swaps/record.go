package swaps

import (
	"time"

	"github.com/shopspring/decimal"
)

// SwapRecord is the persisted trace of one submitted swap attempt.
// Records are append-only: after submission only the settlement tracker
// mutates them (status and, once learned, amountOut).
type SwapRecord struct {
	ID           string
	CreatedAt    time.Time
	ProviderID   string
	ProviderName string

	TokenIn  TokenRef
	TokenOut TokenRef

	AmountIn  decimal.Decimal
	AmountOut *decimal.Decimal // nil until learned from tracking

	RecipientAddress string
	SourceAddress    string

	// Correlation fields for settlement tracking. Which ones are set
	// depends on the provider family.
	TxHash         string
	ProviderSwapID string
	FromAsset      string // provider-notation identifier of the input asset
	ToAsset        string // provider-notation identifier of the output asset
	DepositAddress string

	Status SwapStatus
}
