package tracking

import (
	"errors"
	"fmt"

	"github.com/RaghavSood/multiswap/swaps"
)

// ErrUnsupportedTracking marks a record whose provider family cannot be
// tracked at all. It is an expected condition: the tracker skips such
// records instead of treating them as failures.
var ErrUnsupportedTracking = errors.New("provider not supported for tracking")

// Request is the family-shaped query sent to the tracking endpoint.
type Request struct {
	Family swaps.TrackingFamily

	TxHash         string
	DepositAddress string
	ProviderSwapID string
	SourceAddress  string
	ChainID        string
	FromAsset      string
	ToAsset        string
}

// BuildRequest shapes a tracking request from a record's correlation
// fields according to the provider family.
//
// Bridge venues key on the deposit transaction hash or deposit address
// plus the declared asset identifiers; DEX aggregators key on tx hash
// plus chain id; exchange-style venues key on the provider-issued swap id
// plus the source address.
func BuildRequest(rec swaps.SwapRecord, family swaps.TrackingFamily) (Request, error) {
	switch family {
	case swaps.FamilyBridge:
		if rec.TxHash == "" && rec.DepositAddress == "" {
			return Request{}, fmt.Errorf("record %s: bridge tracking needs a tx hash or deposit address", rec.ID)
		}
		return Request{
			Family:         family,
			TxHash:         rec.TxHash,
			DepositAddress: rec.DepositAddress,
			FromAsset:      rec.FromAsset,
			ToAsset:        rec.ToAsset,
		}, nil

	case swaps.FamilyDexAggregator:
		if rec.TxHash == "" {
			return Request{}, fmt.Errorf("record %s: dex tracking needs a tx hash", rec.ID)
		}
		return Request{
			Family:  family,
			TxHash:  rec.TxHash,
			ChainID: rec.TokenIn.Blockchain,
		}, nil

	case swaps.FamilyExchange:
		if rec.ProviderSwapID == "" {
			return Request{}, fmt.Errorf("record %s: exchange tracking needs a provider swap id", rec.ID)
		}
		return Request{
			Family:         family,
			ProviderSwapID: rec.ProviderSwapID,
			SourceAddress:  rec.SourceAddress,
		}, nil
	}

	return Request{}, fmt.Errorf("record %s provider %s: %w", rec.ID, rec.ProviderID, ErrUnsupportedTracking)
}
