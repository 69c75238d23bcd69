package tracking

import (
	"strings"

	"github.com/RaghavSood/multiswap/swaps"
)

// Leg is one step of a multi-leg swap route as reported by the tracking
// endpoint, in execution order.
type Leg struct {
	Type        string `json:"type"` // "swap" or "send"
	Status      string `json:"status"`
	FromAsset   string `json:"fromAsset"`
	ToAsset     string `json:"toAsset"`
	FromAddress string `json:"fromAddress"`
	ToAddress   string `json:"toAddress"`
}

// Route is the overall declared destination of a tracked swap, used to
// decide whether an in-flight send leg is the final payout or an internal
// transfer into the swap.
type Route struct {
	DestAsset   string
	DestAddress string
}

const (
	legTypeSwap = "swap"
	legTypeSend = "send"

	legStatusCompleted = "completed"
)

// MapStatus maps a raw tracking status plus optional leg detail to the
// canonical status. A nil result means the raw status is ambiguous and the
// stored status must be left unchanged.
func MapStatus(raw string, legs []Leg, route Route) *swaps.SwapStatus {
	switch raw {
	case "not_started":
		return statusPtr(swaps.StatusDepositing)
	case "completed":
		return statusPtr(swaps.StatusCompleted)
	case "refunded":
		return statusPtr(swaps.StatusRefunded)
	case "failed":
		return statusPtr(swaps.StatusFailed)
	case "pending", "swapping":
		return statusPtr(mapInFlight(legs, route))
	}
	// Unknown raw values must not regress a stored status.
	return nil
}

// mapInFlight inspects the first leg that has not completed yet.
func mapInFlight(legs []Leg, route Route) swaps.SwapStatus {
	for _, leg := range legs {
		if leg.Status == legStatusCompleted {
			continue
		}
		if leg.Type == legTypeSend {
			if legReachesDestination(leg, route) {
				return swaps.StatusSending
			}
			// Still moving funds into the swap.
			return swaps.StatusDepositing
		}
		return swaps.StatusSwapping
	}
	// No leg information, or every leg reported completed while the
	// overall status is still pending.
	return swaps.StatusSwapping
}

func legReachesDestination(leg Leg, route Route) bool {
	if route.DestAsset != "" && !strings.EqualFold(leg.ToAsset, route.DestAsset) {
		return false
	}
	if route.DestAddress != "" && !strings.EqualFold(leg.ToAddress, route.DestAddress) {
		return false
	}
	return route.DestAsset != "" || route.DestAddress != ""
}

func statusPtr(s swaps.SwapStatus) *swaps.SwapStatus {
	return &s
}
