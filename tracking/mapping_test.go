package tracking

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RaghavSood/multiswap/swaps"
)

var testRoute = Route{
	DestAsset:   "ETH.ETH",
	DestAddress: "0xRecipient",
}

func TestMapStatusDirect(t *testing.T) {
	tests := []struct {
		raw  string
		want swaps.SwapStatus
	}{
		{"not_started", swaps.StatusDepositing},
		{"completed", swaps.StatusCompleted},
		{"refunded", swaps.StatusRefunded},
		{"failed", swaps.StatusFailed},
	}

	for _, tt := range tests {
		got := MapStatus(tt.raw, nil, testRoute)
		require.NotNil(t, got, tt.raw)
		require.Equal(t, tt.want, *got, tt.raw)
	}
}

func TestMapStatusUnknownLeavesUnchanged(t *testing.T) {
	require.Nil(t, MapStatus("unknown", nil, testRoute))
	require.Nil(t, MapStatus("", nil, testRoute))
	require.Nil(t, MapStatus("something_else", nil, testRoute))
}

func TestMapStatusPendingNoLegs(t *testing.T) {
	got := MapStatus("pending", nil, testRoute)
	require.NotNil(t, got)
	require.Equal(t, swaps.StatusSwapping, *got)
}

func TestMapStatusPendingSwapLeg(t *testing.T) {
	legs := []Leg{
		{Type: "send", Status: "completed", ToAsset: "BTC.BTC"},
		{Type: "swap", Status: "pending"},
	}
	got := MapStatus("swapping", legs, testRoute)
	require.NotNil(t, got)
	require.Equal(t, swaps.StatusSwapping, *got)
}

func TestMapStatusPendingFinalSendLeg(t *testing.T) {
	legs := []Leg{
		{Type: "swap", Status: "completed"},
		{Type: "send", Status: "pending", ToAsset: "ETH.ETH", ToAddress: "0xrecipient"},
	}
	got := MapStatus("pending", legs, testRoute)
	require.NotNil(t, got)
	require.Equal(t, swaps.StatusSending, *got)
}

func TestMapStatusPendingInboundSendLeg(t *testing.T) {
	// A send leg that does not reach the declared destination is still
	// moving funds into the swap.
	legs := []Leg{
		{Type: "send", Status: "pending", ToAsset: "BTC.BTC", ToAddress: "0xVault"},
		{Type: "swap", Status: "not_started"},
	}
	got := MapStatus("pending", legs, testRoute)
	require.NotNil(t, got)
	require.Equal(t, swaps.StatusDepositing, *got)
}

func TestMapStatusPendingAllLegsCompleted(t *testing.T) {
	legs := []Leg{
		{Type: "swap", Status: "completed"},
		{Type: "send", Status: "completed", ToAsset: "ETH.ETH"},
	}
	got := MapStatus("pending", legs, testRoute)
	require.NotNil(t, got)
	require.Equal(t, swaps.StatusSwapping, *got)
}

func TestBuildRequestFamilies(t *testing.T) {
	rec := swaps.SwapRecord{
		ID:             "rec-1",
		TokenIn:        swaps.TokenRef{Blockchain: "ETH", Symbol: "ETH", Decimals: 18},
		TxHash:         "0xabc",
		DepositAddress: "0xdeposit",
		ProviderSwapID: "swap-42",
		SourceAddress:  "0xsource",
		FromAsset:      "ETH.ETH",
		ToAsset:        "BTC.BTC",
	}

	req, err := BuildRequest(rec, swaps.FamilyBridge)
	require.NoError(t, err)
	require.Equal(t, "0xabc", req.TxHash)
	require.Equal(t, "0xdeposit", req.DepositAddress)
	require.Equal(t, "ETH.ETH", req.FromAsset)
	require.Empty(t, req.ProviderSwapID)

	req, err = BuildRequest(rec, swaps.FamilyDexAggregator)
	require.NoError(t, err)
	require.Equal(t, "0xabc", req.TxHash)
	require.Equal(t, "ETH", req.ChainID)

	req, err = BuildRequest(rec, swaps.FamilyExchange)
	require.NoError(t, err)
	require.Equal(t, "swap-42", req.ProviderSwapID)
	require.Equal(t, "0xsource", req.SourceAddress)
}

func TestBuildRequestUnsupported(t *testing.T) {
	_, err := BuildRequest(swaps.SwapRecord{ID: "rec-2"}, swaps.FamilyNone)
	require.ErrorIs(t, err, ErrUnsupportedTracking)
}

func TestBuildRequestMissingFields(t *testing.T) {
	_, err := BuildRequest(swaps.SwapRecord{ID: "rec-3"}, swaps.FamilyBridge)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrUnsupportedTracking)

	_, err = BuildRequest(swaps.SwapRecord{ID: "rec-4"}, swaps.FamilyExchange)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrUnsupportedTracking)
}
