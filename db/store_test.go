package db

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/RaghavSood/multiswap/swaps"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testRecord() swaps.SwapRecord {
	return swaps.SwapRecord{
		ProviderID:       "thorchain",
		ProviderName:     "THORChain",
		TokenIn:          swaps.TokenRef{Blockchain: "ETH", Symbol: "ETH", Decimals: 18},
		TokenOut:         swaps.TokenRef{Blockchain: "BTC", Symbol: "BTC", Decimals: 8},
		AmountIn:         decimal.RequireFromString("1.5"),
		RecipientAddress: "bc1qrecipient",
		SourceAddress:    "0xsource",
		TxHash:           "0xhash",
		FromAsset:        "ETH.ETH",
		ToAsset:          "BTC.BTC",
	}
}

func TestInsertAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec, err := store.InsertSwapRecord(ctx, testRecord())
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)
	require.Equal(t, swaps.StatusDepositing, rec.Status)

	got, err := store.GetSwapRecord(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, rec.ID, got.ID)
	require.Equal(t, "thorchain", got.ProviderID)
	require.Equal(t, "ETH.ETH", got.TokenIn.String())
	require.Equal(t, int32(18), got.TokenIn.Decimals)
	require.True(t, got.AmountIn.Equal(decimal.RequireFromString("1.5")))
	require.Nil(t, got.AmountOut)
}

func TestGetPendingExcludesTerminal(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	pendingRec, err := store.InsertSwapRecord(ctx, testRecord())
	require.NoError(t, err)

	doneRec := testRecord()
	doneRec.Status = swaps.StatusCompleted
	_, err = store.InsertSwapRecord(ctx, doneRec)
	require.NoError(t, err)

	failedRec := testRecord()
	failedRec.Status = swaps.StatusFailed
	_, err = store.InsertSwapRecord(ctx, failedRec)
	require.NoError(t, err)

	pending, err := store.GetPendingSwapRecords(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, pendingRec.ID, pending[0].ID)

	all, err := store.GetAllSwapRecords(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestUpdateStatusAndAmountOut(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec, err := store.InsertSwapRecord(ctx, testRecord())
	require.NoError(t, err)

	require.NoError(t, store.UpdateSwapStatus(ctx, rec.ID, swaps.StatusSwapping))

	got, err := store.GetSwapRecord(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, swaps.StatusSwapping, got.Status)
	require.Nil(t, got.AmountOut)

	out := decimal.RequireFromString("0.0489")
	require.NoError(t, store.UpdateSwapStatusAndAmountOut(ctx, rec.ID, swaps.StatusCompleted, out))

	got, err = store.GetSwapRecord(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, swaps.StatusCompleted, got.Status)
	require.NotNil(t, got.AmountOut)
	require.True(t, got.AmountOut.Equal(out))
}
