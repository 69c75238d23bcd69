package swaps

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTokenRef(t *testing.T) {
	token, err := ParseTokenRef("BTC.BTC", 8)
	require.NoError(t, err)
	require.Equal(t, "BTC", token.Blockchain)
	require.Equal(t, "BTC", token.Symbol)
	require.Empty(t, token.Contract)
	require.True(t, token.IsNative())
	require.Equal(t, "BTC.BTC", token.String())
}

func TestParseTokenRefContract(t *testing.T) {
	token, err := ParseTokenRef("ETH.USDC-0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", 6)
	require.NoError(t, err)
	require.Equal(t, "ETH", token.Blockchain)
	require.Equal(t, "USDC", token.Symbol)
	require.Equal(t, "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", token.Contract)
	require.False(t, token.IsNative())
	require.Equal(t, "ETH.USDC-0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", token.String())
}

func TestParseTokenRefNormalizesCase(t *testing.T) {
	token, err := ParseTokenRef("eth.usdc-0xA0b8", 6)
	require.NoError(t, err)
	require.Equal(t, "ETH", token.Blockchain)
	require.Equal(t, "USDC", token.Symbol)
	require.Equal(t, "0xA0b8", token.Contract)
}

func TestParseTokenRefRejectsMalformed(t *testing.T) {
	for _, bad := range []string{"", "BTC", ".BTC", "BTC.", "."} {
		_, err := ParseTokenRef(bad, 8)
		require.Error(t, err, "input %q", bad)
	}
}

func TestTokenRefEqualIgnoresContractCase(t *testing.T) {
	a := TokenRef{Blockchain: "ETH", Symbol: "USDC", Contract: "0xABCD", Decimals: 6}
	b := TokenRef{Blockchain: "ETH", Symbol: "USDC", Contract: "0xabcd", Decimals: 18}
	require.True(t, a.Equal(b))

	c := TokenRef{Blockchain: "BASE", Symbol: "USDC", Contract: "0xABCD", Decimals: 6}
	require.False(t, a.Equal(c))
}
