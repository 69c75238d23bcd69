package nearintents

import (
	"strings"

	"github.com/RaghavSood/multiswap/swaps"
)

// nativeTokenIDs maps CHAIN.SYMBOL notation to 1click token ids.
var nativeTokenIDs = map[string]string{
	// Major L1s
	"BTC.BTC":   "nep141:btc.omft.near",
	"ETH.ETH":   "nep141:eth.omft.near",
	"SOL.SOL":   "nep141:sol.omft.near",
	"AVAX.AVAX": "nep245:v2_1.omni.hot.tg:43114_11111111111111111111",
	"ADA.ADA":   "nep141:cardano.omft.near",
	"TON.TON":   "nep245:v2_1.omni.hot.tg:1117_",
	"TRON.TRX":  "nep141:tron.omft.near",
	"SUI.SUI":   "nep141:sui.omft.near",
	"XRP.XRP":   "nep141:xrp.omft.near",

	// L2s / EVM sidechains
	"BSC.BNB":     "nep245:v2_1.omni.hot.tg:56_11111111111111111111",
	"POLYGON.POL": "nep245:v2_1.omni.hot.tg:137_11111111111111111111",
	"BASE.ETH":    "nep141:base.omft.near",
	"ARB.ETH":     "nep141:arb.omft.near",

	// UTXO chains
	"LTC.LTC":   "nep141:ltc.omft.near",
	"BCH.BCH":   "nep141:bch.omft.near",
	"DOGE.DOGE": "nep141:doge.omft.near",
}

// contractChainPrefix maps blockchain ids to the omft bridge prefix for
// contract tokens.
var contractChainPrefix = map[string]string{
	"ETH":  "eth",
	"BASE": "base",
	"ARB":  "arb",
}

// TokenID looks up the 1click token id for a token reference.
func TokenID(token swaps.TokenRef) (string, bool) {
	if token.Contract == "" {
		id, ok := nativeTokenIDs[token.Blockchain+"."+token.Symbol]
		return id, ok
	}

	prefix, ok := contractChainPrefix[token.Blockchain]
	if !ok {
		return "", false
	}
	return "nep141:" + prefix + "-" + strings.ToLower(token.Contract) + ".omft.near", true
}
