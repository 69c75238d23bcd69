package simpleswap

import (
	"strings"

	"github.com/RaghavSood/multiswap/swaps"
)

// tokenSymbols maps CHAIN.SYMBOL notation to SimpleSwap currency
// symbols. A curated list of the tokens we route through the exchange.
var tokenSymbols = map[string]string{
	"BTC.BTC":   "btc",
	"ETH.ETH":   "eth",
	"BASE.ETH":  "ethbase",
	"SOL.SOL":   "sol",
	"AVAX.AVAX": "avaxc",
	"ARB.ETH":   "etharb",
	"LTC.LTC":   "ltc",
	"DOGE.DOGE": "doge",
	"BCH.BCH":   "bch",
	"XRP.XRP":   "xrp",
	"TRON.TRX":  "trx",
}

// contractSymbols maps known contract tokens, keyed by lowercased
// CHAIN.SYMBOL-0xCONTRACT notation.
var contractSymbols = map[string]string{
	"eth.usdc-0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48":  "usdc",
	"base.usdc-0x833589fcd6edb6e08f4c7c32d4f71b54bda02913": "usdcbase",
	"avax.usdc-0xb97ef9ef8734c71904d8002f8b6bc66dd9c48a6e": "usdcavaxc",
	"eth.usdt-0xdac17f958d2ee523a2206206994597c13d831ec7":  "usdterc20",
}

// Symbol looks up the SimpleSwap currency symbol for a token.
func Symbol(token swaps.TokenRef) (string, bool) {
	if token.Contract == "" {
		sym, ok := tokenSymbols[token.Blockchain+"."+token.Symbol]
		return sym, ok
	}
	sym, ok := contractSymbols[strings.ToLower(token.String())]
	return sym, ok
}
